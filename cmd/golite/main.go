// Command golite runs SQL scripts against a SQLite database. Statements are
// read from the files given as arguments, or from stdin when none are
// given. Rows produced by queries are printed tab-separated to stdout.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dshills/golite"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	dbPath := flag.String("db", ":memory:", "database path")
	busy := flag.Duration("busy-timeout", 5*time.Second, "busy handler timeout")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("golite %s (built %s)\n", version, buildTime)
		os.Exit(0)
	}

	log.SetOutput(os.Stderr)
	log.SetFlags(0)

	conn, err := golite.Open(*dbPath, 0, golite.WithBusyTimeout(*busy))
	if err != nil {
		log.Fatalf("open %s: %v", *dbPath, err)
	}
	defer conn.Close()

	// SIGINT aborts the in-flight statement instead of killing the process
	// mid-write; a second signal uses the default disposition.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		conn.Interrupt()
		signal.Stop(sigChan)
	}()

	if flag.NArg() == 0 {
		if err := runScript(conn, os.Stdin); err != nil {
			log.Fatalf("stdin: %v", err)
		}
		return
	}
	for _, path := range flag.Args() {
		f, err := os.Open(path)
		if err != nil {
			log.Fatalf("%v", err)
		}
		err = runScript(conn, f)
		f.Close()
		if err != nil {
			log.Fatalf("%s: %v", path, err)
		}
	}
}

func runScript(conn *golite.Conn, r io.Reader) error {
	script, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	for _, sql := range splitStatements(string(script)) {
		if err := runStatement(conn, sql); err != nil {
			return err
		}
	}
	return nil
}

func runStatement(conn *golite.Conn, sql string) error {
	stmt, err := conn.Prepare(sql)
	if err != nil {
		return err
	}
	defer stmt.Close()

	if stmt.ColumnCount() == 0 {
		n, err := stmt.Execute()
		if err != nil {
			return err
		}
		if n > 0 {
			log.Printf("%d row(s) changed", n)
		}
		return nil
	}

	rows, err := stmt.Query()
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		fields := make([]string, rows.ColumnCount())
		for i := range fields {
			v, err := rows.ColumnValue(i)
			if err != nil {
				return err
			}
			fields[i] = v.String()
		}
		fmt.Println(strings.Join(fields, "\t"))
	}
	return rows.Err()
}

// splitStatements cuts a script on semicolons outside string literals and
// comments. Good enough for scripts; not a SQL parser.
func splitStatements(script string) []string {
	var out []string
	var b strings.Builder
	inStr := byte(0)
	lineComment := false
	blockComment := false
	for i := 0; i < len(script); i++ {
		ch := script[i]
		switch {
		case lineComment:
			if ch == '\n' {
				lineComment = false
			}
		case blockComment:
			if ch == '*' && i+1 < len(script) && script[i+1] == '/' {
				blockComment = false
				i++
				continue
			}
		case inStr != 0:
			if ch == inStr {
				inStr = 0
			}
		case ch == '\'' || ch == '"':
			inStr = ch
		case ch == '-' && i+1 < len(script) && script[i+1] == '-':
			lineComment = true
		case ch == '/' && i+1 < len(script) && script[i+1] == '*':
			blockComment = true
			i++
			continue
		case ch == ';':
			if s := strings.TrimSpace(b.String()); s != "" {
				out = append(out, s)
			}
			b.Reset()
			continue
		}
		if !lineComment && !blockComment {
			b.WriteByte(ch)
		}
	}
	if s := strings.TrimSpace(b.String()); s != "" {
		out = append(out, s)
	}
	return out
}
