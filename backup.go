package golite

import (
	"github.com/dshills/golite/internal/native"
)

// Backup is an online backup copying pages from a source connection's
// database into a destination connection's database. Both connections must
// outlive the backup; closing either connection finishes it.
type Backup struct {
	src    *Conn
	dst    *Conn
	b      *native.Backup
	closed bool
}

// Backup starts copying the named database ("main" for the primary one) on
// c into dstName on dst. The source stays usable while the backup runs.
func (c *Conn) Backup(srcName string, dst *Conn, dstName string) (*Backup, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	if err := dst.usable(); err != nil {
		return nil, err
	}
	nb, err := native.BackupInit(dst.h, dstName, c.h, srcName)
	if err != nil {
		return nil, mapNative(err)
	}
	b := &Backup{src: c, dst: dst, b: nb}
	c.backups[b] = struct{}{}
	dst.backups[b] = struct{}{}
	return b, nil
}

func (b *Backup) usable() error {
	if b.src.closed || b.dst.closed {
		return contractErr(KindConnClosed, "backup used after connection Close")
	}
	if b.closed {
		return contractErr(KindMisuse, "backup used after Close")
	}
	return nil
}

// Step copies up to pages pages (all remaining when pages < 0) and reports
// whether the source has been fully copied. Busy and Locked are reported,
// not retried; the backup stays valid and Step may be called again.
func (b *Backup) Step(pages int) (done bool, err error) {
	if err := b.usable(); err != nil {
		return false, err
	}
	done, err = b.b.Step(pages)
	return done, mapNative(err)
}

// Remaining reports the number of pages left after the most recent Step.
// Zero once the backup is closed.
func (b *Backup) Remaining() int {
	if b.closed {
		return 0
	}
	return b.b.Remaining()
}

// PageCount reports the source database's page count as of the most recent
// Step. Zero once the backup is closed.
func (b *Backup) PageCount() int {
	if b.closed {
		return 0
	}
	return b.b.PageCount()
}

// Run drives the backup to completion in steps of pagesPerStep pages,
// calling progress (when non-nil) after each step with the pages remaining
// and the total page count. The backup still needs Close afterwards.
func (b *Backup) Run(pagesPerStep int, progress func(remaining, total int)) error {
	if pagesPerStep == 0 {
		pagesPerStep = -1
	}
	for {
		done, err := b.Step(pagesPerStep)
		if err != nil {
			return err
		}
		if progress != nil {
			progress(b.Remaining(), b.PageCount())
		}
		if done {
			return nil
		}
	}
}

// Close releases the backup. The first call wins; subsequent calls are
// no-ops.
func (b *Backup) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	delete(b.src.backups, b)
	delete(b.dst.backups, b)
	if b.src.closed || b.dst.closed {
		return nil
	}
	return mapNative(b.b.Finish())
}
