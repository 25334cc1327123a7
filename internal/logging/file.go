package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const dayLayout = "2006-01-02"

// FileName returns the log file for the given day.
func FileName(dir string, day time.Time) string {
	return filepath.Join(dir, "app-"+day.Format(dayLayout)+".log")
}

// datedFile appends to the current day's file and rolls over at midnight.
type datedFile struct {
	dir string
	now func() time.Time

	mu  sync.Mutex
	day string
	f   *os.File
}

func newDatedFile(dir string) (*datedFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	d := &datedFile{dir: dir, now: time.Now}
	if err := d.rotate(d.now()); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *datedFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if d.f == nil || now.Format(dayLayout) != d.day {
		if err := d.rotate(now); err != nil {
			return 0, err
		}
	}
	return d.f.Write(p)
}

// rotate must be called with mu held, or before the file is shared.
func (d *datedFile) rotate(now time.Time) error {
	f, err := os.OpenFile(FileName(d.dir, now), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if d.f != nil {
		d.f.Close()
	}
	d.f = f
	d.day = now.Format(dayLayout)
	return nil
}

func (d *datedFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f = nil
	return err
}
