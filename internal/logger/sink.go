package logger

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// rollingFile is a write syncer that appends to <dir>/<prefix>_<YYYY-MM-DD>.log,
// reopening the file when the local date changes.
type rollingFile struct {
	mu     sync.Mutex
	dir    string
	prefix string
	date   string
	f      *os.File
}

func newRollingFile(dir, prefix string) *rollingFile {
	return &rollingFile{dir: dir, prefix: prefix}
}

func (r *rollingFile) file() (*os.File, error) {
	date := time.Now().Format("2006-01-02")
	if r.f != nil && date == r.date {
		return r.f, nil
	}
	if r.f != nil {
		r.f.Close()
		r.f = nil
	}
	name := filepath.Join(r.dir, r.prefix+"_"+date+".log")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	r.f = f
	r.date = date
	return f, nil
}

func (r *rollingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.file()
	if err != nil {
		return 0, err
	}
	return f.Write(p)
}

func (r *rollingFile) Sync() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return nil
	}
	return r.f.Sync()
}

func (r *rollingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
