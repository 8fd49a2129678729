// Package logarchive lists, reads and deletes the date-stamped log and
// exception files the logger produces.
package logarchive

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/crut0i/weatherapp/internal/logger"
)

// Kind selects between plain log files and exception files.
type Kind string

const (
	KindLog       Kind = "log"
	KindException Kind = "exception"
)

// ErrNotFound is returned when no file exists for the requested date.
var ErrNotFound = errors.New("logarchive: log file not found")

// Entry is one parsed log line or exception block.
type Entry map[string]any

// Metadata carries per-level entry counts for a document.
type Metadata struct {
	ErrorCount   int `json:"error_count"`
	InfoCount    int `json:"info_count"`
	WarningCount int `json:"warning_count"`
	DebugCount   int `json:"debug_count"`
}

// Document is the structured content of one log file.
type Document struct {
	Status       string   `json:"status"`
	Date         string   `json:"date"`
	TotalEntries int      `json:"total_entries"`
	Entries      []Entry  `json:"entries"`
	Metadata     Metadata `json:"metadata"`
}

// Archive reads log files from a single directory.
type Archive struct {
	dir string
}

// New creates an Archive over dir, creating the directory if needed.
func New(dir string) (*Archive, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("logarchive: create dir: %w", err)
	}
	return &Archive{dir: dir}, nil
}

func (a *Archive) filePath(date string, kind Kind) string {
	return filepath.Join(a.dir, fmt.Sprintf("%s_%s.log", kind, date))
}

// ListDates returns the dates with a file of the given kind, newest first.
func (a *Archive) ListDates(kind Kind) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(a.dir, string(kind)+"_*.log"))
	if err != nil {
		return nil, err
	}

	dates := make([]string, 0, len(matches))
	for _, m := range matches {
		name := filepath.Base(m)
		date := strings.TrimSuffix(strings.TrimPrefix(name, string(kind)+"_"), ".log")
		if date != "" {
			dates = append(dates, date)
		}
	}

	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

// Read parses the file for a date. JSON lines become entries; runs of
// non-JSON lines accumulate into an exception block flushed on the sentinel
// line or end of file.
func (a *Archive) Read(date string, kind Kind) (*Document, error) {
	f, err := os.Open(a.filePath(date, kind))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	defer f.Close()

	var (
		entries = make([]Entry, 0)
		pending []string
	)

	flush := func() {
		if len(pending) == 0 {
			return
		}
		if e := parseException(pending); e != nil {
			entries = append(entries, e)
		}
		pending = nil
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()

		if strings.TrimSpace(line) == logger.Sentinel {
			flush()
			continue
		}

		var entry Entry
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &entry); err == nil {
			entries = append(entries, entry)
			continue
		}

		pending = append(pending, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	flush()

	return &Document{
		Status:       "success",
		Date:         date,
		TotalEntries: len(entries),
		Entries:      entries,
		Metadata: Metadata{
			ErrorCount:   countLevel(entries, "ERROR"),
			InfoCount:    countLevel(entries, "INFO"),
			WarningCount: countLevel(entries, "WARNING"),
			DebugCount:   countLevel(entries, "DEBUG"),
		},
	}, nil
}

// Delete removes the file for a date. Cache invalidation and the
// current-day guard are the caller's responsibility.
func (a *Archive) Delete(date string, kind Kind) error {
	path := a.filePath(date, kind)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return err
	}
	return os.Remove(path)
}

// parseException turns a block of raw lines into a structured entry. The
// first line carries the request id in brackets; a line starting with
// "Exception:" carries the error message and ends the traceback.
func parseException(raw []string) Entry {
	text := strings.TrimSpace(strings.Join(raw, "\n"))
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")

	requestID := strings.Trim(lines[0], "[]")
	traceback := make([]string, 0, len(lines))
	var errorMessage string

	for _, line := range lines[1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "Traceback") {
			continue
		}
		if strings.HasPrefix(trimmed, "Exception:") {
			errorMessage = strings.TrimSpace(strings.TrimPrefix(trimmed, "Exception:"))
			break
		}
		traceback = append(traceback, trimmed)
	}

	return Entry{
		"request_id":    requestID,
		"error_message": errorMessage,
		"traceback":     traceback,
		"level":         "ERROR",
	}
}

func countLevel(entries []Entry, level string) int {
	n := 0
	for _, e := range entries {
		if l, ok := e["level"].(string); ok && l == level {
			n++
		}
	}
	return n
}
