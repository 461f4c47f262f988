// Package activity keeps a per-day JSONL journal of every file the organizer
// touched. Files are named activity-YYYY-MM-DD.jsonl and pruned by age.
package activity

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

type Action string

const (
	ActionStamp  Action = "stamp"
	ActionDryRun Action = "dry_run"
)

type Entry struct {
	Timestamp   time.Time `json:"ts"`
	Action      Action    `json:"action"`
	RunID       int64     `json:"run_id,omitempty"`
	Source      string    `json:"source"`
	Target      string    `json:"target,omitempty"`
	CaptureDate string    `json:"capture_date,omitempty"`
	Stage       string    `json:"stage"`
	Backend     string    `json:"backend,omitempty"`
	Success     bool      `json:"success"`
	Bytes       int64     `json:"bytes,omitempty"`
	DurationMs  int64     `json:"duration_ms,omitempty"`
	Error       string    `json:"error,omitempty"`
}

type Logger struct {
	mu          sync.Mutex
	logDir      string
	currentFile *os.File
	currentDate string
	now         func() time.Time
}

// NewLogger creates the activity directory under configDir.
func NewLogger(configDir string) (*Logger, error) {
	logDir := filepath.Join(configDir, "activity")

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, err
	}

	return &Logger{
		logDir: logDir,
		now:    time.Now,
	}, nil
}

func (l *Logger) Log(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry.Timestamp = now

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	today := now.Format("2006-01-02")

	if l.currentDate != today || l.currentFile == nil {
		if err := l.rotateFile(today); err != nil {
			return err
		}
	}

	_, err = l.currentFile.Write(append(line, '\n'))
	return err
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentFile != nil {
		err := l.currentFile.Close()
		l.currentFile = nil
		return err
	}
	return nil
}

// PruneOld removes journal files older than retentionDays. A non-positive
// retention keeps everything.
func (l *Logger) PruneOld(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := l.now().AddDate(0, 0, -retentionDays)

	names, err := l.logFiles()
	if err != nil {
		return err
	}

	for _, name := range names {
		fileDate, err := time.ParseInLocation("2006-01-02", dateOf(name), time.Local)
		if err != nil {
			continue
		}

		if fileDate.Before(cutoff) {
			os.Remove(filepath.Join(l.logDir, name))
		}
	}

	return nil
}

func (l *Logger) rotateFile(date string) error {
	if l.currentFile != nil {
		l.currentFile.Close()
	}

	filePath := filepath.Join(l.logDir, "activity-"+date+".jsonl")

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	l.currentFile = file
	l.currentDate = date

	return nil
}

func (l *Logger) GetLogDir() string {
	return l.logDir
}

// GetRecentEntries returns the most recent activity entries, up to limit.
// Entries are returned in reverse chronological order (newest first).
func (l *Logger) GetRecentEntries(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	logFiles, err := l.logFiles()
	if err != nil {
		return nil, err
	}
	// ReadDir sorts by name, which is by date; walk newest first
	for i, j := 0, len(logFiles)-1; i < j; i, j = i+1, j-1 {
		logFiles[i], logFiles[j] = logFiles[j], logFiles[i]
	}

	var results []Entry
	for _, fileName := range logFiles {
		fileEntries, err := readEntriesFromFile(filepath.Join(l.logDir, fileName))
		if err != nil {
			continue
		}

		for i := len(fileEntries) - 1; i >= 0; i-- {
			results = append(results, fileEntries[i])
			if len(results) >= limit {
				return results, nil
			}
		}
	}

	return results, nil
}

func (l *Logger) logFiles() ([]string, error) {
	entries, err := os.ReadDir(l.logDir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), "activity-") && strings.HasSuffix(entry.Name(), ".jsonl") {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

func dateOf(name string) string {
	return strings.TrimSuffix(strings.TrimPrefix(name, "activity-"), ".jsonl")
}

// readEntriesFromFile reads all entries from a JSONL file, skipping lines
// that do not decode.
func readEntriesFromFile(filePath string) ([]Entry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []Entry
	scanner := NewJSONLScanner(file)
	for scanner.Scan() {
		var entry Entry
		if err := scanner.Entry(&entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, scanner.Err()
}

// JSONLScanner scans a JSONL file line by line
type JSONLScanner struct {
	scanner *bufio.Scanner
	entry   []byte
	err     error
}

func NewJSONLScanner(r io.Reader) *JSONLScanner {
	return &JSONLScanner{
		scanner: bufio.NewScanner(r),
	}
}

func (s *JSONLScanner) Scan() bool {
	if s.scanner.Scan() {
		s.entry = s.scanner.Bytes()
		return true
	}
	s.err = s.scanner.Err()
	return false
}

// Entry unmarshals the current line into v
func (s *JSONLScanner) Entry(v interface{}) error {
	return json.Unmarshal(s.entry, v)
}

func (s *JSONLScanner) Err() error {
	return s.err
}
