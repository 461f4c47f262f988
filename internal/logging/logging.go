// Package logging provides leveled, component-tagged logging with file output
// and size based rotation.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Nomadcxx/signalstamp/internal/paths"
)

// Level represents a logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a string to a Level
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new Field
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Config holds logger configuration
type Config struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	File       string `mapstructure:"file"`        // log file path (empty = default location)
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // max size before rotation (default: 10)
	MaxBackups int    `mapstructure:"max_backups"` // number of backups to keep (default: 5)

	// Console mirrors every line to this writer (typically os.Stderr with --verbose).
	Console io.Writer `mapstructure:"-"`
}

// DefaultConfig returns default logging configuration
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		File:       "",
		MaxSizeMB:  10,
		MaxBackups: 5,
	}
}

// Logger writes log lines to a rotating file and an optional console writer.
type Logger struct {
	level      Level
	mu         sync.Mutex
	file       *os.File
	filePath   string
	maxSize    int64
	maxBackups int
	console    io.Writer
	writers    []io.Writer
	now        func() time.Time
}

// New creates a Logger. An empty cfg.File resolves to
// ~/.config/signalstamp/logs/signalstamp.log.
func New(cfg Config) (*Logger, error) {
	l := &Logger{
		level:      ParseLevel(cfg.Level),
		maxSize:    int64(cfg.MaxSizeMB) * 1024 * 1024,
		maxBackups: cfg.MaxBackups,
		console:    cfg.Console,
		now:        time.Now,
	}

	if l.maxSize <= 0 {
		l.maxSize = 10 * 1024 * 1024
	}
	if l.maxBackups <= 0 {
		l.maxBackups = 5
	}

	if cfg.File == "" {
		logPath, err := paths.LogPath()
		if err != nil {
			return nil, fmt.Errorf("unable to resolve log path: %w", err)
		}
		cfg.File = logPath
	}

	expanded, err := paths.ExpandHome(cfg.File)
	if err != nil {
		return nil, fmt.Errorf("unable to expand log path: %w", err)
	}
	l.filePath = expanded

	if err := os.MkdirAll(filepath.Dir(l.filePath), 0755); err != nil {
		return nil, fmt.Errorf("unable to create log directory: %w", err)
	}

	if err := l.openFile(); err != nil {
		return nil, err
	}

	return l, nil
}

// NewWriter returns a logger that writes only to w, without a file.
func NewWriter(w io.Writer, level string) *Logger {
	return &Logger{
		level:   ParseLevel(level),
		writers: []io.Writer{w},
		now:     time.Now,
	}
}

// Nop returns a logger that discards all output
func Nop() *Logger {
	return &Logger{
		level:   LevelError + 1,
		writers: []io.Writer{},
		now:     time.Now,
	}
}

func (l *Logger) openFile() error {
	f, err := os.OpenFile(l.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("unable to open log file: %w", err)
	}

	l.file = f
	l.writers = []io.Writer{f}
	if l.console != nil {
		l.writers = append(l.writers, l.console)
	}
	return nil
}

func (l *Logger) checkRotation() error {
	if l.file == nil {
		return nil
	}

	info, err := l.file.Stat()
	if err != nil {
		return err
	}
	if info.Size() < l.maxSize {
		return nil
	}

	l.file.Close()
	if err := newBackupSet(l.filePath).rotate(l.maxBackups); err != nil {
		return err
	}
	return l.openFile()
}

func (l *Logger) log(level Level, component, msg string, err error, fields ...Field) {
	if level < l.level {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if rotErr := l.checkRotation(); rotErr != nil {
		fmt.Fprintf(os.Stderr, "log rotation error: %v\n", rotErr)
	}

	var sb strings.Builder
	sb.WriteString(l.now().Format(time.RFC3339))
	sb.WriteString(" [")
	sb.WriteString(level.String())
	sb.WriteString("] [")
	sb.WriteString(component)
	sb.WriteString("] ")
	sb.WriteString(msg)

	if err != nil {
		sb.WriteString(" | error=")
		sb.WriteString(err.Error())
	}

	for _, f := range fields {
		sb.WriteString(" | ")
		sb.WriteString(f.Key)
		sb.WriteString("=")
		sb.WriteString(fmt.Sprintf("%v", f.Value))
	}
	sb.WriteString("\n")

	line := []byte(sb.String())
	for _, w := range l.writers {
		w.Write(line)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(component, msg string, fields ...Field) {
	l.log(LevelDebug, component, msg, nil, fields...)
}

// Info logs an info message
func (l *Logger) Info(component, msg string, fields ...Field) {
	l.log(LevelInfo, component, msg, nil, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(component, msg string, fields ...Field) {
	l.log(LevelWarn, component, msg, nil, fields...)
}

// Error logs an error message with an error
func (l *Logger) Error(component, msg string, err error, fields ...Field) {
	l.log(LevelError, component, msg, err, fields...)
}

// Close closes the log file
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		err := l.file.Close()
		l.file = nil
		return err
	}
	return nil
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// FilePath returns the log file path, empty for writer-only loggers.
func (l *Logger) FilePath() string {
	return l.filePath
}
