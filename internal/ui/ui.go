// Package ui formats console output: styled status lines when stdout is a
// terminal, plain text otherwise.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

var (
	// Detect if we're in a terminal
	isTerminal   = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	colorEnabled = os.Getenv("NO_COLOR") == ""
)

// DisableColors disables all color output
func DisableColors() {
	colorEnabled = false
	initStyles()
}

// EnableColors enables color output when stdout is a terminal
func EnableColors() {
	colorEnabled = true
	isTerminal = isatty.IsTerminal(os.Stdout.Fd())
	initStyles()
}

// IsTerminal reports whether styled output is in effect
func IsTerminal() bool {
	return isTerminal && colorEnabled
}

// Section prints a section header
func Section(w io.Writer, title string) {
	fmt.Fprintln(w)
	if IsTerminal() {
		fmt.Fprintln(w, "━━━ "+strings.ToUpper(title)+" ━━━")
	} else {
		fmt.Fprintln(w, strings.ToUpper(title))
		fmt.Fprintln(w, strings.Repeat("=", len(title)+6))
	}
}

// FormatBytes formats bytes to human-readable format using go-humanize
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}
	return humanize.Bytes(uint64(bytes))
}

// FormatCount formats a count with thousands separators
func FormatCount(n int) string {
	return humanize.Comma(int64(n))
}

// FormatAgo renders t relative to now ("3 minutes ago")
func FormatAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

// FormatDuration formats duration to human-readable format
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%.1fm", d.Minutes())
	}
	return fmt.Sprintf("%.1fh", d.Hours())
}
