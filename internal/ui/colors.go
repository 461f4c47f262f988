package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

type tone int

const (
	toneSuccess tone = iota
	toneError
	toneWarning
	toneInfo
	toneDim
	tonePath
	toneDate
	toneCount
)

// palette holds the ANSI color and weight of each tone on a terminal.
var palette = [toneCount]struct {
	color lipgloss.Color
	bold  bool
}{
	toneSuccess: {"10", true},
	toneError:   {"9", true},
	toneWarning: {"11", false},
	toneInfo:    {"12", false},
	toneDim:     {"8", false},
	tonePath:    {"15", false},
	toneDate:    {"14", false},
}

var styles [toneCount]lipgloss.Style

func init() {
	initStyles()
}

// initStyles rebuilds the styles; every style is plain when output is not a
// colored terminal.
func initStyles() {
	colored := IsTerminal()
	for t, p := range palette {
		s := lipgloss.NewStyle()
		if colored {
			s = s.Foreground(p.color).Bold(p.bold)
		}
		styles[t] = s
	}
}

func render(t tone, text string) string {
	return styles[t].Render(text)
}

func Success(text string) string { return render(toneSuccess, text) }
func Error(text string) string { return render(toneError, text) }
func Warning(text string) string { return render(toneWarning, text) }
func Dim(text string) string { return render(toneDim, text) }
func Path(text string) string { return render(tonePath, text) }

// Date renders an EXIF date value.
func Date(text string) string { return render(toneDate, text) }

func message(w io.Writer, t tone, symbol, format string, args []interface{}) {
	fmt.Fprintln(w, render(t, symbol)+" "+fmt.Sprintf(format, args...))
}

// SuccessMsg prints a line prefixed with ✓.
func SuccessMsg(w io.Writer, format string, args ...interface{}) {
	message(w, toneSuccess, "✓", format, args)
}

// ErrorMsg prints a line prefixed with ✗.
func ErrorMsg(w io.Writer, format string, args ...interface{}) {
	message(w, toneError, "✗", format, args)
}

// WarningMsg prints a line prefixed with ⚠.
func WarningMsg(w io.Writer, format string, args ...interface{}) {
	message(w, toneWarning, "⚠", format, args)
}

// InfoMsg prints a line prefixed with ℹ.
func InfoMsg(w io.Writer, format string, args ...interface{}) {
	message(w, toneInfo, "ℹ", format, args)
}
