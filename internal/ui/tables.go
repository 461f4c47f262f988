package ui

import (
	"fmt"
	"io"
	"strings"
)

// Table collects rows and prints them as aligned columns
type Table struct {
	headers  []string
	rows     [][]string
	maxWidth int // maximum width of any single column
}

func NewTable(headers ...string) *Table {
	return &Table{
		headers:  headers,
		maxWidth: 60,
	}
}

// SetMaxWidth sets the maximum column width; longer cells are truncated
func (t *Table) SetMaxWidth(width int) {
	t.maxWidth = width
}

func (t *Table) AddRow(values ...string) {
	row := make([]string, len(t.headers))
	copy(row, values)
	t.rows = append(t.rows, row)
}

// Len returns the number of rows
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table without borders
func (t *Table) Render(w io.Writer) {
	if len(t.headers) == 0 {
		return
	}

	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
		for _, row := range t.rows {
			if n := len(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
		if t.maxWidth > 0 && widths[i] > t.maxWidth {
			widths[i] = t.maxWidth
		}
	}

	writeRow := func(cells []string, style func(string) string) {
		parts := make([]string, len(cells))
		for i, c := range cells {
			cell := fmt.Sprintf("%-*s", widths[i], truncate(c, widths[i]))
			if i == len(cells)-1 {
				cell = strings.TrimRight(cell, " ")
			}
			parts[i] = style(cell)
		}
		fmt.Fprintln(w, strings.Join(parts, "  "))
	}

	writeRow(t.headers, Dim)
	seps := make([]string, len(widths))
	for i, wd := range widths {
		seps[i] = strings.Repeat("─", wd)
	}
	fmt.Fprintln(w, Dim(strings.Join(seps, "  ")))

	for _, row := range t.rows {
		writeRow(row, func(s string) string { return s })
	}
}

// truncate truncates a string to max length with ellipsis
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
