package main

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/Nomadcxx/signalstamp/internal/naming"
	"github.com/Nomadcxx/signalstamp/internal/organizer"
	"github.com/Nomadcxx/signalstamp/internal/ui"
)

//go:embed assets/header.txt
var asciiHeader string

// printHeader displays the ASCII header with version info
func printHeader(w io.Writer, version string) {
	fmt.Fprintln(w, asciiHeader)
	fmt.Fprintf(w, "Version: %s\n\n", version)
}

// progressPrinter returns the per-file console callback.
func progressPrinter(w io.Writer) func(organizer.FileResult) {
	return func(res organizer.FileResult) {
		switch {
		case res.OK() && res.DryRun:
			ui.InfoMsg(w, "%s would be stamped %s -> %s", res.Name, ui.Date(res.Date), ui.Path(res.Target))
		case res.OK():
			ui.SuccessMsg(w, "%s stamped %s -> %s", res.Name, ui.Date(res.Date), ui.Path(res.Target))
		case errors.Is(res.Err, naming.ErrNoMatch):
			ui.WarningMsg(w, "%s skipped: no timestamp in name", res.Name)
		case errors.Is(res.Err, naming.ErrInvalidDate):
			ui.WarningMsg(w, "%s skipped: %v", res.Name, res.Err)
		default:
			ui.ErrorMsg(w, "%s failed at %s: %v", res.Name, res.Stage, res.Err)
		}
	}
}

// printSummary writes the final tally.
func printSummary(w io.Writer, s *organizer.Summary) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Succeeded: %d\n", s.Succeeded)
	failed := fmt.Sprint(s.Failed)
	if s.Failed > 0 {
		failed = ui.Warning(failed)
	}
	fmt.Fprintf(w, "Failed: %s\n", failed)

	detail := fmt.Sprintf("%s moved in %s", ui.FormatBytes(s.BytesMoved), ui.FormatDuration(s.Duration))
	if s.RunID != 0 {
		detail += fmt.Sprintf(", run #%d", s.RunID)
	}
	fmt.Fprintln(w, ui.Dim(detail))
}

func shortPath(p string) string {
	if rel, err := filepath.Rel(".", p); err == nil && len(rel) < len(p) {
		return rel
	}
	return p
}
