package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/signalstamp/internal/config"
	"github.com/Nomadcxx/signalstamp/internal/database"
	"github.com/Nomadcxx/signalstamp/internal/exifmeta"
	"github.com/Nomadcxx/signalstamp/internal/naming"
	"github.com/Nomadcxx/signalstamp/internal/ui"
)

func newInspectCmd() *cobra.Command {
	var showHistory bool

	cmd := &cobra.Command{
		Use:   "inspect <file>...",
		Short: "Show the EXIF date fields of images",
		Long: `Print DateTimeOriginal, DateTimeDigitized, DateTime and the
sub-second tags of each file, next to the timestamp parsed from its name.
Files are only read.

Examples:
  signalstamp inspect output/signal-2023-05-17-14-30-05-123.jpg
  signalstamp inspect --history output/*.jpg`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			var db *database.HistoryDB
			if showHistory {
				db = openHistoryReadOnly()
				if db != nil {
					defer db.Close()
				}
			}

			failed := 0
			for i, path := range args {
				if i > 0 {
					fmt.Fprintln(out)
				}
				if err := inspectFile(out, path, db); err != nil {
					ui.ErrorMsg(out, "%s: %v", path, err)
					failed++
				}
			}
			if failed > 0 {
				return errFilesFailed
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showHistory, "history", false, "also list recorded runs that processed each file")

	return cmd
}

func inspectFile(w io.Writer, path string, db *database.HistoryDB) error {
	report, err := exifmeta.Inspect(path)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, ui.Path(path))

	name := filepath.Base(path)
	if ts, err := naming.ParseFilename(name); err == nil {
		field(w, "Name timestamp", exifmeta.FormatDate(ts.Time()))
	} else {
		field(w, "Name timestamp", "")
	}

	if !report.HasExif {
		fmt.Fprintln(w, "  "+ui.Dim("no EXIF segment"))
		return nil
	}
	field(w, "DateTimeOriginal", report.Original)
	field(w, "DateTimeDigitized", report.Digitized)
	field(w, "DateTime", report.Modified)
	field(w, "SubSecTimeOriginal", report.SubSecOriginal)
	field(w, "SubSecTimeDigitized", report.SubSecDigitized)

	if db != nil {
		records, err := db.FileHistory(name)
		if err != nil {
			return err
		}
		for _, r := range records {
			status := ui.Success("ok")
			if !r.Success {
				status = ui.Error(r.Stage)
			}
			fmt.Fprintf(w, "  run #%-4d %s  %s\n", r.RunID, status, ui.Dim(ui.FormatAgo(r.ProcessedAt)))
		}
	}
	return nil
}

func field(w io.Writer, label, value string) {
	if value == "" {
		value = ui.Dim("(absent)")
	} else {
		value = ui.Date(value)
	}
	fmt.Fprintf(w, "  %-20s %s\n", label+":", value)
}

// openHistoryReadOnly opens an existing history database; it returns nil when
// there is none, so inspecting never creates one.
func openHistoryReadOnly() *database.HistoryDB {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	db, err := database.OpenPath(path)
	if err != nil {
		return nil
	}
	return db
}
