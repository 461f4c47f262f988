package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/signalstamp/internal/config"
	"github.com/Nomadcxx/signalstamp/internal/database"
	"github.com/Nomadcxx/signalstamp/internal/ui"
)

func newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or the files of one run",
		Long: `Show the run history kept in ~/.config/signalstamp/history.db.

Examples:
  signalstamp history              # most recent runs
  signalstamp history --limit 50
  signalstamp history 12           # files processed by run 12`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			path, err := cfg.HistoryPath()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if _, err := os.Stat(path); os.IsNotExist(err) {
				fmt.Fprintln(out, "No history recorded yet.")
				return nil
			}

			db, err := database.OpenPath(path)
			if err != nil {
				return err
			}
			defer db.Close()

			if len(args) == 0 {
				return listRuns(cmd, db, limit)
			}

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			return listRunFiles(cmd, db, id)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")

	return cmd
}

func listRuns(cmd *cobra.Command, db *database.HistoryDB, limit int) error {
	runs, err := db.RecentRuns(limit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	tbl := ui.NewTable("RUN", "STARTED", "OK", "FAILED", "MODE", "INPUT -> OUTPUT")
	for _, r := range runs {
		mode := r.Backend
		if r.DryRun {
			mode = "dry-run"
		}
		if r.FinishedAt.IsZero() {
			mode += " (running)"
		}
		tbl.AddRow(
			strconv.FormatInt(r.ID, 10),
			ui.FormatAgo(r.StartedAt),
			ui.FormatCount(r.Succeeded),
			ui.FormatCount(r.Failed),
			mode,
			shortPath(r.InputDir)+" -> "+shortPath(r.OutputDir),
		)
	}
	tbl.Render(out)
	return nil
}

func listRunFiles(cmd *cobra.Command, db *database.HistoryDB, id int64) error {
	run, err := db.GetRun(id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %d not found", id)
	}

	files, err := db.RunFiles(id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run #%d: %s -> %s, %d ok, %d failed\n\n",
		run.ID, run.InputDir, run.OutputDir, run.Succeeded, run.Failed)

	tbl := ui.NewTable("FILE", "RESULT", "CAPTURE DATE", "DETAIL")
	tbl.SetMaxWidth(80)
	for _, f := range files {
		result, detail := "ok", shortPath(f.TargetPath)
		if !f.Success {
			result, detail = "failed: "+f.Stage, f.Error
		}
		tbl.AddRow(f.Name, result, f.CaptureDate, detail)
	}
	tbl.Render(out)
	return nil
}
