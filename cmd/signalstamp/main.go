package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/signalstamp/internal/ui"
)

var (
	version     = "dev" // Set by build flags: -ldflags="-X main.version=1.0.0"
	cfgFile     string
	dryRun      bool
	verbose     bool
	noColor     bool
	inputDir    string
	outputDir   string
	onConflict  string
	backendName string
	checksum    bool
	noHistory   bool
	noActivity  bool
)

// errFilesFailed makes the process exit 1 after a batch in which at least
// one file could not be processed. The tally has already been printed.
var errFilesFailed = errors.New("one or more files failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errFilesFailed) {
			fmt.Fprintln(os.Stderr, ui.Error("Error: ")+err.Error())
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "signalstamp [input] [output]",
		Short: "Stamp Signal image exports with the capture date from their filename",
		Long: `signalstamp reads the timestamp Signal puts in exported image names
(signal-YYYY-MM-DD-HH-MM-SS-mmm.jpg), writes it into the EXIF
DateTimeOriginal, DateTimeDigitized and DateTime fields and moves the
file to the output directory.

Files whose name carries no valid timestamp, or that cannot be updated,
stay in the input directory and are counted as failed.

Examples:
  signalstamp                          # input/ -> output/ (or config values)
  signalstamp ~/Signal ~/Pictures/Signal
  signalstamp -i ~/Signal -o ~/Pictures --on-conflict rename
  signalstamp --dry-run`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				ui.DisableColors()
			}
		},
		RunE: runBatch,
	}

	// Add custom help function to show ASCII header
	originalHelpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd == rootCmd {
			printHeader(cmd.OutOrStdout(), version)
		}
		originalHelpFunc(cmd, args)
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/signalstamp/config.toml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "mirror log lines to stderr")
	rootCmd.PersistentFlags().BoolVarP(&dryRun, "dry-run", "n", false, "report what would be stamped and moved without writing")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	addBatchFlags(rootCmd)

	rootCmd.AddCommand(newInspectCmd())
	rootCmd.AddCommand(newWatchCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newHistoryCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func addBatchFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&inputDir, "input", "i", "", "input directory (overrides config input_dir)")
	cmd.Flags().StringVarP(&outputDir, "output", "o", "", "output directory (overrides config output_dir)")
	cmd.Flags().StringVar(&onConflict, "on-conflict", "", "when the output file exists: overwrite, fail, rename")
	cmd.Flags().StringVarP(&backendName, "backend", "b", "", "relocation backend: auto, rename, native")
	cmd.Flags().BoolVar(&checksum, "checksum", false, "verify copied bytes with SHA-256")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "do not record this run in the history database")
	cmd.Flags().BoolVar(&noActivity, "no-activity", false, "do not write the activity journal")
}

func runBatch(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd, args)
	if err != nil {
		return err
	}
	defer env.Close()

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	if env.cfg.Options.DryRun {
		ui.InfoMsg(out, "Dry run: nothing will be written")
	}

	summary, err := env.org.Run(ctx)
	if summary != nil {
		printSummary(out, summary)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return fmt.Errorf("interrupted: %w", err)
		}
		return err
	}
	if summary.Failed > 0 {
		return errFilesFailed
	}
	return nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			printHeader(cmd.OutOrStdout(), version)
		},
	}
}
