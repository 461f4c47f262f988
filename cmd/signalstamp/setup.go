package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/signalstamp/internal/activity"
	"github.com/Nomadcxx/signalstamp/internal/config"
	"github.com/Nomadcxx/signalstamp/internal/database"
	"github.com/Nomadcxx/signalstamp/internal/logging"
	"github.com/Nomadcxx/signalstamp/internal/organizer"
	"github.com/Nomadcxx/signalstamp/internal/paths"
	"github.com/Nomadcxx/signalstamp/internal/ui"
)

// runEnv holds everything a batch or watch command opened.
type runEnv struct {
	cfg     *config.Config
	logger  *logging.Logger
	org     *organizer.Organizer
	history *database.HistoryDB
	journal *activity.Logger
}

func (e *runEnv) Close() {
	if e.journal != nil {
		e.journal.Close()
	}
	if e.history != nil {
		e.history.Close()
	}
	if e.logger != nil {
		e.logger.Close()
	}
}

// resolveConfig applies, in increasing priority, defaults, the config file,
// SIGNALSTAMP_* environment variables, flags and positional arguments.
func resolveConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.InputDir = inputDir
	}
	if flags.Changed("output") {
		cfg.OutputDir = outputDir
	}
	if len(args) > 0 {
		cfg.InputDir = args[0]
	}
	if len(args) > 1 {
		cfg.OutputDir = args[1]
	}
	if flags.Changed("dry-run") {
		cfg.Options.DryRun = dryRun
	}
	if flags.Changed("on-conflict") {
		cfg.Options.OnConflict = onConflict
	}
	if flags.Changed("backend") {
		cfg.Options.Backend = backendName
	}
	if flags.Changed("checksum") {
		cfg.Options.Checksum = checksum
	}
	if noHistory {
		cfg.History.Enabled = false
	}
	if noActivity {
		cfg.Activity.Enabled = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger opens the log file. When that fails the run continues with
// stderr logging only.
func newLogger(cfg *config.Config, stderr io.Writer) *logging.Logger {
	lc := cfg.Logging
	if verbose {
		lc.Console = stderr
	}

	logger, err := logging.New(lc)
	if err != nil {
		ui.WarningMsg(stderr, "Logging to file disabled: %v", err)
		if verbose {
			return logging.NewWriter(stderr, lc.Level)
		}
		return logging.NewWriter(stderr, "warn")
	}
	return logger
}

func setup(cmd *cobra.Command, args []string) (*runEnv, error) {
	cfg, err := resolveConfig(cmd, args)
	if err != nil {
		return nil, err
	}

	env := &runEnv{cfg: cfg, logger: newLogger(cfg, cmd.ErrOrStderr())}

	if cfg.History.Enabled {
		env.history, err = openHistory(cfg)
		if err != nil {
			env.logger.Warn("history", "History disabled", logging.F("error", err))
		}
	}

	if cfg.Activity.Enabled {
		env.journal, err = openActivity(cfg, env.logger)
		if err != nil {
			env.logger.Warn("activity", "Activity journal disabled", logging.F("error", err))
		}
	}

	policy, _ := cfg.ConflictPolicy()
	backend, _ := cfg.Backend()

	options := []func(*organizer.Organizer){
		organizer.WithDryRun(cfg.Options.DryRun),
		organizer.WithConflictPolicy(policy),
		organizer.WithBackend(backend),
		organizer.WithTransferOptions(cfg.TransferOptions()),
		organizer.WithLogger(env.logger),
		organizer.WithProgress(progressPrinter(cmd.OutOrStdout())),
	}
	if env.history != nil {
		options = append(options, organizer.WithHistory(env.history))
	}
	if env.journal != nil {
		options = append(options, organizer.WithActivity(env.journal))
	}

	env.org = organizer.NewOrganizer(cfg.InputDir, cfg.OutputDir, options...)
	return env, nil
}

func openHistory(cfg *config.Config) (*database.HistoryDB, error) {
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	return database.OpenPath(path)
}

func openActivity(cfg *config.Config, logger *logging.Logger) (*activity.Logger, error) {
	dir, err := paths.AppDir()
	if err != nil {
		return nil, err
	}
	journal, err := activity.NewLogger(dir)
	if err != nil {
		return nil, err
	}
	if err := journal.PruneOld(cfg.Activity.RetentionDays); err != nil {
		logger.Warn("activity", "Failed to prune old journal files", logging.F("error", err))
	}
	return journal, nil
}
