package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/signalstamp/internal/config"
	"github.com/Nomadcxx/signalstamp/internal/ui"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage signalstamp configuration",
		Long: `Commands for managing signalstamp configuration.

The config file is stored at: ~/.config/signalstamp/config.toml
Every key can be overridden with an environment variable, e.g.
SIGNALSTAMP_INPUT_DIR or SIGNALSTAMP_OPTIONS_ON_CONFLICT.

Examples:
  signalstamp config init              # Create default config file
  signalstamp config show              # Display effective configuration
  signalstamp config path              # Show config file path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func configFilePath() (string, error) {
	if cfgFile != "" {
		return cfgFile, nil
	}
	return config.ConfigPath()
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			}

			if err := config.DefaultConfig().Save(path); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			out := cmd.OutOrStdout()
			ui.SuccessMsg(out, "Created config file: %s", path)
			fmt.Fprintln(out, "\nNext steps:")
			fmt.Fprintln(out, "  1. Set input_dir and output_dir")
			fmt.Fprintln(out, "  2. Run 'signalstamp config show' to review settings")
			fmt.Fprintln(out, "  3. Run 'signalstamp --dry-run' to preview a batch")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing config file")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Display effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if cfgFile == "" && !config.ConfigExists() {
				ui.InfoMsg(cmd.ErrOrStderr(), "No config file found, showing defaults (run 'signalstamp config init')")
			}
			fmt.Fprint(cmd.OutOrStdout(), cfg.ToTOML())
			if err := cfg.Validate(); err != nil {
				ui.WarningMsg(cmd.ErrOrStderr(), "%v", err)
			}
			return nil
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Show config file path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configFilePath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
