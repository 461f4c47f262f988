package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Nomadcxx/signalstamp/internal/organizer"
	"github.com/Nomadcxx/signalstamp/internal/ui"
	"github.com/Nomadcxx/signalstamp/internal/watcher"
)

func newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [input] [output]",
		Short: "Process the input directory, then keep processing new files",
		Long: `Run one batch over the input directory, then watch it and stamp every
new .jpg once it has stopped changing for the configured debounce
interval (watch.debounce, default 2s). Stop with Ctrl+C.

Examples:
  signalstamp watch ~/Signal ~/Pictures/Signal`,
		Args: cobra.MaximumNArgs(2),
		RunE: runWatch,
	}

	addBatchFlags(cmd)

	return cmd
}

// sessionHandler feeds settled files from the watcher into one organizer
// session.
type sessionHandler struct {
	org     *organizer.Organizer
	session *organizer.Session
}

func (h *sessionHandler) Accepts(name string) bool {
	return h.org.Accepts(name)
}

func (h *sessionHandler) HandleFile(name string) {
	h.session.Process(name)
}

func runWatch(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd, args)
	if err != nil {
		return err
	}
	defer env.Close()

	debounce, err := env.cfg.DebounceDuration()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()

	initial, err := env.org.Run(ctx)
	if initial != nil && initial.Succeeded+initial.Failed > 0 {
		printSummary(out, initial)
	}
	if err != nil {
		if errors.Is(err, ctx.Err()) {
			return nil
		}
		return err
	}

	handler := &sessionHandler{org: env.org, session: env.org.NewSession()}
	w, err := watcher.NewWatcher(handler, watcher.WithDebounce(debounce), watcher.WithLogger(env.logger))
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Watch(env.cfg.InputDir); err != nil {
		return err
	}

	ui.InfoMsg(out, "Watching %s (Ctrl+C to stop)", ui.Path(env.cfg.InputDir))
	watchErr := w.Start(ctx)

	summary := handler.session.Close()
	printSummary(out, summary)

	if watchErr != nil {
		return fmt.Errorf("watcher stopped: %w", watchErr)
	}
	if summary.Failed > 0 || initial.Failed > 0 {
		return errFilesFailed
	}
	return nil
}
