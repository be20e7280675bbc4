package main

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/filesweep/filesweep/internal/relocate"
	"github.com/filesweep/filesweep/internal/watch"
)

// newWatchCmd runs the inbox watcher: settled files landing in the inbox
// are relocated into the active destination, grouped under the inbox
// folder's name.
func newWatchCmd() *cobra.Command {
	var flagInbox string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch an inbox folder and relocate settled files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, closeApp, err := openApp()
			if err != nil {
				return err
			}
			defer closeApp()

			inbox := flagInbox
			if inbox == "" {
				inbox = app.cfg.Watch.Inbox
			}

			if inbox == "" {
				return errors.New("no inbox configured: pass --inbox or set watch.inbox in the config")
			}

			if app.registry.Active() == nil {
				return relocate.ErrNoDestination
			}

			relocateSettled := func(path, group string) error {
				file, err := relocate.FileFromPath(path)
				if err != nil {
					return err
				}

				target, err := app.engine.Relocate(file, group, nil)

				// A lingering original is a partial success; the watcher
				// will pick the leftover up again on the next settle.
				if errors.Is(err, relocate.ErrDeleteFailed) {
					statusf("Relocated %s -> %s (original not removed)\n", path, target)
					return nil
				}

				if err != nil {
					return err
				}

				statusf("Relocated %s -> %s\n", path, target)

				return nil
			}

			watcher, err := watch.New(inbox, app.cfg.Watch.SettleDuration(), relocateSettled, app.logger)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if err := watcher.Run(ctx); err != nil {
				return fmt.Errorf("watching %s: %w", inbox, err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&flagInbox, "inbox", "", "inbox directory to watch")

	return cmd
}
