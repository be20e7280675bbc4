package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filesweep/filesweep/internal/registry"
	"github.com/filesweep/filesweep/internal/relocate"
)

// newRelocateCmd moves files into a destination's organized subtree.
// Files are processed sequentially — relocations into one destination are
// single-writer by design.
func newRelocateCmd() *cobra.Command {
	var (
		flagGroup string
		flagDest  string
	)

	cmd := &cobra.Command{
		Use:   "relocate FILE...",
		Short: "Move files into the active cloud destination",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			app, closeApp, err := openApp()
			if err != nil {
				return err
			}
			defer closeApp()

			var dest *registry.Destination

			if flagDest != "" {
				dest = app.registry.Get(flagDest)
				if dest == nil {
					return fmt.Errorf("no destination with id %s", flagDest)
				}
			}

			for _, arg := range args {
				file, err := relocate.FileFromPath(arg)
				if err != nil {
					return err
				}

				target, err := app.engine.Relocate(file, flagGroup, dest)

				// Delete failure is a partial success: the copy is in
				// place, only the original lingers. Report and continue.
				if errors.Is(err, relocate.ErrDeleteFailed) {
					statusf("Relocated %s -> %s (original not removed: %v)\n", arg, target, err)
					continue
				}

				if err != nil {
					return err
				}

				statusf("Relocated %s -> %s (%s)\n", arg, target, formatSize(file.Size))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&flagGroup, "group", "", "grouping subfolder label (default: Unsorted)")
	cmd.Flags().StringVar(&flagDest, "dest", "", "destination id (default: active destination)")

	return cmd
}
