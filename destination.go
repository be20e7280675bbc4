package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/filesweep/filesweep/internal/provider"
	"github.com/filesweep/filesweep/internal/registry"
)

// newDestinationCmd groups destination management subcommands.
func newDestinationCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "destination",
		Short: "Manage registered cloud destinations",
	}

	cmd.AddCommand(newDestinationAddCmd())
	cmd.AddCommand(newDestinationListCmd())
	cmd.AddCommand(newDestinationRemoveCmd())
	cmd.AddCommand(newDestinationUseCmd())

	return cmd
}

func newDestinationAddCmd() *cobra.Command {
	var flagName string

	cmd := &cobra.Command{
		Use:   "add PATH",
		Short: "Register a cloud folder as a destination",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			app, closeApp, err := openApp()
			if err != nil {
				return err
			}
			defer closeApp()

			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("resolving %s: %w", args[0], err)
			}

			p, ok := provider.Classify(path)
			if !ok {
				return fmt.Errorf("%w: %s", registry.ErrNotACloudDirectory, path)
			}

			canonical := provider.Canonicalize(path, p)

			if err := app.registry.ValidateWritable(canonical, app.cfg.AppFolder); err != nil {
				return err
			}

			name := flagName
			if name == "" {
				name = filepath.Base(canonical)
			}

			d, err := app.registry.Add(name, canonical, p)
			if err != nil {
				return err
			}

			statusf("Registered %s (%s) as %s\n", d.DisplayName(), d.Provider, d.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&flagName, "name", "", "destination display name (default: folder name)")

	return cmd
}

func newDestinationListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered destinations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			app, closeApp, err := openApp()
			if err != nil {
				return err
			}
			defer closeApp()

			active := app.registry.Active()

			if flagJSON {
				type row struct {
					ID       string `json:"id"`
					Name     string `json:"name"`
					Path     string `json:"path"`
					Provider string `json:"provider"`
					Icon     string `json:"icon"`
					Active   bool   `json:"active"`
				}

				rows := make([]row, 0, len(app.registry.Destinations()))
				for _, d := range app.registry.Destinations() {
					rows = append(rows, row{
						ID:       d.ID,
						Name:     d.DisplayName(),
						Path:     d.Path,
						Provider: d.Provider.String(),
						Icon:     d.Provider.Icon(),
						Active:   active != nil && active.ID == d.ID,
					})
				}

				return json.NewEncoder(os.Stdout).Encode(rows)
			}

			for _, d := range app.registry.Destinations() {
				marker := " "
				if active != nil && active.ID == d.ID {
					marker = "*"
				}

				fmt.Printf("%s %-36s  %-20s  %s\n", marker, d.ID, d.DisplayName(), d.Path)
			}

			return nil
		},
	}
}

func newDestinationRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Remove a registered destination",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			app, closeApp, err := openApp()
			if err != nil {
				return err
			}
			defer closeApp()

			if app.registry.Get(args[0]) == nil {
				return fmt.Errorf("no destination with id %s", args[0])
			}

			if err := app.registry.Remove(args[0]); err != nil {
				return err
			}

			statusf("Removed %s\n", args[0])

			return nil
		},
	}
}

func newDestinationUseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "use ID",
		Short: "Make a destination the active relocation target",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			app, closeApp, err := openApp()
			if err != nil {
				return err
			}
			defer closeApp()

			if d := app.registry.Get(args[0]); d == nil {
				return fmt.Errorf("no destination with id %s", args[0])
			}

			if err := app.registry.SetActive(args[0]); err != nil {
				return err
			}

			statusf("Active destination is now %s\n", args[0])

			return nil
		},
	}
}
