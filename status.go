package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/filesweep/filesweep/internal/registry"
)

// statusProbeParallelism bounds the concurrent destination probes. Probes
// are independent read-only stats, so a small pool is plenty.
const statusProbeParallelism = 4

// destinationStatus is the probe result for one destination.
type destinationStatus struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	Provider  string `json:"provider"`
	Active    bool   `json:"active"`
	Reachable bool   `json:"reachable"`
	Writable  bool   `json:"writable"`
}

// newStatusCmd probes every registered destination for reachability and
// writability. Probes run concurrently; results print in registry order.
// The probe is read-only — no token healing writes happen here.
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check every registered destination",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			app, closeApp, err := openApp()
			if err != nil {
				return err
			}
			defer closeApp()

			dests := app.registry.Destinations()
			active := app.registry.Active()

			results := make([]destinationStatus, len(dests))

			var g errgroup.Group
			g.SetLimit(statusProbeParallelism)

			for i, d := range dests {
				g.Go(func() error {
					results[i] = probeDestination(app, d, active)
					return nil
				})
			}

			// Probes never return errors; the group is for bounding and joining.
			_ = g.Wait()

			if flagJSON {
				return json.NewEncoder(os.Stdout).Encode(results)
			}

			for _, r := range results {
				state := "unreachable"
				if r.Reachable {
					state = "read-only"
				}

				if r.Writable {
					state = "ok"
				}

				marker := " "
				if r.Active {
					marker = "*"
				}

				fmt.Printf("%s %-12s %-20s  %s\n", marker, state, r.Name, r.Path)
			}

			return nil
		},
	}
}

// probeDestination checks one destination without mutating registry state:
// the stored path must exist as a directory, and writability is confirmed
// by creating or confirming the application folder inside it.
func probeDestination(app *appContext, d *registry.Destination, active *registry.Destination) destinationStatus {
	st := destinationStatus{
		ID:       d.ID,
		Name:     d.DisplayName(),
		Path:     d.Path,
		Provider: d.Provider.String(),
		Active:   active != nil && active.ID == d.ID,
	}

	info, err := os.Stat(d.Path)
	if err != nil || !info.IsDir() {
		return st
	}

	st.Reachable = true
	st.Writable = app.registry.ValidateWritable(d.Path, app.cfg.AppFolder) == nil

	return st
}
