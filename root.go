package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/filesweep/filesweep/internal/bookmark"
	"github.com/filesweep/filesweep/internal/config"
	"github.com/filesweep/filesweep/internal/registry"
	"github.com/filesweep/filesweep/internal/relocate"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
// Available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.Config

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "filesweep",
		Short:   "Triage files into cloud folders",
		Long:    "Relocate reviewed files into iCloud Drive, Google Drive, or any synced folder, safely and without losing access across launches.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newDestinationCmd())
	cmd.AddCommand(newRelocateCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newWatchCmd())

	return cmd
}

// loadConfig resolves the config path (flag wins over default) and loads
// the effective configuration.
func loadConfig() error {
	path := flagConfigPath
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = cfg

	return nil
}

// buildLogger creates an slog.Logger configured by the resolved config and
// CLI flags. Config-file log level provides the baseline; --verbose and
// --quiet override it because CLI flags always win. The handler format is
// text on a terminal and JSON otherwise, unless the config pins one.
func buildLogger() *slog.Logger {
	level := slog.LevelInfo

	format := ""

	if resolvedCfg != nil {
		switch resolvedCfg.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}

		format = resolvedCfg.Logging.LogFormat
	}

	if flagVerbose {
		level = slog.LevelDebug
	}

	if flagQuiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	useJSON := format == "json" ||
		(format == "" && !isatty.IsTerminal(os.Stderr.Fd()))

	if useJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// appContext bundles the constructed service objects a command needs.
// The close function must be deferred; it releases the registry database.
type appContext struct {
	cfg      *config.Config
	logger   *slog.Logger
	tokens   bookmark.Store
	registry *registry.Registry
	engine   *relocate.Engine
}

// openApp constructs the service graph: token store, registry store,
// loaded registry, and relocation engine. Everything is wired here once
// and passed by reference — no ambient singletons.
func openApp() (*appContext, func(), error) {
	logger := buildLogger()

	dbPath, err := config.ResolveDBPath(resolvedCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving registry path: %w", err)
	}

	store, err := registry.OpenStore(dbPath, logger)
	if err != nil {
		return nil, nil, err
	}

	tokens := bookmark.NewFileStore(logger)

	reg := registry.New(store, tokens, logger)
	if err := reg.Load(); err != nil {
		store.Close()
		return nil, nil, err
	}

	app := &appContext{
		cfg:      resolvedCfg,
		logger:   logger,
		tokens:   tokens,
		registry: reg,
		engine:   relocate.NewEngine(reg, tokens, resolvedCfg.AppFolder, logger),
	}

	return app, func() { _ = store.Close() }, nil
}
