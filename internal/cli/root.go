package cli

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/Jerry0022/PYCO/internal/app"
	"github.com/Jerry0022/PYCO/internal/article"
	"github.com/Jerry0022/PYCO/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigPath string
	Database   string

	// IDGenerator overrides article identifiers (for testing).
	// If nil, defaults to article.UUIDv7Generator.
	IDGenerator article.IDGenerator

	// Now overrides the clock (for testing). If nil, defaults to time.Now.
	Now func() time.Time
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the pyco CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pyco",
		Short: "PYCO - articles kept in a local document store",
		Long: `Manage articles in a local document store and replicate them with a
remote peer.

The store is a SQLite file. Articles are kept in storage order; edits made
here are pushed to the configured replication endpoint by "pyco replicate".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			setupLogging(cmd, opts.Verbose)
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file (.yaml, .yml or .cue)")
	cmd.PersistentFlags().StringVar(&opts.Database, "db", "", "path to the SQLite store (overrides store.path)")

	cmd.AddCommand(NewArticleCommand(opts))
	cmd.AddCommand(NewIndexCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewResetCommand(opts))
	cmd.AddCommand(NewReplicateCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// setupLogging installs a text handler on the command's stderr. Debug
// output is enabled by --verbose.
func setupLogging(cmd *cobra.Command, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// loadConfig reads --config (or the defaults) and applies --db.
func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg := config.Default()
	if o.ConfigPath != "" {
		loaded, err := config.Load(o.ConfigPath)
		if err != nil {
			return config.Config{}, WrapExitError(ExitCommandError, "failed to load configuration", err)
		}
		cfg = loaded
	}
	if o.Database != "" {
		cfg.Store.Path = o.Database
	}
	return cfg, nil
}

// openApp loads the configuration and opens the store it names.
func (o *RootOptions) openApp() (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.Open(cfg, slog.Default())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}
	return a, nil
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

func (o *RootOptions) idGenerator() article.IDGenerator {
	if o.IDGenerator != nil {
		return o.IDGenerator
	}
	return article.UUIDv7Generator{}
}

func (o *RootOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// closeApp closes a, logging instead of failing: the command's own result has
// already been written.
func closeApp(a *app.App) {
	if err := a.Close(); err != nil {
		slog.Error("error closing store", "error", err)
	}
}
