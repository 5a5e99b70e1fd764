package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/querybinder/internal/catalog"
	"github.com/leapstack-labs/querybinder/internal/cli/config"
	"github.com/leapstack-labs/querybinder/internal/cli/output"
	"github.com/leapstack-labs/querybinder/internal/loader"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Loader   *loader.Loader
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext from the loaded configuration.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Loader:   loader.New(logger, cfg.Concurrency),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg.Color),
	}
}

// ResolveFiles returns the files named in args, or every .sql file under
// the configured queries directory when args is empty.
func (c *CommandContext) ResolveFiles(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if err := c.Cfg.ValidateDirectories(); err != nil {
		return nil, err
	}
	files, err := loader.Discover(c.Cfg.QueriesDir)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("discovered files", "dir", c.Cfg.QueriesDir, "count", len(files))
	return files, nil
}

// Load resolves and parses the files for args.
func (c *CommandContext) Load(ctx context.Context, args []string) ([]*loader.Result, error) {
	files, err := c.ResolveFiles(args)
	if err != nil {
		return nil, err
	}
	return c.Loader.LoadFiles(ctx, files)
}

// OpenCatalog opens the catalog database and applies migrations.
// The caller must close the returned store.
func (c *CommandContext) OpenCatalog() (*catalog.Store, error) {
	path := c.Cfg.CatalogPath
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, fmt.Errorf("failed to create catalog directory: %w", err)
			}
		}
	}

	store := catalog.NewStore(c.Logger)
	if err := store.Open(path); err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

// reportFailures prints the diagnostic of every failed result to stderr
// and returns the number of failures.
func (c *CommandContext) reportFailures(results []*loader.Result) int {
	failed := 0
	for _, res := range results {
		if res.OK() {
			continue
		}
		failed++
		if err := res.Report(c.Renderer.ErrOut()); err != nil {
			c.Logger.Warn("failed to print diagnostic", "file", res.File, "error", err)
		}
	}
	return failed
}

// getConfig returns the current configuration, or the defaults when no
// configuration was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}
