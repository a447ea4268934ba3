package commands

import (
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/leapcalc/internal/cli/config"
	"github.com/leapstack-labs/leapcalc/internal/cli/output"
	"github.com/leapstack-labs/leapcalc/internal/engine"
	"github.com/leapstack-labs/leapcalc/internal/history"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Engine   *engine.Engine
	Renderer *output.Renderer
}

// NewCommandContext creates a CommandContext with an engine and renderer.
// The history store is opened when history is enabled in the config.
// Returns the context and a cleanup function that must be called (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	return newCommandContext(cmd, cfg, cfg.History.Enabled)
}

// NewCommandContextWithHistory is like NewCommandContext but always opens
// the history store, for commands that read history.
func NewCommandContextWithHistory(cmd *cobra.Command) (*CommandContext, func(), error) {
	return newCommandContext(cmd, getConfig(), true)
}

func newCommandContext(cmd *cobra.Command, cfg *config.Config, withHistory bool) (*CommandContext, func(), error) {
	logger := config.GetLogger(cmd.Context())

	var store history.Store
	if withHistory {
		s, err := history.Open(cmd.Context(), cfg.History.Driver, cfg.History.DSN, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open history: %w", err)
		}
		store = s
	}

	eng := engine.New(engine.Config{
		RadixPrefixes:  cfg.Lexer.RadixPrefixes,
		MaxDepth:       cfg.Eval.MaxDepth,
		MaxInputLength: cfg.Eval.MaxInputLength,
		History:        store,
		Logger:         logger,
	})

	mode := output.ParseMode(cfg.OutputFormat)
	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)

	cleanup := func() {
		if err := eng.Close(); err != nil {
			logger.Warn("failed to close history", "error", err)
		}
	}

	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Engine:   eng,
		Renderer: r,
	}, cleanup, nil
}

// getConfig returns the current configuration, or defaults when none was
// loaded (commands constructed directly in tests).
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}
