package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"eta/internal/catalog"
	"eta/internal/config"
	"eta/internal/logging"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	sessionID  string
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		verbose:    verbose,
		sessionID:  uuid.NewString(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.verbose != nil && *c.verbose {
			cfg.Logging.Level = "debug"
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// loggerFor returns the session logger tagged with the running command.
// Logging setup failures fall back to the no-op logger so they never block
// a command.
func (c *commandContext) loggerFor(cmd *cobra.Command) *slog.Logger {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		// Without explicit outputs the CLI keeps the terminal for command
		// output and only mirrors logs to stderr in verbose mode.
		logCfg := *cfg
		if len(logCfg.Logging.OutputPaths) == 0 && (c.verbose == nil || !*c.verbose) {
			logCfg.Logging.OutputPaths = []string{filepath.Join(cfg.Paths.LogDir, logging.LogFileName)}
		}
		logger, err := logging.NewFromConfig(&logCfg, c.sessionID)
		if err != nil {
			c.logger = logging.NewNop()
			return
		}
		c.logger = logger
	})
	if cmd == nil {
		return c.logger
	}
	return logging.WithContext(commandContextFor(cmd), c.logger)
}

func commandContextFor(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return logging.ContextWithCommand(ctx, cmd.CommandPath())
}

func (c *commandContext) openCatalog(cmd *cobra.Command) (*catalog.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return catalog.Open(cfg, catalog.WithLogger(c.loggerFor(cmd)))
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
