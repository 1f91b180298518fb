package main

import (
	"fmt"
	"log/slog"
	"strings"

	sdk "github.com/di2ag/chp-sdk"
	"github.com/di2ag/chp-sdk/config"
	"github.com/di2ag/chp-sdk/registry"
	"github.com/spf13/cobra"
)

// app holds the state shared by every subcommand.
type app struct {
	configPath string
	reasonerID string
	logLevel   string
	caching    bool

	cfg    *config.Config
	logger *slog.Logger

	// newRegistry connects to reasoner discovery.
	newRegistry func(cfg *config.Config, logger *slog.Logger) (registry.Registry, error)
}

func newRootCmd(opts ...func(*app)) *cobra.Command {
	a := &app{newRegistry: connectRegistry}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:          "chp",
		Short:        "Build and send queries to a Connections Hypothesis Provider",
		Long:         "chp builds TRAPI query graphs for the CHP reasoner, sends them and reads the answers.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "path to chp.yaml or a directory containing it")
	flags.StringVarP(&a.reasonerID, "reasoner", "r", "", "reasoner id (default from config)")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	flags.BoolVar(&a.caching, "cache", false, "cache responses with the configured backend")

	root.AddCommand(
		newBuildCmd(a),
		newQueryCmd(a),
		newCuriesCmd(a),
		newPredicatesCmd(a),
		newHealthCmd(a),
		newRegistryCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg.ApplyEnv()
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	a.cfg = cfg

	level := a.logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
	return nil
}

// client creates an SDK client for the selected reasoner.
func (a *app) client() (*sdk.Client, error) {
	c, err := sdk.GetClient(a.cfg, a.reasonerID, sdk.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	if a.caching {
		if err := c.SetCaching(); err != nil {
			sdk.CloseWithLog(c, a.logger, "chp client")
			return nil, err
		}
	}
	return c, nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}
