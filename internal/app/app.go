package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/five82/teedee/internal/config"
	"github.com/five82/teedee/internal/logging"
	"github.com/five82/teedee/internal/prefs"
	"github.com/five82/teedee/internal/state"
	"github.com/five82/teedee/internal/todoapi"
	"github.com/five82/teedee/internal/ui"
)

// Options configure the teedee application. Non-zero fields override the
// config file.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/teedee/prefs.toml
	BaseURL    string
	PollEvery  int // seconds; negative disables polling, zero uses config
	LogLevel   string
}

// Run boots the teedee TUI until the user quits or the context is cancelled.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = applyOverrides(cfg, opts)

	logger, closer, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Path:   cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer closer.Close()

	store, client, err := build(cfg, logger)
	if err != nil {
		return err
	}
	logger.Info("starting", "base_url", client.BaseURL(), "poll", cfg.PollInterval)

	if cfg.PollInterval > 0 {
		StartPoller(ctx, store, cfg.PollInterval)
	}

	return ui.Run(ui.Options{
		Context:   ctx,
		Store:     store,
		Logger:    logger,
		BaseURL:   client.BaseURL(),
		Prefs:     prefs.Load(opts.PrefsPath),
		PrefsPath: opts.PrefsPath,
		LogPath:   cfg.LogFile,
	})
}

// build wires the client and store for cfg. The store starts in its loading
// state; the UI performs the first Refresh.
func build(cfg config.Config, logger *log.Logger) (*state.Store, *todoapi.Client, error) {
	client, err := todoapi.NewClient(cfg.BaseURL,
		todoapi.WithTimeout(cfg.Timeout),
		todoapi.WithLogger(logger.WithPrefix("todoapi")),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("init todo client: %w", err)
	}
	store := state.New(client, state.WithLogger(logger.WithPrefix("store")))
	return store, client, nil
}

func applyOverrides(cfg config.Config, opts Options) config.Config {
	if v := strings.TrimSpace(opts.BaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(opts.LogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}
	switch {
	case opts.PollEvery > 0:
		cfg.PollInterval = time.Duration(opts.PollEvery) * time.Second
	case opts.PollEvery < 0:
		cfg.PollInterval = 0
	}
	return cfg
}
