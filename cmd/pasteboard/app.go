package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/insanj/TodoFast/pkg/archive"
	"github.com/insanj/TodoFast/pkg/config"
	"github.com/insanj/TodoFast/pkg/exchange"
	"github.com/insanj/TodoFast/pkg/launch"
	"github.com/insanj/TodoFast/pkg/observability"
	"github.com/insanj/TodoFast/pkg/slotstore"
)

// app is everything a command needs, built from the config in the same
// order every time: config, logger, store, launcher, channel.
type app struct {
	cfg   *config.Config
	log   *zap.Logger
	store slotstore.Store
	ch    *exchange.Channel
}

type opener func(cmd *cobra.Command) (*app, error)

func openApp(cmd *cobra.Command, configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	logger = logger.Named(cfg.AppName)
	logger.Debug("effective configuration", zap.Any("config", cfg))

	store, err := openStore(cmd.Context(), cfg.Store, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	a := &app{cfg: cfg, log: logger, store: store}

	launcher, err := launch.NewCommand(cfg.Launch.Handlers, logger)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}
	format, err := archive.ParseFormat(cfg.Exchange.Format)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}
	stderr := cmd.ErrOrStderr()
	a.ch, err = exchange.New(store, launcher,
		exchange.WithLogger(logger),
		exchange.WithShowErrorAlerts(cfg.Exchange.ShowErrorAlerts),
		exchange.WithPrompter(exchange.PrompterFunc(func(_ context.Context, h exchange.HostApp) {
			fmt.Fprintf(stderr, "%s is not installed. Get it from %s\n", h.Name, h.StoreURL)
		})),
		exchange.WithSlotTTL(cfg.Exchange.SlotTTL),
		exchange.WithProducer(cfg.Producer.AppID),
		exchange.WithDefaultSlots(cfg.Exchange.TaskSlot, cfg.Exchange.NoteSlot),
		exchange.WithFormat(format),
	)
	if err != nil {
		return nil, errors.Join(err, a.Close())
	}
	return a, nil
}

func openStore(ctx context.Context, c config.StoreConfig, log *zap.Logger) (slotstore.Store, error) {
	switch c.Kind {
	case "memory":
		return slotstore.NewMemory(slotstore.MemoryOptions{MaxBytes: c.MaxBytes}), nil
	case "sqlite":
		s, err := slotstore.OpenSQLite(c.Path)
		if err != nil {
			return nil, fmt.Errorf("open slot store: %w", err)
		}
		if n, err := s.Sweep(ctx); err != nil {
			log.Warn("sweep expired slots", zap.Error(err))
		} else if n > 0 {
			log.Debug("swept expired slots", zap.Int64("count", n))
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", c.Kind)
	}
}

func (a *app) Close() error {
	err := a.store.Close()
	_ = a.log.Sync()
	return err
}
