package service

import (
	"context"
	"time"

	"github.com/smallbiznis/orderdesk/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type SweeperConfig struct {
	Interval    time.Duration
	IdleTimeout time.Duration
}

func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		Interval:    time.Minute,
		IdleTimeout: 2 * time.Hour,
	}
}

func (c SweeperConfig) withDefaults() SweeperConfig {
	defaults := DefaultSweeperConfig()
	if c.Interval <= 0 {
		c.Interval = defaults.Interval
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = defaults.IdleTimeout
	}
	return c
}

// RunSweeper discards idle sessions every interval until ctx is done.
func RunSweeper(ctx context.Context, store *SessionStore, cfg SweeperConfig) {
	cfg = cfg.withDefaults()
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			store.Sweep(cfg.IdleTimeout)
		}
	}
}

func StartSweeper(lc fx.Lifecycle, cfg config.Config, store *SessionStore, log *zap.Logger) {
	sweeperCfg := SweeperConfig{
		Interval:    cfg.SessionSweepInterval,
		IdleTimeout: cfg.SessionIdleTimeout,
	}.withDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				RunSweeper(ctx, store, sweeperCfg)
			}()
			log.Info("session sweeper started",
				zap.Duration("interval", sweeperCfg.Interval),
				zap.Duration("idle_timeout", sweeperCfg.IdleTimeout),
			)
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				log.Info("session sweeper stopped")
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}
