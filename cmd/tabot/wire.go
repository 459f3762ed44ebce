package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/tabot/config"
	"github.com/alejandrodnm/tabot/internal/adapters/library"
	"github.com/alejandrodnm/tabot/internal/adapters/storage"
	"github.com/alejandrodnm/tabot/internal/adapters/weather"
	"github.com/alejandrodnm/tabot/internal/application/orchestrator"
	"github.com/alejandrodnm/tabot/internal/application/play"
	"github.com/alejandrodnm/tabot/internal/ports"
	"github.com/alejandrodnm/tabot/internal/strategy"
)

// loadLibrary reads the play library and resolves it against the built-in
// states and every registered signal.
func loadLibrary(ctx context.Context, cfg *config.Config) (*orchestrator.Library, error) {
	doc, err := library.NewFile(cfg.Library.Path).Load(ctx)
	if err != nil {
		return nil, err
	}
	reg := play.NewRegistry()
	strategy.Register(reg)

	lib, err := orchestrator.NewLibrary(doc, reg)
	if err != nil {
		return nil, fmt.Errorf("library %q: %w", cfg.Library.Path, err)
	}
	return lib, nil
}

func openStore(ctx context.Context, cfg config.TelemetryConfig) (ports.ResultStore, error) {
	switch cfg.Driver {
	case "postgres":
		return storage.NewPostgresStorage(ctx, cfg.DSN, cfg.MaxConns)
	default:
		return storage.NewSQLiteStorage(cfg.DSN)
	}
}

// newWeather builds the condition reader. The returned closer is never nil.
func newWeather(ctx context.Context, cfg config.WeatherConfig, clock ports.TimeSource) (ports.ConditionReader, func(), error) {
	noop := func() {}
	switch cfg.Source {
	case "schedule":
		f, err := weather.LoadSchedule(cfg.ScheduleFile)
		if err != nil {
			return nil, noop, err
		}
		return weather.NewSchedule(clock, f), noop, nil
	case "redis":
		rdb, err := weather.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			return nil, noop, err
		}
		closer := func() {
			if err := rdb.Close(); err != nil {
				slog.Warn("redis close failed", "err", err)
			}
		}
		return weather.NewRedis(rdb, cfg.RedisKey), closer, nil
	default:
		return weather.NewStatic(cfg.Static), noop, nil
	}
}
