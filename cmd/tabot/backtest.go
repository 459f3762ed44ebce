package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/alejandrodnm/tabot/internal/adapters/broker"
	"github.com/alejandrodnm/tabot/internal/adapters/marketdata"
	"github.com/alejandrodnm/tabot/internal/adapters/notify"
	"github.com/alejandrodnm/tabot/internal/adapters/telemetry"
	"github.com/alejandrodnm/tabot/internal/application/orchestrator"
	"github.com/alejandrodnm/tabot/internal/clock"
	"github.com/alejandrodnm/tabot/internal/domain"
)

var printReport bool

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay historical bars through the play library and record every instance result",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.RunType() != domain.RunBacktest {
			return fmt.Errorf("run type %q: %w", cfg.Run.Type, clock.ErrRealtimeUnsupported)
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		lib, err := loadLibrary(ctx, cfg)
		if err != nil {
			return err
		}

		bars, err := marketdata.LoadCSVDir(cfg.Data.BarsDir, lib.UniqueSymbols())
		if err != nil {
			return err
		}
		feed := marketdata.NewFeed()
		for sym, b := range bars {
			feed.Add(sym, b)
		}
		clk := clock.NewBacktest(cfg.Interval(), cfg.Clock.PaddingIntervals, feed)
		feed.BindClock(clk)

		cond, closeWeather, err := newWeather(ctx, cfg.Weather, clk)
		if err != nil {
			return err
		}
		defer closeWeather()

		store, err := openStore(ctx, cfg.Telemetry)
		if err != nil {
			return err
		}
		defer store.Close()

		bus := telemetry.NewBus()
		if err := telemetry.AttachLogger(bus, slog.Default()); err != nil {
			return err
		}
		rec := telemetry.NewRecorder(store, cfg.Telemetry.BatchSize)
		if err := rec.Attach(bus); err != nil {
			return err
		}

		orch, err := orchestrator.New(ctx, orchestrator.Deps{
			Library:   lib,
			Clock:     clk,
			Broker:    broker.NewLimited(broker.NewPaper(feed, clk), cfg.Broker.RatePerSec, cfg.Broker.Burst),
			Market:    feed,
			Weather:   cond,
			Telemetry: bus,
			RunType:   domain.RunBacktest,
		})
		if err != nil {
			return err
		}

		slog.Info("tabot backtest starting",
			"config", configPath,
			"library", cfg.Library.Path,
			"symbols", len(lib.UniqueSymbols()),
			"interval", cfg.Interval(),
			"run_id", orch.RunID(),
		)
		start := time.Now()
		runErr := orch.RunBacktest(ctx)

		// Results already emitted must reach the store even when the run failed.
		bus.Wait()
		flushCtx := context.WithoutCancel(ctx)
		if err := rec.Close(flushCtx); err != nil {
			slog.Error("telemetry flush failed", "err", err)
			if runErr == nil {
				runErr = err
			}
		}
		if runErr != nil {
			return fmt.Errorf("backtest: %w", runErr)
		}

		slog.Info("tabot backtest finished",
			"run_id", orch.RunID(),
			"ticks", orch.Ticks(),
			"gain", orch.Gain(),
			"duration", time.Since(start).Round(time.Millisecond),
		)

		if !printReport {
			return nil
		}
		results, err := store.InstanceResults(flushCtx, orch.RunID())
		if err != nil {
			return err
		}
		return notify.NewConsole().Report(flushCtx, orch.RunID(), results)
	},
}

func init() {
	backtestCmd.Flags().BoolVar(&printReport, "report", true, "print the run report when the backtest ends")
}
