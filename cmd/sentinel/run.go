package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"InstabilitySentinel/internal/collector"
	"InstabilitySentinel/internal/logger"
	"InstabilitySentinel/internal/notifier"
	"InstabilitySentinel/internal/scheduler"
	"InstabilitySentinel/internal/trend"
)

func newRunCmd() *cobra.Command {
	var snapshotOnStart bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the ingest, report and prune schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if os.Getenv("RUN_ON_START") == "true" {
				snapshotOnStart = true
			}
			return run(cmd.Context(), snapshotOnStart)
		},
	}
	cmd.Flags().BoolVar(&snapshotOnStart, "snapshot-on-start", false, "take one snapshot immediately")
	return cmd
}

func run(parent context.Context, snapshotOnStart bool) error {
	logger.Log.Info("InstabilitySentinel starting...")

	var source collector.Source
	if cfg.Source.Mock {
		source = &collector.MockSource{}
	} else {
		source = collector.NewFileSource(cfg.Source.Path)
	}
	logger.Log.WithField("source", source.Name()).Info("score source configured")
	col := collector.NewCollector(source)

	rec := openRecorder(cfg)
	defer rec.Close()

	var n notifier.Notifier = notifier.NewLogNotifier()
	var tn *notifier.TelegramNotifier
	if cfg.TelegramEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, cfg.Telegram.RatePerMinute)
		n = notifier.RetryingNotifier{TelegramNotifier: tn, MaxRetries: 3}
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := scheduler.NewScheduler(ctx, col, trend.NewEngine(), n, rec, cfg.Report.Limit)
	if _, err := sched.Restore(); err != nil {
		logger.Log.WithError(err).Warn("restore history failed, starting empty")
	}
	if err := sched.RegisterAll(cfg.Schedule.SnapshotCron, cfg.Schedule.ReportCron, cfg.Schedule.PruneCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Source.Watch && !cfg.Source.Mock {
		w, err := collector.NewWatcher(cfg.Source.Path, time.Second, func() { sched.Snapshot() })
		if err != nil {
			logger.Log.WithError(err).Warn("score file watch disabled")
		} else {
			g.Go(func() error {
				w.Run(gctx)
				return nil
			})
		}
	}

	if tn != nil {
		g.Go(func() error {
			tn.StartPolling(gctx, sched.HandleCommand)
			return nil
		})
		logger.Log.Info("telegram polling started")
	}

	if snapshotOnStart {
		logger.Log.Info("snapshot on start enabled, collecting now")
		g.Go(func() error {
			sched.Snapshot()
			return nil
		})
	}

	logger.Log.Info("InstabilitySentinel is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	logger.Log.Info("shutdown signal received, stopping...")

	err := g.Wait()
	logger.Log.Info("InstabilitySentinel stopped")
	return err
}
