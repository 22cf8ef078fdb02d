package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmhodges/clock"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"smart-planner/internal/bot"
	"smart-planner/internal/config"
	"smart-planner/internal/deadline"
	"smart-planner/internal/metrics"
	"smart-planner/internal/repository"
	"smart-planner/internal/service"
	applog "smart-planner/pkg/logger"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot, the reminder scan and the daily report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context())
		},
	}
}

func runBot(parent context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := cfg.RequireToken(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := applog.New(applog.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding})
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	zone, err := deadline.LoadZone(cfg.TimeZone)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	db, err := repository.NewDB(cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("db: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	clk := clock.New()

	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db, zone)
	sessionRepo := repository.NewSessionRepository(db)

	xpSvc := service.NewXPService(userRepo, zone, cfg.XPDailyCap, logger.Named("xp"))
	taskSvc := service.NewTaskService(taskRepo, xpSvc, deadline.NewResolver(zone), cfg.MaxPendingTask, logger.Named("tasks"))
	sessionSvc := service.NewSessionService(sessionRepo, clk)
	reportSvc := service.NewReportService(taskRepo, userRepo, xpSvc, logger.Named("report"))

	telegramBot, err := bot.New(cfg.TelegramToken, bot.Services{
		Users:    userRepo,
		Tasks:    taskSvc,
		XP:       xpSvc,
		Sessions: sessionSvc,
		Reports:  reportSvc,
	}, clk, logger)
	if err != nil {
		return fmt.Errorf("bot: %w", err)
	}

	reminderSvc := service.NewReminderService(taskRepo, telegramBot, clk, logger.Named("reminder"))

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := service.NewSchedulerService(zone.Location(), logger)
	if _, err := scheduler.ScheduleInterval(cfg.ScanInterval, reminderSvc.Job(ctx)); err != nil {
		return fmt.Errorf("schedule reminder scan: %w", err)
	}
	if cfg.ReportTime != "" {
		if _, err := scheduler.ScheduleDaily(cfg.ReportTime, func() {
			if err := telegramBot.SendDailyReports(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("daily report", zap.Error(err))
			}
		}); err != nil {
			return fmt.Errorf("schedule reports: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.Run(gctx)
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(gctx, cfg.MetricsAddr, logger)
		})
	}
	g.Go(func() error {
		// Polling only ends on shutdown; take the rest of the process with it.
		defer stop()
		return telegramBot.Start(gctx)
	})

	logger.Info("smart planner started",
		zap.String("zone", zone.String()),
		zap.Duration("scan_interval", cfg.ScanInterval),
		zap.String("report_time", cfg.ReportTime),
		zap.Int("xp_daily_cap", cfg.XPDailyCap),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("shutdown complete")
	return nil
}
