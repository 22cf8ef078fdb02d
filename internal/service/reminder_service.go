package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jmhodges/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"smart-planner/internal/metrics"
	"smart-planner/internal/model"
	applog "smart-planner/pkg/logger"
)

// Notifier delivers a message to a chat. It is the only outbound dependency
// of the reminder scan.
type Notifier interface {
	Notify(ctx context.Context, chatID int64, message string) error
}

// ReminderStore is the slice of task storage the scan needs.
type ReminderStore interface {
	ListPendingInWindow(ctx context.Context, now time.Time, minBefore, maxBefore time.Duration, stage int) ([]model.Task, error)
	SetReminderStage(ctx context.Context, ids []uint, from, to int) (int64, error)
}

// reminderStage is one transition of the per-task reminder state machine. It
// fires when now ∈ [deadline-maxBefore, deadline-minBefore) and the task is
// still at stage from. The window is one minute wide so a scan running once a
// minute sees every deadline in it exactly once.
type reminderStage struct {
	name      string
	from, to  int
	minBefore time.Duration
	maxBefore time.Duration
	prefix    string
}

var reminderStages = []reminderStage{
	{name: "1h", from: model.StageNone, to: model.StageLongSent, minBefore: 60 * time.Minute, maxBefore: 61 * time.Minute, prefix: "⏰ 1h to go: "},
	{name: "10m", from: model.StageLongSent, to: model.StageShortSent, minBefore: 10 * time.Minute, maxBefore: 11 * time.Minute, prefix: "⚠️ 10m left: "},
}

const defaultDeliveryConcurrency = 8

// ScanReport counts what one tick did.
type ScanReport struct {
	Attempted map[string]int
	Failed    int
}

// ReminderService periodically notifies users about approaching deadlines.
type ReminderService struct {
	store       ReminderStore
	notifier    Notifier
	clk         clock.Clock
	logger      *zap.Logger
	concurrency int
}

func NewReminderService(store ReminderStore, notifier Notifier, clk clock.Clock, logger *zap.Logger) *ReminderService {
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReminderService{
		store:       store,
		notifier:    notifier,
		clk:         clk,
		logger:      logger,
		concurrency: defaultDeliveryConcurrency,
	}
}

// Tick runs one scan. Stages are processed in order (all 1h reminders before
// any 10m reminder). Within a stage every delivery finishes before the stage is
// advanced, and it is advanced for each attempted task whether or not the
// transport accepted the message. A storage error aborts the tick; the next
// tick retries from the persisted stages.
func (s *ReminderService) Tick(ctx context.Context) (ScanReport, error) {
	started := s.clk.Now()
	now := started
	ctx = applog.ContextWithScanID(ctx, uuid.NewString())
	log := applog.WithScanID(ctx, s.logger)

	report := ScanReport{Attempted: make(map[string]int, len(reminderStages))}
	defer func() {
		metrics.ScanDuration.Observe(s.clk.Now().Sub(started).Seconds())
	}()

	for _, stage := range reminderStages {
		tasks, err := s.store.ListPendingInWindow(ctx, now, stage.minBefore, stage.maxBefore, stage.from)
		if err != nil {
			metrics.ScanErrors.Inc()
			return report, fmt.Errorf("scan %s window: %w", stage.name, err)
		}
		if len(tasks) == 0 {
			continue
		}

		attempted, failed := s.deliver(ctx, log, stage, tasks)
		report.Attempted[stage.name] = len(attempted)
		report.Failed += failed

		// Messages are already out; do not let a cancelled context undo the commit
		// and cause a second delivery on the next tick.
		advanced, err := s.store.SetReminderStage(context.WithoutCancel(ctx), attempted, stage.from, stage.to)
		if err != nil {
			metrics.ScanErrors.Inc()
			return report, fmt.Errorf("advance %s stage: %w", stage.name, err)
		}

		log.Info("reminders dispatched",
			zap.String("stage", stage.name),
			zap.Int("attempted", len(attempted)),
			zap.Int("failed", failed),
			zap.Int64("advanced", advanced),
		)
	}

	return report, nil
}

// deliver sends one stage's reminders concurrently and waits for all of them.
// Transport errors are logged and counted, never returned.
func (s *ReminderService) deliver(ctx context.Context, log *zap.Logger, stage reminderStage, tasks []model.Task) ([]uint, int) {
	tried := make([]bool, len(tasks))
	var failed atomic.Int64

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			tried[i] = true
			metrics.RemindersDispatched.WithLabelValues(stage.name).Inc()

			if err := s.notifier.Notify(ctx, task.User.TelegramID, reminderMessage(stage, task)); err != nil {
				failed.Add(1)
				metrics.ReminderFailures.WithLabelValues(stage.name).Inc()
				log.Warn("reminder delivery failed",
					zap.String("stage", stage.name),
					zap.Uint("task_id", task.ID),
					zap.Int64("chat_id", task.User.TelegramID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	ids := make([]uint, 0, len(tasks))
	for i, task := range tasks {
		if tried[i] {
			ids = append(ids, task.ID)
		}
	}
	return ids, int(failed.Load())
}

func reminderMessage(stage reminderStage, task model.Task) string {
	return stage.prefix + html.EscapeString(strings.TrimSpace(task.Text))
}

// Job adapts Tick for the scheduler: errors are logged and the next run retries.
func (s *ReminderService) Job(ctx context.Context) func() {
	return func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.Tick(ctx); err != nil {
			s.logger.Error("reminder scan failed", zap.Error(err))
		}
	}
}
