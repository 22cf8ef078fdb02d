package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var (
	// RemindersDispatched counts delivery attempts by reminder stage.
	RemindersDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_reminders_dispatched_total",
		Help: "Reminder delivery attempts by stage",
	}, []string{"stage"})

	// ReminderFailures counts deliveries the transport rejected.
	ReminderFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "planner_reminder_failures_total",
		Help: "Reminder deliveries that failed, by stage",
	}, []string{"stage"})

	// ScanErrors counts ticks aborted by storage errors.
	ScanErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planner_reminder_scan_errors_total",
		Help: "Reminder scan ticks aborted by storage errors",
	})

	ScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "planner_reminder_scan_duration_seconds",
		Help:    "Reminder scan tick duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
	})

	// XPApplied and XPOverCap split each award into granted and refused XP.
	XPApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planner_xp_applied_total",
		Help: "XP granted after the daily cap",
	})
	XPOverCap = promauto.NewCounter(prometheus.CounterOpts{
		Name: "planner_xp_over_cap_total",
		Help: "Requested XP refused by the daily cap",
	})
)

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
