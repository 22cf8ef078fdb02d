package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"go.uber.org/zap"

	"smart-planner/internal/model"
	"smart-planner/internal/repository"
)

// ReportService builds the morning overview of open tasks and XP.
type ReportService struct {
	taskRepo *repository.TaskRepository
	userRepo *repository.UserRepository
	xp       *XPService
	logger   *zap.Logger
}

func NewReportService(taskRepo *repository.TaskRepository, userRepo *repository.UserRepository, xp *XPService, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{taskRepo: taskRepo, userRepo: userRepo, xp: xp, logger: logger}
}

// DailySummary lists pending tasks, nearest deadline first, followed by the
// user's XP standing for the day of now.
func (s *ReportService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	pending, err := s.taskRepo.ListPending(ctx, user.ID)
	if err != nil {
		return "", err
	}

	zone := s.taskRepo.Zone()
	now = zone.In(now)

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", now.Format("Mon, 02 Jan 2006")))

	builder.WriteString("🔥 <b>Open tasks</b>\n")
	if len(pending) == 0 {
		builder.WriteString("— nothing open\n")
	} else {
		for _, task := range pending {
			builder.WriteString(s.formatTask(task, now))
		}
	}

	builder.WriteString(fmt.Sprintf("\n⚡ XP today: %d/%d · total %d · completed %d\n",
		s.xp.UsedToday(user, now), s.xp.DailyCap(), user.XP, user.Completed))
	builder.WriteString(FormatRank(RankFor(user.XP)))

	return strings.TrimSpace(builder.String()), nil
}

// SendDailyReports delivers a summary to every known user. Failures for one
// user do not stop the rest.
func (s *ReportService) SendDailyReports(ctx context.Context, notifier Notifier, now time.Time) error {
	users, err := s.userRepo.ListAll(ctx)
	if err != nil {
		return err
	}

	sent := 0
	for _, user := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		text, err := s.DailySummary(ctx, user, now)
		if err != nil {
			s.logger.Warn("build daily report", zap.Uint("user_id", user.ID), zap.Error(err))
			continue
		}
		if err := notifier.Notify(ctx, user.TelegramID, text); err != nil {
			s.logger.Warn("send daily report", zap.Int64("chat_id", user.TelegramID), zap.Error(err))
			continue
		}
		sent++
	}

	s.logger.Info("daily reports sent", zap.Int("sent", sent), zap.Int("users", len(users)))
	return nil
}

func (s *ReportService) formatTask(task model.Task, now time.Time) string {
	var sb strings.Builder

	d, hasDeadline := s.taskRepo.Deadline(task)

	icon := "🟢"
	if hasDeadline {
		switch {
		case now.After(d):
			icon = "⚠️"
		case d.Sub(now) <= 48*time.Hour:
			icon = "⏳"
		}
	}

	sb.WriteString(fmt.Sprintf("%s <code>#%d</code> %s", icon, task.ID, html.EscapeString(strings.TrimSpace(task.Text))))
	if task.Priority == model.PriorityHigh {
		sb.WriteString(" ‼️")
	}
	if tags := repository.SplitTags(task.Tags); len(tags) > 0 {
		sb.WriteString(fmt.Sprintf(" <i>(#%s)</i>", html.EscapeString(strings.Join(tags, " #"))))
	}

	if hasDeadline {
		if now.After(d) {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s — <b>overdue</b>", d.Format("2006-01-02 15:04")))
		} else {
			sb.WriteString(fmt.Sprintf("\n   ⏰ due %s · %s left", d.Format("2006-01-02 15:04"), humanizeLeft(d.Sub(now))))
		}
	}

	sb.WriteByte('\n')
	return sb.String()
}

func humanizeLeft(left time.Duration) string {
	switch {
	case left < time.Hour:
		return fmt.Sprintf("%dm", int(left.Minutes()))
	case left < 24*time.Hour:
		return fmt.Sprintf("%dh", int(left.Hours()))
	default:
		return fmt.Sprintf("≈%dd", int(left.Hours()/24)+1)
	}
}
