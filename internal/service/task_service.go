package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"smart-planner/internal/deadline"
	"smart-planner/internal/model"
	"smart-planner/internal/repository"
)

var (
	ErrNoTasks         = errors.New("no tasks in message")
	ErrTooManyPending  = errors.New("too many pending tasks")
	ErrInvalidPriority = errors.New("priority must be low, medium or high")
	ErrInvalidTag      = errors.New("tag must be a single word")
)

var numberedLine = regexp.MustCompile(`^\s*\d+\s*[.)]\s*(.+)$`)

// ParseTasksText splits a message into task texts. Numbered lines ("1. x",
// "2) y"), bullets ("- x", "* y") and plain lines are all accepted.
func ParseTasksText(text string) []string {
	var tasks []string
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		line = strings.TrimSpace(line)
		if m := numberedLine.FindStringSubmatch(line); m != nil {
			line = m[1]
		} else if strings.HasPrefix(line, "-") || strings.HasPrefix(line, "*") {
			line = line[1:]
		}
		if line = strings.TrimSpace(line); line != "" {
			tasks = append(tasks, line)
		}
	}
	return tasks
}

// CompletionResult summarizes a completion request.
type CompletionResult struct {
	Completed int
	Requested int
	Applied   int
	Cap       int
}

// OverCap is the XP that the daily cap swallowed.
func (r CompletionResult) OverCap() int {
	return r.Requested - r.Applied
}

// TaskService wraps task-related business logic.
type TaskService struct {
	taskRepo   *repository.TaskRepository
	xp         *XPService
	resolver   *deadline.Resolver
	maxPending int
	logger     *zap.Logger
}

func NewTaskService(taskRepo *repository.TaskRepository, xp *XPService, resolver *deadline.Resolver, maxPending int, logger *zap.Logger) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaskService{taskRepo: taskRepo, xp: xp, resolver: resolver, maxPending: maxPending, logger: logger}
}

// CreateTasks adds every task found in text. A non-free scope gives all of
// them the scope's default deadline.
func (s *TaskService) CreateTasks(ctx context.Context, user *model.User, text string, scope deadline.Scope, now time.Time) ([]model.Task, error) {
	texts := ParseTasksText(text)
	if len(texts) == 0 {
		return nil, ErrNoTasks
	}

	pending, err := s.taskRepo.CountPending(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if s.maxPending > 0 && int(pending)+len(texts) > s.maxPending {
		return nil, fmt.Errorf("%w: limit is %d, you have %d", ErrTooManyPending, s.maxPending, pending)
	}

	var due *string
	if at, ok := s.resolver.ForScope(scope, now); ok {
		due = s.taskRepo.FormatDeadline(at)
	}

	tasks := make([]model.Task, 0, len(texts))
	for _, t := range texts {
		tasks = append(tasks, model.Task{
			UserID:   user.ID,
			Text:     t,
			Deadline: due,
			Status:   model.StatusPending,
			Priority: model.PriorityMedium,
		})
	}
	if err := s.taskRepo.CreateBatch(ctx, tasks); err != nil {
		return nil, err
	}

	s.logger.Info("tasks created",
		zap.Uint("user_id", user.ID),
		zap.Int("count", len(tasks)),
		zap.String("scope", string(scope)),
	)
	return tasks, nil
}

func (s *TaskService) ListPending(ctx context.Context, user *model.User) ([]model.Task, error) {
	return s.taskRepo.ListPending(ctx, user.ID)
}

// ListPendingIn narrows the pending list to tasks due within the calendar
// period of scope around now, overdue ones included. Free scope lists all.
func (s *TaskService) ListPendingIn(ctx context.Context, user *model.User, scope deadline.Scope, now time.Time) ([]model.Task, error) {
	tasks, err := s.taskRepo.ListPending(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	start, end, ok := s.resolver.Period(scope, now)
	if !ok {
		return tasks, nil
	}

	filtered := tasks[:0]
	for _, task := range tasks {
		at, has := s.taskRepo.Deadline(task)
		if has && !at.Before(start) && at.Before(end) {
			filtered = append(filtered, task)
		}
	}
	return filtered, nil
}

func (s *TaskService) GetTask(ctx context.Context, user *model.User, taskID uint) (*model.Task, error) {
	return s.taskRepo.FindByID(ctx, user.ID, taskID)
}

// ScopeDeadline is the deadline CreateTasks would assign for scope at now.
func (s *TaskService) ScopeDeadline(scope deadline.Scope, now time.Time) (time.Time, bool) {
	return s.resolver.ForScope(scope, now)
}

// Deadline returns the parsed deadline of a task, if it has one.
func (s *TaskService) Deadline(task model.Task) (time.Time, bool) {
	return s.taskRepo.Deadline(task)
}

// SetDeadline resolves text and applies it to the given tasks, re-arming their
// reminders. Nothing is written when text cannot be parsed. Tasks that no
// longer exist are skipped; the number of updated tasks is returned.
func (s *TaskService) SetDeadline(ctx context.Context, user *model.User, taskIDs []uint, text string, now time.Time) (time.Time, int, error) {
	at, err := s.resolver.Resolve(text, now)
	if err != nil {
		return time.Time{}, 0, err
	}

	updated := 0
	for _, id := range taskIDs {
		err := s.taskRepo.UpdateDeadline(ctx, user.ID, id, at)
		switch {
		case err == nil:
			updated++
		case repository.IsNotFound(err):
			continue
		default:
			return time.Time{}, updated, err
		}
	}

	s.logger.Info("deadline set",
		zap.Uint("user_id", user.ID),
		zap.Int("tasks", updated),
		zap.String("deadline", s.resolver.Zone().Format(at)),
	)
	return at, updated, nil
}

// ClearDeadline removes the deadline, which also takes the task out of reminder scans.
func (s *TaskService) ClearDeadline(ctx context.Context, user *model.User, taskID uint) error {
	return s.taskRepo.UpdateDeadline(ctx, user.ID, taskID, time.Time{})
}

// CompleteTasks marks pending tasks done and grants their XP through the daily
// cap in one award. Tasks already done or missing contribute nothing.
func (s *TaskService) CompleteTasks(ctx context.Context, user *model.User, taskIDs []uint, now time.Time) (CompletionResult, error) {
	result := CompletionResult{Cap: s.xp.DailyCap()}

	for _, id := range taskIDs {
		task, err := s.taskRepo.FindByID(ctx, user.ID, id)
		if repository.IsNotFound(err) {
			continue
		}
		if err != nil {
			return result, err
		}

		changed, err := s.taskRepo.MarkDone(ctx, user.ID, id)
		if err != nil {
			return result, err
		}
		if !changed {
			continue
		}
		result.Completed++
		result.Requested += TaskXP(*task)
	}

	if result.Completed == 0 {
		return result, nil
	}

	applied, err := s.xp.AwardWithCap(ctx, user.ID, result.Requested, result.Completed, result.Cap, now)
	if err != nil {
		return result, err
	}
	result.Applied = applied

	s.logger.Info("tasks completed",
		zap.Uint("user_id", user.ID),
		zap.Int("count", result.Completed),
		zap.Int("xp_requested", result.Requested),
		zap.Int("xp_applied", applied),
	)
	return result, nil
}

func (s *TaskService) SetPriority(ctx context.Context, user *model.User, taskID uint, priority string) error {
	priority = strings.ToLower(strings.TrimSpace(priority))
	if _, ok := priorityBonus[priority]; !ok {
		return ErrInvalidPriority
	}
	return s.taskRepo.SetPriority(ctx, user.ID, taskID, priority)
}

func (s *TaskService) AddTag(ctx context.Context, user *model.User, taskID uint, tag string) (*model.Task, error) {
	tag = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tag), "#"))
	if tag == "" || strings.ContainsAny(tag, ", \t\n") {
		return nil, ErrInvalidTag
	}
	return s.taskRepo.AddTag(ctx, user.ID, taskID, tag)
}

// DeleteTask removes a task completely.
func (s *TaskService) DeleteTask(ctx context.Context, user *model.User, taskID uint) error {
	return s.taskRepo.Delete(ctx, user.ID, taskID)
}
