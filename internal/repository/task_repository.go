package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"smart-planner/internal/deadline"
	"smart-planner/internal/model"
)

// TaskRepository handles CRUD for tasks. Deadlines cross this boundary as
// time.Time and are stored as bot-local strings through zone.
type TaskRepository struct {
	db   *gorm.DB
	zone deadline.Zone
}

func NewTaskRepository(db *gorm.DB, zone deadline.Zone) *TaskRepository {
	return &TaskRepository{db: db, zone: zone}
}

func (r *TaskRepository) Zone() deadline.Zone {
	return r.zone
}

// FormatDeadline converts an instant into its stored form; the zero time means no deadline.
func (r *TaskRepository) FormatDeadline(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := r.zone.Format(t)
	return &s
}

// Deadline parses the stored deadline of a task.
func (r *TaskRepository) Deadline(task model.Task) (time.Time, bool) {
	if task.Deadline == nil || *task.Deadline == "" {
		return time.Time{}, false
	}
	t, err := r.zone.Parse(*task.Deadline)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func (r *TaskRepository) Create(ctx context.Context, task *model.Task) error {
	if err := r.db.WithContext(ctx).Omit("User").Create(task).Error; err != nil {
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

// CreateBatch inserts several tasks in one transaction.
func (r *TaskRepository) CreateBatch(ctx context.Context, tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Omit("User").Create(&tasks).Error; err != nil {
		return fmt.Errorf("create tasks: %w", err)
	}
	return nil
}

func (r *TaskRepository) CountPending(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND status = ?", userID, model.StatusPending).
		Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return n, nil
}

func (r *TaskRepository) ListPending(ctx context.Context, userID uint) ([]model.Task, error) {
	var tasks []model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, model.StatusPending).
		Order("deadline NULLS LAST, created_at ASC, id ASC").
		Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *TaskRepository) FindByID(ctx context.Context, userID, taskID uint) (*model.Task, error) {
	var task model.Task
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateDeadline replaces the deadline and re-arms reminders by resetting the stage.
func (r *TaskRepository) UpdateDeadline(ctx context.Context, userID, taskID uint, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ?", userID, taskID).
		Updates(map[string]interface{}{
			"deadline":       r.FormatDeadline(at),
			"reminder_stage": model.StageNone,
		})
	if res.Error != nil {
		return fmt.Errorf("update deadline: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// MarkDone flips a pending task to done. It reports false when the task was
// already done, so callers award XP at most once.
func (r *TaskRepository) MarkDone(ctx context.Context, userID, taskID uint) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ? AND status = ?", userID, taskID, model.StatusPending).
		Update("status", model.StatusDone)
	if res.Error != nil {
		return false, fmt.Errorf("complete task: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r *TaskRepository) SetPriority(ctx context.Context, userID, taskID uint, priority string) error {
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("user_id = ? AND id = ?", userID, taskID).
		Update("priority", priority)
	if res.Error != nil {
		return fmt.Errorf("set priority: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AddTag appends tag to the comma-separated tag list unless it is already there.
func (r *TaskRepository) AddTag(ctx context.Context, userID, taskID uint, tag string) (*model.Task, error) {
	var task model.Task
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND id = ?", userID, taskID).First(&task).Error; err != nil {
			return err
		}
		tags := SplitTags(task.Tags)
		for _, existing := range tags {
			if existing == tag {
				return nil
			}
		}
		task.Tags = strings.Join(append(tags, tag), ",")
		return tx.Model(&task).Update("tags", task.Tags).Error
	})
	if err != nil {
		return nil, fmt.Errorf("add tag: %w", err)
	}
	return &task, nil
}

// Delete removes a task for the given user.
func (r *TaskRepository) Delete(ctx context.Context, userID, taskID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, taskID).Delete(&model.Task{})
	if res.Error != nil {
		return fmt.Errorf("delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListPendingInWindow returns pending tasks at the given reminder stage whose
// deadline d satisfies now ∈ [d-maxBefore, d-minBefore), i.e. d ∈ (now+minBefore, now+maxBefore].
// Owners are preloaded for delivery.
//
// Stored deadlines have minute precision and sort lexicographically, so the
// SQL range on the formatted bounds is a superset that is narrowed in Go.
func (r *TaskRepository) ListPendingInWindow(ctx context.Context, now time.Time, minBefore, maxBefore time.Duration, stage int) ([]model.Task, error) {
	lo := now.Add(minBefore)
	hi := now.Add(maxBefore)

	var candidates []model.Task
	err := r.db.WithContext(ctx).Preload("User").
		Where("status = ? AND reminder_stage = ? AND deadline IS NOT NULL", model.StatusPending, stage).
		Where("deadline >= ? AND deadline <= ?", r.zone.Format(lo), r.zone.Format(hi)).
		Order("id ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("list reminder window: %w", err)
	}

	tasks := candidates[:0]
	for _, task := range candidates {
		d, ok := r.Deadline(task)
		if !ok || !d.After(lo) || d.After(hi) {
			continue
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

// SetReminderStage advances the given tasks from one stage to the next. Rows
// that are no longer at from (edited, already advanced) are left alone.
func (r *TaskRepository) SetReminderStage(ctx context.Context, ids []uint, from, to int) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Model(&model.Task{}).
		Where("id IN ? AND reminder_stage = ?", ids, from).
		Update("reminder_stage", to)
	if res.Error != nil {
		return 0, fmt.Errorf("set reminder stage: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// SplitTags parses the stored comma-separated tag list.
func SplitTags(raw string) []string {
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// IsNotFound reports whether err means the row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
