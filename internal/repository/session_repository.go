package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"smart-planner/internal/model"
)

// SessionRepository persists per-user dialog state.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Get returns the stored session, or an idle one if the user has none.
func (r *SessionRepository) Get(ctx context.Context, userID uint) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).First(&session, "user_id = ?", userID).Error
	switch {
	case err == nil:
		return &session, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &model.Session{UserID: userID, State: model.SessionIdle}, nil
	default:
		return nil, fmt.Errorf("find session: %w", err)
	}
}

// Save upserts the session row.
func (r *SessionRepository) Save(ctx context.Context, session *model.Session) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "scope", "task_ids", "updated_at"}),
	}).Create(session).Error
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.Session{}, "user_id = ?", userID).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
