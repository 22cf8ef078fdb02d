package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/jmhodges/clock"

	"smart-planner/internal/deadline"
	"smart-planner/internal/model"
	"smart-planner/internal/repository"
)

// ErrUnexpectedState means the user's dialog is not in the state an input expects.
var ErrUnexpectedState = errors.New("unexpected session state")

const sessionTTL = 30 * time.Minute

// SessionService drives the per-user dialog state machine:
//
//	idle ──BeginAdding──▶ adding_tasks ──Finish──▶ idle
//	idle ──BeginDeadline─▶ awaiting_deadline ──Finish──▶ idle
//
// Begin* may be entered from any state and replaces the current dialog.
// Sessions untouched for longer than sessionTTL read as idle.
type SessionService struct {
	repo *repository.SessionRepository
	clk  clock.Clock
}

func NewSessionService(repo *repository.SessionRepository, clk clock.Clock) *SessionService {
	if clk == nil {
		clk = clock.New()
	}
	return &SessionService{repo: repo, clk: clk}
}

// Current returns the live session of the user.
func (s *SessionService) Current(ctx context.Context, userID uint) (*model.Session, error) {
	session, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session.State == "" || s.clk.Now().Sub(session.UpdatedAt) > sessionTTL {
		return &model.Session{UserID: userID, State: model.SessionIdle}, nil
	}
	return session, nil
}

// BeginAdding waits for a message with tasks that will get the scope's deadline.
func (s *SessionService) BeginAdding(ctx context.Context, userID uint, scope deadline.Scope) error {
	return s.repo.Save(ctx, &model.Session{
		UserID:    userID,
		State:     model.SessionAddingTasks,
		Scope:     string(scope),
		UpdatedAt: s.clk.Now(),
	})
}

// BeginDeadline waits for a deadline expression for the given tasks.
func (s *SessionService) BeginDeadline(ctx context.Context, userID uint, taskIDs []uint) error {
	ids := make([]string, 0, len(taskIDs))
	for _, id := range taskIDs {
		ids = append(ids, strconv.FormatUint(uint64(id), 10))
	}
	return s.repo.Save(ctx, &model.Session{
		UserID:    userID,
		State:     model.SessionAwaitingDeadline,
		TaskIDs:   strings.Join(ids, ","),
		UpdatedAt: s.clk.Now(),
	})
}

// Expect returns the session if it is in state, ErrUnexpectedState otherwise.
func (s *SessionService) Expect(ctx context.Context, userID uint, state model.SessionState) (*model.Session, error) {
	session, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if session.State != state {
		return nil, ErrUnexpectedState
	}
	return session, nil
}

// Finish returns the user to idle.
func (s *SessionService) Finish(ctx context.Context, userID uint) error {
	return s.repo.Delete(ctx, userID)
}

// SessionScope is the scope stored by BeginAdding.
func SessionScope(session *model.Session) deadline.Scope {
	return deadline.ParseScope(session.Scope)
}

// SessionTaskIDs are the ids stored by BeginDeadline.
func SessionTaskIDs(session *model.Session) []uint {
	var ids []uint
	for _, part := range strings.Split(session.TaskIDs, ",") {
		id, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil || id == 0 {
			continue
		}
		ids = append(ids, uint(id))
	}
	return ids
}
