package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smart-planner/internal/deadline"
	"smart-planner/internal/model"
)

func TestSessionService_Transitions(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSessionService(env.sessions, env.clk)
	ctx := context.Background()
	userID := env.user.ID

	current, err := svc.Current(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionIdle, current.State)

	require.NoError(t, svc.BeginAdding(ctx, userID, deadline.ScopeWeek))
	session, err := svc.Expect(ctx, userID, model.SessionAddingTasks)
	require.NoError(t, err)
	assert.Equal(t, deadline.ScopeWeek, SessionScope(session))

	_, err = svc.Expect(ctx, userID, model.SessionAwaitingDeadline)
	assert.ErrorIs(t, err, ErrUnexpectedState)

	require.NoError(t, svc.BeginDeadline(ctx, userID, []uint{4, 9}))
	session, err = svc.Expect(ctx, userID, model.SessionAwaitingDeadline)
	require.NoError(t, err)
	assert.Equal(t, []uint{4, 9}, SessionTaskIDs(session))

	require.NoError(t, svc.Finish(ctx, userID))
	current, err = svc.Current(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionIdle, current.State)
}

func TestSessionService_ExpiresAfterTTL(t *testing.T) {
	env := newTestEnv(t)
	svc := NewSessionService(env.sessions, env.clk)
	ctx := context.Background()

	require.NoError(t, svc.BeginAdding(ctx, env.user.ID, deadline.ScopeToday))

	env.clk.Add(sessionTTL - time.Minute)
	_, err := svc.Expect(ctx, env.user.ID, model.SessionAddingTasks)
	require.NoError(t, err)

	env.clk.Add(2 * time.Minute)
	_, err = svc.Expect(ctx, env.user.ID, model.SessionAddingTasks)
	assert.ErrorIs(t, err, ErrUnexpectedState)
}

func TestSessionTaskIDs_SkipsGarbage(t *testing.T) {
	session := &model.Session{TaskIDs: "1, x,0,,3"}
	assert.Equal(t, []uint{1, 3}, SessionTaskIDs(session))
	assert.Empty(t, SessionTaskIDs(&model.Session{}))
}
