package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmhodges/clock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"smart-planner/internal/deadline"
	"smart-planner/internal/model"
	"smart-planner/internal/repository"
)

var tashkent = time.FixedZone("Asia/Tashkent", 5*60*60)

// refNow is Wednesday 2025-08-27 15:30:20 bot-local.
var refNow = time.Date(2025, 8, 27, 15, 30, 20, 0, tashkent)

type testEnv struct {
	db       *gorm.DB
	zone     deadline.Zone
	clk      clock.FakeClock
	users    *repository.UserRepository
	tasks    *repository.TaskRepository
	sessions *repository.SessionRepository
	xp       *XPService
	taskSvc  *TaskService
	user     *model.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := repository.NewDB(filepath.Join(t.TempDir(), "planner.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	zone := deadline.NewZone(tashkent)
	clk := clock.NewFake()
	clk.Set(refNow)

	env := &testEnv{
		db:       db,
		zone:     zone,
		clk:      clk,
		users:    repository.NewUserRepository(db),
		tasks:    repository.NewTaskRepository(db, zone),
		sessions: repository.NewSessionRepository(db),
	}
	env.xp = NewXPService(env.users, zone, 30, nil)
	env.taskSvc = NewTaskService(env.tasks, env.xp, deadline.NewResolver(zone), 10, nil)
	env.user = env.newUser(t, 1001)
	return env
}

func (e *testEnv) newUser(t *testing.T, telegramID int64) *model.User {
	t.Helper()

	user, err := e.users.UpsertFromTelegram(context.Background(), telegramID, "Ada", "", "ada")
	require.NoError(t, err)
	return user
}

func (e *testEnv) addTask(t *testing.T, user *model.User, text string, due time.Time) model.Task {
	t.Helper()

	task := model.Task{UserID: user.ID, Text: text, Deadline: e.tasks.FormatDeadline(due)}
	require.NoError(t, e.tasks.Create(context.Background(), &task))
	return task
}

func (e *testEnv) reload(t *testing.T, task model.Task) *model.Task {
	t.Helper()

	stored, err := e.tasks.FindByID(context.Background(), task.UserID, task.ID)
	require.NoError(t, err)
	return stored
}
