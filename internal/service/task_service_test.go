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

func TestParseTasksText(t *testing.T) {
	text := `
1. Read chapter 3
2) Solve problems
- buy milk
* call mom

plain line
  3 .  spaced  `
	assert.Equal(t, []string{
		"Read chapter 3",
		"Solve problems",
		"buy milk",
		"call mom",
		"plain line",
		"spaced",
	}, ParseTasksText(text))

	assert.Empty(t, ParseTasksText("  \n - \n"))
}

func TestCreateTasks_AppliesScopeDeadline(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	tasks, err := env.taskSvc.CreateTasks(ctx, env.user, "1. essay\n2. slides", deadline.ScopeWeek, refNow)
	require.NoError(t, err)
	require.Len(t, tasks, 2)

	for _, task := range tasks {
		stored := env.reload(t, task)
		require.NotNil(t, stored.Deadline)
		assert.Equal(t, "2025-08-31 22:00", *stored.Deadline)
		assert.Equal(t, model.StageNone, stored.ReminderStage)
		assert.Equal(t, model.PriorityMedium, stored.Priority)
	}

	free, err := env.taskSvc.CreateTasks(ctx, env.user, "someday", deadline.ScopeFree, refNow)
	require.NoError(t, err)
	assert.Nil(t, env.reload(t, free[0]).Deadline)
}

func TestCreateTasks_Limits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.taskSvc.CreateTasks(ctx, env.user, " \n ", deadline.ScopeToday, refNow)
	assert.ErrorIs(t, err, ErrNoTasks)

	_, err = env.taskSvc.CreateTasks(ctx, env.user, "a\nb\nc\nd\ne\nf\ng\nh", deadline.ScopeFree, refNow)
	require.NoError(t, err)

	_, err = env.taskSvc.CreateTasks(ctx, env.user, "i\nj\nk", deadline.ScopeFree, refNow)
	assert.ErrorIs(t, err, ErrTooManyPending)

	_, err = env.taskSvc.CreateTasks(ctx, env.user, "i\nj", deadline.ScopeFree, refNow)
	assert.NoError(t, err)
}

func TestSetDeadline_ResetsReminderStage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.addTask(t, env.user, "report", refNow.Add(2*time.Hour))
	_, err := env.tasks.SetReminderStage(ctx, []uint{task.ID}, model.StageNone, model.StageLongSent)
	require.NoError(t, err)

	at, n, err := env.taskSvc.SetDeadline(ctx, env.user, []uint{task.ID, 424242}, "tomorrow 18:00", refNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, at.Equal(time.Date(2025, 8, 28, 18, 0, 0, 0, tashkent)))

	stored := env.reload(t, task)
	assert.Equal(t, "2025-08-28 18:00", *stored.Deadline)
	assert.Equal(t, model.StageNone, stored.ReminderStage)
}

func TestSetDeadline_UnparsableWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.addTask(t, env.user, "report", refNow.Add(2*time.Hour))
	before := *env.reload(t, task).Deadline

	_, n, err := env.taskSvc.SetDeadline(ctx, env.user, []uint{task.ID}, "whenever", refNow)
	assert.ErrorIs(t, err, deadline.ErrUnparsable)
	assert.Zero(t, n)
	assert.Equal(t, before, *env.reload(t, task).Deadline)
}

func TestClearDeadline(t *testing.T) {
	env := newTestEnv(t)
	task := env.addTask(t, env.user, "report", refNow.Add(2*time.Hour))

	require.NoError(t, env.taskSvc.ClearDeadline(context.Background(), env.user, task.ID))
	assert.Nil(t, env.reload(t, task).Deadline)
}

func TestCompleteTasks_AwardsThroughCap(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var ids []uint
	for i := 0; i < 6; i++ {
		task := model.Task{UserID: env.user.ID, Text: "lab", Priority: model.PriorityHigh, Tags: "study"}
		require.NoError(t, env.tasks.Create(ctx, &task))
		ids = append(ids, task.ID)
	}

	result, err := env.taskSvc.CompleteTasks(ctx, env.user, ids[:3], refNow)
	require.NoError(t, err)
	assert.Equal(t, CompletionResult{Completed: 3, Requested: 21, Applied: 21, Cap: 30}, result)

	// 21 more requested, 9 left under the cap; the repeated id is already done.
	result, err = env.taskSvc.CompleteTasks(ctx, env.user, append(ids[3:], ids[0]), refNow)
	require.NoError(t, err)
	assert.Equal(t, 3, result.Completed)
	assert.Equal(t, 21, result.Requested)
	assert.Equal(t, 9, result.Applied)
	assert.Equal(t, 12, result.OverCap())

	user, err := env.users.FindByID(ctx, env.user.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, user.XP)
	assert.Equal(t, 6, user.Completed)
}

func TestCompleteTasks_NothingToComplete(t *testing.T) {
	env := newTestEnv(t)

	result, err := env.taskSvc.CompleteTasks(context.Background(), env.user, []uint{77}, refNow)
	require.NoError(t, err)
	assert.Zero(t, result.Completed)
	assert.Zero(t, result.Applied)
}

func TestTasksAreScopedToOwner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	other := env.newUser(t, 2002)

	task := env.addTask(t, env.user, "mine", refNow.Add(time.Hour))

	result, err := env.taskSvc.CompleteTasks(ctx, other, []uint{task.ID}, refNow)
	require.NoError(t, err)
	assert.Zero(t, result.Completed)

	_, n, err := env.taskSvc.SetDeadline(ctx, other, []uint{task.ID}, "tomorrow", refNow)
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.Error(t, env.taskSvc.DeleteTask(ctx, other, task.ID))
}

func TestSetPriorityAndAddTag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	task := env.addTask(t, env.user, "lab", time.Time{})

	assert.ErrorIs(t, env.taskSvc.SetPriority(ctx, env.user, task.ID, "urgent"), ErrInvalidPriority)
	require.NoError(t, env.taskSvc.SetPriority(ctx, env.user, task.ID, " HIGH "))

	_, err := env.taskSvc.AddTag(ctx, env.user, task.ID, "two words")
	assert.ErrorIs(t, err, ErrInvalidTag)

	updated, err := env.taskSvc.AddTag(ctx, env.user, task.ID, "#Study")
	require.NoError(t, err)
	assert.Equal(t, "study", updated.Tags)
	assert.Equal(t, model.PriorityHigh, updated.Priority)
	assert.Equal(t, 7, TaskXP(*updated))
}

func TestListPendingIn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	overdue := env.addTask(t, env.user, "overdue this morning", time.Date(2025, 8, 27, 8, 0, 0, 0, tashkent))
	tonight := env.addTask(t, env.user, "tonight", time.Date(2025, 8, 27, 23, 59, 0, 0, tashkent))
	sunday := env.addTask(t, env.user, "sunday", time.Date(2025, 8, 31, 22, 0, 0, 0, tashkent))
	monday := env.addTask(t, env.user, "last monday", time.Date(2025, 8, 25, 0, 0, 0, 0, tashkent))
	september := env.addTask(t, env.user, "september", time.Date(2025, 9, 1, 0, 0, 0, 0, tashkent))
	env.addTask(t, env.user, "july", time.Date(2025, 7, 31, 23, 59, 0, 0, tashkent))
	free := env.addTask(t, env.user, "free", time.Time{})

	ids := func(scope deadline.Scope) []uint {
		tasks, err := env.taskSvc.ListPendingIn(ctx, env.user, scope, refNow)
		require.NoError(t, err)
		out := make([]uint, 0, len(tasks))
		for _, task := range tasks {
			out = append(out, task.ID)
		}
		return out
	}

	assert.ElementsMatch(t, []uint{overdue.ID, tonight.ID}, ids(deadline.ScopeToday))
	assert.ElementsMatch(t, []uint{overdue.ID, tonight.ID, sunday.ID, monday.ID}, ids(deadline.ScopeWeek))
	assert.ElementsMatch(t, []uint{overdue.ID, tonight.ID, sunday.ID, monday.ID}, ids(deadline.ScopeMonth))
	assert.Len(t, ids(deadline.ScopeFree), 7)
	assert.NotContains(t, ids(deadline.ScopeMonth), september.ID)
	assert.NotContains(t, ids(deadline.ScopeWeek), free.ID)
}

func TestListPendingIn_SkipsDone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	task := env.addTask(t, env.user, "today", time.Date(2025, 8, 27, 20, 0, 0, 0, tashkent))
	_, err := env.tasks.MarkDone(ctx, env.user.ID, task.ID)
	require.NoError(t, err)

	tasks, err := env.taskSvc.ListPendingIn(ctx, env.user, deadline.ScopeToday, refNow)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}
