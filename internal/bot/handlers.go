package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"smart-planner/internal/deadline"
	"smart-planner/internal/model"
	"smart-planner/internal/repository"
	"smart-planner/internal/service"
)

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I keep your tasks, deadlines and XP in one place.</b>\n\n"+
			"Add tasks with /add, look at them with /tasks and close them with /done. "+
			"I will ping you an hour and ten minutes before each deadline.\n\nSee /help for everything else.",
		escape(name),
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /add [today|week|month|free] — add tasks, one per line\n" +
		"• /tasks [today|week|month] — open tasks with buttons\n" +
		"• /done &lt;id&gt; [id…] — complete tasks and earn XP\n" +
		"• /deadline &lt;id&gt; [when] — set a deadline\n" +
		"• /nodeadline &lt;id&gt; — remove a deadline\n" +
		"• /priority &lt;id&gt; low|medium|high\n" +
		"• /tag &lt;id&gt; &lt;tag&gt; — tag a task (#study gives +1 XP)\n" +
		"• /delete &lt;id&gt; — delete a task\n" +
		"• /report — today's overview\n" +
		"• /profile — XP and rank\n" +
		"• /top — XP leaderboard\n" +
		"• /cancel — abort the current input\n\n" +
		deadlineExamples
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleAdd(ctx context.Context, msg *tgbotapi.Message) error {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		return b.askScope(msg.Chat.ID)
	}

	scope := deadline.ParseScope(arg)
	if string(scope) != strings.ToLower(arg) {
		return b.sendText(msg.Chat.ID, "Scope must be one of today, week, month or free.")
	}
	return b.beginAdding(ctx, msg.Chat.ID, msg.From, scope)
}

func (b *Bot) askScope(chatID int64) error {
	return b.sendWithReplyMarkup(chatID, "🗂 Which horizon are these tasks for?", scopeKeyboard())
}

func (b *Bot) beginAdding(ctx context.Context, chatID int64, from *tgbotapi.User, scope deadline.Scope) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}
	if err := b.sessions.BeginAdding(ctx, user.ID, scope); err != nil {
		return err
	}

	hint := "They will get no deadline."
	if at, ok := b.taskSvc.ScopeDeadline(scope, b.clk.Now()); ok {
		hint = fmt.Sprintf("Deadline: %s.", formatWhen(at))
	}
	return b.sendWithReplyMarkup(chatID,
		fmt.Sprintf("✍️ Send the tasks for <b>%s</b>, one per line. %s", escape(scope.Label()), hint),
		cancelKeyboard())
}

func (b *Bot) finishAdding(ctx context.Context, chatID int64, user *model.User, scope deadline.Scope, text string) error {
	tasks, err := b.taskSvc.CreateTasks(ctx, user, text, scope, b.clk.Now())
	switch {
	case errors.Is(err, service.ErrNoTasks):
		return b.sendWithReplyMarkup(chatID, "I found no tasks there. Send one task per line or /cancel.", cancelKeyboard())
	case errors.Is(err, service.ErrTooManyPending):
		if ferr := b.sessions.Finish(ctx, user.ID); ferr != nil {
			return ferr
		}
		return b.sendText(chatID, fmt.Sprintf("🚫 Too many open tasks (%s). Finish some first.", escape(errorDetail(err))))
	case err != nil:
		return err
	}

	if err := b.sessions.Finish(ctx, user.ID); err != nil {
		return err
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("✅ Added %d task(s):\n", len(tasks)))
	for _, task := range tasks {
		builder.WriteString(fmt.Sprintf("<code>#%d</code> %s\n", task.ID, escape(task.Text)))
	}
	if len(tasks) > 0 {
		if at, ok := b.taskSvc.Deadline(tasks[0]); ok {
			builder.WriteString(fmt.Sprintf("\n⏰ Due %s", formatWhen(at)))
		} else {
			builder.WriteString("\nUse /deadline &lt;id&gt; to give one a deadline.")
		}
	}
	return b.sendText(chatID, strings.TrimSpace(builder.String()))
}

func (b *Bot) handleListTasks(ctx context.Context, msg *tgbotapi.Message) error {
	scope, ok := parseListFilter(msg.CommandArguments())
	if !ok {
		return b.sendText(msg.Chat.ID, "Filter must be one of today, week or month: /tasks week")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID, user, scope)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User, scope deadline.Scope) error {
	now := b.clk.Now()
	tasks, err := b.taskSvc.ListPendingIn(ctx, user, scope, now)
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		if scope != deadline.ScopeFree {
			return b.sendText(chatID, "Nothing due in that period. /tasks shows everything.")
		}
		return b.sendText(chatID, "No open tasks. Add some with /add.")
	}

	var builder strings.Builder
	builder.WriteString(listTitle(scope) + "\n\n")
	for _, task := range tasks {
		at, ok := b.taskSvc.Deadline(task)
		builder.WriteString(formatTaskLine(task, at, ok, now))
	}

	msg := tgbotapi.NewMessage(chatID, strings.TrimSpace(builder.String()))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = taskListKeyboard(tasks)
	_, err = b.api.Send(msg)
	return err
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	ids, _ := parseIDs(msg.CommandArguments())
	if len(ids) == 0 {
		return b.sendText(msg.Chat.ID, "Give the task ids: /done 3 or /done 3 4 7")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.complete(ctx, msg.Chat.ID, user, ids)
}

func (b *Bot) complete(ctx context.Context, chatID int64, user *model.User, ids []uint) error {
	result, err := b.taskSvc.CompleteTasks(ctx, user, ids, b.clk.Now())
	if err != nil {
		return err
	}
	return b.sendText(chatID, formatCompletion(result))
}

func (b *Bot) handleDeadline(ctx context.Context, msg *tgbotapi.Message) error {
	ids, rest := parseIDs(msg.CommandArguments())
	if len(ids) == 0 {
		return b.sendText(msg.Chat.ID, "Give the task id: /deadline 3 or /deadline 3 tomorrow 18:00")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if rest != "" {
		return b.applyDeadline(ctx, msg.Chat.ID, user, ids, rest)
	}
	return b.beginDeadline(ctx, msg.Chat.ID, user, ids)
}

func (b *Bot) beginDeadline(ctx context.Context, chatID int64, user *model.User, ids []uint) error {
	if err := b.sessions.BeginDeadline(ctx, user.ID, ids); err != nil {
		return err
	}
	return b.sendWithReplyMarkup(chatID, "⏰ When is it due?\n\n"+deadlineExamples, cancelKeyboard())
}

// applyDeadline keeps the dialog open on unparsable input so the user can retry.
func (b *Bot) applyDeadline(ctx context.Context, chatID int64, user *model.User, ids []uint, text string) error {
	at, n, err := b.taskSvc.SetDeadline(ctx, user, ids, text, b.clk.Now())
	if errors.Is(err, deadline.ErrUnparsable) {
		if serr := b.sessions.BeginDeadline(ctx, user.ID, ids); serr != nil {
			return serr
		}
		return b.sendWithReplyMarkup(chatID,
			fmt.Sprintf("🤔 I could not read “%s”.\n\n%s", escape(strings.TrimSpace(text)), deadlineExamples),
			cancelKeyboard())
	}
	if err != nil {
		return err
	}

	if err := b.sessions.Finish(ctx, user.ID); err != nil {
		return err
	}
	if n == 0 {
		return b.sendText(chatID, "Those tasks no longer exist.")
	}
	return b.sendText(chatID, fmt.Sprintf("⏰ Deadline set to %s for %d task(s).", formatWhen(at), n))
}

func (b *Bot) handleNoDeadline(ctx context.Context, msg *tgbotapi.Message) error {
	ids, _ := parseIDs(msg.CommandArguments())
	if len(ids) != 1 {
		return b.sendText(msg.Chat.ID, "Give one task id: /nodeadline 3")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if err := b.taskSvc.ClearDeadline(ctx, user, ids[0]); err != nil {
		return b.taskError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("Deadline removed from <code>#%d</code>.", ids[0]))
}

func (b *Bot) handlePriority(ctx context.Context, msg *tgbotapi.Message) error {
	ids, rest := parseIDs(msg.CommandArguments())
	if len(ids) != 1 || rest == "" {
		return b.sendText(msg.Chat.ID, "Usage: /priority 3 high")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if err := b.taskSvc.SetPriority(ctx, user, ids[0], rest); err != nil {
		return b.taskError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("Priority of <code>#%d</code> is now %s.", ids[0], escape(strings.ToLower(rest))))
}

func (b *Bot) handleTag(ctx context.Context, msg *tgbotapi.Message) error {
	ids, rest := parseIDs(msg.CommandArguments())
	if len(ids) != 1 || rest == "" {
		return b.sendText(msg.Chat.ID, "Usage: /tag 3 study")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	task, err := b.taskSvc.AddTag(ctx, user, ids[0], rest)
	if err != nil {
		return b.taskError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🏷 <code>#%d</code> tags: %s", task.ID, escape(formatTags(task.Tags))))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	ids, _ := parseIDs(msg.CommandArguments())
	if len(ids) != 1 {
		return b.sendText(msg.Chat.ID, "Give one task id: /delete 12")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	task, err := b.taskSvc.GetTask(ctx, user, ids[0])
	if err != nil {
		return b.taskError(msg.Chat.ID, err)
	}
	if err := b.taskSvc.DeleteTask(ctx, user, task.ID); err != nil {
		return b.taskError(msg.Chat.ID, err)
	}

	b.logger.Info("task deleted", zap.Uint("task_id", task.ID), zap.Uint("user_id", user.ID))
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Task “%s” deleted.", escape(task.Text)))
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.reports.DailySummary(ctx, *user, b.clk.Now())
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleProfile(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, formatProfile(*user, b.xpSvc.UsedToday(*user, b.clk.Now()), b.xpSvc.DailyCap()))
}

func (b *Bot) handleTop(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	users, err := b.xpSvc.Leaderboard(ctx)
	if err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, formatLeaderboard(users))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}

	chatID := cb.Message.Chat.ID
	data := cb.Data
	b.logger.Debug("callback", zap.Int64("from", cb.From.ID), zap.String("data", data))

	switch {
	case strings.HasPrefix(data, cbScopePrefix):
		b.ackCallback(cb, "")
		return b.beginAdding(ctx, chatID, cb.From, deadline.ParseScope(strings.TrimPrefix(data, cbScopePrefix)))
	case strings.HasPrefix(data, cbDonePrefix):
		taskID, err := parseTaskID(data, cbDonePrefix)
		if err != nil {
			b.ackCallback(cb, "")
			return nil
		}
		b.ackCallback(cb, "✅")
		user, err := b.ensureUser(ctx, cb.From)
		if err != nil {
			return err
		}
		if err := b.complete(ctx, chatID, user, []uint{taskID}); err != nil {
			return err
		}
		return b.sendTaskList(ctx, chatID, user, deadline.ScopeFree)
	case strings.HasPrefix(data, cbDeadlinePrefix):
		b.ackCallback(cb, "")
		taskID, err := parseTaskID(data, cbDeadlinePrefix)
		if err != nil {
			return nil
		}
		user, err := b.ensureUser(ctx, cb.From)
		if err != nil {
			return err
		}
		return b.beginDeadline(ctx, chatID, user, []uint{taskID})
	default:
		b.ackCallback(cb, "")
		return nil
	}
}

func (b *Bot) taskError(chatID int64, err error) error {
	switch {
	case repository.IsNotFound(err):
		return b.sendText(chatID, "Task not found.")
	case errors.Is(err, service.ErrInvalidPriority), errors.Is(err, service.ErrInvalidTag):
		return b.sendText(chatID, escape(err.Error()))
	default:
		return err
	}
}
