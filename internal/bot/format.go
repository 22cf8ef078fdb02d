package bot

import (
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"smart-planner/internal/deadline"
	"smart-planner/internal/model"
	"smart-planner/internal/repository"
	"smart-planner/internal/service"
)

const (
	cbScopePrefix    = "scope:"
	cbDonePrefix     = "done:"
	cbDeadlinePrefix = "deadline:"
)

const (
	btnCancel       = "⏪ Cancel"
	iconDefault     = "🟢"
	iconDue         = "⏳"
	iconOverdue     = "⚠️"
	menuLabelAdd    = "➕ Add tasks"
	menuLabelTasks  = "📋 Tasks"
	menuLabelReport = "📊 Report"
	menuLabelTop    = "🏅 Top"
	menuLabelHelp   = "ℹ️ Help"
)

const deadlineExamples = "Examples: <code>21:00</code>, <code>tomorrow 18:00</code>, " +
	"<code>fri evening</code>, <code>next mon 9:30</code>, <code>in 2h</code>, " +
	"<code>2025-08-31 19:00</code>"

func escape(s string) string {
	return html.EscapeString(s)
}

func formatWhen(at time.Time) string {
	return at.Format("Mon, 02 Jan 2006 15:04")
}

func formatTags(raw string) string {
	tags := repository.SplitTags(raw)
	if len(tags) == 0 {
		return "—"
	}
	return "#" + strings.Join(tags, " #")
}

func formatTaskLine(task model.Task, due time.Time, hasDeadline bool, now time.Time) string {
	var b strings.Builder

	icon := iconDefault
	if hasDeadline {
		switch {
		case now.After(due):
			icon = iconOverdue
		case due.Sub(now) <= 48*time.Hour:
			icon = iconDue
		}
	}
	b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s", icon, task.ID, escape(task.Text)))
	if task.Priority == model.PriorityHigh {
		b.WriteString(" ‼️")
	}
	if task.Tags != "" {
		b.WriteString(fmt.Sprintf(" <i>%s</i>", escape(formatTags(task.Tags))))
	}
	b.WriteByte('\n')

	if hasDeadline {
		if now.After(due) {
			b.WriteString(fmt.Sprintf("   ⏰ %s — <b>overdue</b>\n", formatWhen(due)))
		} else {
			b.WriteString(fmt.Sprintf("   ⏰ %s\n", formatWhen(due)))
		}
	}
	return b.String()
}

func formatCompletion(result service.CompletionResult) string {
	if result.Completed == 0 {
		return "Nothing to complete: those tasks are already done or do not exist."
	}
	text := fmt.Sprintf("✅ Completed %d task(s), +%d XP.", result.Completed, result.Applied)
	if over := result.OverCap(); over > 0 {
		text += fmt.Sprintf("\n⚡ Daily cap of %d XP reached, %d XP not counted.", result.Cap, over)
	}
	return text
}

// errorDetail drops the sentinel prefix of a wrapped error message.
func errorDetail(err error) string {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		return msg[i+2:]
	}
	return msg
}

// parseIDs reads leading task ids ("3", "#3", "3,4 7") and returns the rest
// of the arguments unchanged.
func parseIDs(args string) ([]uint, string) {
	fields := strings.Fields(args)
	var ids []uint

	consumed := 0
	for _, field := range fields {
		parsed, ok := parseIDList(field)
		if !ok {
			break
		}
		ids = append(ids, parsed...)
		consumed++
	}
	return ids, strings.Join(fields[consumed:], " ")
}

func parseIDList(field string) ([]uint, bool) {
	var ids []uint
	for _, part := range strings.Split(field, ",") {
		part = strings.TrimPrefix(strings.TrimSpace(part), "#")
		if part == "" {
			continue
		}
		id, err := strconv.ParseUint(part, 10, 64)
		if err != nil || id == 0 {
			return nil, false
		}
		ids = append(ids, uint(id))
	}
	return ids, len(ids) > 0
}

func parseTaskID(data, prefix string) (uint, error) {
	raw := strings.TrimPrefix(data, prefix)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

func shortText(text string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(text, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

// parseListFilter maps the /tasks argument to the period it narrows to.
// No argument lists everything.
func parseListFilter(arg string) (deadline.Scope, bool) {
	arg = strings.ToLower(strings.TrimSpace(arg))
	if arg == "" || arg == "all" {
		return deadline.ScopeFree, true
	}
	scope := deadline.ParseScope(arg)
	if scope == deadline.ScopeFree {
		return scope, false
	}
	return scope, true
}

func listTitle(scope deadline.Scope) string {
	switch scope {
	case deadline.ScopeToday:
		return "📋 <b>Due today</b>"
	case deadline.ScopeWeek:
		return "📋 <b>Due this week</b>"
	case deadline.ScopeMonth:
		return "📋 <b>Due this month</b>"
	default:
		return "📋 <b>Open tasks</b>"
	}
}

func formatLeaderboard(users []model.User) string {
	var b strings.Builder
	b.WriteString("🏅 <b>Top 10</b>\n")
	if len(users) == 0 {
		b.WriteString("Nobody has earned XP yet.")
		return b.String()
	}
	for i, user := range users {
		name := user.DisplayName()
		if name == "" {
			name = "—"
		}
		b.WriteString(fmt.Sprintf("\n%d. %s · %d XP (%s)", i+1, escape(name), user.XP, service.RankFor(user.XP).Name))
	}
	return b.String()
}

func formatProfile(user model.User, usedToday, dailyCap int) string {
	return fmt.Sprintf("👤 <b>%s</b>\n⭐ XP: %d\n✅ Completed: %d\n⚡ Today: %d/%d XP\n\n%s",
		escape(user.DisplayName()), user.XP, user.Completed, usedToday, dailyCap,
		strings.TrimSpace(service.FormatRank(service.RankFor(user.XP))))
}

func isCancelInput(text string) bool {
	value := strings.TrimSpace(strings.ToLower(text))
	return value == strings.ToLower(btnCancel) || value == "cancel"
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelAdd),
			tgbotapi.NewKeyboardButton(menuLabelTasks),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(menuLabelReport),
			tgbotapi.NewKeyboardButton(menuLabelTop),
			tgbotapi.NewKeyboardButton(menuLabelHelp),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func cancelKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(btnCancel),
		),
	)
	kb.ResizeKeyboard = true
	kb.OneTimeKeyboard = true
	return kb
}

func scopeKeyboard() tgbotapi.InlineKeyboardMarkup {
	button := func(scope deadline.Scope) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(scope.Label(), cbScopePrefix+string(scope))
	}
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(button(deadline.ScopeToday), button(deadline.ScopeWeek)),
		tgbotapi.NewInlineKeyboardRow(button(deadline.ScopeMonth), button(deadline.ScopeFree)),
	)
}

func taskListKeyboard(tasks []model.Task) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(tasks))
	for _, task := range tasks {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✅ #%d · %s", task.ID, shortText(task.Text, 24)),
				fmt.Sprintf("%s%d", cbDonePrefix, task.ID),
			),
			tgbotapi.NewInlineKeyboardButtonData("⏰", fmt.Sprintf("%s%d", cbDeadlinePrefix, task.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
