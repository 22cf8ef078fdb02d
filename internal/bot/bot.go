package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"smart-planner/internal/model"
	"smart-planner/internal/repository"
	"smart-planner/internal/service"
	applog "smart-planner/pkg/logger"
)

// Bot aggregates Telegram API with services.
type Bot struct {
	api      *tgbotapi.BotAPI
	userRepo *repository.UserRepository
	taskSvc  *service.TaskService
	xpSvc    *service.XPService
	sessions *service.SessionService
	reports  *service.ReportService
	clk      clock.Clock
	logger   *zap.Logger
}

// Services are the use cases the bot exposes over chat.
type Services struct {
	Users    *repository.UserRepository
	Tasks    *service.TaskService
	XP       *service.XPService
	Sessions *service.SessionService
	Reports  *service.ReportService
}

func New(token string, svc Services, clk clock.Clock, logger *zap.Logger) (*Bot, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.New()
	}
	if err := tgbotapi.SetLogger(applog.StdLog(logger, "telegram")); err != nil {
		return nil, fmt.Errorf("set bot logger: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	logger.Info("bot authorized", zap.String("account", api.Self.UserName))

	return &Bot{
		api:      api,
		userRepo: svc.Users,
		taskSvc:  svc.Tasks,
		xpSvc:    svc.XP,
		sessions: svc.Sessions,
		reports:  svc.Reports,
		clk:      clk,
		logger:   logger.Named("bot"),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	b.logger.Info("start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				b.logger.Warn("handle callback", zap.Error(err))
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				b.logger.Warn("handle message", zap.Int64("chat_id", update.Message.Chat.ID), zap.Error(err))
			}
		}
	}

	return nil
}

// Notify sends an HTML message. It implements service.Notifier for reminders
// and daily reports.
func (b *Bot) Notify(ctx context.Context, chatID int64, message string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, message)
	msg.ParseMode = tgbotapi.ModeHTML
	_, err := b.api.Send(msg)
	return err
}

// SendDailyReports delivers the morning summary to every known user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	return b.reports.SendDailyReports(ctx, b, b.clk.Now())
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelInput(msg.Text) {
		return b.cancelDialog(ctx, msg)
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		b.logger.Info("command",
			zap.Int64("from", msg.From.ID),
			zap.String("command", msg.Command()),
			zap.String("args", msg.CommandArguments()),
		)
		return b.handleCommand(ctx, msg)
	}

	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	session, err := b.sessions.Current(ctx, user.ID)
	if err != nil {
		return err
	}

	switch session.State {
	case model.SessionAddingTasks:
		return b.finishAdding(ctx, msg.Chat.ID, user, service.SessionScope(session), msg.Text)
	case model.SessionAwaitingDeadline:
		return b.applyDeadline(ctx, msg.Chat.ID, user, service.SessionTaskIDs(session), msg.Text)
	default:
		return b.sendText(msg.Chat.ID, "I did not get that. Use /add to add tasks or /help for the list of commands.")
	}
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "add":
		return b.handleAdd(ctx, msg)
	case "tasks":
		return b.handleListTasks(ctx, msg)
	case "done":
		return b.handleDone(ctx, msg)
	case "deadline":
		return b.handleDeadline(ctx, msg)
	case "nodeadline":
		return b.handleNoDeadline(ctx, msg)
	case "priority":
		return b.handlePriority(ctx, msg)
	case "tag":
		return b.handleTag(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "profile":
		return b.handleProfile(ctx, msg)
	case "top":
		return b.handleTop(ctx, msg)
	case "cancel":
		return b.cancelDialog(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(strings.ToLower(msg.Text)) {
	case strings.ToLower(menuLabelAdd):
		return true, b.askScope(msg.Chat.ID)
	case strings.ToLower(menuLabelTasks):
		return true, b.handleListTasks(ctx, msg)
	case strings.ToLower(menuLabelReport):
		return true, b.handleReport(ctx, msg)
	case strings.ToLower(menuLabelTop):
		return true, b.handleTop(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) cancelDialog(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if err := b.sessions.Finish(ctx, user.ID); err != nil {
		return err
	}
	return b.sendText(msg.Chat.ID, "⏪ Cancelled.")
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.userRepo.UpsertFromTelegram(ctx, from.ID, from.FirstName, from.LastName, from.UserName)
}

func (b *Bot) sendText(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) sendWithReplyMarkup(chatID int64, text string, markup interface{}) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) ackCallback(cb *tgbotapi.CallbackQuery, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(cb.ID, text)); err != nil {
		b.logger.Debug("callback ack", zap.Error(err))
	}
}
