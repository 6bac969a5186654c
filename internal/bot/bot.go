package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/robfig/cron/v3"

	"daily-tracker/internal/config"
	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
	"daily-tracker/internal/service"
)

type conversationStage int

const (
	stageNone conversationStage = iota
	stageTask
	stageDescription
	stageRename
)

const (
	cbTogglePrefix = "toggle:"
	cbEditPrefix   = "edit:"
	cbDeletePrefix = "delete:"
)

type conversationState struct {
	stage conversationStage
	input service.EntryInput
	task  string
}

// confirmationRequest is a pending removal of a task that has history.
type confirmationRequest struct {
	task string
}

// Services groups what the bot talks to.
type Services struct {
	UserRepo  *repository.UserRepository
	Users     *service.UserService
	Entries   *service.EntryService
	Admin     *service.AdminService
	Reminders *service.ReminderService
	Scheduler *service.SchedulerService
}

// Bot aggregates Telegram API with services.
type Bot struct {
	api           *tgbotapi.BotAPI
	userRepo      *repository.UserRepository
	users         *service.UserService
	entries       *service.EntryService
	admin         *service.AdminService
	reminders     *service.ReminderService
	scheduler     *service.SchedulerService
	config        *config.Config
	conversations map[int64]*conversationState
	confirmations map[int64]confirmationRequest
	reportJob     cron.EntryID
	mu            sync.Mutex
}

func New(token string, svc Services, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Printf("[info] bot authorized on account %s", api.Self.UserName)

	return &Bot{
		api:           api,
		userRepo:      svc.UserRepo,
		users:         svc.Users,
		entries:       svc.Entries,
		admin:         svc.Admin,
		reminders:     svc.Reminders,
		scheduler:     svc.Scheduler,
		config:        cfg,
		conversations: make(map[int64]*conversationState),
		confirmations: make(map[int64]confirmationRequest),
	}, nil
}

// Start begins polling updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.api.GetUpdatesChan(updateConfig)

	log.Println("[info] start polling updates")

	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()

	for update := range updates {
		switch {
		case update.CallbackQuery != nil:
			if err := b.handleCallback(ctx, update.CallbackQuery); err != nil {
				log.Printf("handle callback: %v", err)
			}
		case update.Message != nil:
			if update.Message.Chat == nil || !update.Message.Chat.IsPrivate() {
				continue
			}
			if err := b.handleMessage(ctx, update.Message); err != nil {
				log.Printf("handle message: %v", err)
			}
		}
	}

	return nil
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() && isCancelDialogInput(msg.Text) {
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
	}

	if msg.IsCommand() {
		log.Printf("[info] command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
		return b.handleCommand(ctx, msg)
	}

	if pending, ok := b.getConfirmation(msg.From.ID); ok {
		return b.handleConfirmationResponse(ctx, msg, pending)
	}

	if b.hasConversation(msg.From.ID) {
		log.Printf("[info] conversation step %d from %d", b.getConversation(msg.From.ID).stage, msg.From.ID)
		return b.handleConversation(ctx, msg)
	}

	return b.sendText(msg.Chat.ID, "I did not get that. Send /add to log a task or /help for the command list.")
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(ctx, msg)
	case "add":
		return b.startAddConversation(ctx, msg)
	case "week":
		return b.handleWeek(ctx, msg)
	case "toggle":
		return b.handleToggle(ctx, msg)
	case "stats":
		return b.handleStats(ctx, msg)
	case "calendar":
		return b.handleCalendar(ctx, msg)
	case "day":
		return b.handleDay(ctx, msg)
	case "entries":
		return b.handleEntries(ctx, msg)
	case "edit":
		return b.handleEdit(ctx, msg)
	case "delete":
		return b.handleDelete(ctx, msg)
	case "remind":
		return b.handleRemind(ctx, msg)
	case "token":
		return b.handleToken(ctx, msg)
	case "report":
		return b.handleReport(ctx, msg)
	case "interval":
		return b.handleInterval(ctx, msg)
	case "users":
		return b.handleUsers(ctx, msg)
	case "setrole":
		return b.handleSetRole(ctx, msg)
	case "deluser":
		return b.handleDeleteUser(ctx, msg)
	case "logs":
		return b.handleLogs(ctx, msg)
	case "cancel":
		b.clearConversation(msg.From.ID)
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "⏪ Input cancelled.")
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. See /help.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch normalizeInput(msg.Text) {
	case strings.ToLower(menuLabelAdd):
		return true, b.startAddConversation(ctx, msg)
	case strings.ToLower(menuLabelWeek):
		return true, b.handleWeek(ctx, msg)
	case strings.ToLower(menuLabelStats):
		return true, b.handleStats(ctx, msg)
	case strings.ToLower(menuLabelHelp):
		return true, b.handleHelp(ctx, msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil {
		return nil
	}

	data := cb.Data
	var prefix string
	for _, p := range []string{cbTogglePrefix, cbEditPrefix, cbDeletePrefix} {
		if strings.HasPrefix(data, p) {
			prefix = p
			break
		}
	}
	if prefix == "" {
		b.answerCallback(cb.ID, "")
		return nil
	}

	log.Printf("[info] callback %s user=%d entry=%s", strings.TrimSuffix(prefix, ":"), cb.From.ID, strings.TrimPrefix(data, prefix))
	entryID, err := parseID(strings.TrimPrefix(data, prefix))
	if err != nil {
		b.answerCallback(cb.ID, "")
		return nil
	}

	user, err := b.ensureUser(ctx, cb.From)
	if err != nil {
		b.answerCallback(cb.ID, "")
		return err
	}
	entry, err := b.entries.Get(ctx, user, entryID)
	if err != nil {
		b.answerCallback(cb.ID, userMessage(err))
		return nil
	}

	chatID := cb.Message.Chat.ID
	switch prefix {
	case cbTogglePrefix:
		completed, err := b.entries.ToggleToday(ctx, user, entry.Task)
		if err != nil {
			b.answerCallback(cb.ID, userMessage(err))
			return err
		}
		if completed {
			b.answerCallback(cb.ID, "✅ Done today")
		} else {
			b.answerCallback(cb.ID, "⬜ Not done today")
		}
		return b.editWeek(ctx, chatID, cb.Message.MessageID, user)
	case cbEditPrefix:
		b.answerCallback(cb.ID, "")
		b.setConversation(cb.From.ID, &conversationState{stage: stageRename, task: entry.Task})
		return b.sendWithReplyMarkup(chatID, fmt.Sprintf("✏️ New name for today's «%s»?", escape(entry.Task)), cancelKeyboard())
	default:
		b.answerCallback(cb.ID, "")
		return b.requestTaskDeletion(ctx, chatID, cb.From.ID, user, entry.Task)
	}
}

// requestTaskDeletion removes a task that only exists today right away and
// asks first when older history would be lost.
func (b *Bot) requestTaskDeletion(ctx context.Context, chatID, telegramID int64, user *model.User, task string) error {
	past, err := b.entries.HasPastEntries(ctx, user, task)
	if err != nil {
		return err
	}
	if !past {
		return b.deleteTaskAndRefresh(ctx, chatID, user, task)
	}
	b.setConfirmation(telegramID, confirmationRequest{task: task})
	text := fmt.Sprintf("«%s» has entries on earlier days. Delete the task with its whole history?", escape(task))
	return b.sendWithReplyMarkup(chatID, text, confirmKeyboard())
}

func (b *Bot) handleConfirmationResponse(ctx context.Context, msg *tgbotapi.Message, req confirmationRequest) error {
	text := strings.TrimSpace(msg.Text)
	switch {
	case isConfirmInput(text):
		b.clearConfirmation(msg.From.ID)
		user, err := b.ensureUser(ctx, msg.From)
		if err != nil {
			return err
		}
		return b.deleteTaskAndRefresh(ctx, msg.Chat.ID, user, req.task)
	case isCancelInput(text):
		b.clearConfirmation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "↩️ Nothing deleted.")
	default:
		return b.sendWithReplyMarkup(msg.Chat.ID, "Confirm or cancel the deletion.", confirmKeyboard())
	}
}

func (b *Bot) deleteTaskAndRefresh(ctx context.Context, chatID int64, user *model.User, task string) error {
	removed, err := b.entries.DeleteTask(ctx, user, task)
	if err != nil {
		return b.sendText(chatID, userMessage(err))
	}
	log.Printf("[info] task deleted task=%q entries=%d user=%d", task, removed, user.ID)
	if err := b.sendText(chatID, fmt.Sprintf("🗑 «%s» deleted (%s).", escape(task), service.Plural(int(removed), "record"))); err != nil {
		return err
	}
	return b.sendWeek(ctx, chatID, user)
}

// SendDailyReports sends a summary to every known user.
func (b *Bot) SendDailyReports(ctx context.Context) error {
	users, err := b.userRepo.ListAll(ctx)
	if err != nil {
		return err
	}
	now := time.Now()
	for _, user := range users {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		text, err := b.reminders.DailySummary(ctx, user, now)
		if err != nil {
			log.Printf("build summary for user %d: %v", user.TelegramID, err)
			continue
		}
		if err := b.sendText(user.TelegramID, text); err != nil {
			log.Printf("send summary to %d: %v", user.TelegramID, err)
		}
	}
	return nil
}

// ScheduleReports (re)registers the periodic report job.
func (b *Bot) ScheduleReports(interval time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id, err := b.scheduler.ScheduleInterval(interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := b.SendDailyReports(ctx); err != nil {
			log.Printf("send reports: %v", err)
		}
	})
	if err != nil {
		return err
	}
	if b.reportJob != 0 {
		b.scheduler.Remove(b.reportJob)
	}
	b.reportJob = id
	b.config.ReportInterval = interval
	return nil
}

// Notify delivers a reminder message; it is the reminder service's notifier.
func (b *Bot) Notify(user model.User, text string) {
	if err := b.sendText(user.TelegramID, text); err != nil {
		log.Printf("send reminder to %d: %v", user.TelegramID, err)
	}
}

func (b *Bot) ensureUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	return b.users.Ensure(ctx, from.ID, from.FirstName, from.LastName, from.UserName, b.config.IsAdmin(from.ID))
}

func (b *Bot) answerCallback(id, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(id, text)); err != nil {
		log.Printf("callback ack: %v", err)
	}
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

func (b *Bot) getConfirmation(userID int64) (confirmationRequest, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	req, ok := b.confirmations[userID]
	return req, ok
}

func (b *Bot) setConfirmation(userID int64, req confirmationRequest) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.confirmations[userID] = req
}

func (b *Bot) clearConfirmation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.confirmations, userID)
}

func (b *Bot) setConversation(userID int64, state *conversationState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conversations[userID] = state
}

func (b *Bot) getConversation(userID int64) *conversationState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conversations[userID]
}

func (b *Bot) hasConversation(userID int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.conversations[userID]
	return ok
}

func (b *Bot) clearConversation(userID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.conversations, userID)
}

// userMessage turns service errors into chat replies.
func userMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrTaskRequired):
		return "Task name cannot be empty."
	case errors.Is(err, service.ErrEntryNotFound):
		return "Entry not found."
	case errors.Is(err, service.ErrUserNotFound):
		return "User not found."
	case errors.Is(err, service.ErrSelfEdit):
		return "You cannot change your own account."
	case errors.Is(err, service.ErrLastAdmin):
		return "The last admin cannot be deleted."
	case errors.Is(err, service.ErrInvalidRole):
		return "Role must be user or admin."
	case errors.Is(err, service.ErrInvalidReminderTime):
		return "Use HH:MM, for example /remind 08:30, or /remind off."
	default:
		return fmt.Sprintf("Error: %s", escape(err.Error()))
	}
}

func parseYear(raw string, fallback int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 1970 || year > 9999 {
		return 0, errors.New("year must be a number like 2026")
	}
	return year, nil
}
