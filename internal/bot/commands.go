package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-tracker/internal/model"
	"daily-tracker/internal/service"
	"daily-tracker/internal/stats"
)

const helpText = "<b>Commands</b>\n" +
	"• /add — log a task for today\n" +
	"• /week — weekly grid with toggles\n" +
	"• /toggle &lt;task&gt; — flip today's completion\n" +
	"• /stats — streak and weekly numbers\n" +
	"• /calendar [year] — days with entries\n" +
	"• /day &lt;YYYY-MM-DD&gt; — entries of one day\n" +
	"• /entries — latest entries with ids\n" +
	"• /edit &lt;id&gt; task | description — change an entry\n" +
	"• /delete &lt;id&gt; — remove one entry\n" +
	"• /remind &lt;HH:MM|off&gt; — daily reminder\n" +
	"• /report — progress report right now\n" +
	"• /token — key for the web dashboard\n" +
	"• /cancel — stop the current input"

const adminHelpText = "\n\n<b>Admin</b>\n" +
	"• /users — all accounts\n" +
	"• /setrole &lt;id&gt; &lt;user|admin&gt;\n" +
	"• /deluser &lt;id&gt; — remove an account with its entries\n" +
	"• /logs — audit trail\n" +
	"• /interval &lt;hours&gt; — broadcast report period"

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	name := strings.TrimSpace(msg.From.FirstName)
	if name == "" {
		name = "there"
	}

	text := fmt.Sprintf(
		"👋 Hi, %s!\n<b>I keep track of your daily habits.</b>\nLog what you did, tick it off, and watch the week fill up.\n\n%s",
		escape(name), helpText,
	)
	if user.IsAdmin() {
		text += adminHelpText
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleHelp(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text := helpText
	if user.IsAdmin() {
		text += adminHelpText
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleReport(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	text, err := b.reminders.DailySummary(ctx, *user, time.Now())
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not build the report: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) startAddConversation(ctx context.Context, msg *tgbotapi.Message) error {
	if _, err := b.ensureUser(ctx, msg.From); err != nil {
		return err
	}
	log.Printf("[info] start add conversation user=%d", msg.From.ID)
	b.clearConfirmation(msg.From.ID)
	b.setConversation(msg.From.ID, &conversationState{stage: stageTask})
	return b.sendWithReplyMarkup(msg.Chat.ID, "🆕 New entry for today.\n<b>Step 1:</b> what did you work on?", cancelKeyboard())
}

func (b *Bot) handleConversation(ctx context.Context, msg *tgbotapi.Message) error {
	state := b.getConversation(msg.From.ID)
	if state == nil {
		return nil
	}

	text := strings.TrimSpace(msg.Text)
	switch state.stage {
	case stageTask:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The task name cannot be empty. Try again.", cancelKeyboard())
		}
		state.input.Task = text
		state.stage = stageDescription
		return b.sendWithReplyMarkup(msg.Chat.ID, "✏️ Add a short description (or press «Skip»).", skipKeyboard())
	case stageDescription:
		if !isSkipInput(text) {
			state.input.Description = text
		}
		err := b.finishEntryCreation(ctx, msg.From, state.input, msg.Chat.ID)
		b.clearConversation(msg.From.ID)
		return err
	case stageRename:
		if text == "" {
			return b.sendWithReplyMarkup(msg.Chat.ID, "The new name cannot be empty.", cancelKeyboard())
		}
		b.clearConversation(msg.From.ID)
		user, err := b.ensureUser(ctx, msg.From)
		if err != nil {
			return err
		}
		renamed, err := b.entries.RenameToday(ctx, user, state.task, text)
		if err != nil {
			return b.sendTextWithRemove(msg.Chat.ID, userMessage(err))
		}
		log.Printf("[info] renamed %d entries %q -> %q user=%d", renamed, state.task, text, user.ID)
		if err := b.sendTextWithRemove(msg.Chat.ID, fmt.Sprintf("✏️ Today's «%s» is now «%s».", escape(state.task), escape(text))); err != nil {
			return err
		}
		return b.sendWeek(ctx, msg.Chat.ID, user)
	default:
		b.clearConversation(msg.From.ID)
		return b.sendText(msg.Chat.ID, "Input reset. Start again with /add.")
	}
}

func (b *Bot) finishEntryCreation(ctx context.Context, from *tgbotapi.User, input service.EntryInput, chatID int64) error {
	user, err := b.ensureUser(ctx, from)
	if err != nil {
		return err
	}

	entry, err := b.entries.Create(ctx, user, input)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not save the entry: %s", userMessage(err)))
	}

	log.Printf("[info] entry created id=%d user=%d", entry.ID, user.ID)

	var summary strings.Builder
	summary.WriteString("✅ <b>Entry saved</b>\n")
	summary.WriteString(fmt.Sprintf("• <b>ID:</b> %d\n", entry.ID))
	summary.WriteString(fmt.Sprintf("• <b>Task:</b> %s\n", escape(entry.Task)))
	if entry.Description != "" {
		summary.WriteString(fmt.Sprintf("• <b>Description:</b> %s\n", escape(entry.Description)))
	}
	summary.WriteString(fmt.Sprintf("• <b>Date:</b> %s\n", entry.Date.In(b.entries.Location()).Format("2006-01-02")))

	if err := b.sendTextWithRemove(chatID, strings.TrimSpace(summary.String())); err != nil {
		return err
	}
	return b.sendWeek(ctx, chatID, user)
}

func (b *Bot) handleWeek(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	return b.sendWeek(ctx, msg.Chat.ID, user)
}

func (b *Bot) weekView(ctx context.Context, user *model.User) (string, tgbotapi.InlineKeyboardMarkup, bool, error) {
	summary, snapshot, err := b.entries.Progress(ctx, user)
	if err != nil {
		return "", tgbotapi.InlineKeyboardMarkup{}, false, err
	}
	markup, ok := weekKeyboard(summary, latestEntryIDs(snapshot))
	return renderWeek(summary), markup, ok, nil
}

func (b *Bot) sendWeek(ctx context.Context, chatID int64, user *model.User) error {
	text, markup, ok, err := b.weekView(ctx, user)
	if err != nil {
		return b.sendText(chatID, fmt.Sprintf("Could not load the week: %s", escape(err.Error())))
	}
	if !ok {
		return b.sendText(chatID, text)
	}
	return b.sendWithReplyMarkup(chatID, text, markup)
}

// editWeek redraws the grid in place after a button press.
func (b *Bot) editWeek(ctx context.Context, chatID int64, messageID int, user *model.User) error {
	text, markup, ok, err := b.weekView(ctx, user)
	if err != nil {
		return err
	}
	var edit tgbotapi.EditMessageTextConfig
	if ok {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		log.Printf("edit week message: %v", err)
	}
	return nil
}

func (b *Bot) handleToggle(ctx context.Context, msg *tgbotapi.Message) error {
	task := strings.TrimSpace(msg.CommandArguments())
	if task == "" {
		return b.sendText(msg.Chat.ID, "Name the task, for example: /toggle Reading")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	completed, err := b.entries.ToggleToday(ctx, user, task)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	state := "⬜ not done"
	if completed {
		state = "✅ done"
	}
	if err := b.sendText(msg.Chat.ID, fmt.Sprintf("«%s» is %s today.", escape(task), state)); err != nil {
		return err
	}
	return b.sendWeek(ctx, msg.Chat.ID, user)
}

func (b *Bot) handleStats(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	summary, _, err := b.entries.Progress(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not load statistics: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, renderStats(summary))
}

func (b *Bot) handleCalendar(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	year, err := parseYear(msg.CommandArguments(), b.entries.Today().Year)
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /calendar or /calendar 2026")
	}
	summary, _, err := b.entries.Progress(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not load the calendar: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, renderCalendar(summary.Marks, year, b.entries.WeekStart()))
}

func (b *Bot) handleDay(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	day := b.entries.Today()
	if args := strings.TrimSpace(msg.CommandArguments()); args != "" {
		day, err = stats.ParseDay(args)
		if err != nil {
			return b.sendText(msg.Chat.ID, "Use the format <code>2026-02-10</code>.")
		}
	}
	entries, err := b.entries.EntriesOn(ctx, user, day)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not load the day: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, renderDay(day, entries))
}

func (b *Bot) handleEntries(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	entries, err := b.entries.List(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not load entries: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, renderEntries(b.entries.Snapshot(entries)))
}

func (b *Bot) handleEdit(ctx context.Context, msg *tgbotapi.Message) error {
	id, patch, err := parseEditArgs(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /edit &lt;id&gt; new task | new description")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	entry, err := b.entries.Update(ctx, user, id, patch)
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	log.Printf("[info] entry updated id=%d user=%d", entry.ID, user.ID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✏️ Entry #%d updated: %s", entry.ID, escape(entry.Task)))
}

func (b *Bot) handleDelete(ctx context.Context, msg *tgbotapi.Message) error {
	id, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /delete &lt;id&gt;. Ids are listed by /entries.")
	}
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	if err := b.entries.Delete(ctx, user, id); err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	log.Printf("[info] entry deleted id=%d user=%d", id, user.ID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 Entry #%d deleted.", id))
}

func (b *Bot) handleRemind(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}

	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		status := "off"
		if user.ReminderEnabled && user.ReminderTime != "" {
			status = "every day at " + user.ReminderTime
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("🔔 Reminder: %s (%s).\nSet it with /remind 08:30 or turn it off with /remind off.", status, b.entries.Location()))
	}

	if err := b.reminders.SetReminder(ctx, user, args); err != nil {
		if errors.Is(err, service.ErrInvalidReminderTime) {
			return b.sendText(msg.Chat.ID, userMessage(err))
		}
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not save the reminder: %s", escape(err.Error())))
	}
	if !user.ReminderEnabled {
		return b.sendText(msg.Chat.ID, "🔕 Reminder turned off.")
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🔔 I'll send your report every day at %s.", user.ReminderTime))
}

func (b *Bot) handleToken(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return err
	}
	token, err := b.users.IssueToken(ctx, user)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not issue a token: %s", escape(err.Error())))
	}
	log.Printf("[info] api token issued user=%d", user.ID)
	text := fmt.Sprintf(
		"🔑 Your API token:\n<code>%s</code>\n\nSend it as <code>Authorization: Bearer &lt;token&gt;</code>. Running /token again revokes this one.",
		token,
	)
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) sendTextWithRemove(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	if _, err := b.api.Send(msg); err != nil {
		return err
	}
	return b.sendMenuPlaceholder(chatID)
}

func (b *Bot) sendMenuPlaceholder(chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, "🔹 Main menu")
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = mainMenuKeyboard()
	_, err := b.api.Send(msg)
	return err
}
