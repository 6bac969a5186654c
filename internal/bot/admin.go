package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-tracker/internal/model"
	"daily-tracker/internal/service"
)

// requireAdmin loads the sender and replies with a refusal when they are not an admin.
func (b *Bot) requireAdmin(ctx context.Context, msg *tgbotapi.Message) (*model.User, bool, error) {
	user, err := b.ensureUser(ctx, msg.From)
	if err != nil {
		return nil, false, err
	}
	if !user.IsAdmin() {
		log.Printf("[info] admin command /%s refused for user=%d", msg.Command(), user.ID)
		return user, false, b.sendText(msg.Chat.ID, "⛔ Admins only.")
	}
	return user, true, nil
}

func (b *Bot) handleUsers(ctx context.Context, msg *tgbotapi.Message) error {
	if _, ok, err := b.requireAdmin(ctx, msg); !ok {
		return err
	}
	users, err := b.admin.ListUsers(ctx)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not load users: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, renderUsers(users))
}

func (b *Bot) handleSetRole(ctx context.Context, msg *tgbotapi.Message) error {
	admin, ok, err := b.requireAdmin(ctx, msg)
	if !ok {
		return err
	}

	fields := strings.Fields(msg.CommandArguments())
	if len(fields) != 2 {
		return b.sendText(msg.Chat.ID, "Usage: /setrole &lt;id&gt; &lt;user|admin&gt;")
	}
	id, err := parseID(fields[0])
	if err != nil {
		return b.sendText(msg.Chat.ID, "User id must be a positive number. See /users.")
	}
	role := strings.ToLower(fields[1])

	user, err := b.admin.UpdateUser(ctx, admin, id, service.UserPatch{Role: &role})
	if err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🛡 %s is now %s.", escape(user.DisplayName()), user.Role))
}

func (b *Bot) handleDeleteUser(ctx context.Context, msg *tgbotapi.Message) error {
	admin, ok, err := b.requireAdmin(ctx, msg)
	if !ok {
		return err
	}

	id, err := parseID(msg.CommandArguments())
	if err != nil {
		return b.sendText(msg.Chat.ID, "Usage: /deluser &lt;id&gt;. Ids are listed by /users.")
	}
	if err := b.admin.DeleteUser(ctx, admin, id); err != nil {
		return b.sendText(msg.Chat.ID, userMessage(err))
	}
	b.reminders.Unschedule(id)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("🗑 User #%d deleted with all entries.", id))
}

func (b *Bot) handleLogs(ctx context.Context, msg *tgbotapi.Message) error {
	if _, ok, err := b.requireAdmin(ctx, msg); !ok {
		return err
	}
	logs, err := b.admin.Logs(ctx)
	if err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not load the log: %s", escape(err.Error())))
	}
	return b.sendText(msg.Chat.ID, renderLogs(logs, b.entries.Location()))
}

// handleInterval changes how often every user gets the broadcast report.
func (b *Bot) handleInterval(ctx context.Context, msg *tgbotapi.Message) error {
	if _, ok, err := b.requireAdmin(ctx, msg); !ok {
		return err
	}

	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		b.mu.Lock()
		current := b.config.ReportInterval
		next := b.scheduler.Next(b.reportJob)
		b.mu.Unlock()
		text := fmt.Sprintf("Reports go out every %s.", service.Plural(int(current.Hours()), "hour"))
		if !next.IsZero() {
			text += fmt.Sprintf(" Next one at %s.", next.In(b.entries.Location()).Format("2006-01-02 15:04"))
		}
		return b.sendText(msg.Chat.ID, text+"\nChange it with /interval 4")
	}

	hours, err := strconv.Atoi(args)
	if err != nil || hours <= 0 {
		return b.sendText(msg.Chat.ID, "The interval must be a positive number of hours, for example /interval 6")
	}
	if err := b.ScheduleReports(time.Duration(hours) * time.Hour); err != nil {
		return b.sendText(msg.Chat.ID, fmt.Sprintf("Could not reschedule reports: %s", escape(err.Error())))
	}
	log.Printf("[info] report interval set to %dh by user=%d", hours, msg.From.ID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("Reports will go out every %s.", service.Plural(hours, "hour")))
}
