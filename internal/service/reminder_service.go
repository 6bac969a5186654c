package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
	"daily-tracker/internal/stats"
)

// Notifier delivers a rendered HTML message to a user.
type Notifier func(user model.User, text string)

// ReminderService builds progress summaries and keeps one daily reminder job per user.
type ReminderService struct {
	entries   *EntryService
	userRepo  *repository.UserRepository
	scheduler *SchedulerService

	mu     sync.Mutex
	jobs   map[uint]cron.EntryID
	notify Notifier
}

func NewReminderService(entries *EntryService, userRepo *repository.UserRepository, scheduler *SchedulerService) *ReminderService {
	return &ReminderService{
		entries:   entries,
		userRepo:  userRepo,
		scheduler: scheduler,
		jobs:      make(map[uint]cron.EntryID),
	}
}

// SetNotifier wires the delivery channel used by reminder jobs.
func (s *ReminderService) SetNotifier(fn Notifier) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// DailySummary renders the user's progress as Telegram HTML.
func (s *ReminderService) DailySummary(ctx context.Context, user model.User, now time.Time) (string, error) {
	summary, snapshot, err := s.entries.ProgressAt(ctx, &user, now)
	if err != nil {
		return "", err
	}
	todays := stats.EntriesOn(snapshot, summary.Today)

	var builder strings.Builder
	builder.WriteString("📋 <b>Daily report</b>\n")
	builder.WriteString(fmt.Sprintf("🗓 %s\n\n", summary.Today.Time(s.entries.Location()).Format("Mon, 02 Jan 2006")))

	builder.WriteString(fmt.Sprintf("🔥 Streak: <b>%s</b>\n", Plural(summary.Streak, "day")))
	builder.WriteString(fmt.Sprintf("📈 This week: <b>%d%%</b> (%s – %s)\n", summary.WeeklyCompletion, summary.WeekStart, summary.WeekEnd))

	builder.WriteString("\n✅ <b>Today</b>\n")
	if len(todays) == 0 {
		builder.WriteString("— nothing logged yet\n")
	} else {
		for _, e := range todays {
			builder.WriteString(FormatEntry(e))
		}
	}

	if len(summary.Rows) > 0 {
		builder.WriteString("\n📊 <b>Weekly progress</b>\n")
		for _, row := range summary.Rows {
			builder.WriteString(fmt.Sprintf("%s %3d%% %s\n", ProgressBar(row.Progress), row.Progress, html.EscapeString(row.Task)))
		}
	}

	return strings.TrimSpace(builder.String()), nil
}

// SetReminder enables a daily reminder at an HH:MM clock time, or disables it with "off".
func (s *ReminderService) SetReminder(ctx context.Context, user *model.User, value string) error {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "off" {
		user.ReminderEnabled = false
		if err := s.userRepo.Save(ctx, user); err != nil {
			return err
		}
		s.Unschedule(user.ID)
		return nil
	}

	hour, minute, err := ParseClock(value)
	if err != nil {
		return err
	}
	user.ReminderTime = fmt.Sprintf("%02d:%02d", hour, minute)
	user.ReminderEnabled = true
	if err := s.userRepo.Save(ctx, user); err != nil {
		return err
	}
	return s.Reschedule(*user)
}

// Sync registers reminder jobs for every user that has one enabled.
func (s *ReminderService) Sync(ctx context.Context) error {
	users, err := s.userRepo.ListReminderEnabled(ctx)
	if err != nil {
		return fmt.Errorf("list reminder users: %w", err)
	}
	for _, user := range users {
		if err := s.Reschedule(user); err != nil {
			log.Printf("schedule reminder for user %d: %v", user.ID, err)
		}
	}
	log.Printf("[info] %d reminder(s) scheduled", len(users))
	return nil
}

// Reschedule replaces the user's reminder job with one matching their settings.
func (s *ReminderService) Reschedule(user model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.jobs[user.ID]; ok {
		s.scheduler.Remove(id)
		delete(s.jobs, user.ID)
	}
	if !user.ReminderEnabled || user.ReminderTime == "" {
		return nil
	}

	userID := user.ID
	id, err := s.scheduler.ScheduleDaily(user.ReminderTime, func() { s.remind(userID) })
	if err != nil {
		return err
	}
	s.jobs[user.ID] = id
	return nil
}

func (s *ReminderService) Unschedule(userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id, ok := s.jobs[userID]; ok {
		s.scheduler.Remove(id)
		delete(s.jobs, userID)
	}
}

// Job returns the cron entry of a user's reminder.
func (s *ReminderService) Job(userID uint) (cron.EntryID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.jobs[userID]
	return id, ok
}

func (s *ReminderService) remind(userID uint) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.Unschedule(userID)
			return
		}
		log.Printf("reminder load user %d: %v", userID, err)
		return
	}

	text, err := s.DailySummary(ctx, *user, time.Now())
	if err != nil {
		log.Printf("reminder summary for user %d: %v", userID, err)
		return
	}

	s.mu.Lock()
	notify := s.notify
	s.mu.Unlock()
	if notify != nil {
		notify(*user, text)
	}
}

// FormatEntry renders one entry line with its completion icon and description.
func FormatEntry(e stats.Entry) string {
	var sb strings.Builder
	icon := "⬜"
	if e.Completed {
		icon = "✅"
	}
	sb.WriteString(fmt.Sprintf("%s %s", icon, html.EscapeString(e.Task)))
	if desc := strings.TrimSpace(e.Description); desc != "" {
		sb.WriteString(fmt.Sprintf("\n   📝 %s", html.EscapeString(desc)))
	}
	sb.WriteByte('\n')
	return sb.String()
}

// ProgressBar draws a ten segment bar for a 0..100 percentage.
func ProgressBar(percent int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := (percent + 5) / 10
	return strings.Repeat("▰", filled) + strings.Repeat("▱", 10-filled)
}

// Plural formats a count with an English noun, "1 day" or "3 days".
func Plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
