package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"daily-tracker/internal/model"
	"daily-tracker/internal/repository"
	"daily-tracker/internal/stats"
)

var (
	ErrTaskRequired  = errors.New("task is required")
	ErrEntryNotFound = errors.New("entry not found")
)

// EntryInput represents data required to create an entry.
type EntryInput struct {
	Task        string
	Description string
	Date        *time.Time
	Completed   bool
}

// EntryPatch carries the fields of a partial update; nil fields stay untouched.
type EntryPatch struct {
	Task        *string
	Description *string
	Date        *time.Time
	Completed   *bool
}

// EntryService wraps entry CRUD for one owner and feeds entry snapshots to the stats engine.
type EntryService struct {
	entryRepo *repository.EntryRepository
	loc       *time.Location
	weekStart time.Weekday
	now       func() time.Time
}

func NewEntryService(entryRepo *repository.EntryRepository, loc *time.Location, weekStart time.Weekday) *EntryService {
	if loc == nil {
		loc = time.Local
	}
	return &EntryService{entryRepo: entryRepo, loc: loc, weekStart: weekStart, now: time.Now}
}

func (s *EntryService) Location() *time.Location { return s.loc }

func (s *EntryService) WeekStart() time.Weekday { return s.weekStart }

// Today is the viewer's current calendar day.
func (s *EntryService) Today() stats.Day {
	return stats.DayOf(s.now().In(s.loc))
}

func (s *EntryService) Create(ctx context.Context, user *model.User, input EntryInput) (*model.Entry, error) {
	task := strings.TrimSpace(input.Task)
	if task == "" {
		return nil, ErrTaskRequired
	}

	date := s.now()
	if input.Date != nil && !input.Date.IsZero() {
		date = *input.Date
	}

	entry := model.Entry{
		UserID:      user.ID,
		Task:        task,
		Description: strings.TrimSpace(input.Description),
		Date:        date,
		Completed:   input.Completed,
	}
	if err := s.entryRepo.Create(ctx, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *EntryService) List(ctx context.Context, user *model.User) ([]model.Entry, error) {
	return s.entryRepo.ListByUser(ctx, user.ID)
}

func (s *EntryService) Get(ctx context.Context, user *model.User, entryID uint) (*model.Entry, error) {
	entry, err := s.entryRepo.FindByID(ctx, user.ID, entryID)
	if err != nil {
		return nil, notFound(err)
	}
	return entry, nil
}

func (s *EntryService) Update(ctx context.Context, user *model.User, entryID uint, patch EntryPatch) (*model.Entry, error) {
	entry, err := s.Get(ctx, user, entryID)
	if err != nil {
		return nil, err
	}

	if patch.Task != nil {
		task := strings.TrimSpace(*patch.Task)
		if task == "" {
			return nil, ErrTaskRequired
		}
		entry.Task = task
	}
	if patch.Description != nil {
		entry.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Date != nil && !patch.Date.IsZero() {
		entry.Date = *patch.Date
	}
	if patch.Completed != nil {
		entry.Completed = *patch.Completed
	}

	if err := s.entryRepo.Save(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *EntryService) Delete(ctx context.Context, user *model.User, entryID uint) error {
	return notFound(s.entryRepo.Delete(ctx, user.ID, entryID))
}

// DeleteTask removes every entry logged for task.
func (s *EntryService) DeleteTask(ctx context.Context, user *model.User, task string) (int64, error) {
	removed, err := s.entryRepo.DeleteByTask(ctx, user.ID, task)
	if err != nil {
		return 0, err
	}
	if removed == 0 {
		return 0, ErrEntryNotFound
	}
	return removed, nil
}

// ToggleToday flips today's completion of task. Without an entry for today a
// completed one is created. With duplicates, a completed day is cleared on
// every entry so the day reads as not completed afterwards.
func (s *EntryService) ToggleToday(ctx context.Context, user *model.User, task string) (bool, error) {
	task = strings.TrimSpace(task)
	if task == "" {
		return false, ErrTaskRequired
	}

	todays, err := s.entriesToday(ctx, user, task)
	if err != nil {
		return false, err
	}

	if len(todays) == 0 {
		now := s.now()
		if _, err := s.Create(ctx, user, EntryInput{Task: task, Date: &now, Completed: true}); err != nil {
			return false, err
		}
		return true, nil
	}

	completed := false
	for _, e := range todays {
		if e.Completed {
			completed = true
			break
		}
	}

	if completed {
		for i := range todays {
			if !todays[i].Completed {
				continue
			}
			todays[i].Completed = false
			if err := s.entryRepo.Save(ctx, &todays[i]); err != nil {
				return false, err
			}
		}
		return false, nil
	}

	todays[0].Completed = true
	if err := s.entryRepo.Save(ctx, &todays[0]); err != nil {
		return false, err
	}
	return true, nil
}

// RenameToday renames today's entries of a task. Past days keep their name.
func (s *EntryService) RenameToday(ctx context.Context, user *model.User, oldTask, newTask string) (int, error) {
	newTask = strings.TrimSpace(newTask)
	if newTask == "" {
		return 0, ErrTaskRequired
	}

	todays, err := s.entriesToday(ctx, user, oldTask)
	if err != nil {
		return 0, err
	}
	if len(todays) == 0 {
		return 0, ErrEntryNotFound
	}

	for i := range todays {
		todays[i].Task = newTask
		if err := s.entryRepo.Save(ctx, &todays[i]); err != nil {
			return 0, err
		}
	}
	return len(todays), nil
}

// HasPastEntries reports whether task has entries on days other than today.
func (s *EntryService) HasPastEntries(ctx context.Context, user *model.User, task string) (bool, error) {
	entries, err := s.List(ctx, user)
	if err != nil {
		return false, err
	}
	today := s.Today()
	for _, e := range entries {
		if e.Task == task && s.dayOf(e) != today {
			return true, nil
		}
	}
	return false, nil
}

// EntriesOn returns the user's entries logged on day.
func (s *EntryService) EntriesOn(ctx context.Context, user *model.User, day stats.Day) ([]stats.Entry, error) {
	entries, err := s.List(ctx, user)
	if err != nil {
		return nil, err
	}
	return stats.EntriesOn(s.Snapshot(entries), day), nil
}

// Progress fetches the full entry set and derives every view from it.
func (s *EntryService) Progress(ctx context.Context, user *model.User) (stats.Summary, []stats.Entry, error) {
	return s.ProgressAt(ctx, user, s.now())
}

// ProgressAt is Progress with an explicit reference instant.
func (s *EntryService) ProgressAt(ctx context.Context, user *model.User, now time.Time) (stats.Summary, []stats.Entry, error) {
	entries, err := s.List(ctx, user)
	if err != nil {
		return stats.Summary{}, nil, fmt.Errorf("load entries: %w", err)
	}
	snapshot := s.Snapshot(entries)
	return stats.Summarize(snapshot, stats.DayOf(now.In(s.loc)), s.weekStart), snapshot, nil
}

// Snapshot converts stored entries into the viewer location for the stats engine.
func (s *EntryService) Snapshot(entries []model.Entry) []stats.Entry {
	return ToStatsEntries(entries, s.loc)
}

// ToStatsEntries maps stored entries to engine entries with dates in loc.
func ToStatsEntries(entries []model.Entry, loc *time.Location) []stats.Entry {
	out := make([]stats.Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, stats.Entry{
			ID:          e.ID,
			Task:        e.Task,
			Description: e.Description,
			Date:        e.Date.In(loc),
			Completed:   e.Completed,
		})
	}
	return out
}

func (s *EntryService) entriesToday(ctx context.Context, user *model.User, task string) ([]model.Entry, error) {
	entries, err := s.List(ctx, user)
	if err != nil {
		return nil, err
	}
	today := s.Today()
	out := make([]model.Entry, 0)
	// Oldest first so the toggle always lands on the same entry.
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Task == task && s.dayOf(entries[i]) == today {
			out = append(out, entries[i])
		}
	}
	return out, nil
}

func (s *EntryService) dayOf(e model.Entry) stats.Day {
	return stats.DayOf(e.Date.In(s.loc))
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrEntryNotFound
	}
	return err
}
