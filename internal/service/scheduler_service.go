package service

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

var ErrInvalidReminderTime = errors.New("reminder time must be HH:MM")

// SchedulerService wraps the cron runner shared by reports and reminders.
type SchedulerService struct {
	cron *cron.Cron
}

func NewSchedulerService(loc *time.Location) *SchedulerService {
	if loc == nil {
		loc = time.Local
	}
	return &SchedulerService{
		cron: cron.New(cron.WithLocation(loc), cron.WithSeconds()),
	}
}

// ScheduleDaily registers a job firing every day at clock, an HH:MM string.
func (s *SchedulerService) ScheduleDaily(clock string, job func()) (cron.EntryID, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return 0, err
	}
	// second minute hour dom month dow
	return s.cron.AddFunc(fmt.Sprintf("0 %d %d * * *", minute, hour), job)
}

// ScheduleInterval registers a job repeating every interval, rounded down to whole seconds.
func (s *SchedulerService) ScheduleInterval(interval time.Duration, job func()) (cron.EntryID, error) {
	if interval <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), job)
}

// Remove drops a job; unknown ids are ignored.
func (s *SchedulerService) Remove(id cron.EntryID) {
	s.cron.Remove(id)
}

// Next reports when a job fires next, zero when it is unknown or the runner is stopped.
func (s *SchedulerService) Next(id cron.EntryID) time.Time {
	return s.cron.Entry(id).Next
}

func (s *SchedulerService) Start() {
	s.cron.Start()
}

// Stop halts the runner and waits for running jobs.
func (s *SchedulerService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// ParseClock splits an HH:MM string into hour and minute.
func ParseClock(clock string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(clock), ":")
	if len(parts) != 2 || len(parts[1]) != 2 {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidReminderTime, clock)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: bad hour in %q", ErrInvalidReminderTime, clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: bad minute in %q", ErrInvalidReminderTime, clock)
	}
	return hour, minute, nil
}
