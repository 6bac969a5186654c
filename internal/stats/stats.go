// Package stats derives streaks, weekly completion and calendar marks from a
// flat list of dated task entries. Every function is pure: results depend only
// on the arguments, nothing is cached between calls.
package stats

import (
	"math"
	"sort"
	"time"
)

// Entry is the view of a stored entry the calculations need.
// Date must already be expressed in the viewer location.
type Entry struct {
	ID          uint      `json:"id"`
	Task        string    `json:"task"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Completed   bool      `json:"completed"`
}

// Day returns the calendar day the entry belongs to.
func (e Entry) Day() Day {
	return DayOf(e.Date)
}

// DaySet is a membership set of calendar days.
type DaySet map[Day]struct{}

func (s DaySet) Has(d Day) bool {
	_, ok := s[d]
	return ok
}

// Sorted returns the set's days in ascending order.
func (s DaySet) Sorted() []Day {
	out := make([]Day, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// DistinctTasks returns every task name once, in first-seen order.
func DistinctTasks(entries []Entry) []string {
	seen := make(map[string]struct{}, len(entries))
	out := make([]string, 0)
	for _, e := range entries {
		if _, ok := seen[e.Task]; ok {
			continue
		}
		seen[e.Task] = struct{}{}
		out = append(out, e.Task)
	}
	return out
}

// HasEntryOn reports whether task has any entry on day.
func HasEntryOn(entries []Entry, task string, day Day) bool {
	for _, e := range entries {
		if e.Task == task && e.Day() == day {
			return true
		}
	}
	return false
}

// IsCompletedOn reports whether any entry of task on day is completed.
func IsCompletedOn(entries []Entry, task string, day Day) bool {
	for _, e := range entries {
		if e.Completed && e.Task == task && e.Day() == day {
			return true
		}
	}
	return false
}

// CompletedDays counts the days of week on which task was completed.
func CompletedDays(entries []Entry, task string, week Week) int {
	count := 0
	for _, day := range week.Days() {
		if IsCompletedOn(entries, task, day) {
			count++
		}
	}
	return count
}

// TaskWeeklyProgress is the share of the week's seven days on which task was
// completed, as a whole percent.
func TaskWeeklyProgress(entries []Entry, task string, week Week) int {
	return percent(CompletedDays(entries, task, week), 7)
}

// AggregateWeeklyCompletion is the share of all task-days of the week that
// were completed. No tasks yields 0.
func AggregateWeeklyCompletion(entries []Entry, tasks []string, week Week) int {
	if len(tasks) == 0 {
		return 0
	}
	total := 0
	for _, task := range tasks {
		total += CompletedDays(entries, task, week)
	}
	return percent(total, len(tasks)*7)
}

// DailyStreak counts consecutive days, ending at today, on which at least one
// entry of any task was completed.
func DailyStreak(entries []Entry, today Day) int {
	completed := make(DaySet)
	for _, e := range entries {
		if e.Completed {
			completed[e.Day()] = struct{}{}
		}
	}
	streak := 0
	for cursor := today; completed.Has(cursor); cursor = cursor.AddDays(-1) {
		streak++
	}
	return streak
}

// CalendarMarks returns every day that has at least one entry.
func CalendarMarks(entries []Entry) DaySet {
	marks := make(DaySet, len(entries))
	for _, e := range entries {
		marks[e.Day()] = struct{}{}
	}
	return marks
}

// EntriesOn returns the entries dated on day, in input order.
func EntriesOn(entries []Entry, day Day) []Entry {
	out := make([]Entry, 0)
	for _, e := range entries {
		if e.Day() == day {
			out = append(out, e)
		}
	}
	return out
}

// percent rounds half away from zero: 3/7 -> 43, 7/56 -> 13.
func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(float64(part) * 100 / float64(whole)))
}
