package stats

import "time"

// TaskRow is one task's line in the weekly grid.
type TaskRow struct {
	Task      string  `json:"task"`
	Completed [7]bool `json:"completed"`
	HasToday  bool    `json:"hasToday"`
	Progress  int     `json:"progress"`
}

// DayCount is the number of completed entries logged on a day.
type DayCount struct {
	Day       Day          `json:"day"`
	Weekday   time.Weekday `json:"weekday"`
	Completed int          `json:"completed"`
}

// Summary bundles every derived view of one snapshot of entries.
type Summary struct {
	Today            Day        `json:"today"`
	WeekStart        Day        `json:"weekStart"`
	WeekEnd          Day        `json:"weekEnd"`
	Tasks            []string   `json:"tasks"`
	Rows             []TaskRow  `json:"rows"`
	WeeklyCompletion int        `json:"weeklyCompletion"`
	Streak           int        `json:"streak"`
	Daily            []DayCount `json:"daily"`
	TotalEntries     int        `json:"totalEntries"`
	ActiveDays       int        `json:"activeDays"`
	Marks            DaySet     `json:"-"`
}

// Summarize computes the full set of views for today's week.
func Summarize(entries []Entry, today Day, weekStart time.Weekday) Summary {
	week := WeekOf(today, weekStart)
	days := week.Days()
	tasks := DistinctTasks(entries)

	rows := make([]TaskRow, 0, len(tasks))
	for _, task := range tasks {
		row := TaskRow{
			Task:     task,
			HasToday: HasEntryOn(entries, task, today),
			Progress: TaskWeeklyProgress(entries, task, week),
		}
		for i, day := range days {
			row.Completed[i] = IsCompletedOn(entries, task, day)
		}
		rows = append(rows, row)
	}

	marks := CalendarMarks(entries)
	return Summary{
		Today:            today,
		WeekStart:        week.Start,
		WeekEnd:          week.End(),
		Tasks:            tasks,
		Rows:             rows,
		WeeklyCompletion: AggregateWeeklyCompletion(entries, tasks, week),
		Streak:           DailyStreak(entries, today),
		Daily:            DailyCompletions(entries, week),
		TotalEntries:     len(entries),
		ActiveDays:       len(marks),
		Marks:            marks,
	}
}

// DailyCompletions counts completed entries per day of week, feeding the
// weekly analytics chart.
func DailyCompletions(entries []Entry, week Week) []DayCount {
	out := make([]DayCount, 0, 7)
	for _, day := range week.Days() {
		count := 0
		for _, e := range entries {
			if e.Completed && e.Day() == day {
				count++
			}
		}
		out = append(out, DayCount{Day: day, Weekday: day.Weekday(), Completed: count})
	}
	return out
}

// MarksIn returns the marked days of one month in ascending order.
func MarksIn(marks DaySet, year int, month time.Month) []Day {
	out := make([]Day, 0)
	first := Day{Year: year, Month: month, Day: 1}
	for d := first; d.Month == month; d = d.AddDays(1) {
		if marks.Has(d) {
			out = append(out, d)
		}
	}
	return out
}
