package stats

import (
	"fmt"
	"strings"
	"time"
)

const dayLayout = "2006-01-02"

// Day is a calendar date without time of day or location.
type Day struct {
	Year  int
	Month time.Month
	Day   int
}

// DayOf returns the calendar day of t in t's own location.
// Callers convert t into the viewer location first.
func DayOf(t time.Time) Day {
	y, m, d := t.Date()
	return Day{Year: y, Month: m, Day: d}
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, strings.TrimSpace(s))
	if err != nil {
		return Day{}, fmt.Errorf("parse day %q: %w", s, err)
	}
	return DayOf(t), nil
}

// Time returns midnight of d in loc.
func (d Day) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// AddDays moves d by n calendar days.
func (d Day) AddDays(n int) Day {
	return DayOf(d.Time(time.UTC).AddDate(0, 0, n))
}

func (d Day) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

func (d Day) Before(other Day) bool {
	return d.Time(time.UTC).Before(other.Time(time.UTC))
}

func (d Day) IsZero() bool {
	return d == Day{}
}

func (d Day) String() string {
	return d.Time(time.UTC).Format(dayLayout)
}

// MarshalText renders the day as YYYY-MM-DD so it can be used as a JSON map key.
func (d Day) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Week is a seven day window starting at Start.
type Week struct {
	Start Day
}

// WeekOf returns the week containing ref whose first day is weekStart.
func WeekOf(ref Day, weekStart time.Weekday) Week {
	offset := (int(ref.Weekday()) - int(weekStart) + 7) % 7
	return Week{Start: ref.AddDays(-offset)}
}

func (w Week) End() Day {
	return w.Start.AddDays(6)
}

// Days lists the seven days of the week in order.
func (w Week) Days() [7]Day {
	var out [7]Day
	for i := range out {
		out[i] = w.Start.AddDays(i)
	}
	return out
}

func (w Week) Contains(d Day) bool {
	return !d.Before(w.Start) && !w.End().Before(d)
}

// ParseWeekday accepts full or three letter English weekday names.
func ParseWeekday(s string) (time.Weekday, error) {
	value := strings.ToLower(strings.TrimSpace(s))
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := strings.ToLower(wd.String())
		if value == name || value == name[:3] {
			return wd, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", s)
}
