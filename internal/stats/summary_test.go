package stats

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestSummarize(t *testing.T) {
	entries := []Entry{
		makeEntry("Read", mon, true),
		makeEntry("Gym", tue, true),
		makeEntry("Read", wed, true),
		makeEntry("Gym", wed, false),
		makeEntry("Read", Day{2026, time.January, 30}, true),
	}

	s := Summarize(entries, wed, time.Sunday)

	if s.WeekStart != sun || s.WeekEnd != sat {
		t.Fatalf("unexpected week: %s..%s", s.WeekStart, s.WeekEnd)
	}
	if len(s.Rows) != 2 || s.Rows[0].Task != "Read" || s.Rows[1].Task != "Gym" {
		t.Fatalf("unexpected rows: %#v", s.Rows)
	}
	read := s.Rows[0]
	if !read.Completed[1] || read.Completed[2] || !read.Completed[3] {
		t.Fatalf("unexpected Read grid: %v", read.Completed)
	}
	if read.Progress != 29 || !read.HasToday {
		t.Fatalf("unexpected Read row: %#v", read)
	}
	gym := s.Rows[1]
	if gym.Progress != 14 || !gym.HasToday || gym.Completed[3] {
		t.Fatalf("unexpected Gym row: %#v", gym)
	}
	// 3 completed task-days out of 14.
	if s.WeeklyCompletion != 21 {
		t.Fatalf("WeeklyCompletion = %d, want 21", s.WeeklyCompletion)
	}
	if s.Streak != 3 {
		t.Fatalf("Streak = %d, want 3", s.Streak)
	}
	if s.TotalEntries != 5 || s.ActiveDays != 4 {
		t.Fatalf("unexpected totals: entries=%d active=%d", s.TotalEntries, s.ActiveDays)
	}
	if len(s.Daily) != 7 || s.Daily[3].Completed != 1 || s.Daily[3].Weekday != time.Wednesday {
		t.Fatalf("unexpected daily counts: %#v", s.Daily)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil, wed, time.Sunday)
	if len(s.Tasks) != 0 || len(s.Rows) != 0 {
		t.Fatalf("expected no tasks, got %#v", s)
	}
	if s.WeeklyCompletion != 0 || s.Streak != 0 || s.ActiveDays != 0 {
		t.Fatalf("expected zero summary, got %#v", s)
	}
}

func TestSummaryJSONUsesISODays(t *testing.T) {
	s := Summarize([]Entry{makeEntry("Read", mon, true)}, wed, time.Sunday)
	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(raw), `"weekStart":"2026-02-08"`) {
		t.Fatalf("unexpected json: %s", raw)
	}
}

func TestMarksIn(t *testing.T) {
	marks := CalendarMarks([]Entry{
		makeEntry("Read", Day{2026, time.February, 28}, false),
		makeEntry("Read", mon, true),
		makeEntry("Read", Day{2026, time.March, 1}, true),
	})
	got := MarksIn(marks, 2026, time.February)
	if len(got) != 2 || got[0] != mon || got[1] != (Day{2026, time.February, 28}) {
		t.Fatalf("unexpected marks: %v", got)
	}
}

func TestDaySetSorted(t *testing.T) {
	marks := CalendarMarks([]Entry{
		makeEntry("Read", Day{2026, time.March, 1}, true),
		makeEntry("Read", Day{2025, time.December, 31}, false),
		makeEntry("Gym", mon, true),
	})
	got := marks.Sorted()
	want := []Day{{2025, time.December, 31}, mon, {2026, time.March, 1}}
	if len(got) != len(want) {
		t.Fatalf("sorted = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sorted = %v, want %v", got, want)
		}
	}
}

func TestParseDay(t *testing.T) {
	d, err := ParseDay(" 2026-02-11 ")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if d != wed || d.Weekday() != time.Wednesday {
		t.Fatalf("unexpected day: %v", d)
	}
	if _, err := ParseDay("11.02.2026"); err == nil {
		t.Fatal("expected error for wrong layout")
	}
}

func TestParseWeekday(t *testing.T) {
	tests := map[string]time.Weekday{
		"sunday": time.Sunday,
		"Mon":    time.Monday,
		"SAT":    time.Saturday,
	}
	for in, want := range tests {
		got, err := ParseWeekday(in)
		if err != nil || got != want {
			t.Errorf("ParseWeekday(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseWeekday("someday"); err == nil {
		t.Error("expected error for unknown weekday")
	}
}

func TestDayOfUsesEntryLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*3600)
	late := time.Date(2026, 2, 10, 20, 0, 0, 0, time.UTC)
	if DayOf(late) != tue {
		t.Fatalf("utc day = %s", DayOf(late))
	}
	if DayOf(late.In(tokyo)) != wed {
		t.Fatalf("tokyo day = %s", DayOf(late.In(tokyo)))
	}
}
