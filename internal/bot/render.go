package bot

import (
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"daily-tracker/internal/model"
	"daily-tracker/internal/service"
	"daily-tracker/internal/stats"
)

const (
	cellDone    = "✓"
	cellMissing = "·"
	maxNameCols = 14
	listLimit   = 20
)

// renderWeek draws the task × weekday grid of the current week.
func renderWeek(summary stats.Summary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📅 <b>Week %s – %s</b>\n", summary.WeekStart, summary.WeekEnd))

	if len(summary.Rows) == 0 {
		b.WriteString("\nNo tasks yet. Add one with /add.")
		return b.String()
	}

	width := 0
	names := make([]string, len(summary.Rows))
	for i, row := range summary.Rows {
		names[i] = shortTitle(row.Task, maxNameCols)
		if n := len([]rune(names[i])); n > width {
			width = n
		}
	}

	header := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		header = append(header, summary.WeekStart.AddDays(i).Weekday().String()[:2])
	}

	b.WriteString("<pre>")
	b.WriteString(fmt.Sprintf("%-*s %s\n", width, "", strings.Join(header, " ")))
	for i, row := range summary.Rows {
		cells := make([]string, 0, 7)
		for _, done := range row.Completed {
			if done {
				cells = append(cells, " "+cellDone)
			} else {
				cells = append(cells, " "+cellMissing)
			}
		}
		name := html.EscapeString(fmt.Sprintf("%-*s", width, names[i]))
		b.WriteString(fmt.Sprintf("%s %s %3d%%\n", name, strings.Join(cells, " "), row.Progress))
	}
	b.WriteString("</pre>\n")
	b.WriteString(fmt.Sprintf("📈 Weekly completion: <b>%d%%</b>\n", summary.WeeklyCompletion))
	b.WriteString("Tap a task to toggle today, ✏️ renames today's entry, 🗑 deletes the task.")
	return b.String()
}

// weekKeyboard builds one button row per task. ids maps a task to any of its
// entries; callbacks carry that id to stay within Telegram's 64 byte limit.
func weekKeyboard(summary stats.Summary, ids map[string]uint) (tgbotapi.InlineKeyboardMarkup, bool) {
	today := todayIndex(summary)
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, row := range summary.Rows {
		id, ok := ids[row.Task]
		if !ok {
			continue
		}
		icon := "⬜"
		if today >= 0 && row.Completed[today] {
			icon = "✅"
		}
		buttons := []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%s %s", icon, shortTitle(row.Task, 24)), fmt.Sprintf("%s%d", cbTogglePrefix, id)),
		}
		if row.HasToday {
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData("✏️", fmt.Sprintf("%s%d", cbEditPrefix, id)))
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData("🗑", fmt.Sprintf("%s%d", cbDeletePrefix, id)))
		rows = append(rows, buttons)
	}
	if len(rows) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

func todayIndex(summary stats.Summary) int {
	for i := 0; i < 7; i++ {
		if summary.WeekStart.AddDays(i) == summary.Today {
			return i
		}
	}
	return -1
}

// latestEntryIDs maps every task to its newest entry; snapshot is newest first.
func latestEntryIDs(snapshot []stats.Entry) map[string]uint {
	ids := make(map[string]uint)
	for _, e := range snapshot {
		if _, ok := ids[e.Task]; !ok {
			ids[e.Task] = e.ID
		}
	}
	return ids
}

func renderStats(summary stats.Summary) string {
	var b strings.Builder
	b.WriteString("📊 <b>Statistics</b>\n")
	b.WriteString(fmt.Sprintf("🔥 Current streak: <b>%s</b>\n", service.Plural(summary.Streak, "day")))
	b.WriteString(fmt.Sprintf("📈 This week: <b>%d%%</b>\n", summary.WeeklyCompletion))
	b.WriteString(fmt.Sprintf("🗂 Total entries: %d\n", summary.TotalEntries))
	b.WriteString(fmt.Sprintf("📆 Active days: %d\n", summary.ActiveDays))

	b.WriteString("\n<b>Completed per day</b>\n<pre>")
	for _, d := range summary.Daily {
		bar := strings.Repeat("▇", min(d.Completed, 20))
		b.WriteString(fmt.Sprintf("%s %s %s %d\n", d.Weekday.String()[:2], d.Day, bar, d.Completed))
	}
	b.WriteString("</pre>")

	if len(summary.Rows) > 0 {
		b.WriteString("\n<b>Per task</b>\n")
		for _, row := range summary.Rows {
			b.WriteString(fmt.Sprintf("%s %3d%% %s\n", service.ProgressBar(row.Progress), row.Progress, html.EscapeString(row.Task)))
		}
	}
	return strings.TrimSpace(b.String())
}

// renderCalendar draws a whole year, marking days that have any entry with "*".
func renderCalendar(marks stats.DaySet, year int, weekStart time.Weekday) string {
	active := 0
	for d := range marks {
		if d.Year == year {
			active++
		}
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗓 <b>%d</b> · %s with entries\n", year, service.Plural(active, "day")))
	for month := time.January; month <= time.December; month++ {
		b.WriteString(fmt.Sprintf("\n<b>%s</b>\n<pre>%s</pre>", month, renderMonth(marks, year, month, weekStart)))
	}
	return b.String()
}

func renderMonth(marks stats.DaySet, year int, month time.Month, weekStart time.Weekday) string {
	var lines []string

	var header strings.Builder
	for i := 0; i < 7; i++ {
		header.WriteString(time.Weekday((int(weekStart) + i) % 7).String()[:2])
		header.WriteByte(' ')
	}
	lines = append(lines, strings.TrimRight(header.String(), " "))

	first := stats.Day{Year: year, Month: month, Day: 1}
	var row strings.Builder
	offset := (int(first.Weekday()) - int(weekStart) + 7) % 7
	row.WriteString(strings.Repeat("   ", offset))
	col := offset
	for d := first; d.Month == month; d = d.AddDays(1) {
		mark := " "
		if marks.Has(d) {
			mark = "*"
		}
		row.WriteString(fmt.Sprintf("%2d%s", d.Day, mark))
		col++
		if col == 7 {
			lines = append(lines, strings.TrimRight(row.String(), " "))
			row.Reset()
			col = 0
		}
	}
	if col > 0 {
		lines = append(lines, strings.TrimRight(row.String(), " "))
	}
	return strings.Join(lines, "\n")
}

func renderDay(day stats.Day, entries []stats.Entry) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🗓 <b>%s</b>\n", day.Time(time.UTC).Format("Mon, 02 Jan 2006")))
	if len(entries) == 0 {
		b.WriteString("— no entries on this day")
		return b.String()
	}
	for _, e := range entries {
		b.WriteString(service.FormatEntry(e))
	}
	return strings.TrimSpace(b.String())
}

// renderEntries lists the newest entries with their ids for /edit and /delete.
func renderEntries(entries []stats.Entry) string {
	if len(entries) == 0 {
		return "No entries yet. Add one with /add."
	}
	var b strings.Builder
	b.WriteString("📝 <b>Latest entries</b>\n")
	for i, e := range entries {
		if i == listLimit {
			b.WriteString(fmt.Sprintf("…and %d more\n", len(entries)-listLimit))
			break
		}
		b.WriteString(fmt.Sprintf("<b>#%d</b> · %s · %s", e.ID, e.Day(), service.FormatEntry(e)))
	}
	b.WriteString("\nEdit with /edit &lt;id&gt; task | description, remove with /delete &lt;id&gt;.")
	return b.String()
}

func renderUsers(users []model.User) string {
	if len(users) == 0 {
		return "No users yet."
	}
	var b strings.Builder
	b.WriteString("👥 <b>Users</b>\n")
	for _, u := range users {
		icon := "👤"
		if u.IsAdmin() {
			icon = "🛡"
		}
		b.WriteString(fmt.Sprintf("%s <b>#%d</b> %s · %s", icon, u.ID, html.EscapeString(u.DisplayName()), u.Role))
		if u.ReminderEnabled && u.ReminderTime != "" {
			b.WriteString(fmt.Sprintf(" · 🔔 %s", u.ReminderTime))
		}
		b.WriteByte('\n')
	}
	return strings.TrimSpace(b.String())
}

func renderLogs(logs []model.AdminLog, loc *time.Location) string {
	if len(logs) == 0 {
		return "Audit log is empty."
	}
	var b strings.Builder
	b.WriteString("🧾 <b>Admin log</b>\n")
	for i, l := range logs {
		if i == listLimit {
			b.WriteString(fmt.Sprintf("…and %d more\n", len(logs)-listLimit))
			break
		}
		target := fmt.Sprintf("#%d", l.TargetUserID)
		if l.TargetUser != nil {
			target = fmt.Sprintf("#%d %s", l.TargetUserID, html.EscapeString(l.TargetUser.DisplayName()))
		}
		b.WriteString(fmt.Sprintf("%s · %s · by #%d → %s\n", l.Timestamp.In(loc).Format("2006-01-02 15:04"), l.Action, l.AdminID, target))
	}
	return strings.TrimSpace(b.String())
}

// parseEditArgs splits "/edit <id> task | description"; a missing "|" keeps the description.
func parseEditArgs(args string) (uint, service.EntryPatch, error) {
	args = strings.TrimSpace(args)
	idPart, rest, _ := strings.Cut(args, " ")
	id, err := parseID(idPart)
	if err != nil {
		return 0, service.EntryPatch{}, err
	}

	rest = strings.TrimSpace(rest)
	if rest == "" {
		return 0, service.EntryPatch{}, errors.New("nothing to change")
	}

	var patch service.EntryPatch
	task, desc, hasDesc := strings.Cut(rest, "|")
	if task = strings.TrimSpace(task); task != "" {
		patch.Task = &task
	}
	if hasDesc {
		desc = strings.TrimSpace(desc)
		patch.Description = &desc
	}
	if patch.Task == nil && patch.Description == nil {
		return 0, service.EntryPatch{}, errors.New("nothing to change")
	}
	return id, patch, nil
}

func parseID(raw string) (uint, error) {
	value, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 64)
	if err != nil || value == 0 {
		return 0, errors.New("id must be a positive number")
	}
	return uint(value), nil
}

// shortTitle keeps the task name as stored, on one line and at most maxLen runes.
func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}

func escape(s string) string {
	return html.EscapeString(s)
}
