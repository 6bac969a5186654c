package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"daily-tracker/internal/stats"
)

var defaultOrigins = []string{
	"http://localhost:5173",
	"http://localhost:3000",
	"https://daily-tracker-lwcr.vercel.app",
}

// Config keeps runtime settings for the bot and the REST API.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	ReportInterval time.Duration
	HTTPAddr       string
	Location       *time.Location
	WeekStart      time.Weekday
	AdminIDs       map[int64]bool
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sane defaults.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken:  strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		DatabaseURL:    strings.TrimSpace(os.Getenv("DATABASE_URL")),
		ReportInterval: parseInterval(strings.TrimSpace(os.Getenv("REPORT_INTERVAL_HOURS"))),
		HTTPAddr:       strings.TrimSpace(os.Getenv("HTTP_ADDR")),
		Location:       time.Local,
		WeekStart:      time.Sunday,
		AdminIDs:       make(map[int64]bool),
		AllowedOrigins: append([]string(nil), defaultOrigins...),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "daily_tracker.db"
	}

	if cfg.ReportInterval == 0 {
		cfg.ReportInterval = 5 * time.Hour
	}

	if cfg.HTTPAddr == "" {
		port := strings.TrimSpace(os.Getenv("PORT"))
		if port == "" {
			port = "5000"
		}
		cfg.HTTPAddr = ":" + port
	}

	if tz := strings.TrimSpace(os.Getenv("TIMEZONE")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	if raw := strings.TrimSpace(os.Getenv("WEEK_START_DAY")); raw != "" {
		wd, err := stats.ParseWeekday(raw)
		if err != nil {
			return cfg, fmt.Errorf("WEEK_START_DAY: %w", err)
		}
		cfg.WeekStart = wd
	}

	ids, err := parseAdminIDs(os.Getenv("ADMIN_TELEGRAM_IDS"))
	if err != nil {
		return cfg, fmt.Errorf("ADMIN_TELEGRAM_IDS: %w", err)
	}
	cfg.AdminIDs = ids

	if origin := strings.TrimSpace(os.Getenv("FRONTEND_URL")); origin != "" {
		cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

// IsAdmin reports whether the Telegram account is configured as an admin.
func (c Config) IsAdmin(telegramID int64) bool {
	return c.AdminIDs[telegramID]
}

func parseInterval(raw string) time.Duration {
	if raw == "" {
		return 0
	}
	hours, err := time.ParseDuration(raw + "h")
	if err != nil || hours <= 0 {
		return 0
	}
	return hours
}

func parseAdminIDs(raw string) (map[int64]bool, error) {
	out := make(map[int64]bool)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid telegram id %q", part)
		}
		out[id] = true
	}
	return out, nil
}
