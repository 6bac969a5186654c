package repository

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"daily-tracker/internal/model"
)

// sqlitePragmas let the bot and the HTTP API write to one file without "database is locked" errors.
var sqlitePragmas = []string{"_busy_timeout=5000", "_journal_mode=WAL"}

// NewDB opens the SQLite store and migrates users, entries and audit logs.
func NewDB(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "daily_tracker.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(withPragmas(dsn)), &gorm.Config{
		Logger: dbLogger,
		// Audit logs outlive the users they mention.
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(&model.User{}, &model.Entry{}, &model.AdminLog{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	log.Printf("[info] database ready at %s", dsn)
	return db, nil
}

// withPragmas appends driver options the DSN does not set itself.
func withPragmas(dsn string) string {
	if isMemoryDSN(dsn) {
		return dsn
	}
	var missing []string
	for _, p := range sqlitePragmas {
		key, _, _ := strings.Cut(p, "=")
		if !strings.Contains(dsn, key+"=") {
			missing = append(missing, p)
		}
	}
	if len(missing) == 0 {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(missing, "&")
}

func isMemoryDSN(dsn string) bool {
	return strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory")
}

// ensureDirForSQLite creates the parent directory of a file DSN.
func ensureDirForSQLite(dsn string) error {
	if isMemoryDSN(dsn) {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean, _, _ = strings.Cut(clean, "?")
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}
