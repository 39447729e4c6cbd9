package db

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

func TestLoggerSkipsMissingRows(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := newLogger(zap.New(core))

	query := func() (string, int64) { return "SELECT * FROM users WHERE id = 1", 0 }

	log.Trace(context.Background(), time.Now(), query, gorm.ErrRecordNotFound)
	if logs.Len() != 0 {
		t.Fatalf("missing row logged: %v", logs.All())
	}

	log.Trace(context.Background(), time.Now(), query, errors.New("no such table: users"))
	if logs.Len() != 1 {
		t.Fatalf("want one entry for a failed query, got %d", logs.Len())
	}

	entry := logs.All()[0]
	if entry.Level != zapcore.WarnLevel {
		t.Fatalf("level %v, want warn", entry.Level)
	}
	if !containsAll(entry.Message, "no such table: users", "SELECT * FROM users") {
		t.Fatalf("unexpected message %q", entry.Message)
	}
}

func TestLoggerReportsSlowQueries(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	log := newLogger(zap.New(core))

	begin := time.Now().Add(-2 * slowQueryThreshold)
	log.Trace(context.Background(), begin, func() (string, int64) { return "SELECT 1", 1 }, nil)

	if logs.Len() != 1 || !containsAll(logs.All()[0].Message, "SLOW SQL") {
		t.Fatalf("slow query not reported: %v", logs.All())
	}
}

func TestOpenTestMigrates(t *testing.T) {
	conn := OpenTest(t)

	if DB != conn {
		t.Fatalf("OpenTest did not install the test connection")
	}
	if err := Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if !conn.Migrator().HasTable("notification_logs") {
		t.Fatalf("tables not migrated")
	}
}

func containsAll(s string, parts ...string) bool {
	for _, part := range parts {
		if !strings.Contains(s, part) {
			return false
		}
	}
	return true
}
