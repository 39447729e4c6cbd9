package db

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"
)

var testDBSeq atomic.Int64

// OpenTest returns a migrated in-memory SQLite database private to t and
// installs it as DB for the duration of the test.
func OpenTest(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=on", name, testDBSeq.Add(1))

	conn, err := Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	// one connection keeps the shared in-memory cache free of table locks
	if sqlDB, err := conn.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	if err := Migrate(conn); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}

	previous := DB
	DB = conn

	t.Cleanup(func() {
		DB = previous
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	return conn
}
