package database

import (
	"testing"
)

// SetupTestSQLite opens an in-memory SQLite database that is closed when the test ends
func SetupTestSQLite(t testing.TB) *SQLite {
	t.Helper()

	db, err := OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close test database: %v", err)
		}
	})

	return db
}
