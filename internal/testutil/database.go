package testutil

import (
	"testing"

	"keepwarm/internal/db"
)

// SetupTestDB creates a migrated in-memory history database for testing
func SetupTestDB(t *testing.T) *db.DB {
	t.Helper()

	database, err := db.Open(&db.Config{DSN: db.MemoryDSN})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database
}
