package db

import (
	"context"
	"fmt"
)

// MigrationInfo represents the applied schema version
type MigrationInfo struct {
	Version uint `db:"version" json:"version"`
	Dirty   bool `db:"dirty" json:"dirty"`
}

// GetCurrentVersion returns the current migration version
func (db *DB) GetCurrentVersion(ctx context.Context) (*MigrationInfo, error) {
	query := `SELECT version, dirty FROM schema_migrations ORDER BY version DESC LIMIT 1`

	var info MigrationInfo
	if err := db.GetContext(ctx, &info, query); err != nil {
		return nil, fmt.Errorf("failed to get current version: %w", err)
	}

	return &info, nil
}
