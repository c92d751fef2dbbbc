package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"keepwarm/internal/errors"

	"github.com/google/uuid"
)

// HistoryFilter narrows a history listing
type HistoryFilter struct {
	InstanceName string
	PaginationOptions
}

// HistoryRepository records and lists lifecycle events
type HistoryRepository struct {
	db      *DB
	runtime string
	now     func() time.Time
}

// NewHistoryRepository creates a repository tagging events with runtime
func NewHistoryRepository(db *DB, runtime string) *HistoryRepository {
	return &HistoryRepository{db: db, runtime: runtime, now: time.Now}
}

// RecordEvent appends one event to the journal
func (r *HistoryRepository) RecordEvent(ctx context.Context, instance, event, containerID string, port int, detail string) error {
	kind := EventKind(event)
	if !kind.Valid() {
		return errors.InvalidInput("event", fmt.Sprintf("unknown event kind %q", event))
	}

	ev := &Event{
		ID:           uuid.New().String(),
		InstanceName: instance,
		Event:        kind,
		ContainerID:  containerID,
		Port:         port,
		Runtime:      r.runtime,
		Detail:       detail,
		CreatedAt:    r.now().UTC(),
	}

	query := `
		INSERT INTO instance_events (id, instance_name, event, container_id, port, runtime, detail, created_at)
		VALUES (:id, :instance_name, :event, :container_id, :port, :runtime, :detail, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, ev); err != nil {
		return errors.DatabaseError("record event", err)
	}
	return nil
}

// List returns events newest first, with the total number matching filter
func (r *HistoryRepository) List(ctx context.Context, filter HistoryFilter) ([]*Event, int, error) {
	page := filter.PaginationOptions
	if page.Page == 0 && page.PageSize == 0 {
		page = DefaultPaginationOptions()
	}
	if err := page.Validate(); err != nil {
		return nil, 0, errors.InvalidInput("pagination", err.Error())
	}

	var where []string
	var args []interface{}
	if filter.InstanceName != "" {
		where = append(where, "instance_name = ?")
		args = append(args, filter.InstanceName)
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM instance_events " + clause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, errors.DatabaseError("count events", err)
	}

	query := fmt.Sprintf(`
		SELECT id, instance_name, event, container_id, port, runtime, detail, created_at
		FROM instance_events
		%s
		ORDER BY created_at DESC, rowid DESC
		LIMIT ? OFFSET ?
	`, clause)
	args = append(args, page.PageSize, page.Offset())

	var events []*Event
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, 0, errors.DatabaseError("list events", err)
	}
	return events, total, nil
}
