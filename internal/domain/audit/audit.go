// Package audit defines the audit trail contract. The postgres
// implementation stores entries in sys_audit with zstd compression for
// large change sets.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"stockforge/internal/core/id"
)

// Action represents the type of audited operation.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionConfirm Action = "confirm"
	ActionCancel  Action = "cancel"
)

// Entry represents a single audit log entry.
type Entry struct {
	ID         id.ID           `db:"id"`
	EntityType string          `db:"entity_type"`
	EntityID   id.ID           `db:"entity_id"`
	Action     Action          `db:"action"`
	UserID     string          `db:"user_id"`
	UserEmail  string          `db:"user_email"`
	Changes    json.RawMessage `db:"changes"`
	Metadata   json.RawMessage `db:"metadata"`
	CreatedAt  time.Time       `db:"created_at"`
}

// Recorder writes audit entries. Implementations fill in the user from
// context when the entry leaves it blank.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error

	// RecordChange marshals the change map and records it.
	RecordChange(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) error

	// EntityHistory returns entries for one entity, newest first.
	EntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error)
}
