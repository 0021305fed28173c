package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Log matches the audit_logs table schema. ResourceID is free-form
// because meal ids are client-chosen strings, not UUIDs.
type Log struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	EventType    string          `json:"event_type"`
	Severity     string          `json:"severity"`
	ResourceType string          `json:"resource_type,omitempty"`
	ResourceID   string          `json:"resource_id,omitempty"`
	Details      json.RawMessage `json:"details,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

// ListParams holds pagination and filtering parameters for audit log queries.
type ListParams struct {
	EventType string
	Severity  string
	From      *time.Time
	To        *time.Time
	Page      int
	PageSize  int
}

func DefaultListParams() ListParams {
	return ListParams{Page: 1, PageSize: 20}
}
