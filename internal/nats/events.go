package nats

import (
	"time"

	"github.com/google/uuid"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamEvents = "MEALTRACK_EVENTS"
)

// Subject constants.
const (
	SubjectAnalysisEvent = "mealtrack.events.analysis"
	SubjectMealEvent     = "mealtrack.events.meal"
	SubjectAuditEvent    = "mealtrack.events.audit"
)

// AnalysisEvent is published after a meal photo analysis attempt.
type AnalysisEvent struct {
	UserID     uuid.UUID `json:"user_id"`
	RequestID  string    `json:"request_id"`
	Success    bool      `json:"success"`
	ItemCount  int       `json:"item_count"`
	HadAudio   bool      `json:"had_audio"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// MealEvent is published when a meal record changes.
type MealEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	MealID    string    `json:"meal_id"`
	Action    string    `json:"action"` // created, updated, deleted
	Timestamp time.Time `json:"timestamp"`
}

// AuditEvent is published for compliance/audit logging.
type AuditEvent struct {
	UserID       uuid.UUID `json:"user_id"`
	EventType    string    `json:"event_type"`
	Severity     string    `json:"severity"` // info, warn, error
	ResourceType string    `json:"resource_type"`
	ResourceID   string    `json:"resource_id"`
	Details      string    `json:"details"`
	Timestamp    time.Time `json:"timestamp"`
}
