package quota

import (
	"time"

	"github.com/google/uuid"
)

// UserQuota matches the user_quotas table schema. QuotaCount reflects
// requests admitted since LastResetDate.
type UserQuota struct {
	UserID        uuid.UUID `json:"user_id"`
	QuotaCount    int       `json:"quota_count"`
	LastResetDate time.Time `json:"last_reset_date"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Decision is the outcome of an admission check. Gate names the limit
// that tripped when Allowed is false.
type Decision struct {
	Allowed bool
	Gate    string
}

// Gate labels.
const (
	GateDaily  = "daily"
	GateMinute = "minute"
)

// RemainingStatus is the read-only quota view exposed to clients.
type RemainingStatus struct {
	Allowed         bool `json:"allowed"`
	DailyRemaining  int  `json:"daily_remaining"`
	MinuteRemaining int  `json:"minute_remaining"`
}

// civilDate renders the calendar date an instant falls on, which is the
// unit the daily quota resets over.
func civilDate(now time.Time) string {
	return now.Format("2006-01-02")
}
