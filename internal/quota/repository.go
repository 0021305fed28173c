package quota

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the persistent side of admission control.
type Store interface {
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*UserQuota, error)
	ResetIfStale(ctx context.Context, userID uuid.UUID, today string) (bool, error)
	IncrementIfBelow(ctx context.Context, userID uuid.UUID, limit int) (bool, error)
}

type postgresStore struct {
	pool *pgxpool.Pool
}

// NewStore creates a Postgres-backed quota store.
func NewStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool}
}

// GetOrCreate returns the user's quota row, creating one if it doesn't exist.
func (s *postgresStore) GetOrCreate(ctx context.Context, userID uuid.UUID) (*UserQuota, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_quotas (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`, userID)
	if err != nil {
		return nil, fmt.Errorf("ensuring user quota: %w", err)
	}

	var q UserQuota
	err = s.pool.QueryRow(ctx,
		`SELECT user_id, quota_count, last_reset_date, updated_at
		 FROM user_quotas WHERE user_id = $1`, userID,
	).Scan(&q.UserID, &q.QuotaCount, &q.LastResetDate, &q.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("fetching user quota: %w", err)
	}
	return &q, nil
}

// ResetIfStale zeroes the counter and advances last_reset_date the first
// time any check observes a date other than today. Re-running on an
// already-reset row matches the date and is a no-op, so the reset happens
// exactly once per day. Returns true if a reset was performed.
func (s *postgresStore) ResetIfStale(ctx context.Context, userID uuid.UUID, today string) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE user_quotas
		 SET quota_count = 0,
		     last_reset_date = $2::date,
		     updated_at = NOW()
		 WHERE user_id = $1 AND last_reset_date <> $2::date`, userID, today)
	if err != nil {
		return false, fmt.Errorf("resetting daily quota: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// IncrementIfBelow performs the conditional increment in a single
// round-trip, letting the database arbitrate concurrent admissions.
// Returns false when the counter already reached the limit.
func (s *postgresStore) IncrementIfBelow(ctx context.Context, userID uuid.UUID, limit int) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE user_quotas
		 SET quota_count = quota_count + 1,
		     updated_at = NOW()
		 WHERE user_id = $1 AND quota_count < $2`, userID, limit)
	if err != nil {
		return false, fmt.Errorf("incrementing daily quota: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
