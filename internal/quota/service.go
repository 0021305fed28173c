package quota

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mealtrack/mealtrack/internal/config"
	"github.com/mealtrack/mealtrack/internal/metrics"
)

// Service is the admission controller: it composes the persistent daily
// quota with the in-process minute window into a single allow/deny
// decision, performing the accounting only on the allowed path.
type Service struct {
	store  Store
	window *Window
	cfg    config.QuotaConfig
}

// NewService creates an admission controller over the given store and window.
func NewService(store Store, window *Window, cfg config.QuotaConfig) *Service {
	return &Service{
		store:  store,
		window: window,
		cfg:    cfg,
	}
}

// Admit decides whether the user may start one more expensive request at
// the given instant. The gate order is load-bearing: the daily reset and
// check run first so a minute-denied request never burns a daily ticket,
// and the counters are only incremented once both gates have passed, so
// the slot is reserved before the caller is told to proceed.
func (s *Service) Admit(ctx context.Context, userID uuid.UUID, now time.Time) (Decision, error) {
	today := civilDate(now)

	if _, err := s.store.ResetIfStale(ctx, userID, today); err != nil {
		return Decision{}, err
	}

	q, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		return Decision{}, err
	}
	if q.QuotaCount >= s.cfg.MaxPerDay {
		return s.deny(GateDaily), nil
	}

	if s.window.Count(userID, now) >= s.cfg.MaxPerMinute {
		return s.deny(GateMinute), nil
	}

	// The conditional increment is the true arbiter: two requests that
	// both read an under-limit count race here, and the database lets
	// only the remaining slots through.
	ok, err := s.store.IncrementIfBelow(ctx, userID, s.cfg.MaxPerDay)
	if err != nil {
		return Decision{}, err
	}
	if !ok {
		return s.deny(GateDaily), nil
	}

	s.window.Append(userID, now)
	metrics.AdmissionsTotal.WithLabelValues("allow").Inc()
	return Decision{Allowed: true}, nil
}

// Remaining recomputes both gates without mutating any state, for
// client-side "can I proceed" hints.
func (s *Service) Remaining(ctx context.Context, userID uuid.UUID, now time.Time) (*RemainingStatus, error) {
	q, err := s.store.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	daily := s.cfg.MaxPerDay - q.QuotaCount
	if civilDate(q.LastResetDate) != civilDate(now) {
		// A stale row resets to zero on the next admission check, so the
		// full daily budget is still available.
		daily = s.cfg.MaxPerDay
	}
	if daily < 0 {
		daily = 0
	}

	minute := s.cfg.MaxPerMinute - s.window.Peek(userID, now)
	if minute < 0 {
		minute = 0
	}

	return &RemainingStatus{
		Allowed:         daily > 0 && minute > 0,
		DailyRemaining:  daily,
		MinuteRemaining: minute,
	}, nil
}

func (s *Service) deny(gate string) Decision {
	metrics.AdmissionsTotal.WithLabelValues("deny").Inc()
	metrics.AdmissionDenialsTotal.WithLabelValues(gate).Inc()
	return Decision{Allowed: false, Gate: gate}
}
