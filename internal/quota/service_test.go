package quota

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mealtrack/mealtrack/internal/config"
)

// fakeStore mirrors the Postgres store's semantics in memory. The mutex
// makes IncrementIfBelow as atomic as the real conditional UPDATE.
type fakeStore struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*UserQuota
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: make(map[uuid.UUID]*UserQuota)}
}

func (f *fakeStore) seed(userID uuid.UUID, count int, lastReset time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows[userID] = &UserQuota{UserID: userID, QuotaCount: count, LastResetDate: lastReset}
}

func (f *fakeStore) GetOrCreate(_ context.Context, userID uuid.UUID) (*UserQuota, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.rows[userID]
	if !ok {
		q = &UserQuota{UserID: userID, LastResetDate: time.Now()}
		f.rows[userID] = q
	}
	cp := *q
	return &cp, nil
}

func (f *fakeStore) ResetIfStale(_ context.Context, userID uuid.UUID, today string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.rows[userID]
	if !ok || civilDate(q.LastResetDate) == today {
		return false, nil
	}
	day, err := time.Parse("2006-01-02", today)
	if err != nil {
		return false, err
	}
	q.QuotaCount = 0
	q.LastResetDate = day
	return true, nil
}

func (f *fakeStore) IncrementIfBelow(_ context.Context, userID uuid.UUID, limit int) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.rows[userID]
	if !ok || q.QuotaCount >= limit {
		return false, nil
	}
	q.QuotaCount++
	return true, nil
}

func newTestService(store Store) *Service {
	return NewService(store, NewWindow(time.Minute), config.QuotaConfig{MaxPerDay: 5, MaxPerMinute: 5})
}

func TestAdmit_AllowsUnderBothLimits(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	userID := uuid.New()
	ctx := context.Background()

	d, err := svc.Admit(ctx, userID, time.Now())
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	q, err := store.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, q.QuotaCount)
}

func TestAdmit_DailyCapDenies(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	userID := uuid.New()
	now := time.Now()
	store.seed(userID, 5, now)

	d, err := svc.Admit(context.Background(), userID, now)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, GateDaily, d.Gate)

	// A daily denial must not touch the minute window.
	assert.Equal(t, 0, svc.window.Peek(userID, now))
}

func TestAdmit_MinuteCapDenies(t *testing.T) {
	store := newFakeStore()
	// High daily cap so only the minute gate can trip.
	svc := NewService(store, NewWindow(time.Minute), config.QuotaConfig{MaxPerDay: 100, MaxPerMinute: 5})
	userID := uuid.New()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		d, err := svc.Admit(ctx, userID, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err)
		require.True(t, d.Allowed, "admission %d should pass", i+1)
	}

	d, err := svc.Admit(ctx, userID, now.Add(6*time.Second))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, GateMinute, d.Gate)

	// A minute denial must not consume a daily ticket.
	q, err := store.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, q.QuotaCount)
}

func TestAdmit_MinuteWindowSlides(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, NewWindow(time.Minute), config.QuotaConfig{MaxPerDay: 100, MaxPerMinute: 5})
	userID := uuid.New()
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 5; i++ {
		d, err := svc.Admit(ctx, userID, now)
		require.NoError(t, err)
		require.True(t, d.Allowed)
	}

	// 61 seconds later the burst has expired.
	d, err := svc.Admit(ctx, userID, now.Add(61*time.Second))
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestAdmit_StaleDateResetsThenAdmits(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	userID := uuid.New()
	now := time.Now()
	yesterday := now.AddDate(0, 0, -1)
	store.seed(userID, 5, yesterday)

	d, err := svc.Admit(context.Background(), userID, now)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "the stale cap should reset before the daily gate")

	q, err := store.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 1, q.QuotaCount)
	assert.Equal(t, civilDate(now), civilDate(q.LastResetDate))
}

func TestAdmit_MidnightBoundaryIndependentBudgets(t *testing.T) {
	store := newFakeStore()
	// Wide minute cap so only the daily gate matters here.
	svc := NewService(store, NewWindow(time.Minute), config.QuotaConfig{MaxPerDay: 5, MaxPerMinute: 100})
	userID := uuid.New()
	ctx := context.Background()

	lateNight := time.Date(2025, 6, 1, 23, 59, 59, 0, time.UTC)
	store.seed(userID, 5, lateNight)

	d, err := svc.Admit(ctx, userID, lateNight)
	require.NoError(t, err)
	assert.False(t, d.Allowed, "budget exhausted before midnight")

	justAfter := time.Date(2025, 6, 2, 0, 0, 1, 0, time.UTC)
	d, err = svc.Admit(ctx, userID, justAfter)
	require.NoError(t, err)
	assert.True(t, d.Allowed, "the new day starts a fresh budget")

	q, err := store.GetOrCreate(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 1, q.QuotaCount, "reset happened exactly once")
}

func TestAdmit_ConcurrentBurstNeverExceedsDailyCap(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, NewWindow(time.Minute), config.QuotaConfig{MaxPerDay: 5, MaxPerMinute: 1000})
	userID := uuid.New()
	now := time.Now()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := svc.Admit(context.Background(), userID, now)
			if err != nil {
				return
			}
			if d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, allowed, 5, "the conditional increment caps concurrent admissions")
	q, err := store.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	assert.LessOrEqual(t, q.QuotaCount, 5)
}

func TestRemaining_FreshUser(t *testing.T) {
	svc := newTestService(newFakeStore())
	status, err := svc.Remaining(context.Background(), uuid.New(), time.Now())
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, 5, status.DailyRemaining)
	assert.Equal(t, 5, status.MinuteRemaining)
}

func TestRemaining_StaleRowReportsFullBudget(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	userID := uuid.New()
	now := time.Now()
	store.seed(userID, 5, now.AddDate(0, 0, -1))

	status, err := svc.Remaining(context.Background(), userID, now)
	require.NoError(t, err)
	assert.True(t, status.Allowed)
	assert.Equal(t, 5, status.DailyRemaining)
}

func TestRemaining_DoesNotMutateState(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	userID := uuid.New()
	now := time.Now()
	store.seed(userID, 2, now)

	for i := 0; i < 3; i++ {
		status, err := svc.Remaining(context.Background(), userID, now)
		require.NoError(t, err)
		assert.Equal(t, 3, status.DailyRemaining)
	}

	q, err := store.GetOrCreate(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, 2, q.QuotaCount)
}

func TestRemaining_ExhaustedUser(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)
	userID := uuid.New()
	now := time.Now()
	store.seed(userID, 5, now)

	status, err := svc.Remaining(context.Background(), userID, now)
	require.NoError(t, err)
	assert.False(t, status.Allowed)
	assert.Equal(t, 0, status.DailyRemaining)
}
