package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"finadvisor/internal/models"
	"finadvisor/pkg/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRecommendationStore struct {
	mu      sync.Mutex
	records []*models.Recommendation

	findErr    error
	replaceErr error
}

func (f *fakeRecommendationStore) FindActiveForUser(_ context.Context, userID uuid.UUID) (*models.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.findErr != nil {
		return nil, f.findErr
	}

	var candidates []*models.Recommendation
	for _, rec := range f.records {
		if rec.UserID == userID && rec.IsActive && rec.ExpiresAt.After(time.Now()) {
			candidates = append(candidates, rec)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].GeneratedAt.After(candidates[j].GeneratedAt)
	})
	copied := *candidates[0]
	return &copied, nil
}

func (f *fakeRecommendationStore) DeactivateAllForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deactivateLocked(userID), nil
}

func (f *fakeRecommendationStore) ReplaceActiveForUser(_ context.Context, rec *models.Recommendation) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.replaceErr != nil {
		return f.replaceErr
	}

	f.deactivateLocked(rec.UserID)

	if rec.GeneratedAt.IsZero() {
		rec.GeneratedAt = time.Now()
	}
	rec.ExpiresAt = rec.GeneratedAt.Add(models.RecommendationTTL)
	rec.IsActive = true

	stored := *rec
	f.records = append(f.records, &stored)
	return nil
}

func (f *fakeRecommendationStore) CountForUser(_ context.Context, userID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var count int64
	for _, rec := range f.records {
		if rec.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeRecommendationStore) DeleteExpired(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var kept []*models.Recommendation
	var deleted int64
	for _, rec := range f.records {
		if rec.ExpiresAt.After(time.Now()) {
			kept = append(kept, rec)
		} else {
			deleted++
		}
	}
	f.records = kept
	return deleted, nil
}

func (f *fakeRecommendationStore) deactivateLocked(userID uuid.UUID) int64 {
	var count int64
	for _, rec := range f.records {
		if rec.UserID == userID && rec.IsActive {
			rec.IsActive = false
			count++
		}
	}
	return count
}

func (f *fakeRecommendationStore) activeCount(userID uuid.UUID) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	count := 0
	for _, rec := range f.records {
		if rec.UserID == userID && rec.IsActive && rec.ExpiresAt.After(time.Now()) {
			count++
		}
	}
	return count
}

func (f *fakeRecommendationStore) expireActive(userID uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, rec := range f.records {
		if rec.UserID == userID && rec.IsActive {
			rec.ExpiresAt = time.Now().Add(-time.Minute)
		}
	}
}

type fakeTransactionFeed struct {
	transactions []*models.Transaction
	err          error
}

func (f *fakeTransactionFeed) ListForUserSince(_ context.Context, _ uuid.UUID, _ time.Time) ([]*models.Transaction, error) {
	return f.transactions, f.err
}

func newTestService(store *fakeRecommendationStore, feed *fakeTransactionFeed) *RecommendationService {
	advisor := NewAdvisorService(&stubCompleter{text: "Consejo generado para la prueba."}, zap.NewNop())
	cfg := &config.RecommendationConfig{AnalysisWindow: 7 * 24 * time.Hour, SweepInterval: time.Hour}
	return NewRecommendationService(store, feed, advisor, cfg, zap.NewNop())
}

func weekOfTransactions() []*models.Transaction {
	return []*models.Transaction{
		expense(100, "almuerzo"),
		expense(50, "uber"),
		income(1000, "Pago nómina"),
	}
}

func TestGenerateThenGetCurrent(t *testing.T) {
	store := &fakeRecommendationStore{}
	svc := newTestService(store, &fakeTransactionFeed{transactions: weekOfTransactions()})
	userID := uuid.New()
	ctx := context.Background()

	rec, err := svc.Generate(ctx, userID, false)
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "Consejo generado para la prueba.", rec.Recommendation)
	assert.Equal(t, 3, rec.TransactionCount)
	assert.Equal(t, 1150.0, rec.TotalAmount)
	assert.Equal(t, AnalysisPeriod, rec.Analysis.Period)
	assert.Equal(t, "Alimentación", rec.Analysis.TopCategory)
	assert.Equal(t, 850.0, rec.Analysis.Balance)
	assert.Equal(t, rec.GeneratedAt.Add(24*time.Hour), rec.ExpiresAt)
	assert.True(t, rec.IsActive)

	current, err := svc.GetCurrent(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, rec.ID, current.ID)
	assert.Equal(t, rec.Recommendation, current.Recommendation)
	assert.Equal(t, rec.TransactionCount, current.TransactionCount)
	assert.Equal(t, rec.TotalAmount, current.TotalAmount)
}

func TestGenerateThrottled(t *testing.T) {
	store := &fakeRecommendationStore{}
	svc := newTestService(store, &fakeTransactionFeed{transactions: weekOfTransactions()})
	userID := uuid.New()
	ctx := context.Background()

	first, err := svc.Generate(ctx, userID, false)
	require.NoError(t, err)

	_, err = svc.Generate(ctx, userID, false)
	require.Error(t, err)

	throttled, ok := IsThrottled(err)
	require.True(t, ok)
	assert.Equal(t, first.ExpiresAt, throttled.RetryAfter)
	assert.Equal(t, 1, store.activeCount(userID))
}

func TestCanGenerate(t *testing.T) {
	store := &fakeRecommendationStore{}
	svc := newTestService(store, &fakeTransactionFeed{transactions: weekOfTransactions()})
	userID := uuid.New()
	ctx := context.Background()

	allowed, err := svc.CanGenerate(ctx, userID)
	require.NoError(t, err)
	assert.True(t, allowed)

	_, err = svc.Generate(ctx, userID, false)
	require.NoError(t, err)

	allowed, err = svc.CanGenerate(ctx, userID)
	require.NoError(t, err)
	assert.False(t, allowed)

	store.expireActive(userID)

	allowed, err = svc.CanGenerate(ctx, userID)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestForceRefreshDeactivatesPrevious(t *testing.T) {
	store := &fakeRecommendationStore{}
	svc := newTestService(store, &fakeTransactionFeed{transactions: weekOfTransactions()})
	userID := uuid.New()
	ctx := context.Background()

	first, err := svc.Generate(ctx, userID, false)
	require.NoError(t, err)

	second, err := svc.ForceRefresh(ctx, userID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	assert.Equal(t, 1, store.activeCount(userID))

	current, err := svc.GetCurrent(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, second.ID, current.ID)

	store.mu.Lock()
	defer store.mu.Unlock()
	for _, rec := range store.records {
		if rec.ID == first.ID {
			assert.False(t, rec.IsActive)
		}
		if rec.ID == second.ID {
			assert.True(t, rec.IsActive)
		}
	}
}

func TestGenerateWithoutTransactions(t *testing.T) {
	store := &fakeRecommendationStore{}
	svc := newTestService(store, &fakeTransactionFeed{})
	userID := uuid.New()
	ctx := context.Background()

	rec, err := svc.Generate(ctx, userID, false)
	require.NoError(t, err)

	assert.Contains(t, noTransactionTemplates, rec.Recommendation)
	assert.Equal(t, 0, rec.TransactionCount)
	assert.Equal(t, 0.0, rec.TotalAmount)
	assert.Equal(t, "None", rec.Analysis.TopCategory)
	assert.Empty(t, rec.Analysis.Categories)
	assert.Equal(t, 0.0, rec.Analysis.Balance)
}

func TestGenerateInvalidTransaction(t *testing.T) {
	feed := &fakeTransactionFeed{transactions: []*models.Transaction{
		{Amount: 10, Type: "transfer", Description: "algo"},
	}}
	svc := newTestService(&fakeRecommendationStore{}, feed)

	_, err := svc.Generate(context.Background(), uuid.New(), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestGenerateStoreFailure(t *testing.T) {
	store := &fakeRecommendationStore{replaceErr: errors.New("connection lost")}
	svc := newTestService(store, &fakeTransactionFeed{transactions: weekOfTransactions()})

	_, err := svc.Generate(context.Background(), uuid.New(), false)
	require.Error(t, err)
	_, throttled := IsThrottled(err)
	assert.False(t, throttled)
}

func TestGetCurrentStoreFailure(t *testing.T) {
	store := &fakeRecommendationStore{findErr: errors.New("connection lost")}
	svc := newTestService(store, &fakeTransactionFeed{})

	_, err := svc.GetCurrent(context.Background(), uuid.New())
	require.Error(t, err)
}

func TestGetOrGenerate(t *testing.T) {
	store := &fakeRecommendationStore{}
	svc := newTestService(store, &fakeTransactionFeed{transactions: weekOfTransactions()})
	userID := uuid.New()
	ctx := context.Background()

	rec, err := svc.GetOrGenerate(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, rec)

	again, err := svc.GetOrGenerate(ctx, userID)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, rec.ID, again.ID)

	total, err := store.CountForUser(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestStats(t *testing.T) {
	store := &fakeRecommendationStore{}
	svc := newTestService(store, &fakeTransactionFeed{transactions: weekOfTransactions()})
	userID := uuid.New()
	ctx := context.Background()

	stats, err := svc.Stats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalGenerated)
	assert.False(t, stats.HasActive)
	assert.True(t, stats.CanGenerateNew)
	assert.Nil(t, stats.LastGeneratedAt)

	rec, err := svc.Generate(ctx, userID, false)
	require.NoError(t, err)

	stats, err = svc.Stats(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalGenerated)
	assert.True(t, stats.HasActive)
	assert.False(t, stats.CanGenerateNew)
	assert.Greater(t, stats.TimeUntilNext, time.Duration(0))
	require.NotNil(t, stats.LastGeneratedAt)
	assert.Equal(t, rec.GeneratedAt, *stats.LastGeneratedAt)
}

func TestConcurrentForceGenerate(t *testing.T) {
	store := &fakeRecommendationStore{}
	svc := newTestService(store, &fakeTransactionFeed{transactions: weekOfTransactions()})
	userID := uuid.New()

	const workers = 10
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := svc.Generate(context.Background(), userID, true)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// Concurrent generations must never leave a user with zero or two
	// active recommendations.
	assert.Equal(t, 1, store.activeCount(userID))

	total, err := store.CountForUser(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(workers), total)
}
