package service

import (
	"context"
	"fmt"
	"time"

	"finadvisor/internal/models"
	"finadvisor/pkg/config"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecommendationStore persists recommendation records. Implemented by
// repository.RecommendationRepository.
type RecommendationStore interface {
	FindActiveForUser(ctx context.Context, userID uuid.UUID) (*models.Recommendation, error)
	DeactivateAllForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ReplaceActiveForUser(ctx context.Context, rec *models.Recommendation) error
	CountForUser(ctx context.Context, userID uuid.UUID) (int64, error)
	DeleteExpired(ctx context.Context) (int64, error)
}

// TransactionFeed supplies a user's transactions for an analysis window,
// newest first. Implemented by repository.TransactionRepository.
type TransactionFeed interface {
	ListForUserSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]*models.Transaction, error)
}

// Advisor produces recommendation text. Implemented by AdvisorService.
type Advisor interface {
	Generate(ctx context.Context, transactions []*models.Transaction, analysis *TransactionAnalysis) string
	NoTransactionsMessage() string
}

// RecommendationStats summarizes a user's recommendation history.
type RecommendationStats struct {
	TotalGenerated  int64
	HasActive       bool
	TimeUntilNext   time.Duration
	CanGenerateNew  bool
	LastGeneratedAt *time.Time
}

// RecommendationService orchestrates the generate-or-fetch workflow and
// enforces the one-recommendation-per-24h throttle. Generation for a given
// user is serialized through a per-user lock, and the swap of the active
// record is a single store transaction, so at most one record per user is
// active and unexpired at any instant.
type RecommendationService struct {
	recRepo RecommendationStore
	feed    TransactionFeed
	advisor Advisor
	window  time.Duration
	locks   *userLocks
	logger  *zap.Logger
}

func NewRecommendationService(
	recRepo RecommendationStore,
	feed TransactionFeed,
	advisor Advisor,
	cfg *config.RecommendationConfig,
	logger *zap.Logger,
) *RecommendationService {
	return &RecommendationService{
		recRepo: recRepo,
		feed:    feed,
		advisor: advisor,
		window:  cfg.AnalysisWindow,
		locks:   newUserLocks(),
		logger:  logger,
	}
}

// GetCurrent returns the user's valid active recommendation, or nil. Validity
// is re-checked here even though the store query filters on it.
func (s *RecommendationService) GetCurrent(ctx context.Context, userID uuid.UUID) (*models.Recommendation, error) {
	rec, err := s.recRepo.FindActiveForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get current recommendation: %w", err)
	}

	if rec != nil && rec.IsValid() {
		return rec, nil
	}

	return nil, nil
}

// CanGenerate reports whether the user is outside the throttle window. State
// is re-derived from the store on every call.
func (s *RecommendationService) CanGenerate(ctx context.Context, userID uuid.UUID) (bool, error) {
	rec, err := s.GetCurrent(ctx, userID)
	if err != nil {
		return false, err
	}
	return rec == nil, nil
}

// Generate creates a new recommendation from the user's trailing transaction
// window. Without force it fails with *ThrottledError while a valid
// recommendation exists. The previous active records are deactivated and the
// new one inserted atomically.
func (s *RecommendationService) Generate(ctx context.Context, userID uuid.UUID, force bool) (*models.Recommendation, error) {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	if !force {
		current, err := s.GetCurrent(ctx, userID)
		if err != nil {
			return nil, err
		}
		if current != nil {
			return nil, &ThrottledError{RetryAfter: current.ExpiresAt}
		}
	}

	since := time.Now().Add(-s.window)
	transactions, err := s.feed.ListForUserSince(ctx, userID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}

	analysis, err := AnalyzeTransactions(transactions)
	if err != nil {
		return nil, err
	}

	var text string
	if len(transactions) == 0 {
		text = s.advisor.NoTransactionsMessage()
	} else {
		text = s.advisor.Generate(ctx, transactions, analysis)
	}

	rec := &models.Recommendation{
		ID:               uuid.New(),
		UserID:           userID,
		Recommendation:   text,
		TransactionCount: analysis.TransactionCount,
		TotalAmount:      analysis.TotalAmount,
		Analysis: models.AnalysisData{
			Period:      AnalysisPeriod,
			Categories:  analysis.Categories,
			TopCategory: analysis.TopCategory,
			Balance:     analysis.Balance,
		},
		Metadata: map[string]string{
			"generated_by": "advisor_service",
			"version":      "1.0",
		},
		GeneratedAt: time.Now(),
	}

	if err := s.recRepo.ReplaceActiveForUser(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to store recommendation: %w", err)
	}

	s.logger.Info("Recommendation generated",
		zap.String("user_id", userID.String()),
		zap.Int("transaction_count", rec.TransactionCount),
		zap.Bool("forced", force),
	)

	return rec, nil
}

// ForceRefresh regenerates regardless of the throttle. Whether a caller may
// force is policy that lives in the handler, not here.
func (s *RecommendationService) ForceRefresh(ctx context.Context, userID uuid.UUID) (*models.Recommendation, error) {
	s.logger.Info("Force refreshing recommendation", zap.String("user_id", userID.String()))
	return s.Generate(ctx, userID, true)
}

// GetOrGenerate returns the current recommendation, generating one when the
// user has none and is allowed to. Returns nil when generation was throttled
// by a concurrent call.
func (s *RecommendationService) GetOrGenerate(ctx context.Context, userID uuid.UUID) (*models.Recommendation, error) {
	current, err := s.GetCurrent(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current != nil {
		return current, nil
	}

	rec, err := s.Generate(ctx, userID, false)
	if err != nil {
		if _, throttled := IsThrottled(err); throttled {
			return nil, nil
		}
		return nil, err
	}

	return rec, nil
}

// Stats reports the user's recommendation counters and throttle state.
func (s *RecommendationService) Stats(ctx context.Context, userID uuid.UUID) (*RecommendationStats, error) {
	total, err := s.recRepo.CountForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count recommendations: %w", err)
	}

	current, err := s.GetCurrent(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &RecommendationStats{
		TotalGenerated: total,
		HasActive:      current != nil,
		CanGenerateNew: current == nil,
	}
	if current != nil {
		stats.TimeUntilNext = current.TimeUntilExpiration()
		stats.LastGeneratedAt = &current.GeneratedAt
	}

	return stats, nil
}

// RunExpirySweep periodically purges expired records until ctx is canceled.
// The sweep is an optimization: readers never depend on it.
func (s *RecommendationService) RunExpirySweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := s.recRepo.DeleteExpired(ctx)
			if err != nil {
				s.logger.Error("Expiry sweep failed", zap.Error(err))
				continue
			}
			if deleted > 0 {
				s.logger.Info("Purged expired recommendations", zap.Int64("count", deleted))
			}
		}
	}
}
