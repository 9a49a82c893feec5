package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxRecommendationLength is the storage bound for recommendation text.
const MaxRecommendationLength = 2000

// RecommendationTTL is how long a recommendation stays valid after generation.
const RecommendationTTL = 24 * time.Hour

// AnalysisData is the aggregated snapshot of the transaction window the
// recommendation was generated from. It is persisted alongside the text.
type AnalysisData struct {
	Period      string             `json:"period"`
	Categories  map[string]float64 `json:"categories"`
	TopCategory string             `json:"top_category"`
	Balance     float64            `json:"balance"`
}

type Recommendation struct {
	ID               uuid.UUID         `db:"id"`
	UserID           uuid.UUID         `db:"user_id"`
	Recommendation   string            `db:"recommendation"`
	TransactionCount int               `db:"transaction_count"`
	TotalAmount      float64           `db:"total_amount"`
	Analysis         AnalysisData      `db:"analysis"`
	Metadata         map[string]string `db:"metadata"`
	GeneratedAt      time.Time         `db:"generated_at"`
	ExpiresAt        time.Time         `db:"expires_at"`
	IsActive         bool              `db:"is_active"`
}

// IsValid reports whether the recommendation is still the user's current one.
// Readers must call this even when the store query already filtered on the
// active flag and expiry, to guard against stale flags and clock skew.
func (r *Recommendation) IsValid() bool {
	return r.IsActive && time.Now().Before(r.ExpiresAt)
}

// TimeUntilExpiration returns the remaining validity window, never negative.
func (r *Recommendation) TimeUntilExpiration() time.Duration {
	d := time.Until(r.ExpiresAt)
	if d < 0 {
		return 0
	}
	return d
}
