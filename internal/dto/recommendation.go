package dto

import (
	"time"

	"finadvisor/internal/models"
)

type AnalysisResponse struct {
	Period      string             `json:"period"`
	Categories  map[string]float64 `json:"categories"`
	TopCategory string             `json:"top_category"`
	Balance     float64            `json:"balance"`
}

type RecommendationResponse struct {
	ID                string           `json:"id"`
	Recommendation    string           `json:"recommendation"`
	TransactionCount  int              `json:"transaction_count"`
	TotalAmount       float64          `json:"total_amount"`
	Analysis          AnalysisResponse `json:"analysis"`
	GeneratedAt       string           `json:"generated_at"`
	ExpiresAt         string           `json:"expires_at"`
	MsUntilExpiration int64            `json:"ms_until_expiration"`
	IsValid           bool             `json:"is_valid"`
}

type RecommendationStatsResponse struct {
	TotalGenerated  int64   `json:"total_generated"`
	HasActive       bool    `json:"has_active"`
	TimeUntilNextMs int64   `json:"time_until_next_ms"`
	CanGenerateNew  bool    `json:"can_generate_new"`
	LastGeneratedAt *string `json:"last_generated_at"`
}

type CanGenerateResponse struct {
	CanGenerate bool `json:"can_generate"`
}

func NewRecommendationResponse(rec *models.Recommendation) RecommendationResponse {
	return RecommendationResponse{
		ID:               rec.ID.String(),
		Recommendation:   rec.Recommendation,
		TransactionCount: rec.TransactionCount,
		TotalAmount:      rec.TotalAmount,
		Analysis: AnalysisResponse{
			Period:      rec.Analysis.Period,
			Categories:  rec.Analysis.Categories,
			TopCategory: rec.Analysis.TopCategory,
			Balance:     rec.Analysis.Balance,
		},
		GeneratedAt:       rec.GeneratedAt.Format(time.RFC3339),
		ExpiresAt:         rec.ExpiresAt.Format(time.RFC3339),
		MsUntilExpiration: rec.TimeUntilExpiration().Milliseconds(),
		IsValid:           rec.IsValid(),
	}
}
