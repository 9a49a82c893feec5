package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finadvisor/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var recommendationColumns = []string{
	"id", "user_id", "recommendation", "transaction_count", "total_amount",
	"analysis", "metadata", "generated_at", "expires_at", "is_active",
}

type RecommendationRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewRecommendationRepository(db *pgxpool.Pool, logger *zap.Logger) *RecommendationRepository {
	return &RecommendationRepository{
		db:     db,
		logger: logger,
	}
}

// FindActiveForUser returns the most recently generated recommendation for the
// user that is still flagged active and unexpired, or nil when there is none.
func (r *RecommendationRepository) FindActiveForUser(ctx context.Context, userID uuid.UUID) (*models.Recommendation, error) {
	query := squirrel.Select(recommendationColumns...).
		From("recommendations").
		Where(squirrel.Eq{"user_id": userID, "is_active": true}).
		Where(squirrel.Expr("expires_at > now()")).
		OrderBy("generated_at DESC").
		Limit(1).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rec, err := scanRecommendation(r.db.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return rec, nil
}

// DeactivateAllForUser flips is_active off on every active recommendation the
// user has. Idempotent; returns the number of rows touched.
func (r *RecommendationRepository) DeactivateAllForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := squirrel.Update("recommendations").
		Set("is_active", false).
		Where(squirrel.Eq{"user_id": userID, "is_active": true}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

// Create inserts a new recommendation. The expiry is computed here from the
// generation timestamp, never by the caller, and the record starts active.
func (r *RecommendationRepository) Create(ctx context.Context, rec *models.Recommendation) error {
	sql, args, err := r.insertQuery(rec)
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

// ReplaceActiveForUser deactivates every active recommendation the user has
// and inserts the new one in a single transaction, so concurrent callers can
// never observe zero or two active records.
func (r *RecommendationRepository) ReplaceActiveForUser(ctx context.Context, rec *models.Recommendation) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	deactivate := squirrel.Update("recommendations").
		Set("is_active", false).
		Where(squirrel.Eq{"user_id": rec.UserID, "is_active": true}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := deactivate.ToSql()
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}

	sql, args, err = r.insertQuery(rec)
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug("Replaced active recommendation",
		zap.String("user_id", rec.UserID.String()),
		zap.Int64("deactivated", tag.RowsAffected()),
	)

	return nil
}

// CountForUser returns how many recommendations the user has ever received.
func (r *RecommendationRepository) CountForUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := squirrel.Select("count(*)").
		From("recommendations").
		Where(squirrel.Eq{"user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	var count int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// DeleteExpired physically removes expired recommendations. Readers never rely
// on this sweep: validity is re-checked on every read.
func (r *RecommendationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	query := squirrel.Delete("recommendations").
		Where(squirrel.Expr("expires_at <= now()")).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return 0, err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (r *RecommendationRepository) insertQuery(rec *models.Recommendation) (string, []any, error) {
	if rec.GeneratedAt.IsZero() {
		rec.GeneratedAt = time.Now()
	}
	rec.ExpiresAt = rec.GeneratedAt.Add(models.RecommendationTTL)
	rec.IsActive = true

	analysisJSON, err := json.Marshal(rec.Analysis)
	if err != nil {
		return "", nil, err
	}
	metadataJSON, err := json.Marshal(rec.Metadata)
	if err != nil {
		return "", nil, err
	}

	query := squirrel.Insert("recommendations").
		Columns(recommendationColumns...).
		Values(
			rec.ID, rec.UserID, rec.Recommendation, rec.TransactionCount, rec.TotalAmount,
			analysisJSON, metadataJSON, rec.GeneratedAt, rec.ExpiresAt, rec.IsActive,
		).
		PlaceholderFormat(squirrel.Dollar)

	return query.ToSql()
}

func scanRecommendation(row pgx.Row) (*models.Recommendation, error) {
	var rec models.Recommendation
	var analysisJSON, metadataJSON []byte

	if err := row.Scan(
		&rec.ID, &rec.UserID, &rec.Recommendation, &rec.TransactionCount, &rec.TotalAmount,
		&analysisJSON, &metadataJSON, &rec.GeneratedAt, &rec.ExpiresAt, &rec.IsActive,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(analysisJSON, &rec.Analysis); err != nil {
		return nil, err
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &rec.Metadata); err != nil {
			return nil, err
		}
	}

	return &rec, nil
}
