package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pressmesh/reconcile/internal/domain"
)

// reviewRepository implements ReviewRepository backed by pgxpool.
type reviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository creates a new conflict review repository.
func NewReviewRepository(pool *pgxpool.Pool) ReviewRepository {
	return &reviewRepository{pool: pool}
}

// Create persists a new pending review.
func (r *reviewRepository) Create(ctx context.Context, review domain.ConflictReview) (domain.ConflictReview, error) {
	currentJSON, err := json.Marshal(review.CurrentValue)
	if err != nil {
		return domain.ConflictReview{}, fmt.Errorf("failed to marshal current value: %w", err)
	}
	suggestedJSON, err := json.Marshal(review.SuggestedValue)
	if err != nil {
		return domain.ConflictReview{}, fmt.Errorf("failed to marshal suggested value: %w", err)
	}
	evidenceJSON, err := json.Marshal(review.Evidence)
	if err != nil {
		return domain.ConflictReview{}, fmt.Errorf("failed to marshal evidence: %w", err)
	}

	row := r.pool.QueryRow(
		ctx,
		`INSERT INTO conflict_reviews
		   (id, entity_type, entity_id, entity_name, field, current_value, suggested_value,
		    evidence, confidence, priority, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 RETURNING created_at`,
		review.ID,
		review.EntityType,
		review.EntityID,
		review.EntityName,
		review.Field,
		currentJSON,
		suggestedJSON,
		evidenceJSON,
		review.Confidence,
		review.Priority,
		review.Status,
	)
	if err := row.Scan(&review.CreatedAt); err != nil {
		return domain.ConflictReview{}, fmt.Errorf("failed to create conflict review: %w", err)
	}
	return review, nil
}

// GetByID retrieves a review by ID. Missing ids map to ErrReviewNotFound.
func (r *reviewRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.ConflictReview, error) {
	row := r.pool.QueryRow(
		ctx,
		selectReviewColumns+` FROM conflict_reviews WHERE id = $1`,
		id,
	)

	review, err := scanReview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ConflictReview{}, domain.ErrReviewNotFound
		}
		return domain.ConflictReview{}, fmt.Errorf("failed to get conflict review: %w", err)
	}
	return review, nil
}

// ListOpen fetches pending reviews ordered by priority then recency.
func (r *reviewRepository) ListOpen(ctx context.Context, filter domain.ReviewFilter) ([]domain.ConflictReview, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := selectReviewColumns + ` FROM conflict_reviews WHERE status = $1`
	args := []any{domain.StatusPendingReview}

	if filter.EntityType != nil {
		args = append(args, *filter.EntityType)
		query += fmt.Sprintf(" AND entity_type = $%d", len(args))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		query += fmt.Sprintf(" AND priority = $%d", len(args))
	}

	query += ` ORDER BY CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END DESC,
	           created_at DESC`
	args = append(args, limit, offset)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list open conflicts: %w", err)
	}
	defer rows.Close()

	reviews := []domain.ConflictReview{}
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conflict review: %w", err)
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

// MarkReviewed transitions a pending review to approved or rejected. The
// status guard in the WHERE clause makes the transition single-shot even
// under concurrent reviewers.
func (r *reviewRepository) MarkReviewed(ctx context.Context, id uuid.UUID, status domain.ReviewStatus, reviewedBy string, notes string, reviewedAt time.Time) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE conflict_reviews
		 SET status = $2, reviewed_by = $3, review_notes = $4, reviewed_at = $5
		 WHERE id = $1 AND status = $6`,
		id,
		status,
		reviewedBy,
		notes,
		reviewedAt,
		domain.StatusPendingReview,
	)
	if err != nil {
		return fmt.Errorf("failed to update conflict review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM conflict_reviews WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check conflict review: %w", err)
		}
		if !exists {
			return domain.ErrReviewNotFound
		}
		return domain.ErrReviewAlreadyResolved
	}
	return nil
}

// CountByStatus tallies reviews per lifecycle state.
func (r *reviewRepository) CountByStatus(ctx context.Context) (map[domain.ReviewStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM conflict_reviews GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("failed to count conflict reviews: %w", err)
	}
	defer rows.Close()

	counts := map[domain.ReviewStatus]int64{}
	for rows.Next() {
		var (
			status domain.ReviewStatus
			count  int64
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan review count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

const selectReviewColumns = `SELECT id, entity_type, entity_id, entity_name, field,
	current_value, suggested_value, evidence, confidence, priority, status,
	created_at, reviewed_at, reviewed_by, review_notes`

func scanReview(row rowScanner) (domain.ConflictReview, error) {
	var (
		review        domain.ConflictReview
		currentJSON   json.RawMessage
		suggestedJSON json.RawMessage
		evidenceJSON  json.RawMessage
		reviewedAt    *time.Time
		reviewedBy    *string
		reviewNotes   *string
	)
	if err := row.Scan(
		&review.ID,
		&review.EntityType,
		&review.EntityID,
		&review.EntityName,
		&review.Field,
		&currentJSON,
		&suggestedJSON,
		&evidenceJSON,
		&review.Confidence,
		&review.Priority,
		&review.Status,
		&review.CreatedAt,
		&reviewedAt,
		&reviewedBy,
		&reviewNotes,
	); err != nil {
		return domain.ConflictReview{}, err
	}

	if err := json.Unmarshal(currentJSON, &review.CurrentValue); err != nil {
		return domain.ConflictReview{}, fmt.Errorf("failed to decode current value: %w", err)
	}
	if err := json.Unmarshal(suggestedJSON, &review.SuggestedValue); err != nil {
		return domain.ConflictReview{}, fmt.Errorf("failed to decode suggested value: %w", err)
	}
	if err := json.Unmarshal(evidenceJSON, &review.Evidence); err != nil {
		return domain.ConflictReview{}, fmt.Errorf("failed to decode evidence: %w", err)
	}

	review.ReviewedAt = reviewedAt
	if reviewedBy != nil {
		review.ReviewedBy = *reviewedBy
	}
	if reviewNotes != nil {
		review.ReviewNotes = *reviewNotes
	}
	return review, nil
}
