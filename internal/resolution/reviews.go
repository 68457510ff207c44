package resolution

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/pressmesh/reconcile/internal/domain"
	"github.com/pressmesh/reconcile/internal/repository"
)

// ErrReviewerRequired is returned when an approve/reject call carries no
// reviewer identity. Every terminal transition must be attributable.
var ErrReviewerRequired = errors.New("reviewer identity required")

// GetOpenConflicts fetches pending reviews, highest priority first, newest
// first within a priority.
func (e *Engine) GetOpenConflicts(ctx context.Context, filter domain.ReviewFilter) ([]domain.ConflictReview, error) {
	return e.reviews.ListOpen(ctx, filter)
}

// ApproveConflict applies the review's suggested value to the entity,
// stashing the current value as previous, then marks the review approved.
// Returns domain.ErrReviewNotFound for unknown ids and
// domain.ErrReviewAlreadyResolved for repeated transitions.
func (e *Engine) ApproveConflict(ctx context.Context, reviewID uuid.UUID, reviewedBy string, notes string) error {
	if reviewedBy == "" {
		return ErrReviewerRequired
	}

	review, err := e.reviews.GetByID(ctx, reviewID)
	if err != nil {
		return err
	}
	if review.Status != domain.StatusPendingReview {
		return domain.ErrReviewAlreadyResolved
	}

	err = e.entities.ApplyFieldUpdate(ctx, repository.FieldUpdate{
		EntityID:      review.EntityID,
		Field:         review.Field,
		NewValue:      review.SuggestedValue,
		PreviousValue: review.CurrentValue,
		UpdatedBy:     reviewedBy,
		Reason:        "Manual approval after conflict review",
		Confidence:    review.Confidence,
	})
	if err != nil {
		return fmt.Errorf("failed to apply approved value for %s.%s: %w", review.EntityType, review.Field, err)
	}

	if err := e.reviews.MarkReviewed(ctx, reviewID, domain.StatusApproved, reviewedBy, notes, e.now()); err != nil {
		return err
	}

	log.Printf("[RESOLVE] conflict %s approved by %s (%s.%s)", reviewID, reviewedBy, review.EntityType, review.Field)
	return nil
}

// RejectConflict marks the review rejected without touching the entity.
func (e *Engine) RejectConflict(ctx context.Context, reviewID uuid.UUID, reviewedBy string, notes string) error {
	if reviewedBy == "" {
		return ErrReviewerRequired
	}

	if err := e.reviews.MarkReviewed(ctx, reviewID, domain.StatusRejected, reviewedBy, notes, e.now()); err != nil {
		return err
	}

	log.Printf("[RESOLVE] conflict %s rejected by %s", reviewID, reviewedBy)
	return nil
}

// Stats summarizes review and auto-update activity.
func (e *Engine) Stats(ctx context.Context) (domain.ReviewStats, error) {
	counts, err := e.reviews.CountByStatus(ctx)
	if err != nil {
		return domain.ReviewStats{}, err
	}
	autoUpdates, err := e.audit.Count(ctx)
	if err != nil {
		return domain.ReviewStats{}, err
	}
	return domain.ReviewStats{
		Pending:     counts[domain.StatusPendingReview],
		Approved:    counts[domain.StatusApproved],
		Rejected:    counts[domain.StatusRejected],
		AutoUpdates: autoUpdates,
	}, nil
}

// FieldCandidates pairs one field with the candidate values and per-org
// observations collected for it during a matching scan.
type FieldCandidates struct {
	Field        string
	Values       []any
	Observations []domain.VariantObservation
}

// ResolveEntityFields resolves every supplied field of one entity in
// sequence, reading current values from the entity record. Fields are
// processed one at a time; this is the serialization point the engine's
// concurrency contract expects for same-entity work.
func (e *Engine) ResolveEntityFields(
	ctx context.Context,
	entityType domain.EntityType,
	entityID uuid.UUID,
	candidates []FieldCandidates,
) (map[string]domain.ResolutionDecision, error) {
	entity, err := e.entities.GetByID(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity %s: %w", entityID, err)
	}

	decisions := make(map[string]domain.ResolutionDecision, len(candidates))
	for _, fc := range candidates {
		decision, err := e.ResolveFieldConflict(ctx, domain.FieldCandidateSet{
			EntityType:      entityType,
			EntityID:        entityID,
			Field:           fc.Field,
			CurrentValue:    entity.FieldValue(fc.Field),
			CandidateValues: fc.Values,
			Observations:    fc.Observations,
		})
		if err != nil {
			return decisions, err
		}
		decisions[fc.Field] = decision
	}
	return decisions, nil
}
