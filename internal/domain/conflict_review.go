package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrReviewNotFound is returned when a review id does not exist.
	ErrReviewNotFound = errors.New("conflict review not found")
	// ErrReviewAlreadyResolved is returned when approving or rejecting a
	// review that has already left pending_review.
	ErrReviewAlreadyResolved = errors.New("conflict review already resolved")
)

// ReviewPriority orders pending reviews for human triage.
type ReviewPriority string

const (
	PriorityLow    ReviewPriority = "low"
	PriorityMedium ReviewPriority = "medium"
	PriorityHigh   ReviewPriority = "high"
)

// Rank maps priorities onto a sortable scale, highest first.
func (p ReviewPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	default:
		return 1
	}
}

// ReviewStatus is the lifecycle state of a conflict review. Transitions are
// pending_review -> approved or pending_review -> rejected, exactly once.
type ReviewStatus string

const (
	StatusPendingReview ReviewStatus = "pending_review"
	StatusApproved      ReviewStatus = "approved"
	StatusRejected      ReviewStatus = "rejected"
)

// ReviewEvidence captures why the engine flagged a field, so a reviewer can
// judge without re-running the matching scan.
type ReviewEvidence struct {
	CurrentValueSource  ValueSource          `json:"currentValueSource"`
	CurrentValueAgeDays int                  `json:"currentValueAgeDays"`
	NewVariantsCount    int                  `json:"newVariantsCount"`
	TotalVariantsCount  int                  `json:"totalVariantsCount"`
	VariantDetails      []VariantObservation `json:"variantDetails"`
}

// ConflictReview is a persisted, human-reviewable disagreement between an
// entity field's current value and the majority of incoming candidates.
type ConflictReview struct {
	ID             uuid.UUID      `json:"id"`
	EntityType     EntityType     `json:"entityType"`
	EntityID       uuid.UUID      `json:"entityId"`
	EntityName     string         `json:"entityName"`
	Field          string         `json:"field"`
	CurrentValue   any            `json:"currentValue"`
	SuggestedValue any            `json:"suggestedValue"`
	Evidence       ReviewEvidence `json:"evidence"`
	Confidence     float64        `json:"confidence"`
	Priority       ReviewPriority `json:"priority"`
	Status         ReviewStatus   `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
	ReviewedAt     *time.Time     `json:"reviewedAt,omitempty"`
	ReviewedBy     string         `json:"reviewedBy,omitempty"`
	ReviewNotes    string         `json:"reviewNotes,omitempty"`
}

// ReviewFilter narrows listings of pending reviews.
type ReviewFilter struct {
	EntityType *EntityType
	Priority   *ReviewPriority
	Limit      int
	Offset     int
}

// ReviewStats summarizes review and auto-update activity for dashboards.
type ReviewStats struct {
	Pending     int64 `json:"pending"`
	Approved    int64 `json:"approved"`
	Rejected    int64 `json:"rejected"`
	AutoUpdates int64 `json:"autoUpdates"`
}
