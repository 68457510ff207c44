package repository

import (
	"context"
	"time"

	"github.com/pressmesh/reconcile/internal/domain"

	"github.com/google/uuid"
)

// FieldUpdate describes a single field write, including the provenance
// metadata stashed next to the value (previous value, updater identity,
// reason, confidence, update timestamp).
type FieldUpdate struct {
	EntityID      uuid.UUID
	Field         string
	NewValue      any
	PreviousValue any
	UpdatedBy     string
	Reason        string
	Confidence    float64
}

// OrganizationRepository defines the interface for organization operations.
type OrganizationRepository interface {
	Create(ctx context.Context, org domain.Organization) (domain.Organization, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error)
	List(ctx context.Context) ([]domain.Organization, error)
}

// EntityRepository defines the interface for reference entity operations.
// The resolution engine reads current values and provenance through it and
// issues field updates; it never owns entity rows itself.
type EntityRepository interface {
	Create(ctx context.Context, entity domain.Entity) (domain.Entity, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Entity, error)
	List(ctx context.Context, entityType domain.EntityType, limit int, offset int) ([]domain.Entity, error)
	ApplyFieldUpdate(ctx context.Context, update FieldUpdate) error
	GetFieldProvenance(ctx context.Context, id uuid.UUID, field string) (domain.FieldProvenance, error)
}

// ReviewRepository defines the interface for conflict review persistence.
type ReviewRepository interface {
	Create(ctx context.Context, review domain.ConflictReview) (domain.ConflictReview, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.ConflictReview, error)
	ListOpen(ctx context.Context, filter domain.ReviewFilter) ([]domain.ConflictReview, error)
	MarkReviewed(ctx context.Context, id uuid.UUID, status domain.ReviewStatus, reviewedBy string, notes string, reviewedAt time.Time) error
	CountByStatus(ctx context.Context) (map[domain.ReviewStatus]int64, error)
}

// AuditLogRepository defines the interface for the append-only auto-update
// trail. Entries are never mutated or deleted.
type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AutoUpdateLogEntry) error
	ListByEntity(ctx context.Context, entityID uuid.UUID, limit int) ([]domain.AutoUpdateLogEntry, error)
	Count(ctx context.Context) (int64, error)
}
