package domain

import (
	"github.com/google/uuid"
)

// ResolutionAction is the outcome of resolving one field's candidates.
type ResolutionAction string

const (
	ActionAutoUpdated      ResolutionAction = "auto_updated"
	ActionFlaggedForReview ResolutionAction = "flagged_for_review"
	ActionKeptExisting     ResolutionAction = "kept_existing"
)

// VariantObservation is one organization's sighting of a field value.
type VariantObservation struct {
	OrganizationID   uuid.UUID `json:"organizationId"`
	OrganizationName string    `json:"organizationName,omitempty"`
	Value            any       `json:"value"`
	ContactID        string    `json:"contactId,omitempty"`
}

// FieldCandidateSet is the per-call input to the resolution engine: the
// current value of one entity field plus all candidate values observed for
// it across organizations. It is never persisted.
type FieldCandidateSet struct {
	EntityType          EntityType
	EntityID            uuid.UUID
	Field               string
	CurrentValue        any
	CandidateValues     []any
	Observations        []VariantObservation
	AggregateConfidence float64
}

// ResolutionDecision is the immutable result returned for every resolution
// call. Value holds the winning value for auto-updates and the unchanged
// current value for flagged or kept outcomes.
type ResolutionDecision struct {
	Action     ResolutionAction `json:"action"`
	Value      any              `json:"value"`
	Confidence float64          `json:"confidence"`
	Reason     string           `json:"reason"`
	ReviewID   *uuid.UUID       `json:"reviewId,omitempty"`
}
