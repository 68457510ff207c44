package resolution

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/pressmesh/reconcile/internal/domain"
	"github.com/pressmesh/reconcile/internal/repository"
)

const (
	// minimum candidates before the auto-update tier is considered at all
	minCandidatesForAutoUpdate = 3

	// aging bonuses applied to the adjusted update probability
	oldValueAgeDays     = 365
	veryOldValueAgeDays = 730
	oldValueBonus       = 0.10
	manyVariantsCount   = 5
	manyVariantsBonus   = 0.05

	// priority cut-offs for flagged conflicts
	highPriorityRatio   = 0.9
	highPriorityCount   = 4
	mediumPriorityRatio = 0.75
	mediumPriorityCount = 3
)

// Engine decides, per entity field, whether incoming candidate values fill a
// gap, overwrite the current value, or get parked as a conflict review. It
// owns the decision logic only; entities, reviews and the audit trail are
// persisted through the injected repositories.
//
// Calls for different entities may run concurrently; the engine holds no
// mutable state. Concurrent calls against the same entity+field are not
// coordinated and can produce duplicate reviews or a lost update - callers
// are expected to serialize per-entity work.
type Engine struct {
	entities   repository.EntityRepository
	reviews    repository.ReviewRepository
	audit      repository.AuditLogRepository
	orgs       repository.OrganizationRepository
	thresholds ThresholdTable

	now func() time.Time
}

// NewEngine wires a resolution engine over the given repositories.
func NewEngine(
	entities repository.EntityRepository,
	reviews repository.ReviewRepository,
	audit repository.AuditLogRepository,
	orgs repository.OrganizationRepository,
	thresholds ThresholdTable,
) *Engine {
	return &Engine{
		entities:   entities,
		reviews:    reviews,
		audit:      audit,
		orgs:       orgs,
		thresholds: thresholds,
		now:        time.Now,
	}
}

// outcome is the evaluated plan for one candidate set: the decision to
// return plus the writes ResolveFieldConflict still has to perform.
type outcome struct {
	decision domain.ResolutionDecision
	tally    TallyResult
	prov     domain.FieldProvenance

	performUpdate bool
	priority      domain.ReviewPriority
	createReview  bool
}

// Resolve runs the decision procedure without performing any writes. Useful
// for dry runs; ResolveFieldConflict is the persisting variant.
func (e *Engine) Resolve(ctx context.Context, set domain.FieldCandidateSet) domain.ResolutionDecision {
	return e.evaluate(ctx, set).decision
}

// ResolveFieldConflict runs the full three-tier procedure and performs the
// resulting writes: the field update plus audit entry for auto-updates, or
// the conflict review for flagged outcomes. Persistence failures are
// returned to the caller; provenance lookup failures degrade to sentinels
// and never surface.
func (e *Engine) ResolveFieldConflict(ctx context.Context, set domain.FieldCandidateSet) (domain.ResolutionDecision, error) {
	out := e.evaluate(ctx, set)

	if out.performUpdate {
		if err := e.performAutoUpdate(ctx, set, out); err != nil {
			return domain.ResolutionDecision{}, err
		}
	}
	if out.createReview {
		review, err := e.createConflictReview(ctx, set, out)
		if err != nil {
			return domain.ResolutionDecision{}, err
		}
		id := review.ID
		out.decision.ReviewID = &id
	}

	return out.decision, nil
}

// evaluate computes the decision and write plan. The only suspension points
// are the provenance lookups, which degrade to unknown-source / sentinel-age
// on failure.
func (e *Engine) evaluate(ctx context.Context, set domain.FieldCandidateSet) outcome {
	tally := Tally(set.CandidateValues)

	// no usable candidates: a definite outcome, not an error
	if !tally.HasData() {
		return outcome{
			tally: tally,
			decision: domain.ResolutionDecision{
				Action:     domain.ActionKeptExisting,
				Value:      set.CurrentValue,
				Confidence: 0,
				Reason:     "No candidate values provided",
			},
		}
	}

	majorityPct := tally.MajorityPercentage()

	// tier 1: filling an empty field is never a conflict
	if IsEmpty(set.CurrentValue) {
		return outcome{
			tally:         tally,
			performUpdate: true,
			decision: domain.ResolutionDecision{
				Action:     domain.ActionAutoUpdated,
				Value:      tally.Majority,
				Confidence: majorityPct,
				Reason:     "Field was empty",
			},
		}
	}

	threshold := e.thresholds.Lookup(set.Field)

	// tier 2: auto-update on a super majority, never on thin evidence
	if tally.TotalCount >= minCandidatesForAutoUpdate && majorityPct >= threshold.AutoUpdate {
		prov := e.fieldProvenance(ctx, set)

		// same-day human edits are never silently overwritten
		if prov.Source == domain.SourceManualEntry && prov.AgeDays < 1 {
			return outcome{
				tally:        tally,
				prov:         prov,
				createReview: true,
				priority:     domain.PriorityHigh,
				decision: domain.ResolutionDecision{
					Action:     domain.ActionFlaggedForReview,
					Value:      set.CurrentValue,
					Confidence: majorityPct,
					Reason:     "Manual entry from today - needs review",
				},
			}
		}

		adjusted := adjustedUpdateProbability(majorityPct, prov.AgeDays, tally.TotalCount)
		if adjusted >= threshold.AutoUpdate {
			return outcome{
				tally:         tally,
				prov:          prov,
				performUpdate: true,
				decision: domain.ResolutionDecision{
					Action:     domain.ActionAutoUpdated,
					Value:      tally.Majority,
					Confidence: adjusted,
					Reason: fmt.Sprintf("Super majority (%d%%) with %d/%d variants",
						roundPct(majorityPct), tally.MajorityCount, tally.TotalCount),
				},
			}
		}

		// adjustment fell short of the threshold; park it for review below
		log.Printf("[RESOLVE] %s.%s: adjusted probability %.2f below threshold %.2f, flagging",
			set.EntityType, set.Field, adjusted, threshold.AutoUpdate)
	}

	// tier 3: everything else becomes a conflict review
	prov := e.fieldProvenance(ctx, set)
	return outcome{
		tally:        tally,
		prov:         prov,
		createReview: true,
		priority:     reviewPriority(majorityPct, tally.TotalCount),
		decision: domain.ResolutionDecision{
			Action:     domain.ActionFlaggedForReview,
			Value:      set.CurrentValue,
			Confidence: majorityPct,
			Reason: fmt.Sprintf("Conflict detected - %d/%d variants suggest different value",
				tally.MajorityCount, tally.TotalCount),
		},
	}
}

// adjustedUpdateProbability starts from the majority ratio and adds aging
// and volume bonuses: +0.10 past one year, a further +0.10 past two years,
// +0.05 for five or more variants, clamped to 1.0. Bonuses can only raise
// the figure; the threshold comparison still has to pass afterwards.
func adjustedUpdateProbability(majorityPct float64, ageDays int, totalVariants int) float64 {
	probability := majorityPct
	if ageDays > oldValueAgeDays {
		probability += oldValueBonus
	}
	if ageDays > veryOldValueAgeDays {
		probability += oldValueBonus
	}
	if totalVariants >= manyVariantsCount {
		probability += manyVariantsBonus
	}
	return math.Min(probability, 1.0)
}

// reviewPriority ranks a flagged conflict for human triage.
func reviewPriority(majorityPct float64, totalVariants int) domain.ReviewPriority {
	switch {
	case majorityPct >= highPriorityRatio && totalVariants >= highPriorityCount:
		return domain.PriorityHigh
	case majorityPct >= mediumPriorityRatio && totalVariants >= mediumPriorityCount:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// fieldProvenance reads age and source for the current value, degrading to
// the unknown sentinels when the lookup fails. Unknown age behaves as very
// old, so automation stays permitted; the same-day guard only fires on a
// positively identified manual entry.
func (e *Engine) fieldProvenance(ctx context.Context, set domain.FieldCandidateSet) domain.FieldProvenance {
	prov, err := e.entities.GetFieldProvenance(ctx, set.EntityID, set.Field)
	if err != nil {
		log.Printf("[RESOLVE] provenance lookup failed for %s.%s: %v", set.EntityID, set.Field, err)
		return domain.UnknownProvenance()
	}
	return prov
}

func (e *Engine) performAutoUpdate(ctx context.Context, set domain.FieldCandidateSet, out outcome) error {
	reason := fmt.Sprintf("Auto-update: %d/%d variants, %d%% confidence",
		out.tally.MajorityCount, out.tally.TotalCount, roundPct(out.tally.MajorityPercentage()))

	err := e.entities.ApplyFieldUpdate(ctx, repository.FieldUpdate{
		EntityID:      set.EntityID,
		Field:         set.Field,
		NewValue:      out.tally.Majority,
		PreviousValue: set.CurrentValue,
		UpdatedBy:     domain.WriterMatchingSystem,
		Reason:        reason,
		Confidence:    out.tally.MajorityPercentage(),
	})
	if err != nil {
		return fmt.Errorf("failed to auto-update %s.%s: %w", set.EntityType, set.Field, err)
	}

	// audit append is a separate write; a failure here after the update
	// succeeded is an observable inconsistency the caller must tolerate
	entry := domain.AutoUpdateLogEntry{
		ID:            uuid.New(),
		EntityType:    set.EntityType,
		EntityID:      set.EntityID,
		Field:         set.Field,
		OldValue:      set.CurrentValue,
		NewValue:      out.tally.Majority,
		Confidence:    out.tally.MajorityPercentage(),
		MajorityCount: out.tally.MajorityCount,
		TotalCount:    out.tally.TotalCount,
		ValueAgeDays:  out.prov.AgeDays,
		CreatedAt:     e.now(),
	}
	if err := e.audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to append auto-update log for %s.%s: %w", set.EntityType, set.Field, err)
	}

	log.Printf("[RESOLVE] auto-updated %s %s.%s (%d/%d variants)",
		set.EntityType, set.EntityID, set.Field, out.tally.MajorityCount, out.tally.TotalCount)
	return nil
}

func (e *Engine) createConflictReview(ctx context.Context, set domain.FieldCandidateSet, out outcome) (domain.ConflictReview, error) {
	review := domain.ConflictReview{
		ID:             uuid.New(),
		EntityType:     set.EntityType,
		EntityID:       set.EntityID,
		EntityName:     e.entityName(ctx, set.EntityID),
		Field:          set.Field,
		CurrentValue:   set.CurrentValue,
		SuggestedValue: out.tally.Majority,
		Evidence: domain.ReviewEvidence{
			CurrentValueSource:  out.prov.Source,
			CurrentValueAgeDays: out.prov.AgeDays,
			NewVariantsCount:    out.tally.MajorityCount,
			TotalVariantsCount:  out.tally.TotalCount,
			VariantDetails:      e.enrichObservations(ctx, set.Observations),
		},
		Confidence: out.tally.MajorityPercentage(),
		Priority:   out.priority,
		Status:     domain.StatusPendingReview,
		CreatedAt:  e.now(),
	}

	created, err := e.reviews.Create(ctx, review)
	if err != nil {
		return domain.ConflictReview{}, fmt.Errorf("failed to create conflict review for %s.%s: %w", set.EntityType, set.Field, err)
	}

	log.Printf("[RESOLVE] flagged %s %s.%s for review (priority %s)",
		set.EntityType, set.EntityID, set.Field, created.Priority)
	return created, nil
}

// entityName resolves the display name for reviewer UIs; lookup failures
// fall back to "Unknown" rather than blocking review creation.
func (e *Engine) entityName(ctx context.Context, entityID uuid.UUID) string {
	entity, err := e.entities.GetByID(ctx, entityID)
	if err != nil || entity.Name == "" {
		return "Unknown"
	}
	return entity.Name
}

// enrichObservations fills in missing organization names so the evidence
// block is self-contained for reviewers.
func (e *Engine) enrichObservations(ctx context.Context, observations []domain.VariantObservation) []domain.VariantObservation {
	if len(observations) == 0 {
		return []domain.VariantObservation{}
	}
	enriched := make([]domain.VariantObservation, len(observations))
	copy(enriched, observations)
	for i := range enriched {
		if enriched[i].OrganizationName != "" || enriched[i].OrganizationID == uuid.Nil {
			continue
		}
		org, err := e.orgs.GetByID(ctx, enriched[i].OrganizationID)
		if err != nil {
			continue
		}
		enriched[i].OrganizationName = org.Name
	}
	return enriched
}

func roundPct(ratio float64) int {
	return int(math.Round(ratio * 100))
}
