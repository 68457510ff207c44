package resolution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pressmesh/reconcile/internal/domain"
	"github.com/pressmesh/reconcile/internal/repository"
)

type stubEntityRepo struct {
	entity    domain.Entity
	getErr    error
	prov      domain.FieldProvenance
	provErr   error
	updates   []repository.FieldUpdate
	updateErr error
}

func (s *stubEntityRepo) Create(ctx context.Context, entity domain.Entity) (domain.Entity, error) {
	return entity, nil
}

func (s *stubEntityRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Entity, error) {
	if s.getErr != nil {
		return domain.Entity{}, s.getErr
	}
	return s.entity, nil
}

func (s *stubEntityRepo) List(ctx context.Context, entityType domain.EntityType, limit int, offset int) ([]domain.Entity, error) {
	return []domain.Entity{s.entity}, nil
}

func (s *stubEntityRepo) ApplyFieldUpdate(ctx context.Context, update repository.FieldUpdate) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, update)
	return nil
}

func (s *stubEntityRepo) GetFieldProvenance(ctx context.Context, id uuid.UUID, field string) (domain.FieldProvenance, error) {
	if s.provErr != nil {
		return domain.UnknownProvenance(), s.provErr
	}
	return s.prov, nil
}

type stubReviewRepo struct {
	reviews    map[uuid.UUID]domain.ConflictReview
	created    []domain.ConflictReview
	createErr  error
	lastFilter domain.ReviewFilter
}

func (s *stubReviewRepo) Create(ctx context.Context, review domain.ConflictReview) (domain.ConflictReview, error) {
	if s.createErr != nil {
		return domain.ConflictReview{}, s.createErr
	}
	s.created = append(s.created, review)
	if s.reviews == nil {
		s.reviews = map[uuid.UUID]domain.ConflictReview{}
	}
	s.reviews[review.ID] = review
	return review, nil
}

func (s *stubReviewRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.ConflictReview, error) {
	review, ok := s.reviews[id]
	if !ok {
		return domain.ConflictReview{}, domain.ErrReviewNotFound
	}
	return review, nil
}

func (s *stubReviewRepo) ListOpen(ctx context.Context, filter domain.ReviewFilter) ([]domain.ConflictReview, error) {
	s.lastFilter = filter
	open := []domain.ConflictReview{}
	for _, review := range s.reviews {
		if review.Status == domain.StatusPendingReview {
			open = append(open, review)
		}
	}
	return open, nil
}

func (s *stubReviewRepo) MarkReviewed(ctx context.Context, id uuid.UUID, status domain.ReviewStatus, reviewedBy string, notes string, reviewedAt time.Time) error {
	review, ok := s.reviews[id]
	if !ok {
		return domain.ErrReviewNotFound
	}
	if review.Status != domain.StatusPendingReview {
		return domain.ErrReviewAlreadyResolved
	}
	review.Status = status
	review.ReviewedBy = reviewedBy
	review.ReviewNotes = notes
	review.ReviewedAt = &reviewedAt
	s.reviews[id] = review
	return nil
}

func (s *stubReviewRepo) CountByStatus(ctx context.Context) (map[domain.ReviewStatus]int64, error) {
	counts := map[domain.ReviewStatus]int64{}
	for _, review := range s.reviews {
		counts[review.Status]++
	}
	return counts, nil
}

type stubAuditRepo struct {
	entries   []domain.AutoUpdateLogEntry
	appendErr error
}

func (s *stubAuditRepo) Append(ctx context.Context, entry domain.AutoUpdateLogEntry) error {
	if s.appendErr != nil {
		return s.appendErr
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *stubAuditRepo) ListByEntity(ctx context.Context, entityID uuid.UUID, limit int) ([]domain.AutoUpdateLogEntry, error) {
	return s.entries, nil
}

func (s *stubAuditRepo) Count(ctx context.Context) (int64, error) {
	return int64(len(s.entries)), nil
}

type stubOrgRepo struct {
	orgs map[uuid.UUID]domain.Organization
}

func (s *stubOrgRepo) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	return org, nil
}

func (s *stubOrgRepo) GetByID(ctx context.Context, id uuid.UUID) (domain.Organization, error) {
	org, ok := s.orgs[id]
	if !ok {
		return domain.Organization{}, errors.New("organization not found")
	}
	return org, nil
}

func (s *stubOrgRepo) List(ctx context.Context) ([]domain.Organization, error) {
	return nil, nil
}

type testFixture struct {
	engine   *Engine
	entities *stubEntityRepo
	reviews  *stubReviewRepo
	audit    *stubAuditRepo
	orgs     *stubOrgRepo
}

func newFixture() *testFixture {
	entities := &stubEntityRepo{
		entity: domain.Entity{
			ID:         uuid.New(),
			EntityType: domain.EntityTypePublication,
			Name:       "Der Spiegel",
			Properties: map[string]any{},
		},
		prov: domain.FieldProvenance{Source: domain.SourceAutomatic, AgeDays: 30},
	}
	reviews := &stubReviewRepo{reviews: map[uuid.UUID]domain.ConflictReview{}}
	audit := &stubAuditRepo{}
	orgs := &stubOrgRepo{orgs: map[uuid.UUID]domain.Organization{}}

	return &testFixture{
		engine:   NewEngine(entities, reviews, audit, orgs, DefaultThresholds()),
		entities: entities,
		reviews:  reviews,
		audit:    audit,
		orgs:     orgs,
	}
}

func (f *testFixture) candidateSet(field string, current any, candidates ...any) domain.FieldCandidateSet {
	return domain.FieldCandidateSet{
		EntityType:      domain.EntityTypePublication,
		EntityID:        f.entities.entity.ID,
		Field:           field,
		CurrentValue:    current,
		CandidateValues: candidates,
	}
}

func TestResolveFillsEmptyField(t *testing.T) {
	f := newFixture()

	decision, err := f.engine.ResolveFieldConflict(context.Background(),
		f.candidateSet("website", nil, "https://spiegel.de", "https://spiegel.de", "https://spiegel.de"))
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}

	if decision.Action != domain.ActionAutoUpdated {
		t.Fatalf("expected auto_updated, got %s", decision.Action)
	}
	if decision.Value != "https://spiegel.de" {
		t.Fatalf("unexpected value: %v", decision.Value)
	}
	if decision.Confidence != 1.0 {
		t.Fatalf("expected confidence 1.0, got %f", decision.Confidence)
	}
	if decision.Reason != "Field was empty" {
		t.Fatalf("unexpected reason: %q", decision.Reason)
	}

	if len(f.entities.updates) != 1 {
		t.Fatalf("expected one field update, got %d", len(f.entities.updates))
	}
	update := f.entities.updates[0]
	if update.NewValue != "https://spiegel.de" || update.UpdatedBy != domain.WriterMatchingSystem {
		t.Fatalf("unexpected update: %+v", update)
	}
	if len(f.audit.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(f.audit.entries))
	}
}

func TestResolveFillsEmptyCriticalFieldRegardlessOfCount(t *testing.T) {
	f := newFixture()

	decision, err := f.engine.ResolveFieldConflict(context.Background(),
		f.candidateSet("name", "", "New Name"))
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}

	if decision.Action != domain.ActionAutoUpdated {
		t.Fatalf("empty-field fill must bypass thresholds, got %s", decision.Action)
	}
	if decision.Value != "new name" {
		t.Fatalf("expected normalized majority value, got %v", decision.Value)
	}
}

func TestResolveNeverAutoUpdatesCriticalFieldBelowUnanimity(t *testing.T) {
	f := newFixture()

	candidates := []any{}
	for i := 0; i < 9; i++ {
		candidates = append(candidates, "New Name")
	}
	candidates = append(candidates, "Other Name")

	set := f.candidateSet("name", "Current Name", candidates...)
	decision, err := f.engine.ResolveFieldConflict(context.Background(), set)
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}

	if decision.Action != domain.ActionFlaggedForReview {
		t.Fatalf("90%% majority on a critical field must flag, got %s", decision.Action)
	}
	if decision.Value != "Current Name" {
		t.Fatalf("flagged decision must keep current value, got %v", decision.Value)
	}
	if len(f.entities.updates) != 0 {
		t.Fatalf("entity must not be touched, got %d updates", len(f.entities.updates))
	}
	if len(f.reviews.created) != 1 {
		t.Fatalf("expected one review, got %d", len(f.reviews.created))
	}
	review := f.reviews.created[0]
	if review.Priority != domain.PriorityHigh {
		t.Fatalf("expected high priority at 90%% with 10 variants, got %s", review.Priority)
	}
	if review.SuggestedValue != "new name" {
		t.Fatalf("unexpected suggested value: %v", review.SuggestedValue)
	}
	if review.Status != domain.StatusPendingReview {
		t.Fatalf("new reviews must be pending, got %s", review.Status)
	}
}

func TestResolveAutoUpdatesOnSuperMajority(t *testing.T) {
	f := newFixture()
	f.entities.prov = domain.FieldProvenance{Source: domain.SourceAutomatic, AgeDays: 400}

	decision, err := f.engine.ResolveFieldConflict(context.Background(),
		f.candidateSet("website", "https://old.de", "https://spiegel.de", "https://spiegel.de", "https://spiegel.de"))
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}

	if decision.Action != domain.ActionAutoUpdated {
		t.Fatalf("expected auto_updated, got %s (%s)", decision.Action, decision.Reason)
	}
	if decision.Value != "https://spiegel.de" {
		t.Fatalf("unexpected value: %v", decision.Value)
	}

	if len(f.entities.updates) != 1 {
		t.Fatalf("expected one field update, got %d", len(f.entities.updates))
	}
	update := f.entities.updates[0]
	if update.PreviousValue != "https://old.de" {
		t.Fatalf("previous value must be stashed, got %v", update.PreviousValue)
	}

	if len(f.audit.entries) != 1 {
		t.Fatalf("expected one audit entry, got %d", len(f.audit.entries))
	}
	entry := f.audit.entries[0]
	if entry.ValueAgeDays != 400 {
		t.Fatalf("audit entry must carry the value age, got %d", entry.ValueAgeDays)
	}
	if entry.MajorityCount != 3 || entry.TotalCount != 3 {
		t.Fatalf("unexpected variant counts: %d/%d", entry.MajorityCount, entry.TotalCount)
	}
}

func TestResolveSameDayManualEntryGuard(t *testing.T) {
	f := newFixture()
	f.entities.prov = domain.FieldProvenance{Source: domain.SourceManualEntry, AgeDays: 0}

	decision, err := f.engine.ResolveFieldConflict(context.Background(),
		f.candidateSet("website", "https://old.de",
			"https://new.de", "https://new.de", "https://new.de", "https://new.de"))
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}

	if decision.Action != domain.ActionFlaggedForReview {
		t.Fatalf("same-day manual entry must flag, got %s", decision.Action)
	}
	if decision.Reason != "Manual entry from today - needs review" {
		t.Fatalf("unexpected reason: %q", decision.Reason)
	}
	if len(f.entities.updates) != 0 {
		t.Fatalf("entity must not be touched")
	}

	if len(f.reviews.created) != 1 {
		t.Fatalf("expected one review, got %d", len(f.reviews.created))
	}
	review := f.reviews.created[0]
	if review.Priority != domain.PriorityHigh {
		t.Fatalf("same-day manual guard must force high priority, got %s", review.Priority)
	}
	if review.Evidence.CurrentValueSource != domain.SourceManualEntry {
		t.Fatalf("evidence must record the manual source, got %s", review.Evidence.CurrentValueSource)
	}
}

func TestResolveGuardsFreshEntityWithoutRecordedWriter(t *testing.T) {
	f := newFixture()
	// An entity created by a person today carries no writer metadata yet;
	// its values still classify as manual_entry and trip the same-day guard.
	f.entities.prov = domain.FieldProvenance{Source: domain.ClassifySource(""), AgeDays: 0}

	decision, err := f.engine.ResolveFieldConflict(context.Background(),
		f.candidateSet("website", "https://old.de",
			"https://new.de", "https://new.de", "https://new.de", "https://new.de"))
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}

	if decision.Action != domain.ActionFlaggedForReview {
		t.Fatalf("same-day value without recorded writer must flag, got %s", decision.Action)
	}
	if decision.Reason != "Manual entry from today - needs review" {
		t.Fatalf("unexpected reason: %q", decision.Reason)
	}
	if len(f.entities.updates) != 0 {
		t.Fatalf("entity must not be touched")
	}
	if len(f.reviews.created) != 1 || f.reviews.created[0].Priority != domain.PriorityHigh {
		t.Fatalf("expected one high-priority review, got %+v", f.reviews.created)
	}
}

func TestResolveSkipsAutoUpdateOnThinEvidence(t *testing.T) {
	f := newFixture()

	decision, err := f.engine.ResolveFieldConflict(context.Background(),
		f.candidateSet("website", "https://old.de", "https://new.de", "https://new.de"))
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}

	if decision.Action != domain.ActionFlaggedForReview {
		t.Fatalf("two candidates must never auto-update, got %s", decision.Action)
	}
	if len(f.reviews.created) != 1 {
		t.Fatalf("expected one review, got %d", len(f.reviews.created))
	}
	// unanimous, but only 2 variants: below both priority count gates
	if f.reviews.created[0].Priority != domain.PriorityLow {
		t.Fatalf("expected low priority, got %s", f.reviews.created[0].Priority)
	}
}

func TestResolveTwoThirdsMajorityConflict(t *testing.T) {
	f := newFixture()

	decision, err := f.engine.ResolveFieldConflict(context.Background(),
		f.candidateSet("name", "Current Name", "New Name", "New Name", "Other Name"))
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}

	if decision.Action != domain.ActionFlaggedForReview {
		t.Fatalf("expected flagged_for_review, got %s", decision.Action)
	}
	review := f.reviews.created[0]
	// 2/3 majority: above the flag line but below the 90% high gate
	if review.Priority != domain.PriorityLow {
		t.Fatalf("expected low priority at 66%%, got %s", review.Priority)
	}
	if review.Evidence.NewVariantsCount != 2 || review.Evidence.TotalVariantsCount != 3 {
		t.Fatalf("unexpected evidence counts: %+v", review.Evidence)
	}
}

func TestResolveKeepsExistingWithoutCandidates(t *testing.T) {
	f := newFixture()

	decision, err := f.engine.ResolveFieldConflict(context.Background(),
		f.candidateSet("website", "https://old.de", nil, "", "  "))
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}

	if decision.Action != domain.ActionKeptExisting {
		t.Fatalf("expected kept_existing, got %s", decision.Action)
	}
	if decision.Confidence != 0 {
		t.Fatalf("expected confidence 0, got %f", decision.Confidence)
	}
	if decision.Value != "https://old.de" {
		t.Fatalf("expected current value, got %v", decision.Value)
	}
	if len(f.entities.updates) != 0 || len(f.reviews.created) != 0 || len(f.audit.entries) != 0 {
		t.Fatalf("no writes expected on empty candidate set")
	}
}

func TestResolveDegradesOnProvenanceFailure(t *testing.T) {
	f := newFixture()
	f.entities.provErr = errors.New("storage unavailable")

	decision, err := f.engine.ResolveFieldConflict(context.Background(),
		f.candidateSet("website", "https://old.de", "https://new.de", "https://new.de", "https://new.de"))
	if err != nil {
		t.Fatalf("provenance failure must not surface: %v", err)
	}

	// unknown source, sentinel age: the auto-update tier stays open
	if decision.Action != domain.ActionAutoUpdated {
		t.Fatalf("expected auto_updated under degraded provenance, got %s", decision.Action)
	}
	if f.audit.entries[0].ValueAgeDays != domain.UnknownAgeDays {
		t.Fatalf("expected sentinel age in audit entry, got %d", f.audit.entries[0].ValueAgeDays)
	}
}

func TestResolvePropagatesUpdateFailure(t *testing.T) {
	f := newFixture()
	f.entities.updateErr = errors.New("write refused")

	_, err := f.engine.ResolveFieldConflict(context.Background(),
		f.candidateSet("website", nil, "https://new.de"))
	if err == nil {
		t.Fatalf("expected persistence failure to propagate")
	}
}

func TestResolvePropagatesReviewPersistenceFailure(t *testing.T) {
	f := newFixture()
	f.reviews.createErr = errors.New("write refused")

	_, err := f.engine.ResolveFieldConflict(context.Background(),
		f.candidateSet("name", "Current Name", "New Name", "New Name", "Other Name"))
	if err == nil {
		t.Fatalf("expected persistence failure to propagate")
	}
}

func TestResolveEnrichesReviewEvidence(t *testing.T) {
	f := newFixture()
	orgID := uuid.New()
	f.orgs.orgs[orgID] = domain.Organization{ID: orgID, Name: "Acme PR"}

	set := f.candidateSet("name", "Current Name", "New Name", "New Name", "Other Name")
	set.Observations = []domain.VariantObservation{
		{OrganizationID: orgID, Value: "New Name", ContactID: "contact-1"},
	}

	if _, err := f.engine.ResolveFieldConflict(context.Background(), set); err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}

	review := f.reviews.created[0]
	if review.EntityName != "Der Spiegel" {
		t.Fatalf("review must carry the entity name, got %q", review.EntityName)
	}
	details := review.Evidence.VariantDetails
	if len(details) != 1 || details[0].OrganizationName != "Acme PR" {
		t.Fatalf("expected enriched variant details, got %+v", details)
	}
}

func TestResolveDryRunPerformsNoWrites(t *testing.T) {
	f := newFixture()

	decision := f.engine.Resolve(context.Background(),
		f.candidateSet("website", nil, "https://spiegel.de", "https://spiegel.de"))

	if decision.Action != domain.ActionAutoUpdated {
		t.Fatalf("expected auto_updated decision, got %s", decision.Action)
	}
	if len(f.entities.updates) != 0 || len(f.audit.entries) != 0 || len(f.reviews.created) != 0 {
		t.Fatalf("dry run must not write")
	}
}

func TestResolveEntityFieldsReadsCurrentValues(t *testing.T) {
	f := newFixture()
	f.entities.entity.Properties = map[string]any{"website": "https://old.de"}
	f.entities.prov = domain.FieldProvenance{Source: domain.SourceAutomatic, AgeDays: 500}

	decisions, err := f.engine.ResolveEntityFields(context.Background(),
		domain.EntityTypePublication, f.entities.entity.ID, []FieldCandidates{
			{Field: "website", Values: []any{"https://spiegel.de", "https://spiegel.de", "https://spiegel.de"}},
			{Field: "phone", Values: []any{"+49 40 1234", "+49 40 1234"}},
		})
	if err != nil {
		t.Fatalf("batch resolve returned error: %v", err)
	}

	if len(decisions) != 2 {
		t.Fatalf("expected two decisions, got %d", len(decisions))
	}
	if decisions["website"].Action != domain.ActionAutoUpdated {
		t.Fatalf("expected website auto-update, got %s", decisions["website"].Action)
	}
	// phone is empty on the entity: candidates fill the gap
	if decisions["phone"].Action != domain.ActionAutoUpdated {
		t.Fatalf("expected phone fill, got %s", decisions["phone"].Action)
	}
}

func TestAdjustedUpdateProbability(t *testing.T) {
	cases := []struct {
		pct      float64
		ageDays  int
		variants int
		want     float64
	}{
		{0.8, 30, 3, 0.8},
		{0.8, 400, 3, 0.9},
		{0.8, 800, 3, 1.0},
		{0.8, 800, 5, 1.0}, // clamped
		{0.9, 10, 5, 0.95},
	}
	for _, c := range cases {
		got := adjustedUpdateProbability(c.pct, c.ageDays, c.variants)
		if got != c.want {
			t.Fatalf("adjustedUpdateProbability(%v, %d, %d) = %v, want %v", c.pct, c.ageDays, c.variants, got, c.want)
		}
	}
}

func TestReviewPriority(t *testing.T) {
	if got := reviewPriority(1.0, 5); got != domain.PriorityHigh {
		t.Fatalf("unanimity with 5 variants must be high, got %s", got)
	}
	if got := reviewPriority(0.9, 4); got != domain.PriorityHigh {
		t.Fatalf("90%% with 4 variants must be high, got %s", got)
	}
	if got := reviewPriority(0.8, 3); got != domain.PriorityMedium {
		t.Fatalf("80%% with 3 variants must be medium, got %s", got)
	}
	if got := reviewPriority(0.5, 2); got != domain.PriorityLow {
		t.Fatalf("50%% with 2 variants must be low, got %s", got)
	}
	if got := reviewPriority(0.95, 3); got != domain.PriorityMedium {
		t.Fatalf("95%% with only 3 variants must be medium, got %s", got)
	}
}
