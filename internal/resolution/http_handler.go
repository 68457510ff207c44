package resolution

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pressmesh/reconcile/internal/auth"
	"github.com/pressmesh/reconcile/internal/domain"
)

// Handler exposes the resolution engine over HTTP.
type Handler struct {
	engine *Engine
}

// NewHTTPHandler wraps the engine with JSON endpoints.
func NewHTTPHandler(engine *Engine) http.Handler {
	return &Handler{engine: engine}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/resolve"):
		h.handleResolve(w, r)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/resolve/batch"):
		h.handleResolveBatch(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/conflicts/stats"):
		h.handleStats(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/conflicts"):
		h.handleListConflicts(w, r)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/approve"):
		h.handleReviewTransition(w, r, domain.StatusApproved)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/reject"):
		h.handleReviewTransition(w, r, domain.StatusRejected)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type resolvePayload struct {
	EntityType          string                      `json:"entityType"`
	EntityID            string                      `json:"entityId"`
	Field               string                      `json:"field"`
	CurrentValue        any                         `json:"currentValue"`
	CandidateValues     []any                       `json:"candidateValues"`
	Observations        []domain.VariantObservation `json:"observations"`
	AggregateConfidence float64                     `json:"aggregateConfidence"`
}

func (h *Handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	var payload resolvePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}

	entityType, err := domain.ParseEntityType(payload.EntityType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entityID, err := uuid.Parse(strings.TrimSpace(payload.EntityID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid entity id: %v", err), http.StatusBadRequest)
		return
	}
	field := strings.TrimSpace(payload.Field)
	if field == "" {
		http.Error(w, "field is required", http.StatusBadRequest)
		return
	}

	decision, err := h.engine.ResolveFieldConflict(r.Context(), domain.FieldCandidateSet{
		EntityType:          entityType,
		EntityID:            entityID,
		Field:               field,
		CurrentValue:        payload.CurrentValue,
		CandidateValues:     payload.CandidateValues,
		Observations:        payload.Observations,
		AggregateConfidence: payload.AggregateConfidence,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

type resolveBatchPayload struct {
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Fields     []struct {
		Field        string                      `json:"field"`
		Values       []any                       `json:"values"`
		Observations []domain.VariantObservation `json:"observations"`
	} `json:"fields"`
}

func (h *Handler) handleResolveBatch(w http.ResponseWriter, r *http.Request) {
	var payload resolveBatchPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}

	entityType, err := domain.ParseEntityType(payload.EntityType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	entityID, err := uuid.Parse(strings.TrimSpace(payload.EntityID))
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid entity id: %v", err), http.StatusBadRequest)
		return
	}

	candidates := make([]FieldCandidates, 0, len(payload.Fields))
	for _, f := range payload.Fields {
		if strings.TrimSpace(f.Field) == "" {
			http.Error(w, "field name is required", http.StatusBadRequest)
			return
		}
		candidates = append(candidates, FieldCandidates{
			Field:        strings.TrimSpace(f.Field),
			Values:       f.Values,
			Observations: f.Observations,
		})
	}

	decisions, err := h.engine.ResolveEntityFields(r.Context(), entityType, entityID, candidates)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, decisions)
}

func (h *Handler) handleListConflicts(w http.ResponseWriter, r *http.Request) {
	filter, err := reviewFilterFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	reviews, err := h.engine.GetOpenConflicts(r.Context(), filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, reviews)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.Stats(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type reviewTransitionPayload struct {
	ReviewerID string `json:"reviewerId"`
	Notes      string `json:"notes"`
}

// handleReviewTransition serves /conflicts/{id}/approve and /conflicts/{id}/reject.
func (h *Handler) handleReviewTransition(w http.ResponseWriter, r *http.Request, status domain.ReviewStatus) {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(segments) < 2 {
		http.Error(w, "review id required", http.StatusBadRequest)
		return
	}
	reviewID, err := uuid.Parse(segments[len(segments)-2])
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid review id: %v", err), http.StatusBadRequest)
		return
	}

	var payload reviewTransitionPayload
	if r.Body != nil {
		// empty body is fine, reviewer may come from the request header
		_ = json.NewDecoder(r.Body).Decode(&payload)
	}
	reviewerID := strings.TrimSpace(payload.ReviewerID)
	if reviewerID == "" {
		if fromCtx, ok := auth.ReviewerIDFromContext(r.Context()); ok {
			reviewerID = fromCtx
		}
	}

	if status == domain.StatusApproved {
		err = h.engine.ApproveConflict(r.Context(), reviewID, reviewerID, payload.Notes)
	} else {
		err = h.engine.RejectConflict(r.Context(), reviewID, reviewerID, payload.Notes)
	}
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrReviewNotFound):
			http.Error(w, err.Error(), http.StatusNotFound)
		case errors.Is(err, domain.ErrReviewAlreadyResolved):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, ErrReviewerRequired):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"reviewId": reviewID.String(),
		"status":   string(status),
	})
}

func reviewFilterFromQuery(r *http.Request) (domain.ReviewFilter, error) {
	filter := domain.ReviewFilter{}

	if raw := strings.TrimSpace(r.URL.Query().Get("entityType")); raw != "" {
		entityType, err := domain.ParseEntityType(raw)
		if err != nil {
			return domain.ReviewFilter{}, err
		}
		filter.EntityType = &entityType
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("priority")); raw != "" {
		priority := domain.ReviewPriority(raw)
		switch priority {
		case domain.PriorityLow, domain.PriorityMedium, domain.PriorityHigh:
			filter.Priority = &priority
		default:
			return domain.ReviewFilter{}, fmt.Errorf("unknown priority %q", raw)
		}
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			return domain.ReviewFilter{}, fmt.Errorf("invalid limit: %w", err)
		}
		filter.Limit = limit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil {
			return domain.ReviewFilter{}, fmt.Errorf("invalid offset: %w", err)
		}
		filter.Offset = offset
	}

	return filter, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
