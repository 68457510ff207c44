// Package admin exposes bookkeeping endpoints for the records surrounding
// resolution: reference entities, tenant organizations and the auto-update
// audit trail.
package admin

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/pressmesh/reconcile/internal/domain"
	"github.com/pressmesh/reconcile/internal/repository"
)

type Handler struct {
	entities repository.EntityRepository
	orgs     repository.OrganizationRepository
	audit    repository.AuditLogRepository
}

func NewHTTPHandler(
	entities repository.EntityRepository,
	orgs repository.OrganizationRepository,
	audit repository.AuditLogRepository,
) http.Handler {
	return &Handler{entities: entities, orgs: orgs, audit: audit}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/organizations"):
		h.handleCreateOrganization(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/organizations"):
		h.handleListOrganizations(w, r)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/entities"):
		h.handleCreateEntity(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/audit"):
		h.handleEntityAudit(w, r)
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/entities/"):
		h.handleGetEntity(w, r)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/entities"):
		h.handleListEntities(w, r)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

type organizationPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *Handler) handleCreateOrganization(w http.ResponseWriter, r *http.Request) {
	var payload organizationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	org, err := h.orgs.Create(r.Context(), domain.NewOrganization(strings.TrimSpace(payload.Name), payload.Description))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, org)
}

func (h *Handler) handleListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgs.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

type entityPayload struct {
	EntityType string         `json:"entityType"`
	Name       string         `json:"name"`
	Properties map[string]any `json:"properties"`
}

func (h *Handler) handleCreateEntity(w http.ResponseWriter, r *http.Request) {
	var payload entityPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}

	entityType, err := domain.ParseEntityType(payload.EntityType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(payload.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}

	entity, err := h.entities.Create(r.Context(), domain.NewEntity(entityType, strings.TrimSpace(payload.Name), payload.Properties))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, entity)
}

func (h *Handler) handleGetEntity(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r.URL.Path, "entities")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	entity, err := h.entities.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

func (h *Handler) handleListEntities(w http.ResponseWriter, r *http.Request) {
	entityType, err := domain.ParseEntityType(r.URL.Query().Get("entityType"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entities, err := h.entities.List(r.Context(), entityType, limit, offset)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entities)
}

// handleEntityAudit serves /entities/{id}/audit.
func (h *Handler) handleEntityAudit(w http.ResponseWriter, r *http.Request) {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(segments) < 2 {
		http.Error(w, "entity id required", http.StatusBadRequest)
		return
	}
	id, err := uuid.Parse(segments[len(segments)-2])
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid entity id: %v", err), http.StatusBadRequest)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.audit.ListByEntity(r.Context(), id, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func idFromPath(path string, segment string) (uuid.UUID, error) {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, part := range parts {
		if part == segment && i+1 < len(parts) {
			id, err := uuid.Parse(parts[i+1])
			if err != nil {
				return uuid.Nil, fmt.Errorf("invalid id: %w", err)
			}
			return id, nil
		}
	}
	return uuid.Nil, fmt.Errorf("id required")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
