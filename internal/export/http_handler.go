package export

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/pressmesh/reconcile/internal/domain"
)

// Handler exposes conflict export as an HTTP endpoint.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service with a GET endpoint.
func NewHTTPHandler(service *Service) http.Handler {
	return &Handler{service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter := domain.ReviewFilter{}
	if raw := strings.TrimSpace(r.URL.Query().Get("entityType")); raw != "" {
		entityType, err := domain.ParseEntityType(raw)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		filter.EntityType = &entityType
	}

	format := Format(strings.TrimSpace(r.URL.Query().Get("format")))
	result, err := h.service.OpenConflicts(r.Context(), filter, format)
	if err != nil {
		if errors.Is(err, ErrUnsupportedFormat) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.FileName))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}
