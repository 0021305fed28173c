package audit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mealtrack/mealtrack/internal/api"
	"github.com/mealtrack/mealtrack/internal/auth"
)

// Handler provides HTTP handlers for the audit trail.
type Handler struct {
	repo *Repository
}

// NewHandler creates a new audit Handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List returns paginated audit logs for the authenticated user.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserClaims(r.Context())
	if claims == nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params := parseListParams(r)

	logs, total, err := h.repo.ListByUser(r.Context(), userID, params)
	if err != nil {
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, logs, total, params.Page, params.PageSize)
}

func parseListParams(r *http.Request) ListParams {
	params := DefaultListParams()

	if et := r.URL.Query().Get("event_type"); et != "" {
		params.EventType = et
	}
	if sev := r.URL.Query().Get("severity"); sev != "" {
		params.Severity = sev
	}
	if p := r.URL.Query().Get("page"); p != "" {
		if page, err := strconv.Atoi(p); err == nil && page > 0 {
			params.Page = page
		}
	}
	if ps := r.URL.Query().Get("page_size"); ps != "" {
		if pageSize, err := strconv.Atoi(ps); err == nil && pageSize > 0 && pageSize <= 100 {
			params.PageSize = pageSize
		}
	}
	if from := r.URL.Query().Get("from"); from != "" {
		if t, err := time.Parse(time.RFC3339, from); err == nil {
			params.From = &t
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if t, err := time.Parse(time.RFC3339, to); err == nil {
			params.To = &t
		}
	}

	return params
}
