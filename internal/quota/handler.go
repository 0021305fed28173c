package quota

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/mealtrack/mealtrack/internal/api"
	"github.com/mealtrack/mealtrack/internal/auth"
)

// Handler exposes the read-only quota endpoint.
type Handler struct {
	svc *Service
}

// NewHandler creates a new quota Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// GetRemaining returns the authenticated user's remaining daily and
// minute budgets without consuming either.
func (h *Handler) GetRemaining(w http.ResponseWriter, r *http.Request) {
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

	status, err := h.svc.Remaining(r.Context(), userID, time.Now())
	if err != nil {
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, status)
}
