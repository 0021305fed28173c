package meals

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mealtrack/mealtrack/internal/api"
	"github.com/mealtrack/mealtrack/internal/auth"
)

type Handler struct {
	svc      *Service
	validate *validator.Validate
}

func NewHandler(svc *Service) *Handler {
	return &Handler{
		svc:      svc,
		validate: validator.New(),
	}
}

// Upsert stores the meal identified by the path id. Safe to call twice
// with identical payloads; a cross-user id collision yields 409.
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	mealID := chi.URLParam(r, "mealID")
	if mealID == "" || len(mealID) > 64 {
		api.HandleError(w, api.NewBadRequestError("invalid meal id"))
		return
	}

	var req UpsertMealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrBadRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewValidationError(err.Error()))
		return
	}

	meal, err := h.svc.Upsert(r.Context(), userID, mealID, &req)
	if err != nil {
		if errors.Is(err, ErrIDConflict) {
			api.HandleError(w, api.ErrMealIDConflict)
			return
		}
		slog.Error("upserting meal", "error", err, "meal_id", mealID)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, meal)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	meal, err := h.svc.GetByID(r.Context(), userID, chi.URLParam(r, "mealID"))
	if err != nil {
		slog.Error("getting meal", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}
	if meal == nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	api.JSON(w, http.StatusOK, meal)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	params := DefaultListParams()
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

	list, totalCount, err := h.svc.ListByUser(r.Context(), userID, params)
	if err != nil {
		slog.Error("listing meals", "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSONPaginated(w, http.StatusOK, list, totalCount, params.Page, params.PageSize)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	if err := h.svc.Delete(r.Context(), userID, chi.URLParam(r, "mealID")); err != nil {
		api.HandleError(w, api.ErrNotFound)
		return
	}

	api.JSONMessage(w, http.StatusOK, "meal deleted")
}

func callerID(ctx context.Context) (uuid.UUID, bool) {
	claims := auth.GetUserClaims(ctx)
	if claims == nil {
		return uuid.Nil, false
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return userID, true
}
