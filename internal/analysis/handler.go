package analysis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mealtrack/mealtrack/internal/api"
	"github.com/mealtrack/mealtrack/internal/auth"
)

const maxUploadBytes = 25 << 20 // image plus audio note

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Analyze accepts a multipart form with a required "image" part and an
// optional "audio" part, and returns the structured analysis.
func (h *Handler) Analyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(r.Context())
	if !ok {
		api.HandleError(w, api.ErrUnauthorized)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		api.HandleError(w, api.NewBadRequestError("invalid multipart form"))
		return
	}

	image, err := readFormFile(r, "image")
	if err != nil {
		api.HandleError(w, api.NewBadRequestError("image file is required"))
		return
	}

	audio, audioName, _ := readOptionalFormFile(r, "audio")

	result, err := h.svc.Analyze(r.Context(), userID, image, audio, audioName)
	if err != nil {
		var denied *QuotaDeniedError
		if errors.As(err, &denied) {
			api.HandleError(w, api.ErrQuotaExceeded)
			return
		}
		slog.Error("analyzing meal", "user_id", userID, "error", err)
		api.HandleError(w, api.ErrInternalServer)
		return
	}

	api.JSON(w, http.StatusOK, result)
}

func readFormFile(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}

func readOptionalFormFile(r *http.Request, field string) ([]byte, string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", err
	}
	return data, header.Filename, nil
}

func callerID(ctx context.Context) (uuid.UUID, bool) {
	claims := auth.GetUserClaims(ctx)
	if claims == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
