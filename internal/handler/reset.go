package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/messagely/messagely-go/internal/middleware"
	"github.com/messagely/messagely-go/internal/model"
	"github.com/messagely/messagely-go/internal/service"
)

// ResetHandler handles HTTP requests for password resets. Both endpoints
// require an authenticated caller; the reset always targets the caller's
// own account.
type ResetHandler struct {
	service *service.ResetService
}

// NewResetHandler creates a new ResetHandler.
func NewResetHandler(svc *service.ResetService) *ResetHandler {
	return &ResetHandler{service: svc}
}

// HandleRequestReset handles POST /api/v1/auth/reset/request requests.
func (h *ResetHandler) HandleRequestReset(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	resp, err := h.service.RequestReset(r.Context(), username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleConfirmReset handles POST /api/v1/auth/reset/confirm requests.
func (h *ResetHandler) HandleConfirmReset(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB

	var req model.ConfirmResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err.Error() == "http: request body too large" {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	err := h.service.ConfirmReset(r.Context(), username, req.Code, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidResetCode):
			writeJSON(w, http.StatusBadRequest, errorResponse("invalid reset code"))
		case errors.Is(err, service.ErrPasswordRequired):
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "password changed"})
}
