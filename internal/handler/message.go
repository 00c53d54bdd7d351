package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/messagely/messagely-go/internal/middleware"
	"github.com/messagely/messagely-go/internal/model"
	"github.com/messagely/messagely-go/internal/service"
)

// MessageHandler handles HTTP requests for messages.
type MessageHandler struct {
	service *service.MessageService
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(svc *service.MessageService) *MessageHandler {
	return &MessageHandler{service: svc}
}

// HandleSend handles POST /api/v1/messages requests.
func (h *MessageHandler) HandleSend(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB

	var req model.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err.Error() == "http: request body too large" {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse("request body too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid request body"))
		return
	}

	resp, err := h.service.Send(r.Context(), username, req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRecipientRequired), errors.Is(err, service.ErrBodyRequired):
			writeJSON(w, http.StatusBadRequest, errorResponse(err.Error()))
		case errors.Is(err, service.ErrUserNotFound):
			writeJSON(w, http.StatusNotFound, errorResponse("recipient not found"))
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		}
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// HandleGet handles GET /api/v1/messages/{id} requests.
func (h *MessageHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	id, err := messageID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid message id"))
		return
	}

	resp, err := h.service.Get(r.Context(), username, id)
	if err != nil {
		writeMessageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleMarkRead handles POST /api/v1/messages/{id}/read requests.
func (h *MessageHandler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	id, err := messageID(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse("invalid message id"))
		return
	}

	resp, err := h.service.MarkRead(r.Context(), username, id)
	if err != nil {
		writeMessageError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleInbox handles GET /api/v1/messages/inbox requests.
func (h *MessageHandler) HandleInbox(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	resp, err := h.service.Inbox(r.Context(), username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// HandleOutbox handles GET /api/v1/messages/outbox requests.
func (h *MessageHandler) HandleOutbox(w http.ResponseWriter, r *http.Request) {
	username, ok := middleware.UsernameFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse("unauthorized"))
		return
	}

	resp, err := h.service.Outbox(r.Context(), username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func messageID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func writeMessageError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrMessageNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse(err.Error()))
	case errors.Is(err, service.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse(err.Error()))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse("internal server error"))
	}
}
