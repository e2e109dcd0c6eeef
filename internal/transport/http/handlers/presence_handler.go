package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/spark/internal/service"
	"github.com/vedran77/spark/internal/transport/http/middleware"
	"github.com/vedran77/spark/pkg/logger"
)

type PresenceHandler struct {
	presenceService *service.PresenceService
}

func NewPresenceHandler(presenceService *service.PresenceService) *PresenceHandler {
	return &PresenceHandler{presenceService: presenceService}
}

func (h *PresenceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.presenceService.Heartbeat(r.Context(), userID); err != nil {
		logger.Errorf("heartbeat: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *PresenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(r.PathValue("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	rec, err := h.presenceService.Get(r.Context(), targetID)
	if err != nil {
		logger.Errorf("get presence: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

func (h *PresenceHandler) SetTyping(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		ConversationID uuid.UUID `json:"conversation_id"`
		Typing         bool      `json:"typing"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if input.ConversationID == uuid.Nil {
		writeError(w, http.StatusBadRequest, "MISSING_CONVERSATION_ID", "conversation_id is required")
		return
	}

	if err := h.presenceService.SetTyping(r.Context(), userID, input.ConversationID, input.Typing); err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Conversation not found")
		case errors.Is(err, service.ErrNotParticipant):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not a participant of this conversation")
		default:
			logger.Errorf("set typing: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
