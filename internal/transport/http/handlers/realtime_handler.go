package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vedran77/spark/internal/service"
	"github.com/vedran77/spark/internal/transport/http/middleware"
	"github.com/vedran77/spark/pkg/logger"
	"github.com/vedran77/spark/pkg/validator"
)

type RealtimeHandler struct {
	channelAuth *service.ChannelAuthService
}

func NewRealtimeHandler(channelAuth *service.ChannelAuthService) *RealtimeHandler {
	return &RealtimeHandler{channelAuth: channelAuth}
}

// Authorize issues a signed grant for a private channel subscription.
// Not-found and forbidden are distinct responses on purpose.
func (h *RealtimeHandler) Authorize(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		ChannelName  string `json:"channel_name"`
		ConnectionID string `json:"connection_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if errs := validator.ValidateChannelAuth(input.ChannelName, input.ConnectionID); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	grant, err := h.channelAuth.Authorize(r.Context(), userID, input.ChannelName, input.ConnectionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUnknownChannel):
			writeError(w, http.StatusNotFound, "UNKNOWN_CHANNEL", "Unknown channel name")
		case errors.Is(err, service.ErrConversationNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Conversation not found")
		case errors.Is(err, service.ErrForbidden):
			writeError(w, http.StatusForbidden, "FORBIDDEN", "You are not allowed to subscribe to this channel")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		default:
			logger.Errorf("authorize channel: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusOK, grant)
}
