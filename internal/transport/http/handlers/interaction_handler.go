package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/vedran77/spark/internal/domain"
	"github.com/vedran77/spark/internal/service"
	"github.com/vedran77/spark/internal/transport/http/middleware"
	"github.com/vedran77/spark/pkg/logger"
	"github.com/vedran77/spark/pkg/validator"
)

type InteractionHandler struct {
	interactionService *service.InteractionService
}

func NewInteractionHandler(interactionService *service.InteractionService) *InteractionHandler {
	return &InteractionHandler{interactionService: interactionService}
}

func (h *InteractionHandler) Record(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var input struct {
		TargetID uuid.UUID              `json:"target_id"`
		Kind     domain.InteractionKind `json:"kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return
	}
	if errs := validator.ValidateInteraction(input.TargetID, string(input.Kind)); errs.HasErrors() {
		writeValidationErrors(w, errs)
		return
	}

	result, err := h.interactionService.Record(r.Context(), userID, input.TargetID, input.Kind)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSelfAction):
			writeError(w, http.StatusBadRequest, "SELF_ACTION", "You cannot like or dislike yourself")
		case errors.Is(err, service.ErrInvalidKind):
			writeError(w, http.StatusBadRequest, "INVALID_KIND", "Kind must be like or dislike")
		case errors.Is(err, service.ErrDuplicateAction):
			writeError(w, http.StatusConflict, "DUPLICATE_ACTION", "You already recorded this action")
		case errors.Is(err, service.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		case errors.Is(err, service.ErrUserInactive):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		case errors.Is(err, service.ErrTransientStore):
			writeError(w, http.StatusServiceUnavailable, "TRY_AGAIN", "Temporary conflict, please try again")
		default:
			logger.Errorf("record interaction: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

func (h *InteractionHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	targetID, err := uuid.Parse(r.PathValue("target_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid target user ID")
		return
	}

	if err := h.interactionService.Remove(r.Context(), userID, targetID); err != nil {
		switch {
		case errors.Is(err, service.ErrSelfAction):
			writeError(w, http.StatusBadRequest, "SELF_ACTION", "You cannot act on yourself")
		case errors.Is(err, service.ErrInteractionNotFound):
			writeError(w, http.StatusNotFound, "NOT_FOUND", "Interaction not found")
		default:
			logger.Errorf("remove interaction: %v", err)
			writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
