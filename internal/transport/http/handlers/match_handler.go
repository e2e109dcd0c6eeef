package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/vedran77/spark/internal/service"
	"github.com/vedran77/spark/internal/transport/http/middleware"
	"github.com/vedran77/spark/pkg/logger"
)

type MatchHandler struct {
	matchService *service.MatchService
}

func NewMatchHandler(matchService *service.MatchService) *MatchHandler {
	return &MatchHandler{matchService: matchService}
}

func (h *MatchHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	page := 0
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p >= 0 {
			page = p
		}
	}

	matches, err := h.matchService.ListMatches(r.Context(), userID, page)
	if err != nil {
		logger.Errorf("list matches: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, matches)
}

// Status reports whether the authenticated user is matched with the
// user in the path.
func (h *MatchHandler) Status(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	otherID, err := uuid.Parse(r.PathValue("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return
	}

	match, err := h.matchService.GetStatus(r.Context(), userID, otherID)
	if err != nil {
		if errors.Is(err, service.ErrSelfAction) {
			writeError(w, http.StatusBadRequest, "SELF_ACTION", "You cannot check a match with yourself")
			return
		}
		logger.Errorf("match status: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"matched": match != nil,
		"match":   match,
	})
}
