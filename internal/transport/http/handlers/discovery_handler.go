package handlers

import (
	"net/http"
	"strconv"

	"github.com/vedran77/spark/internal/service"
	"github.com/vedran77/spark/internal/transport/http/middleware"
	"github.com/vedran77/spark/pkg/logger"
)

type DiscoveryHandler struct {
	discoveryService *service.DiscoveryService
}

func NewDiscoveryHandler(discoveryService *service.DiscoveryService) *DiscoveryHandler {
	return &DiscoveryHandler{discoveryService: discoveryService}
}

func (h *DiscoveryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	page := 0
	if pageStr := r.URL.Query().Get("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p >= 0 {
			page = p
		}
	}

	profiles, err := h.discoveryService.ListCandidates(r.Context(), userID, page)
	if err != nil {
		logger.Errorf("list candidates: %v", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Something went wrong")
		return
	}

	writeJSON(w, http.StatusOK, profiles)
}
