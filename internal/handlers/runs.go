package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/themizzi/uiverify/internal/models"
	"github.com/themizzi/uiverify/internal/services"
)

// RunsHandler lists recorded verification runs
type RunsHandler struct {
	historyService services.HistoryService
}

// NewRunsHandler creates a new runs handler
func NewRunsHandler(historyService services.HistoryService) *RunsHandler {
	return &RunsHandler{
		historyService: historyService,
	}
}

// RunsResponse is the body of GET /api/runs
type RunsResponse struct {
	Runs []*models.Run `json:"runs"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ServeHTTP handles GET /api/runs?limit=N
func (h *RunsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			sendErrorResponse(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	runs, err := h.historyService.RecentRuns(limit)
	if errors.Is(err, services.ErrHistoryDisabled) {
		sendErrorResponse(w, "Run history is not configured", http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		log.Printf("Error listing runs: %v", err)
		sendErrorResponse(w, "Failed to list runs", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*models.Run{}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(RunsResponse{Runs: runs}); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

// sendErrorResponse sends a JSON error response
func sendErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	})
}
