package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"driving-quiz-service/internal/app"
	"driving-quiz-service/internal/domain"
	"driving-quiz-service/internal/logging"
)

// ProgressHandler serves read-only progress summaries as JSON.
type ProgressHandler struct {
	service *app.ProgressService
	logger  logging.Logger
}

func NewProgressHandler(service *app.ProgressService, logger logging.Logger) *ProgressHandler {
	return &ProgressHandler{service: service, logger: logger}
}

// CategoryProgress handles GET /progress?userId=..&categoryId=..
func (h *ProgressHandler) CategoryProgress(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	categoryID, err := strconv.Atoi(r.URL.Query().Get("categoryId"))
	if userID == "" || err != nil {
		http.Error(w, "missing userId or categoryId", http.StatusBadRequest)
		return
	}
	progress, err := h.service.CategoryProgress(r.Context(), userID, categoryID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, progress)
}

// Tests handles GET /tests and reports how many tests exist.
func (h *ProgressHandler) Tests(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.TestCount(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, map[string]int{"count": count})
}

func (h *ProgressHandler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrCategoryNotFound) || errors.Is(err, domain.ErrTestNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	h.logger.LogError(err, "progress request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
