package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mtlprog/walletview/internal/history"
)

// Handler provides HTTP endpoints for portfolio history.
type Handler struct {
	history *history.Service
}

// NewHandler creates a new API handler.
func NewHandler(h *history.Service) *Handler {
	return &Handler{history: h}
}

// GetLatestSummary handles GET /api/v1/history/latest.
func (h *Handler) GetLatestSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.history.GetLatest(r.Context())
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no summaries found")
			return
		}
		slog.Error("failed to get latest summary", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetSummaryByDate handles GET /api/v1/history/{date}.
func (h *Handler) GetSummaryByDate(w http.ResponseWriter, r *http.Request) {
	dateStr := r.PathValue("date")
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	s, err := h.history.GetByDate(r.Context(), date)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "summary not found for date")
			return
		}
		slog.Error("failed to get summary by date", "date", dateStr, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ListSummaries handles GET /api/v1/history.
func (h *Handler) ListSummaries(w http.ResponseWriter, r *http.Request) {
	const maxLimit = 365
	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}

	records, err := h.history.List(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list summaries", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if records == nil {
		records = []history.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetChange handles GET /api/v1/history/change?days=N.
func (h *Handler) GetChange(w http.ResponseWriter, r *http.Request) {
	days := 7
	if d := r.URL.Query().Get("days"); d != "" {
		n, err := strconv.Atoi(d)
		if err != nil || n <= 0 || n > 3650 {
			writeError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	change, err := h.history.GetChange(r.Context(), time.Duration(days)*24*time.Hour)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not enough history for period")
			return
		}
		slog.Error("failed to compute change", "days", days, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, change)
}

// GenerateSummary handles POST /api/v1/history/generate.
func (h *Handler) GenerateSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.history.Generate(r.Context(), time.Now())
	if err != nil {
		if errors.Is(err, history.ErrPortfolioNotLoaded) {
			writeError(w, http.StatusServiceUnavailable, "portfolio not loaded yet")
			return
		}
		slog.Error("failed to generate summary", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate summary")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
