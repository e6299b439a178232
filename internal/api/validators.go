package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mtlprog/walletview/internal/domain"
)

// ValidatorService looks up validator reference data.
type ValidatorService interface {
	GetValidator(ctx context.Context, address string) (domain.Validator, error)
}

// ValidatorHandler serves validator lookups.
type ValidatorHandler struct {
	validators ValidatorService
}

// NewValidatorHandler creates a new validator handler.
func NewValidatorHandler(v ValidatorService) *ValidatorHandler {
	return &ValidatorHandler{validators: v}
}

// GetValidator handles GET /api/v1/validators/{address}. Upstream failures
// keep the status reported by the chain endpoint.
func (h *ValidatorHandler) GetValidator(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	v, err := h.validators.GetValidator(r.Context(), address)
	if err != nil {
		var fe *domain.FetchError
		if errors.As(err, &fe) {
			status := fe.Status
			if status < 400 || status > 599 {
				status = http.StatusBadGateway
			}
			writeJSON(w, status, map[string]any{"error": fe.Message, "status": fe.Status})
			return
		}
		slog.Error("failed to get validator", "address", address, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, v)
}
