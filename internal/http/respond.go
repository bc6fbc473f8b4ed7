package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/southsidewear/storefront/internal/catalog"
	"github.com/southsidewear/storefront/internal/checkout"
	"github.com/southsidewear/storefront/internal/domain"
	"github.com/southsidewear/storefront/internal/mercadopago"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps domain and provider errors to HTTP answers.
// Provider details are logged, never returned.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *domain.ValidationError
	var perr *mercadopago.ProviderError
	var nerr *mercadopago.NetworkError

	switch {
	case errors.As(err, &verr):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: verr.Message,
			Code:  "validation_failed",
			Field: verr.Field,
		})
	case errors.Is(err, catalog.ErrProductNotFound):
		respondError(w, http.StatusNotFound, "product_not_found", "product not found")
	case errors.Is(err, checkout.ErrNoNextStep),
		errors.Is(err, checkout.ErrNotAtPayment),
		errors.Is(err, checkout.ErrSubmitPending):
		respondError(w, http.StatusConflict, "invalid_step", err.Error())
	case errors.Is(err, checkout.ErrUnknownField):
		respondError(w, http.StatusBadRequest, "unknown_field", err.Error())
	case errors.As(err, &nerr):
		logger.WarnContext(r.Context(), "payment provider unreachable", "error", err)
		respondError(w, http.StatusServiceUnavailable, "provider_unreachable", "could not reach the payment provider, please try again")
	case errors.As(err, &perr):
		logger.ErrorContext(r.Context(), "payment provider error", "status", perr.StatusCode, "body", string(perr.Body))
		respondError(w, http.StatusBadGateway, "provider_error", "the payment could not be started, please try again")
	default:
		logger.ErrorContext(r.Context(), "request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
