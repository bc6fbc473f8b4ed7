package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/southsidewear/storefront/internal/mercadopago"
	"github.com/southsidewear/storefront/internal/webhook"
)

// NotificationProcessor runs one payment notification to completion.
type NotificationProcessor interface {
	HandleNotification(ctx context.Context, body []byte, query url.Values) (webhook.Outcome, error)
}

type WebhookHandler struct {
	processor   NotificationProcessor
	secret      string
	maxBodySize int64
	logger      *slog.Logger
}

// NewWebhookHandler verifies x-signature headers when secret is non-empty.
func NewWebhookHandler(processor NotificationProcessor, secret string, maxBodySize int64, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		processor:   processor,
		secret:      secret,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// Notify handles POST /webhooks/mercadopago. Every handled notification is
// acknowledged with 200 and a short text; only a failure to record an
// approved order answers 500 so the provider redelivers it.
func (h *WebhookHandler) Notify(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "could not read body", http.StatusBadRequest)
		return
	}
	query := r.URL.Query()

	if h.secret != "" {
		dataID := query.Get("data.id")
		if dataID == "" {
			dataID, _ = webhook.ParseNotification(body, query)
		}
		err := mercadopago.VerifySignature(h.secret, r.Header.Get("x-signature"), dataID, r.Header.Get("x-request-id"))
		if err != nil {
			h.logger.WarnContext(r.Context(), "rejected webhook", "error", err, "data_id", dataID)
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}
	}

	outcome, err := h.processor.HandleNotification(r.Context(), body, query)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to record approved order", "error", err)
		http.Error(w, "error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, outcome.Ack())
}
