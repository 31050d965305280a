package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/ayo6706/payment-screening/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SignatureHeader carries the HMAC of the raw webhook body.
const SignatureHeader = "X-Webhook-Signature"

// Dispatcher hands a recorded webhook to background settlement.
type Dispatcher interface {
	Dispatch(webhookID string) bool
}

// WebhookHandler handles incoming rail notifications.
type WebhookHandler struct {
	webhookSvc *service.WebhookService
	dispatcher Dispatcher
}

// NewWebhookHandler creates a new WebhookHandler instance.
func NewWebhookHandler(webhookSvc *service.WebhookService, dispatcher Dispatcher) *WebhookHandler {
	return &WebhookHandler{
		webhookSvc: webhookSvc,
		dispatcher: dispatcher,
	}
}

// HandlePaymentWebhook handles POST /v1/webhooks/payments.
// The notification is recorded before the response; settlement runs later.
func (h *WebhookHandler) HandlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", "Failed to read request body")
		return
	}

	ack, err := h.webhookSvc.Receive(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidSignature):
			RespondError(w, r, http.StatusUnauthorized, "webhook/invalid-signature", "Invalid signature")
		case errors.Is(err, service.ErrInvalidWebhook):
			RespondError(w, r, http.StatusBadRequest, "webhook/invalid-payload", err.Error())
		default:
			respondInternal(w, r, "webhook/record-failed", "Failed to record webhook", err)
		}
		return
	}

	if !ack.Duplicate && h.dispatcher != nil {
		if !h.dispatcher.Dispatch(ack.ID) {
			zap.L().Warn("webhook not queued, left for sweep", zap.String("webhook_id", ack.ID))
		}
	}
	RespondData(w, http.StatusOK, ack)
}

// GetWebhook handles GET /v1/webhooks/{id}.
func (h *WebhookHandler) GetWebhook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	wh, err := h.webhookSvc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrWebhookNotFound) {
			RespondError(w, r, http.StatusNotFound, "webhook/not-found", "Webhook not found")
			return
		}
		respondInternal(w, r, "webhook/read-failed", "Failed to get webhook", err, zap.String("webhook_id", id))
		return
	}
	RespondData(w, http.StatusOK, wh)
}
