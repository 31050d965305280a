package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayo6706/payment-screening/internal/api/middleware"
	"github.com/ayo6706/payment-screening/internal/service"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PendingPaymentHandler serves the reviewer queue and review decisions.
type PendingPaymentHandler struct {
	screening *service.ScreeningService
}

func NewPendingPaymentHandler(screening *service.ScreeningService) *PendingPaymentHandler {
	return &PendingPaymentHandler{screening: screening}
}

// ReviewRequest is the body of POST /v1/pending-payments/review.
type ReviewRequest struct {
	PaymentID      string `json:"paymentId" validate:"required,uuid"`
	Action         string `json:"action" validate:"required,oneof=APPROVE REJECT approve reject"`
	ScreeningNotes string `json:"screeningNotes" validate:"max=2000"`
	ScreenedBy     string `json:"screenedBy" validate:"max=200"`
}

// List handles GET /v1/pending-payments.
func (h *PendingPaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.screening.ListPending(r.Context(), service.ListPendingRequest{
		RiskLevel: r.URL.Query().Get("riskLevel"),
		Page:      queryInt(r, "page"),
		Limit:     queryInt(r, "limit"),
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidRiskLevel) {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-risk-level", "riskLevel must be one of LOW, MEDIUM, HIGH")
			return
		}
		respondInternal(w, r, "pending-payment/list-failed", "Failed to list pending payments", err)
		return
	}
	RespondData(w, http.StatusOK, list)
}

// Get handles GET /v1/pending-payments/{id}.
func (h *PendingPaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-payment-id", "Invalid payment ID")
		return
	}
	p, err := h.screening.GetPendingPayment(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrPendingPaymentNotFound) {
			RespondError(w, r, http.StatusNotFound, "pending-payment/not-found", "Pending payment not found")
			return
		}
		respondInternal(w, r, "pending-payment/read-failed", "Failed to get pending payment", err, zap.String("payment_id", id.String()))
		return
	}
	RespondData(w, http.StatusOK, p)
}

// Review handles POST /v1/pending-payments/review. screenedBy defaults to the
// authenticated reviewer.
func (h *PendingPaymentHandler) Review(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", err.Error())
		return
	}
	paymentID, err := uuid.Parse(req.PaymentID)
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-payment-id", "Invalid paymentId")
		return
	}
	screenedBy := strings.TrimSpace(req.ScreenedBy)
	if screenedBy == "" {
		screenedBy = middleware.UserIDFromContext(r.Context())
	}

	decision, err := h.screening.Decide(r.Context(), service.DecisionRequest{
		PaymentID:      paymentID,
		Action:         req.Action,
		ScreeningNotes: req.ScreeningNotes,
		ScreenedBy:     screenedBy,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPendingPaymentNotFound):
			RespondError(w, r, http.StatusNotFound, "pending-payment/not-found", "Pending payment not found")
		case errors.Is(err, service.ErrPaymentAlreadyProcessed):
			RespondError(w, r, http.StatusConflict, "pending-payment/already-processed", "Payment has already been processed")
		case errors.Is(err, service.ErrInvalidAction):
			RespondError(w, r, http.StatusBadRequest, "request/invalid-action", "action must be APPROVE or REJECT")
		default:
			respondInternal(w, r, "pending-payment/review-failed", "Failed to record review decision", err,
				zap.String("payment_id", paymentID.String()),
				zap.String("action", req.Action),
			)
		}
		return
	}
	RespondData(w, http.StatusOK, decision)
}
