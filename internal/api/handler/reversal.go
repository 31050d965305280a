package handler

import (
	"errors"
	"net/http"

	"github.com/ayo6706/payment-screening/internal/service"
)

// ReversalHandler lists reversal outcomes; FAILED rows are the manual queue.
type ReversalHandler struct {
	svc *service.ReversalService
}

func NewReversalHandler(svc *service.ReversalService) *ReversalHandler {
	return &ReversalHandler{svc: svc}
}

// List handles GET /v1/reversals.
func (h *ReversalHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), r.URL.Query().Get("status"), queryInt(r, "page"), queryInt(r, "limit"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidReversalStatus) {
			RespondError(w, r, http.StatusBadRequest, "request/invalid-status", "status must be COMPLETED or FAILED")
			return
		}
		respondInternal(w, r, "reversal/list-failed", "Failed to list reversals", err)
		return
	}
	RespondData(w, http.StatusOK, items)
}
