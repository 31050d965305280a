package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ayo6706/payment-screening/internal/api/middleware"
	"github.com/ayo6706/payment-screening/internal/service"
	"go.uber.org/zap"
)

// BlockListHandler manages screening entries.
type BlockListHandler struct {
	svc *service.BlockListService
}

func NewBlockListHandler(svc *service.BlockListService) *BlockListHandler {
	return &BlockListHandler{svc: svc}
}

type AddBlockListEntryRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Type     string `json:"type" validate:"required,oneof=person organization entity"`
	Reason   string `json:"reason" validate:"required,max=200"`
	Severity int    `json:"severity" validate:"required,min=1,max=10"`
	AddedBy  string `json:"addedBy" validate:"max=200"`
	Notes    string `json:"notes" validate:"max=2000"`
}

type CheckNameRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// List handles GET /v1/blocklist.
func (h *BlockListHandler) List(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.ListActive(r.Context())
	if err != nil {
		respondInternal(w, r, "blocklist/list-failed", "Failed to list block list", err)
		return
	}
	RespondData(w, http.StatusOK, entries)
}

// Add handles POST /v1/blocklist.
func (h *BlockListHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req AddBlockListEntryRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", err.Error())
		return
	}
	addedBy := strings.TrimSpace(req.AddedBy)
	if addedBy == "" {
		addedBy = middleware.UserIDFromContext(r.Context())
	}

	id, err := h.svc.Add(r.Context(), service.AddBlockListEntryRequest{
		Name:     req.Name,
		Type:     req.Type,
		Reason:   req.Reason,
		Severity: req.Severity,
		AddedBy:  addedBy,
		Notes:    req.Notes,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidBlockListEntry) {
			RespondError(w, r, http.StatusBadRequest, "blocklist/invalid-entry", err.Error())
			return
		}
		respondInternal(w, r, "blocklist/add-failed", "Failed to add block list entry", err)
		return
	}
	RespondData(w, http.StatusCreated, map[string]string{"id": id.String()})
}

// Deactivate handles DELETE /v1/blocklist/{id}.
func (h *BlockListHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-entry-id", "Invalid block list entry ID")
		return
	}
	deactivated, err := h.svc.Deactivate(r.Context(), id, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		if errors.Is(err, service.ErrBlockListEntryNotFound) {
			RespondError(w, r, http.StatusNotFound, "blocklist/not-found", "Block list entry not found")
			return
		}
		respondInternal(w, r, "blocklist/deactivate-failed", "Failed to deactivate block list entry", err, zap.String("entry_id", id.String()))
		return
	}
	RespondData(w, http.StatusOK, map[string]bool{"deactivated": deactivated})
}

// Check handles POST /v1/blocklist/check, a dry run of the name matcher.
func (h *BlockListHandler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckNameRequest
	if err := DecodeJSONBody(w, r, &req); err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-body", err.Error())
		return
	}
	res, err := h.svc.Check(r.Context(), req.Name)
	if err != nil {
		if errors.Is(err, service.ErrScreeningUnavailable) {
			RespondError(w, r, http.StatusServiceUnavailable, "blocklist/unavailable", "Screening is temporarily unavailable")
			return
		}
		respondInternal(w, r, "blocklist/check-failed", "Failed to check name", err)
		return
	}
	RespondData(w, http.StatusOK, res)
}
