package handler

import (
	"errors"
	"net/http"

	"github.com/ayo6706/payment-screening/internal/service"
	"go.uber.org/zap"
)

type AccountHandler struct {
	svc *service.AccountService
}

func NewAccountHandler(svc *service.AccountService) *AccountHandler {
	return &AccountHandler{svc: svc}
}

// GetAccount handles GET /v1/accounts/{id}.
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuidParam(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-account-id", "Invalid account ID")
		return
	}

	account, err := h.svc.GetAccount(r.Context(), accountID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			RespondError(w, r, http.StatusNotFound, "account/not-found", "Account not found")
			return
		}
		respondInternal(w, r, "account/read-failed", "Failed to get account", err, zap.String("account_id", accountID.String()))
		return
	}
	RespondData(w, http.StatusOK, account)
}

// ListTransactions handles GET /v1/accounts/{id}/transactions.
func (h *AccountHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuidParam(r, "id")
	if err != nil {
		RespondError(w, r, http.StatusBadRequest, "request/invalid-account-id", "Invalid account ID")
		return
	}

	txs, err := h.svc.ListTransactions(r.Context(), accountID, queryInt(r, "page"), queryInt(r, "page_size"))
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			RespondError(w, r, http.StatusNotFound, "account/not-found", "Account not found")
			return
		}
		respondInternal(w, r, "account/transactions-read-failed", "Failed to list transactions", err, zap.String("account_id", accountID.String()))
		return
	}
	RespondData(w, http.StatusOK, txs)
}
