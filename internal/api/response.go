package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"unifarm/internal/boost"
	"unifarm/internal/farming"
	"unifarm/internal/ledger"
	"unifarm/internal/missions"
	"unifarm/internal/referral"
	"unifarm/internal/scheduler"
	"unifarm/internal/wallet"
)

type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func writeSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: true, Data: data}); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: false, Error: message}); err != nil {
		log.Printf("Failed to encode error response: %v", err)
	}
}

// writeDomainError maps sentinel errors onto HTTP statuses; anything
// unrecognized is a 500 with a generic message so store details stay out of
// responses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrValidation),
		errors.Is(err, ledger.ErrInsufficientPrecision),
		errors.Is(err, farming.ErrDepositTooSmall),
		errors.Is(err, boost.ErrAmountOutOfRange),
		errors.Is(err, boost.ErrUnknownPackage),
		errors.Is(err, wallet.ErrWithdrawalTooSmall),
		errors.Is(err, referral.ErrSelfReferral):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		writeError(w, http.StatusPaymentRequired, err.Error())
	case errors.Is(err, ledger.ErrDuplicate),
		errors.Is(err, farming.ErrSessionActive),
		errors.Is(err, boost.ErrBoostActive),
		errors.Is(err, referral.ErrAlreadyAttached),
		errors.Is(err, referral.ErrReferralCycle),
		errors.Is(err, missions.ErrAlreadyCompleted),
		errors.Is(err, scheduler.ErrAlreadyRunning):
		writeError(w, http.StatusConflict, err.Error())
	default:
		log.Printf("Internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
