package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"unifarm/internal/boost"
	"unifarm/internal/farming"
	"unifarm/internal/ledger"
	"unifarm/internal/missions"
	"unifarm/internal/referral"
	"unifarm/internal/wallet"
)

func TestWriteDomainError(t *testing.T) {
	tests := []struct {
		err        error
		wantStatus int
	}{
		{ledger.ErrNotFound, http.StatusNotFound},
		{ledger.ErrValidation, http.StatusBadRequest},
		{ledger.ErrInsufficientPrecision, http.StatusBadRequest},
		{farming.ErrDepositTooSmall, http.StatusBadRequest},
		{boost.ErrUnknownPackage, http.StatusBadRequest},
		{boost.ErrAmountOutOfRange, http.StatusBadRequest},
		{referral.ErrSelfReferral, http.StatusBadRequest},
		{wallet.ErrWithdrawalTooSmall, http.StatusBadRequest},
		{ledger.ErrInsufficientFunds, http.StatusPaymentRequired},
		{ledger.ErrDuplicate, http.StatusConflict},
		{farming.ErrSessionActive, http.StatusConflict},
		{boost.ErrBoostActive, http.StatusConflict},
		{referral.ErrAlreadyAttached, http.StatusConflict},
		{referral.ErrReferralCycle, http.StatusConflict},
		{missions.ErrAlreadyCompleted, http.StatusConflict},
		{fmt.Errorf("wrapped: %w", ledger.ErrInsufficientFunds), http.StatusPaymentRequired},
		{errors.New("database exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeDomainError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var resp envelope
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if resp.Success {
				t.Error("success = true, want false")
			}
			if resp.Error == "" {
				t.Error("error message is empty")
			}
		})
	}
}

func TestWriteDomainError_HidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	writeDomainError(rec, errors.New("pq: connection refused at 10.0.0.5"))

	var resp envelope
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if resp.Error != "internal server error" {
		t.Errorf("error = %q, want generic message", resp.Error)
	}
}

func TestWriteSuccess(t *testing.T) {
	rec := httptest.NewRecorder()
	writeSuccess(rec, http.StatusOK, map[string]string{"status": "ok"})

	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}

	var resp envelope
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !resp.Success {
		t.Error("success = false, want true")
	}
}
