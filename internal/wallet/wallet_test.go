package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"unifarm/internal/ledger"
	"unifarm/internal/models"
)

type requestCall struct {
	userID   uint
	currency string
	amount   decimal.Decimal
}

type fakeStore struct {
	err       error
	requests  []requestCall
	confirmed []uint
}

func (f *fakeStore) RequestWithdrawal(_ context.Context, userID uint, currency string, amount decimal.Decimal) (*models.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, requestCall{userID, currency, amount})
	return &models.Transaction{
		ID:       1,
		UserID:   userID,
		Type:     models.TransactionWithdrawal,
		Currency: currency,
		Amount:   amount,
		Status:   models.TransactionPending,
	}, nil
}

func (f *fakeStore) ConfirmTransaction(_ context.Context, id uint) error {
	f.confirmed = append(f.confirmed, id)
	return nil
}

func TestRequest(t *testing.T) {
	tests := []struct {
		name     string
		currency string
		amount   string
		storeErr error
		wantErr  error
	}{
		{name: "UNI withdrawal", currency: models.CurrencyUNI, amount: "25"},
		{name: "TON withdrawal", currency: models.CurrencyTON, amount: "3.5"},
		{name: "below minimum", currency: models.CurrencyUNI, amount: "0.5", wantErr: ErrWithdrawalTooSmall},
		{name: "excess precision", currency: models.CurrencyUNI, amount: "1.0000001", wantErr: ledger.ErrInsufficientPrecision},
		{name: "insufficient funds", currency: models.CurrencyUNI, amount: "10000", storeErr: ledger.ErrInsufficientFunds, wantErr: ledger.ErrInsufficientFunds},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{err: tt.storeErr}
			service := NewService(store, decimal.RequireFromString("1"))

			rec, err := service.Request(context.Background(), 1, tt.currency, decimal.RequireFromString(tt.amount))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Request() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Request() error = %v", err)
			}

			if rec.Status != models.TransactionPending {
				t.Errorf("status = %q, want pending", rec.Status)
			}
			if len(store.requests) != 1 {
				t.Fatalf("request calls = %d, want 1", len(store.requests))
			}
			if store.requests[0].currency != tt.currency {
				t.Errorf("currency = %q, want %q", store.requests[0].currency, tt.currency)
			}
		})
	}
}

func TestConfirm(t *testing.T) {
	store := &fakeStore{}
	service := NewService(store, decimal.RequireFromString("1"))

	if err := service.Confirm(context.Background(), 42); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if len(store.confirmed) != 1 || store.confirmed[0] != 42 {
		t.Errorf("confirmed = %v, want [42]", store.confirmed)
	}
}
