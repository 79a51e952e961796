package wallet

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"unifarm/internal/ledger"
	"unifarm/internal/models"
)

var ErrWithdrawalTooSmall = errors.New("withdrawal below minimum")

type store interface {
	RequestWithdrawal(ctx context.Context, userID uint, currency string, amount decimal.Decimal) (*models.Transaction, error)
	ConfirmTransaction(ctx context.Context, id uint) error
}

// Service handles user-initiated withdrawals. The balance debit and the
// pending withdrawal row land atomically in the ledger; confirmation happens
// after the on-chain transfer settles.
type Service struct {
	store store
	min   decimal.Decimal
}

func NewService(store store, minWithdrawal decimal.Decimal) *Service {
	return &Service{store: store, min: minWithdrawal}
}

// Request opens a pending withdrawal, debiting the user's balance up front.
func (s *Service) Request(ctx context.Context, userID uint, currency string, amount decimal.Decimal) (*models.Transaction, error) {
	if err := ledger.CheckScale(amount); err != nil {
		return nil, err
	}
	if amount.LessThan(s.min) {
		return nil, fmt.Errorf("%w: minimum is %s", ErrWithdrawalTooSmall, s.min)
	}

	return s.store.RequestWithdrawal(ctx, userID, currency, amount)
}

// Confirm marks a pending withdrawal as paid out.
func (s *Service) Confirm(ctx context.Context, id uint) error {
	return s.store.ConfirmTransaction(ctx, id)
}
