package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"unifarm/internal/models"
)

// RequestWithdrawal moves the amount out of the balance and records a pending
// withdrawal row in one transaction. The row stays pending until an operator
// confirms the on-chain transfer through ConfirmTransaction; the conditional
// debit keeps concurrent requests from overdrawing.
func (l *Ledger) RequestWithdrawal(ctx context.Context, userID uint, currency string, amount decimal.Decimal) (*models.Transaction, error) {
	if err := validateAmount(currency, amount); err != nil {
		return nil, err
	}

	rec := models.Transaction{
		UserID:      userID,
		Type:        models.TransactionWithdrawal,
		Currency:    currency,
		Amount:      amount,
		Status:      models.TransactionPending,
		Description: fmt.Sprintf("withdrawal of %s %s", amount, currency),
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := debitBalance(tx, userID, currency, amount); err != nil {
			return err
		}
		return appendTransaction(tx, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
