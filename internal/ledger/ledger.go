package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"unifarm/internal/models"
)

// Scale is the fixed decimal precision of every stored balance and amount.
const Scale = 6

const pgUniqueViolation = "23505"

// Ledger is the only component allowed to mutate user balances and append
// transaction rows. Compound operations run inside a single database
// transaction so a settlement either lands fully or not at all.
type Ledger struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// CheckScale rejects amounts with more than Scale decimal places.
func CheckScale(amount decimal.Decimal) error {
	if !amount.Equal(amount.Truncate(Scale)) {
		return ErrInsufficientPrecision
	}
	return nil
}

func validateAmount(currency string, amount decimal.Decimal) error {
	if currency != models.CurrencyUNI && currency != models.CurrencyTON {
		return fmt.Errorf("%w: unknown currency %q", ErrValidation, currency)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return CheckScale(amount)
}

func balanceColumn(currency string) string {
	if currency == models.CurrencyTON {
		return "ton_balance"
	}
	return "uni_balance"
}

func balanceOf(user *models.User, currency string) decimal.Decimal {
	if currency == models.CurrencyTON {
		return user.TonBalance
	}
	return user.UniBalance
}

// CreditBalance atomically increments a user's balance and returns the new value.
func (l *Ledger) CreditBalance(ctx context.Context, userID uint, currency string, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := validateAmount(currency, delta); err != nil {
		return decimal.Zero, err
	}
	return creditBalance(l.db.WithContext(ctx), userID, currency, delta)
}

func creditBalance(tx *gorm.DB, userID uint, currency string, delta decimal.Decimal) (decimal.Decimal, error) {
	column := balanceColumn(currency)
	res := tx.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return decimal.Zero, fmt.Errorf("error crediting balance: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return decimal.Zero, ErrNotFound
	}

	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		return decimal.Zero, fmt.Errorf("error fetching balance after credit: %w", err)
	}
	return balanceOf(&user, currency), nil
}

// DebitBalance decrements a user's balance, failing with ErrInsufficientFunds
// when the stored balance cannot cover the delta. The check and the decrement
// are one conditional UPDATE, so concurrent debits cannot drive a balance
// negative.
func (l *Ledger) DebitBalance(ctx context.Context, userID uint, currency string, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := validateAmount(currency, delta); err != nil {
		return decimal.Zero, err
	}
	return debitBalance(l.db.WithContext(ctx), userID, currency, delta)
}

func debitBalance(tx *gorm.DB, userID uint, currency string, delta decimal.Decimal) (decimal.Decimal, error) {
	column := balanceColumn(currency)
	res := tx.Model(&models.User{}).
		Where("id = ? AND "+column+" >= ?", userID, delta).
		UpdateColumn(column, gorm.Expr(column+" - ?", delta))
	if res.Error != nil {
		return decimal.Zero, fmt.Errorf("error debiting balance: %w", res.Error)
	}

	if res.RowsAffected == 0 {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
			return decimal.Zero, fmt.Errorf("error checking user existence: %w", err)
		}
		if count == 0 {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, ErrInsufficientFunds
	}

	var user models.User
	if err := tx.First(&user, userID).Error; err != nil {
		return decimal.Zero, fmt.Errorf("error fetching balance after debit: %w", err)
	}
	return balanceOf(&user, currency), nil
}

// ValidateRecord checks the required transaction fields.
func ValidateRecord(rec *models.Transaction) error {
	if rec == nil {
		return fmt.Errorf("%w: nil transaction", ErrValidation)
	}
	if rec.UserID == 0 {
		return fmt.Errorf("%w: missing user", ErrValidation)
	}
	if rec.Type == "" {
		return fmt.Errorf("%w: missing type", ErrValidation)
	}
	return validateAmount(rec.Currency, rec.Amount)
}

// AppendTransaction inserts a transaction row and returns the generated ID.
// An empty idempotency key is filled with a fresh UUID; a colliding key fails
// with ErrDuplicate.
func (l *Ledger) AppendTransaction(ctx context.Context, rec *models.Transaction) (uint, error) {
	if err := ValidateRecord(rec); err != nil {
		return 0, err
	}
	if err := appendTransaction(l.db.WithContext(ctx), rec); err != nil {
		return 0, err
	}
	return rec.ID, nil
}

func appendTransaction(tx *gorm.DB, rec *models.Transaction) error {
	if rec.Status == "" {
		rec.Status = models.TransactionConfirmed
	}
	if rec.IdempotencyKey == "" {
		rec.IdempotencyKey = uuid.NewString()
	}

	if err := tx.Create(rec).Error; err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			log.Printf("Duplicate transaction suppressed: key=%s user=%d type=%s", rec.IdempotencyKey, rec.UserID, rec.Type)
			return ErrDuplicate
		}
		return fmt.Errorf("error inserting transaction: %w", err)
	}
	return nil
}

// ConfirmTransaction moves a pending transaction to confirmed. Confirmed rows
// are immutable, so confirming anything else fails with ErrNotFound.
func (l *Ledger) ConfirmTransaction(ctx context.Context, id uint) error {
	res := l.db.WithContext(ctx).Model(&models.Transaction{}).
		Where("id = ? AND status = ?", id, models.TransactionPending).
		UpdateColumn("status", models.TransactionConfirmed)
	if res.Error != nil {
		return fmt.Errorf("error confirming transaction: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Transactions returns a user's transaction history, newest first.
func (l *Ledger) Transactions(ctx context.Context, userID uint, limit int) ([]models.Transaction, error) {
	var records []models.Transaction
	q := l.db.WithContext(ctx).Where("user_id = ?", userID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&records).Error; err != nil {
		return nil, fmt.Errorf("error fetching transactions: %w", err)
	}
	return records, nil
}
