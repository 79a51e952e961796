package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"unifarm/internal/models"
)

// DueSessions returns active sessions whose last settlement is at least
// minElapsed behind now, ordered by ID for a deterministic batch.
func (l *Ledger) DueSessions(ctx context.Context, now time.Time, minElapsed time.Duration) ([]models.FarmingSession, error) {
	cutoff := now.Add(-minElapsed)

	var sessions []models.FarmingSession
	err := l.db.WithContext(ctx).
		Where("status = ? AND last_settled_at <= ?", models.SessionActive, cutoff).
		Order("id").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching due sessions: %w", err)
	}
	return sessions, nil
}

// ExpiredSessions returns active sessions whose expiry instant has passed.
func (l *Ledger) ExpiredSessions(ctx context.Context, now time.Time) ([]models.FarmingSession, error) {
	var sessions []models.FarmingSession
	err := l.db.WithContext(ctx).
		Where("status = ? AND expires_at IS NOT NULL AND expires_at < ?", models.SessionActive, now).
		Order("id").
		Find(&sessions).Error
	if err != nil {
		return nil, fmt.Errorf("error fetching expired sessions: %w", err)
	}
	return sessions, nil
}

// ActiveSession returns the user's active session in the given currency.
func (l *Ledger) ActiveSession(ctx context.Context, userID uint, currency string) (*models.FarmingSession, error) {
	var session models.FarmingSession
	err := l.db.WithContext(ctx).
		Where("user_id = ? AND currency = ? AND status = ?", userID, currency, models.SessionActive).
		First(&session).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching active session: %w", err)
	}
	return &session, nil
}

// SettleFarmingReward commits one settlement: balance credit, farming_reward
// row and the LastSettledAt advance run in a single transaction. The session
// timestamp advances by whole intervals only, never snapped to now, so the
// unaccounted remainder carries into the next run. The conditional update on
// the old timestamp makes a concurrent double-settlement a no-op failure.
func (l *Ledger) SettleFarmingReward(ctx context.Context, session *models.FarmingSession, reward decimal.Decimal, intervals int64, interval time.Duration) error {
	if intervals <= 0 {
		return fmt.Errorf("%w: non-positive interval count", ErrValidation)
	}
	if err := validateAmount(session.Currency, reward); err != nil {
		return err
	}

	prevSettled := session.LastSettledAt
	newSettled := prevSettled.Add(time.Duration(intervals) * interval)
	key := fmt.Sprintf("settle:%d:%d", session.ID, prevSettled.Unix())

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.FarmingSession{}).
			Where("id = ? AND status = ? AND last_settled_at = ?", session.ID, models.SessionActive, prevSettled).
			UpdateColumn("last_settled_at", newSettled)
		if res.Error != nil {
			return fmt.Errorf("error advancing session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrDuplicate
		}

		if _, err := creditBalance(tx, session.UserID, session.Currency, reward); err != nil {
			return err
		}

		rec := models.Transaction{
			UserID:         session.UserID,
			Type:           models.TransactionFarmingReward,
			Currency:       session.Currency,
			Amount:         reward,
			Status:         models.TransactionConfirmed,
			IdempotencyKey: key,
			Description:    fmt.Sprintf("farming reward for %d interval(s)", intervals),
		}
		return appendTransaction(tx, &rec)
	})
	if err != nil {
		return err
	}

	session.LastSettledAt = newSettled
	return nil
}

// StartFarmingSession debits the deposit and opens an active session, with a
// farming_deposit row, in one transaction.
func (l *Ledger) StartFarmingSession(ctx context.Context, userID uint, currency string, deposit, ratePerInterval decimal.Decimal, boostPackageID string, expiresAt *time.Time) (*models.FarmingSession, error) {
	if err := validateAmount(currency, deposit); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := models.FarmingSession{
		UserID:          userID,
		Currency:        currency,
		DepositAmount:   deposit,
		RatePerInterval: ratePerInterval,
		BoostPackageID:  boostPackageID,
		Status:          models.SessionActive,
		StartedAt:       now,
		LastSettledAt:   now,
		ExpiresAt:       expiresAt,
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := debitBalance(tx, userID, currency, deposit); err != nil {
			return err
		}

		if err := tx.Create(&session).Error; err != nil {
			return fmt.Errorf("error creating session: %w", err)
		}

		// Boost purchases stay pending until the boost service confirms
		// them; plain farming deposits are final immediately.
		txType := models.TransactionFarmingDeposit
		status := models.TransactionConfirmed
		if boostPackageID != "" {
			txType = models.TransactionBoostPurchase
			status = models.TransactionPending
		}
		rec := models.Transaction{
			UserID:         userID,
			Type:           txType,
			Currency:       currency,
			Amount:         deposit,
			Status:         status,
			IdempotencyKey: fmt.Sprintf("deposit:%d:%d", userID, now.UnixNano()),
			Description:    fmt.Sprintf("deposit into session %d", session.ID),
		}
		if err := appendTransaction(tx, &rec); err != nil {
			return err
		}
		session.DepositTransactionID = rec.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &session, nil
}

// CloseFarmingSession settles any remaining whole intervals, returns the
// deposit to the balance and marks the session completed, atomically.
func (l *Ledger) CloseFarmingSession(ctx context.Context, session *models.FarmingSession, finalReward decimal.Decimal, intervals int64, interval time.Duration) error {
	if finalReward.IsPositive() {
		if err := l.SettleFarmingReward(ctx, session, finalReward, intervals, interval); err != nil {
			return err
		}
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.FarmingSession{}).
			Where("id = ? AND status = ?", session.ID, models.SessionActive).
			UpdateColumn("status", models.SessionCompleted)
		if res.Error != nil {
			return fmt.Errorf("error completing session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if _, err := creditBalance(tx, session.UserID, session.Currency, session.DepositAmount); err != nil {
			return err
		}

		rec := models.Transaction{
			UserID:         session.UserID,
			Type:           models.TransactionFarmingReturn,
			Currency:       session.Currency,
			Amount:         session.DepositAmount,
			Status:         models.TransactionConfirmed,
			IdempotencyKey: fmt.Sprintf("return:%d", session.ID),
			Description:    fmt.Sprintf("deposit returned from session %d", session.ID),
		}
		if err := appendTransaction(tx, &rec); err != nil {
			return err
		}

		session.Status = models.SessionCompleted
		return nil
	})
}
