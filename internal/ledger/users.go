package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"unifarm/internal/models"
)

func (l *Ledger) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := l.db.WithContext(ctx).First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	return &user, nil
}

func (l *Ledger) UserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	var user models.User
	if err := l.db.WithContext(ctx).Where("telegram_id = ?", telegramID).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	return &user, nil
}

func (l *Ledger) UserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var user models.User
	if err := l.db.WithContext(ctx).Where("referral_code = ?", code).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error fetching user by referral code: %w", err)
	}
	return &user, nil
}

// FindOrCreateByTelegram provisions a user row on first contact and makes
// sure it carries a referral code.
func (l *Ledger) FindOrCreateByTelegram(ctx context.Context, telegramID int64, username string) (*models.User, error) {
	var user models.User
	if err := l.db.WithContext(ctx).FirstOrCreate(&user, models.User{TelegramID: telegramID}).Error; err != nil {
		return nil, fmt.Errorf("error finding/creating user: %w", err)
	}

	if user.ReferralCode == "" {
		user.ReferralCode = newReferralCode()
		user.Username = username
		if err := l.db.WithContext(ctx).Save(&user).Error; err != nil {
			return nil, fmt.Errorf("error saving referral code: %w", err)
		}
		return &user, nil
	}

	// Telegram usernames change; keep ours in sync on every contact.
	if username != "" && user.Username != username {
		user.Username = username
		if err := l.db.WithContext(ctx).Model(&user).UpdateColumn("username", username).Error; err != nil {
			return nil, fmt.Errorf("error refreshing username: %w", err)
		}
	}

	return &user, nil
}

func newReferralCode() string {
	return "ref_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// AttachReferrer links userID to a referrer. The conditional update keeps a
// second concurrent redemption from overwriting the first.
func (l *Ledger) AttachReferrer(ctx context.Context, userID, referrerID uint) error {
	res := l.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND referrer_id IS NULL", userID).
		UpdateColumn("referrer_id", referrerID)
	if res.Error != nil {
		return fmt.Errorf("error attaching referrer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDuplicate
	}
	return nil
}

// InvitedCount counts direct referrals of a user.
func (l *Ledger) InvitedCount(ctx context.Context, userID uint) (int64, error) {
	var count int64
	if err := l.db.WithContext(ctx).Model(&models.User{}).Where("referrer_id = ?", userID).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("error counting referrals: %w", err)
	}
	return count, nil
}

// ReferralEarnings sums confirmed referral bonuses per currency.
func (l *Ledger) ReferralEarnings(ctx context.Context, userID uint) (map[string]decimal.Decimal, error) {
	type row struct {
		Currency string
		Total    decimal.Decimal
	}

	var rows []row
	err := l.db.WithContext(ctx).Model(&models.Transaction{}).
		Select("currency, COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND type = ? AND status = ?", userID, models.TransactionReferralBonus, models.TransactionConfirmed).
		Group("currency").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error summing referral earnings: %w", err)
	}

	earnings := make(map[string]decimal.Decimal, len(rows))
	for _, r := range rows {
		earnings[r.Currency] = r.Total
	}
	return earnings, nil
}

// CreditReferralBonus credits an ancestor and records the referral_bonus row
// in one transaction.
func (l *Ledger) CreditReferralBonus(ctx context.Context, ancestorID, sourceUserID uint, currency string, bonus decimal.Decimal, level int) error {
	if err := validateAmount(currency, bonus); err != nil {
		return err
	}

	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := creditBalance(tx, ancestorID, currency, bonus); err != nil {
			return err
		}

		source := sourceUserID
		rec := models.Transaction{
			UserID:       ancestorID,
			Type:         models.TransactionReferralBonus,
			Currency:     currency,
			Amount:       bonus,
			Status:       models.TransactionConfirmed,
			SourceUserID: &source,
			Description:  fmt.Sprintf("level %d referral bonus", level),
		}
		return appendTransaction(tx, &rec)
	})
}
