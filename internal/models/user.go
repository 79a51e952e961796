package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           uint            `gorm:"primaryKey"`
	TelegramID   int64           `gorm:"uniqueIndex;not null"`
	Username     string          `gorm:"size:255"`
	UniBalance   decimal.Decimal `gorm:"type:numeric(24,6);not null;default:0"`
	TonBalance   decimal.Decimal `gorm:"type:numeric(24,6);not null;default:0"`
	ReferralCode string          `gorm:"size:32;uniqueIndex"`
	ReferrerID   *uint           `gorm:"index"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
