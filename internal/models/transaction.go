package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	CurrencyUNI = "UNI"
	CurrencyTON = "TON"
)

const (
	TransactionFarmingReward  = "farming_reward"
	TransactionReferralBonus  = "referral_bonus"
	TransactionBoostPurchase  = "boost_purchase"
	TransactionMissionReward  = "mission_reward"
	TransactionFarmingDeposit = "farming_deposit"
	TransactionFarmingReturn  = "farming_return"
	TransactionWithdrawal     = "withdrawal"
)

const (
	TransactionPending   = "pending"
	TransactionConfirmed = "confirmed"
)

// Transaction rows are append-only; the only permitted mutation after
// creation is the pending -> confirmed status transition.
type Transaction struct {
	ID             uint            `gorm:"primaryKey"`
	UserID         uint            `gorm:"not null;index"`
	Type           string          `gorm:"size:32;not null;index"`
	Currency       string          `gorm:"size:8;not null"`
	Amount         decimal.Decimal `gorm:"type:numeric(24,6);not null"`
	Status         string          `gorm:"size:16;not null;default:'confirmed'"`
	SourceUserID   *uint           `gorm:"index"`
	IdempotencyKey string          `gorm:"size:64;uniqueIndex;not null"`
	Description    string          `gorm:"size:255"`
	CreatedAt      time.Time
}
