package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// FarmingSession is a user's active deposit accruing rewards over time.
// LastSettledAt advances only through the ledger's settlement operation and
// only by whole intervals, so a partial interval carries into the next run.
type FarmingSession struct {
	ID                   uint            `gorm:"primaryKey"`
	UserID               uint            `gorm:"not null;index"`
	Currency             string          `gorm:"size:8;not null"`
	DepositAmount        decimal.Decimal `gorm:"type:numeric(24,6);not null"`
	RatePerInterval      decimal.Decimal `gorm:"type:numeric(20,12);not null"`
	BoostPackageID       string          `gorm:"size:16"`
	DepositTransactionID uint            `gorm:"index"`
	Status               string          `gorm:"size:16;not null;default:'active';index"`
	StartedAt            time.Time
	LastSettledAt        time.Time
	ExpiresAt            *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
