package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Mission struct {
	ID             uint            `gorm:"primaryKey"`
	Title          string          `gorm:"size:255;not null"`
	Description    string          `gorm:"size:512"`
	RewardAmount   decimal.Decimal `gorm:"type:numeric(24,6);not null"`
	RewardCurrency string          `gorm:"size:8;not null"`
	Active         bool            `gorm:"not null;default:true"`
	CreatedAt      time.Time
}

type UserMission struct {
	ID          uint `gorm:"primaryKey"`
	UserID      uint `gorm:"not null;uniqueIndex:idx_user_mission"`
	MissionID   uint `gorm:"not null;uniqueIndex:idx_user_mission"`
	CompletedAt time.Time
}
