package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cycle status.
const (
	CycleActive    = "ACTIVE"
	CycleCompleted = "COMPLETED"
)

// WheelCycle groups one contiguous put -> assignment -> covered call ->
// exit lifecycle for a ticker within a depot.
type WheelCycle struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	DepotID    uint64 `gorm:"not null;uniqueIndex:ux_cycle_seq;index"`
	SecurityID uint64 `gorm:"not null;uniqueIndex:ux_cycle_seq;index"`

	CycleNumber int    `gorm:"not null;uniqueIndex:ux_cycle_seq"`
	Year        int    `gorm:"not null;uniqueIndex:ux_cycle_seq;index"`
	Label       string `gorm:"type:varchar(30);not null"`

	StartDate time.Time  `gorm:"type:date;not null"`
	EndDate   *time.Time `gorm:"type:date"`

	Status string `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`

	TotalPremiumCollected decimal.Decimal `gorm:"type:numeric(14,4);not null;default:0"`
	TotalBuybackCost      decimal.Decimal `gorm:"type:numeric(14,4);not null;default:0"`
	TotalCommissions      decimal.Decimal `gorm:"type:numeric(14,4);not null;default:0"`
	TotalDividends        decimal.Decimal `gorm:"type:numeric(14,4);not null;default:0"`
	StockProfitLoss       decimal.Decimal `gorm:"type:numeric(14,4);not null;default:0"`
	NetProfitLoss         decimal.Decimal `gorm:"type:numeric(14,4);not null;default:0"`
	DurationDays          *int            `gorm:""`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (WheelCycle) TableName() string {
	return "wheel_cycles"
}
