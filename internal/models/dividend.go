package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Dividend is a cash distribution on a stock position. Net amount is
// gross minus withholding.
type Dividend struct {
	ID              uint64  `gorm:"primaryKey;autoIncrement"`
	DepotID         uint64  `gorm:"not null;index"`
	SecurityID      uint64  `gorm:"not null;index"`
	StockPositionID *uint64 `gorm:"index"`
	WheelCycleID    *uint64 `gorm:"index"`

	ExDividendDate time.Time  `gorm:"type:date;not null;index"`
	PaymentDate    *time.Time `gorm:"type:date"`

	SharesHeld       int             `gorm:"not null"`
	DividendPerShare decimal.Decimal `gorm:"type:numeric(10,6);not null"`
	GrossAmount      decimal.Decimal `gorm:"type:numeric(14,4);not null"`
	WithholdingTax   decimal.Decimal `gorm:"type:numeric(14,4);not null;default:0"`
	NetAmount        decimal.Decimal `gorm:"type:numeric(14,4);not null"`

	Currency string `gorm:"type:varchar(3);not null;default:'USD'"`

	BrokerTransactionID string  `gorm:"type:varchar(100)"`
	ImportBatchID       *uint64 `gorm:""`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Dividend) TableName() string {
	return "dividends"
}
