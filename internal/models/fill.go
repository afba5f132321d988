package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction types recorded against a position.
const (
	TxnOpen       = "OPEN"
	TxnRollClose  = "ROLL_CLOSE"
	TxnRollOpen   = "ROLL_OPEN"
	TxnBuyback    = "BUYBACK"
	TxnAssignment = "ASSIGNMENT"
	TxnCalledAway = "CALLED_AWAY"
	TxnExpire     = "EXPIRE"
)

// TradeTransaction is one position-level transaction, possibly the
// aggregate of several broker fills.
type TradeTransaction struct {
	ID      uint64 `gorm:"primaryKey;autoIncrement"`
	TradeID uint64 `gorm:"not null;index"`

	TransactionType string    `gorm:"type:varchar(20);not null;index"`
	TransactionDate time.Time `gorm:"type:date;not null;index:,sort:desc"`

	Price      decimal.Decimal `gorm:"type:numeric(10,4);not null"`
	Quantity   int             `gorm:"not null"`
	Commission decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`

	IsPartialFill bool   `gorm:"not null;default:false"`
	BrokerOrderID string `gorm:"type:varchar(100);index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (TradeTransaction) TableName() string {
	return "trade_transactions"
}

// PartialFill is one raw broker execution. Raw fills are preserved after
// aggregation for the audit trail.
type PartialFill struct {
	ID            uint64  `gorm:"primaryKey;autoIncrement"`
	TradeID       *uint64 `gorm:"index"`
	TransactionID *uint64 `gorm:"index"`

	FilledAt       time.Time       `gorm:"type:timestamptz;not null;index"`
	FillQuantity   int             `gorm:"not null"`
	FillPrice      decimal.Decimal `gorm:"type:numeric(10,4);not null"`
	FillCommission decimal.Decimal `gorm:"type:numeric(10,4);not null;default:0"`

	BrokerOrderID     string `gorm:"type:varchar(100);index"`
	BrokerExecutionID string `gorm:"type:varchar(100)"`

	// Fallback grouping key when the broker omits an order id.
	Symbol         string           `gorm:"type:varchar(12)"`
	Strike         *decimal.Decimal `gorm:"type:numeric(14,4)"`
	ExpirationDate *time.Time       `gorm:"type:date"`
	Side           string           `gorm:"type:varchar(10)"`

	ImportBatchID *uint64 `gorm:""`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (PartialFill) TableName() string {
	return "partial_fills"
}
