package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Position types.
const (
	PositionShortPut  = "SHORT_PUT"
	PositionShortCall = "SHORT_CALL"
	PositionLongStock = "LONG_STOCK"
)

// Position status.
const (
	StatusOpen   = "OPEN"
	StatusClosed = "CLOSED"
)

// Close types.
const (
	CloseExpired    = "EXPIRED"
	CloseBuyback    = "BUYBACK"
	CloseRolled     = "ROLLED"
	CloseAssigned   = "ASSIGNED"
	CloseCalledAway = "CALLED_AWAY"
	// CloseSold is an outright sale of a stock position outside the
	// called-away path.
	CloseSold = "SOLD"
)

// ContractMultiplier is the share deliverable of one option contract.
const ContractMultiplier = 100

// TradePosition is one option or stock position. Closed rows are
// immutable history; corrections are compensating records, and rows are
// archived rather than deleted so roll chains stay intact.
type TradePosition struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	DepotID    uint64 `gorm:"not null;index"`
	SecurityID uint64 `gorm:"not null;index"`

	PositionType string `gorm:"type:varchar(20);not null;index"`
	Status       string `gorm:"type:varchar(10);not null;default:'OPEN';index"`

	// Option fields (SHORT_PUT / SHORT_CALL).
	StrikePrice        *decimal.Decimal `gorm:"type:numeric(14,4)"`
	ExpirationDate     *time.Time       `gorm:"type:date;index"`
	PremiumPerContract *decimal.Decimal `gorm:"type:numeric(10,4)"`

	// Stock fields (LONG_STOCK).
	Shares       *int             `gorm:""`
	CostPerShare *decimal.Decimal `gorm:"type:numeric(14,4)"`

	// Contracts (negative for short) or shares.
	Quantity int `gorm:"not null"`

	// Greeks / IV / underlying at open, free-form.
	OpenSnapshot datatypes.JSON `gorm:"type:jsonb"`

	OpenDate  time.Time  `gorm:"type:date;not null;index:,sort:desc"`
	CloseDate *time.Time `gorm:"type:date"`

	CloseType  *string          `gorm:"type:varchar(20)"`
	ClosePrice *decimal.Decimal `gorm:"type:numeric(10,4)"`

	CommissionOpen  decimal.Decimal  `gorm:"type:numeric(10,4);not null;default:0"`
	CommissionClose *decimal.Decimal `gorm:"type:numeric(10,4)"`

	// Weak back-references, traversal only.
	RolledFromTradeID *uint64 `gorm:"index"`
	AssignedToStockID *uint64 `gorm:""`
	CoveredByStockID  *uint64 `gorm:""`
	WheelCycleID      *uint64 `gorm:"index"`

	BrokerTradeID string  `gorm:"type:varchar(100)"`
	ImportBatchID *uint64 `gorm:""`

	// Derived, stored for query performance.
	TotalPremium *decimal.Decimal `gorm:"type:numeric(14,4)"`
	NetPremium   *decimal.Decimal `gorm:"type:numeric(14,4)"`
	BreakEven    *decimal.Decimal `gorm:"type:numeric(14,4)"`
	DTEAtOpen    *int             `gorm:"column:dte_at_open"`
	RealizedPL   *decimal.Decimal `gorm:"column:realized_pl;type:numeric(14,4)"`

	IsArchived bool `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (TradePosition) TableName() string {
	return "trade_positions"
}

// IsOption reports whether the position is a short option leg.
func (p *TradePosition) IsOption() bool {
	return p.PositionType == PositionShortPut || p.PositionType == PositionShortCall
}
