package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Depot is one brokerage account. It owns positions, dividends and
// wheel cycles.
type Depot struct {
	ID            uint64 `gorm:"primaryKey;autoIncrement"`
	Name          string `gorm:"type:varchar(100);not null;uniqueIndex"`
	BrokerName    string `gorm:"type:varchar(100)"`
	AccountNumber string `gorm:"type:varchar(50)"`
	Description   string `gorm:"type:text"`
	Currency      string `gorm:"type:varchar(3);not null;default:'USD'"`
	IsDefault     bool   `gorm:"not null;default:false;index"`
	IsArchived    bool   `gorm:"not null;default:false"`

	// Display setting only: the canonical realized P/L always subtracts
	// commissions regardless of this flag.
	IncludeCommissionInPL bool            `gorm:"column:include_commission_in_pl;not null;default:true"`
	WithholdingTaxPct     decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Depot) TableName() string {
	return "depots"
}
