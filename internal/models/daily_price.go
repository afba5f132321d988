package models

import "time"

// DailyPrice is one OHLCV bar. Series math runs on float64; money math
// elsewhere stays decimal.
type DailyPrice struct {
	SecurityID uint64    `gorm:"primaryKey;autoIncrement:false"`
	PriceDate  time.Time `gorm:"type:date;primaryKey"`

	Open   float64 `gorm:"type:numeric(14,4)"`
	High   float64 `gorm:"type:numeric(14,4)"`
	Low    float64 `gorm:"type:numeric(14,4)"`
	Close  float64 `gorm:"type:numeric(14,4)"`
	Volume int64   `gorm:""`

	DataSource string `gorm:"type:varchar(20);not null;default:'csv'"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (DailyPrice) TableName() string {
	return "daily_prices"
}
