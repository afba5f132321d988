package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Indicator types usable in a criterion.
const (
	IndicatorRSI    = "RSI"
	IndicatorBB     = "BB"
	IndicatorSMA    = "SMA"
	IndicatorEMA    = "EMA"
	IndicatorMACD   = "MACD"
	IndicatorVolume = "VOLUME"
	IndicatorPrice  = "PRICE"
)

// Criterion operators.
const (
	OperatorLT       = "LT"
	OperatorGT       = "GT"
	OperatorBetween  = "BETWEEN"
	OperatorEQ       = "EQ"
	OperatorPosition = "POSITION"
)

// Bollinger-band position buckets for the POSITION operator.
const (
	BandBelowLower  = "BELOW_LOWER"
	BandLowerThird  = "LOWER_THIRD"
	BandMiddleThird = "MIDDLE_THIRD"
	BandUpperThird  = "UPPER_THIRD"
	BandAboveUpper  = "ABOVE_UPPER"
)

// ScreeningProfile is a named, ordered set of criteria ANDed together.
type ScreeningProfile struct {
	ID               uint64 `gorm:"primaryKey;autoIncrement"`
	Name             string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Description      string `gorm:"type:text"`
	Timeframe        string `gorm:"type:varchar(1);not null;default:'D'"`
	IsSystemTemplate bool   `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ScreeningProfile) TableName() string {
	return "screening_profiles"
}

// ScreeningCriterion is one indicator filter within a profile.
type ScreeningCriterion struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	ProfileID uint64 `gorm:"not null;index"`

	IndicatorType string `gorm:"type:varchar(20);not null;index"`
	IsActive      bool   `gorm:"not null;default:true"`

	ParamPeriod  *int             `gorm:""`
	ParamPeriod2 *int             `gorm:""`
	ParamPeriod3 *int             `gorm:""`
	ParamStdDev  *decimal.Decimal `gorm:"type:numeric(4,2)"`

	Operator      string           `gorm:"type:varchar(20);not null"`
	Value1        *decimal.Decimal `gorm:"type:numeric(14,4)"`
	Value2        *decimal.Decimal `gorm:"type:numeric(14,4)"`
	PositionValue *string          `gorm:"type:varchar(20)"`

	SortOrder int `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (ScreeningCriterion) TableName() string {
	return "screening_criteria"
}
