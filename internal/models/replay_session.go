package models

import "time"

// Timeframes for charts and screening.
const (
	TimeframeDaily  = "D"
	TimeframeWeekly = "W"
)

// ReplaySession is the saved chart-replay cursor for one security.
type ReplaySession struct {
	ID         uint64 `gorm:"primaryKey;autoIncrement"`
	SecurityID uint64 `gorm:"not null;uniqueIndex"`

	CursorDate   time.Time `gorm:"type:date;not null"`
	Timeframe    string    `gorm:"type:varchar(1);not null;default:'D'"`
	ViewportSize int       `gorm:"not null;default:100"`

	LastAccessed time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (ReplaySession) TableName() string {
	return "replay_sessions"
}
