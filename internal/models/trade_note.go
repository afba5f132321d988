package models

import "time"

// Note types.
const (
	NoteIdea       = "IDEA"
	NoteSetup      = "SETUP"
	NoteManagement = "MANAGEMENT"
	NoteReview     = "REVIEW"
)

// TradeNote is a journal note, optionally linked to a trade or security.
type TradeNote struct {
	ID         uint64  `gorm:"primaryKey;autoIncrement"`
	TradeID    *uint64 `gorm:"index"`
	SecurityID *uint64 `gorm:"index"`

	NoteType string    `gorm:"type:varchar(20);not null;index"`
	NoteDate time.Time `gorm:"type:date;not null;index:,sort:desc"`
	NoteText string    `gorm:"type:text"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (TradeNote) TableName() string {
	return "trade_notes"
}
