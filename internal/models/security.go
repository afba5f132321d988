package models

import "time"

type Security struct {
	ID       uint64 `gorm:"primaryKey;autoIncrement"`
	Ticker   string `gorm:"type:varchar(12);not null;uniqueIndex"`
	Name     string `gorm:"type:varchar(200)"`
	Exchange string `gorm:"type:varchar(20)"`
	Sector   string `gorm:"type:varchar(100)"`
	Industry string `gorm:"type:varchar(100)"`
	Currency string `gorm:"type:varchar(3);not null;default:'USD'"`
	IsActive bool   `gorm:"not null;default:true;index"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (Security) TableName() string {
	return "securities"
}
