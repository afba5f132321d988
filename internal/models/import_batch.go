package models

import (
	"time"

	"gorm.io/datatypes"
)

// Import batch status.
const (
	ImportPending   = "PENDING"
	ImportCompleted = "COMPLETED"
	ImportPartial   = "PARTIAL"
	ImportFailed    = "FAILED"
)

// ImportBatch tracks one broker or price-file import run.
type ImportBatch struct {
	ID        uint64  `gorm:"primaryKey;autoIncrement"`
	DepotID   *uint64 `gorm:"index"`
	Reference string  `gorm:"type:varchar(36);not null;uniqueIndex"`

	Source   string `gorm:"type:varchar(50);not null"`
	FileName string `gorm:"type:varchar(500)"`

	RecordsTotal     int `gorm:"not null;default:0"`
	RecordsImported  int `gorm:"not null;default:0"`
	RecordsSkipped   int `gorm:"not null;default:0"`
	RecordsDuplicate int `gorm:"not null;default:0"`

	Status   string         `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ErrorLog datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index:,sort:desc"`
}

func (ImportBatch) TableName() string {
	return "import_batches"
}
