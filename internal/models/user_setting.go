package models

import "time"

type UserSetting struct {
	Key   string `gorm:"column:setting_key;type:varchar(50);primaryKey"`
	Value string `gorm:"column:setting_value;type:varchar(200)"`

	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (UserSetting) TableName() string {
	return "user_settings"
}
