package settings

import "time"

type UserSettings struct {
	UserID       string            `gorm:"primaryKey;column:user_id;type:varchar(128)"`
	StatusColors map[string]string `gorm:"column:status_colors;serializer:json;type:text"`
	UpdatedAt    time.Time         `gorm:"column:updated_at"`
}

func (UserSettings) TableName() string {
	return "user_settings"
}
