package category

import "time"

type Category struct {
	ID              string    `gorm:"primaryKey;type:varchar(64)"`
	UserID          string    `gorm:"column:user_id;type:varchar(128);not null;index"`
	Name            string    `gorm:"column:name;not null"`
	Order           int       `gorm:"column:sort_order;not null"`
	ColorFrom       *string   `gorm:"column:color_from;type:varchar(7)"`
	ColorTo         *string   `gorm:"column:color_to;type:varchar(7)"`
	Icon            *string   `gorm:"column:icon"`
	IncludeInTotals bool      `gorm:"column:include_in_totals;not null"`
	CreatedAt       time.Time `gorm:"column:created_at"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (Category) TableName() string {
	return "categories"
}
