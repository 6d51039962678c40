package expense

import (
	"time"

	"github.com/shopspring/decimal"
)

type Expense struct {
	ID             string              `gorm:"primaryKey;type:varchar(64)"`
	UserID         string              `gorm:"column:user_id;type:varchar(128);not null;index:idx_expenses_bucket,priority:1"`
	Name           string              `gorm:"column:name;not null"`
	Vto            string              `gorm:"column:vto"`
	FechaPago      string              `gorm:"column:fecha_pago"`
	Importe        decimal.Decimal     `gorm:"column:importe;type:numeric(14,2);not null"`
	Currency       string              `gorm:"column:currency;type:varchar(3);not null"`
	Payer          string              `gorm:"column:payer"`
	Status         string              `gorm:"column:status;type:varchar(20);not null"`
	Category       string              `gorm:"column:category;index:idx_expenses_category"`
	Month          int                 `gorm:"column:month;not null;index:idx_expenses_bucket,priority:3"`
	Year           int                 `gorm:"column:year;not null;index:idx_expenses_bucket,priority:2"`
	Order          int                 `gorm:"column:sort_order;not null"`
	Comment        *string             `gorm:"column:comment"`
	Debt           decimal.NullDecimal `gorm:"column:debt;type:numeric(14,2)"`
	LinkedToCardID *string             `gorm:"column:linked_to_card_id;type:varchar(64);index"`
	CardTotalARS   decimal.NullDecimal `gorm:"column:card_total_ars;type:numeric(14,2)"`
	CardTotalUSD   decimal.NullDecimal `gorm:"column:card_total_usd;type:numeric(14,2)"`
	CardUSDRate    decimal.NullDecimal `gorm:"column:card_usd_rate;type:numeric(14,4)"`
	Icon           *string             `gorm:"column:icon"`
	IconColor      *string             `gorm:"column:icon_color"`
	CreatedAt      time.Time           `gorm:"column:created_at"`
	UpdatedAt      time.Time           `gorm:"column:updated_at"`
}

func (Expense) TableName() string {
	return "expenses"
}
