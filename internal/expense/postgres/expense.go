package postgres

import (
	"context"
	"errors"
	"fmt"

	expenseDatamodel "github.com/frahmantamala/household-ledger/internal/core/datamodel/expense"
	"github.com/frahmantamala/household-ledger/internal/expense"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var columns = map[expense.Field]string{
	expense.FieldName:           "name",
	expense.FieldVto:            "vto",
	expense.FieldFechaPago:      "fecha_pago",
	expense.FieldImporte:        "importe",
	expense.FieldCurrency:       "currency",
	expense.FieldPayer:          "payer",
	expense.FieldStatus:         "status",
	expense.FieldCategory:       "category",
	expense.FieldMonth:          "month",
	expense.FieldYear:           "year",
	expense.FieldOrder:          "sort_order",
	expense.FieldComment:        "comment",
	expense.FieldDebt:           "debt",
	expense.FieldLinkedToCardID: "linked_to_card_id",
	expense.FieldCardTotalARS:   "card_total_ars",
	expense.FieldCardTotalUSD:   "card_total_usd",
	expense.FieldCardUSDRate:    "card_usd_rate",
	expense.FieldIcon:           "icon",
	expense.FieldIconColor:      "icon_color",
}

// ExpenseRepository implements expense.Repository using GORM
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) NewID() string {
	return uuid.NewString()
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*expense.Expense, error) {
	var m expenseDatamodel.Expense
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, expense.ErrExpenseNotFound
		}
		return nil, err
	}
	return fromModel(&m), nil
}

func (r *ExpenseRepository) ListByMonth(ctx context.Context, userID string, month, year int) ([]*expense.Expense, error) {
	var models []*expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND month = ? AND year = ?", userID, month, year).
		Order("created_at DESC").
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

func (r *ExpenseRepository) ListByUser(ctx context.Context, userID string) ([]*expense.Expense, error) {
	var models []*expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("year DESC").
		Order("month DESC").
		Order("sort_order").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

func (r *ExpenseRepository) ListByCategory(ctx context.Context, userID, categoryID string) ([]*expense.Expense, error) {
	var models []*expenseDatamodel.Expense
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND category = ?", userID, categoryID).
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	return fromModels(models), nil
}

func (r *ExpenseRepository) Create(ctx context.Context, e *expense.Expense) error {
	return r.db.WithContext(ctx).Create(toModel(e)).Error
}

func (r *ExpenseRepository) Patch(ctx context.Context, id string, p expense.Patch) error {
	return patch(r.db.WithContext(ctx), id, p)
}

func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&expenseDatamodel.Expense{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return expense.ErrExpenseNotFound
	}
	return nil
}

func (r *ExpenseRepository) NewBatch() expense.Batch {
	return &batch{db: r.db}
}

func patch(db *gorm.DB, id string, p expense.Patch) error {
	updates, err := updateMap(p)
	if err != nil {
		return err
	}
	res := db.Model(&expenseDatamodel.Expense{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return expense.ErrExpenseNotFound
	}
	return nil
}

func updateMap(p expense.Patch) (map[string]interface{}, error) {
	updates := make(map[string]interface{}, len(p.Set)+len(p.Unset)+1)
	for field, value := range p.Set {
		column, ok := columns[field]
		if !ok {
			return nil, fmt.Errorf("unknown expense field %q", field)
		}
		updates[column] = value
	}
	for _, field := range p.Unset {
		column, ok := columns[field]
		if !ok {
			return nil, fmt.Errorf("unknown expense field %q", field)
		}
		updates[column] = nil
	}
	if !p.UpdatedAt.IsZero() {
		updates["updated_at"] = p.UpdatedAt
	}
	return updates, nil
}

type operation struct {
	create *expense.Expense
	id     string
	patch  *expense.Patch
}

// batch replays its operations inside one transaction on Commit.
type batch struct {
	db  *gorm.DB
	ops []operation
}

func (b *batch) Create(e *expense.Expense) {
	b.ops = append(b.ops, operation{create: e})
}

func (b *batch) Patch(id string, p expense.Patch) {
	b.ops = append(b.ops, operation{id: id, patch: &p})
}

func (b *batch) Delete(id string) {
	b.ops = append(b.ops, operation{id: id})
}

func (b *batch) Len() int {
	return len(b.ops)
}

func (b *batch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, op := range b.ops {
			var err error
			switch {
			case op.create != nil:
				err = tx.Create(toModel(op.create)).Error
			case op.patch != nil:
				err = patch(tx, op.id, *op.patch)
			default:
				err = tx.Where("id = ?", op.id).Delete(&expenseDatamodel.Expense{}).Error
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func toModel(e *expense.Expense) *expenseDatamodel.Expense {
	return &expenseDatamodel.Expense{
		ID:             e.ID,
		UserID:         e.UserID,
		Name:           e.Name,
		Vto:            e.Vto,
		FechaPago:      e.FechaPago,
		Importe:        e.Importe,
		Currency:       e.Currency,
		Payer:          e.Payer,
		Status:         string(e.Status),
		Category:       e.Category,
		Month:          e.Month,
		Year:           e.Year,
		Order:          e.Order,
		Comment:        e.Comment,
		Debt:           nullDecimal(e.Debt),
		LinkedToCardID: e.LinkedToCardID,
		CardTotalARS:   nullDecimal(e.CardTotalARS),
		CardTotalUSD:   nullDecimal(e.CardTotalUSD),
		CardUSDRate:    nullDecimal(e.CardUSDRate),
		Icon:           e.Icon,
		IconColor:      e.IconColor,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func fromModel(m *expenseDatamodel.Expense) *expense.Expense {
	return &expense.Expense{
		ID:             m.ID,
		UserID:         m.UserID,
		Name:           m.Name,
		Vto:            m.Vto,
		FechaPago:      m.FechaPago,
		Importe:        m.Importe,
		Currency:       m.Currency,
		Payer:          m.Payer,
		Status:         expense.Status(m.Status),
		Category:       m.Category,
		Month:          m.Month,
		Year:           m.Year,
		Order:          m.Order,
		Comment:        m.Comment,
		Debt:           decimalPtr(m.Debt),
		LinkedToCardID: m.LinkedToCardID,
		CardTotalARS:   decimalPtr(m.CardTotalARS),
		CardTotalUSD:   decimalPtr(m.CardTotalUSD),
		CardUSDRate:    decimalPtr(m.CardUSDRate),
		Icon:           m.Icon,
		IconColor:      m.IconColor,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func fromModels(models []*expenseDatamodel.Expense) []*expense.Expense {
	result := make([]*expense.Expense, len(models))
	for i, m := range models {
		result[i] = fromModel(m)
	}
	return result
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

func decimalPtr(d decimal.NullDecimal) *decimal.Decimal {
	if !d.Valid {
		return nil
	}
	v := d.Decimal
	return &v
}
