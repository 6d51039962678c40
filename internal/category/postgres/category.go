package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/household-ledger/internal/category"
	categoryDatamodel "github.com/frahmantamala/household-ledger/internal/core/datamodel/category"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CategoryRepository struct {
	db *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) NewID() string {
	return uuid.NewString()
}

func (r *CategoryRepository) ListByUser(ctx context.Context, userID string) ([]*category.Category, error) {
	var models []*categoryDatamodel.Category
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("sort_order ASC").
		Order("created_at ASC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}
	result := make([]*category.Category, len(models))
	for i, m := range models {
		result[i] = fromModel(m)
	}
	return result, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*category.Category, error) {
	var m categoryDatamodel.Category
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, category.ErrCategoryNotFound
		}
		return nil, err
	}
	return fromModel(&m), nil
}

func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	return r.db.WithContext(ctx).Create(toModel(c)).Error
}

func (r *CategoryRepository) CreateMany(ctx context.Context, cs []*category.Category) error {
	if len(cs) == 0 {
		return nil
	}
	models := make([]*categoryDatamodel.Category, len(cs))
	for i, c := range cs {
		models[i] = toModel(c)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&models).Error
	})
}

func (r *CategoryRepository) Update(ctx context.Context, id string, changes category.Changes) error {
	updates := map[string]interface{}{}
	if changes.Name != nil {
		updates["name"] = *changes.Name
	}
	if changes.Order != nil {
		updates["sort_order"] = *changes.Order
	}
	if changes.Colors != nil {
		updates["color_from"] = changes.Colors.From
		updates["color_to"] = changes.Colors.To
	}
	if changes.ClearColors {
		updates["color_from"] = nil
		updates["color_to"] = nil
	}
	if changes.Icon != nil {
		updates["icon"] = *changes.Icon
	}
	if changes.ClearIcon {
		updates["icon"] = nil
	}
	if changes.IncludeInTotals != nil {
		updates["include_in_totals"] = *changes.IncludeInTotals
	}
	if !changes.UpdatedAt.IsZero() {
		updates["updated_at"] = changes.UpdatedAt
	}
	if len(updates) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&categoryDatamodel.Category{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return category.ErrCategoryNotFound
	}
	return nil
}

func (r *CategoryRepository) SetOrders(ctx context.Context, orders map[string]int, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, order := range orders {
			err := tx.Model(&categoryDatamodel.Category{}).
				Where("id = ?", id).
				Updates(map[string]interface{}{"sort_order": order, "updated_at": at}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&categoryDatamodel.Category{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return category.ErrCategoryNotFound
	}
	return nil
}

func toModel(c *category.Category) *categoryDatamodel.Category {
	m := &categoryDatamodel.Category{
		ID:              c.ID,
		UserID:          c.UserID,
		Name:            c.Name,
		Order:           c.Order,
		Icon:            c.Icon,
		IncludeInTotals: c.IncludeInTotals,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if c.Colors != nil {
		from, to := c.Colors.From, c.Colors.To
		m.ColorFrom, m.ColorTo = &from, &to
	}
	return m
}

func fromModel(m *categoryDatamodel.Category) *category.Category {
	c := &category.Category{
		ID:              m.ID,
		UserID:          m.UserID,
		Name:            m.Name,
		Order:           m.Order,
		Icon:            m.Icon,
		IncludeInTotals: m.IncludeInTotals,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
	if m.ColorFrom != nil && m.ColorTo != nil {
		c.Colors = &category.Colors{From: *m.ColorFrom, To: *m.ColorTo}
	}
	return c
}
