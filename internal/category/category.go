package category

import (
	"context"
	"fmt"
	"time"

	errors "github.com/frahmantamala/household-ledger/internal"
)

const DefaultCount = 3

type Colors struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Category struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	Name            string    `json:"name"`
	Order           int       `json:"order"`
	Colors          *Colors   `json:"colors,omitempty"`
	Icon            *string   `json:"icon,omitempty"`
	IncludeInTotals bool      `json:"includeInTotals"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func NewCategory(id, userID, name string, order int, now time.Time) *Category {
	return &Category{
		ID:              id,
		UserID:          userID,
		Name:            name,
		Order:           order,
		IncludeInTotals: true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// DefaultName is the placeholder name of the n-th default category.
func DefaultName(n int) string {
	return fmt.Sprintf("Categoría %d", n)
}

// Changes is a partial update. Nil pointers leave the field alone; the Clear
// flags remove optional fields.
type Changes struct {
	Name            *string
	Order           *int
	Colors          *Colors
	ClearColors     bool
	Icon            *string
	ClearIcon       bool
	IncludeInTotals *bool
	UpdatedAt       time.Time
}

func (c Changes) Apply(cat *Category) {
	if c.Name != nil {
		cat.Name = *c.Name
	}
	if c.Order != nil {
		cat.Order = *c.Order
	}
	if c.Colors != nil {
		colors := *c.Colors
		cat.Colors = &colors
	}
	if c.ClearColors {
		cat.Colors = nil
	}
	if c.Icon != nil {
		icon := *c.Icon
		cat.Icon = &icon
	}
	if c.ClearIcon {
		cat.Icon = nil
	}
	if c.IncludeInTotals != nil {
		cat.IncludeInTotals = *c.IncludeInTotals
	}
	if !c.UpdatedAt.IsZero() {
		cat.UpdatedAt = c.UpdatedAt
	}
}

type Repository interface {
	NewID() string
	// ListByUser returns the user's categories by ascending order.
	ListByUser(ctx context.Context, userID string) ([]*Category, error)
	GetByID(ctx context.Context, id string) (*Category, error)
	Create(ctx context.Context, c *Category) error
	// CreateMany writes all categories or none.
	CreateMany(ctx context.Context, cs []*Category) error
	Update(ctx context.Context, id string, changes Changes) error
	// SetOrders rewrites several orders in one atomic write.
	SetOrders(ctx context.Context, orders map[string]int, at time.Time) error
	Delete(ctx context.Context, id string) error
}

var (
	ErrCategoryNotFound = errors.NewNotFoundError("category not found", errors.ErrCodeCategoryNotFound)
	ErrCategoryInUse    = errors.NewConflictError("category still has expenses", errors.ErrCodeCategoryInUse)
)

func inUse(count int) *errors.AppError {
	err := ErrCategoryInUse.WithDetails(map[string]int{"expenses": count})
	err.Message = fmt.Sprintf("category has %d expenses; delete again with cascade to remove them", count)
	return err
}
