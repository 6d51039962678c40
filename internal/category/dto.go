package category

import (
	errors "github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/core/common/validation"
	"github.com/frahmantamala/household-ledger/internal/expense"
)

type CreateCategoryDTO struct {
	Name string `json:"name"`
}

func (dto CreateCategoryDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", dto.Name).Required().MaxLength(60)
	return v.Validate()
}

// ColorsDTO sets the gradient; a null body clears it.
type ColorsDTO struct {
	Colors *Colors `json:"colors"`
}

func (dto ColorsDTO) Validate() *errors.AppError {
	if dto.Colors == nil {
		return nil
	}
	v := validation.NewValidator()
	v.Field("colors.from", dto.Colors.From).HexColor()
	v.Field("colors.to", dto.Colors.To).HexColor()
	return v.Validate()
}

type IconDTO struct {
	Icon string `json:"icon"`
}

type ReorderDTO struct {
	IDs []string `json:"ids"`
}

func (dto ReorderDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("ids", dto.IDs).Required()
	return v.Validate()
}

type CategoriesResponse struct {
	Categories []*Category `json:"categories"`
}

type DeleteResult struct {
	DeletedExpenses int `json:"deletedExpenses"`
}

type OrphansResponse struct {
	Count    int                `json:"count"`
	Expenses []*expense.Expense `json:"expenses"`
}

type CleanupResult struct {
	Removed int `json:"removed"`
}
