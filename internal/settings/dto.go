package settings

import (
	"sort"

	errors "github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/core/common/validation"
	"github.com/frahmantamala/household-ledger/internal/expense"
)

type StatusColorsDTO struct {
	StatusColors StatusColors `json:"statusColors"`
}

func (dto StatusColorsDTO) Validate() *errors.AppError {
	statuses := make([]string, len(expense.Statuses))
	for i, s := range expense.Statuses {
		statuses[i] = string(s)
	}

	keys := make([]string, 0, len(dto.StatusColors))
	for k := range dto.StatusColors {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	v := validation.NewValidator()
	v.Field("statusColors", len(keys)).Custom(func(value interface{}) *errors.AppError {
		if value.(int) == 0 {
			return errors.NewValidationFieldError("statusColors", "statusColors must not be empty", errors.ErrCodeValidationFailed)
		}
		return nil
	})
	for _, status := range keys {
		v.Field("statusColors."+status, status).OneOf(statuses, errors.ErrCodeInvalidStatus)
		v.Field("statusColors."+status, dto.StatusColors[status]).HexColor()
	}
	return v.Validate()
}

type StatusColorsResponse struct {
	StatusColors StatusColors `json:"statusColors"`
}
