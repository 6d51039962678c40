package expense

import (
	errors "github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

// Stored scale of amounts and of the card exchange rate.
const (
	AmountPlaces int32 = 2
	RatePlaces   int32 = 4
)

type CreateExpenseDTO struct {
	Name           string           `json:"name"`
	Vto            string           `json:"vto"`
	FechaPago      string           `json:"fechaPago"`
	Importe        decimal.Decimal  `json:"importe"`
	Currency       string           `json:"currency"`
	Payer          string           `json:"payer"`
	Status         Status           `json:"status"`
	Category       string           `json:"category"`
	Month          int              `json:"month"`
	Year           int              `json:"year"`
	Comment        *string          `json:"comment,omitempty"`
	Debt           *decimal.Decimal `json:"debt,omitempty"`
	LinkedToCardID *string          `json:"linkedToCardId,omitempty"`
	CardTotalARS   *decimal.Decimal `json:"cardTotalARS,omitempty"`
	CardTotalUSD   *decimal.Decimal `json:"cardTotalUSD,omitempty"`
	CardUSDRate    *decimal.Decimal `json:"cardUSDRate,omitempty"`
	Icon           *string          `json:"icon,omitempty"`
	IconColor      *string          `json:"iconColor,omitempty"`
}

// Normalize fills the defaults used by the add dialog.
func (dto *CreateExpenseDTO) Normalize() {
	if dto.Currency == "" {
		dto.Currency = CurrencyARS
	}
	if dto.Status == "" {
		dto.Status = StatusPendiente
	}
}

func (dto CreateExpenseDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("name", dto.Name).MaxLength(200)
	v.Field("importe", dto.Importe).NonNegative(errors.ErrCodeInvalidAmount).MaxPlaces(AmountPlaces, errors.ErrCodeInvalidAmount)
	v.Field("currency", dto.Currency).OneOf(Currencies, errors.ErrCodeInvalidCurrency)
	v.Field("status", string(dto.Status)).Custom(validStatus("status"))
	v.Field("category", dto.Category).Required()
	v.Field("month", dto.Month).Between(1, 12, errors.ErrCodeInvalidMonth)
	v.Field("year", dto.Year).Between(1970, 9999, errors.ErrCodeInvalidYear)
	v.Field("debt", dto.Debt).NonNegative(errors.ErrCodeInvalidAmount).MaxPlaces(AmountPlaces, errors.ErrCodeInvalidAmount)
	v.Field("cardTotalARS", dto.CardTotalARS).NonNegative(errors.ErrCodeInvalidAmount).MaxPlaces(AmountPlaces, errors.ErrCodeInvalidAmount)
	v.Field("cardTotalUSD", dto.CardTotalUSD).NonNegative(errors.ErrCodeInvalidAmount).MaxPlaces(AmountPlaces, errors.ErrCodeInvalidAmount)
	v.Field("cardUSDRate", dto.CardUSDRate).NonNegative(errors.ErrCodeInvalidAmount).MaxPlaces(RatePlaces, errors.ErrCodeInvalidAmount)
	if dto.IconColor != nil {
		v.Field("iconColor", *dto.IconColor).HexColor()
	}
	return v.Validate()
}

type QuickAddDTO struct {
	Category string `json:"category"`
	Month    int    `json:"month"`
	Year     int    `json:"year"`
}

func (dto QuickAddDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("category", dto.Category).Required()
	v.Field("month", dto.Month).Between(1, 12, errors.ErrCodeInvalidMonth)
	v.Field("year", dto.Year).Between(1970, 9999, errors.ErrCodeInvalidYear)
	return v.Validate()
}

type TemplateRequest struct {
	SourceMonth    int  `json:"sourceMonth"`
	SourceYear     int  `json:"sourceYear"`
	TargetMonth    int  `json:"targetMonth"`
	TargetYear     int  `json:"targetYear"`
	KeepCardLinks  bool `json:"keepCardLinks"`
	KeepRecurring  bool `json:"keepRecurring"`
	KeepPagoAnual  bool `json:"keepPagoAnual"`
	KeepBonificado bool `json:"keepBonificado"`
}

func (r TemplateRequest) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("sourceMonth", r.SourceMonth).Between(1, 12, errors.ErrCodeInvalidMonth)
	v.Field("sourceYear", r.SourceYear).Between(1970, 9999, errors.ErrCodeInvalidYear)
	v.Field("targetMonth", r.TargetMonth).Between(1, 12, errors.ErrCodeInvalidMonth)
	v.Field("targetYear", r.TargetYear).Between(1970, 9999, errors.ErrCodeInvalidYear)
	if appErr := v.Validate(); appErr != nil {
		return appErr
	}
	if r.SourceMonth == r.TargetMonth && r.SourceYear == r.TargetYear {
		return ErrSameBucket
	}
	return nil
}

// retains reports whether a source record with status keeps its status,
// dates and amount in the copy.
func (r TemplateRequest) retains(status Status) bool {
	if !r.KeepRecurring {
		return false
	}
	switch status {
	case StatusPagoAnual:
		return r.KeepPagoAnual
	case StatusBonificado:
		return r.KeepBonificado
	}
	return false
}

type TemplateResult struct {
	Copied   int `json:"copied"`
	Relinked int `json:"relinked"`
	Unlinked int `json:"unlinked"`
}

type LinkDTO struct {
	ExpenseIDs []string `json:"expenseIds"`
}

func (dto LinkDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("expenseIds", dto.ExpenseIDs).Required()
	return v.Validate()
}

type ReorderDTO struct {
	IDs []string `json:"ids"`
}

func (dto ReorderDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("ids", dto.IDs).Required()
	return v.Validate()
}

type ClearMonthResult struct {
	Deleted int `json:"deleted"`
}

// Reconciliation compares what a card statement says with the children
// linked to it.
type Reconciliation struct {
	CardID        string           `json:"cardId"`
	CardName      string           `json:"cardName"`
	StatedARS     decimal.Decimal  `json:"statedARS"`
	StatedUSD     decimal.Decimal  `json:"statedUSD"`
	LinkedARS     decimal.Decimal  `json:"linkedARS"`
	LinkedUSD     decimal.Decimal  `json:"linkedUSD"`
	DifferenceARS decimal.Decimal  `json:"differenceARS"`
	DifferenceUSD decimal.Decimal  `json:"differenceUSD"`
	USDRate       *decimal.Decimal `json:"usdRate,omitempty"`
	TotalInARS    *decimal.Decimal `json:"totalInARS,omitempty"`
	Linked        []*Expense       `json:"linked"`
}

func (r *Reconciliation) Balanced() bool {
	return r.DifferenceARS.IsZero() && r.DifferenceUSD.IsZero()
}
