package expense

import (
	"context"
	"strings"
	"time"

	errors "github.com/frahmantamala/household-ledger/internal"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPendiente  Status = "pendiente"
	StatusPagado     Status = "pagado"
	StatusVencido    Status = "vencido"
	StatusPagoAnual  Status = "pago anual"
	StatusBonificado Status = "bonificado"
)

// Statuses lists every payment status in display order.
var Statuses = []Status{StatusPendiente, StatusPagado, StatusVencido, StatusPagoAnual, StatusBonificado}

func (s Status) Valid() bool {
	for _, status := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

const (
	CurrencyARS = "ARS"
	CurrencyUSD = "USD"
)

var Currencies = []string{CurrencyARS, CurrencyUSD}

type Expense struct {
	ID             string           `json:"id"`
	UserID         string           `json:"userId"`
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
	Order          int              `json:"order"`
	Comment        *string          `json:"comment,omitempty"`
	Debt           *decimal.Decimal `json:"debt,omitempty"`
	LinkedToCardID *string          `json:"linkedToCardId,omitempty"`
	CardTotalARS   *decimal.Decimal `json:"cardTotalARS,omitempty"`
	CardTotalUSD   *decimal.Decimal `json:"cardTotalUSD,omitempty"`
	CardUSDRate    *decimal.Decimal `json:"cardUSDRate,omitempty"`
	Icon           *string          `json:"icon,omitempty"`
	IconColor      *string          `json:"iconColor,omitempty"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// IsCreditCard reports whether the expense is a card statement. Cards are
// recognised by name only.
func (e *Expense) IsCreditCard() bool {
	return strings.Contains(strings.ToUpper(e.Name), "TC")
}

func (e *Expense) InBucket(month, year int) bool {
	return e.Month == month && e.Year == year
}

func (e *Expense) LinkedTo(cardID string) bool {
	return e.LinkedToCardID != nil && *e.LinkedToCardID == cardID
}

// Batch collects writes that are committed atomically.
type Batch interface {
	Create(e *Expense)
	Patch(id string, p Patch)
	Delete(id string)
	Len() int
	Commit(ctx context.Context) error
}

type Repository interface {
	// NewID allocates an identifier without writing anything.
	NewID() string
	GetByID(ctx context.Context, id string) (*Expense, error)
	// ListByMonth returns one bucket, newest first.
	ListByMonth(ctx context.Context, userID string, month, year int) ([]*Expense, error)
	// ListByUser returns every expense of the user, latest bucket first.
	ListByUser(ctx context.Context, userID string) ([]*Expense, error)
	ListByCategory(ctx context.Context, userID, categoryID string) ([]*Expense, error)
	Create(ctx context.Context, e *Expense) error
	Patch(ctx context.Context, id string, p Patch) error
	Delete(ctx context.Context, id string) error
	NewBatch() Batch
}

var (
	ErrExpenseNotFound = errors.NewNotFoundError("expense not found", errors.ErrCodeExpenseNotFound)
	ErrCardNotFound    = errors.NewNotFoundError("card expense not found", errors.ErrCodeCardNotFound)
	ErrNotACard        = errors.NewValidationError("target expense is not a credit card", errors.ErrCodeNotACard)
	ErrSelfLink        = errors.NewValidationError("a card cannot be linked to itself", errors.ErrCodeSelfLink)
	ErrSameBucket      = errors.NewValidationError("source and target month must differ", errors.ErrCodeInvalidMonth)
)
