package firestore

import (
	"context"
	"fmt"
	"time"

	gfirestore "cloud.google.com/go/firestore"
	errors "github.com/frahmantamala/household-ledger/internal"
	"github.com/frahmantamala/household-ledger/internal/expense"
	"github.com/shopspring/decimal"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	Collection = "expenses"

	// MaxBatchWrites is the document store's limit for one atomic commit.
	MaxBatchWrites = 500
)

type expenseDoc struct {
	UserID         string    `firestore:"userId"`
	Name           string    `firestore:"name"`
	Vto            string    `firestore:"vto"`
	FechaPago      string    `firestore:"fechaPago"`
	Importe        float64   `firestore:"importe"`
	Currency       string    `firestore:"currency"`
	Payer          string    `firestore:"payer"`
	Status         string    `firestore:"status"`
	Category       string    `firestore:"category"`
	Month          int       `firestore:"month"`
	Year           int       `firestore:"year"`
	Order          int       `firestore:"order"`
	Comment        *string   `firestore:"comment,omitempty"`
	Debt           *float64  `firestore:"debt,omitempty"`
	LinkedToCardID *string   `firestore:"linkedToCardId,omitempty"`
	CardTotalARS   *float64  `firestore:"cardTotalARS,omitempty"`
	CardTotalUSD   *float64  `firestore:"cardTotalUSD,omitempty"`
	CardUSDRate    *float64  `firestore:"cardUSDRate,omitempty"`
	Icon           *string   `firestore:"icon,omitempty"`
	IconColor      *string   `firestore:"iconColor,omitempty"`
	CreatedAt      time.Time `firestore:"createdAt"`
	UpdatedAt      time.Time `firestore:"updatedAt"`
}

// ExpenseRepository implements expense.Repository on the "expenses" collection.
type ExpenseRepository struct {
	client *gfirestore.Client
}

func NewExpenseRepository(client *gfirestore.Client) *ExpenseRepository {
	return &ExpenseRepository{client: client}
}

func (r *ExpenseRepository) col() *gfirestore.CollectionRef {
	return r.client.Collection(Collection)
}

func (r *ExpenseRepository) NewID() string {
	return r.col().NewDoc().ID
}

func (r *ExpenseRepository) GetByID(ctx context.Context, id string) (*expense.Expense, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, expense.ErrExpenseNotFound
		}
		return nil, err
	}
	return decode(snap)
}

func (r *ExpenseRepository) ListByMonth(ctx context.Context, userID string, month, year int) ([]*expense.Expense, error) {
	q := r.col().
		Where("userId", "==", userID).
		Where("month", "==", month).
		Where("year", "==", year).
		OrderBy("createdAt", gfirestore.Desc)
	return r.query(ctx, q)
}

func (r *ExpenseRepository) ListByUser(ctx context.Context, userID string) ([]*expense.Expense, error) {
	q := r.col().
		Where("userId", "==", userID).
		OrderBy("year", gfirestore.Desc).
		OrderBy("month", gfirestore.Desc)
	return r.query(ctx, q)
}

func (r *ExpenseRepository) ListByCategory(ctx context.Context, userID, categoryID string) ([]*expense.Expense, error) {
	q := r.col().
		Where("userId", "==", userID).
		Where("category", "==", categoryID)
	return r.query(ctx, q)
}

func (r *ExpenseRepository) query(ctx context.Context, q gfirestore.Query) ([]*expense.Expense, error) {
	snaps, err := q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	result := make([]*expense.Expense, 0, len(snaps))
	for _, snap := range snaps {
		e, err := decode(snap)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

func (r *ExpenseRepository) Create(ctx context.Context, e *expense.Expense) error {
	_, err := r.col().Doc(e.ID).Create(ctx, encode(e))
	return err
}

func (r *ExpenseRepository) Patch(ctx context.Context, id string, p expense.Patch) error {
	_, err := r.col().Doc(id).Update(ctx, updates(p))
	if status.Code(err) == codes.NotFound {
		return expense.ErrExpenseNotFound
	}
	return err
}

func (r *ExpenseRepository) Delete(ctx context.Context, id string) error {
	_, err := r.col().Doc(id).Delete(ctx, gfirestore.Exists)
	if status.Code(err) == codes.NotFound {
		return expense.ErrExpenseNotFound
	}
	return err
}

func (r *ExpenseRepository) NewBatch() expense.Batch {
	return &batch{repo: r, wb: r.client.Batch()}
}

type batch struct {
	repo *ExpenseRepository
	wb   *gfirestore.WriteBatch
	n    int
}

func (b *batch) Create(e *expense.Expense) {
	b.wb.Create(b.repo.col().Doc(e.ID), encode(e))
	b.n++
}

func (b *batch) Patch(id string, p expense.Patch) {
	b.wb.Update(b.repo.col().Doc(id), updates(p))
	b.n++
}

func (b *batch) Delete(id string) {
	b.wb.Delete(b.repo.col().Doc(id))
	b.n++
}

func (b *batch) Len() int {
	return b.n
}

func (b *batch) Commit(ctx context.Context) error {
	if b.n == 0 {
		return nil
	}
	if b.n > MaxBatchWrites {
		return errors.ErrBatchTooLarge.WithDetails(map[string]int{"writes": b.n, "limit": MaxBatchWrites})
	}
	_, err := b.wb.Commit(ctx)
	if status.Code(err) == codes.NotFound {
		return expense.ErrExpenseNotFound
	}
	return err
}

// updates turns a patch into document updates. Removed fields use the
// delete sentinel so they disappear from the document.
func updates(p expense.Patch) []gfirestore.Update {
	out := make([]gfirestore.Update, 0, len(p.Set)+len(p.Unset)+1)
	for field, value := range p.Set {
		if d, ok := value.(decimal.Decimal); ok {
			value = d.InexactFloat64()
		}
		out = append(out, gfirestore.Update{Path: string(field), Value: value})
	}
	for _, field := range p.Unset {
		out = append(out, gfirestore.Update{Path: string(field), Value: gfirestore.Delete})
	}
	if !p.UpdatedAt.IsZero() {
		out = append(out, gfirestore.Update{Path: "updatedAt", Value: p.UpdatedAt})
	}
	return out
}

func encode(e *expense.Expense) *expenseDoc {
	return &expenseDoc{
		UserID:         e.UserID,
		Name:           e.Name,
		Vto:            e.Vto,
		FechaPago:      e.FechaPago,
		Importe:        e.Importe.InexactFloat64(),
		Currency:       e.Currency,
		Payer:          e.Payer,
		Status:         string(e.Status),
		Category:       e.Category,
		Month:          e.Month,
		Year:           e.Year,
		Order:          e.Order,
		Comment:        e.Comment,
		Debt:           toFloat(e.Debt),
		LinkedToCardID: e.LinkedToCardID,
		CardTotalARS:   toFloat(e.CardTotalARS),
		CardTotalUSD:   toFloat(e.CardTotalUSD),
		CardUSDRate:    toFloat(e.CardUSDRate),
		Icon:           e.Icon,
		IconColor:      e.IconColor,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func decode(snap *gfirestore.DocumentSnapshot) (*expense.Expense, error) {
	var doc expenseDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode expense %s: %w", snap.Ref.ID, err)
	}
	return fromDoc(snap.Ref.ID, &doc), nil
}

func fromDoc(id string, doc *expenseDoc) *expense.Expense {
	return &expense.Expense{
		ID:             id,
		UserID:         doc.UserID,
		Name:           doc.Name,
		Vto:            doc.Vto,
		FechaPago:      doc.FechaPago,
		Importe:        decimal.NewFromFloat(doc.Importe),
		Currency:       doc.Currency,
		Payer:          doc.Payer,
		Status:         expense.Status(doc.Status),
		Category:       doc.Category,
		Month:          doc.Month,
		Year:           doc.Year,
		Order:          doc.Order,
		Comment:        doc.Comment,
		Debt:           fromFloat(doc.Debt),
		LinkedToCardID: doc.LinkedToCardID,
		CardTotalARS:   fromFloat(doc.CardTotalARS),
		CardTotalUSD:   fromFloat(doc.CardTotalUSD),
		CardUSDRate:    fromFloat(doc.CardUSDRate),
		Icon:           doc.Icon,
		IconColor:      doc.IconColor,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}
}

func toFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := d.InexactFloat64()
	return &f
}

func fromFloat(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}
