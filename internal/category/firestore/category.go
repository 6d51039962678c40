package firestore

import (
	"context"
	"fmt"
	"time"

	gfirestore "cloud.google.com/go/firestore"
	"github.com/frahmantamala/household-ledger/internal/category"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const Collection = "categories"

type colorsDoc struct {
	From string `firestore:"from"`
	To   string `firestore:"to"`
}

type categoryDoc struct {
	UserID          string     `firestore:"userId"`
	Name            string     `firestore:"name"`
	Order           int        `firestore:"order"`
	Colors          *colorsDoc `firestore:"colors,omitempty"`
	Icon            *string    `firestore:"icon,omitempty"`
	IncludeInTotals *bool      `firestore:"includeInTotals,omitempty"`
	CreatedAt       time.Time  `firestore:"createdAt"`
	UpdatedAt       time.Time  `firestore:"updatedAt"`
}

type CategoryRepository struct {
	client *gfirestore.Client
}

func NewCategoryRepository(client *gfirestore.Client) *CategoryRepository {
	return &CategoryRepository{client: client}
}

func (r *CategoryRepository) col() *gfirestore.CollectionRef {
	return r.client.Collection(Collection)
}

func (r *CategoryRepository) NewID() string {
	return r.col().NewDoc().ID
}

func (r *CategoryRepository) ListByUser(ctx context.Context, userID string) ([]*category.Category, error) {
	snaps, err := r.col().
		Where("userId", "==", userID).
		OrderBy("order", gfirestore.Asc).
		Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}
	result := make([]*category.Category, 0, len(snaps))
	for _, snap := range snaps {
		c, err := decode(snap)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*category.Category, error) {
	snap, err := r.col().Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, category.ErrCategoryNotFound
		}
		return nil, err
	}
	return decode(snap)
}

func (r *CategoryRepository) Create(ctx context.Context, c *category.Category) error {
	_, err := r.col().Doc(c.ID).Create(ctx, encode(c))
	return err
}

func (r *CategoryRepository) CreateMany(ctx context.Context, cs []*category.Category) error {
	if len(cs) == 0 {
		return nil
	}
	batch := r.client.Batch()
	for _, c := range cs {
		batch.Create(r.col().Doc(c.ID), encode(c))
	}
	_, err := batch.Commit(ctx)
	return err
}

func (r *CategoryRepository) Update(ctx context.Context, id string, changes category.Changes) error {
	updates := updatesFor(changes)
	if len(updates) == 0 {
		return nil
	}
	_, err := r.col().Doc(id).Update(ctx, updates)
	if status.Code(err) == codes.NotFound {
		return category.ErrCategoryNotFound
	}
	return err
}

func (r *CategoryRepository) SetOrders(ctx context.Context, orders map[string]int, at time.Time) error {
	if len(orders) == 0 {
		return nil
	}
	batch := r.client.Batch()
	for id, order := range orders {
		batch.Update(r.col().Doc(id), []gfirestore.Update{
			{Path: "order", Value: order},
			{Path: "updatedAt", Value: at},
		})
	}
	_, err := batch.Commit(ctx)
	if status.Code(err) == codes.NotFound {
		return category.ErrCategoryNotFound
	}
	return err
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) error {
	_, err := r.col().Doc(id).Delete(ctx, gfirestore.Exists)
	if status.Code(err) == codes.NotFound {
		return category.ErrCategoryNotFound
	}
	return err
}

func updatesFor(changes category.Changes) []gfirestore.Update {
	var out []gfirestore.Update
	if changes.Name != nil {
		out = append(out, gfirestore.Update{Path: "name", Value: *changes.Name})
	}
	if changes.Order != nil {
		out = append(out, gfirestore.Update{Path: "order", Value: *changes.Order})
	}
	if changes.Colors != nil {
		out = append(out, gfirestore.Update{Path: "colors", Value: colorsDoc{From: changes.Colors.From, To: changes.Colors.To}})
	}
	if changes.ClearColors {
		out = append(out, gfirestore.Update{Path: "colors", Value: gfirestore.Delete})
	}
	if changes.Icon != nil {
		out = append(out, gfirestore.Update{Path: "icon", Value: *changes.Icon})
	}
	if changes.ClearIcon {
		out = append(out, gfirestore.Update{Path: "icon", Value: gfirestore.Delete})
	}
	if changes.IncludeInTotals != nil {
		out = append(out, gfirestore.Update{Path: "includeInTotals", Value: *changes.IncludeInTotals})
	}
	if len(out) > 0 && !changes.UpdatedAt.IsZero() {
		out = append(out, gfirestore.Update{Path: "updatedAt", Value: changes.UpdatedAt})
	}
	return out
}

func encode(c *category.Category) *categoryDoc {
	include := c.IncludeInTotals
	doc := &categoryDoc{
		UserID:          c.UserID,
		Name:            c.Name,
		Order:           c.Order,
		Icon:            c.Icon,
		IncludeInTotals: &include,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
	if c.Colors != nil {
		doc.Colors = &colorsDoc{From: c.Colors.From, To: c.Colors.To}
	}
	return doc
}

func decode(snap *gfirestore.DocumentSnapshot) (*category.Category, error) {
	var doc categoryDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("decode category %s: %w", snap.Ref.ID, err)
	}
	return fromDoc(snap.Ref.ID, &doc), nil
}

// fromDoc treats a missing includeInTotals as true.
func fromDoc(id string, doc *categoryDoc) *category.Category {
	c := &category.Category{
		ID:              id,
		UserID:          doc.UserID,
		Name:            doc.Name,
		Order:           doc.Order,
		Icon:            doc.Icon,
		IncludeInTotals: doc.IncludeInTotals == nil || *doc.IncludeInTotals,
		CreatedAt:       doc.CreatedAt,
		UpdatedAt:       doc.UpdatedAt,
	}
	if doc.Colors != nil {
		c.Colors = &category.Colors{From: doc.Colors.From, To: doc.Colors.To}
	}
	return c
}
