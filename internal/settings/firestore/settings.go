package firestore

import (
	"context"
	"time"

	gfirestore "cloud.google.com/go/firestore"
	"github.com/frahmantamala/household-ledger/internal/settings"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const Collection = "userSettings"

type settingsDoc struct {
	StatusColors map[string]string `firestore:"statusColors,omitempty"`
	UpdatedAt    time.Time         `firestore:"updatedAt"`
}

// SettingsRepository keeps one document per user at userSettings/{uid}. Other
// fields on that document are never touched.
type SettingsRepository struct {
	client *gfirestore.Client
}

func NewSettingsRepository(client *gfirestore.Client) *SettingsRepository {
	return &SettingsRepository{client: client}
}

func (r *SettingsRepository) doc(userID string) *gfirestore.DocumentRef {
	return r.client.Collection(Collection).Doc(userID)
}

func (r *SettingsRepository) Get(ctx context.Context, userID string) (*settings.Settings, error) {
	snap, err := r.doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}
	var d settingsDoc
	if err := snap.DataTo(&d); err != nil {
		return nil, err
	}
	return fromDoc(userID, &d), nil
}

// MergeStatusColors writes with MergeAll so nested statuses not in colors survive.
func (r *SettingsRepository) MergeStatusColors(ctx context.Context, userID string, colors settings.StatusColors, at time.Time) error {
	_, err := r.doc(userID).Set(ctx, mergeData(colors, at), gfirestore.MergeAll)
	return err
}

func (r *SettingsRepository) ClearStatusColors(ctx context.Context, userID string, at time.Time) error {
	_, err := r.doc(userID).Update(ctx, clearUpdates(at))
	if status.Code(err) == codes.NotFound {
		return nil
	}
	return err
}

func mergeData(colors settings.StatusColors, at time.Time) map[string]interface{} {
	nested := make(map[string]interface{}, len(colors))
	for k, v := range colors {
		nested[k] = v
	}
	return map[string]interface{}{
		"statusColors": nested,
		"updatedAt":    at,
	}
}

func clearUpdates(at time.Time) []gfirestore.Update {
	return []gfirestore.Update{
		{Path: "statusColors", Value: gfirestore.Delete},
		{Path: "updatedAt", Value: at},
	}
}

// fromDoc reads a document without statusColors as no overrides.
func fromDoc(userID string, d *settingsDoc) *settings.Settings {
	colors := settings.StatusColors(d.StatusColors)
	if colors == nil {
		colors = settings.StatusColors{}
	}
	return &settings.Settings{
		UserID:       userID,
		StatusColors: colors,
		UpdatedAt:    d.UpdatedAt,
	}
}
