package postgres

import (
	"context"
	"errors"
	"time"

	settingsDatamodel "github.com/frahmantamala/household-ledger/internal/core/datamodel/settings"
	"github.com/frahmantamala/household-ledger/internal/settings"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

func (r *SettingsRepository) Get(ctx context.Context, userID string) (*settings.Settings, error) {
	m, err := find(r.db.WithContext(ctx), userID)
	if err != nil || m == nil {
		return nil, err
	}
	return &settings.Settings{
		UserID:       m.UserID,
		StatusColors: settings.StatusColors(m.StatusColors),
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

// MergeStatusColors upserts the row, keeping overrides for statuses not in colors.
func (r *SettingsRepository) MergeStatusColors(ctx context.Context, userID string, colors settings.StatusColors, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := find(tx, userID)
		if err != nil {
			return err
		}
		merged := map[string]string{}
		if existing != nil {
			for k, v := range existing.StatusColors {
				merged[k] = v
			}
		}
		for k, v := range colors {
			merged[k] = v
		}
		return upsert(tx, &settingsDatamodel.UserSettings{UserID: userID, StatusColors: merged, UpdatedAt: at})
	})
}

func (r *SettingsRepository) ClearStatusColors(ctx context.Context, userID string, at time.Time) error {
	return upsert(r.db.WithContext(ctx), &settingsDatamodel.UserSettings{
		UserID:       userID,
		StatusColors: map[string]string{},
		UpdatedAt:    at,
	})
}

func find(db *gorm.DB, userID string) (*settingsDatamodel.UserSettings, error) {
	var m settingsDatamodel.UserSettings
	err := db.Where("user_id = ?", userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func upsert(db *gorm.DB, m *settingsDatamodel.UserSettings) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status_colors", "updated_at"}),
	}).Create(m).Error
}
