package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type LandlordSettingsRepository struct {
	db *gorm.DB
}

func NewLandlordSettingsRepository(db *gorm.DB) *LandlordSettingsRepository {
	return &LandlordSettingsRepository{db: db}
}

// Get returns the landlord's settings, or nil when none are stored
func (r *LandlordSettingsRepository) Get(ctx context.Context, landlordID string) (*domain.LandlordSettings, error) {
	var settings domain.LandlordSettings
	err := r.db.WithContext(ctx).First(&settings, "landlord_id = ?", landlordID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *LandlordSettingsRepository) Upsert(ctx context.Context, settings *domain.LandlordSettings) error {
	settings.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "landlord_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"monthly_budget", "currency", "updated_at"}),
		}).
		Create(settings).Error
}
