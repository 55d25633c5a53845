package repository

import (
	"context"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"gorm.io/gorm"
)

// MaintenanceEventRepository stores the replication outbox
type MaintenanceEventRepository struct {
	db *gorm.DB
}

func NewMaintenanceEventRepository(db *gorm.DB) *MaintenanceEventRepository {
	return &MaintenanceEventRepository{db: db}
}

func (r *MaintenanceEventRepository) WithTx(tx *gorm.DB) *MaintenanceEventRepository {
	return &MaintenanceEventRepository{db: tx}
}

func (r *MaintenanceEventRepository) Create(ctx context.Context, event *domain.MaintenanceEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// ListPending returns unreplicated events below the attempt limit with ids
// greater than afterID, in id order
func (r *MaintenanceEventRepository) ListPending(ctx context.Context, afterID uint64, maxAttempts, limit int) ([]domain.MaintenanceEvent, error) {
	var events []domain.MaintenanceEvent
	err := r.db.WithContext(ctx).
		Where("replicated_at IS NULL AND attempts < ? AND id > ?", maxAttempts, afterID).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *MaintenanceEventRepository) MarkReplicated(ctx context.Context, id uint64, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&domain.MaintenanceEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"replicated_at": at,
			"last_error":    "",
		}).Error
}

func (r *MaintenanceEventRepository) MarkFailed(ctx context.Context, id uint64, cause string) error {
	return r.db.WithContext(ctx).
		Model(&domain.MaintenanceEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": cause,
		}).Error
}

// CountPending counts events still waiting for replication
func (r *MaintenanceEventRepository) CountPending(ctx context.Context, maxAttempts int) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.MaintenanceEvent{}).
		Where("replicated_at IS NULL AND attempts < ?", maxAttempts).
		Count(&count).Error
	return count, err
}
