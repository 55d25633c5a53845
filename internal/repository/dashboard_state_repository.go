package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DashboardStateRepository struct {
	db *gorm.DB
}

func NewDashboardStateRepository(db *gorm.DB) *DashboardStateRepository {
	return &DashboardStateRepository{db: db}
}

func (r *DashboardStateRepository) WithTx(tx *gorm.DB) *DashboardStateRepository {
	return &DashboardStateRepository{db: tx}
}

// Get returns the stored state, or the overview default when none exists
func (r *DashboardStateRepository) Get(ctx context.Context, userID string) (*domain.DashboardState, error) {
	var state domain.DashboardState
	err := r.db.WithContext(ctx).First(&state, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.DashboardState{UserID: userID, ActiveView: domain.ViewOverview}, nil
	}
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (r *DashboardStateRepository) Upsert(ctx context.Context, state *domain.DashboardState) error {
	state.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"active_view", "selected_conversation_id", "selected_request_id", "updated_at"}),
		}).
		Create(state).Error
}

// ClearSelectedConversation unsets the selection on every dashboard that had
// the conversation open
func (r *DashboardStateRepository) ClearSelectedConversation(ctx context.Context, conversationID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.DashboardState{}).
		Where("selected_conversation_id = ?", conversationID).
		Updates(map[string]interface{}{
			"selected_conversation_id": nil,
			"updated_at":               time.Now().UTC(),
		})
	return result.RowsAffected, result.Error
}
