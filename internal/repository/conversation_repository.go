package repository

import (
	"context"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

func (r *ConversationRepository) WithTx(tx *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: tx}
}

// Upsert inserts the conversation row or refreshes its last-message summary
func (r *ConversationRepository) Upsert(ctx context.Context, conv *domain.Conversation) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"last_message", "last_message_time", "last_sender_id",
				"property_name", "unit", "updated_at",
			}),
		}).
		Create(conv).Error
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*domain.Conversation, error) {
	var conv domain.Conversation
	if err := r.db.WithContext(ctx).First(&conv, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// DeleteByID removes every conversation row with the id
func (r *ConversationRepository) DeleteByID(ctx context.Context, id string) (int64, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Conversation{})
	return result.RowsAffected, result.Error
}
