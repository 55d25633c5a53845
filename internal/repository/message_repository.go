package repository

import (
	"context"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"gorm.io/gorm"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) WithTx(tx *gorm.DB) *MessageRepository {
	return &MessageRepository{db: tx}
}

func (r *MessageRepository) Create(ctx context.Context, msg *domain.Message) error {
	return r.db.WithContext(ctx).Create(msg).Error
}

// ListForUser returns every message the user sent or received
func (r *MessageRepository) ListForUser(ctx context.Context, userID string) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("sender_id = ? OR recipient_id = ?", userID, userID).
		Find(&messages).Error
	return messages, err
}

// ListByConversation returns a transcript ordered by timestamp
func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]domain.Message, error) {
	var messages []domain.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Order("id ASC").
		Find(&messages).Error
	return messages, err
}

// FirstInConversation returns the oldest message of the conversation
func (r *MessageRepository) FirstInConversation(ctx context.Context, conversationID string) (*domain.Message, error) {
	var msg domain.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("timestamp ASC").
		Order("id ASC").
		First(&msg).Error
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkConversationRead marks unread messages addressed to recipientID as read
// and returns how many rows changed
func (r *MessageRepository) MarkConversationRead(ctx context.Context, conversationID, recipientID string, at time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("conversation_id = ? AND recipient_id = ? AND read = ?", conversationID, recipientID, false).
		Updates(map[string]interface{}{
			"read":       true,
			"read_at":    at,
			"updated_at": at,
		})
	return result.RowsAffected, result.Error
}

// DeleteByConversation removes every message of the conversation
func (r *MessageRepository) DeleteByConversation(ctx context.Context, conversationID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Delete(&domain.Message{})
	return result.RowsAffected, result.Error
}

// CountUnreadForUser counts unread messages addressed to the user
func (r *MessageRepository) CountUnreadForUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Message{}).
		Where("recipient_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}
