package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/auth"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/mapper"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/realtime"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const messagePreviewLength = 120

// MessageService stores direct messages between two users
type MessageService struct {
	db               *gorm.DB
	messageRepo      *repository.MessageRepository
	conversationRepo *repository.ConversationRepository
	dashboardRepo    *repository.DashboardStateRepository
	notifications    *NotificationService
	publisher        realtime.Publisher
	logger           *zap.Logger
	now              func() time.Time
}

// NewMessageService creates a new MessageService instance
func NewMessageService(
	db *gorm.DB,
	messageRepo *repository.MessageRepository,
	conversationRepo *repository.ConversationRepository,
	dashboardRepo *repository.DashboardStateRepository,
	notifications *NotificationService,
	publisher realtime.Publisher,
	logger *zap.Logger,
) *MessageService {
	return &MessageService{
		db:               db,
		messageRepo:      messageRepo,
		conversationRepo: conversationRepo,
		dashboardRepo:    dashboardRepo,
		notifications:    notifications,
		publisher:        publisher,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func participantsOf(a, b string) []string {
	p := []string{a, b}
	sort.Strings(p)
	return p
}

func sortedCopy(ids []string) []string {
	out := slices.Clone(ids)
	sort.Strings(out)
	return out
}

// Send delivers a message and refreshes the stored conversation summary
func (s *MessageService) Send(ctx context.Context, in *domain.SendMessageRequest) (*domain.MessageDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUserContextRequired
	}
	if userCtx.IsSystem() {
		return nil, ErrPermissionDenied
	}

	text := strings.TrimSpace(in.Text)
	recipientID := strings.TrimSpace(in.RecipientID)
	if text == "" {
		return nil, fmt.Errorf("%w: message text is required", ErrInvalidInput)
	}
	if recipientID == "" || recipientID == userCtx.UserID {
		return nil, fmt.Errorf("%w: recipient must be another user", ErrInvalidInput)
	}

	now := s.now()
	convID := domain.ConversationIDFor(userCtx.UserID, recipientID)
	participants := participantsOf(userCtx.UserID, recipientID)

	msg := &domain.Message{
		ConversationID: convID,
		SenderID:       userCtx.UserID,
		SenderName:     displayName(userCtx),
		SenderRole:     userCtx.Role,
		RecipientID:    recipientID,
		RecipientName:  strings.TrimSpace(in.RecipientName),
		RecipientRole:  domain.UserRole(in.RecipientRole),
		Text:           text,
		Timestamp:      now,
		PropertyName:   strings.TrimSpace(in.PropertyName),
		Unit:           strings.TrimSpace(in.Unit),
		Participants:   participants,
	}
	conv := &domain.Conversation{
		ID:              convID,
		Participants:    participants,
		LastMessage:     text,
		LastMessageTime: now,
		LastSenderID:    userCtx.UserID,
		PropertyName:    msg.PropertyName,
		Unit:            msg.Unit,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		existing, err := s.conversationRepo.WithTx(tx).GetByID(ctx, convID)
		switch {
		case err == nil:
			if !slices.Equal(sortedCopy(existing.Participants), participants) {
				return fmt.Errorf("%w: conversation %s belongs to other users", ErrConflict, convID)
			}
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return fmt.Errorf("failed to load conversation: %w", err)
		}
		if err := s.messageRepo.WithTx(tx).Create(ctx, msg); err != nil {
			return fmt.Errorf("failed to create message: %w", err)
		}
		if err := s.conversationRepo.WithTx(tx).Upsert(ctx, conv); err != nil {
			return fmt.Errorf("failed to update conversation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("message sent",
		zap.String("messageID", msg.ID),
		zap.String("conversationID", convID),
		zap.String("senderID", userCtx.UserID),
	)

	conversationID := convID
	s.notifications.DispatchBestEffort(ctx, &domain.Notification{
		UserID:         recipientID,
		Type:           string(domain.NotificationTypeNewMessage),
		Title:          "New message from " + msg.SenderName,
		Message:        truncate(text, messagePreviewLength),
		SenderID:       userCtx.UserID,
		SenderName:     msg.SenderName,
		ConversationID: &conversationID,
	})

	dto := mapper.ToMessageDTO(msg)
	realtime.PublishToUsers(ctx, s.publisher, s.logger, realtime.EventMessageCreated, dto, userCtx.UserID, recipientID)
	return &dto, nil
}

// ListConversations returns the caller's conversations, newest first
func (s *MessageService) ListConversations(ctx context.Context) ([]domain.ConversationDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUserContextRequired
	}

	messages, err := s.messageRepo.ListForUser(ctx, userCtx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return DeriveConversations(userCtx.UserID, messages), nil
}

// checkParticipant resolves the caller and verifies they belong to the
// conversation, returning its parties. Membership comes from the stored
// conversation row or its messages; the id alone is trusted only when the
// thread holds nothing. The system identity may act on any conversation.
func (s *MessageService) checkParticipant(ctx context.Context, conversationID string, allowSystem bool) (*auth.UserContext, []string, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, nil, ErrUserContextRequired
	}

	parties, err := s.storedParties(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if allowSystem && userCtx.IsSystem() {
		return userCtx, parties, nil
	}

	if parties == nil {
		if !domain.IsConversationParticipant(conversationID, userCtx.UserID) {
			return nil, nil, ErrNotParticipant
		}
		return userCtx, conversationParties(conversationID, userCtx.UserID), nil
	}
	if !slices.Contains(parties, userCtx.UserID) {
		return nil, nil, ErrNotParticipant
	}
	return userCtx, parties, nil
}

// storedParties returns the participants recorded for the conversation, or
// nil when nothing is stored under the id
func (s *MessageService) storedParties(ctx context.Context, conversationID string) ([]string, error) {
	conv, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err == nil && len(conv.Participants) > 0 {
		return conv.Participants, nil
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	msg, err := s.messageRepo.FirstInConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return participantsOf(msg.SenderID, msg.RecipientID), nil
}

// Transcript returns the conversation's messages in chronological order
func (s *MessageService) Transcript(ctx context.Context, conversationID string) ([]domain.MessageDTO, error) {
	if _, _, err := s.checkParticipant(ctx, conversationID, true); err != nil {
		return nil, err
	}

	messages, err := s.messageRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	return mapper.ToMessageDTOs(messages), nil
}

// OpenConversation marks the caller's unread messages as read, selects the
// conversation on their dashboard and returns the transcript
func (s *MessageService) OpenConversation(ctx context.Context, conversationID string) (*domain.OpenConversationDTO, error) {
	userCtx, _, err := s.checkParticipant(ctx, conversationID, false)
	if err != nil {
		return nil, err
	}

	marked, err := s.messageRepo.MarkConversationRead(ctx, conversationID, userCtx.UserID, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to mark conversation read: %w", err)
	}

	state, err := s.dashboardRepo.Get(ctx, userCtx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard state: %w", err)
	}
	selected := conversationID
	state.ActiveView = domain.ViewMessages
	state.SelectedConversationID = &selected
	if err := s.dashboardRepo.Upsert(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save dashboard state: %w", err)
	}

	messages, err := s.messageRepo.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}

	if marked > 0 {
		s.logger.Debug("conversation marked read",
			zap.String("conversationID", conversationID),
			zap.String("userID", userCtx.UserID),
			zap.Int64("count", marked),
		)
	}

	return &domain.OpenConversationDTO{
		ConversationID: conversationID,
		MarkedRead:     marked,
		Messages:       mapper.ToMessageDTOs(messages),
	}, nil
}

// DeleteConversation removes every message and conversation row of the
// thread. Deleting an already-deleted conversation succeeds with zero counts.
func (s *MessageService) DeleteConversation(ctx context.Context, conversationID string) (*domain.DeleteConversationDTO, error) {
	userCtx, parties, err := s.checkParticipant(ctx, conversationID, true)
	if err != nil {
		return nil, err
	}

	result := &domain.DeleteConversationDTO{ConversationID: conversationID}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var err error
		result.MessagesDeleted, err = s.messageRepo.WithTx(tx).DeleteByConversation(ctx, conversationID)
		if err != nil {
			return fmt.Errorf("failed to delete messages: %w", err)
		}
		result.ConversationsDeleted, err = s.conversationRepo.WithTx(tx).DeleteByID(ctx, conversationID)
		if err != nil {
			return fmt.Errorf("failed to delete conversation: %w", err)
		}
		if _, err := s.dashboardRepo.WithTx(tx).ClearSelectedConversation(ctx, conversationID); err != nil {
			return fmt.Errorf("failed to clear dashboard selection: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("conversation deleted",
		zap.String("conversationID", conversationID),
		zap.String("userID", userCtx.UserID),
		zap.Int64("messagesDeleted", result.MessagesDeleted),
	)

	realtime.PublishToUsers(ctx, s.publisher, s.logger, realtime.EventConversationDeleted,
		result, parties...)
	return result, nil
}

// conversationParties recovers both participant ids from a conversation id
// given one of them. It returns nil when userID is not a party.
func conversationParties(conversationID, userID string) []string {
	if other, ok := strings.CutPrefix(conversationID, userID+"_"); ok {
		return []string{userID, other}
	}
	if other, ok := strings.CutSuffix(conversationID, "_"+userID); ok {
		return []string{other, userID}
	}
	return nil
}
