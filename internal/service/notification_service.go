package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/auth"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/mapper"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/realtime"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NotificationService handles business logic for notifications
type NotificationService struct {
	notificationRepo *repository.NotificationRepository
	dashboardRepo    *repository.DashboardStateRepository
	publisher        realtime.Publisher
	logger           *zap.Logger
}

// NewNotificationService creates a new NotificationService instance
func NewNotificationService(
	notificationRepo *repository.NotificationRepository,
	dashboardRepo *repository.DashboardStateRepository,
	publisher realtime.Publisher,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		notificationRepo: notificationRepo,
		dashboardRepo:    dashboardRepo,
		publisher:        publisher,
		logger:           logger,
	}
}

// Dispatch persists a notification and pushes it to the recipient's stream
func (s *NotificationService) Dispatch(ctx context.Context, notification *domain.Notification) error {
	if notification.UserID == "" {
		return fmt.Errorf("%w: notification recipient is required", ErrInvalidInput)
	}
	if !domain.NotificationType(notification.Type).IsValid() {
		return fmt.Errorf("%w: unknown notification type %q", ErrInvalidInput, notification.Type)
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	s.logger.Info("notification created",
		zap.String("notificationID", notification.ID),
		zap.String("userID", notification.UserID),
		zap.String("type", notification.Type),
	)

	realtime.PublishToUsers(ctx, s.publisher, s.logger, realtime.EventNotificationCreated,
		mapper.ToNotificationDTO(notification), notification.UserID)
	return nil
}

// DispatchBestEffort dispatches and logs failures instead of returning them.
// Used for side effects that must not fail the primary write.
func (s *NotificationService) DispatchBestEffort(ctx context.Context, notification *domain.Notification) {
	if err := s.Dispatch(ctx, notification); err != nil {
		s.logger.Warn("failed to dispatch notification",
			zap.String("userID", notification.UserID),
			zap.String("type", notification.Type),
			zap.Error(err),
		)
	}
}

// GetForCurrentUser returns notifications for the current user with pagination
func (s *NotificationService) GetForCurrentUser(
	ctx context.Context,
	page int,
	pageSize int,
	unreadOnly bool,
	notificationType string,
) (*domain.PaginatedResponse, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUserContextRequired
	}
	if notificationType != "" && !domain.NotificationType(notificationType).IsValid() {
		return nil, fmt.Errorf("%w: unknown notification type %q", ErrInvalidInput, notificationType)
	}

	page, pageSize = repository.NormalizePage(page, pageSize)

	notifications, total, err := s.notificationRepo.ListByUser(ctx, userCtx.UserID, page, pageSize, unreadOnly, notificationType)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	dtos := make([]domain.NotificationDTO, len(notifications))
	for i := range notifications {
		dtos[i] = mapper.ToNotificationDTO(&notifications[i])
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	return &domain.PaginatedResponse{
		Data:       dtos,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// getOwned loads a notification and verifies it belongs to the caller
func (s *NotificationService) getOwned(ctx context.Context, id string) (*domain.Notification, *auth.UserContext, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, nil, ErrUserContextRequired
	}

	notification, err := s.notificationRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotificationNotFound
		}
		return nil, nil, fmt.Errorf("failed to get notification: %w", err)
	}

	if notification.UserID != userCtx.UserID {
		return nil, nil, ErrNotificationNotOwned
	}
	return notification, userCtx, nil
}

// MarkAsRead marks a notification as read. Marking twice is a no-op.
func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID string) error {
	notification, userCtx, err := s.getOwned(ctx, notificationID)
	if err != nil {
		return err
	}
	if notification.Read {
		return nil
	}

	if err := s.notificationRepo.MarkAsRead(ctx, notificationID); err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}

	s.logger.Debug("notification marked as read",
		zap.String("notificationID", notificationID),
		zap.String("userID", userCtx.UserID),
	)
	return nil
}

// MarkAllAsReadForUser marks all notifications for the current user as read
func (s *NotificationService) MarkAllAsReadForUser(ctx context.Context) (int64, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return 0, ErrUserContextRequired
	}

	marked, err := s.notificationRepo.MarkAllAsRead(ctx, userCtx.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read: %w", err)
	}

	s.logger.Info("all notifications marked as read",
		zap.String("userID", userCtx.UserID),
		zap.Int64("count", marked),
	)
	return marked, nil
}

// GetUnreadCount returns the count of unread notifications for the current user
func (s *NotificationService) GetUnreadCount(ctx context.Context) (*domain.UnreadCountDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUserContextRequired
	}

	count, err := s.notificationRepo.CountUnread(ctx, userCtx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return &domain.UnreadCountDTO{Count: count}, nil
}

// NavigationTargetFor maps a notification to the dashboard view it opens:
// messages go to the conversation, everything else to the maintenance request.
func NavigationTargetFor(notification *domain.Notification) domain.NavigationTarget {
	if domain.NotificationType(notification.Type) == domain.NotificationTypeNewMessage {
		target := domain.NavigationTarget{View: domain.ViewMessages}
		if notification.ConversationID != nil {
			target.ConversationID = *notification.ConversationID
		}
		return target
	}

	target := domain.NavigationTarget{View: domain.ViewMaintenance}
	if notification.MaintenanceRequestID != nil {
		target.RequestID = *notification.MaintenanceRequestID
	}
	return target
}

// Open marks the notification read and moves the caller's dashboard to the
// view the notification points at
func (s *NotificationService) Open(ctx context.Context, notificationID string) (*domain.OpenNotificationDTO, error) {
	notification, userCtx, err := s.getOwned(ctx, notificationID)
	if err != nil {
		return nil, err
	}

	if !notification.Read {
		if err := s.notificationRepo.MarkAsRead(ctx, notificationID); err != nil {
			return nil, fmt.Errorf("failed to mark notification as read: %w", err)
		}
		now := time.Now().UTC()
		notification.Read = true
		notification.ReadAt = &now
	}

	target := NavigationTargetFor(notification)

	state, err := s.dashboardRepo.Get(ctx, userCtx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard state: %w", err)
	}
	state.ActiveView = target.View
	if target.ConversationID != "" {
		state.SelectedConversationID = &target.ConversationID
	}
	if target.RequestID != "" {
		state.SelectedRequestID = &target.RequestID
	}
	if err := s.dashboardRepo.Upsert(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save dashboard state: %w", err)
	}

	return &domain.OpenNotificationDTO{
		Notification: mapper.ToNotificationDTO(notification),
		Target:       target,
	}, nil
}
