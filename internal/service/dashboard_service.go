package service

import (
	"context"
	"fmt"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/auth"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/mapper"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/repository"
	"go.uber.org/zap"
)

type DashboardService struct {
	dashboardRepo *repository.DashboardStateRepository
	logger        *zap.Logger
}

func NewDashboardService(dashboardRepo *repository.DashboardStateRepository, logger *zap.Logger) *DashboardService {
	return &DashboardService{
		dashboardRepo: dashboardRepo,
		logger:        logger,
	}
}

func (s *DashboardService) GetState(ctx context.Context) (*domain.DashboardStateDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUserContextRequired
	}

	state, err := s.dashboardRepo.Get(ctx, userCtx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load dashboard state: %w", err)
	}
	dto := mapper.ToDashboardStateDTO(state)
	return &dto, nil
}

// UpdateState replaces the caller's view and selections. A selected
// conversation must be one the caller takes part in.
func (s *DashboardService) UpdateState(ctx context.Context, in *domain.UpdateDashboardStateRequest) (*domain.DashboardStateDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUserContextRequired
	}

	view := domain.DashboardView(in.ActiveView)
	if !view.IsValid() {
		return nil, fmt.Errorf("%w: unknown view %q", ErrInvalidInput, in.ActiveView)
	}
	if in.SelectedConversationID != nil && *in.SelectedConversationID != "" &&
		!domain.IsConversationParticipant(*in.SelectedConversationID, userCtx.UserID) {
		return nil, ErrNotParticipant
	}

	state := &domain.DashboardState{
		UserID:                 userCtx.UserID,
		ActiveView:             view,
		SelectedConversationID: nonEmpty(in.SelectedConversationID),
		SelectedRequestID:      nonEmpty(in.SelectedRequestID),
	}
	if err := s.dashboardRepo.Upsert(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save dashboard state: %w", err)
	}

	dto := mapper.ToDashboardStateDTO(state)
	return &dto, nil
}

func nonEmpty(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}
