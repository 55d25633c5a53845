package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/auth"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/mapper"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TeamService manages a landlord's maintenance staff roster
type TeamService struct {
	teamRepo *repository.TeamMemberRepository
	logger   *zap.Logger
}

// NewTeamService creates a new TeamService instance
func NewTeamService(teamRepo *repository.TeamMemberRepository, logger *zap.Logger) *TeamService {
	return &TeamService{teamRepo: teamRepo, logger: logger}
}

// List returns the active roster of the caller's landlord
func (s *TeamService) List(ctx context.Context, landlordID string) ([]domain.TeamMemberDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUserContextRequired
	}

	landlordID, err := resolveLandlord(userCtx, landlordID)
	if err != nil {
		return nil, err
	}

	members, err := s.teamRepo.ListByLandlord(ctx, landlordID, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}

	dtos := make([]domain.TeamMemberDTO, len(members))
	for i := range members {
		dtos[i] = mapper.ToTeamMemberDTO(&members[i])
	}
	return dtos, nil
}

// Add puts a staff member on the landlord's roster. Landlords only.
func (s *TeamService) Add(ctx context.Context, in *domain.AddTeamMemberRequest) (*domain.TeamMemberDTO, error) {
	userCtx, ok := auth.FromContext(ctx)
	if !ok {
		return nil, ErrUserContextRequired
	}
	if userCtx.Role != domain.RoleLandlord {
		return nil, ErrPermissionDenied
	}

	role := domain.UserRole(in.Role)
	if !role.IsStaff() {
		return nil, fmt.Errorf("%w: team members must be staff or property managers", ErrInvalidInput)
	}

	_, err := s.teamRepo.GetByLandlordAndUser(ctx, userCtx.UserID, in.UserID)
	if err == nil {
		return nil, fmt.Errorf("%w: user is already on the team", ErrConflict)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check team member: %w", err)
	}

	member := &domain.TeamMember{
		LandlordID: userCtx.UserID,
		UserID:     in.UserID,
		Name:       strings.TrimSpace(in.Name),
		Email:      strings.TrimSpace(in.Email),
		Role:       role,
		Active:     true,
	}
	if err := s.teamRepo.Create(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to create team member: %w", err)
	}

	s.logger.Info("team member added",
		zap.String("landlordID", member.LandlordID),
		zap.String("userID", member.UserID),
		zap.String("role", string(member.Role)),
	)

	dto := mapper.ToTeamMemberDTO(member)
	return &dto, nil
}
