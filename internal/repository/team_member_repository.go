package repository

import (
	"context"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"gorm.io/gorm"
)

type TeamMemberRepository struct {
	db *gorm.DB
}

func NewTeamMemberRepository(db *gorm.DB) *TeamMemberRepository {
	return &TeamMemberRepository{db: db}
}

func (r *TeamMemberRepository) Create(ctx context.Context, member *domain.TeamMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// ListByLandlord returns a landlord's roster ordered by name
func (r *TeamMemberRepository) ListByLandlord(ctx context.Context, landlordID string, activeOnly bool) ([]domain.TeamMember, error) {
	var members []domain.TeamMember
	query := r.db.WithContext(ctx).Where("landlord_id = ?", landlordID)
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	err := query.Order("name ASC").Find(&members).Error
	return members, err
}

// GetByLandlordAndUser finds a roster entry
func (r *TeamMemberRepository) GetByLandlordAndUser(ctx context.Context, landlordID, userID string) (*domain.TeamMember, error) {
	var member domain.TeamMember
	err := r.db.WithContext(ctx).
		Where("landlord_id = ? AND user_id = ?", landlordID, userID).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// NamesByUserID maps user ids of the landlord's roster to display names
func (r *TeamMemberRepository) NamesByUserID(ctx context.Context, landlordID string, userIDs []string) (map[string]string, error) {
	names := make(map[string]string, len(userIDs))
	if len(userIDs) == 0 {
		return names, nil
	}

	var members []domain.TeamMember
	err := r.db.WithContext(ctx).
		Where("landlord_id = ? AND user_id IN ?", landlordID, userIDs).
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		names[m.UserID] = m.Name
	}
	return names, nil
}
