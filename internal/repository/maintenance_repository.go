package repository

import (
	"context"
	"strings"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"gorm.io/gorm"
)

// MaintenanceFilter narrows a maintenance request listing
type MaintenanceFilter struct {
	Status *domain.MaintenanceStatus
	// AssignedTo filters by assignee; a pointer to "" selects unassigned requests
	AssignedTo *string
	Priority   *domain.MaintenancePriority
	PropertyID string
}

var maintenanceSortFields = map[string]string{
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"priority":    "priority",
	"status":      "status",
	"completedAt": "completed_at",
}

type MaintenanceRepository struct {
	db *gorm.DB
}

func NewMaintenanceRepository(db *gorm.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db}
}

// WithTx returns a repository bound to the transaction
func (r *MaintenanceRepository) WithTx(tx *gorm.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: tx}
}

func (r *MaintenanceRepository) Create(ctx context.Context, req *domain.MaintenanceRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *MaintenanceRepository) GetByID(ctx context.Context, id string) (*domain.MaintenanceRequest, error) {
	var req domain.MaintenanceRequest
	err := r.db.WithContext(ctx).First(&req, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// GetByIDs loads requests and returns them in the order of ids, skipping
// ids that no longer exist or fall outside the caller's scope
func (r *MaintenanceRepository) GetByIDs(ctx context.Context, ids []string) ([]domain.MaintenanceRequest, error) {
	if len(ids) == 0 {
		return []domain.MaintenanceRequest{}, nil
	}

	var found []domain.MaintenanceRequest
	query := ApplyMaintenanceScope(ctx, r.db.WithContext(ctx).Model(&domain.MaintenanceRequest{}))
	if err := query.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[string]domain.MaintenanceRequest, len(found))
	for _, req := range found {
		byID[req.ID] = req
	}
	ordered := make([]domain.MaintenanceRequest, 0, len(found))
	for _, id := range ids {
		if req, ok := byID[id]; ok {
			ordered = append(ordered, req)
		}
	}
	return ordered, nil
}

// List returns requests visible to the caller in ctx
func (r *MaintenanceRepository) List(ctx context.Context, filter MaintenanceFilter, page, pageSize int, sort SortConfig) ([]domain.MaintenanceRequest, int64, error) {
	var requests []domain.MaintenanceRequest
	var total int64

	query := ApplyMaintenanceScope(ctx, r.db.WithContext(ctx).Model(&domain.MaintenanceRequest{}))

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *filter.AssignedTo)
	}
	if filter.Priority != nil {
		query = query.Where("priority = ?", *filter.Priority)
	}
	if filter.PropertyID != "" {
		query = query.Where("property_id = ?", filter.PropertyID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize = NormalizePage(page, pageSize)
	err := query.
		Order(BuildOrderClause(sort, maintenanceSortFields, "created_at")).
		Order("id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&requests).Error

	return requests, total, err
}

// ClaimUnassigned atomically assigns the request to a staff member. It
// reports false when another claim won or the request is completed.
func (r *MaintenanceRepository) ClaimUnassigned(ctx context.Context, id, staffID, staffName string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&domain.MaintenanceRequest{}).
		Where("id = ? AND assigned_to = ? AND status <> ?", id, "", domain.StatusCompleted).
		Updates(map[string]interface{}{
			"assigned_to":      staffID,
			"assigned_to_name": staffName,
			"assigned_at":      at,
			"updated_at":       at,
			"version":          gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateVersioned writes every column of req, provided the stored row still
// carries expectedVersion. The caller sets req.Version to the new value.
func (r *MaintenanceRepository) UpdateVersioned(ctx context.Context, req *domain.MaintenanceRequest, expectedVersion int64) error {
	result := r.db.WithContext(ctx).
		Model(req).
		Where("version = ?", expectedVersion).
		Select("*").
		Omit("id", "created_at").
		Updates(req)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	return nil
}

// ListCompletedBetween returns a landlord's requests completed in [from, to)
func (r *MaintenanceRepository) ListCompletedBetween(ctx context.Context, landlordID string, from, to time.Time) ([]domain.MaintenanceRequest, error) {
	var requests []domain.MaintenanceRequest
	err := r.db.WithContext(ctx).
		Where("landlord_id = ? AND status = ?", landlordID, domain.StatusCompleted).
		Where("completed_at >= ? AND completed_at < ?", from, to).
		Order("completed_at ASC").
		Find(&requests).Error
	return requests, err
}

// SearchText is the SQL fallback for full-text search
func (r *MaintenanceRepository) SearchText(ctx context.Context, q string, limit int) ([]domain.MaintenanceRequest, error) {
	var requests []domain.MaintenanceRequest
	pattern := "%" + escapeLike(q) + "%"

	query := ApplyMaintenanceScope(ctx, r.db.WithContext(ctx).Model(&domain.MaintenanceRequest{}))
	err := query.
		Where("LOWER(issue) LIKE LOWER(?) ESCAPE '\\' OR LOWER(description) LIKE LOWER(?) ESCAPE '\\' OR LOWER(property) LIKE LOWER(?) ESCAPE '\\'",
			pattern, pattern, pattern).
		Order("created_at DESC").
		Limit(limit).
		Find(&requests).Error
	return requests, err
}

func escapeLike(s string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(s)
}
