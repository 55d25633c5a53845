package mirror

import (
	"context"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSink keeps the mirror in the legacy_maintenance table of the main database
type GormSink struct {
	db *gorm.DB
}

func NewGormSink(db *gorm.DB) *GormSink {
	return &GormSink{db: db}
}

func (s *GormSink) Name() string { return "gorm" }

// Apply upserts rec; the update branch only fires for a newer version
func (s *GormSink) Apply(ctx context.Context, rec domain.LegacyMaintenance) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"request_id", "landlord_id", "tenant_id", "issue", "property", "unit",
				"priority", "status", "assigned_to_name", "estimated_cost", "actual_cost",
				"version", "started_at", "completed_at", "updated_at",
			}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Expr{SQL: "legacy_maintenance.version < excluded.version"},
			}},
		}).
		Create(&rec)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormSink) Close(context.Context) error { return nil }
