// Package testutil provides an in-memory database and fixtures for tests.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/database"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory sqlite database with the full schema.
// A single connection keeps every query on the same in-memory database.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.AutoMigrate(db))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// CreateMaintenanceRequest inserts a pending request for the landlord
func CreateMaintenanceRequest(t *testing.T, db *gorm.DB, landlordID, tenantID string) *domain.MaintenanceRequest {
	t.Helper()

	req := &domain.MaintenanceRequest{
		LandlordID: landlordID,
		Property:   "Sunrise Apartments",
		Unit:       "A4",
		TenantID:   tenantID,
		Tenant:     "Tenant " + tenantID,
		Issue:      "Leaking kitchen sink",
		Priority:   domain.PriorityMedium,
		Status:     domain.StatusPending,
		Version:    1,
	}
	require.NoError(t, db.Create(req).Error)
	return req
}

// CreateCompletedRequest inserts a request completed at the given time
func CreateCompletedRequest(t *testing.T, db *gorm.DB, landlordID, staffID string, actual float64, completedAt time.Time) *domain.MaintenanceRequest {
	t.Helper()

	req := &domain.MaintenanceRequest{
		LandlordID:      landlordID,
		Property:        "Sunrise Apartments",
		Unit:            "B2",
		TenantID:        "tenant-" + uuid.NewString()[:8],
		Issue:           "Broken window",
		Priority:        domain.PriorityHigh,
		Status:          domain.StatusCompleted,
		AssignedTo:      staffID,
		CompletedBy:     staffID,
		CompletedByName: "Staff " + staffID,
		ActualCost:      decimal.NewFromFloat(actual),
		CompletedAt:     &completedAt,
		Version:         4,
	}
	require.NoError(t, db.Create(req).Error)
	return req
}

// CreateMessage inserts a message between two users at the given time
func CreateMessage(t *testing.T, db *gorm.DB, senderID, recipientID, text string, at time.Time) *domain.Message {
	t.Helper()

	msg := &domain.Message{
		ConversationID: domain.ConversationIDFor(senderID, recipientID),
		SenderID:       senderID,
		SenderName:     "User " + senderID,
		RecipientID:    recipientID,
		RecipientName:  "User " + recipientID,
		Text:           text,
		Timestamp:      at.UTC(),
		Participants:   []string{senderID, recipientID},
	}
	require.NoError(t, db.Create(msg).Error)
	return msg
}
