package service_test

import (
	"context"
	"testing"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/auth"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/realtime"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/repository"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/search"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/service"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/storage"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/testutil"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	landlordID = "landlord-1"
	tenantID   = "tenant-1"
	staffID    = "staff-1"
)

type fixture struct {
	db            *gorm.DB
	broker        *realtime.LocalBroker
	notifications *service.NotificationService
	budget        *service.BudgetService
	maintenance   *service.MaintenanceService
	messages      *service.MessageService
	dashboard     *service.DashboardService
	team          *service.TeamService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := testutil.NewTestDB(t)
	logger := zap.NewNop()
	broker := realtime.NewLocalBroker(logger)
	t.Cleanup(func() { _ = broker.Close() })

	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	maintenanceRepo := repository.NewMaintenanceRepository(db)
	dashboardRepo := repository.NewDashboardStateRepository(db)
	teamRepo := repository.NewTeamMemberRepository(db)

	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), dashboardRepo, broker, logger)
	budget := service.NewBudgetService(maintenanceRepo, teamRepo, repository.NewLandlordSettingsRepository(db), 50000, logger)

	return &fixture{
		db:            db,
		broker:        broker,
		notifications: notifications,
		budget:        budget,
		maintenance: service.NewMaintenanceService(
			db,
			maintenanceRepo,
			repository.NewQuoteRepository(db),
			repository.NewMaintenanceEventRepository(db),
			notifications,
			budget,
			broker,
			search.Noop{},
			store,
			logger,
		),
		messages: service.NewMessageService(
			db,
			repository.NewMessageRepository(db),
			repository.NewConversationRepository(db),
			dashboardRepo,
			notifications,
			broker,
			logger,
		),
		dashboard: service.NewDashboardService(dashboardRepo, logger),
		team:      service.NewTeamService(teamRepo, logger),
	}
}

func asUser(userID string, role domain.UserRole, landlord string) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:     userID,
		Name:       "Name of " + userID,
		Role:       role,
		LandlordID: landlord,
	})
}

func asLandlord() context.Context { return asUser(landlordID, domain.RoleLandlord, "") }

func asTenant() context.Context { return asUser(tenantID, domain.RoleTenant, "") }

func asStaff(id string) context.Context {
	return asUser(id, domain.RoleMaintenanceStaff, landlordID)
}

func (f *fixture) notificationsFor(t *testing.T, userID string) []domain.Notification {
	t.Helper()
	var items []domain.Notification
	require.NoError(t, f.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&items).Error)
	return items
}

func (f *fixture) countEvents(t *testing.T, requestID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&domain.MaintenanceEvent{}).Where("request_id = ?", requestID).Count(&n).Error)
	return n
}
