package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/auth"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/repository"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ctxFor(userID string, role domain.UserRole, landlordID string) context.Context {
	return auth.WithUserContext(context.Background(), &auth.UserContext{
		UserID:     userID,
		Role:       role,
		LandlordID: landlordID,
	})
}

func TestMaintenanceRepository_ClaimUnassigned(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewMaintenanceRepository(db)
	ctx := context.Background()

	req := testutil.CreateMaintenanceRequest(t, db, "landlord-1", "tenant-1")
	now := time.Now().UTC()

	claimed, err := repo.ClaimUnassigned(ctx, req.ID, "staff-1", "Otieno", now)
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.ClaimUnassigned(ctx, req.ID, "staff-2", "Njeri", now)
	require.NoError(t, err)
	assert.False(t, claimed)

	stored, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "staff-1", stored.AssignedTo)
	assert.Equal(t, "Otieno", stored.AssignedToName)
	assert.Equal(t, int64(2), stored.Version)
	require.NotNil(t, stored.AssignedAt)
}

func TestMaintenanceRepository_ClaimCompletedRequest(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewMaintenanceRepository(db)

	req := testutil.CreateMaintenanceRequest(t, db, "landlord-1", "tenant-1")
	require.NoError(t, db.Model(req).Update("status", domain.StatusCompleted).Error)

	claimed, err := repo.ClaimUnassigned(context.Background(), req.ID, "staff-1", "Otieno", time.Now().UTC())
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestMaintenanceRepository_UpdateVersioned(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewMaintenanceRepository(db)
	ctx := context.Background()

	req := testutil.CreateMaintenanceRequest(t, db, "landlord-1", "tenant-1")

	req.Status = domain.StatusInProgress
	req.Version = 2
	require.NoError(t, repo.UpdateVersioned(ctx, req, 1))

	stale := *req
	stale.Status = domain.StatusCompleted
	stale.Version = 2
	err := repo.UpdateVersioned(ctx, &stale, 1)
	assert.ErrorIs(t, err, repository.ErrVersionConflict)

	stored, err := repo.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, stored.Status)
	assert.Equal(t, int64(2), stored.Version)
}

func TestMaintenanceRepository_ListScope(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewMaintenanceRepository(db)

	testutil.CreateMaintenanceRequest(t, db, "landlord-1", "tenant-1")
	testutil.CreateMaintenanceRequest(t, db, "landlord-1", "tenant-2")
	testutil.CreateMaintenanceRequest(t, db, "landlord-2", "tenant-3")

	tests := []struct {
		name string
		ctx  context.Context
		want int64
	}{
		{"landlord sees own", ctxFor("landlord-1", domain.RoleLandlord, ""), 2},
		{"staff sees employer", ctxFor("staff-9", domain.RoleMaintenanceStaff, "landlord-2"), 1},
		{"tenant sees filed", ctxFor("tenant-2", domain.RoleTenant, ""), 1},
		{"system sees all", ctxFor(auth.SystemUserID, domain.RoleSystem, ""), 3},
		{"anonymous sees nothing", context.Background(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, total, err := repo.List(tt.ctx, repository.MaintenanceFilter{}, 1, 20, repository.DefaultSortConfig())
			require.NoError(t, err)
			assert.Equal(t, tt.want, total)
			assert.Len(t, items, int(tt.want))
		})
	}
}

func TestMaintenanceRepository_ListUnassignedFilter(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewMaintenanceRepository(db)

	first := testutil.CreateMaintenanceRequest(t, db, "landlord-1", "tenant-1")
	testutil.CreateMaintenanceRequest(t, db, "landlord-1", "tenant-2")
	_, err := repo.ClaimUnassigned(context.Background(), first.ID, "staff-1", "Otieno", time.Now().UTC())
	require.NoError(t, err)

	ctx := ctxFor("staff-1", domain.RoleMaintenanceStaff, "landlord-1")
	empty := ""
	items, total, err := repo.List(ctx, repository.MaintenanceFilter{AssignedTo: &empty}, 1, 20, repository.DefaultSortConfig())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.NotEqual(t, first.ID, items[0].ID)

	me := "staff-1"
	items, _, err = repo.List(ctx, repository.MaintenanceFilter{AssignedTo: &me}, 1, 20, repository.DefaultSortConfig())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, first.ID, items[0].ID)
}

func TestMaintenanceRepository_ListCompletedBetween(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewMaintenanceRepository(db)

	monthStart := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	testutil.CreateCompletedRequest(t, db, "landlord-1", "staff-1", 1000, monthStart.Add(2*time.Hour))
	testutil.CreateCompletedRequest(t, db, "landlord-1", "staff-1", 500, monthStart.Add(-time.Hour))
	testutil.CreateCompletedRequest(t, db, "landlord-2", "staff-2", 700, monthStart.Add(3*time.Hour))

	items, err := repo.ListCompletedBetween(context.Background(), "landlord-1", monthStart, monthStart.AddDate(0, 1, 0))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "1000", items[0].ActualCost.String())
}

func TestMaintenanceRepository_SearchText(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewMaintenanceRepository(db)

	req := testutil.CreateMaintenanceRequest(t, db, "landlord-1", "tenant-1")
	other := testutil.CreateMaintenanceRequest(t, db, "landlord-1", "tenant-2")
	require.NoError(t, db.Model(other).Update("issue", "Broken door lock").Error)

	ctx := ctxFor("landlord-1", domain.RoleLandlord, "")
	items, err := repo.SearchText(ctx, "sink", 10)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, req.ID, items[0].ID)

	items, err = repo.SearchText(ctx, "100%", 10)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestMaintenanceRepository_GetByIDs(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewMaintenanceRepository(db)

	a := testutil.CreateMaintenanceRequest(t, db, "landlord-1", "tenant-1")
	b := testutil.CreateMaintenanceRequest(t, db, "landlord-1", "tenant-2")
	foreign := testutil.CreateMaintenanceRequest(t, db, "landlord-2", "tenant-3")

	ctx := ctxFor("landlord-1", domain.RoleLandlord, "")
	items, err := repo.GetByIDs(ctx, []string{b.ID, "missing", foreign.ID, a.ID})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, b.ID, items[0].ID)
	assert.Equal(t, a.ID, items[1].ID)
}
