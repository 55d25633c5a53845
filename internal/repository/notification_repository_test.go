package repository_test

import (
	"context"
	"testing"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/repository"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepository_ListAndRead(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := repository.NewNotificationRepository(db)
	ctx := context.Background()

	for _, typ := range []domain.NotificationType{
		domain.NotificationTypeMaintenanceAssigned,
		domain.NotificationTypeNewMessage,
		domain.NotificationTypeNewMessage,
	} {
		require.NoError(t, repo.Create(ctx, &domain.Notification{UserID: "landlord-1", Type: string(typ), Title: "t", Message: "m"}))
	}
	require.NoError(t, repo.Create(ctx, &domain.Notification{UserID: "someone-else", Type: string(domain.NotificationTypeNewMessage), Title: "t", Message: "m"}))

	items, total, err := repo.ListByUser(ctx, "landlord-1", 1, 10, false, string(domain.NotificationTypeNewMessage))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)

	require.NoError(t, repo.MarkAsRead(ctx, items[0].ID))
	count, err := repo.CountUnread(ctx, "landlord-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	marked, err := repo.MarkAllAsRead(ctx, "landlord-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	count, err = repo.CountUnread(ctx, "someone-else")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
