package service_test

import (
	"context"
	"testing"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationService_DispatchValidation(t *testing.T) {
	f := newFixture(t)

	err := f.notifications.Dispatch(context.Background(), &domain.Notification{Type: string(domain.NotificationTypeNewMessage), Title: "t", Message: "m"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	err = f.notifications.Dispatch(context.Background(), &domain.Notification{UserID: "u1", Type: "party_invite", Title: "t", Message: "m"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestNavigationTargetFor(t *testing.T) {
	convID := "A_B"
	reqID := "req-1"

	target := service.NavigationTargetFor(&domain.Notification{Type: string(domain.NotificationTypeNewMessage), ConversationID: &convID})
	assert.Equal(t, domain.NavigationTarget{View: domain.ViewMessages, ConversationID: convID}, target)

	for _, typ := range domain.AllNotificationTypes {
		if typ == domain.NotificationTypeNewMessage {
			continue
		}
		target := service.NavigationTargetFor(&domain.Notification{Type: string(typ), MaintenanceRequestID: &reqID})
		assert.Equal(t, domain.ViewMaintenance, target.View, string(typ))
		assert.Equal(t, reqID, target.RequestID)
	}
}

func TestNotificationService_OpenAndRead(t *testing.T) {
	f := newFixture(t)
	ctx := asLandlord()

	req := createRequest(t, f)
	notes := f.notificationsFor(t, landlordID)
	require.Len(t, notes, 1)

	count, err := f.notifications.GetUnreadCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count.Count)

	_, err = f.notifications.Open(asTenant(), notes[0].ID)
	assert.ErrorIs(t, err, service.ErrNotificationNotOwned)

	opened, err := f.notifications.Open(ctx, notes[0].ID)
	require.NoError(t, err)
	assert.True(t, opened.Notification.Read)
	assert.Equal(t, domain.ViewMaintenance, opened.Target.View)
	assert.Equal(t, req.ID, opened.Target.RequestID)

	state, err := f.dashboard.GetState(ctx)
	require.NoError(t, err)
	assert.Equal(t, string(domain.ViewMaintenance), state.ActiveView)
	require.NotNil(t, state.SelectedRequestID)
	assert.Equal(t, req.ID, *state.SelectedRequestID)

	// opening again is a no-op on the read flag
	_, err = f.notifications.Open(ctx, notes[0].ID)
	require.NoError(t, err)

	count, err = f.notifications.GetUnreadCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, count.Count)

	_, err = f.notifications.Open(ctx, "missing")
	assert.ErrorIs(t, err, service.ErrNotificationNotFound)
}

func TestNotificationService_ListAndMarkAll(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		_, err := f.messages.Send(asTenant(), &domain.SendMessageRequest{RecipientID: landlordID, Text: "ping"})
		require.NoError(t, err)
	}

	page, err := f.notifications.GetForCurrentUser(asLandlord(), 1, 2, true, string(domain.NotificationTypeNewMessage))
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.TotalPages)

	_, err = f.notifications.GetForCurrentUser(asLandlord(), 1, 10, false, "bogus")
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	marked, err := f.notifications.MarkAllAsReadForUser(asLandlord())
	require.NoError(t, err)
	assert.Equal(t, int64(3), marked)
}
