package domain_test

import (
	"testing"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMaintenanceStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected domain.MaintenanceStatus
	}{
		{"pending", domain.StatusPending},
		{"in-progress", domain.StatusInProgress},
		{"inprogress", domain.StatusInProgress},
		{"In_Progress", domain.StatusInProgress},
		{"estimated", domain.StatusEstimated},
		{"quotes_submitted", domain.StatusQuotesSubmitted},
		{"approved", domain.StatusApproved},
		{" completed ", domain.StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			status, err := domain.ParseMaintenanceStatus(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, status)
		})
	}

	t.Run("unknown status", func(t *testing.T) {
		_, err := domain.ParseMaintenanceStatus("done")
		assert.Error(t, err)
	})
}

func TestMaintenanceStatus_CanTransitionTo(t *testing.T) {
	assert.True(t, domain.StatusPending.CanTransitionTo(domain.StatusInProgress))
	assert.True(t, domain.StatusInProgress.CanTransitionTo(domain.StatusCompleted))
	assert.True(t, domain.StatusApproved.CanTransitionTo(domain.StatusInProgress))

	assert.False(t, domain.StatusPending.CanTransitionTo(domain.StatusCompleted))
	assert.False(t, domain.StatusCompleted.CanTransitionTo(domain.StatusInProgress))
	assert.False(t, domain.StatusEstimated.CanTransitionTo(domain.StatusCompleted))
}

func TestConversationIDFor(t *testing.T) {
	assert.Equal(t, "alice_bob", domain.ConversationIDFor("alice", "bob"))
	assert.Equal(t, "alice_bob", domain.ConversationIDFor("bob", "alice"))
}

func TestIsConversationParticipant(t *testing.T) {
	id := domain.ConversationIDFor("tenant_7", "landlord-2")

	assert.True(t, domain.IsConversationParticipant(id, "tenant_7"))
	assert.True(t, domain.IsConversationParticipant(id, "landlord-2"))
	assert.False(t, domain.IsConversationParticipant(id, "tenant"))
	assert.False(t, domain.IsConversationParticipant(id, "7"))
	assert.False(t, domain.IsConversationParticipant(id, ""))
}

func TestMaintenanceRequest_ToLegacy(t *testing.T) {
	created := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	req := &domain.MaintenanceRequest{
		BaseModel: domain.BaseModel{ID: "req-1", CreatedAt: created, UpdatedAt: created},
		TenantID:  "tenant-1",
		Issue:     "Leaking tap",
		Status:    domain.StatusInProgress,
		Version:   3,
	}

	legacy := req.ToLegacy()

	assert.Equal(t, "tenant-1|Leaking tap|2026-03-04T10:00:00Z", legacy.Key)
	assert.Equal(t, "req-1", legacy.RequestID)
	assert.Equal(t, "in-progress", legacy.Status)
	assert.Equal(t, int64(3), legacy.Version)
}
