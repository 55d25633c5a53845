package service_test

import (
	"testing"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func msg(id, from, to, text string, at time.Time, read bool) domain.Message {
	m := domain.Message{
		ConversationID: domain.ConversationIDFor(from, to),
		SenderID:       from,
		SenderName:     "User " + from,
		RecipientID:    to,
		RecipientName:  "User " + to,
		Text:           text,
		Timestamp:      at,
		Read:           read,
	}
	m.ID = id
	return m
}

func TestDeriveConversations_LatestMessageWins(t *testing.T) {
	t1 := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	messages := []domain.Message{
		msg("m3", "A", "B", "third", t1.Add(2*time.Hour), false),
		msg("m1", "A", "B", "first", t1, true),
		msg("m2", "B", "A", "second", t1.Add(time.Hour), false),
	}

	convs := service.DeriveConversations("A", messages)
	require.Len(t, convs, 1)
	assert.Equal(t, "A_B", convs[0].ConversationID)
	assert.Equal(t, "third", convs[0].LastMessage)
	assert.Equal(t, "A", convs[0].LastSenderID)
	assert.Equal(t, "B", convs[0].OtherUserID)
	assert.Equal(t, "User B", convs[0].OtherUserName)
	assert.Equal(t, 1, convs[0].UnreadCount)
	assert.Equal(t, []string{"A", "B"}, convs[0].Participants)
}

func TestDeriveConversations_OrderAndFiltering(t *testing.T) {
	t1 := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	messages := []domain.Message{
		msg("m1", "A", "B", "old thread", t1, false),
		msg("m2", "C", "A", "new thread", t1.Add(time.Hour), false),
		msg("m3", "C", "A", "newer in same thread", t1.Add(2*time.Hour), false),
		msg("m4", "B", "C", "not mine", t1.Add(3*time.Hour), false),
		msg("m5", "D", "A", "same time as m1", t1, false),
	}

	convs := service.DeriveConversations("A", messages)
	require.Len(t, convs, 3)
	assert.Equal(t, "A_C", convs[0].ConversationID)
	assert.Equal(t, 2, convs[0].UnreadCount)
	assert.Equal(t, "A_B", convs[1].ConversationID)
	assert.Zero(t, convs[1].UnreadCount)
	assert.Equal(t, "A_D", convs[2].ConversationID)
}

func TestDeriveConversations_Deterministic(t *testing.T) {
	at := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	a := []domain.Message{
		msg("m1", "A", "B", "x", at, false),
		msg("m2", "B", "A", "y", at, false),
	}
	b := []domain.Message{a[1], a[0]}

	assert.Equal(t, service.DeriveConversations("A", a), service.DeriveConversations("A", b))
	assert.Equal(t, "y", service.DeriveConversations("A", a)[0].LastMessage)
}

func TestDeriveConversations_Empty(t *testing.T) {
	assert.Empty(t, service.DeriveConversations("A", nil))
}
