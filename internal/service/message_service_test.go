package service_test

import (
	"testing"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/service"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageService_Send(t *testing.T) {
	f := newFixture(t)

	msg, err := f.messages.Send(asTenant(), &domain.SendMessageRequest{
		RecipientID:   landlordID,
		RecipientName: "Mama Wanjiru",
		RecipientRole: string(domain.RoleLandlord),
		Text:          "  The sink is leaking again  ",
		PropertyName:  "Sunrise Apartments",
		Unit:          "A4",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ConversationIDFor(tenantID, landlordID), msg.ConversationID)
	assert.Equal(t, "The sink is leaking again", msg.Text)
	assert.False(t, msg.Read)

	var conv domain.Conversation
	require.NoError(t, f.db.First(&conv, "id = ?", msg.ConversationID).Error)
	assert.Equal(t, "The sink is leaking again", conv.LastMessage)
	assert.Equal(t, tenantID, conv.LastSenderID)

	notes := f.notificationsFor(t, landlordID)
	require.Len(t, notes, 1)
	assert.Equal(t, string(domain.NotificationTypeNewMessage), notes[0].Type)
	require.NotNil(t, notes[0].ConversationID)
	assert.Equal(t, msg.ConversationID, *notes[0].ConversationID)
}

func TestMessageService_SendValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.messages.Send(asTenant(), &domain.SendMessageRequest{RecipientID: landlordID, Text: "   "})
	assert.ErrorIs(t, err, service.ErrInvalidInput)

	_, err = f.messages.Send(asTenant(), &domain.SendMessageRequest{RecipientID: tenantID, Text: "hello me"})
	assert.ErrorIs(t, err, service.ErrInvalidInput)
}

func TestMessageService_ListConversations(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	testutil.CreateMessage(t, f.db, "A", "B", "first", base)
	testutil.CreateMessage(t, f.db, "B", "A", "second", base.Add(time.Minute))
	last := testutil.CreateMessage(t, f.db, "A", "B", "third", base.Add(2*time.Minute))

	convs, err := f.messages.ListConversations(asUser("A", domain.RoleTenant, ""))
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, last.ConversationID, convs[0].ConversationID)
	assert.Equal(t, "third", convs[0].LastMessage)
	assert.Equal(t, "B", convs[0].OtherUserID)
	assert.Equal(t, 1, convs[0].UnreadCount)
}

func TestMessageService_OpenConversationMarksOnlyMine(t *testing.T) {
	f := newFixture(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		testutil.CreateMessage(t, f.db, "B", "A", "to A", base.Add(time.Duration(i)*time.Minute))
	}
	mine := testutil.CreateMessage(t, f.db, "A", "B", "to B", base.Add(10*time.Minute))
	elsewhere := testutil.CreateMessage(t, f.db, "C", "A", "other thread", base)

	opened, err := f.messages.OpenConversation(asUser("A", domain.RoleTenant, ""), domain.ConversationIDFor("A", "B"))
	require.NoError(t, err)
	assert.Equal(t, int64(3), opened.MarkedRead)
	assert.Len(t, opened.Messages, 4)
	assert.Equal(t, "to B", opened.Messages[3].Text)

	var reloaded domain.Message
	require.NoError(t, f.db.First(&reloaded, "id = ?", mine.ID).Error)
	assert.False(t, reloaded.Read)
	require.NoError(t, f.db.First(&reloaded, "id = ?", elsewhere.ID).Error)
	assert.False(t, reloaded.Read)

	state, err := f.dashboard.GetState(asUser("A", domain.RoleTenant, ""))
	require.NoError(t, err)
	assert.Equal(t, string(domain.ViewMessages), state.ActiveView)
	require.NotNil(t, state.SelectedConversationID)
	assert.Equal(t, domain.ConversationIDFor("A", "B"), *state.SelectedConversationID)

	again, err := f.messages.OpenConversation(asUser("A", domain.RoleTenant, ""), domain.ConversationIDFor("A", "B"))
	require.NoError(t, err)
	assert.Zero(t, again.MarkedRead)
}

func TestMessageService_TranscriptRequiresParticipant(t *testing.T) {
	f := newFixture(t)
	testutil.CreateMessage(t, f.db, "A", "B", "private", time.Now())

	_, err := f.messages.Transcript(asUser("C", domain.RoleTenant, ""), domain.ConversationIDFor("A", "B"))
	assert.ErrorIs(t, err, service.ErrNotParticipant)

	_, err = f.messages.OpenConversation(asUser("C", domain.RoleTenant, ""), domain.ConversationIDFor("A", "B"))
	assert.ErrorIs(t, err, service.ErrNotParticipant)
}

func TestMessageService_DeleteConversation(t *testing.T) {
	f := newFixture(t)
	ctxA := asUser("A", domain.RoleTenant, "")
	ctxB := asUser("B", domain.RoleLandlord, "")

	_, err := f.messages.Send(ctxA, &domain.SendMessageRequest{RecipientID: "B", Text: "hello"})
	require.NoError(t, err)
	_, err = f.messages.Send(ctxB, &domain.SendMessageRequest{RecipientID: "A", Text: "hi"})
	require.NoError(t, err)
	_, err = f.messages.Send(ctxA, &domain.SendMessageRequest{RecipientID: "C", Text: "unrelated"})
	require.NoError(t, err)

	convID := domain.ConversationIDFor("A", "B")
	_, err = f.messages.OpenConversation(ctxB, convID)
	require.NoError(t, err)

	result, err := f.messages.DeleteConversation(ctxA, convID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.MessagesDeleted)
	assert.Equal(t, int64(1), result.ConversationsDeleted)

	var remaining int64
	require.NoError(t, f.db.Model(&domain.Message{}).Where("conversation_id = ?", convID).Count(&remaining).Error)
	assert.Zero(t, remaining)
	require.NoError(t, f.db.Model(&domain.Conversation{}).Where("id = ?", convID).Count(&remaining).Error)
	assert.Zero(t, remaining)
	require.NoError(t, f.db.Model(&domain.Message{}).Count(&remaining).Error)
	assert.Equal(t, int64(1), remaining)

	state, err := f.dashboard.GetState(ctxB)
	require.NoError(t, err)
	assert.Nil(t, state.SelectedConversationID)

	again, err := f.messages.DeleteConversation(ctxA, convID)
	require.NoError(t, err)
	assert.Zero(t, again.MessagesDeleted)
	assert.Zero(t, again.ConversationsDeleted)

	_, err = f.messages.DeleteConversation(asUser("C", domain.RoleTenant, ""), convID)
	assert.ErrorIs(t, err, service.ErrNotParticipant)
}

func TestMessageService_UnderscoreIDsDoNotShareThreads(t *testing.T) {
	f := newFixture(t)
	owner := asUser("a_b", domain.RoleTenant, "")
	outsider := asUser("a", domain.RoleTenant, "")

	msg, err := f.messages.Send(owner, &domain.SendMessageRequest{RecipientID: "c", Text: "rent receipt"})
	require.NoError(t, err)
	require.Equal(t, "a_b_c", msg.ConversationID)

	_, err = f.messages.Transcript(outsider, msg.ConversationID)
	assert.ErrorIs(t, err, service.ErrNotParticipant)

	_, err = f.messages.OpenConversation(outsider, msg.ConversationID)
	assert.ErrorIs(t, err, service.ErrNotParticipant)

	_, err = f.messages.DeleteConversation(outsider, msg.ConversationID)
	assert.ErrorIs(t, err, service.ErrNotParticipant)

	// "a" -> "b_c" maps onto the same id and must not land in the thread
	_, err = f.messages.Send(outsider, &domain.SendMessageRequest{RecipientID: "b_c", Text: "hello"})
	assert.ErrorIs(t, err, service.ErrConflict)

	transcript, err := f.messages.Transcript(asUser("c", domain.RoleLandlord, ""), msg.ConversationID)
	require.NoError(t, err)
	require.Len(t, transcript, 1)
	assert.Equal(t, "rent receipt", transcript[0].Text)
}

func TestMessageService_MembershipFromMessagesWithoutSummaryRow(t *testing.T) {
	f := newFixture(t)
	testutil.CreateMessage(t, f.db, "a_b", "c", "stored without a summary", time.Now())

	_, err := f.messages.Transcript(asUser("a", domain.RoleTenant, ""), "a_b_c")
	assert.ErrorIs(t, err, service.ErrNotParticipant)

	transcript, err := f.messages.Transcript(asUser("a_b", domain.RoleTenant, ""), "a_b_c")
	require.NoError(t, err)
	assert.Len(t, transcript, 1)
}
