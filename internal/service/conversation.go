package service

import (
	"sort"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/mapper"
)

// newerMessage orders messages by timestamp, then id
func newerMessage(a, b *domain.Message) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.After(b.Timestamp)
	}
	return a.ID > b.ID
}

// DeriveConversations builds the conversation list of userID from raw
// messages. Messages the user neither sent nor received are ignored. The
// result is sorted by last message time, newest first, and is identical for
// any input order.
func DeriveConversations(userID string, messages []domain.Message) []domain.ConversationDTO {
	latest := make(map[string]*domain.Message)
	unread := make(map[string]int)

	for i := range messages {
		msg := &messages[i]
		if msg.SenderID != userID && msg.RecipientID != userID {
			continue
		}
		if msg.RecipientID == userID && !msg.Read {
			unread[msg.ConversationID]++
		}
		if cur, ok := latest[msg.ConversationID]; !ok || newerMessage(msg, cur) {
			latest[msg.ConversationID] = msg
		}
	}

	conversations := make([]domain.ConversationDTO, 0, len(latest))
	lastTimes := make(map[string]int64, len(latest))
	for id, msg := range latest {
		conv := domain.ConversationDTO{
			ConversationID:  id,
			LastMessage:     msg.Text,
			LastMessageTime: mapper.ToMessageDTO(msg).Timestamp,
			LastSenderID:    msg.SenderID,
			UnreadCount:     unread[id],
			PropertyName:    msg.PropertyName,
			Unit:            msg.Unit,
		}
		if msg.SenderID == userID {
			conv.OtherUserID = msg.RecipientID
			conv.OtherUserName = msg.RecipientName
			conv.OtherUserRole = string(msg.RecipientRole)
		} else {
			conv.OtherUserID = msg.SenderID
			conv.OtherUserName = msg.SenderName
			conv.OtherUserRole = string(msg.SenderRole)
		}
		conv.Participants = []string{userID, conv.OtherUserID}
		sort.Strings(conv.Participants)

		lastTimes[id] = msg.Timestamp.UnixNano()
		conversations = append(conversations, conv)
	}

	sort.Slice(conversations, func(i, j int) bool {
		ti, tj := lastTimes[conversations[i].ConversationID], lastTimes[conversations[j].ConversationID]
		if ti != tj {
			return ti > tj
		}
		return conversations[i].ConversationID < conversations[j].ConversationID
	})
	return conversations
}
