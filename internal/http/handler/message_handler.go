package handler

import (
	"net/http"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// MessageHandler handles HTTP requests for conversations and messages
type MessageHandler struct {
	messageService *service.MessageService
	logger         *zap.Logger
}

// NewMessageHandler creates a new MessageHandler instance
func NewMessageHandler(messageService *service.MessageService, logger *zap.Logger) *MessageHandler {
	return &MessageHandler{
		messageService: messageService,
		logger:         logger,
	}
}

// ListConversations godoc
// @Summary List conversations
// @Description Conversations the caller takes part in, most recent first
// @Tags Conversations
// @Produce json
// @Success 200 {array} domain.ConversationDTO
// @Failure 401 {object} domain.APIError
// @Security BearerAuth
// @Router /conversations [get]
func (h *MessageHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	conversations, err := h.messageService.ListConversations(r.Context())
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to list conversations")
		return
	}
	respondJSON(w, http.StatusOK, conversations)
}

// Send godoc
// @Summary Send a message
// @Tags Conversations
// @Accept json
// @Produce json
// @Param request body domain.SendMessageRequest true "Message"
// @Success 201 {object} domain.MessageDTO
// @Failure 400 {object} domain.APIError
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /conversations/messages [post]
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req domain.SendMessageRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	msg, err := h.messageService.Send(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to send message")
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

// Transcript godoc
// @Summary Get conversation transcript
// @Description Messages of the conversation in chronological order
// @Tags Conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {array} domain.MessageDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /conversations/{id}/messages [get]
func (h *MessageHandler) Transcript(w http.ResponseWriter, r *http.Request) {
	messages, err := h.messageService.Transcript(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to load conversation")
		return
	}
	respondJSON(w, http.StatusOK, messages)
}

// Open godoc
// @Summary Open a conversation
// @Description Marks the caller's unread messages read, selects the conversation and returns the transcript
// @Tags Conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} domain.OpenConversationDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /conversations/{id}/open [post]
func (h *MessageHandler) Open(w http.ResponseWriter, r *http.Request) {
	result, err := h.messageService.OpenConversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to open conversation")
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Delete godoc
// @Summary Delete a conversation
// @Description Removes every message and the conversation record. Deleting twice succeeds.
// @Tags Conversations
// @Produce json
// @Param id path string true "Conversation ID"
// @Success 200 {object} domain.DeleteConversationDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Security ApiKeyAuth
// @Router /conversations/{id} [delete]
func (h *MessageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	result, err := h.messageService.DeleteConversation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, h.logger, err, "Failed to delete conversation")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
