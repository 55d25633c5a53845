package mapper

import (
	"fmt"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
)

const isoLayout = "2006-01-02T15:04:05Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

// ToCostLineItemDTOs converts a stored cost breakdown
func ToCostLineItemDTOs(items []domain.CostLineItem) []domain.CostLineItemDTO {
	dtos := make([]domain.CostLineItemDTO, len(items))
	for i, item := range items {
		dtos[i] = domain.CostLineItemDTO{
			Item:     item.Item,
			Quantity: item.Quantity.InexactFloat64(),
			UnitCost: item.UnitCost.InexactFloat64(),
			Total:    item.Total.InexactFloat64(),
		}
	}
	return dtos
}

// ToMaintenanceRequestDTO converts a maintenance request
func ToMaintenanceRequestDTO(req *domain.MaintenanceRequest) domain.MaintenanceRequestDTO {
	return domain.MaintenanceRequestDTO{
		ID:                  req.ID,
		LandlordID:          req.LandlordID,
		PropertyID:          req.PropertyID,
		Property:            req.Property,
		Unit:                req.Unit,
		TenantID:            req.TenantID,
		Tenant:              req.Tenant,
		Issue:               req.Issue,
		Description:         req.Description,
		Priority:            string(req.Priority),
		Status:              string(req.Status),
		AssignedTo:          req.AssignedTo,
		AssignedToName:      req.AssignedToName,
		EstimatedCost:       req.EstimatedCost.InexactFloat64(),
		EstimatedDuration:   req.EstimatedDuration,
		CostBreakdown:       ToCostLineItemDTOs(req.CostBreakdown),
		RequiresApproval:    req.RequiresApproval,
		QuotesSubmitted:     req.QuotesSubmitted,
		ActualCost:          req.ActualCost.InexactFloat64(),
		ActualCostBreakdown: ToCostLineItemDTOs(req.ActualCostBreakdown),
		ActualDuration:      req.ActualDuration,
		CompletionNotes:     req.CompletionNotes,
		CompletedBy:         req.CompletedBy,
		CompletedByName:     req.CompletedByName,
		Version:             req.Version,
		CreatedAt:           formatTime(req.CreatedAt),
		UpdatedAt:           formatTime(req.UpdatedAt),
		AssignedAt:          formatTimePtr(req.AssignedAt),
		StartedAt:           formatTimePtr(req.StartedAt),
		EstimatedAt:         formatTimePtr(req.EstimatedAt),
		ApprovedAt:          formatTimePtr(req.ApprovedAt),
		CompletedAt:         formatTimePtr(req.CompletedAt),
	}
}

// ToQuoteDTO converts a vendor quote
func ToQuoteDTO(quote *domain.Quote) domain.QuoteDTO {
	items := make([]domain.QuoteItemDTO, len(quote.ItemizedCosts))
	for i, item := range quote.ItemizedCosts {
		items[i] = domain.QuoteItemDTO{Item: item.Item, Cost: item.Cost.InexactFloat64()}
	}
	return domain.QuoteDTO{
		ID:                   quote.ID,
		MaintenanceRequestID: quote.MaintenanceRequestID,
		VendorName:           quote.VendorName,
		VendorContact:        quote.VendorContact,
		VendorEmail:          quote.VendorEmail,
		Amount:               quote.Amount.InexactFloat64(),
		ItemizedCosts:        items,
		QuoteNumber:          quote.QuoteNumber,
		ValidUntil:           formatTimePtr(quote.ValidUntil),
		SubmittedBy:          quote.SubmittedBy,
		SubmittedByName:      quote.SubmittedByName,
		Status:               string(quote.Status),
		HasDocument:          quote.DocumentPath != "",
		CreatedAt:            formatTime(quote.CreatedAt),
	}
}

// ToMessageDTO converts a message
func ToMessageDTO(msg *domain.Message) domain.MessageDTO {
	return domain.MessageDTO{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		SenderName:     msg.SenderName,
		SenderRole:     string(msg.SenderRole),
		RecipientID:    msg.RecipientID,
		RecipientName:  msg.RecipientName,
		RecipientRole:  string(msg.RecipientRole),
		Text:           msg.Text,
		Timestamp:      formatTime(msg.Timestamp),
		Read:           msg.Read,
		PropertyName:   msg.PropertyName,
		Unit:           msg.Unit,
	}
}

// ToMessageDTOs converts a transcript
func ToMessageDTOs(msgs []domain.Message) []domain.MessageDTO {
	dtos := make([]domain.MessageDTO, len(msgs))
	for i := range msgs {
		dtos[i] = ToMessageDTO(&msgs[i])
	}
	return dtos
}

// ToNotificationDTO converts a notification
func ToNotificationDTO(notification *domain.Notification) domain.NotificationDTO {
	return domain.NotificationDTO{
		ID:                   notification.ID,
		Type:                 notification.Type,
		Title:                notification.Title,
		Message:              notification.Message,
		Read:                 notification.Read,
		CreatedAt:            formatTime(notification.CreatedAt),
		SenderID:             notification.SenderID,
		SenderName:           notification.SenderName,
		MaintenanceRequestID: notification.MaintenanceRequestID,
		ConversationID:       notification.ConversationID,
	}
}

// ToTeamMemberDTO converts a roster entry
func ToTeamMemberDTO(member *domain.TeamMember) domain.TeamMemberDTO {
	return domain.TeamMemberDTO{
		ID:     member.ID,
		UserID: member.UserID,
		Name:   member.Name,
		Email:  member.Email,
		Role:   string(member.Role),
		Active: member.Active,
	}
}

// ToDashboardStateDTO converts dashboard selection state
func ToDashboardStateDTO(state *domain.DashboardState) domain.DashboardStateDTO {
	dto := domain.DashboardStateDTO{
		ActiveView:             string(state.ActiveView),
		SelectedConversationID: state.SelectedConversationID,
		SelectedRequestID:      state.SelectedRequestID,
	}
	if !state.UpdatedAt.IsZero() {
		dto.UpdatedAt = formatTime(state.UpdatedAt)
	}
	return dto
}

// FormatError wraps an error with entity and operation context
func FormatError(entity, operation string, err error) error {
	return fmt.Errorf("failed to %s %s: %w", operation, entity, err)
}
