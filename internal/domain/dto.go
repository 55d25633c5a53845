package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Maintenance DTOs

type CostLineItemDTO struct {
	Item     string  `json:"item"`
	Quantity float64 `json:"quantity"`
	UnitCost float64 `json:"unitCost"`
	Total    float64 `json:"total"`
}

type MaintenanceRequestDTO struct {
	ID                  string            `json:"id"`
	LandlordID          string            `json:"landlordId"`
	PropertyID          string            `json:"propertyId,omitempty"`
	Property            string            `json:"property"`
	Unit                string            `json:"unit,omitempty"`
	TenantID            string            `json:"tenantId,omitempty"`
	Tenant              string            `json:"tenant,omitempty"`
	Issue               string            `json:"issue"`
	Description         string            `json:"description,omitempty"`
	Priority            string            `json:"priority"`
	Status              string            `json:"status"`
	AssignedTo          string            `json:"assignedTo,omitempty"`
	AssignedToName      string            `json:"assignedToName,omitempty"`
	EstimatedCost       float64           `json:"estimatedCost"`
	EstimatedDuration   string            `json:"estimatedDuration,omitempty"`
	CostBreakdown       []CostLineItemDTO `json:"costBreakdown"`
	RequiresApproval    bool              `json:"requiresApproval"`
	QuotesSubmitted     int               `json:"quotesSubmitted"`
	ActualCost          float64           `json:"actualCost"`
	ActualCostBreakdown []CostLineItemDTO `json:"actualCostBreakdown"`
	ActualDuration      string            `json:"actualDuration,omitempty"`
	CompletionNotes     string            `json:"completionNotes,omitempty"`
	CompletedBy         string            `json:"completedBy,omitempty"`
	CompletedByName     string            `json:"completedByName,omitempty"`
	Version             int64             `json:"version"`
	CreatedAt           string            `json:"createdAt"` // ISO 8601
	UpdatedAt           string            `json:"updatedAt"`
	AssignedAt          *string           `json:"assignedAt,omitempty"`
	StartedAt           *string           `json:"startedAt,omitempty"`
	EstimatedAt         *string           `json:"estimatedAt,omitempty"`
	ApprovedAt          *string           `json:"approvedAt,omitempty"`
	CompletedAt         *string           `json:"completedAt,omitempty"`
}

// CostLineItemInput is a line of an estimate or actual cost submission.
// The line total is always recomputed server-side.
type CostLineItemInput struct {
	Item     string          `json:"item" validate:"required,max=200"`
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unitCost"`
}

type CreateMaintenanceRequest struct {
	PropertyID  string `json:"propertyId" validate:"max=128"`
	Property    string `json:"property" validate:"required,max=200"`
	Unit        string `json:"unit" validate:"max=50"`
	Issue       string `json:"issue" validate:"required,max=500"`
	Description string `json:"description" validate:"max=5000"`
	Priority    string `json:"priority" validate:"required,oneof=low medium high"`
	// LandlordID is required when a tenant files the request
	LandlordID string `json:"landlordId" validate:"max=128"`
	// TenantID/Tenant let a landlord file on behalf of a tenant
	TenantID string `json:"tenantId" validate:"max=128"`
	Tenant   string `json:"tenant" validate:"max=200"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type SubmitEstimateRequest struct {
	CostBreakdown     []CostLineItemInput `json:"costBreakdown" validate:"required,min=1,dive"`
	EstimatedDuration string              `json:"estimatedDuration" validate:"max=100"`
}

type QuoteItemInput struct {
	Item string          `json:"item" validate:"required,max=200"`
	Cost decimal.Decimal `json:"cost"`
}

type SubmitQuoteRequest struct {
	VendorName    string           `json:"vendorName" validate:"required,max=200"`
	VendorContact string           `json:"vendorContact" validate:"required,max=100"`
	VendorEmail   string           `json:"vendorEmail" validate:"omitempty,email,max=255"`
	Amount        decimal.Decimal  `json:"amount"`
	ItemizedCosts []QuoteItemInput `json:"itemizedCosts" validate:"dive"`
	QuoteNumber   string           `json:"quoteNumber" validate:"max=100"`
	ValidUntil    *time.Time       `json:"validUntil"`
}

type CompleteWorkRequest struct {
	ActualCostBreakdown []CostLineItemInput `json:"actualCostBreakdown" validate:"dive"`
	// ActualCost is used when no breakdown is supplied
	ActualCost      *decimal.Decimal `json:"actualCost"`
	CompletionNotes string           `json:"completionNotes" validate:"max=5000"`
	ActualDuration  string           `json:"actualDuration" validate:"max=100"`
}

type QuoteItemDTO struct {
	Item string  `json:"item"`
	Cost float64 `json:"cost"`
}

type QuoteDTO struct {
	ID                   string         `json:"id"`
	MaintenanceRequestID string         `json:"maintenanceRequestId"`
	VendorName           string         `json:"vendorName"`
	VendorContact        string         `json:"vendorContact"`
	VendorEmail          string         `json:"vendorEmail,omitempty"`
	Amount               float64        `json:"amount"`
	ItemizedCosts        []QuoteItemDTO `json:"itemizedCosts"`
	QuoteNumber          string         `json:"quoteNumber,omitempty"`
	ValidUntil           *string        `json:"validUntil,omitempty"`
	SubmittedBy          string         `json:"submittedBy"`
	SubmittedByName      string         `json:"submittedByName,omitempty"`
	Status               string         `json:"status"`
	HasDocument          bool           `json:"hasDocument"`
	CreatedAt            string         `json:"createdAt"`
}

// Budget DTOs

type StaffSpendDTO struct {
	StaffID   string  `json:"staffId"`
	StaffName string  `json:"staffName"`
	Amount    float64 `json:"amount"`
	Jobs      int     `json:"jobs"`
}

type BudgetInfoDTO struct {
	Month          string          `json:"month"` // YYYY-MM
	MonthlyBudget  float64         `json:"monthlyBudget"`
	TotalSpent     float64         `json:"totalSpent"`
	Remaining      float64         `json:"remaining"`
	Utilization    float64         `json:"utilization"` // percent
	CompletedJobs  int             `json:"completedJobs"`
	SpentByStaff   []StaffSpendDTO `json:"spentByStaff"`
	TotalFormatted string          `json:"totalFormatted"`
}

type CompletionSummaryDTO struct {
	Request           MaintenanceRequestDTO `json:"request"`
	EstimatedCost     float64               `json:"estimatedCost"`
	ActualCost        float64               `json:"actualCost"`
	Variance          float64               `json:"variance"` // estimated - actual
	VarianceLabel     string                `json:"varianceLabel"`
	VarianceAmount    float64               `json:"varianceAmount"`
	VarianceFormatted string                `json:"varianceFormatted"`
	Budget            *BudgetInfoDTO        `json:"budget,omitempty"`
}

// Messaging DTOs

type MessageDTO struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversationId"`
	SenderID       string `json:"senderId"`
	SenderName     string `json:"senderName"`
	SenderRole     string `json:"senderRole,omitempty"`
	RecipientID    string `json:"recipientId"`
	RecipientName  string `json:"recipientName"`
	RecipientRole  string `json:"recipientRole,omitempty"`
	Text           string `json:"text"`
	Timestamp      string `json:"timestamp"`
	Read           bool   `json:"read"`
	PropertyName   string `json:"propertyName,omitempty"`
	Unit           string `json:"unit,omitempty"`
}

type ConversationDTO struct {
	ConversationID  string   `json:"conversationId"`
	OtherUserID     string   `json:"otherUserId"`
	OtherUserName   string   `json:"otherUserName"`
	OtherUserRole   string   `json:"otherUserRole,omitempty"`
	LastMessage     string   `json:"lastMessage"`
	LastMessageTime string   `json:"lastMessageTime"`
	LastSenderID    string   `json:"lastSenderId"`
	UnreadCount     int      `json:"unreadCount"`
	PropertyName    string   `json:"propertyName,omitempty"`
	Unit            string   `json:"unit,omitempty"`
	Participants    []string `json:"participants"`
}

type SendMessageRequest struct {
	RecipientID   string `json:"recipientId" validate:"required,max=128"`
	RecipientName string `json:"recipientName" validate:"max=200"`
	RecipientRole string `json:"recipientRole" validate:"omitempty,oneof=landlord tenant property_manager maintenance_staff"`
	Text          string `json:"text" validate:"required,max=5000"`
	PropertyName  string `json:"propertyName" validate:"max=200"`
	Unit          string `json:"unit" validate:"max=50"`
}

type OpenConversationDTO struct {
	ConversationID string       `json:"conversationId"`
	MarkedRead     int64        `json:"markedRead"`
	Messages       []MessageDTO `json:"messages"`
}

type DeleteConversationDTO struct {
	ConversationID       string `json:"conversationId"`
	MessagesDeleted      int64  `json:"messagesDeleted"`
	ConversationsDeleted int64  `json:"conversationsDeleted"`
}

// Notification DTOs

type NotificationDTO struct {
	ID                   string  `json:"id"`
	Type                 string  `json:"type"`
	Title                string  `json:"title"`
	Message              string  `json:"message"`
	Read                 bool    `json:"read"`
	CreatedAt            string  `json:"createdAt"` // ISO 8601
	SenderID             string  `json:"senderId,omitempty"`
	SenderName           string  `json:"senderName,omitempty"`
	MaintenanceRequestID *string `json:"maintenanceRequestId,omitempty"`
	ConversationID       *string `json:"conversationId,omitempty"`
}

type UnreadCountDTO struct {
	Count int `json:"count"`
}

// NavigationTarget tells the client which dashboard view to open for a notification
type NavigationTarget struct {
	View           DashboardView `json:"view"`
	ConversationID string        `json:"conversationId,omitempty"`
	RequestID      string        `json:"requestId,omitempty"`
}

type OpenNotificationDTO struct {
	Notification NotificationDTO  `json:"notification"`
	Target       NavigationTarget `json:"target"`
}

// Dashboard DTOs

type DashboardStateDTO struct {
	ActiveView             string  `json:"activeView"`
	SelectedConversationID *string `json:"selectedConversationId"`
	SelectedRequestID      *string `json:"selectedRequestId"`
	UpdatedAt              string  `json:"updatedAt,omitempty"`
}

type UpdateDashboardStateRequest struct {
	ActiveView             string  `json:"activeView" validate:"required,oneof=overview maintenance messages"`
	SelectedConversationID *string `json:"selectedConversationId" validate:"omitempty,max=300"`
	SelectedRequestID      *string `json:"selectedRequestId" validate:"omitempty,max=64"`
}

type TeamMemberDTO struct {
	ID     string `json:"id"`
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

type AddTeamMemberRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
	Name   string `json:"name" validate:"required,max=200"`
	Email  string `json:"email" validate:"omitempty,email,max=255"`
	Role   string `json:"role" validate:"required,oneof=property_manager maintenance_staff"`
}

// Pagination

type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"pageSize"`
	TotalPages int         `json:"totalPages"`
}
