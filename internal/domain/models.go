package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BaseModel contains common fields for all models
type BaseModel struct {
	ID        string    `gorm:"type:varchar(64);primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// BeforeCreate assigns a UUID when the caller did not supply an ID
func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// UserRole represents the role carried by an authenticated user
type UserRole string

const (
	RoleLandlord         UserRole = "landlord"
	RoleTenant           UserRole = "tenant"
	RolePropertyManager  UserRole = "property_manager"
	RoleMaintenanceStaff UserRole = "maintenance_staff"
	// RoleSystem is assigned to API key callers
	RoleSystem UserRole = "system"
)

// IsValid reports whether the role is one of the known roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleLandlord, RoleTenant, RolePropertyManager, RoleMaintenanceStaff, RoleSystem:
		return true
	}
	return false
}

// IsStaff reports whether the role works maintenance requests on behalf of a landlord
func (r UserRole) IsStaff() bool {
	return r == RoleMaintenanceStaff || r == RolePropertyManager
}

// MaintenancePriority represents the urgency of a maintenance request
type MaintenancePriority string

const (
	PriorityLow    MaintenancePriority = "low"
	PriorityMedium MaintenancePriority = "medium"
	PriorityHigh   MaintenancePriority = "high"
)

// IsValid reports whether the priority is known
func (p MaintenancePriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// MaintenanceStatus represents the lifecycle state of a maintenance request
type MaintenanceStatus string

const (
	StatusPending         MaintenanceStatus = "pending"
	StatusInProgress      MaintenanceStatus = "in-progress"
	StatusEstimated       MaintenanceStatus = "estimated"
	StatusQuotesSubmitted MaintenanceStatus = "quotes_submitted"
	StatusApproved        MaintenanceStatus = "approved"
	StatusCompleted       MaintenanceStatus = "completed"
)

// ParseMaintenanceStatus parses a status string. The historical spellings
// "inprogress" and "in_progress" are accepted and normalised.
func ParseMaintenanceStatus(s string) (MaintenanceStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return StatusPending, nil
	case "in-progress", "inprogress", "in_progress":
		return StatusInProgress, nil
	case "estimated":
		return StatusEstimated, nil
	case "quotes_submitted", "quotes-submitted":
		return StatusQuotesSubmitted, nil
	case "approved":
		return StatusApproved, nil
	case "completed":
		return StatusCompleted, nil
	}
	return "", fmt.Errorf("unknown maintenance status %q", s)
}

// statusTransitions lists the moves allowed through a plain status update.
// Estimation, quoting, approval and completion have their own operations.
var statusTransitions = map[MaintenanceStatus][]MaintenanceStatus{
	StatusPending:    {StatusInProgress},
	StatusInProgress: {StatusCompleted},
	StatusApproved:   {StatusInProgress},
}

// CanTransitionTo reports whether a plain status update from s to next is allowed
func (s MaintenanceStatus) CanTransitionTo(next MaintenanceStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further changes are allowed
func (s MaintenanceStatus) IsTerminal() bool {
	return s == StatusCompleted
}

// CostLineItem is one row of an estimate or actual cost breakdown
type CostLineItem struct {
	Item     string          `json:"item"`
	Quantity decimal.Decimal `json:"quantity"`
	UnitCost decimal.Decimal `json:"unitCost"`
	Total    decimal.Decimal `json:"total"`
}

// MaintenanceRequest represents a tenant-reported maintenance issue
type MaintenanceRequest struct {
	BaseModel
	LandlordID          string                           `gorm:"type:varchar(128);not null;index"`
	PropertyID          string                           `gorm:"type:varchar(128);index"`
	Property            string                           `gorm:"type:varchar(200)"`
	Unit                string                           `gorm:"type:varchar(50)"`
	TenantID            string                           `gorm:"type:varchar(128);index"`
	Tenant              string                           `gorm:"type:varchar(200)"`
	Issue               string                           `gorm:"type:varchar(500);not null"`
	Description         string                           `gorm:"type:text"`
	Priority            MaintenancePriority              `gorm:"type:varchar(20);not null"`
	Status              MaintenanceStatus                `gorm:"type:varchar(30);not null;index"`
	AssignedTo          string                           `gorm:"type:varchar(128);not null;default:'';index"`
	AssignedToName      string                           `gorm:"type:varchar(200)"`
	EstimatedCost       decimal.Decimal                  `gorm:"type:numeric(14,2);not null;default:0"`
	EstimatedDuration   string                           `gorm:"type:varchar(100)"`
	CostBreakdown       datatypes.JSONSlice[CostLineItem] `gorm:"type:jsonb"`
	RequiresApproval    bool                             `gorm:"not null;default:false"`
	QuotesSubmitted     int                              `gorm:"not null;default:0"`
	ApprovedBy          string                           `gorm:"type:varchar(128)"`
	ActualCost          decimal.Decimal                  `gorm:"type:numeric(14,2);not null;default:0"`
	ActualCostBreakdown datatypes.JSONSlice[CostLineItem] `gorm:"type:jsonb"`
	ActualDuration      string                           `gorm:"type:varchar(100)"`
	CompletionNotes     string                           `gorm:"type:text"`
	CompletedBy         string                           `gorm:"type:varchar(128)"`
	CompletedByName     string                           `gorm:"type:varchar(200)"`
	Version             int64                            `gorm:"not null;default:1"`
	AssignedAt          *time.Time
	StartedAt           *time.Time
	EstimatedAt         *time.Time
	ApprovedAt          *time.Time
	CompletedAt         *time.Time `gorm:"index"`
}

// IsAssigned reports whether a staff member has claimed the request
func (m *MaintenanceRequest) IsAssigned() bool {
	return m.AssignedTo != ""
}

// LegacyKey is the identity of the request in the legacy maintenance mirror
func (m *MaintenanceRequest) LegacyKey() string {
	return LegacyMaintenanceKey(m.TenantID, m.Issue, m.CreatedAt)
}

// QuoteStatus represents the review state of a vendor quote
type QuoteStatus string

const (
	QuoteStatusPending QuoteStatus = "pending"
)

// QuoteItem is one itemized vendor cost
type QuoteItem struct {
	Item string          `json:"item"`
	Cost decimal.Decimal `json:"cost"`
}

// Quote represents a vendor quote attached to a maintenance request
type Quote struct {
	BaseModel
	MaintenanceRequestID string                        `gorm:"type:varchar(64);not null;index"`
	VendorName           string                        `gorm:"type:varchar(200);not null"`
	VendorContact        string                        `gorm:"type:varchar(100);not null"`
	VendorEmail          string                        `gorm:"type:varchar(255)"`
	Amount               decimal.Decimal               `gorm:"type:numeric(14,2);not null"`
	ItemizedCosts        datatypes.JSONSlice[QuoteItem] `gorm:"type:jsonb"`
	QuoteNumber          string                        `gorm:"type:varchar(100)"`
	ValidUntil           *time.Time
	SubmittedBy          string      `gorm:"type:varchar(128);not null"`
	SubmittedByName      string      `gorm:"type:varchar(200)"`
	Status               QuoteStatus `gorm:"type:varchar(20);not null"`
	DocumentPath         string      `gorm:"type:varchar(500)"`
}

// Message represents a single direct message between two users
type Message struct {
	BaseModel
	ConversationID string                      `gorm:"type:varchar(300);not null;index"`
	SenderID       string                      `gorm:"type:varchar(128);not null;index"`
	SenderName     string                      `gorm:"type:varchar(200)"`
	SenderRole     UserRole                    `gorm:"type:varchar(30)"`
	RecipientID    string                      `gorm:"type:varchar(128);not null;index"`
	RecipientName  string                      `gorm:"type:varchar(200)"`
	RecipientRole  UserRole                    `gorm:"type:varchar(30)"`
	Text           string                      `gorm:"type:text;not null"`
	Timestamp      time.Time                   `gorm:"not null;index"`
	Read           bool                        `gorm:"column:read;not null;default:false"`
	ReadAt         *time.Time
	PropertyName   string                      `gorm:"type:varchar(200)"`
	Unit           string                      `gorm:"type:varchar(50)"`
	Participants   datatypes.JSONSlice[string] `gorm:"type:jsonb"`
}

// Conversation is the stored summary row for a two-party thread
type Conversation struct {
	ID              string                      `gorm:"type:varchar(300);primaryKey"`
	Participants    datatypes.JSONSlice[string] `gorm:"type:jsonb"`
	LastMessage     string                      `gorm:"type:text"`
	LastMessageTime time.Time
	LastSenderID    string `gorm:"type:varchar(128)"`
	PropertyName    string `gorm:"type:varchar(200)"`
	Unit            string `gorm:"type:varchar(50)"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ConversationIDFor returns the canonical identifier for the thread between two
// users: both ids sorted and joined, so either side derives the same value.
func ConversationIDFor(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// NotificationType represents the type of notification
type NotificationType string

const (
	NotificationTypeNewMaintenanceRequest NotificationType = "new_maintenance_request"
	NotificationTypeMaintenanceAssigned   NotificationType = "maintenance_assigned"
	NotificationTypeMaintenanceStatus     NotificationType = "maintenance_status"
	NotificationTypeEstimateSubmitted     NotificationType = "estimate_submitted"
	NotificationTypeQuoteSubmitted        NotificationType = "quote_submitted"
	NotificationTypeEstimateApproved      NotificationType = "estimate_approved"
	NotificationTypeWorkCompleted         NotificationType = "work_completed"
	NotificationTypeNewMessage            NotificationType = "new_message"
)

// AllNotificationTypes lists every notification type
var AllNotificationTypes = []NotificationType{
	NotificationTypeNewMaintenanceRequest,
	NotificationTypeMaintenanceAssigned,
	NotificationTypeMaintenanceStatus,
	NotificationTypeEstimateSubmitted,
	NotificationTypeQuoteSubmitted,
	NotificationTypeEstimateApproved,
	NotificationTypeWorkCompleted,
	NotificationTypeNewMessage,
}

// IsValid reports whether the notification type is known
func (t NotificationType) IsValid() bool {
	for _, known := range AllNotificationTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Notification represents a user notification
type Notification struct {
	BaseModel
	UserID               string  `gorm:"type:varchar(128);not null;index"`
	Type                 string  `gorm:"type:varchar(50);not null"`
	Title                string  `gorm:"type:varchar(200);not null"`
	Message              string  `gorm:"type:varchar(500);not null"`
	Read                 bool    `gorm:"column:read;not null;default:false;index"`
	ReadAt               *time.Time
	SenderID             string  `gorm:"type:varchar(128)"`
	SenderName           string  `gorm:"type:varchar(200)"`
	MaintenanceRequestID *string `gorm:"type:varchar(64)"`
	ConversationID       *string `gorm:"type:varchar(300)"`
}

// TeamMember is a member of a landlord's maintenance team
type TeamMember struct {
	BaseModel
	LandlordID string   `gorm:"type:varchar(128);not null;index"`
	UserID     string   `gorm:"type:varchar(128);not null;index"`
	Name       string   `gorm:"type:varchar(200);not null"`
	Email      string   `gorm:"type:varchar(255)"`
	Role       UserRole `gorm:"type:varchar(30);not null"`
	Active     bool     `gorm:"not null;default:true"`
}

// LandlordSettings holds per-landlord overrides
type LandlordSettings struct {
	LandlordID    string          `gorm:"type:varchar(128);primaryKey"`
	MonthlyBudget decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0"`
	Currency      string          `gorm:"type:varchar(10)"`
	UpdatedAt     time.Time
}

// DashboardView names a dashboard section a user can navigate to
type DashboardView string

const (
	ViewOverview    DashboardView = "overview"
	ViewMaintenance DashboardView = "maintenance"
	ViewMessages    DashboardView = "messages"
)

// IsValid reports whether the view is known
func (v DashboardView) IsValid() bool {
	switch v {
	case ViewOverview, ViewMaintenance, ViewMessages:
		return true
	}
	return false
}

// DashboardState is the persisted selection state of a user's dashboard
type DashboardState struct {
	UserID                 string        `gorm:"type:varchar(128);primaryKey"`
	ActiveView             DashboardView `gorm:"type:varchar(30);not null"`
	SelectedConversationID *string       `gorm:"type:varchar(300)"`
	SelectedRequestID      *string       `gorm:"type:varchar(64)"`
	UpdatedAt              time.Time
}

// MaintenanceEvent is an outbox row recording one versioned change of a
// maintenance request, replayed into the legacy mirror by a background job.
type MaintenanceEvent struct {
	ID           uint64         `gorm:"primaryKey;autoIncrement"`
	RequestID    string         `gorm:"type:varchar(64);not null;index"`
	Version      int64          `gorm:"not null"`
	Payload      datatypes.JSON `gorm:"type:jsonb;not null"`
	Attempts     int            `gorm:"not null;default:0"`
	LastError    string         `gorm:"type:text"`
	ReplicatedAt *time.Time     `gorm:"index"`
	CreatedAt    time.Time      `gorm:"not null"`
}

// LegacyMaintenance is the denormalised record kept in the legacy
// "maintenance" collection for the tenant-facing view.
type LegacyMaintenance struct {
	Key            string     `gorm:"type:varchar(700);primaryKey" json:"key" bson:"_id" firestore:"key"`
	RequestID      string     `gorm:"type:varchar(64);index" json:"requestId" bson:"requestId" firestore:"requestId"`
	LandlordID     string     `gorm:"type:varchar(128)" json:"landlordId" bson:"landlordId" firestore:"landlordId"`
	TenantID       string     `gorm:"type:varchar(128)" json:"tenantId" bson:"tenantId" firestore:"tenantId"`
	Issue          string     `gorm:"type:varchar(500)" json:"issue" bson:"issue" firestore:"issue"`
	Property       string     `gorm:"type:varchar(200)" json:"property" bson:"property" firestore:"property"`
	Unit           string     `gorm:"type:varchar(50)" json:"unit" bson:"unit" firestore:"unit"`
	Priority       string     `gorm:"type:varchar(20)" json:"priority" bson:"priority" firestore:"priority"`
	Status         string     `gorm:"type:varchar(30)" json:"status" bson:"status" firestore:"status"`
	AssignedToName string     `gorm:"type:varchar(200)" json:"assignedToName" bson:"assignedToName" firestore:"assignedToName"`
	EstimatedCost  float64    `json:"estimatedCost" bson:"estimatedCost" firestore:"estimatedCost"`
	ActualCost     float64    `json:"actualCost" bson:"actualCost" firestore:"actualCost"`
	Version        int64      `gorm:"not null" json:"version" bson:"version" firestore:"version"`
	CreatedAt      time.Time  `json:"createdAt" bson:"createdAt" firestore:"createdAt"`
	StartedAt      *time.Time `json:"startedAt,omitempty" bson:"startedAt,omitempty" firestore:"startedAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty" bson:"completedAt,omitempty" firestore:"completedAt"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime:false" json:"updatedAt" bson:"updatedAt" firestore:"updatedAt"`
}

// TableName keeps the legacy collection name
func (LegacyMaintenance) TableName() string {
	return "legacy_maintenance"
}

// LegacyMaintenanceKey builds the mirror key from the fields the legacy view
// used to identify a request.
func LegacyMaintenanceKey(tenantID, issue string, createdAt time.Time) string {
	return tenantID + "|" + issue + "|" + createdAt.UTC().Format(time.RFC3339Nano)
}

// ToLegacy projects a request onto the legacy mirror shape
func (m *MaintenanceRequest) ToLegacy() LegacyMaintenance {
	return LegacyMaintenance{
		Key:            m.LegacyKey(),
		RequestID:      m.ID,
		LandlordID:     m.LandlordID,
		TenantID:       m.TenantID,
		Issue:          m.Issue,
		Property:       m.Property,
		Unit:           m.Unit,
		Priority:       string(m.Priority),
		Status:         string(m.Status),
		AssignedToName: m.AssignedToName,
		EstimatedCost:  m.EstimatedCost.InexactFloat64(),
		ActualCost:     m.ActualCost.InexactFloat64(),
		Version:        m.Version,
		CreatedAt:      m.CreatedAt.UTC(),
		StartedAt:      m.StartedAt,
		CompletedAt:    m.CompletedAt,
		UpdatedAt:      m.UpdatedAt.UTC(),
	}
}

// IsConversationParticipant reports whether userID is one of the two parties
// encoded in conversationID.
func IsConversationParticipant(conversationID, userID string) bool {
	if userID == "" {
		return false
	}
	if other, ok := strings.CutPrefix(conversationID, userID+"_"); ok && ConversationIDFor(userID, other) == conversationID {
		return true
	}
	if other, ok := strings.CutSuffix(conversationID, "_"+userID); ok && ConversationIDFor(userID, other) == conversationID {
		return true
	}
	return false
}
