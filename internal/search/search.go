// Package search indexes maintenance requests for full-text lookup.
package search

import (
	"context"
	"errors"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
)

// ErrUnavailable is returned when the search backend cannot serve a query;
// callers fall back to the database
var ErrUnavailable = errors.New("search backend unavailable")

// MaintenanceRecord is the indexed projection of a maintenance request
type MaintenanceRecord struct {
	ID          string `json:"id"`
	LandlordID  string `json:"landlordId"`
	TenantID    string `json:"tenantId"`
	AssignedTo  string `json:"assignedTo"`
	Property    string `json:"property"`
	Unit        string `json:"unit"`
	Issue       string `json:"issue"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"createdAt"`
}

// RecordFromRequest projects a request onto the index shape
func RecordFromRequest(req *domain.MaintenanceRequest) MaintenanceRecord {
	return MaintenanceRecord{
		ID:          req.ID,
		LandlordID:  req.LandlordID,
		TenantID:    req.TenantID,
		AssignedTo:  req.AssignedTo,
		Property:    req.Property,
		Unit:        req.Unit,
		Issue:       req.Issue,
		Description: req.Description,
		Priority:    string(req.Priority),
		Status:      string(req.Status),
		CreatedAt:   req.CreatedAt.UTC().Unix(),
	}
}

// Query is a scoped search. Empty scope fields are not filtered.
type Query struct {
	Text       string
	LandlordID string
	TenantID   string
	AssignedTo string
	Limit      int
}

// Indexer keeps the maintenance index current and answers queries with
// matching request ids in relevance order
type Indexer interface {
	IndexMaintenance(ctx context.Context, record MaintenanceRecord) error
	SearchMaintenance(ctx context.Context, q Query) ([]string, error)
	Healthy() bool
	Close()
}

// Noop is used when no search backend is configured
type Noop struct{}

func (Noop) IndexMaintenance(context.Context, MaintenanceRecord) error { return nil }

func (Noop) SearchMaintenance(context.Context, Query) ([]string, error) {
	return nil, ErrUnavailable
}

func (Noop) Healthy() bool { return false }

func (Noop) Close() {}

const healthInterval = 10 * time.Second
