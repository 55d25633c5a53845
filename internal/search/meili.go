package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"
)

const idxMaintenance = "nyumbanii_maintenance"

// Meili implements Indexer via Meilisearch
type Meili struct {
	client  meili.ServiceManager
	logger  *zap.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the index. An
// unreachable server is tolerated; the health loop picks it up later.
func NewMeili(url, apiKey string, logger *zap.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", zap.String("url", url), zap.Error(err))
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxMaintenance,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("create search index (may already exist)", zap.Error(err))
	}

	index := m.client.Index(idxMaintenance)
	filterable := []interface{}{"landlordId", "tenantId", "assignedTo", "status", "priority"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		m.logger.Warn("update filterable attributes", zap.Error(err))
	}
	searchable := []string{"issue", "description", "property", "unit"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes", zap.Error(err))
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

func (m *Meili) IndexMaintenance(_ context.Context, record MaintenanceRecord) error {
	if !m.healthy.Load() {
		return ErrUnavailable
	}
	_, err := m.client.Index(idxMaintenance).AddDocuments([]MaintenanceRecord{record}, nil)
	return err
}

func (m *Meili) SearchMaintenance(_ context.Context, q Query) ([]string, error) {
	if !m.healthy.Load() {
		return nil, ErrUnavailable
	}

	limit := int64(q.Limit)
	if limit <= 0 {
		limit = 20
	}

	req := &meili.SearchRequest{
		Limit:                limit,
		AttributesToRetrieve: []string{"id"},
	}
	if filters := buildFilters(q); len(filters) > 0 {
		req.Filter = filters
	}

	resp, err := m.client.Index(idxMaintenance).Search(q.Text, req)
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	ids := make([]string, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if id := decodeString(hit, "id"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func buildFilters(q Query) []string {
	var filters []string
	if q.LandlordID != "" {
		filters = append(filters, fmt.Sprintf("landlordId = %s", quote(q.LandlordID)))
	}
	if q.TenantID != "" {
		filters = append(filters, fmt.Sprintf("tenantId = %s", quote(q.TenantID)))
	}
	if q.AssignedTo != "" {
		filters = append(filters, fmt.Sprintf("assignedTo = %s", quote(q.AssignedTo)))
	}
	return filters
}

// quote renders a Meilisearch filter string literal
func quote(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
