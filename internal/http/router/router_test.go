package router_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/auth"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/config"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/http/handler"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/http/middleware"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/http/router"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/realtime"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/repository"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/search"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/service"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/storage"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testSecret = "router-test-secret"
	testAPIKey = "router-test-key"
	landlordID = "landlord-1"
	tenantID   = "tenant-1"
	staffID    = "staff-1"
)

type testServer struct {
	handler http.Handler
	tokens  *auth.JWTValidator
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		App:       config.AppConfig{Environment: "development"},
		Auth:      config.AuthConfig{JWTSecret: testSecret, APIKey: testAPIKey},
		Server:    config.ServerConfig{EnableSwagger: true},
		RateLimit: config.RateLimitConfig{Enabled: false},
	}
	logger := zap.NewNop()
	db := testutil.NewTestDB(t)

	broker := realtime.NewLocalBroker(logger)
	t.Cleanup(func() { _ = broker.Close() })
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	maintenanceRepo := repository.NewMaintenanceRepository(db)
	dashboardRepo := repository.NewDashboardStateRepository(db)
	teamRepo := repository.NewTeamMemberRepository(db)
	eventRepo := repository.NewMaintenanceEventRepository(db)

	notifications := service.NewNotificationService(repository.NewNotificationRepository(db), dashboardRepo, broker, logger)
	budget := service.NewBudgetService(maintenanceRepo, teamRepo, repository.NewLandlordSettingsRepository(db), 50000, logger)
	maintenance := service.NewMaintenanceService(db, maintenanceRepo, repository.NewQuoteRepository(db), eventRepo,
		notifications, budget, broker, search.Noop{}, store, logger)
	messages := service.NewMessageService(db, repository.NewMessageRepository(db), repository.NewConversationRepository(db),
		dashboardRepo, notifications, broker, logger)

	authMiddleware := auth.NewMiddleware(cfg, logger)
	rt := router.NewRouter(cfg, logger, authMiddleware, middleware.NewRateLimiter(&cfg.RateLimit, logger), router.Handlers{
		Maintenance:  handler.NewMaintenanceHandler(maintenance, 1, logger),
		Messages:     handler.NewMessageHandler(messages, logger),
		Notification: handler.NewNotificationHandler(notifications, logger),
		Dashboard: handler.NewDashboardHandler(service.NewDashboardService(dashboardRepo, logger), budget,
			service.NewTeamService(teamRepo, logger), logger),
		Stream: handler.NewStreamHandler(broker, time.Second, logger),
		Health: handler.NewHealthHandler(db, logger),
	})

	return &testServer{handler: rt.Setup(), tokens: authMiddleware.Validator()}
}

func (s *testServer) token(t *testing.T, userID string, role domain.UserRole) string {
	t.Helper()
	user := &auth.UserContext{UserID: userID, Name: "Name of " + userID, Role: role}
	if role.IsStaff() {
		user.LandlordID = landlordID
	}
	token, err := s.tokens.IssueToken(user, time.Hour)
	require.NoError(t, err)
	return token
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func TestRouter_HealthChecks(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK", rr.Body.String())

	rr = s.do(t, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "healthy", decode[map[string]interface{}](t, rr)["status"])

	rr = s.do(t, http.MethodGet, "/health/db", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRouter_RequiresAuthentication(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(t, http.MethodGet, "/api/v1/maintenance", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(t, http.MethodGet, "/api/v1/maintenance", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_MaintenanceLifecycle(t *testing.T) {
	s := newTestServer(t)
	tenant := s.token(t, tenantID, domain.RoleTenant)
	landlord := s.token(t, landlordID, domain.RoleLandlord)
	staff := s.token(t, staffID, domain.RoleMaintenanceStaff)

	rr := s.do(t, http.MethodPost, "/api/v1/maintenance", tenant, domain.CreateMaintenanceRequest{
		Property:   "Sunrise Apartments",
		Unit:       "A4",
		Issue:      "Leaking kitchen sink",
		Priority:   "high",
		LandlordID: landlordID,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[domain.MaintenanceRequestDTO](t, rr)
	assert.Equal(t, "/api/v1/maintenance/"+created.ID, rr.Header().Get("Location"))
	base := "/api/v1/maintenance/" + created.ID

	// tenants cannot claim work
	rr = s.do(t, http.MethodPost, base+"/assign", tenant, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, http.MethodPost, base+"/assign", staff, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, staffID, decode[domain.MaintenanceRequestDTO](t, rr).AssignedTo)

	other := s.token(t, "staff-2", domain.RoleMaintenanceStaff)
	rr = s.do(t, http.MethodPost, base+"/assign", other, nil)
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, domain.ErrorTypeConflict, decode[domain.APIError](t, rr).Type)

	rr = s.do(t, http.MethodPut, base+"/status", staff, domain.UpdateStatusRequest{Status: string(domain.StatusInProgress)})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodPost, base+"/estimate", staff, map[string]interface{}{
		"costBreakdown": []map[string]interface{}{
			{"item": "Trap", "quantity": 1, "unitCost": 1500},
			{"item": "Labour", "quantity": 2, "unitCost": 1000},
		},
		"estimatedDuration": "2 hours",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 3500.0, decode[domain.MaintenanceRequestDTO](t, rr).EstimatedCost)

	// only the landlord approves
	rr = s.do(t, http.MethodPost, base+"/approve", staff, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = s.do(t, http.MethodPost, base+"/approve", landlord, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, string(domain.StatusApproved), decode[domain.MaintenanceRequestDTO](t, rr).Status)

	rr = s.do(t, http.MethodPost, base+"/complete", staff, map[string]interface{}{
		"actualCost":      3000,
		"completionNotes": "Replaced trap",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	summary := decode[domain.CompletionSummaryDTO](t, rr)
	assert.Equal(t, 500.0, summary.Variance)
	assert.Equal(t, "under budget", summary.VarianceLabel)
	require.NotNil(t, summary.Budget)
	assert.Equal(t, 3000.0, summary.Budget.TotalSpent)

	rr = s.do(t, http.MethodGet, "/api/v1/budget", landlord, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[domain.BudgetInfoDTO](t, rr).CompletedJobs)

	// completed requests reject further transitions
	rr = s.do(t, http.MethodPut, base+"/status", staff, domain.UpdateStatusRequest{Status: string(domain.StatusInProgress)})
	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestRouter_ValidationErrors(t *testing.T) {
	s := newTestServer(t)
	tenant := s.token(t, tenantID, domain.RoleTenant)

	rr := s.do(t, http.MethodPost, "/api/v1/maintenance", tenant, map[string]string{"priority": "urgent"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	apiErr := decode[domain.APIError](t, rr)
	assert.Equal(t, domain.ErrorTypeValidation, apiErr.Type)
	assert.Contains(t, apiErr.Errors, "property")
	assert.Contains(t, apiErr.Errors, "issue")
	assert.Equal(t, "Must be one of: low medium high", apiErr.Errors["priority"])

	req := httptest.NewRequest(http.MethodPost, "/api/v1/maintenance", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+tenant)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_EstimateLineValidation(t *testing.T) {
	s := newTestServer(t)
	tenant := s.token(t, tenantID, domain.RoleTenant)
	staff := s.token(t, staffID, domain.RoleMaintenanceStaff)

	rr := s.do(t, http.MethodPost, "/api/v1/maintenance", tenant, domain.CreateMaintenanceRequest{
		Property: "Sunrise Apartments", Issue: "No water", Priority: "medium", LandlordID: landlordID,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	base := "/api/v1/maintenance/" + decode[domain.MaintenanceRequestDTO](t, rr).ID
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/assign", staff, nil).Code)

	rr = s.do(t, http.MethodPost, base+"/estimate", staff, map[string]interface{}{
		"costBreakdown": []map[string]interface{}{{"quantity": 1, "unitCost": 100}},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[domain.APIError](t, rr).Errors, "costBreakdown[0].item")

	rr = s.do(t, http.MethodPost, base+"/estimate", staff, map[string]interface{}{
		"costBreakdown": []map[string]interface{}{{"item": "Inspection", "quantity": 1, "unitCost": 0}},
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_QuoteUploadAndDownload(t *testing.T) {
	s := newTestServer(t)
	tenant := s.token(t, tenantID, domain.RoleTenant)
	staff := s.token(t, staffID, domain.RoleMaintenanceStaff)

	rr := s.do(t, http.MethodPost, "/api/v1/maintenance", tenant, domain.CreateMaintenanceRequest{
		Property: "Sunrise Apartments", Issue: "Roof leak", Priority: "high", LandlordID: landlordID,
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	base := "/api/v1/maintenance/" + decode[domain.MaintenanceRequestDTO](t, rr).ID
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, base+"/assign", staff, nil).Code)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("quote", `{"vendorName":"Mabati Roofing","vendorContact":"0712345678","amount":18000}`))
	part, err := mw.CreateFormFile("document", "quote.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4 quote"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, base+"/quotes", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+staff)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	quote := decode[domain.QuoteDTO](t, rec)
	assert.True(t, quote.HasDocument)
	assert.Equal(t, 18000.0, quote.Amount)

	rr = s.do(t, http.MethodGet, base+"/quotes", tenant, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]domain.QuoteDTO](t, rr), 1)

	rr = s.do(t, http.MethodGet, base+"/quotes/"+quote.ID+"/document", staff, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "%PDF-1.4 quote", rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
}

func TestRouter_Conversations(t *testing.T) {
	s := newTestServer(t)
	tenant := s.token(t, tenantID, domain.RoleTenant)
	landlord := s.token(t, landlordID, domain.RoleLandlord)
	outsider := s.token(t, "tenant-9", domain.RoleTenant)

	rr := s.do(t, http.MethodPost, "/api/v1/conversations/messages", tenant, domain.SendMessageRequest{
		RecipientID:   landlordID,
		RecipientName: "Landlord",
		Text:          "The gate is broken",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	msg := decode[domain.MessageDTO](t, rr)
	convPath := "/api/v1/conversations/" + msg.ConversationID

	rr = s.do(t, http.MethodGet, "/api/v1/conversations", landlord, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	conversations := decode[[]domain.ConversationDTO](t, rr)
	require.Len(t, conversations, 1)
	assert.Equal(t, 1, conversations[0].UnreadCount)

	rr = s.do(t, http.MethodGet, convPath+"/messages", outsider, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, http.MethodPost, convPath+"/open", landlord, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(1), decode[domain.OpenConversationDTO](t, rr).MarkedRead)

	rr = s.do(t, http.MethodGet, "/api/v1/notifications/count", landlord, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, decode[domain.UnreadCountDTO](t, rr).Count)

	rr = s.do(t, http.MethodPut, "/api/v1/notifications/read-all", landlord, nil)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(t, http.MethodDelete, convPath, landlord, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, int64(1), decode[domain.DeleteConversationDTO](t, rr).MessagesDeleted)

	// deleting again still succeeds
	rr = s.do(t, http.MethodDelete, convPath, landlord, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Zero(t, decode[domain.DeleteConversationDTO](t, rr).MessagesDeleted)
}

func TestRouter_DashboardAndTeam(t *testing.T) {
	s := newTestServer(t)
	landlord := s.token(t, landlordID, domain.RoleLandlord)
	staff := s.token(t, staffID, domain.RoleMaintenanceStaff)

	rr := s.do(t, http.MethodPost, "/api/v1/team", staff, domain.AddTeamMemberRequest{UserID: "staff-2", Name: "Wanjiru", Role: "maintenance_staff"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = s.do(t, http.MethodPost, "/api/v1/team", landlord, domain.AddTeamMemberRequest{UserID: "staff-2", Name: "Wanjiru", Role: "maintenance_staff"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodGet, "/api/v1/team", staff, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]domain.TeamMemberDTO](t, rr), 1)

	rr = s.do(t, http.MethodPut, "/api/v1/dashboard/state", landlord, domain.UpdateDashboardStateRequest{ActiveView: "maintenance"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(t, http.MethodGet, "/api/v1/dashboard/state", landlord, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "maintenance", decode[domain.DashboardStateDTO](t, rr).ActiveView)

	rr = s.do(t, http.MethodPut, "/api/v1/dashboard/state", landlord, domain.UpdateDashboardStateRequest{ActiveView: "settings"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_APIKeyIdentity(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/budget?landlordId="+landlordID, nil)
	req.Header.Set("x-api-key", testAPIKey)
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, 50000.0, decode[domain.BudgetInfoDTO](t, rr).MonthlyBudget)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/budget", nil)
	req.Header.Set("x-api-key", "wrong")
	rr = httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRouter_NotFoundRequest(t *testing.T) {
	s := newTestServer(t)
	rr := s.do(t, http.MethodGet, "/api/v1/maintenance/does-not-exist", s.token(t, landlordID, domain.RoleLandlord), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, domain.ErrorTypeNotFound, decode[domain.APIError](t, rr).Type)
}
