package auth_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Wateiyo/Nyumbanii-sub003/internal/auth"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/config"
	"github.com/Wateiyo/Nyumbanii-sub003/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-signing-secret"

func createTestMiddleware(apiKey string) *auth.Middleware {
	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret: testSecret,
			Issuer:    "nyumbanii-test",
			APIKey:    apiKey,
		},
	}
	return auth.NewMiddleware(cfg, zap.NewNop())
}

func captureHandler(called *bool, captured **auth.UserContext) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		*captured, _ = auth.FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware_Authenticate_WithAPIKey(t *testing.T) {
	m := createTestMiddleware("test-api-key-12345")

	var called bool
	var userCtx *auth.UserContext
	handler := m.Authenticate(captureHandler(&called, &userCtx))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/maintenance", nil)
	req.Header.Set("x-api-key", "test-api-key-12345")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, userCtx)
	assert.Equal(t, auth.SystemUserID, userCtx.UserID)
	assert.True(t, userCtx.IsSystem())
}

func TestMiddleware_Authenticate_WithInvalidAPIKey(t *testing.T) {
	m := createTestMiddleware("correct-key")

	var called bool
	var userCtx *auth.UserContext
	handler := m.Authenticate(captureHandler(&called, &userCtx))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/maintenance", nil)
	req.Header.Set("x-api-key", "wrong-key")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMiddleware_Authenticate_WithBearerToken(t *testing.T) {
	m := createTestMiddleware("")

	token, err := m.Validator().IssueToken(&auth.UserContext{
		UserID:     "staff-1",
		Name:       "Wanjiru",
		Role:       domain.RoleMaintenanceStaff,
		LandlordID: "landlord-1",
	}, time.Hour)
	require.NoError(t, err)

	t.Run("authorization header", func(t *testing.T) {
		var called bool
		var userCtx *auth.UserContext
		handler := m.Authenticate(captureHandler(&called, &userCtx))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/abc/assign", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, userCtx)
		assert.Equal(t, "staff-1", userCtx.UserID)
		assert.Equal(t, "Wanjiru", userCtx.Name)
		assert.Equal(t, "landlord-1", userCtx.ScopeLandlordID())
	})

	t.Run("query parameter on GET", func(t *testing.T) {
		var called bool
		var userCtx *auth.UserContext
		handler := m.Authenticate(captureHandler(&called, &userCtx))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stream?access_token="+token, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, called)
	})

	t.Run("query parameter on websocket stream", func(t *testing.T) {
		var called bool
		var userCtx *auth.UserContext
		handler := m.Authenticate(captureHandler(&called, &userCtx))

		req := httptest.NewRequest(http.MethodGet, "/api/v1/stream/ws?access_token="+token, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.True(t, called)
	})

	t.Run("query parameter ignored outside the stream", func(t *testing.T) {
		for _, path := range []string{"/api/v1/maintenance", "/api/v1/conversations/a_b/messages", "/api/v1/streams"} {
			var called bool
			var userCtx *auth.UserContext
			handler := m.Authenticate(captureHandler(&called, &userCtx))

			req := httptest.NewRequest(http.MethodGet, path+"?access_token="+token, nil)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code, path)
			assert.False(t, called, path)
		}
	})

	t.Run("query parameter ignored on POST", func(t *testing.T) {
		var called bool
		var userCtx *auth.UserContext
		handler := m.Authenticate(captureHandler(&called, &userCtx))

		req := httptest.NewRequest(http.MethodPost, "/api/v1/maintenance?access_token="+token, nil)
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.False(t, called)
	})
}

func TestMiddleware_Authenticate_Rejections(t *testing.T) {
	m := createTestMiddleware("")

	expired, err := m.Validator().IssueToken(&auth.UserContext{UserID: "t1", Role: domain.RoleTenant}, -time.Minute)
	require.NoError(t, err)

	wrongSecret, err := jwt.NewWithClaims(jwt.SigningMethodHS256, auth.Claims{
		Role: "tenant",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "t1",
			Issuer:    "nyumbanii-test",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("another-secret"))
	require.NoError(t, err)

	badRole, err := m.Validator().IssueToken(&auth.UserContext{UserID: "x", Role: "janitor"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not bearer", "Basic dXNlcjpwYXNz"},
		{"garbage token", "Bearer not-a-jwt"},
		{"expired token", "Bearer " + expired},
		{"wrong secret", "Bearer " + wrongSecret},
		{"unknown role", "Bearer " + badRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			var userCtx *auth.UserContext
			handler := m.Authenticate(captureHandler(&called, &userCtx))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/maintenance", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.False(t, called)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestMiddleware_RequireRole(t *testing.T) {
	m := createTestMiddleware("")
	handler := m.RequireRole(domain.RoleLandlord)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("no user context", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithUserContext(req.Context(), &auth.UserContext{UserID: "t1", Role: domain.RoleTenant}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("matching role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(auth.WithUserContext(req.Context(), &auth.UserContext{UserID: "l1", Role: domain.RoleLandlord}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}
