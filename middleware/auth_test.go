package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"dost-pmns-api/config"
	"dost-pmns-api/models"
	"dost-pmns-api/services"
	"dost-pmns-api/testutil"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), SecurityHeaders())
	r.GET("/me", AuthMiddleware(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID, "role": c.GetString("role")})
	})
	r.GET("/admin", AuthMiddleware(), RequireRole(models.RoleSuperAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)
	r.GET("/panic", Recovery(quiet), func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func TestAuthMiddleware(t *testing.T) {
	f := testutil.NewFixture(t)
	router := newTestRouter()
	token, _, err := services.NewAuthService(f.DB).IssueToken(f.PSTO)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{name: "missing header", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "not bearer", header: "Token " + token, status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "empty bearer", header: "Bearer  ", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "garbage token", header: "Bearer abc.def.ghi", status: http.StatusUnauthorized, code: "UNAUTHORIZED"},
		{name: "valid token", header: "Bearer " + token, status: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			var body map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			if tt.code != "" {
				assert.Equal(t, false, body["success"])
				assert.Equal(t, tt.code, body["error"])
				return
			}
			assert.EqualValues(t, f.PSTO.ID, body["id"])
			assert.Equal(t, models.RolePSTO, body["role"])
		})
	}
}

func TestAuthMiddlewareRejectsDeactivatedUser(t *testing.T) {
	f := testutil.NewFixture(t)
	router := newTestRouter()
	token, _, err := services.NewAuthService(f.DB).IssueToken(f.Proponent)
	require.NoError(t, err)
	require.NoError(t, f.DB.Model(f.Proponent).Update("status", models.UserStatusInactive).Error)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireRole(t *testing.T) {
	f := testutil.NewFixture(t)
	router := newTestRouter()
	auth := services.NewAuthService(f.DB)

	for _, tc := range []struct {
		user   *models.User
		status int
	}{
		{user: f.Admin, status: http.StatusNoContent},
		{user: f.DOST, status: http.StatusForbidden},
		{user: f.Proponent, status: http.StatusForbidden},
	} {
		token, _, err := auth.IssueToken(tc.user)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, tc.user.Role)
	}
}

func TestRequestIDAndRecovery(t *testing.T) {
	router := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	req.Header.Set(requestIDHeader, "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(requestIDHeader))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Len(t, w.Header().Get(requestIDHeader), 36)
}

func TestAuthMiddlewareKeepsItsDatabase(t *testing.T) {
	f := testutil.NewFixture(t)
	router := newTestRouter()
	token, _, err := services.NewAuthService(f.DB).IssueToken(f.Admin)
	require.NoError(t, err)

	prev := config.DB
	config.DB = nil
	t.Cleanup(func() { config.DB = prev })

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
