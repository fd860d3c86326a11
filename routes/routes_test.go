package routes

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dost-pmns-api/models"
	"dost-pmns-api/services"
	"dost-pmns-api/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type apiClient struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *apiClient {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	SetupRoutes(router)
	return &apiClient{t: t, router: router}
}

func (a *apiClient) do(method, path string, user *models.User, body interface{}) (int, envelope) {
	a.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(a.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		token, _, err := services.NewAuthService(nil).IssueToken(user)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func TestHealthAndNotFound(t *testing.T) {
	testutil.NewDB(t)
	api := newAPI(t)

	status, _ := api.do(http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := api.do(http.MethodGet, "/api/unknown", nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, env.Success)
	assert.Equal(t, "NOT_FOUND", env.Error)
}

func TestLoginAndProfile(t *testing.T) {
	f := testutil.NewFixture(t)
	api := newAPI(t)

	status, env := api.do(http.MethodPost, "/api/auth/login", nil, map[string]string{
		"email":    f.Proponent.Email,
		"password": testutil.Password,
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	var login struct {
		Token string `json:"token"`
		User  struct {
			ID   uint   `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.NotEmpty(t, login.Token)
	assert.Equal(t, f.Proponent.ID, login.User.ID)
	assert.NotContains(t, string(env.Data), "password")

	status, env = api.do(http.MethodPost, "/api/auth/login", nil, map[string]string{
		"email":    f.Proponent.Email,
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Error)

	status, env = api.do(http.MethodPost, "/api/auth/login", nil, map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, env.Success)

	status, _ = api.do(http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	status, env = api.do(http.MethodGet, "/api/auth/me", f.Proponent, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), f.Proponent.Email)
}

func TestRoleGates(t *testing.T) {
	f := testutil.NewFixture(t)
	api := newAPI(t)

	tests := []struct {
		name   string
		method string
		path   string
		user   *models.User
		body   interface{}
		status int
	}{
		{name: "admin lists users", method: http.MethodGet, path: "/api/users", user: f.Admin, status: http.StatusOK},
		{name: "psto cannot list users", method: http.MethodGet, path: "/api/users", user: f.PSTO, status: http.StatusForbidden},
		{name: "psto lists proponents", method: http.MethodGet, path: "/api/users/proponents", user: f.PSTO, status: http.StatusOK},
		{name: "proponent cannot list proponents", method: http.MethodGet, path: "/api/users/proponents", user: f.Proponent, status: http.StatusForbidden},
		{name: "psto cannot submit applications", method: http.MethodPost, path: "/api/programs/setup", user: f.PSTO, status: http.StatusForbidden},
		{name: "dost cannot do psto review", method: http.MethodPut, path: "/api/programs/setup/1/psto/approve", user: f.DOST, status: http.StatusForbidden},
		{name: "proponent cannot schedule meetings", method: http.MethodPost, path: "/api/rtec-meetings", user: f.Proponent, body: map[string]interface{}{}, status: http.StatusForbidden},
		{name: "proponent cannot request documents", method: http.MethodPost, path: "/api/rtec-documents/request", user: f.Proponent, body: map[string]interface{}{}, status: http.StatusForbidden},
		{name: "anyone reads unread count", method: http.MethodGet, path: "/api/notifications/unread-count", user: f.Proponent, status: http.StatusOK},
		{name: "anyone lists provinces", method: http.MethodGet, path: "/api/provinces", user: f.DOST, status: http.StatusOK},
		{name: "bad id", method: http.MethodGet, path: "/api/programs/setup/abc", user: f.Proponent, status: http.StatusBadRequest},
		{name: "missing application", method: http.MethodGet, path: "/api/programs/setup/999", user: f.Admin, status: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := api.do(tt.method, tt.path, tt.user, tt.body)
			assert.Equal(t, tt.status, status, env.Message)
			assert.Equal(t, tt.status < 400, env.Success)
		})
	}
}

func TestActivateProponentOverHTTP(t *testing.T) {
	f := testutil.NewFixture(t)
	api := newAPI(t)
	pending := testutil.CreateUser(t, f.DB, models.RoleProponent, "Palawan")
	require.NoError(t, f.DB.Model(pending).Update("status", models.UserStatusPending).Error)

	status, env := api.do(http.MethodGet, "/api/users/proponents/pending", f.PSTO, nil)
	require.Equal(t, http.StatusOK, status)
	var list struct {
		Total int64 `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.EqualValues(t, 1, list.Total)

	path := "/api/users/proponents/" + jsonID(pending.ID) + "/activate"
	status, _ = api.do(http.MethodPut, path, f.OtherPSTO, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = api.do(http.MethodPut, path, f.PSTO, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "Proponent activated", env.Message)

	status, env = api.do(http.MethodGet, "/api/notifications/unread-count", pending, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"count":1}`, string(env.Data))
}

func jsonID(id uint) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}

func (a *apiClient) multipart(path string, user *models.User, fields map[string]string, files map[string]string) (int, envelope) {
	a.t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(a.t, w.WriteField(k, v))
	}
	for field, name := range files {
		part, err := w.CreateFormFile(field, name)
		require.NoError(a.t, err)
		_, err = part.Write([]byte("%PDF-1.4\n% " + name + "\n"))
		require.NoError(a.t, err)
	}
	require.NoError(a.t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	token, _, err := services.NewAuthService(nil).IssueToken(user)
	require.NoError(a.t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func TestSubmitApplicationMultipart(t *testing.T) {
	common := map[string]string{
		"enterpriseName": "Palawan Cashew Processors",
		"contactPerson":  "Maria Santos",
		"contactNumber":  "09171234567",
		"email":          "cashew@example.com",
		"province":       "palawan",
	}
	tests := []struct {
		program string
		extra   map[string]string
	}{
		{program: "setup", extra: map[string]string{
			"position":         "Owner",
			"officeAddress":    "Rizal Ave, Puerto Princesa City",
			"businessActivity": "Food processing",
			"enterpriseType":   "Sole proprietorship",
			"yearEstablished":  "2015",
		}},
		{program: "gia", extra: map[string]string{"projectTitle": "Solar cashew dryer"}},
	}
	for _, tt := range tests {
		t.Run(tt.program, func(t *testing.T) {
			f := testutil.NewFixture(t)
			api := newAPI(t)
			fields := map[string]string{}
			for k, v := range common {
				fields[k] = v
			}
			for k, v := range tt.extra {
				fields[k] = v
			}
			files := map[string]string{
				services.FileLetterOfIntent:    "letter.pdf",
				services.FileEnterpriseProfile: "profile.pdf",
			}

			status, env := api.multipart("/api/programs/"+tt.program, f.Proponent, fields, map[string]string{services.FileLetterOfIntent: "letter.pdf"})
			assert.Equal(t, http.StatusBadRequest, status, "enterprise profile is required")
			assert.False(t, env.Success)

			status, env = api.multipart("/api/programs/"+tt.program, f.Proponent, fields, files)
			require.Equal(t, http.StatusCreated, status, env.Message)
			var app struct {
				ID                uint   `json:"id"`
				ApplicationNumber string `json:"applicationNumber"`
				Program           string `json:"program"`
				Status            string `json:"status"`
				AssignedPSTO      *uint  `json:"assignedPSTO"`
			}
			require.NoError(t, json.Unmarshal(env.Data, &app))
			assert.Equal(t, strings.ToUpper(tt.program), app.Program)
			assert.Equal(t, models.ApplicationStatusPending, app.Status)
			require.NotNil(t, app.AssignedPSTO)
			assert.Equal(t, f.PSTO.ID, *app.AssignedPSTO)

			assert.Len(t, f.Notifications(t, f.PSTO.ID), 1)
			assert.Len(t, f.Notifications(t, f.Proponent.ID), 1)
			assert.Empty(t, f.Notifications(t, f.OtherPSTO.ID))
		})
	}
}
