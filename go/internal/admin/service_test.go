package admin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mcdev12/foguetinho/go/internal/game"
	"github.com/mcdev12/foguetinho/go/internal/ledger"
	"github.com/mcdev12/foguetinho/go/internal/models"
)

type mockAdminApp struct {
	mock.Mock
}

func (m *mockAdminApp) Login(user, password string) (*Session, error) {
	args := m.Called(user, password)
	s, _ := args.Get(0).(*Session)
	return s, args.Error(1)
}

func (m *mockAdminApp) Authorize(token string) error {
	return m.Called(token).Error(0)
}

func (m *mockAdminApp) Logout(token string) error {
	return m.Called(token).Error(0)
}

func (m *mockAdminApp) SetMode(ctx context.Context, token string, mode models.Mode) (models.Mode, error) {
	args := m.Called(ctx, token, mode)
	return args.Get(0).(models.Mode), args.Error(1)
}

func (m *mockAdminApp) ForceCrash(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *mockAdminApp) ResetBalance(ctx context.Context, token, userID string, balance int64) (*models.User, error) {
	args := m.Called(ctx, token, userID, balance)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func TestService_Routes(t *testing.T) {
	expiresAt := time.Date(2026, 3, 1, 14, 0, 0, 0, time.UTC)

	testCases := []struct {
		name       string
		method     string
		path       string
		token      string
		body       string
		setup      func(m *mockAdminApp)
		wantStatus int
		wantBody   string
	}{
		{
			name:   "login",
			method: http.MethodPost,
			path:   "/api/admin/login",
			body:   `{"user":"ops","pass":"pw"}`,
			setup: func(m *mockAdminApp) {
				m.On("Login", "ops", "pw").Return(&Session{Token: "tok", ExpiresAt: expiresAt}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"token":"tok","expiresAt":"2026-03-01T14:00:00Z"}`,
		},
		{
			name:   "login rejected",
			method: http.MethodPost,
			path:   "/api/admin/login",
			body:   `{"user":"ops","pass":"bad"}`,
			setup: func(m *mockAdminApp) {
				m.On("Login", "ops", "bad").Return(nil, ErrUnauthorized)
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"unauthorized"}`,
		},
		{
			name:       "login missing password",
			method:     http.MethodPost,
			path:       "/api/admin/login",
			body:       `{"user":"ops"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "set mode",
			method: http.MethodPost,
			path:   "/api/admin/mode",
			token:  "tok",
			body:   `{"mode":"manual"}`,
			setup: func(m *mockAdminApp) {
				m.On("SetMode", mock.Anything, "tok", models.ModeManual).Return(models.ModeManual, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"mode":"manual"}`,
		},
		{
			name:       "set mode unknown value",
			method:     http.MethodPost,
			path:       "/api/admin/mode",
			token:      "tok",
			body:       `{"mode":"turbo"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "set mode without token",
			method:     http.MethodPost,
			path:       "/api/admin/mode",
			body:       `{"mode":"auto"}`,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"unauthorized"}`,
		},
		{
			name:       "set mode without token and unknown value",
			method:     http.MethodPost,
			path:       "/api/admin/mode",
			body:       `{"mode":"bogus"}`,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"unauthorized"}`,
		},
		{
			name:       "set mode without token and empty body",
			method:     http.MethodPost,
			path:       "/api/admin/mode",
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"unauthorized"}`,
		},
		{
			name:       "set mode with expired token",
			method:     http.MethodPost,
			path:       "/api/admin/mode",
			token:      "stale",
			body:       `{"mode":"turbo"}`,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"unauthorized"}`,
		},
		{
			name:       "force crash without token",
			method:     http.MethodPost,
			path:       "/api/admin/crash",
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"unauthorized"}`,
		},
		{
			name:   "force crash",
			method: http.MethodPost,
			path:   "/api/admin/crash",
			token:  "tok",
			setup: func(m *mockAdminApp) {
				m.On("ForceCrash", mock.Anything, "tok").Return(false, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"ok":true,"ended":false}`,
		},
		{
			name:   "force crash scheduler stopped",
			method: http.MethodPost,
			path:   "/api/admin/crash",
			token:  "tok",
			setup: func(m *mockAdminApp) {
				m.On("ForceCrash", mock.Anything, "tok").Return(false, game.ErrNotRunning)
			},
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:   "reset balance",
			method: http.MethodPost,
			path:   "/api/admin/balance",
			token:  "tok",
			body:   `{"userId":"u1","balance":250}`,
			setup: func(m *mockAdminApp) {
				m.On("ResetBalance", mock.Anything, "tok", "u1", int64(250)).
					Return(&models.User{ID: "u1", Name: "ana", Balance: 250}, nil)
			},
			wantStatus: http.StatusOK,
		},
		{
			name:   "reset balance unknown user",
			method: http.MethodPost,
			path:   "/api/admin/balance",
			token:  "tok",
			body:   `{"userId":"ghost","balance":0}`,
			setup: func(m *mockAdminApp) {
				m.On("ResetBalance", mock.Anything, "tok", "ghost", int64(0)).Return(nil, ledger.ErrUserNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "reset balance negative",
			method:     http.MethodPost,
			path:       "/api/admin/balance",
			token:      "tok",
			body:       `{"userId":"u1","balance":-1}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "reset balance without token and negative value",
			method:     http.MethodPost,
			path:       "/api/admin/balance",
			body:       `{"balance":-1}`,
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":"unauthorized"}`,
		},
		{
			name:   "logout",
			method: http.MethodPost,
			path:   "/api/admin/logout",
			token:  "tok",
			setup: func(m *mockAdminApp) {
				m.On("Logout", "tok").Return(nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"ok":true}`,
		},
		{
			name:       "wrong method",
			method:     http.MethodGet,
			path:       "/api/admin/crash",
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := &mockAdminApp{}
			app.On("Authorize", "tok").Return(nil).Maybe()
			app.On("Authorize", mock.Anything).Return(ErrUnauthorized).Maybe()
			if tc.setup != nil {
				tc.setup(app)
			}
			mux := http.NewServeMux()
			NewService(app).RegisterRoutes(mux)

			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			if tc.token != "" {
				req.Header.Set("Authorization", "Bearer "+tc.token)
			}
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)

			assert.Equal(t, tc.wantStatus, rec.Code)
			if tc.wantBody != "" {
				assert.JSONEq(t, tc.wantBody, rec.Body.String())
			}
			app.AssertExpectations(t)
		})
	}
}
