package users

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/mcdev12/foguetinho/go/internal/models"
)

type mockUsersApp struct {
	mock.Mock
}

func (m *mockUsersApp) SignUp(ctx context.Context, name string) (*models.User, error) {
	args := m.Called(ctx, name)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUsersApp) GetUser(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUsersApp) Ranking(ctx context.Context) ([]RankingEntry, error) {
	args := m.Called(ctx)
	e, _ := args.Get(0).([]RankingEntry)
	return e, args.Error(1)
}

func TestService(t *testing.T) {
	testCases := []struct {
		name       string
		method     string
		path       string
		body       string
		setup      func(m *mockUsersApp)
		wantStatus int
		wantBody   string
	}{
		{
			name:   "signup",
			method: http.MethodPost,
			path:   "/api/signup",
			body:   `{"name":"ana"}`,
			setup: func(m *mockUsersApp) {
				m.On("SignUp", mock.Anything, "ana").
					Return(&models.User{ID: "u1", Name: "ana", Balance: 1000}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"id":"u1","name":"ana","balance":1000}`,
		},
		{
			name:   "signup short name",
			method: http.MethodPost,
			path:   "/api/signup",
			body:   `{"name":"a"}`,
			setup: func(m *mockUsersApp) {
				m.On("SignUp", mock.Anything, "a").Return(nil, ErrInvalidName)
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   `{"error":"invalid name"}`,
		},
		{
			name:       "signup missing name",
			method:     http.MethodPost,
			path:       "/api/signup",
			body:       `{}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:   "signup store failure",
			method: http.MethodPost,
			path:   "/api/signup",
			body:   `{"name":"ana"}`,
			setup: func(m *mockUsersApp) {
				m.On("SignUp", mock.Anything, "ana").Return(nil, errors.New("disk full"))
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   `{"error":"internal error"}`,
		},
		{
			name:   "ranking",
			method: http.MethodGet,
			path:   "/api/ranking",
			setup: func(m *mockUsersApp) {
				m.On("Ranking", mock.Anything).Return([]RankingEntry{
					{ID: "u2", Name: "bia", Balance: 3000},
					{ID: "u1", Name: "ana", Balance: 900},
				}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `[{"id":"u2","name":"bia","balance":3000},{"id":"u1","name":"ana","balance":900}]`,
		},
		{
			name:   "empty ranking is an array",
			method: http.MethodGet,
			path:   "/api/ranking",
			setup: func(m *mockUsersApp) {
				m.On("Ranking", mock.Anything).Return([]RankingEntry{}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `[]`,
		},
		{
			name:   "get user",
			method: http.MethodGet,
			path:   "/api/users/u1",
			setup: func(m *mockUsersApp) {
				m.On("GetUser", mock.Anything, "u1").
					Return(&models.User{ID: "u1", Name: "ana", Balance: 10}, nil)
			},
			wantStatus: http.StatusOK,
			wantBody:   `{"id":"u1","name":"ana","balance":10}`,
		},
		{
			name:   "get unknown user",
			method: http.MethodGet,
			path:   "/api/users/nope",
			setup: func(m *mockUsersApp) {
				m.On("GetUser", mock.Anything, "nope").Return(nil, ErrUserNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "ranking wrong method",
			method:     http.MethodPost,
			path:       "/api/ranking",
			wantStatus: http.StatusMethodNotAllowed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := &mockUsersApp{}
			if tc.setup != nil {
				tc.setup(app)
			}
			mux := http.NewServeMux()
			NewService(app).RegisterRoutes(mux)

			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
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
