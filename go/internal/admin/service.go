package admin

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/mcdev12/foguetinho/go/internal/game"
	"github.com/mcdev12/foguetinho/go/internal/httpx"
	"github.com/mcdev12/foguetinho/go/internal/ledger"
	"github.com/mcdev12/foguetinho/go/internal/models"
)

// AdminApp defines what the service layer needs from the admin application
type AdminApp interface {
	Login(user, password string) (*Session, error)
	Authorize(token string) error
	Logout(token string) error
	SetMode(ctx context.Context, token string, mode models.Mode) (models.Mode, error)
	ForceCrash(ctx context.Context, token string) (bool, error)
	ResetBalance(ctx context.Context, token, userID string, balance int64) (*models.User, error)
}

// Service exposes the admin operations over HTTP. Tokens travel as
// "Authorization: Bearer <token>".
type Service struct {
	app AdminApp
}

// NewService creates a new admin HTTP service
func NewService(app AdminApp) *Service {
	return &Service{app: app}
}

type loginRequest struct {
	User     string `json:"user" validate:"required"`
	Password string `json:"pass" validate:"required"`
}

type modeRequest struct {
	Mode models.Mode `json:"mode" validate:"required,oneof=auto manual"`
}

type balanceRequest struct {
	UserID  string `json:"userId" validate:"required"`
	Balance int64  `json:"balance" validate:"gte=0,lte=1000000000000"`
}

// RegisterRoutes registers the admin routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/admin/login", s.HandleLogin)
	mux.HandleFunc("/api/admin/logout", s.HandleLogout)
	mux.HandleFunc("/api/admin/mode", s.HandleSetMode)
	mux.HandleFunc("/api/admin/crash", s.HandleForceCrash)
	mux.HandleFunc("/api/admin/balance", s.HandleResetBalance)
}

// HandleLogin handles POST /api/admin/login
func (s *Service) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !httpx.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	session, err := s.app.Login(req.User, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, session)
}

// authorize checks the bearer token before the body is read
func (s *Service) authorize(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := bearerToken(r)
	if err := s.app.Authorize(token); err != nil {
		writeError(w, err)
		return "", false
	}
	return token, true
}

// HandleLogout handles POST /api/admin/logout
func (s *Service) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if !httpx.RequireMethod(w, r, http.MethodPost) {
		return
	}
	if err := s.app.Logout(bearerToken(r)); err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// HandleSetMode handles POST /api/admin/mode
func (s *Service) HandleSetMode(w http.ResponseWriter, r *http.Request) {
	if !httpx.RequireMethod(w, r, http.MethodPost) {
		return
	}
	token, ok := s.authorize(w, r)
	if !ok {
		return
	}
	var req modeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	mode, err := s.app.SetMode(r.Context(), token, req.Mode)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]models.Mode{"mode": mode})
}

// HandleForceCrash handles POST /api/admin/crash
func (s *Service) HandleForceCrash(w http.ResponseWriter, r *http.Request) {
	if !httpx.RequireMethod(w, r, http.MethodPost) {
		return
	}
	token, ok := s.authorize(w, r)
	if !ok {
		return
	}
	ended, err := s.app.ForceCrash(r.Context(), token)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true, "ended": ended})
}

// HandleResetBalance handles POST /api/admin/balance
func (s *Service) HandleResetBalance(w http.ResponseWriter, r *http.Request) {
	if !httpx.RequireMethod(w, r, http.MethodPost) {
		return
	}
	token, ok := s.authorize(w, r)
	if !ok {
		return
	}
	var req balanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := s.app.ResetBalance(r.Context(), token, req.UserID, req.Balance)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, user)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthorized):
		httpx.WriteJSONError(w, http.StatusUnauthorized, ErrUnauthorized.Error())
	case errors.Is(err, game.ErrInvalidMode):
		httpx.WriteJSONError(w, http.StatusBadRequest, err.Error())
	default:
		ledger.WriteError(w, err)
	}
}
