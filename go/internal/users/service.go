package users

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/foguetinho/go/internal/httpx"
	"github.com/mcdev12/foguetinho/go/internal/models"
)

// UsersApp defines what the service layer needs from the users application
type UsersApp interface {
	SignUp(ctx context.Context, name string) (*models.User, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	Ranking(ctx context.Context) ([]RankingEntry, error)
}

// Service implements the users HTTP endpoints
type Service struct {
	app UsersApp
}

// NewService creates a new users service
func NewService(app UsersApp) *Service {
	return &Service{app: app}
}

// RegisterRoutes registers the users routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/signup", s.HandleSignUp)
	mux.HandleFunc("/api/ranking", s.HandleRanking)
	mux.HandleFunc("/api/users/{id}", s.HandleGetUser)
}

// HandleSignUp handles POST /api/signup
func (s *Service) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	if !httpx.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req SignUpRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := s.app.SignUp(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRankingEntry(*user))
}

// HandleRanking handles GET /api/ranking
func (s *Service) HandleRanking(w http.ResponseWriter, r *http.Request) {
	if !httpx.RequireMethod(w, r, http.MethodGet) {
		return
	}
	entries, err := s.app.Ranking(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, entries)
}

// HandleGetUser handles GET /api/users/{id}
func (s *Service) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	if !httpx.RequireMethod(w, r, http.MethodGet) {
		return
	}
	user, err := s.app.GetUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toRankingEntry(*user))
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, httpx.ErrBadRequest), errors.Is(err, ErrInvalidName):
		httpx.WriteJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrUserNotFound):
		httpx.WriteJSONError(w, http.StatusNotFound, err.Error())
	default:
		log.Error().Err(err).Msg("users request failed")
		httpx.WriteJSONError(w, http.StatusInternalServerError, "internal error")
	}
}
