package ledger

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/foguetinho/go/internal/game"
	"github.com/mcdev12/foguetinho/go/internal/httpx"
	"github.com/mcdev12/foguetinho/go/internal/models"
)

// LedgerApp defines what the service layer needs from the ledger application
type LedgerApp interface {
	PlaceBet(ctx context.Context, userID string, amount int64) (*BetReceipt, error)
	CashOut(ctx context.Context, userID, betID string, requested float64) (*CashoutReceipt, error)
	ResetBalance(ctx context.Context, userID string, balance int64) (*models.User, error)
}

// Service exposes bet placement and cash-out over HTTP
type Service struct {
	app LedgerApp
}

// NewService creates a new ledger HTTP service
func NewService(app LedgerApp) *Service {
	return &Service{app: app}
}

type placeBetRequest struct {
	UserID string `json:"userId" validate:"required"`
	Amount int64  `json:"amount"`
}

type cashOutRequest struct {
	UserID       string  `json:"userId" validate:"required"`
	BetID        string  `json:"betId" validate:"required"`
	AtMultiplier float64 `json:"atMultiplier" validate:"gte=0"`
}

// RegisterRoutes registers the wager routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/bet", s.HandlePlaceBet)
	mux.HandleFunc("/api/cashout", s.HandleCashOut)
}

// HandlePlaceBet handles POST /api/bet
func (s *Service) HandlePlaceBet(w http.ResponseWriter, r *http.Request) {
	if !httpx.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req placeBetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	receipt, err := s.app.PlaceBet(r.Context(), req.UserID, req.Amount)
	if err != nil {
		WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, receipt)
}

// HandleCashOut handles POST /api/cashout
func (s *Service) HandleCashOut(w http.ResponseWriter, r *http.Request) {
	if !httpx.RequireMethod(w, r, http.MethodPost) {
		return
	}
	var req cashOutRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	receipt, err := s.app.CashOut(r.Context(), req.UserID, req.BetID, req.AtMultiplier)
	if err != nil {
		WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"payout":       receipt.Payout,
		"balance":      receipt.Balance,
		"atMultiplier": receipt.AtMultiplier,
	})
}

// WriteError maps ledger errors to HTTP status codes
func WriteError(w http.ResponseWriter, err error) {
	status := HTTPStatus(err)
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Msg("ledger request failed")
		httpx.WriteJSONError(w, status, "internal error")
		return
	}
	httpx.WriteJSONError(w, status, err.Error())
}

// HTTPStatus returns the status code for a ledger error
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, httpx.ErrBadRequest),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrInvalidBalance),
		errors.Is(err, ErrPayoutOverflow),
		errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrExceedsAvailable):
		return http.StatusBadRequest
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrBetNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBetResolved), errors.Is(err, ErrRoundClosed), errors.Is(err, ErrNoActiveRound):
		return http.StatusConflict
	case errors.Is(err, game.ErrNotRunning):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
