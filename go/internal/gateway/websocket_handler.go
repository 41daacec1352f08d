package gateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/foguetinho/go/internal/events"
	"github.com/mcdev12/foguetinho/go/internal/game"
	"github.com/mcdev12/foguetinho/go/internal/httpx"
)

// RoundInfo runs fn on the round owner so the hello snapshot and the
// subscription are taken between two published events
type RoundInfo interface {
	Exec(ctx context.Context, fn func(ctx context.Context, snap game.Snapshot) error) error
}

// WebSocketHandler handles WebSocket upgrade requests
type WebSocketHandler struct {
	connectionManager *ConnectionManager
	rounds            RoundInfo
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(cm *ConnectionManager, rounds RoundInfo) *WebSocketHandler {
	return &WebSocketHandler{
		connectionManager: cm,
		rounds:            rounds,
	}
}

// HandleConnection handles GET /ws
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := h.connectionManager.UpgradeConnection(w, r)
	if err != nil {
		// the upgrader has already replied
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	ctx := r.Context()
	err = h.rounds.Exec(ctx, func(ctx context.Context, snap game.Snapshot) error {
		return h.connectionManager.Join(ctx, conn, events.NewHello(snap.RoundID))
	})
	if errors.Is(err, game.ErrNotRunning) {
		log.Warn().Msg("scheduler not running, hello names no round")
		err = h.connectionManager.Join(ctx, conn, events.NewHello(""))
	}
	if err != nil {
		log.Error().Err(err).Str("connection_id", conn.ID).Msg("failed to join WebSocket connection")
		conn.Conn.Close()
		return
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("remote_addr", r.RemoteAddr).
		Msg("WebSocket connection established")
}

// HandleOnline handles GET /api/online
func (h *WebSocketHandler) HandleOnline(w http.ResponseWriter, r *http.Request) {
	if !httpx.RequireMethod(w, r, http.MethodGet) {
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]int{"online": h.connectionManager.Count()})
}

// RegisterRoutes registers WebSocket routes with an HTTP mux
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleConnection)
	mux.HandleFunc("/api/online", h.HandleOnline)
}
