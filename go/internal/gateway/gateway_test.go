package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/foguetinho/go/internal/events"
	"github.com/mcdev12/foguetinho/go/internal/game"
)

type staticRound string

func (s staticRound) Exec(ctx context.Context, fn func(context.Context, game.Snapshot) error) error {
	return fn(ctx, game.Snapshot{RoundID: string(s), Phase: game.PhaseRunning})
}

// scriptedRounds publishes before and after the snapshot is handed out, the
// way the scheduler goroutine interleaves events with Exec calls
type scriptedRounds struct {
	svc    *Service
	before events.Event
	after  events.Event
	err    error
}

func (s *scriptedRounds) Exec(ctx context.Context, fn func(context.Context, game.Snapshot) error) error {
	if s.err != nil {
		return s.err
	}
	s.svc.HandleEvent(ctx, s.before)
	if err := fn(ctx, game.Snapshot{RoundID: "round-2", Phase: game.PhaseWaiting}); err != nil {
		return err
	}
	s.svc.HandleEvent(ctx, s.after)
	return nil
}

func newTestGateway(t *testing.T) (*Service, *httptest.Server) {
	t.Helper()
	return startGateway(t, func(*Service) RoundInfo { return staticRound("round-1") })
}

func startGateway(t *testing.T, rounds func(*Service) RoundInfo) (*Service, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	svc := &Service{connectionManager: NewConnectionManager(DefaultConnectionConfig())}
	svc.wsHandler = NewWebSocketHandler(svc.connectionManager, rounds(svc))
	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.Start(ctx)
	}()

	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)
	srv := httptest.NewServer(mux)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return svc, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg map[string]any
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestGateway_HelloThenLiveEvents(t *testing.T) {
	ctx := context.Background()
	svc, srv := newTestGateway(t)

	a := dial(t, srv)
	b := dial(t, srv)

	assert.Equal(t, map[string]any{"type": "hello", "roundId": "round-1"}, readJSON(t, a))
	assert.Equal(t, map[string]any{"type": "hello", "roundId": "round-1"}, readJSON(t, b))

	require.Eventually(t, func() bool { return svc.OnlineCount() == 2 }, 2*time.Second, 10*time.Millisecond)

	svc.HandleEvent(ctx, events.NewTick("round-1", 1.37, 2.5))
	svc.HandleEvent(ctx, events.NewBetPlaced("u1", "round-1", "b1", 100))

	for _, conn := range []*websocket.Conn{a, b} {
		tick := readJSON(t, conn)
		assert.Equal(t, "tick", tick["type"])
		assert.Equal(t, 1.37, tick["multiplier"])

		bet := readJSON(t, conn)
		assert.Equal(t, "bet_placed", bet["type"])
		assert.Equal(t, "b1", bet["betId"])
	}
}

func TestGateway_OnlineCountTracksDisconnects(t *testing.T) {
	svc, srv := newTestGateway(t)

	conn := dial(t, srv)
	readJSON(t, conn)
	require.Eventually(t, func() bool { return svc.OnlineCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Get(srv.URL + "/api/online")
	require.NoError(t, err)
	defer resp.Body.Close()
	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body["online"])

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	conn.Close()

	assert.Eventually(t, func() bool { return svc.OnlineCount() == 0 }, 2*time.Second, 10*time.Millisecond)

	// nobody left to receive it
	svc.HandleEvent(context.Background(), events.NewTick("round-1", 2, 3))
}

func TestGateway_JoinIsOrderedBetweenEvents(t *testing.T) {
	_, srv := startGateway(t, func(svc *Service) RoundInfo {
		return &scriptedRounds{
			svc:    svc,
			before: events.NewRoundEnd("round-1", time.Now(), 2.5, nil),
			after:  events.NewTick("round-2", 1.01, 3),
		}
	})

	conn := dial(t, srv)

	assert.Equal(t, map[string]any{"type": "hello", "roundId": "round-2"}, readJSON(t, conn))
	tick := readJSON(t, conn)
	assert.Equal(t, "tick", tick["type"])
	assert.Equal(t, "round-2", tick["roundId"])
}

func TestGateway_HelloWhenSchedulerStopped(t *testing.T) {
	_, srv := startGateway(t, func(*Service) RoundInfo {
		return &scriptedRounds{err: game.ErrNotRunning}
	})

	conn := dial(t, srv)
	assert.Equal(t, map[string]any{"type": "hello", "roundId": ""}, readJSON(t, conn))
}

func TestConnectionManager_UnregisterIsIdempotent(t *testing.T) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	conn := &Connection{ID: "c1", Send: make(chan []byte, 1), Manager: cm}

	cm.registerConnection(conn)
	assert.Equal(t, 1, cm.Count())

	cm.unregisterConnection(conn)
	cm.unregisterConnection(conn)
	assert.Equal(t, 0, cm.Count())

	_, open := <-conn.Send
	assert.False(t, open)
}
