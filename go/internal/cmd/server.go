package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mcdev12/foguetinho/go/internal/game"
	"github.com/mcdev12/foguetinho/go/internal/httpx"
	"github.com/mcdev12/foguetinho/go/internal/outbox"
)

func setupServer(config *Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	// Register services
	registerServices(mux, services)

	mux.Handle("/metrics", promhttp.Handler())

	// Add health check endpoint
	setupHealthCheck(mux, services)

	mux.HandleFunc("/{$}", handleIndex)

	// Wrap with CORS
	handler := c.Handler(mux)

	return &http.Server{
		Addr:              fmt.Sprintf(":%s", config.Port),
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

func registerServices(mux *http.ServeMux, services *Services) {
	services.Users.RegisterRoutes(mux)
	services.Ledger.RegisterRoutes(mux)
	services.Gateway.RegisterRoutes(mux)
	services.Admin.RegisterRoutes(mux)
}

type healthResponse struct {
	Status string               `json:"status"`
	Round  *roundHealth         `json:"round,omitempty"`
	Online int                  `json:"online"`
	Outbox *outbox.HealthStatus `json:"outbox,omitempty"`
}

type roundHealth struct {
	ID         string     `json:"id"`
	Phase      game.Phase `json:"phase"`
	Multiplier float64    `json:"multiplier"`
}

func setupHealthCheck(mux *http.ServeMux, services *Services) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Online: services.Gateway.OnlineCount()}
		status := http.StatusOK

		snap, err := services.Scheduler.Snapshot(r.Context())
		if err != nil {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		} else {
			resp.Round = &roundHealth{ID: snap.RoundID, Phase: snap.Phase, Multiplier: snap.Multiplier}
		}

		if services.Outbox != nil {
			h := services.Outbox.Health()
			resp.Outbox = &h
			if !h.Healthy() {
				resp.Status = "degraded"
			}
		}

		httpx.WriteJSON(w, status, resp)
	})
}

const indexPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>Foguetinho</title></head>
<body>
<h1>Foguetinho</h1>
<ul>
<li>POST /api/signup</li>
<li><a href="/api/ranking">GET /api/ranking</a></li>
<li>POST /api/bet</li>
<li>POST /api/cashout</li>
<li><a href="/api/online">GET /api/online</a></li>
<li>GET /ws</li>
<li><a href="/health">GET /health</a></li>
<li><a href="/metrics">GET /metrics</a></li>
</ul>
</body>
</html>
`

func handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(indexPage)); err != nil {
		log.Debug().Err(err).Msg("failed to write index page")
	}
}
