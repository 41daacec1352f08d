package main

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/foguetinho/go/internal/storage/memstore"
)

func startTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	clearEnv(t)

	cfg := defaultConfig()
	cfg.Admin.User = "ops"
	cfg.Admin.Password = "pw"

	ctx, cancel := context.WithCancel(context.Background())
	services, err := setupServices(ctx, cfg, memstore.New())
	require.NoError(t, err)
	require.NoError(t, services.Start(ctx))

	srv := httptest.NewServer(setupServer(cfg, services).Handler)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		services.Close()
	})
	return srv
}

func postJSON(t *testing.T, url, body, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_SignUpBetAndRanking(t *testing.T) {
	srv := startTestServer(t)

	resp := postJSON(t, srv.URL+"/api/signup", `{"name":"ana"}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var user struct {
		ID      string `json:"id"`
		Balance int64  `json:"balance"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&user))
	assert.Equal(t, int64(1000), user.Balance)

	// the first round is allocated as soon as the scheduler starts
	bet := `{"userId":"` + user.ID + `","amount":100}`
	assert.Eventually(t, func() bool {
		r, err := http.Post(srv.URL+"/api/bet", "application/json", strings.NewReader(bet))
		if err != nil {
			return false
		}
		defer r.Body.Close()
		return r.StatusCode == http.StatusOK
	}, 3*time.Second, 50*time.Millisecond)

	resp, err := http.Get(srv.URL + "/api/ranking")
	require.NoError(t, err)
	defer resp.Body.Close()
	var ranking []struct {
		Name    string `json:"name"`
		Balance int64  `json:"balance"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ranking))
	require.Len(t, ranking, 1)
	assert.Equal(t, "ana", ranking[0].Name)
	assert.Equal(t, int64(900), ranking[0].Balance)
}

func TestServer_AdminForceCrash(t *testing.T) {
	srv := startTestServer(t)

	resp := postJSON(t, srv.URL+"/api/admin/crash", ``, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/admin/login", `{"user":"ops","pass":"pw"}`, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var session struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&session))
	require.NotEmpty(t, session.Token)

	resp = postJSON(t, srv.URL+"/api/admin/mode", `{"mode":"manual"}`, session.Token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, srv.URL+"/api/admin/crash", ``, session.Token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_HealthIndexAndMetrics(t *testing.T) {
	srv := startTestServer(t)

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var health healthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	assert.Equal(t, "ok", health.Status)
	assert.Nil(t, health.Outbox)

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "/api/ranking")

	resp, err = http.Get(srv.URL + "/nowhere")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err = io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "foguetinho_online_connections")
}
