package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammad-safakhou/tariffnews/config"
	"github.com/mohammad-safakhou/tariffnews/internal/runtime"
	"github.com/mohammad-safakhou/tariffnews/mcp"
)

func pathEcho() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("sse:" + r.URL.Path))
	})
}

func do(t *testing.T, h http.Handler, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthInfoAndMetrics(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m, err := runtime.NewMetrics(reg)
	require.NoError(t, err)
	m.ObserveToolCall("responded")

	s := New(config.ServerConfig{}, pathEcho(), reg, "1.2.3", nil)

	rec := do(t, s.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(t, s.Handler(), http.MethodGet, "/info", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info Info
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	assert.Equal(t, Info{Name: "tariff-news-server", Version: "1.2.3", Tool: "get_tariff_reaction_news", SSE: "/mcp/sse"}, info)

	rec = do(t, s.Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tariffnews_tool_calls_total{outcome="responded"} 1`)
}

func TestMCPRoutesOpenWithoutSecret(t *testing.T) {
	t.Parallel()
	s := New(config.ServerConfig{}, pathEcho(), nil, "dev", nil)

	rec := do(t, s.Handler(), http.MethodGet, "/mcp/sse", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sse:/mcp/sse", rec.Body.String())

	rec = do(t, s.Handler(), http.MethodPost, "/mcp/message?sessionId=x", "")
	assert.Equal(t, "sse:/mcp/message", rec.Body.String())
}

func TestMCPRoutesRequireTokenWithSecret(t *testing.T) {
	t.Parallel()
	secret := "s3cret"
	s := New(config.ServerConfig{JWTSecret: secret}, pathEcho(), nil, "dev", nil)

	rec := do(t, s.Handler(), http.MethodGet, "/mcp/sse", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	var body HTTPError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "missing token", body.Error)

	tok, err := runtime.SignJWT("client", []byte(secret), time.Hour)
	require.NoError(t, err)
	rec = do(t, s.Handler(), http.MethodGet, "/mcp/sse", tok)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code, "health stays public")
}

func TestRealSSEHandlerRejectsMessageWithoutSession(t *testing.T) {
	t.Parallel()
	srv := mcp.NewServer(mcp.NewHandler(nil, nil, nil), nil, "dev")
	s := New(config.ServerConfig{}, srv.SSEHandler(), nil, "dev", nil)

	req := httptest.NewRequest(http.MethodPost, "/mcp/message", strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	s := New(config.ServerConfig{}, pathEcho(), nil, "dev", nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, addr) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
