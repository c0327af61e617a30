package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/msgwebhook/internal/api"
	"github.com/mattjoyce/msgwebhook/internal/log"
	"github.com/mattjoyce/msgwebhook/internal/metrics"
	"github.com/mattjoyce/msgwebhook/internal/store"
	"github.com/mattjoyce/msgwebhook/internal/webhook"
)

const secret = "integration-secret"

func openSQLite(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), "sqlite:///"+filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func deliver(t *testing.T, client *http.Client, baseURL string, body []byte) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, baseURL+"/webhook", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(webhook.DefaultSignatureHeader, webhook.Sign(secret, body))

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode
}

func getJSON(t *testing.T, client *http.Client, url string, out any) {
	t.Helper()
	resp, err := client.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

// TestAPIIntegration drives the routed handler against a SQLite store.
func TestAPIIntegration(t *testing.T) {
	st := openSQLite(t)
	srv := api.New(api.Config{Webhook: webhook.Config{Secret: secret}}, st, metrics.NewCollector(), log.New(io.Discard, "INFO"))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()
	client := ts.Client()

	first := []byte(`{"message_id":"m1","from":"+1000000001","to":"+1000000002","ts":"2025-01-15T10:00:00Z"}`)
	second := []byte(`{"message_id":"m2","from":"+1000000003","to":"+1000000002","ts":"2025-01-15T11:00:00Z","text":"Hi"}`)

	// Duplicate delivery is acknowledged without a second row.
	assert.Equal(t, http.StatusOK, deliver(t, client, ts.URL, first))
	assert.Equal(t, http.StatusOK, deliver(t, client, ts.URL, first))
	assert.Equal(t, http.StatusOK, deliver(t, client, ts.URL, second))

	var page api.MessagesResponse
	getJSON(t, client, ts.URL+"/messages?limit=1&offset=0", &page)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Data, 1)
	assert.Equal(t, "m1", page.Data[0].MessageID)
	assert.Nil(t, page.Data[0].Text)

	var stats api.StatsResponse
	getJSON(t, client, ts.URL+"/stats", &stats)
	assert.Equal(t, 2, stats.TotalMessages)
	assert.Equal(t, 2, stats.SendersCount)
	require.NotNil(t, stats.FirstMessageTS)
	require.NotNil(t, stats.LastMessageTS)
	assert.Equal(t, "2025-01-15T10:00:00Z", *stats.FirstMessageTS)
	assert.Equal(t, "2025-01-15T11:00:00Z", *stats.LastMessageTS)

	var ready api.StatusResponse
	getJSON(t, client, ts.URL+"/health/ready", &ready)
	assert.Equal(t, "ready", ready.Status)
}

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestServerStartAndShutdown(t *testing.T) {
	addr := freeAddr(t)
	srv := api.New(api.Config{Listen: addr}, store.NewMemory(), nil, log.New(io.Discard, "INFO"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	client := &http.Client{Timeout: time.Second}
	require.Eventually(t, func() bool {
		resp, err := client.Get("http://" + addr + "/health/live")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not shut down")
	}
}
