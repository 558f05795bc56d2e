package logserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hyperjump/cellveyor/internal/config"
	"github.com/hyperjump/cellveyor/internal/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func testConfig(t *testing.T) config.LogServerConfig {
	t.Helper()
	return config.LogServerConfig{
		Host:         "127.0.0.1",
		Port:         0,
		HTTPPort:     -1,
		LogFile:      filepath.Join(t.TempDir(), ".discover.log"),
		MaxSizeMB:    1,
		MaxBackups:   1,
		RecentLines:  3,
		PollInterval: 50 * time.Millisecond,
	}
}

func newTestServer(t *testing.T, cfg config.LogServerConfig) (*Server, *syncBuffer) {
	t.Helper()
	out := &syncBuffer{}
	c := output.NewConsole(output.WithWriter(out), output.WithLogger(zap.NewNop()))
	return NewServer(cfg, c), out
}

func TestStripPriority(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<15>hello", "hello"},
		{"<191>2024 host app: msg", "2024 host app: msg"},
		{"no prefix", "no prefix"},
		{"<x>kept", "<x>kept"},
		{"middle <15> kept", "middle <15> kept"},
	}
	for _, tt := range tests {
		if got := StripPriority(tt.in); got != tt.want {
			t.Errorf("StripPriority(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestServe_CollectsUDPMessages(t *testing.T) {
	cfg := testConfig(t)
	s, out := newTestServer(t, cfg)
	addr, err := s.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	conn, err := net.Dial("udp", addr.String())
	require.NoError(t, err)
	defer conn.Close()
	_, err = conn.Write([]byte("<15>transport started\n"))
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(s.Recent(10)) == 1 }, 2*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"transport started"}, s.Recent(10))
	assert.Contains(t, out.String(), "transport started")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}

	data, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Equal(t, "transport started\n", string(data))
}

func TestRecentLines_KeepsNewest(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))
	for _, m := range []string{"<1>a", "b", "c", "d", ""} {
		s.handleMessage([]byte(m))
	}
	assert.Equal(t, []string{"b", "c", "d"}, s.Recent(100))
	assert.Empty(t, s.Recent(0))
	assert.Equal(t, []string{"c", "d"}, s.Recent(2))
}

func TestHandler(t *testing.T) {
	s, _ := newTestServer(t, testConfig(t))
	s.handleMessage([]byte("one"))
	s.handleMessage([]byte("two"))
	h := s.Handler()

	t.Run("health", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"ok"`)
	})

	t.Run("logs", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/logs?lines=1", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var resp logsResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, []string{"two"}, resp.Lines)
		assert.Equal(t, 1, resp.Count)
	})

	t.Run("zero_lines", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/logs?lines=0", nil))
		require.Equal(t, http.StatusOK, w.Code)
		var resp logsResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Empty(t, resp.Lines)
		assert.Equal(t, 0, resp.Count)
	})

	t.Run("bad_lines", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/logs?lines=abc", nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.True(t, strings.Contains(w.Body.String(), "lines"))
	})
}
