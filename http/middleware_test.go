package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLoggerMiddlewareSetsContext(t *testing.T) {
	var (
		gotID    string
		gotStart time.Time
	)
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetRequestID(r.Context())
		gotStart = GetStartTime(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := LoggerMiddleware(zap.NewNop())(final)

	before := time.Now()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotEmpty(t, gotID)
	assert.Equal(t, gotID, w.Header().Get(requestIDHeader))
	assert.False(t, gotStart.IsZero())
	assert.False(t, gotStart.Before(before))

	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", gotID)
	assert.Equal(t, "abc-123", w.Header().Get(requestIDHeader))
}

func TestContextHelpersWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	assert.Empty(t, GetRequestID(req.Context()))
	assert.True(t, GetStartTime(req.Context()).IsZero())
}

func TestFailLogsElapsed(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	handler := NewInferenceHandler(testPredictor(t), HandlerOptions{Logger: zap.New(core)})
	h := NewRouter(DefaultServerConfig(), handler, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/invocations", strings.NewReader(`{"txt":"free"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, "req-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusInternalServerError, w.Code)
	entries := logs.FilterMessage("invocation failed").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "req-42", fields["request_id"])
	assert.Contains(t, fields, "elapsed")
	assert.Equal(t, int64(http.StatusInternalServerError), fields["status"])
}

func TestServerAddr(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Port = 9090
	s := NewServer(cfg, NewInferenceHandler(testPredictor(t), HandlerOptions{}), nil)
	assert.Equal(t, ":9090", s.Addr())
}
