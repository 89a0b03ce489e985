package app

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// lockedBuffer is safe for the serve goroutine and the test to share.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestHealthHandler(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	a := &App{logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))}
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	// --- Act ---
	a.healthHandler(rec, req)

	// --- Assert ---
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())
}

func TestHealthcheckServer_GracefulShutdown(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	var log lockedBuffer
	a := &App{logger: slog.New(slog.NewTextHandler(&log, &slog.HandlerOptions{Level: slog.LevelDebug}))}

	// --- Act ---
	a.startHealthcheckServer(0)
	a.closeHealthcheckServer()

	// Give the serve goroutine time to observe the shutdown.
	time.Sleep(200 * time.Millisecond)

	// --- Assert ---
	assert.Contains(t, log.String(), "shut down gracefully")
	// ErrServerClosed after Shutdown is expected, never a failure.
	assert.NotContains(t, log.String(), "failed unexpectedly")
}

func TestCloseHealthcheckServer_NeverStarted(t *testing.T) {
	t.Parallel()

	a := &App{logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))}
	a.closeHealthcheckServer()
}
