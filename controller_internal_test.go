package lidarbot

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mdouchement/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type brokenWriter struct {
	header http.Header
}

func (w *brokenWriter) Header() http.Header {
	return w.header
}

func (w *brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("broken pipe")
}

func (w *brokenWriter) WriteHeader(int) {}

func TestMonitorUnwatchOnWriteError(t *testing.T) {
	dir, err := os.MkdirTemp("", "lidarbot")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })

	cfg := Default()
	cfg.Socket = filepath.Join(dir, "lidarbotd.sock")
	cfg.Period = NewDuration(2 * time.Millisecond)
	require.NoError(t, cfg.Validate())

	board := NewDummyBoard()
	c, err := New(cfg, board, NewDummyDrivetrain())
	require.NoError(t, err)

	log := logger.WrapSlogHandler(slog.DiscardHandler)
	ctx, cancel := context.WithCancel(logger.WithLogger(context.Background(), log))
	c.Launch(ctx)
	t.Cleanup(func() {
		cancel()
		<-c.Done()
		board.Close()
	})

	// The current status is pushed on connection and its write fails.
	req := httptest.NewRequest(http.MethodGet, "/monitor", nil)
	c.monitor(ctx, log)(&brokenWriter{header: http.Header{}}, req)

	// Events are handled in order, so the unwatch is done once this returns.
	_, err = c.request(ctx, event{name: eventStatus})
	require.NoError(t, err)
	assert.Empty(t, c.watchers)
}
