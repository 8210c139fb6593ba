package api_test

import (
	"bytes"
	"net/http"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
)

type logBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *logBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *logBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func captureLogs(t *testing.T, level zerolog.Level) *logBuffer {
	t.Helper()

	out := &logBuffer{}
	logger := log.Logger
	log.Logger = zerolog.New(out).Level(level)
	t.Cleanup(func() { log.Logger = logger })

	return out
}

func TestRequestLog(t *testing.T) {

	t.Run("debug logs request body", func(t *testing.T) {
		out := captureLogs(t, zerolog.DebugLevel)
		r := newRelay(t)

		res := r.do(t, http.MethodPost, "/webhook-event/abc", "application/json", `{"data": "logged-body"}`)
		assert.Equal(t, http.StatusNoContent, res.StatusCode)

		assert.Contains(t, out.String(), "logged-body")
		assert.Equal(t, 1, r.health(t).Events)
	})

	t.Run("info skips request body", func(t *testing.T) {
		out := captureLogs(t, zerolog.InfoLevel)
		r := newRelay(t)

		res := r.do(t, http.MethodPost, "/webhook-event/abc", "application/json", `{"data": "quiet-body"}`)
		assert.Equal(t, http.StatusNoContent, res.StatusCode)

		assert.Contains(t, out.String(), "/webhook-event/abc")
		assert.NotContains(t, out.String(), "quiet-body")
		assert.Equal(t, 1, r.health(t).Events)
	})
}
