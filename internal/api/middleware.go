package api

import (
	"bytes"
	"io"
	"net/http"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
)

// maxLoggedBody caps how much of a request body is logged.
const maxLoggedBody = 4096

type readCloser struct {
	io.Reader
	io.Closer
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// logRequests logs every request and its response status under a short id.
// Request bodies are logged at debug level.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := gonanoid.Generate("0123456789abcdef", 8)
		if err != nil {
			id = "-"
		}

		log.Info().Str("request", id).Msgf(">> [%s] %s", r.Method, r.URL.RequestURI())

		if debug := log.Debug(); debug.Enabled() && r.Body != nil {
			head, err := io.ReadAll(io.LimitReader(r.Body, maxLoggedBody))
			if err == nil && len(head) > 0 {
				debug.Str("request", id).Msgf(">> %s", head)
			} else {
				debug.Discard()
			}
			r.Body = readCloser{io.MultiReader(bytes.NewReader(head), r.Body), r.Body}
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Info().Str("request", id).Msgf("<< %d", rec.status)
	})
}

func allowOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		next.ServeHTTP(w, r)
	})
}

func preflight(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Access-Control-Request-Method") != "" {
		w.Header().Set("Access-Control-Allow-Methods", w.Header().Get("Allow"))
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
	}

	w.WriteHeader(http.StatusNoContent)
}
