package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog/log"
	"github.com/timada-org/hookrelay/internal/core"
	"github.com/timada-org/hookrelay/internal/forward"
	"github.com/timada-org/hookrelay/internal/render"
	"github.com/timada-org/hookrelay/internal/upstream"
	"github.com/timada-org/hookrelay/internal/ws"
)

type App struct {
	config        *core.Config
	events        *core.EventLog
	relay         *core.Relay
	subscriptions *core.Subscriptions
	server        *ws.Server
	renderer      *render.Renderer
	producer      *forward.Producer
}

func New(config *core.Config) (*App, error) {
	timeout, err := config.Timeout()
	if err != nil {
		return nil, err
	}

	renderer, err := render.New()
	if err != nil {
		return nil, err
	}

	events := core.NewEventLog()

	server := ws.New(func() ([]byte, error) {
		return renderer.Rows(events.Snapshot())
	})

	relayOptions := &core.RelayOptions{
		Log:    events,
		Pusher: server,
	}

	var producer *forward.Producer
	if config.Forward.URL != "" {
		producer, err = forward.New(forward.ProducerOptions{
			URL:   config.Forward.URL,
			Topic: config.Forward.Topic,
			Name:  config.Forward.Name,
		})
		if err != nil {
			return nil, err
		}

		relayOptions.Forwarder = producer
	}

	subscriptions := core.NewSubscriptions(&core.SubscriptionsOptions{
		Upstream:  upstream.New(upstream.ClientOptions{Timeout: timeout}),
		PublicURL: config.PublicURL,
	})

	app := &App{
		config:        config,
		events:        events,
		relay:         core.NewRelay(relayOptions),
		subscriptions: subscriptions,
		server:        server,
		renderer:      renderer,
		producer:      producer,
	}

	return app, nil
}

// Handler serves the page and the subscription API.
func (app *App) Handler() http.Handler {
	router := httprouter.New()
	router.GET("/", app.home())
	router.GET("/healthz", app.health())
	router.POST("/connect", app.connect())
	router.DELETE("/disconnect", app.disconnect())
	router.POST("/webhook-event/:id", app.webhook())
	router.DELETE("/clear", app.clear())
	router.GlobalOPTIONS = http.HandlerFunc(preflight)

	return logRequests(allowOrigin(router))
}

// WsHandler serves the live event stream.
func (app *App) WsHandler() http.Handler {
	router := httprouter.New()
	router.GET("/", app.server.HandleFunc())

	return router
}

// Listen serves the HTTP and websocket listeners until ctx is done or one
// of them fails.
func (app *App) Listen(ctx context.Context) error {
	servers := []*http.Server{
		{
			Addr:         app.config.Addr,
			Handler:      app.Handler(),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		{
			Addr:    app.config.WsAddr,
			Handler: app.WsHandler(),
		},
	}

	errc := make(chan error, len(servers))
	for _, s := range servers {
		go func(s *http.Server) {
			log.Info().Msgf("Listening on %s", s.Addr)
			if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}(s)
	}

	var err error
	select {
	case err = <-errc:
		log.Err(err).Msg("server failed")
	case <-ctx.Done():
		log.Info().Msg("Shutting down..")
	}

	app.server.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, s := range servers {
		if serr := s.Shutdown(shutdownCtx); serr != nil {
			log.Err(serr).Msgf("shutdown %s", s.Addr)
		}
	}

	return err
}

// Close ends the upstream subscription and releases the forwarder.
func (app *App) Close(ctx context.Context) {
	if err := app.subscriptions.End(ctx); err != nil {
		log.Err(err).Msg("unable to end subscription on close")
	}

	app.server.Close()

	if app.producer != nil {
		app.producer.Close()
	}
}

func (app *App) home() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")

		if err := app.renderer.Page(w, render.PageData{WsURL: app.config.WsURL}); err != nil {
			log.Err(err).Msg("unable to render home page")
		}
	}
}

func (app *App) health() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		session := app.subscriptions.Session()

		writeJSON(w, http.StatusOK, &HealthOutput{
			Success:    true,
			Subscribed: app.subscriptions.Handle() != "",
			Session:    session,
			Client:     app.server.Attached(),
			Events:     app.events.Len(),
		})
	}
}

func (app *App) connect() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		var input ConnectInput

		if isForm(r) {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "Bad request.", http.StatusBadRequest)
				return
			}
			input.Path = r.PostForm.Get("path")
		} else if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			http.Error(w, "Bad request.", http.StatusBadRequest)
			return
		}

		err := app.subscriptions.Begin(r.Context(), input.Path)

		if errors.Is(err, core.ErrEmptyPath) {
			http.Error(w, "Bad request.", http.StatusBadRequest)
			return
		}

		if err != nil {
			http.Error(w, "Internal server error.", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func (app *App) disconnect() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if err := app.subscriptions.End(r.Context()); err != nil {
			http.Error(w, "Internal server error.", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (app *App) webhook() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		var input WebhookInput

		if isForm(r) {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "Bad request.", http.StatusBadRequest)
				return
			}
			if values, ok := r.PostForm["data"]; ok {
				data, err := json.Marshal(values[0])
				if err != nil {
					http.Error(w, "Bad request.", http.StatusBadRequest)
					return
				}
				input.Data = data
			}
		} else if err := json.NewDecoder(r.Body).Decode(&input); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "Bad request.", http.StatusBadRequest)
			return
		}

		if session := app.subscriptions.Session(); session != p.ByName("id") {
			log.Warn().Msgf("event for session %s while current session is %q", p.ByName("id"), session)
		}

		if _, err := app.relay.Receive(r.Context(), p.ByName("id"), input.Data); err != nil {
			log.Err(err).Msg("unable to receive event")
			http.Error(w, "Internal server error.", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func (app *App) clear() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		app.relay.Clear()

		w.WriteHeader(http.StatusNoContent)
	}
}

func isForm(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/x-www-form-urlencoded"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("unable to write response")
	}
}
