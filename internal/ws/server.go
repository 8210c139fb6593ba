package ws

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
	"github.com/timada-org/hookrelay/internal/core"
)

var _ core.Pusher = &Server{}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// RenderFunc produces the message sent to the live client.
type RenderFunc func() ([]byte, error)

// Server keeps a single live websocket session. A new connection replaces
// the previous one.
type Server struct {
	mux     sync.Mutex
	render  RenderFunc
	session *Session
}

func New(render RenderFunc) *Server {
	return &Server{render: render}
}

func (s *Server) HandleFunc() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		s.ServeHTTP(w, r)
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := gonanoid.New()
	if err != nil {
		http.Error(w, "Internal server error.", http.StatusInternalServerError)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already replied
		log.Err(err).Msg("websocket upgrade failed")
		return
	}

	session := newSession(id, conn)

	log.Info().Msgf("client connected on websocket: %s", id)

	s.Attach(session)
	session.listen()
	s.detach(session)

	log.Info().Msgf("websocket closed for client: %s", id)
}

// Attach makes session the live client and sends it the current log.
func (s *Server) Attach(session *Session) {
	s.mux.Lock()
	previous := s.session
	s.session = session
	s.pushLocked()
	s.mux.Unlock()

	if previous != nil {
		log.Info().Msgf("websocket client %s replaced by %s", previous.id, session.id)
		previous.close("replaced by a new client")
	}
}

// Push sends the current log to the live client. It does nothing when no
// client is attached.
func (s *Server) Push() {
	s.mux.Lock()
	defer s.mux.Unlock()

	s.pushLocked()
}

func (s *Server) Attached() bool {
	s.mux.Lock()
	defer s.mux.Unlock()

	return s.session != nil
}

// Close drops the live client, if any.
func (s *Server) Close() {
	s.mux.Lock()
	session := s.session
	s.session = nil
	s.mux.Unlock()

	if session != nil {
		session.close("server shutting down")
	}
}

func (s *Server) pushLocked() {
	if s.session == nil {
		return
	}

	msg, err := s.render()
	if err != nil {
		log.Err(err).Msg("unable to render events")
		return
	}

	if err := s.session.send(msg); err != nil {
		log.Err(err).Msgf("unable to send events to %s", s.session.id)
		_ = s.session.conn.Close()
		s.session = nil
	}
}

func (s *Server) detach(session *Session) {
	s.mux.Lock()
	defer s.mux.Unlock()

	if s.session == session {
		s.session = nil
	}
}
