package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	writeTimeout = 10 * time.Second

	// pongWait is how long the peer may stay silent before the session is
	// considered dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// frames above readLimit close the session
	readLimit = 1 << 20
)

type Session struct {
	id   string
	conn *websocket.Conn
	done chan struct{}
}

func newSession(id string, conn *websocket.Conn) *Session {
	return &Session{
		id:   id,
		conn: conn,
		done: make(chan struct{}),
	}
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) send(msg []byte) error {
	if err := s.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}

	return s.conn.WriteMessage(websocket.TextMessage, msg)
}

// listen reads frames until the connection drops, pinging the peer in the
// background. Browser messages are only logged.
func (s *Session) listen() {
	defer close(s.done)

	go s.ping()

	s.conn.SetReadLimit(readLimit)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, msg, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Err(err).Msgf("websocket %s read failed", s.id)
			}
			return
		}

		if kind == websocket.TextMessage {
			log.Info().Msgf("received from %s: %s", s.id, msg)
		}
	}
}

func (s *Session) ping() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-s.done:
			return
		}
	}
}

// close sends a close frame with reason and drops the connection.
func (s *Session) close(reason string) {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeTimeout))
	_ = s.conn.Close()
}
