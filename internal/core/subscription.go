package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
)

var ErrEmptyPath = errors.New("subscription: path cannot be empty")

// Upstream is the external event source. Subscribe returns the handle
// (an unsubscribe URL) that Unsubscribe later cancels.
type Upstream interface {
	Subscribe(ctx context.Context, path string, notifyURL string) (string, error)
	Unsubscribe(ctx context.Context, handle string) error
}

type SubscriptionsOptions struct {
	Upstream  Upstream
	PublicURL string
}

// Subscriptions holds the single upstream subscription of the relay.
// The mutex only guards the fields; upstream calls run without it and
// busy marks the one Begin or End in flight.
type Subscriptions struct {
	mux       sync.Mutex
	upstream  Upstream
	publicURL string
	handle    string
	session   string
	busy      chan struct{}
}

func NewSubscriptions(options *SubscriptionsOptions) *Subscriptions {
	return &Subscriptions{
		upstream:  options.Upstream,
		publicURL: options.PublicURL,
	}
}

// Begin registers a webhook with the upstream at path. It does nothing when
// a subscription is already active. A call made while another Begin or End
// is in flight waits for it first.
func (s *Subscriptions) Begin(ctx context.Context, path string) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}

	if s.handle != "" {
		log.Debug().Msgf("already subscribed (session %s)", s.session)
		s.mux.Unlock()
		return nil
	}

	if path == "" {
		s.mux.Unlock()
		return ErrEmptyPath
	}

	session, err := gonanoid.New()
	if err != nil {
		s.mux.Unlock()
		return err
	}

	// the upstream may post events before it replies, so the session is
	// known before the call returns
	s.session = session
	busy := s.markBusy()
	s.mux.Unlock()

	handle, err := s.upstream.Subscribe(ctx, path, s.NotifyURL(session))

	s.mux.Lock()
	defer s.mux.Unlock()
	s.release(busy)

	if err != nil {
		s.session = ""
		log.Err(err).Msgf("unable to subscribe to %s", path)
		return err
	}

	s.handle = handle

	log.Info().Msgf("subscribed to %s (session %s)", path, session)

	return nil
}

// End cancels the active subscription. The handle is kept when the
// upstream refuses, so a later call can try again.
func (s *Subscriptions) End(ctx context.Context) error {
	if err := s.acquire(ctx); err != nil {
		return err
	}

	if s.handle == "" {
		s.mux.Unlock()
		return nil
	}

	handle, session := s.handle, s.session
	busy := s.markBusy()
	s.mux.Unlock()

	err := s.upstream.Unsubscribe(ctx, handle)

	s.mux.Lock()
	defer s.mux.Unlock()
	s.release(busy)

	if err != nil {
		log.Err(err).Msgf("unable to unsubscribe session %s", session)
		return err
	}

	log.Info().Msgf("unsubscribed session %s", session)

	s.handle = ""
	s.session = ""

	return nil
}

// acquire returns with s.mux held and no upstream call in flight.
func (s *Subscriptions) acquire(ctx context.Context) error {
	for {
		s.mux.Lock()
		busy := s.busy
		if busy == nil {
			return nil
		}
		s.mux.Unlock()

		select {
		case <-busy:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Subscriptions) markBusy() chan struct{} {
	s.busy = make(chan struct{})
	return s.busy
}

func (s *Subscriptions) release(busy chan struct{}) {
	s.busy = nil
	close(busy)
}

func (s *Subscriptions) NotifyURL(session string) string {
	return fmt.Sprintf("%s/webhook-event/%s", s.publicURL, session)
}

func (s *Subscriptions) Handle() string {
	s.mux.Lock()
	defer s.mux.Unlock()

	return s.handle
}

// Session is the id used in the notify URL. It is set as soon as a
// subscribe call starts.
func (s *Subscriptions) Session() string {
	s.mux.Lock()
	defer s.mux.Unlock()

	return s.session
}
