package core

import (
	"context"
	"encoding/json"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog/log"
)

// Pusher re-sends the rendered log to the live client, if any.
type Pusher interface {
	Push()
}

// Forwarder mirrors received events to an external sink. Forward must not
// wait for the sink to acknowledge.
type Forwarder interface {
	Forward(ctx context.Context, event *Event) error
}

type RelayOptions struct {
	Log       *EventLog
	Pusher    Pusher
	Forwarder Forwarder
}

type Relay struct {
	log       *EventLog
	pusher    Pusher
	forwarder Forwarder
}

func NewRelay(options *RelayOptions) *Relay {
	return &Relay{
		log:       options.Log,
		pusher:    options.Pusher,
		forwarder: options.Forwarder,
	}
}

// Receive appends data to the log, pushes the new state, then forwards the
// event.
func (r *Relay) Receive(ctx context.Context, session string, data json.RawMessage) (*Event, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}

	if len(data) == 0 {
		data = json.RawMessage("null")
	}

	event := Event{
		ID:         id,
		Session:    session,
		ReceivedAt: time.Now().UTC(),
		Data:       data,
	}

	r.log.Append(event)
	r.push()

	if r.forwarder != nil {
		if err := r.forwarder.Forward(ctx, &event); err != nil {
			log.Err(err).Msgf("unable to forward event %s", event.ID)
		}
	}

	return &event, nil
}

func (r *Relay) Clear() {
	r.log.Clear()
	r.push()
}

func (r *Relay) Events() []Event {
	return r.log.Snapshot()
}

func (r *Relay) push() {
	if r.pusher != nil {
		r.pusher.Push()
	}
}
