package core

import (
	"encoding/json"
	"sync"
	"time"
)

type Event struct {
	ID         string          `json:"id"`
	Session    string          `json:"session"`
	ReceivedAt time.Time       `json:"received_at"`
	Data       json.RawMessage `json:"data"`
}

// EventLog is an unbounded, append-only list of events that can only be
// emptied as a whole.
type EventLog struct {
	mux    sync.RWMutex
	events []Event
}

func NewEventLog() *EventLog {
	return &EventLog{}
}

func (l *EventLog) Append(e Event) {
	l.mux.Lock()
	defer l.mux.Unlock()

	l.events = append(l.events, e)
}

func (l *EventLog) Clear() {
	l.mux.Lock()
	defer l.mux.Unlock()

	l.events = nil
}

// Snapshot returns a copy of the log in arrival order.
func (l *EventLog) Snapshot() []Event {
	l.mux.RLock()
	defer l.mux.RUnlock()

	events := make([]Event, len(l.events))
	copy(events, l.events)

	return events
}

func (l *EventLog) Len() int {
	l.mux.RLock()
	defer l.mux.RUnlock()

	return len(l.events)
}
