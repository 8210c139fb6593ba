package core_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timada-org/hookrelay/internal/core"
)

// recordingPusher captures the log length seen at each push.
type recordingPusher struct {
	log    *core.EventLog
	pushes []int
}

func (p *recordingPusher) Push() {
	p.pushes = append(p.pushes, p.log.Len())
}

type fakeForwarder struct {
	err    error
	events []string
	pusher *recordingPusher
	pushes []int
}

func (f *fakeForwarder) Forward(ctx context.Context, event *core.Event) error {
	f.events = append(f.events, event.ID)
	if f.pusher != nil {
		f.pushes = append(f.pushes, len(f.pusher.pushes))
	}
	return f.err
}

func TestRelay(t *testing.T) {
	ctx := context.Background()

	t.Run("receive keeps arrival order", func(t *testing.T) {
		l := core.NewEventLog()
		p := &recordingPusher{log: l}
		r := core.NewRelay(&core.RelayOptions{Log: l, Pusher: p})

		e1, err := r.Receive(ctx, "s1", json.RawMessage(`{"n":1}`))
		require.NoError(t, err)
		e2, err := r.Receive(ctx, "s1", json.RawMessage(`{"n":2}`))
		require.NoError(t, err)

		events := r.Events()
		require.Len(t, events, 2)
		assert.Equal(t, e1.ID, events[0].ID)
		assert.Equal(t, e2.ID, events[1].ID)
		assert.JSONEq(t, `{"n":1}`, string(events[0].Data))
		assert.Equal(t, "s1", events[0].Session)
		assert.Equal(t, []int{1, 2}, p.pushes)
	})

	t.Run("missing data is null", func(t *testing.T) {
		r := core.NewRelay(&core.RelayOptions{Log: core.NewEventLog()})

		e, err := r.Receive(ctx, "s1", nil)
		require.NoError(t, err)
		assert.Equal(t, "null", string(e.Data))
	})

	t.Run("clear pushes empty log", func(t *testing.T) {
		l := core.NewEventLog()
		p := &recordingPusher{log: l}
		r := core.NewRelay(&core.RelayOptions{Log: l, Pusher: p})

		_, err := r.Receive(ctx, "s1", json.RawMessage(`1`))
		require.NoError(t, err)
		r.Clear()

		assert.Empty(t, r.Events())
		assert.Equal(t, []int{1, 0}, p.pushes)
	})

	t.Run("forward failure is swallowed", func(t *testing.T) {
		f := &fakeForwarder{err: errors.New("broker down")}
		r := core.NewRelay(&core.RelayOptions{Log: core.NewEventLog(), Forwarder: f})

		e, err := r.Receive(ctx, "s1", json.RawMessage(`"x"`))
		require.NoError(t, err)

		assert.Equal(t, []string{e.ID}, f.events)
		assert.Len(t, r.Events(), 1)
	})

	t.Run("pushes before forwarding", func(t *testing.T) {
		l := core.NewEventLog()
		p := &recordingPusher{log: l}
		f := &fakeForwarder{pusher: p}
		r := core.NewRelay(&core.RelayOptions{Log: l, Pusher: p, Forwarder: f})

		_, err := r.Receive(ctx, "s1", json.RawMessage(`1`))
		require.NoError(t, err)

		assert.Equal(t, []int{1}, f.pushes)
	})
}
