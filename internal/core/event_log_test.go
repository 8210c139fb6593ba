package core_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timada-org/hookrelay/internal/core"
)

func TestEventLog(t *testing.T) {

	t.Run("append order", func(t *testing.T) {
		l := core.NewEventLog()
		l.Append(core.Event{ID: "e1", Data: json.RawMessage(`1`)})
		l.Append(core.Event{ID: "e2", Data: json.RawMessage(`2`)})

		events := l.Snapshot()
		require.Len(t, events, 2)
		assert.Equal(t, "e1", events[0].ID)
		assert.Equal(t, "e2", events[1].ID)
	})

	t.Run("clear", func(t *testing.T) {
		l := core.NewEventLog()
		l.Append(core.Event{ID: "e1"})
		l.Clear()

		assert.Equal(t, 0, l.Len())
		assert.Empty(t, l.Snapshot())

		l.Append(core.Event{ID: "e2"})
		assert.Equal(t, 1, l.Len())
	})

	t.Run("snapshot is a copy", func(t *testing.T) {
		l := core.NewEventLog()
		l.Append(core.Event{ID: "e1"})

		events := l.Snapshot()
		events[0].ID = "changed"

		assert.Equal(t, "e1", l.Snapshot()[0].ID)
	})
}
