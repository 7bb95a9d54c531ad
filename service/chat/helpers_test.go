package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type wireEvent struct {
	Name string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

func testConn(id, userID string) *Conn {
	return NewConn(id, Identity{ID: userID, Username: "name-" + userID}, nil, 16)
}

// drain returns every event queued on c so far.
func drain(t *testing.T, c *Conn) []wireEvent {
	t.Helper()
	var out []wireEvent
	for {
		select {
		case payload := <-c.Outbound():
			var ev wireEvent
			require.NoError(t, json.Unmarshal(payload, &ev))
			out = append(out, ev)
		default:
			return out
		}
	}
}

func eventNames(evs []wireEvent) []string {
	names := make([]string, 0, len(evs))
	for _, ev := range evs {
		names = append(names, ev.Name)
	}
	return names
}

func decodeData[T any](t *testing.T, ev wireEvent) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(ev.Data, &v))
	return v
}

type hub struct {
	registry *Registry
	rooms    *Rooms
	fanout   *Fanout
}

func newHub() *hub {
	r := NewRegistry()
	rooms := NewRooms()
	return &hub{registry: r, rooms: rooms, fanout: NewFanout(r, rooms, zap.NewNop())}
}
