package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFanout_Targets(t *testing.T) {
	req := require.New(t)
	h := newHub()
	a1, a2, b := testConn("a1", "alice"), testConn("a2", "alice"), testConn("b1", "bob")
	for _, c := range []*Conn{a1, a2, b} {
		h.registry.Register(c)
	}
	_, _ = h.rooms.Join(a1, "r1")
	_, _ = h.rooms.Join(b, "r1")

	d := h.fanout.Dispatch(ToUser{UserID: "alice"}, Event{Name: "x"})
	req.Equal(Delivery{Targets: 2, Delivered: 2}, d)
	req.Len(drain(t, a1), 1)
	req.Len(drain(t, a2), 1)
	req.Empty(drain(t, b))

	d = h.fanout.Dispatch(ToRoom{RoomID: "r1", Excluding: a1}, Event{Name: "y"})
	req.Equal(1, d.Delivered)
	req.Empty(drain(t, a1))
	req.Equal([]string{"y"}, eventNames(drain(t, b)))

	d = h.fanout.Dispatch(Broadcast{Excluding: b}, Event{Name: "z"})
	req.Equal(2, d.Delivered)
	req.Empty(drain(t, b))

	d = h.fanout.Dispatch(ToConn{Conn: a2}, Event{Name: "w"})
	req.Equal(1, d.Delivered)
	req.Equal([]string{"z", "w"}, eventNames(drain(t, a2)))

	req.Equal(Delivery{}, h.fanout.Dispatch(ToUser{UserID: "nobody"}, Event{Name: "x"}))
}

func TestFanout_FullQueueDropsWithoutBlocking(t *testing.T) {
	req := require.New(t)
	h := newHub()
	slow := NewConn("slow", Identity{ID: "alice"}, nil, 1)
	fast := testConn("fast", "alice")
	h.registry.Register(slow)
	h.registry.Register(fast)

	h.fanout.Dispatch(ToUser{UserID: "alice"}, Event{Name: "1"})
	d := h.fanout.Dispatch(ToUser{UserID: "alice"}, Event{Name: "2"})

	req.Equal(Delivery{Targets: 2, Delivered: 1, Dropped: 1}, d)
	req.Equal(int64(1), slow.Dropped())
	req.Equal([]string{"1", "2"}, eventNames(drain(t, fast)))
}

func TestFanout_ClosedConnIsSkipped(t *testing.T) {
	h := newHub()
	c := testConn("c1", "alice")
	h.registry.Register(c)
	c.Close()

	d := h.fanout.Dispatch(ToUser{UserID: "alice"}, Event{Name: "x"})
	require.Equal(t, Delivery{Targets: 1, Dropped: 1}, d)
	require.Equal(t, int64(0), c.Dropped())
}

func TestFanout_PreservesOrderPerConnection(t *testing.T) {
	h := newHub()
	c := NewConn("c1", Identity{ID: "alice"}, nil, 100)
	h.registry.Register(c)
	want := make([]string, 0, 50)
	for i := 0; i < 50; i++ {
		name := string(rune('A' + i%26))
		want = append(want, name)
		h.fanout.Dispatch(ToUser{UserID: "alice"}, Event{Name: name})
	}
	require.Equal(t, want, eventNames(drain(t, c)))
}
