package chat

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRooms_JoinLeaveIdempotent(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms()
	c := testConn("c1", "alice")

	added, err := rooms.Join(c, "r1")
	req.NoError(err)
	req.True(added)
	added, err = rooms.Join(c, "r1")
	req.NoError(err)
	req.False(added)
	req.True(rooms.IsSubscribed(c, "r1"))
	req.Len(collect(rooms.SubscribersOf("r1")), 1)

	req.True(rooms.Leave(c, "r1"))
	req.False(rooms.Leave(c, "r1"))
	req.False(rooms.IsSubscribed(c, "r1"))
	req.Equal(0, rooms.Count())
}

func TestRooms_DropAll(t *testing.T) {
	req := require.New(t)
	rooms := NewRooms()
	c, other := testConn("c1", "alice"), testConn("c2", "bob")

	for _, id := range []string{"r2", "r1", "r3"} {
		_, err := rooms.Join(c, id)
		req.NoError(err)
	}
	_, err := rooms.Join(other, "r1")
	req.NoError(err)

	req.Equal([]string{"r1", "r2", "r3"}, rooms.RoomsOf(c))
	req.Equal([]string{"r1", "r2", "r3"}, rooms.DropAll(c))
	req.Empty(rooms.RoomsOf(c))
	req.Empty(rooms.DropAll(c))

	subs := collect(rooms.SubscribersOf("r1"))
	req.Len(subs, 1)
	req.Contains(subs, "c2")
	req.Equal(1, rooms.Count())
}

func TestRooms_ClosedConnCannotJoin(t *testing.T) {
	rooms := NewRooms()
	c := testConn("c1", "alice")
	c.Close()

	added, err := rooms.Join(c, "r1")
	require.False(t, added)
	require.True(t, errors.Is(err, ErrConnClosed))
	require.Empty(t, collect(rooms.SubscribersOf("r1")))
}

func TestRooms_SnapshotIsStable(t *testing.T) {
	rooms := NewRooms()
	a, b := testConn("c1", "alice"), testConn("c2", "bob")
	_, _ = rooms.Join(a, "r1")
	snap := rooms.SubscribersOf("r1")
	_, _ = rooms.Join(b, "r1")

	require.Len(t, collect(snap), 1)
	require.Len(t, collect(rooms.SubscribersOf("r1")), 2)
}
