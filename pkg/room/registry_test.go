package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"declare-server/pkg/playable/declare"
)

func TestRegistry_CreateRoom(t *testing.T) {
	a := assert.New(t)
	registry := NewRegistry(declare.DefaultOptions())

	r, err := registry.CreateRoom()
	a.NoError(err)
	t.Cleanup(r.EndShift)
	a.Len(r.Code(), 6)

	found, ok := registry.Room(r.Code())
	a.True(ok)
	a.Same(r, found)
}

func TestRegistry_roomCreatedOnFirstJoin(t *testing.T) {
	a := assert.New(t)
	registry := NewRegistry(declare.DefaultOptions())
	registry.StartShift()

	_, ok := registry.Room("newroo")
	a.False(ok)

	c1 := NewClient(nil, 1, "alice", "newroo")
	registry.ClientConnected(c1)
	receive(t, c1, "clientState")

	r, ok := registry.Room("newroo")
	a.True(ok)
	a.Equal(StatusWaiting, r.Status())

	// a second join lands in the same room
	c2 := NewClient(nil, 2, "bob", "newroo")
	registry.ClientConnected(c2)
	receive(t, c2, "clientState")

	again, _ := registry.Room("newroo")
	a.Same(r, again)
	runInLoop(t, r, func() {
		a.Len(r.seats, 2)
	})

	// the room is torn down once the last waiting client leaves
	registry.ClientDisconnected(c2)
	registry.ClientDisconnected(c1)
	waitForRoomGone(t, registry, "newroo")
}

func waitForRoomGone(t *testing.T, registry *Registry, code string) {
	t.Helper()

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if _, ok := registry.Room(code); !ok {
			return
		}

		time.Sleep(time.Millisecond * 10)
	}

	t.Fatalf("room %s was not destroyed", code)
}
