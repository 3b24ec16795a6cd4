package room

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"declare-server/pkg/playable"
	"declare-server/pkg/playable/declare"
)

func testRoom(t *testing.T) *Room {
	t.Helper()

	r := NewRoom(NewRegistry(declare.DefaultOptions()), "test01", declare.DefaultOptions())
	r.Open()
	t.Cleanup(r.EndShift)
	return r
}

// runInLoop executes fn inside the room's run loop and waits for it
func runInLoop(t *testing.T, r *Room, fn func()) {
	t.Helper()

	done := make(chan bool)
	r.execInRunLoop <- func() {
		fn()
		done <- true
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("run loop did not execute")
	}
}

// receive drains the client's send channel until a response with the
// given key arrives
func receive(t *testing.T, c *Client, key string) *playable.Response {
	t.Helper()

	deadline := time.After(time.Second)
	for {
		select {
		case msg := <-c.Send:
			if resp, ok := msg.(*playable.Response); ok && resp.Key == key {
				return resp
			}
		case <-deadline:
			t.Fatalf("did not receive %q", key)
			return nil
		}
	}
}

func TestRoom_AddAndRemoveClient(t *testing.T) {
	r := testRoom(t)
	c := NewClient(nil, 1, "alice", r.code)
	c2 := NewClient(nil, 2, "bob", r.code)

	r.AddClient(c)
	r.AddClient(c2)

	assert.False(t, r.RemoveClient(c))
	assert.True(t, r.RemoveClient(c2))
}

func TestRoom_seating(t *testing.T) {
	a := assert.New(t)
	r := testRoom(t)

	c1 := NewClient(nil, 1, "alice", r.code)
	c2 := NewClient(nil, 2, "bob", r.code)
	r.AddClient(c1)
	r.AddClient(c2)

	runInLoop(t, r, func() {
		a.Len(r.seats, 2)
		a.True(r.seats[0].IsHost, "first to arrive hosts")
		a.False(r.seats[1].IsHost)
		a.True(r.seats[0].Connected)
	})

	// leaving before the game starts abandons the seat
	r.RemoveClient(c2)
	runInLoop(t, r, func() {
		a.Len(r.seats, 1)
		a.Equal(int64(1), r.seats[0].PlayerID)
	})
}

func TestRoom_hostMigration(t *testing.T) {
	a := assert.New(t)
	r := testRoom(t)

	c1 := NewClient(nil, 1, "alice", r.code)
	c2 := NewClient(nil, 2, "bob", r.code)
	r.AddClient(c1)
	r.AddClient(c2)
	r.RemoveClient(c1)

	runInLoop(t, r, func() {
		a.Len(r.seats, 1)
		a.True(r.seats[0].IsHost, "host duty passes to the remaining player")
		a.Equal(int64(2), r.seats[0].PlayerID)
	})
}

func TestRoom_reconnectDuringGame(t *testing.T) {
	a := assert.New(t)
	r := testRoom(t)

	c1 := NewClient(nil, 1, "alice", r.code)
	c2 := NewClient(nil, 2, "bob", r.code)
	r.AddClient(c1)
	r.AddClient(c2)

	r.ReceivedMessage(c1, &playable.PayloadIn{Action: "startGame"})
	receive(t, c1, "game")

	// once playing, a leaver keeps their seat
	r.RemoveClient(c2)
	runInLoop(t, r, func() {
		a.Len(r.seats, 2)
		a.False(r.seats[1].Connected)
	})

	c2b := NewClient(nil, 2, "bob", r.code)
	r.AddClient(c2b)
	runInLoop(t, r, func() {
		a.Len(r.seats, 2)
		a.True(r.seats[1].Connected)
	})

	// the rejoining player is caught up on the game state
	receive(t, c2b, "game")
}

func TestRoom_startGame(t *testing.T) {
	a := assert.New(t)
	r := testRoom(t)

	c1 := NewClient(nil, 1, "alice", r.code)
	c2 := NewClient(nil, 2, "bob", r.code)
	r.AddClient(c1)
	r.AddClient(c2)

	// only the host can start
	r.ReceivedMessage(c2, &playable.PayloadIn{Action: "startGame", Context: "x"})
	resp := receive(t, c2, "error")
	a.Equal("only the host can do that", resp.Value)

	r.ReceivedMessage(c1, &playable.PayloadIn{Action: "startGame", Context: "start"})
	resp = receive(t, c1, "status")
	a.Equal("start", resp.Context)

	a.Equal(StatusPlaying, r.Status())

	// both players get a per-viewer game state
	receive(t, c1, "game")
	receive(t, c2, "game")

	// a second start is rejected
	r.ReceivedMessage(c1, &playable.PayloadIn{Action: "startGame", Context: "again"})
	resp = receive(t, c1, "error")
	a.Equal("a game is already in progress", resp.Value)
}

func TestRoom_startGame_needsTwoPlayers(t *testing.T) {
	a := assert.New(t)
	r := testRoom(t)

	c1 := NewClient(nil, 1, "alice", r.code)
	r.AddClient(c1)

	r.ReceivedMessage(c1, &playable.PayloadIn{Action: "startGame"})
	resp := receive(t, c1, "error")
	a.Contains(resp.Value, "at least two players")
}

func TestRoom_gameActionWithoutGame(t *testing.T) {
	r := testRoom(t)

	c1 := NewClient(nil, 1, "alice", r.code)
	r.AddClient(c1)

	r.ReceivedMessage(c1, &playable.PayloadIn{Action: "draw"})
	resp := receive(t, c1, "error")
	assert.Equal(t, "there is no game in progress", resp.Value)
}

func TestRoom_gameEnd(t *testing.T) {
	a := assert.New(t)
	r := testRoom(t)

	c1 := NewClient(nil, 1, "alice", r.code)
	c2 := NewClient(nil, 2, "bob", r.code)
	r.AddClient(c1)
	r.AddClient(c2)

	r.ReceivedMessage(c1, &playable.PayloadIn{Action: "startGame"})
	receive(t, c1, "game")

	// an immediate declare ends the round
	r.ReceivedMessage(c1, &playable.PayloadIn{Action: "declare"})
	receive(t, c1, "gameEnded")
	receive(t, c2, "gameEnded")

	a.Equal(StatusEnded, r.Status())

	runInLoop(t, r, func() {
		a.NotNil(r.lastResult)
		total := 0
		for _, seat := range r.seats {
			total += seat.Score
		}
		a.NotZero(total, "round scores accumulate on the seats")
	})

	// the host can deal again
	r.ReceivedMessage(c1, &playable.PayloadIn{Action: "startGame"})
	runInLoop(t, r, func() {})
	a.Equal(StatusPlaying, r.Status())
}

func TestRoom_roomState(t *testing.T) {
	a := assert.New(t)
	r := testRoom(t)

	c1 := NewClient(nil, 1, "alice", r.code)
	r.AddClient(c1)

	r.ReceivedMessage(c1, &playable.PayloadIn{Action: "roomState", Context: "rs"})
	resp := receive(t, c1, "clientState")
	state := resp.Data.(*roomState)
	a.Equal(r.code, state.Code)
	a.Equal(StatusWaiting, state.Status)
	a.Len(state.Seats, 1)
}

func TestRoom_addLogMessages(t *testing.T) {
	a := assert.New(t)
	r := NewRoom(nil, "logs", declare.DefaultOptions())

	for i := 0; i < 30; i++ {
		r.addLogMessages(playable.SimpleLogMessageSlice(0, "message"))
	}

	a.Len(r.logMessages, logMessageLimit)
}

func TestRoom_staleSocketReplaced(t *testing.T) {
	a := assert.New(t)
	r := testRoom(t)

	c1 := NewClient(nil, 1, "alice", r.code)
	r.AddClient(c1)
	receive(t, c1, "clientState")

	// the same player opens a second socket without closing the first
	c1b := NewClient(nil, 1, "alice", r.code)
	r.AddClient(c1b)
	receive(t, c1b, "clientState")

	select {
	case reason := <-c1.Close:
		a.Equal("connected from another location", reason)
	case <-time.After(time.Second):
		t.Fatal("stale client was not closed")
	}

	// the seat stays singular and connected
	runInLoop(t, r, func() {
		a.Len(r.seats, 1)
		a.True(r.seats[0].Connected)
	})

	// the read loop of the old socket ends with a disconnect; the seat
	// survives because the replacement socket is still attached
	r.RemoveClient(c1)
	runInLoop(t, r, func() {
		a.Len(r.seats, 1)
		a.True(r.seats[0].Connected)
	})
}
