package room

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"declare-server/pkg/playable/declare"
	"declare-server/pkg/token"
)

const roomCodeLength = 6

// Registry is responsible for dispatching players to rooms
type Registry struct {
	rooms      map[string]*Room
	lock       sync.Mutex
	options    declare.Options
	connect    chan *Client
	disconnect chan *Client
}

// NewRegistry returns a new dispatch object
func NewRegistry(options declare.Options) *Registry {
	return &Registry{
		rooms:      make(map[string]*Room),
		options:    options,
		connect:    make(chan *Client, 256),
		disconnect: make(chan *Client, 256),
	}
}

// StartShift starts the registry run loop
func (g *Registry) StartShift() {
	go g.runLoop()
}

func (g *Registry) runLoop() {
	for {
		select {
		case client := <-g.connect:
			logrus.WithField("player", client.String()).Debug("client connected")
			g.EnsureRoom(client.roomCode).AddClient(client)
		case client := <-g.disconnect:
			logrus.WithField("player", client.String()).Debug("client disconnected")
			room, ok := g.Room(client.roomCode)
			if !ok {
				logrus.WithField("room", client.roomCode).WithField("type", "exception").Error("room not found")
				continue
			}

			if room.RemoveClient(client) && room.Status() == StatusWaiting {
				room.EndShift()

				g.lock.Lock()
				delete(g.rooms, client.roomCode)
				g.lock.Unlock()
			}
		}
	}
}

// CreateRoom creates a new room with a unique join code and starts its
// run loop
func (g *Registry) CreateRoom() (*Room, error) {
	g.lock.Lock()
	defer g.lock.Unlock()

	for attempts := 0; attempts < 5; attempts++ {
		code, err := token.Generate(roomCodeLength)
		if err != nil {
			return nil, err
		}

		if _, exists := g.rooms[code]; exists {
			continue
		}

		room := NewRoom(g, code, g.options)
		room.Open()
		g.rooms[code] = room

		logrus.WithField("room", code).Info("room created")
		return room, nil
	}

	return nil, errors.New("could not generate a unique room code")
}

// EnsureRoom returns the room with the given code, creating it on the
// first join
func (g *Registry) EnsureRoom(code string) *Room {
	g.lock.Lock()
	defer g.lock.Unlock()

	if room, ok := g.rooms[code]; ok {
		return room
	}

	room := NewRoom(g, code, g.options)
	room.Open()
	g.rooms[code] = room

	logrus.WithField("room", code).Info("room created")
	return room
}

// Room returns the room with the given code
func (g *Registry) Room(code string) (*Room, bool) {
	g.lock.Lock()
	defer g.lock.Unlock()

	room, ok := g.rooms[code]
	return room, ok
}

// ClientConnected is called when a client connects to the server
func (g *Registry) ClientConnected(client *Client) {
	g.connect <- client
}

// ClientDisconnected is called when a client disconnects from the server
func (g *Registry) ClientDisconnected(client *Client) {
	g.disconnect <- client
}
