package room

import (
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"declare-server/pkg/playable"
)

// Client is a player connected to a room via websocket
type Client struct {
	// Conn is the underlying websocket connection
	Conn *websocket.Conn

	// Send is a channel for sending messages to the client
	Send chan interface{}

	// Close is a channel for closing the client
	Close chan string

	// CloseError contains the reason why the connection was closed
	CloseError error

	room *Room

	playerID int64
	name     string
	roomCode string
}

// NewClient returns a new client object
func NewClient(conn *websocket.Conn, playerID int64, name, roomCode string) *Client {
	return &Client{
		Conn:     conn,
		Send:     make(chan interface{}, 256),
		Close:    make(chan string, 1),
		playerID: playerID,
		name:     name,
		roomCode: roomCode,
	}
}

// PlayerID returns the connected player's ID
func (c *Client) PlayerID() int64 {
	return c.playerID
}

// Name returns the connected player's display name
func (c *Client) Name() string {
	return c.name
}

// RoomCode returns the code of the room the client connected to
func (c *Client) RoomCode() string {
	return c.roomCode
}

// String returns a traceable identifier for the player and room
func (c *Client) String() string {
	return fmt.Sprintf("%d:%s", c.playerID, c.roomCode)
}

// ReceivedMessage is called when the server receives a message from a connected client
func (c *Client) ReceivedMessage(msg *playable.PayloadIn) {
	if c.room == nil {
		logrus.WithField("msg", msg).Warn("received message, but room not found")
		return
	}

	c.room.ReceivedMessage(c, msg)
}
