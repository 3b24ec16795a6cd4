package room

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"declare-server/pkg/playable"
	"declare-server/pkg/playable/declare"
)

type state int

const (
	stateClientEvent state = iota
	stateGameEvent
	stateGameEnded
)

// Status is the lifecycle phase of a room
type Status string

// Room statuses
const (
	StatusWaiting Status = "waiting"
	StatusPlaying Status = "playing"
	StatusEnded   Status = "ended"
)

const maxSeats = 8

// Seat is a player's place at the room
type Seat struct {
	PlayerID  int64  `json:"playerId"`
	Name      string `json:"name"`
	IsHost    bool   `json:"isHost"`
	Connected bool   `json:"connected"`
	Score     int    `json:"score"`
}

// Room owns a single game session. All mutation happens inside the run
// loop, so game handlers run to completion without locks.
type Room struct {
	registry *Registry
	code     string
	clients  map[*Client]bool
	lock     sync.RWMutex

	// the following must only be touched from the run loop
	game       playable.Playable
	seats      []*Seat
	seatsByID  map[int64]*Seat
	status     Status
	lastResult *playable.GameOverDetails
	options    declare.Options

	logMessages []*playable.LogMessage

	gameLog <-chan []*playable.LogMessage
	tick    <-chan time.Time
	ticker  *time.Ticker

	execInRunLoop chan func()
	stateChanged  chan state
	close         chan bool
}

// NewRoom creates a new room object
// This is called from a blocking state, so it needs to return quickly
func NewRoom(registry *Registry, code string, options declare.Options) *Room {
	return &Room{
		registry:      registry,
		code:          code,
		clients:       make(map[*Client]bool),
		seatsByID:     make(map[int64]*Seat),
		status:        StatusWaiting,
		options:       options,
		execInRunLoop: make(chan func(), 256),
		stateChanged:  make(chan state, 256),
		close:         make(chan bool),
	}
}

// Code returns the room's join code
func (r *Room) Code() string {
	return r.code
}

// Status returns the room's lifecycle phase
func (r *Room) Status() Status {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.status
}

// NOTE: must only be called from the run loop
func (r *Room) setStatus(s Status) {
	r.lock.Lock()
	r.status = s
	r.lock.Unlock()
}

// Clients will return a slice of connected (at the time) clients
func (r *Room) Clients() []*Client {
	r.lock.RLock()
	defer r.lock.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
	}

	return clients
}

// Open starts the run loop
func (r *Room) Open() {
	go r.runLoop()
}

func (r *Room) runLoop() {
	log := logrus.WithField("room", r.code)
	log.Debug("creating room run loop")

	for {
		select {
		case s := <-r.stateChanged:
			switch s {
			case stateClientEvent:
				r.sendRoomState()
			case stateGameEvent:
				r.sendGameData()
			case stateGameEnded:
				r.sendGameEnded()
				r.sendGameData()
				r.sendRoomState()
			}
		case fn := <-r.execInRunLoop:
			fn()
		case messages := <-r.gameLog:
			r.addLogMessages(messages)
			r.broadcast(&playable.Response{
				Key:  "logs",
				Data: messages,
			})
		case <-r.tick:
			r.tickGame()
		case <-r.close:
			log.Debug("terminating room run loop")
			if r.ticker != nil {
				r.ticker.Stop()
			}
			return
		}
	}
}

// AddClient adds a client
// This method must return quickly
func (r *Room) AddClient(client *Client) {
	r.lock.Lock()
	client.room = r
	r.clients[client] = true
	r.lock.Unlock()

	r.execInRunLoop <- func() {
		r.seatClient(client)
		r.sendRoomState()

		if len(r.logMessages) > 0 {
			client.Send <- &playable.Response{
				Key:  "logs",
				Data: r.logMessages,
			}
		}

		if r.game == nil {
			return
		}

		gs, err := r.game.GetPlayerState(client.playerID)
		if err != nil {
			logrus.WithError(err).Error("could not get player state")
			return
		}

		client.Send <- gs
	}
}

// RemoveClient removes a client
// This method must return quickly
func (r *Room) RemoveClient(client *Client) (lastClient bool) {
	r.lock.Lock()
	delete(r.clients, client)
	nClients := len(r.clients)
	r.lock.Unlock()

	r.execInRunLoop <- func() {
		r.unseatClient(client)
		r.sendRoomState()
	}

	return nClients == 0
}

// EndShift is called when the room is no longer needed
func (r *Room) EndShift() {
	close(r.close)
}

// NOTE: must only be called from the run loop
func (r *Room) seatClient(client *Client) {
	// a new socket for the same player replaces any stale one
	for _, other := range r.Clients() {
		if other != client && other.playerID == client.playerID {
			select {
			case other.Close <- "connected from another location":
			default:
				logrus.WithField("client", other.String()).Warn("could not close stale connection")
			}
		}
	}

	if seat, ok := r.seatsByID[client.playerID]; ok {
		seat.Connected = true
		seat.Name = client.name
		if conn, ok := r.game.(playable.ConnectionAware); ok {
			if conn.SetPlayerConnected(client.playerID, true) {
				r.stateChanged <- stateGameEvent
			}
		}
		return
	}

	// new players can only sit down between games
	if r.status == StatusPlaying || len(r.seats) == maxSeats {
		return
	}

	seat := &Seat{
		PlayerID:  client.playerID,
		Name:      client.name,
		IsHost:    len(r.seats) == 0,
		Connected: true,
	}

	r.seats = append(r.seats, seat)
	r.seatsByID[client.playerID] = seat
}

// NOTE: must only be called from the run loop
func (r *Room) unseatClient(client *Client) {
	seat, ok := r.seatsByID[client.playerID]
	if !ok {
		return
	}

	// the client may have reconnected on a new socket already
	for _, other := range r.Clients() {
		if other.playerID == client.playerID {
			return
		}
	}

	seat.Connected = false

	// before a game begins there is nothing to hold the seat for
	if r.status == StatusWaiting {
		r.removeSeat(seat)
		if seat.IsHost {
			r.migrateHost(seat)
		}
		return
	}

	if conn, ok := r.game.(playable.ConnectionAware); ok {
		if conn.SetPlayerConnected(client.playerID, false) {
			r.stateChanged <- stateGameEvent
		}
	}

	if seat.IsHost && r.status != StatusPlaying {
		r.migrateHost(seat)
	}
}

// NOTE: must only be called from the run loop
func (r *Room) removeSeat(seat *Seat) {
	delete(r.seatsByID, seat.PlayerID)
	for i, s := range r.seats {
		if s == seat {
			r.seats = append(r.seats[:i], r.seats[i+1:]...)
			return
		}
	}
}

// NOTE: must only be called from the run loop
func (r *Room) migrateHost(from *Seat) {
	for _, seat := range r.seats {
		if seat.Connected {
			from.IsHost = false
			seat.IsHost = true
			return
		}
	}
}

// NOTE: must only be called from the run loop
func (r *Room) broadcast(msg interface{}) {
	for _, client := range r.Clients() {
		select {
		case client.Send <- msg:
		default:
			logrus.WithField("client", client.String()).Warn("send buffer full; dropping message")
		}
	}
}

// NOTE: must only be called from the run loop
func (r *Room) sendGameEnded() {
	r.broadcast(&playable.Response{
		Key:  "gameEnded",
		Data: r.lastResult,
	})
}

// NOTE: must only be called from the run loop
func (r *Room) sendGameData() {
	if r.game == nil {
		return
	}

	for _, client := range r.Clients() {
		data, err := r.game.GetPlayerState(client.playerID)
		if err != nil {
			logrus.WithError(err).Error("could not get player state")
			continue
		}

		select {
		case client.Send <- data:
		default:
			logrus.WithField("client", client.String()).Warn("send buffer full; dropping game state")
		}
	}
}

// NOTE: must only be called from the run loop
func (r *Room) sendRoomState() {
	r.broadcast(&playable.Response{
		Key:  "clientState",
		Data: r.roomState(),
	})
}

func (r *Room) roomState() *roomState {
	return &roomState{
		Code:   r.code,
		Status: r.status,
		Seats:  r.seats,
	}
}

// canHostOrSendError will send an error message to the client if they are not the room's host
func canHost(ctx string, r *Room, c *Client) bool {
	seat, ok := r.seatsByID[c.playerID]
	if !ok || !seat.IsHost {
		c.Send <- newErrorResponse(ctx, errors.New("only the host can do that"))
		return false
	}

	return true
}

// ReceivedMessage is called when a client sends a message to the server
func (r *Room) ReceivedMessage(c *Client, msg *playable.PayloadIn) {
	switch msg.Action {
	case "startGame":
		r.execInRunLoop <- func() {
			if !canHost(msg.Context, r, c) {
				return
			}

			if err := r.startGame(); err != nil {
				c.Send <- newErrorResponse(msg.Context, err)
				return
			}

			c.Send <- playable.OK(msg.Context)
		}
	case "terminateGame":
		r.execInRunLoop <- func() {
			if !canHost(msg.Context, r, c) {
				return
			}

			r.endGame(nil)
			c.Send <- playable.OK(msg.Context)
		}
	case "roomState":
		r.execInRunLoop <- func() {
			c.Send <- &playable.Response{
				Key:     "clientState",
				Context: msg.Context,
				Data:    r.roomState(),
			}
		}
	default:
		r.execInRunLoop <- func() {
			r.gameAction(c, msg)
		}
	}
}

// NOTE: must only be called from the run loop
func (r *Room) gameAction(c *Client, msg *playable.PayloadIn) {
	game := r.game
	if game == nil || r.status != StatusPlaying {
		c.Send <- newErrorResponse(msg.Context, errors.New("there is no game in progress"))
		return
	}

	action, updateState, err := game.Action(c.playerID, msg)
	if err != nil {
		logrus.WithError(err).WithField("client", c.String()).Debug("could not perform action")
		c.Send <- newErrorResponse(msg.Context, err)
		return
	}

	if action != nil {
		action.Context = msg.Context
		c.Send <- action
	}

	if updateState {
		r.stateChanged <- stateGameEvent
	}

	if details, isOver := game.GetEndOfGameDetails(); isOver {
		r.endGame(details)
	}
}

// NOTE: must only be called from the run loop
func (r *Room) startGame() error {
	if r.status == StatusPlaying {
		return errors.New("a game is already in progress")
	}

	playerIDs := make([]int64, 0, len(r.seats))
	for _, seat := range r.seats {
		if seat.Connected {
			playerIDs = append(playerIDs, seat.PlayerID)
		}
	}

	game, err := declare.NewGame(r.code, playerIDs, r.options)
	if err != nil {
		return err
	}

	r.game = game
	r.lastResult = nil
	r.setStatus(StatusPlaying)
	r.gameLog = game.LogChan()

	if tickable, ok := r.game.(playable.Tickable); ok {
		r.ticker = time.NewTicker(tickable.Interval())
		r.tick = r.ticker.C
	}

	logrus.WithFields(logrus.Fields{
		"room":    r.code,
		"game":    game.Name(),
		"players": len(playerIDs),
	}).Info("game started")

	r.stateChanged <- stateGameEvent
	r.stateChanged <- stateClientEvent

	return nil
}

// endGame finalizes the round. The finished game object is kept around
// so late state requests still see the revealed hands.
// NOTE: must only be called from the run loop
func (r *Room) endGame(details *playable.GameOverDetails) {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
		r.tick = nil
	}

	if details != nil {
		r.lastResult = details
		for playerID, score := range details.Scores {
			if seat, ok := r.seatsByID[playerID]; ok {
				seat.Score += score
			}
		}

		r.setStatus(StatusEnded)
	} else {
		r.game = nil
		r.gameLog = nil
		r.setStatus(StatusWaiting)
	}

	r.stateChanged <- stateGameEnded
}

// NOTE: must only be called from the run loop
func (r *Room) tickGame() {
	tickable, ok := r.game.(playable.Tickable)
	if !ok || r.status != StatusPlaying {
		return
	}

	updated, err := tickable.Tick()
	if err != nil {
		logrus.WithError(err).WithField("room", r.code).Error("tick failed")
		return
	}

	if updated {
		r.stateChanged <- stateGameEvent
	}

	if details, isOver := r.game.GetEndOfGameDetails(); isOver {
		r.endGame(details)
	}
}
