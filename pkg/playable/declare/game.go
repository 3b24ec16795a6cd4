package declare

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"declare-server/internal/rng"
	"declare-server/pkg/deck"
	"declare-server/pkg/playable"
)

const initialHandSize = 4

// starting positions every player is allowed to look at once dealt
var initialKnownPositions = []int{2, 3}

var (
	// ErrNotYourTurn is returned when a player acts out of turn
	ErrNotYourTurn = errors.New("it is not your turn")

	// ErrEliminationLocked is returned when an elimination is attempted while another one is open
	ErrEliminationLocked = errors.New("an elimination is already in progress")

	errorHoldingDrawnCard = errors.New("you are holding a drawn card")
)

// Options configures a game of Declare
type Options struct {
	// KingConfirmWindow is how long a king swap waits for confirmation
	// before it auto-cancels
	KingConfirmWindow time.Duration

	// Seed for the deck shuffle. 0 means a time-based seed.
	Seed int64
}

// DefaultOptions returns the standard game options
func DefaultOptions() Options {
	return Options{
		KingConfirmWindow: time.Second * 6,
	}
}

// Game is a single round of Declare
type Game struct {
	roomID          string
	options         Options
	deck            *deck.Deck
	discards        []*deck.Card
	participants    []*Participant
	idToParticipant map[int64]*Participant

	turnIndex int

	// drawnCard is held by the current player between draw and
	// discardDrawn/replaceWithDrawn; it is not part of any hand
	drawnCard *deck.Card

	pendingKingSwap *pendingKingSwap
	pendingGive     *pendingEliminationGive

	eliminationLocked bool

	declarerID int64
	done       bool
	result     *playable.GameOverDetails

	rng     rng.Generator
	logChan chan []*playable.LogMessage
}

// NewGame returns a new game of Declare with hands dealt
func NewGame(roomID string, playerIDs []int64, options Options) (*Game, error) {
	if len(playerIDs) < 2 {
		return nil, errors.New("game requires at least two players")
	}

	if len(playerIDs) > 8 {
		return nil, errors.New("game supports at most eight players")
	}

	if options.KingConfirmWindow <= 0 {
		options.KingConfirmWindow = DefaultOptions().KingConfirmWindow
	}

	d := deck.New()
	d.Shuffle(options.Seed)

	idToParticipant := make(map[int64]*Participant)
	participants := make([]*Participant, len(playerIDs))
	for i, id := range playerIDs {
		if _, found := idToParticipant[id]; found {
			return nil, fmt.Errorf("duplicate player: %d", id)
		}

		participants[i] = newParticipant(id)
		idToParticipant[id] = participants[i]
	}

	g := &Game{
		roomID:          roomID,
		options:         options,
		deck:            d,
		discards:        make([]*deck.Card, 0, 52),
		participants:    participants,
		idToParticipant: idToParticipant,
		rng:             rng.Crypto{},
		logChan:         make(chan []*playable.LogMessage, 256),
	}

	if err := g.deal(); err != nil {
		return nil, err
	}

	return g, nil
}

func (g *Game) deal() error {
	for pos := 0; pos < initialHandSize; pos++ {
		for _, p := range g.participants {
			card, err := g.deck.Draw()
			if err != nil {
				return err
			}

			p.hand = append(p.hand, card)
		}
	}

	for _, p := range g.participants {
		for _, pos := range initialKnownPositions {
			p.markKnown(p.hand[pos])
		}
	}

	g.sendLogMessages(playable.SimpleLogMessageSlice(0, "dealt %d cards to %d players", initialHandSize, len(g.participants)))
	return nil
}

// participant returns the participant for the player ID
func (g *Game) participant(playerID int64) (*Participant, error) {
	p, ok := g.idToParticipant[playerID]
	if !ok {
		return nil, fmt.Errorf("%d is not in this game", playerID)
	}

	return p, nil
}

// currentTurn returns the participant whose turn it is
func (g *Game) currentTurn() *Participant {
	return g.participants[g.turnIndex]
}

// requireTurn ensures the player is seated and up
func (g *Game) requireTurn(playerID int64) (*Participant, error) {
	p, err := g.participant(playerID)
	if err != nil {
		return nil, err
	}

	if g.currentTurn() != p {
		return nil, ErrNotYourTurn
	}

	return p, nil
}

func (g *Game) discardTop() *deck.Card {
	if len(g.discards) == 0 {
		return nil
	}

	return g.discards[len(g.discards)-1]
}

// moveToDiscard places the card face-up on the discard pile.
// Hand knowledge about the card is dropped so a later reshuffle into the
// draw pile starts from a clean slate.
func (g *Game) moveToDiscard(card *deck.Card) {
	card.Revealed = false
	g.forgetCard(card)
	g.discards = append(g.discards, card)
}

// forgetCard removes the card from every player's knowledge
func (g *Game) forgetCard(card *deck.Card) {
	card.Revealed = false
	for _, p := range g.participants {
		delete(p.knownCards, card.ID)
	}
}

// findCard locates a card by ID across all live hand slots
func (g *Game) findCard(id uuid.UUID) (*Participant, int, *deck.Card) {
	for _, p := range g.participants {
		for i, card := range p.hand {
			if card != nil && card.ID == id {
				return p, i, card
			}
		}
	}

	return nil, -1, nil
}

func newUUID() string {
	return uuid.New().String()
}

// drawFromPile draws the next card, recycling the discard pile (minus its
// top card) into a new shuffled draw pile if the deck is exhausted
func (g *Game) drawFromPile() (*deck.Card, error) {
	if g.deck.CardsLeft() == 0 {
		if len(g.discards) <= 1 {
			return nil, errors.New("no cards left to draw")
		}

		top := g.discardTop()
		g.deck.ShuffleDiscards(g.discards[:len(g.discards)-1])
		g.discards = []*deck.Card{top}
		g.sendLogMessages(playable.SimpleLogMessageSlice(0, "the discard pile was shuffled into a new draw pile"))
	}

	return g.deck.Draw()
}

// finishTurn is called by every terminal action of a turn. It opens a
// fresh elimination window (unless a card give is still owed) and
// advances the turn.
func (g *Game) finishTurn() {
	if g.pendingGive == nil {
		g.eliminationLocked = false
		for _, p := range g.participants {
			p.eliminatedThisRound = false
		}
	}

	g.advanceTurn()
}

// advanceTurn moves to the next eligible seat, consuming one-shot skip
// flags and passing over disconnected players
func (g *Game) advanceTurn() {
	if g.done {
		return
	}

	n := len(g.participants)
	for i := 0; i < n; i++ {
		g.turnIndex = (g.turnIndex + 1) % n
		next := g.participants[g.turnIndex]

		if !next.connected {
			continue
		}

		if next.skippedTurn {
			next.skippedTurn = false
			g.sendLogMessages(playable.SimpleLogMessageSlice(next.PlayerID, "{} was skipped"))
			continue
		}

		return
	}
}

// guardTurnAction rejects turn-machinery actions while a saga is open
func (g *Game) guardTurnAction(p *Participant) error {
	if g.done {
		return errors.New("the round is over")
	}

	if g.pendingGive != nil {
		return errors.New("an elimination card give is pending")
	}

	if g.pendingKingSwap != nil {
		return errors.New("a king swap is awaiting confirmation")
	}

	if p.activePower != 0 {
		return errors.New("you must resolve your power first")
	}

	return nil
}

// -- actions --

func (g *Game) actionDraw(playerID int64) (*playable.Response, bool, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return nil, false, err
	}

	if err := g.guardTurnAction(p); err != nil {
		return nil, false, err
	}

	if g.drawnCard != nil {
		return nil, false, errors.New("you are already holding a drawn card")
	}

	card, err := g.drawFromPile()
	if err != nil {
		return nil, false, err
	}

	g.drawnCard = card
	g.sendLogMessages(playable.SimpleLogMessageSlice(playerID, "{} drew a card"))

	return &playable.Response{
		Key:  "privateCard",
		Data: card,
	}, true, nil
}

func (g *Game) actionDiscardDrawn(playerID int64) (*playable.Response, bool, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return nil, false, err
	}

	if err := g.guardTurnAction(p); err != nil {
		return nil, false, err
	}

	if g.drawnCard == nil {
		return nil, false, errors.New("you have not drawn a card")
	}

	card := g.drawnCard
	g.drawnCard = nil
	g.moveToDiscard(card)
	g.sendLogMessages([]*playable.LogMessage{{
		UUID:      newUUID(),
		PlayerIDs: []int64{playerID},
		Cards:     []*deck.Card{card},
		Message:   "{} discarded the drawn card",
		Time:      time.Now(),
	}})

	// a jack's skip is immediate and unconditional
	if card.Rank == deck.Jack {
		next := g.participants[(g.turnIndex+1)%len(g.participants)]
		next.skippedTurn = true
		g.sendLogMessages(playable.SimpleLogMessageSlice(next.PlayerID, "{} loses their next turn"))
		g.finishTurn()
		return playable.OK(), true, nil
	}

	if isPowerRank(card.Rank) {
		p.activePower = card.Rank
		return &playable.Response{
			Key:   "powerPrompt",
			Value: powerName(card.Rank),
		}, true, nil
	}

	g.finishTurn()
	return playable.OK(), true, nil
}

func (g *Game) actionReplaceWithDrawn(playerID int64, payload *playable.PayloadIn) (*playable.Response, bool, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return nil, false, err
	}

	if err := g.guardTurnAction(p); err != nil {
		return nil, false, err
	}

	if g.drawnCard == nil {
		return nil, false, errors.New("you have not drawn a card")
	}

	cardID, ok := payload.AdditionalData.GetUUID("cardId")
	if !ok {
		return nil, false, errors.New("cardId is required")
	}

	idx, handCard := p.cardByID(cardID)
	if handCard == nil {
		return nil, false, errors.New("card not found in your hand")
	}

	drawn := g.drawnCard
	g.drawnCard = nil

	p.hand[idx] = drawn
	p.markKnown(drawn)
	g.moveToDiscard(handCard)

	g.sendLogMessages([]*playable.LogMessage{{
		UUID:      newUUID(),
		PlayerIDs: []int64{playerID},
		Cards:     []*deck.Card{handCard},
		Message:   "{} swapped the drawn card into their hand",
		Time:      time.Now(),
	}})

	g.finishTurn()
	return playable.OK(), true, nil
}

// actionDiscard is the legacy direct discard of a hand card without a
// prior draw. The slot is removed, not eliminated.
func (g *Game) actionDiscard(playerID int64, payload *playable.PayloadIn) (*playable.Response, bool, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return nil, false, err
	}

	if err := g.guardTurnAction(p); err != nil {
		return nil, false, err
	}

	if g.drawnCard != nil {
		return nil, false, errorHoldingDrawnCard
	}

	cardID, ok := payload.AdditionalData.GetUUID("cardId")
	if !ok {
		return nil, false, errors.New("cardId is required")
	}

	idx, card := p.cardByID(cardID)
	if card == nil {
		return nil, false, errors.New("card not found in your hand")
	}

	p.hand = append(p.hand[:idx], p.hand[idx+1:]...)
	g.moveToDiscard(card)
	g.sendLogMessages(playable.SimpleLogMessageSlice(playerID, "{} discarded a card"))

	g.finishTurn()
	return playable.OK(), true, nil
}

// actionSwap is the legacy blind trade: the acting player offers one of
// their own cards and receives a uniformly random card from the chosen
// opponent. The opponent slot is never chosen by the actor.
func (g *Game) actionSwap(playerID int64, payload *playable.PayloadIn) (*playable.Response, bool, error) {
	p, err := g.requireTurn(playerID)
	if err != nil {
		return nil, false, err
	}

	if err := g.guardTurnAction(p); err != nil {
		return nil, false, err
	}

	if g.drawnCard != nil {
		return nil, false, errorHoldingDrawnCard
	}

	cardID, ok := payload.AdditionalData.GetUUID("cardId")
	if !ok {
		return nil, false, errors.New("cardId is required")
	}

	targetID, ok := payload.AdditionalData.GetInt64("targetPlayerId")
	if !ok {
		return nil, false, errors.New("targetPlayerId is required")
	}

	if targetID == playerID {
		return nil, false, errors.New("you cannot swap with yourself")
	}

	target, err := g.participant(targetID)
	if err != nil {
		return nil, false, err
	}

	idx, card := p.cardByID(cardID)
	if card == nil {
		return nil, false, errors.New("card not found in your hand")
	}

	slots := target.liveSlots()
	if len(slots) == 0 {
		return nil, false, errors.New("target player has no cards")
	}

	targetIdx := slots[g.rng.Intn(len(slots))]
	p.hand[idx], target.hand[targetIdx] = target.hand[targetIdx], p.hand[idx]

	// neither side sees the card they received
	g.forgetCard(p.hand[idx])
	g.forgetCard(target.hand[targetIdx])

	g.sendLogMessages(playable.SimpleLogMessageSlice(playerID, "{} traded a card blind"))

	g.finishTurn()
	return playable.OK(), true, nil
}

// Action is called when a client performs an action
// Part of the Playable interface
func (g *Game) Action(playerID int64, message *playable.PayloadIn) (playerResponse *playable.Response, updateState bool, err error) {
	switch message.Action {
	case "draw":
		return g.actionDraw(playerID)
	case "discardDrawn":
		return g.actionDiscardDrawn(playerID)
	case "replaceWithDrawn":
		return g.actionReplaceWithDrawn(playerID, message)
	case "discard":
		return g.actionDiscard(playerID, message)
	case "swap":
		return g.actionSwap(playerID, message)
	case "usePowerOnOwnCard":
		return g.actionUsePowerOnOwnCard(playerID, message)
	case "usePowerOnOpponentCard":
		return g.actionUsePowerOnOpponentCard(playerID, message)
	case "confirmKingSwap":
		return g.actionConfirmKingSwap(playerID)
	case "cancelKingSwap":
		return g.actionCancelKingSwap(playerID)
	case "eliminateCard":
		return g.actionEliminateCard(playerID, message)
	case "completeEliminationCardGive":
		return g.actionCompleteEliminationCardGive(playerID, message)
	case "declare":
		return g.actionDeclare(playerID)
	}

	return nil, false, fmt.Errorf("unknown action: %s", message.Action)
}

// SetPlayerConnected updates a player's connection state.
// A disconnect drops any pending power for the player, force-completes an
// owed card give, and advances the turn if it was theirs.
// Part of the ConnectionAware interface.
func (g *Game) SetPlayerConnected(playerID int64, connected bool) bool {
	p, ok := g.idToParticipant[playerID]
	if !ok {
		return false
	}

	if p.connected == connected {
		return false
	}

	p.connected = connected
	if connected {
		g.sendLogMessages(playable.SimpleLogMessageSlice(playerID, "{} reconnected"))
		return true
	}

	g.sendLogMessages(playable.SimpleLogMessageSlice(playerID, "{} disconnected"))

	// cleanup of any active power is mandatory
	p.activePower = 0
	if g.pendingKingSwap != nil && g.pendingKingSwap.playerID == playerID {
		g.pendingKingSwap = nil
	}

	if g.pendingGive != nil && g.pendingGive.actorID == playerID {
		g.completeGiveWithDefault(p)
	}

	if !g.done && g.currentTurn() == p {
		if g.drawnCard != nil {
			g.moveToDiscard(g.drawnCard)
			g.drawnCard = nil
		}

		g.finishTurn()
	}

	return true
}

// Name returns the name of the game
// Part of the Playable interface
func (g *Game) Name() string {
	return "Declare"
}

// GetEndOfGameDetails returns the final results
// Part of the Playable interface
func (g *Game) GetEndOfGameDetails() (*playable.GameOverDetails, bool) {
	if !g.done {
		return nil, false
	}

	return g.result, true
}

// LogChan returns a channel where log messages will be sent
// Part of the Playable interface
func (g *Game) LogChan() <-chan []*playable.LogMessage {
	return g.logChan
}

func (g *Game) sendLogMessages(messages []*playable.LogMessage) {
	select {
	case g.logChan <- messages:
	default:
		logrus.WithField("room", g.roomID).Warn("log channel is full")
	}
}
