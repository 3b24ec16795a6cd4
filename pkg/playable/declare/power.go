package declare

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"declare-server/pkg/deck"
	"declare-server/pkg/playable"
)

// pendingKingSwap is the server-held state between the king's reveal and
// the owner's confirm or cancel. It is the only timed sub-state in the
// game: if expires passes with no response, the swap auto-cancels.
type pendingKingSwap struct {
	playerID     int64
	ownCardID    uuid.UUID
	targetID     int64
	targetCardID uuid.UUID
	expires      time.Time
}

// isPowerRank returns true for the ranks whose discard grants a power
// requiring a player choice. The jack is excluded: its skip is immediate.
func isPowerRank(rank int) bool {
	switch rank {
	case 7, 8, 9, 10, deck.Queen, deck.King:
		return true
	}

	return false
}

// powerName returns the client-facing identifier for a power rank
func powerName(rank int) string {
	switch rank {
	case 7, 8:
		return "peekOwn"
	case 9, 10:
		return "peekOpponent"
	case deck.Queen:
		return "blindSwap"
	case deck.King:
		return "kingSwap"
	}

	return ""
}

// cardReveal is a one-shot private reveal payload. It is delivered once
// and never stored in anyone's known-card tracking.
type cardReveal struct {
	PlayerID int64      `json:"playerId"`
	Position int        `json:"position"`
	Card     *deck.Card `json:"card"`
}

// kingSwapPrompt shows the king's power-user both candidate cards and
// asks for confirmation
type kingSwapPrompt struct {
	OwnCard    *cardReveal `json:"ownCard"`
	TargetCard *cardReveal `json:"targetCard"`
	ExpiresAt  time.Time   `json:"expiresAt"`
}

func (g *Game) actionUsePowerOnOwnCard(playerID int64, payload *playable.PayloadIn) (*playable.Response, bool, error) {
	p, err := g.participant(playerID)
	if err != nil {
		return nil, false, err
	}

	if g.done {
		return nil, false, errors.New("the round is over")
	}

	if p.activePower != 7 && p.activePower != 8 {
		return nil, false, errors.New("you do not have an active power for your own cards")
	}

	cardID, ok := payload.AdditionalData.GetUUID("cardId")
	if !ok {
		return nil, false, errors.New("cardId is required")
	}

	idx, card := p.cardByID(cardID)
	if card == nil {
		return nil, false, errors.New("card not found in your hand")
	}

	p.activePower = 0
	g.sendLogMessages(playable.SimpleLogMessageSlice(playerID, "{} peeked at one of their own cards"))
	g.finishTurn()

	return &playable.Response{
		Key: "powerReveal",
		Data: &cardReveal{
			PlayerID: playerID,
			Position: idx,
			Card:     card,
		},
	}, true, nil
}

func (g *Game) actionUsePowerOnOpponentCard(playerID int64, payload *playable.PayloadIn) (*playable.Response, bool, error) {
	p, err := g.participant(playerID)
	if err != nil {
		return nil, false, err
	}

	if g.done {
		return nil, false, errors.New("the round is over")
	}

	switch p.activePower {
	case 9, 10:
		return g.resolvePeekOpponent(p, payload)
	case deck.Queen:
		return g.resolveBlindSwap(p, payload)
	case deck.King:
		return g.beginKingSwap(p, payload)
	}

	return nil, false, errors.New("you do not have an active power for opponent cards")
}

func (g *Game) opponentCardFromPayload(p *Participant, payload *playable.PayloadIn) (*Participant, int, *deck.Card, error) {
	targetID, ok := payload.AdditionalData.GetInt64("targetPlayerId")
	if !ok {
		return nil, -1, nil, errors.New("targetPlayerId is required")
	}

	if targetID == p.PlayerID {
		return nil, -1, nil, errors.New("you must target an opponent")
	}

	target, err := g.participant(targetID)
	if err != nil {
		return nil, -1, nil, err
	}

	cardID, ok := payload.AdditionalData.GetUUID("cardId")
	if !ok {
		return nil, -1, nil, errors.New("cardId is required")
	}

	idx, card := target.cardByID(cardID)
	if card == nil {
		return nil, -1, nil, errors.New("card not found in the target player's hand")
	}

	return target, idx, card, nil
}

func (g *Game) resolvePeekOpponent(p *Participant, payload *playable.PayloadIn) (*playable.Response, bool, error) {
	target, idx, card, err := g.opponentCardFromPayload(p, payload)
	if err != nil {
		return nil, false, err
	}

	p.activePower = 0
	g.sendLogMessages(playable.SimpleLogMessageSlice(p.PlayerID, "{} peeked at an opponent's card"))
	g.finishTurn()

	return &playable.Response{
		Key: "powerReveal",
		Data: &cardReveal{
			PlayerID: target.PlayerID,
			Position: idx,
			Card:     card,
		},
	}, true, nil
}

// resolveBlindSwap is the queen power: exchange one own card with one
// opponent card without revealing either
func (g *Game) resolveBlindSwap(p *Participant, payload *playable.PayloadIn) (*playable.Response, bool, error) {
	ownCardID, ok := payload.AdditionalData.GetUUID("ownCardId")
	if !ok {
		return nil, false, errors.New("ownCardId is required")
	}

	ownIdx, ownCard := p.cardByID(ownCardID)
	if ownCard == nil {
		return nil, false, errors.New("card not found in your hand")
	}

	target, targetIdx, _, err := g.opponentCardFromPayload(p, payload)
	if err != nil {
		return nil, false, err
	}

	p.activePower = 0
	p.hand[ownIdx], target.hand[targetIdx] = target.hand[targetIdx], p.hand[ownIdx]
	g.forgetCard(p.hand[ownIdx])
	g.forgetCard(target.hand[targetIdx])

	g.sendLogMessages(playable.SimpleLogMessageSlice(p.PlayerID, "{} swapped a card unseen"))
	g.finishTurn()

	return playable.OK(), true, nil
}

// beginKingSwap reveals both candidate cards to the power-user and opens
// the confirmation window
func (g *Game) beginKingSwap(p *Participant, payload *playable.PayloadIn) (*playable.Response, bool, error) {
	if g.pendingKingSwap != nil {
		return nil, false, errors.New("a king swap is already awaiting confirmation")
	}

	ownCardID, ok := payload.AdditionalData.GetUUID("ownCardId")
	if !ok {
		return nil, false, errors.New("ownCardId is required")
	}

	ownIdx, ownCard := p.cardByID(ownCardID)
	if ownCard == nil {
		return nil, false, errors.New("card not found in your hand")
	}

	target, targetIdx, targetCard, err := g.opponentCardFromPayload(p, payload)
	if err != nil {
		return nil, false, err
	}

	expires := time.Now().Add(g.options.KingConfirmWindow)
	g.pendingKingSwap = &pendingKingSwap{
		playerID:     p.PlayerID,
		ownCardID:    ownCard.ID,
		targetID:     target.PlayerID,
		targetCardID: targetCard.ID,
		expires:      expires,
	}

	g.sendLogMessages(playable.SimpleLogMessageSlice(p.PlayerID, "{} is considering a king swap"))

	return &playable.Response{
		Key: "kingSwapPrompt",
		Data: &kingSwapPrompt{
			OwnCard:    &cardReveal{PlayerID: p.PlayerID, Position: ownIdx, Card: ownCard},
			TargetCard: &cardReveal{PlayerID: target.PlayerID, Position: targetIdx, Card: targetCard},
			ExpiresAt:  expires,
		},
	}, true, nil
}

func (g *Game) actionConfirmKingSwap(playerID int64) (*playable.Response, bool, error) {
	p, err := g.participant(playerID)
	if err != nil {
		return nil, false, err
	}

	pending := g.pendingKingSwap
	if pending == nil || pending.playerID != playerID {
		return nil, false, errors.New("no king swap is awaiting your confirmation")
	}

	ownIdx, ownCard := p.cardByID(pending.ownCardID)
	targetOwner, targetIdx, targetCard := g.findCard(pending.targetCardID)

	// an elimination may have moved either card while the window was
	// open; the swap resolves as a cancel rather than an error
	if ownCard == nil || targetCard == nil || targetOwner == nil || targetOwner.PlayerID != pending.targetID {
		g.clearKingSwap(p)
		g.sendLogMessages(playable.SimpleLogMessageSlice(playerID, "{}'s king swap was cancelled; a card moved"))
		g.finishTurn()
		return &playable.Response{Key: "kingSwapCancelled"}, true, nil
	}

	p.hand[ownIdx], targetOwner.hand[targetIdx] = targetCard, ownCard

	// the power-user saw the incoming card; the opponent has not seen theirs
	g.forgetCard(ownCard)
	g.forgetCard(targetCard)
	p.markKnown(targetCard)

	g.clearKingSwap(p)
	g.sendLogMessages(playable.SimpleLogMessageSlice(playerID, "{} confirmed a king swap"))
	g.finishTurn()

	return playable.OK(), true, nil
}

func (g *Game) actionCancelKingSwap(playerID int64) (*playable.Response, bool, error) {
	p, err := g.participant(playerID)
	if err != nil {
		return nil, false, err
	}

	pending := g.pendingKingSwap
	if pending == nil || pending.playerID != playerID {
		return nil, false, errors.New("no king swap is awaiting your confirmation")
	}

	g.clearKingSwap(p)
	g.sendLogMessages(playable.SimpleLogMessageSlice(playerID, "{} cancelled the king swap"))
	g.finishTurn()

	return playable.OK(), true, nil
}

func (g *Game) clearKingSwap(p *Participant) {
	g.pendingKingSwap = nil
	p.activePower = 0
}

// Interval specifies how often to call Tick()
// Part of the Tickable interface
func (g *Game) Interval() time.Duration {
	return time.Second
}

// Tick auto-cancels a king swap whose confirmation window has lapsed
// Part of the Tickable interface
func (g *Game) Tick() (bool, error) {
	pending := g.pendingKingSwap
	if pending == nil || time.Now().Before(pending.expires) {
		return false, nil
	}

	p, err := g.participant(pending.playerID)
	if err != nil {
		return false, err
	}

	g.clearKingSwap(p)
	g.sendLogMessages(playable.SimpleLogMessageSlice(pending.playerID, "{}'s king swap timed out"))
	g.finishTurn()

	return true, nil
}
