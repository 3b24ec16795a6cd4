package declare

import (
	"errors"
	"time"

	"declare-server/pkg/deck"
	"declare-server/pkg/playable"
)

// pendingEliminationGive is the open half of the elimination saga: the
// acting player owes the eliminated card's owner one of their own cards
// to fill the emptied slot
type pendingEliminationGive struct {
	actorID    int64
	targetID   int64
	targetSlot int
}

// giveRequired tells the eliminating player they must now choose a card
// to hand over
type giveRequired struct {
	TargetPlayerID int64 `json:"targetPlayerId"`
	TargetSlot     int   `json:"targetSlot"`
}

// actionEliminateCard handles the race to claim a card matches the top
// discard's rank. Any player may attempt it at any time, including on
// their own hand. Handlers run to completion inside the room's run loop,
// so the lock-check-then-act ordering below is the entire race arbiter.
func (g *Game) actionEliminateCard(playerID int64, payload *playable.PayloadIn) (*playable.Response, bool, error) {
	actor, err := g.participant(playerID)
	if err != nil {
		return nil, false, err
	}

	if g.done {
		return nil, false, errors.New("the round is over")
	}

	if g.eliminationLocked || g.pendingGive != nil {
		return nil, false, ErrEliminationLocked
	}

	if actor.eliminatedThisRound {
		return nil, false, errors.New("you already eliminated a card this round")
	}

	top := g.discardTop()
	if top == nil {
		return nil, false, errors.New("there is no discard to match")
	}

	cardID, ok := payload.AdditionalData.GetUUID("cardId")
	if !ok {
		return nil, false, errors.New("cardId is required")
	}

	owner, slot, card := g.findCard(cardID)
	if card == nil {
		return nil, false, errors.New("card not found")
	}

	if card.Rank != top.Rank {
		// wrong claim: penalty card, no lock, and the player may try again
		penalty, err := g.drawFromPile()
		if err != nil {
			return nil, false, err
		}

		actor.hand = append(actor.hand, penalty)
		g.sendLogMessages(playable.SimpleLogMessageSlice(playerID, "{} claimed a bad elimination and drew a penalty card"))

		return &playable.Response{Key: "penaltyCard"}, true, nil
	}

	g.eliminationLocked = true
	actor.eliminatedThisRound = true
	owner.hand[slot] = nil
	g.moveToDiscard(card)

	g.sendLogMessages([]*playable.LogMessage{{
		UUID:      newUUID(),
		PlayerIDs: []int64{playerID},
		Cards:     []*deck.Card{card},
		Message:   "{} eliminated a card",
		Time:      time.Now(),
	}})

	// eliminating from your own hand leaves the slot empty; there is
	// nobody to give a card to. Likewise if the actor has nothing left
	// to give, the slot stays empty.
	if owner == actor || actor.liveCardCount() == 0 {
		return playable.OK(), true, nil
	}

	g.pendingGive = &pendingEliminationGive{
		actorID:    playerID,
		targetID:   owner.PlayerID,
		targetSlot: slot,
	}

	return &playable.Response{
		Key: "eliminationCardGive",
		Data: &giveRequired{
			TargetPlayerID: owner.PlayerID,
			TargetSlot:     slot,
		},
	}, true, nil
}

// actionCompleteEliminationCardGive finishes the saga: the acting player
// nominates one of their own cards, which is transferred (not copied)
// into the slot they emptied
func (g *Game) actionCompleteEliminationCardGive(playerID int64, payload *playable.PayloadIn) (*playable.Response, bool, error) {
	pending := g.pendingGive
	if pending == nil {
		return nil, false, errors.New("no card give is pending")
	}

	if pending.actorID != playerID {
		return nil, false, errors.New("you do not owe a card")
	}

	actor, err := g.participant(playerID)
	if err != nil {
		return nil, false, err
	}

	cardID, ok := payload.AdditionalData.GetUUID("cardId")
	if !ok {
		return nil, false, errors.New("cardId is required")
	}

	idx, card := actor.cardByID(cardID)
	if card == nil {
		return nil, false, errors.New("card not found in your hand")
	}

	g.transferGivenCard(actor, idx, card)
	g.sendLogMessages(playable.SimpleLogMessageSlice(playerID, "{} handed over a card"))

	return playable.OK(), true, nil
}

// completeGiveWithDefault resolves an abandoned give (actor
// disconnected) by transferring the actor's first live card
func (g *Game) completeGiveWithDefault(actor *Participant) {
	slots := actor.liveSlots()
	if len(slots) == 0 {
		g.pendingGive = nil
		return
	}

	idx := slots[0]
	g.transferGivenCard(actor, idx, actor.hand[idx])
	g.sendLogMessages(playable.SimpleLogMessageSlice(actor.PlayerID, "{} left; a card was handed over for them"))
}

func (g *Game) transferGivenCard(actor *Participant, idx int, card *deck.Card) {
	pending := g.pendingGive
	target := g.idToParticipant[pending.targetID]

	target.hand[pending.targetSlot] = card
	actor.hand[idx] = nil
	// the receiving player has not seen the card
	g.forgetCard(card)

	g.pendingGive = nil

	// defensive reset: no power survives the completion of a give
	for _, p := range g.participants {
		p.activePower = 0
	}
	g.pendingKingSwap = nil
}
