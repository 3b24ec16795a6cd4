package declare

import (
	"github.com/google/uuid"

	"declare-server/pkg/deck"
	"declare-server/pkg/playable"
)

// cardView is a hand card as seen by a specific viewer. Rank, suit, and
// value are only present when the viewer is allowed to know them.
type cardView struct {
	ID    uuid.UUID `json:"id"`
	Known bool      `json:"known"`
	Rank  int       `json:"rank,omitempty"`
	Suit  deck.Suit `json:"suit,omitempty"`
	Value *int      `json:"value,omitempty"`
}

// participantView is a player as seen by a specific viewer.
// Eliminated slots serialize as nulls in the hand array.
type participantView struct {
	PlayerID            int64       `json:"playerId"`
	Hand                []*cardView `json:"hand"`
	CardsInHand         int         `json:"cardsInHand"`
	SkippedTurn         bool        `json:"skippedTurn"`
	EliminatedThisRound bool        `json:"eliminatedThisRound"`
	HasActivePower      bool        `json:"hasActivePower"`
	Connected           bool        `json:"connected"`
}

// pendingGiveView announces the open half of an elimination saga
type pendingGiveView struct {
	ActorID    int64 `json:"actorId"`
	TargetID   int64 `json:"targetId"`
	TargetSlot int   `json:"targetSlot"`
}

// GameState is the state of the game as seen by one viewer.
// These values must be safe for that viewer to snoop on.
type GameState struct {
	Participants      []*participantView `json:"participants"`
	DeckCount         int                `json:"deckCount"`
	DiscardCount      int                `json:"discardCount"`
	DiscardTop        *deck.Card         `json:"discardTop"`
	CurrentTurn       int64              `json:"currentTurn"`
	DrawnCardHeld     bool               `json:"drawnCardHeld"`
	EliminationLocked bool               `json:"eliminationLocked"`
	PendingGive       *pendingGiveView   `json:"pendingGive"`
	KingSwapPending   bool               `json:"kingSwapPending"`
	Done              bool               `json:"done"`
	DeclarerID        int64              `json:"declarerId,omitempty"`
	Scores            map[int64]int      `json:"scores,omitempty"`
	Winners           []int64            `json:"winners,omitempty"`
}

// ParticipantState is the per-player payload: the shared view plus the
// drawn card if the viewer is the one holding it
type ParticipantState struct {
	GameState *GameState `json:"gameState"`
	DrawnCard *deck.Card `json:"drawnCard,omitempty"`
}

func (g *Game) cardViewFor(viewer *Participant, owner *Participant, card *deck.Card) *cardView {
	if card == nil {
		return nil
	}

	view := &cardView{ID: card.ID}
	visible := g.done || (viewer == owner && owner.knownCards[card.ID])
	if visible {
		value := card.Value
		view.Known = true
		view.Rank = card.Rank
		view.Suit = card.Suit
		view.Value = &value
	}

	return view
}

// GetPlayerState returns the current state of the game for the player.
// Unknown players (spectators) get the fully obfuscated view.
// Part of the Playable interface.
func (g *Game) GetPlayerState(playerID int64) (*playable.Response, error) {
	viewer := g.idToParticipant[playerID]

	participants := make([]*participantView, len(g.participants))
	for i, p := range g.participants {
		hand := make([]*cardView, len(p.hand))
		for j, card := range p.hand {
			hand[j] = g.cardViewFor(viewer, p, card)
		}

		participants[i] = &participantView{
			PlayerID:            p.PlayerID,
			Hand:                hand,
			CardsInHand:         p.liveCardCount(),
			SkippedTurn:         p.skippedTurn,
			EliminatedThisRound: p.eliminatedThisRound,
			HasActivePower:      p.activePower != 0,
			Connected:           p.connected,
		}
	}

	state := &GameState{
		Participants:      participants,
		DeckCount:         g.deck.CardsLeft(),
		DiscardCount:      len(g.discards),
		DiscardTop:        g.discardTop(),
		CurrentTurn:       g.currentTurn().PlayerID,
		DrawnCardHeld:     g.drawnCard != nil,
		EliminationLocked: g.eliminationLocked,
		KingSwapPending:   g.pendingKingSwap != nil,
		Done:              g.done,
	}

	if g.pendingGive != nil {
		state.PendingGive = &pendingGiveView{
			ActorID:    g.pendingGive.actorID,
			TargetID:   g.pendingGive.targetID,
			TargetSlot: g.pendingGive.targetSlot,
		}
	}

	if g.done {
		state.DeclarerID = g.declarerID
		state.Scores = g.result.Scores
		state.Winners = g.result.Winners
	}

	ps := &ParticipantState{GameState: state}
	if viewer != nil && g.currentTurn() == viewer {
		ps.DrawnCard = g.drawnCard
	}

	return &playable.Response{
		Key:   "game",
		Value: "declare",
		Data:  ps,
	}, nil
}
