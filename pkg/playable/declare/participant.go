package declare

import (
	"github.com/google/uuid"

	"declare-server/pkg/deck"
)

// Participant is an individual player in a game of Declare.
// The hand starts with four slots; a nil slot is an eliminated position.
// Penalty cards append extra slots beyond the initial four.
type Participant struct {
	// PlayerID is the stable identity issued by the session provider
	PlayerID int64 `json:"playerId"`

	hand []*deck.Card

	// knownCards are the cards in this player's own hand they have
	// permanently seen (initial positions 2 and 3, replaced draws).
	// One-shot power peeks are never recorded here.
	knownCards map[uuid.UUID]bool

	// skippedTurn is a one-shot flag set by a discarded jack and
	// consumed by turn advancement
	skippedTurn bool

	// eliminatedThisRound rate-limits successful eliminations to one
	// per discard cycle
	eliminatedThisRound bool

	// activePower is the rank of an unresolved power, or 0
	activePower int

	connected bool
}

func newParticipant(playerID int64) *Participant {
	return &Participant{
		PlayerID:   playerID,
		hand:       make([]*deck.Card, 0, initialHandSize),
		knownCards: make(map[uuid.UUID]bool),
		connected:  true,
	}
}

// cardByID returns the slot index and card for the given ID, or (-1, nil)
// if the player does not hold that card
func (p *Participant) cardByID(id uuid.UUID) (int, *deck.Card) {
	for i, card := range p.hand {
		if card != nil && card.ID == id {
			return i, card
		}
	}

	return -1, nil
}

// liveCardCount returns the number of non-eliminated slots
func (p *Participant) liveCardCount() int {
	count := 0
	for _, card := range p.hand {
		if card != nil {
			count++
		}
	}

	return count
}

// liveSlots returns the indexes of the non-eliminated slots
func (p *Participant) liveSlots() []int {
	slots := make([]int, 0, len(p.hand))
	for i, card := range p.hand {
		if card != nil {
			slots = append(slots, i)
		}
	}

	return slots
}

// markKnown records that the player has permanently seen the card
func (p *Participant) markKnown(card *deck.Card) {
	card.Revealed = true
	p.knownCards[card.ID] = true
}

// handScore sums the hand's values with eliminated slots contributing zero
func (p *Participant) handScore() int {
	score := 0
	for _, card := range p.hand {
		if card != nil {
			score += card.Value
		}
	}

	return score
}
