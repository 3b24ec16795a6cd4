package declare

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"declare-server/pkg/deck"
	"declare-server/pkg/playable"
)

func TestNewGame(t *testing.T) {
	game, err := NewGame("room", nil, Options{})
	assert.EqualError(t, err, "game requires at least two players")
	assert.Nil(t, game)

	game, err = NewGame("room", []int64{1, 2, 3, 4, 5, 6, 7, 8, 9}, Options{})
	assert.EqualError(t, err, "game supports at most eight players")
	assert.Nil(t, game)

	game, err = NewGame("room", []int64{1, 1}, Options{})
	assert.EqualError(t, err, "duplicate player: 1")
	assert.Nil(t, game)

	game, err = NewGame("room", []int64{1, 2, 3}, Options{Seed: 1})
	assert.NoError(t, err)
	assert.Equal(t, "Declare", game.Name())
	assert.Equal(t, 52-12, game.deck.CardsLeft())

	for _, p := range game.participants {
		assert.Equal(t, 4, len(p.hand))

		// positions 2 and 3 are the player's starting knowledge
		assert.False(t, p.hand[0].Revealed)
		assert.False(t, p.hand[1].Revealed)
		assert.True(t, p.hand[2].Revealed)
		assert.True(t, p.hand[3].Revealed)
		assert.Equal(t, 2, len(p.knownCards))
	}

	assert.Equal(t, 52, totalCards(game))
}

func TestGame_turnExclusivity(t *testing.T) {
	game := testGame(t, 1, 2, 3)

	for _, act := range []string{"draw", "discardDrawn", "discard", "swap", "replaceWithDrawn", "declare"} {
		_, _, err := game.Action(2, action(act, nil))
		assert.Equal(t, ErrNotYourTurn, err, act)

		_, _, err = game.Action(3, action(act, nil))
		assert.Equal(t, ErrNotYourTurn, err, act)
	}

	_, _, err := game.Action(99, action("draw", nil))
	assert.EqualError(t, err, "99 is not in this game")
}

func TestGame_drawAndDiscard(t *testing.T) {
	a := assert.New(t)
	game := testGame(t)
	stackDeck(game, "2c")

	resp, update, err := game.Action(1, action("draw", nil))
	a.NoError(err)
	a.True(update)
	a.Equal("privateCard", resp.Key)
	a.True(card("2c").Equal(resp.Data.(*deck.Card)))
	a.NotNil(game.drawnCard)

	// cannot draw twice
	_, _, err = game.Action(1, action("draw", nil))
	a.EqualError(err, "you are already holding a drawn card")

	// discarding a plain card advances the turn
	_, update, err = game.Action(1, action("discardDrawn", nil))
	a.NoError(err)
	a.True(update)
	a.Nil(game.drawnCard)
	a.True(card("2c").Equal(game.discardTop()))
	a.Equal(int64(2), game.currentTurn().PlayerID)
	a.Equal(52, totalCards(game))
}

func TestGame_discardDrawnWithoutDraw(t *testing.T) {
	game := testGame(t)
	_, _, err := game.Action(1, action("discardDrawn", nil))
	assert.EqualError(t, err, "you have not drawn a card")
}

func TestGame_jackSkipsNextSeat(t *testing.T) {
	a := assert.New(t)
	game := testGame(t)
	stackDeck(game, "11s")

	_, _, err := game.Action(1, action("draw", nil))
	a.NoError(err)

	_, _, err = game.Action(1, action("discardDrawn", nil))
	a.NoError(err)

	// player 2 was skipped and the turn came straight back to player 1
	a.Equal(int64(1), game.currentTurn().PlayerID)
	a.False(game.idToParticipant[2].skippedTurn)
	a.Equal(0, game.idToParticipant[1].activePower, "jack is not a held power")
}

func TestGame_replaceWithDrawn(t *testing.T) {
	a := assert.New(t)
	game := testGame(t)
	stackDeck(game, "4s")

	p1 := game.idToParticipant[1]
	displaced := p1.hand[0]

	_, _, err := game.Action(1, action("draw", nil))
	a.NoError(err)

	_, _, err = game.Action(1, action("replaceWithDrawn", playable.AdditionalData{
		"cardId": displaced.ID.String(),
	}))
	a.NoError(err)

	a.True(card("4s").Equal(p1.hand[0]))
	a.True(p1.hand[0].Revealed, "the player saw the drawn card")
	a.True(p1.knownCards[p1.hand[0].ID])
	a.True(displaced.Equal(game.discardTop()))
	a.Equal(int64(2), game.currentTurn().PlayerID)
	a.Equal(52, totalCards(game))
}

func TestGame_replaceWithDrawn_badCard(t *testing.T) {
	game := testGame(t)
	stackDeck(game, "4s")

	_, _, err := game.Action(1, action("draw", nil))
	assert.NoError(t, err)

	_, _, err = game.Action(1, action("replaceWithDrawn", nil))
	assert.EqualError(t, err, "cardId is required")

	// cannot replace with an opponent's card
	p2 := game.idToParticipant[2]
	_, _, err = game.Action(1, action("replaceWithDrawn", playable.AdditionalData{
		"cardId": p2.hand[0].ID.String(),
	}))
	assert.EqualError(t, err, "card not found in your hand")

	// nothing changed
	assert.NotNil(t, game.drawnCard)
	assert.Equal(t, int64(1), game.currentTurn().PlayerID)
}

func TestGame_legacyDiscard(t *testing.T) {
	a := assert.New(t)
	game := testGame(t)

	p1 := game.idToParticipant[1]
	discarded := p1.hand[1]

	_, _, err := game.Action(1, action("discard", playable.AdditionalData{
		"cardId": discarded.ID.String(),
	}))
	a.NoError(err)

	a.Equal(3, len(p1.hand))
	a.True(discarded.Equal(game.discardTop()))
	a.Equal(int64(2), game.currentTurn().PlayerID)
	a.Equal(52, totalCards(game))
}

func TestGame_legacySwap(t *testing.T) {
	a := assert.New(t)
	game := testGame(t)
	game.rng = fixedRNG{value: 2}

	p1 := game.idToParticipant[1]
	p2 := game.idToParticipant[2]

	given := p1.hand[0]
	taken := p2.hand[2]

	_, _, err := game.Action(1, action("swap", playable.AdditionalData{
		"cardId":         given.ID.String(),
		"targetPlayerId": float64(2),
	}))
	a.NoError(err)

	a.Same(taken, p1.hand[0])
	a.Same(given, p2.hand[2])
	a.False(p1.knownCards[taken.ID], "received card is unseen")
	a.False(p2.knownCards[given.ID], "received card is unseen")
	a.Equal(int64(2), game.currentTurn().PlayerID)
	a.Equal(52, totalCards(game))
}

func TestGame_legacySwap_validation(t *testing.T) {
	game := testGame(t)
	p1 := game.idToParticipant[1]

	_, _, err := game.Action(1, action("swap", playable.AdditionalData{
		"cardId":         p1.hand[0].ID.String(),
		"targetPlayerId": float64(1),
	}))
	assert.EqualError(t, err, "you cannot swap with yourself")

	_, _, err = game.Action(1, action("swap", playable.AdditionalData{
		"cardId":         p1.hand[0].ID.String(),
		"targetPlayerId": float64(42),
	}))
	assert.EqualError(t, err, "42 is not in this game")
}

func TestGame_deckExhaustion(t *testing.T) {
	a := assert.New(t)
	game := testGame(t)

	// drain the draw pile
	game.deck.Cards = nil

	// a single discard cannot be recycled
	pushDiscard(game, "5c")
	_, _, err := game.Action(1, action("draw", nil))
	a.EqualError(err, "no cards left to draw")
	a.Equal(1, len(game.discards))

	// with more discards, everything but the top is recycled
	pushDiscard(game, "6c")
	top := pushDiscard(game, "7c")

	_, update, err := game.Action(1, action("draw", nil))
	a.NoError(err)
	a.True(update)
	a.NotNil(game.drawnCard)
	a.Equal(1, len(game.discards))
	a.Same(top, game.discardTop())
	a.Equal(1, game.deck.CardsLeft())
}

func TestGame_disconnectCurrentPlayer(t *testing.T) {
	a := assert.New(t)
	game := testGame(t, 1, 2, 3)
	stackDeck(game, "2c")

	_, _, err := game.Action(1, action("draw", nil))
	a.NoError(err)

	changed := game.SetPlayerConnected(1, false)
	a.True(changed)
	a.Nil(game.drawnCard, "held card is discarded")
	a.True(card("2c").Equal(game.discardTop()))
	a.Equal(int64(2), game.currentTurn().PlayerID)

	// turn advancement passes over the disconnected player
	_, _, err = game.Action(2, action("discard", playable.AdditionalData{
		"cardId": game.idToParticipant[2].hand[0].ID.String(),
	}))
	a.NoError(err)
	a.Equal(int64(3), game.currentTurn().PlayerID)

	_, _, err = game.Action(3, action("discard", playable.AdditionalData{
		"cardId": game.idToParticipant[3].hand[0].ID.String(),
	}))
	a.NoError(err)
	a.Equal(int64(2), game.currentTurn().PlayerID, "player 1 is skipped while disconnected")

	// no change reported twice
	a.False(game.SetPlayerConnected(1, false))
	a.True(game.SetPlayerConnected(1, true))
}

func TestGame_disconnectOtherPlayer(t *testing.T) {
	a := assert.New(t)
	game := testGame(t, 1, 2, 3)

	a.True(game.SetPlayerConnected(3, false))
	a.Equal(int64(1), game.currentTurn().PlayerID, "turn unchanged")
	a.Equal(4, len(game.idToParticipant[3].hand), "hand untouched")
}

func TestGame_unknownAction(t *testing.T) {
	game := testGame(t)
	_, _, err := game.Action(1, action("jump", nil))
	assert.EqualError(t, err, "unknown action: jump")
}
