package declare

import (
	"declare-server/pkg/deck"
	"declare-server/pkg/playable"
)

// finalHand records a revealed hand in the end-of-game log
type finalHand struct {
	PlayerID int64        `json:"playerId"`
	Cards    []*deck.Card `json:"cards"`
	Score    int          `json:"score"`
}

// actionDeclare ends the round: all hands are revealed, scores are the
// sum of remaining card values with eliminated slots as zero, and every
// player tied at the minimum score wins. There is no server-side check
// of set or sequence claims; scoring is always the sum rule.
func (g *Game) actionDeclare(playerID int64) (*playable.Response, bool, error) {
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

	g.declarerID = playerID
	g.done = true

	scores := make(map[int64]int)
	hands := make([]*finalHand, 0, len(g.participants))
	minScore := 0
	for i, part := range g.participants {
		for _, card := range part.hand {
			if card != nil {
				part.markKnown(card)
			}
		}

		score := part.handScore()
		scores[part.PlayerID] = score
		hands = append(hands, &finalHand{
			PlayerID: part.PlayerID,
			Cards:    part.hand,
			Score:    score,
		})

		if i == 0 || score < minScore {
			minScore = score
		}
	}

	winners := make([]int64, 0, 1)
	for _, part := range g.participants {
		if scores[part.PlayerID] == minScore {
			winners = append(winners, part.PlayerID)
		}
	}

	g.result = &playable.GameOverDetails{
		DeclarerID: playerID,
		Scores:     scores,
		Winners:    winners,
		Log:        hands,
	}

	g.sendLogMessages(playable.SimpleLogMessageSlice(playerID, "{} declared"))

	return playable.OK(), true, nil
}
