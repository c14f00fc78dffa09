package providers

import (
	"math/rand"

	"github.com/mangar2/qaplatester/pkg/protocol"
	"github.com/mangar2/qaplatester/pkg/tournament"
)

// NewSelfTestDuel builds a tournament.Duel that pits engine against
// itself for `games` games from the standard starting position, purely
// to exercise protocol conformance (the no-disconnect, legalmove and
// time-control checklist topics) over a long run rather than to measure
// relative strength -- spec.md §4.10's self-test provider.
func NewSelfTestDuel(engine protocol.EngineConfig, tc protocol.TimeControl, games int) *tournament.Duel {
	opponent := engine
	opponent.Name = engine.Name + " (mirror)"

	openings := tournament.NewOpeningBook(nil, true, rand.New(rand.NewSource(1)))
	return tournament.NewDuel(tournament.Pairing{
		White:       engine,
		Black:       opponent,
		TC:          tc,
		Openings:    openings,
		GamesTarget: games,
	})
}
