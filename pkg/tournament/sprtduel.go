package tournament

import (
	"context"

	"github.com/mangar2/qaplatester/pkg/chessstate"
	"github.com/mangar2/qaplatester/pkg/game"
	"github.com/mangar2/qaplatester/pkg/sprt"
)

// SPRTDuel wraps a Duel so that NextTask stops handing out work as soon
// as the embedded sprt.Test reaches a decision, per spec.md §4.8's
// stop-as-soon-as-decided rule. Game results are folded into the SPRT
// test from the perspective of the Duel's First engine (the pairing's
// White engine), whichever color it played.
type SPRTDuel struct {
	*Duel
	test *sprt.Test
}

// NewSPRTDuel wraps duel with an SPRT test under params; the candidate
// whose result feeds the test is the Duel's First engine.
func NewSPRTDuel(duel *Duel, params sprt.Params) *SPRTDuel {
	return &SPRTDuel{Duel: duel, test: sprt.New(params)}
}

// Test returns the underlying SPRT test, for reporting its LLR/decision.
func (d *SPRTDuel) Test() *sprt.Test {
	return d.test
}

// NextTask defers to the embedded Duel unless the SPRT has already
// decided, in which case it reports exhaustion regardless of
// GamesTarget.
func (d *SPRTDuel) NextTask(ctx context.Context, whiteID, blackID string) (*game.Task, bool) {
	if d.test.Decision() != sprt.Undecided {
		return nil, false
	}
	return d.Duel.NextTask(ctx, whiteID, blackID)
}

// SetGameRecord folds the result into both the running W/D/L tally and
// the SPRT test, from the perspective of the Duel's First engine (the
// candidate under test), whichever color it played in rec.
func (d *SPRTDuel) SetGameRecord(rec *game.Record) {
	d.Duel.SetGameRecord(rec)

	candidateIsWhite := rec.White == d.Duel.result.First
	result := sprt.DrawResult
	switch rec.Result {
	case chessstate.WhiteWins:
		if candidateIsWhite {
			result = sprt.Win
		} else {
			result = sprt.Loss
		}
	case chessstate.BlackWins:
		if candidateIsWhite {
			result = sprt.Loss
		} else {
			result = sprt.Win
		}
	}
	d.test.Record(result)
}
