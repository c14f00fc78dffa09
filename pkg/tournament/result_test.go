package tournament_test

import (
	"testing"

	"github.com/mangar2/qaplatester/pkg/chessstate"
	"github.com/mangar2/qaplatester/pkg/game"
	"github.com/mangar2/qaplatester/pkg/protocol"
	"github.com/mangar2/qaplatester/pkg/tournament"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finishedRecord(white, black string, cause chessstate.EndCause, result chessstate.Result) *game.Record {
	rec := game.NewRecord("", white, black, 1, protocol.TimeControl{}, protocol.TimeControl{})
	rec.Finish(cause, result)
	return rec
}

func TestResultTallyTracksFirstPerspectiveAcrossColorSwap(t *testing.T) {
	r := tournament.NewEngineDuelResult("alpha", "beta")

	r.Add(finishedRecord("alpha", "beta", chessstate.CauseCheckmate, chessstate.WhiteWins)) // alpha wins as White
	r.Add(finishedRecord("beta", "alpha", chessstate.CauseCheckmate, chessstate.WhiteWins))  // beta wins as White -> alpha loses
	r.Add(finishedRecord("beta", "alpha", chessstate.CauseFiftyMoveRule, chessstate.Draw))

	assert.Equal(t, 1, r.Wins)
	assert.Equal(t, 1, r.Losses)
	assert.Equal(t, 1, r.Draws)
	assert.Equal(t, 3, r.Games)
	assert.InDelta(t, 0.5, r.Score(), 1e-9)
}

func TestResultToStringFromStringRoundTrips(t *testing.T) {
	r := tournament.NewEngineDuelResult("alpha", "beta")
	r.Add(finishedRecord("alpha", "beta", chessstate.CauseCheckmate, chessstate.WhiteWins))
	r.Add(finishedRecord("beta", "alpha", chessstate.CauseStalemate, chessstate.Draw))
	r.Add(finishedRecord("beta", "alpha", chessstate.CauseCheckmate, chessstate.WhiteWins))

	line := r.ToString()
	assert.Equal(t, "alpha vs beta : 1=0", line)

	back, err := tournament.FromString(line)
	require.NoError(t, err)
	assert.Equal(t, "alpha", back.First)
	assert.Equal(t, "beta", back.Second)
	assert.Equal(t, 1, back.Wins)
	assert.Equal(t, 1, back.Losses)
	assert.Equal(t, 1, back.Draws)
	assert.Equal(t, 3, back.Games)
}

func TestFromStringRejectsMalformedLine(t *testing.T) {
	_, err := tournament.FromString("not a ledger line")
	assert.Error(t, err)
}
