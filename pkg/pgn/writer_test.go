package pgn_test

import (
	"strings"
	"testing"

	"github.com/mangar2/qaplatester/pkg/chessstate"
	"github.com/mangar2/qaplatester/pkg/game"
	"github.com/mangar2/qaplatester/pkg/pgn"
	"github.com/mangar2/qaplatester/pkg/protocol"
	"github.com/seekerror/stdlib/pkg/lang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() *game.Record {
	rec := game.NewRecord("", "candidate", "baseline", 3, protocol.TimeControl{}, protocol.TimeControl{})
	rec.Moves = []game.MoveRecord{
		{SAN: "e4", ScoreCp: lang.Some(34), Depth: 12, TimeMs: 1200},
		{SAN: "e5", ScoreCp: lang.Some(-10), Depth: 10, TimeMs: 900},
	}
	rec.Finish(chessstate.CauseCheckmate, chessstate.WhiteWins)
	return rec
}

func TestWriteEmitsSevenTagRoster(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, pgn.Write(&sb, sampleRecord(), pgn.Options{}))
	out := sb.String()

	assert.Contains(t, out, `[White "candidate"]`)
	assert.Contains(t, out, `[Black "baseline"]`)
	assert.Contains(t, out, `[Round "3"]`)
	assert.Contains(t, out, `[Result "1-0"]`)
	assert.Contains(t, out, "1. e4 e5 1-0")
}

func TestWriteAnnotatesWhenRequested(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, pgn.Write(&sb, sampleRecord(), pgn.Options{Annotate: true}))
	out := sb.String()

	assert.Contains(t, out, "{+0.34/12 1.2s}")
	assert.Contains(t, out, "{-0.10/10 0.9s}")
}

func TestWriteCarriesExtraTagsAfterSevenTagRoster(t *testing.T) {
	rec := sampleRecord()
	rec.Tags["ECO"] = "C20"

	var sb strings.Builder
	require.NoError(t, pgn.Write(&sb, rec, pgn.Options{}))
	assert.Contains(t, sb.String(), `[ECO "C20"]`)
}

func TestResultStringMapsToPGNTokens(t *testing.T) {
	assert.Equal(t, "1-0", pgn.ResultString(chessstate.WhiteWins))
	assert.Equal(t, "0-1", pgn.ResultString(chessstate.BlackWins))
	assert.Equal(t, "1/2-1/2", pgn.ResultString(chessstate.Draw))
	assert.Equal(t, "*", pgn.ResultString(chessstate.Unterminated))
}
