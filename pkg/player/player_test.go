package player_test

import (
	"context"
	"testing"

	"github.com/mangar2/qaplatester/pkg/chessstate"
	"github.com/mangar2/qaplatester/pkg/player"
	"github.com/mangar2/qaplatester/pkg/protocol"
	"github.com/mangar2/qaplatester/pkg/report"
	"github.com/seekerror/stdlib/pkg/lang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T, tc protocol.TimeControl) *player.Context {
	t.Helper()
	shadow := chessstate.NewFromStart()
	check := report.NewInstance(context.Background(), nil, "engineA")
	return player.New(context.Background(), "white", nil, shadow, tc, check, nil)
}

func TestNewSeedsClockFromTimeControl(t *testing.T) {
	tc, err := protocol.ParseTimeControl("40/60+0.5")
	require.NoError(t, err)
	c := newContext(t, tc)
	assert.Equal(t, int64(60000), c.RemainingMs())
}

func TestOnBestMoveAppliesLegalMoveAndDecrementsClock(t *testing.T) {
	tc, err := protocol.ParseTimeControl("0/60+0")
	require.NoError(t, err)
	c := newContext(t, tc)

	mr, cause, err := c.OnBestMove(protocol.EngineEvent{Kind: protocol.BestMove, Best: "e2e4", TimestampMs: 500})
	require.NoError(t, err)
	assert.Equal(t, chessstate.CauseOngoing, cause)
	assert.Equal(t, "e4", mr.SAN)
	assert.Equal(t, int64(500), mr.TimeMs)
	assert.Equal(t, int64(59500), c.RemainingMs())
}

func TestOnBestMoveRejectsIllegalMove(t *testing.T) {
	tc, err := protocol.ParseTimeControl("0/60+0")
	require.NoError(t, err)
	c := newContext(t, tc)

	_, cause, err := c.OnBestMove(protocol.EngineEvent{Kind: protocol.BestMove, Best: "e2e5", TimestampMs: 500})
	assert.Error(t, err)
	assert.Equal(t, chessstate.CauseIllegalMove, cause)
}

func TestOnBestMoveTimesOutWhenClockExhausted(t *testing.T) {
	tc, err := protocol.ParseTimeControl("0/1+0")
	require.NoError(t, err)
	c := newContext(t, tc)

	_, cause, err := c.OnBestMove(protocol.EngineEvent{Kind: protocol.BestMove, Best: "e2e4", TimestampMs: 5000})
	require.NoError(t, err)
	assert.Equal(t, chessstate.CauseTimeout, cause)
}

func TestOnInfoForwardsSnapshotToPVSink(t *testing.T) {
	shadow := chessstate.NewFromStart()
	check := report.NewInstance(context.Background(), nil, "engineA")
	sink := &recordingSink{}
	c := player.New(context.Background(), "white", nil, shadow, protocol.TimeControl{}, check, sink)

	earlyStop := c.OnInfo(protocol.EngineEvent{
		Kind: protocol.Info,
		SearchInfo: protocol.SearchInfo{
			Depth:   lang.Some(10),
			ScoreCp: lang.Some(25),
			PV:      []string{"e2e4", "e7e5"},
		},
	})
	assert.False(t, earlyStop)
	require.Len(t, sink.pv, 2)
	assert.Equal(t, 10, sink.depth)
}

type recordingSink struct {
	pv    []string
	depth int
}

func (s *recordingSink) SetPV(engineID string, pv []string, elapsedMs int64, depth, nodes, multipv int) bool {
	s.pv = pv
	s.depth = depth
	return false
}
