package adapter_test

import (
	"context"
	"testing"

	"github.com/mangar2/qaplatester/pkg/adapter"
	"github.com/mangar2/qaplatester/pkg/process"
	"github.com/mangar2/qaplatester/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	reports []string
}

func (r *recordingSink) Report(topic string, passed bool, detail string) {
	if !passed {
		r.reports = append(r.reports, topic+": "+detail)
	}
}

func startFakeUCI(t *testing.T, script string) (*adapter.UCIAdapter, *recordingSink) {
	t.Helper()
	ctx := context.Background()
	host, err := process.Start(ctx, "/bin/sh", []string{"-c", script}, "", false)
	require.NoError(t, err)
	t.Cleanup(host.Terminate)

	sink := &recordingSink{}
	return adapter.NewUCI(ctx, host, "fake", sink), sink
}

func TestUCIHandshake(t *testing.T) {
	a, _ := startFakeUCI(t, `read _; echo "id name Fake 1.0"; echo "id author Tester"; echo "uciok"`)

	require.NoError(t, a.StartProtocol())

	var gotID, gotOk bool
	for i := 0; i < 5; i++ {
		ev := a.ReadEvent()
		switch ev.Kind {
		case protocol.NoData:
			gotID = true
		case protocol.UciOk:
			gotOk = true
		}
		if gotOk {
			break
		}
	}
	assert.True(t, gotID)
	assert.True(t, gotOk)
}

func TestUCIBestMoveWithPonder(t *testing.T) {
	a, _ := startFakeUCI(t, `echo "bestmove e2e4 ponder e7e5"`)

	ev := a.ReadEvent()
	require.Equal(t, protocol.BestMove, ev.Kind)
	assert.Equal(t, "e2e4", ev.Best)
	ponder, ok := ev.Ponder.V()
	require.True(t, ok)
	assert.Equal(t, "e7e5", ponder)
}

func TestUCIBestMoveNone(t *testing.T) {
	a, _ := startFakeUCI(t, `echo "bestmove (none)"`)

	ev := a.ReadEvent()
	require.Equal(t, protocol.BestMove, ev.Kind)
	assert.Equal(t, "", ev.Best)
}

func TestUCIInfoScoreBounds(t *testing.T) {
	a, sink := startFakeUCI(t, `echo "info depth 12 score cp 999999 nodes 12345 pv e2e4 e7e5"`)

	ev := a.ReadEvent()
	require.Equal(t, protocol.Info, ev.Kind)
	d, ok := ev.SearchInfo.Depth.V()
	require.True(t, ok)
	assert.Equal(t, 12, d)
	_, hasCp := ev.SearchInfo.ScoreCp.V()
	assert.False(t, hasCp, "out of bounds score cp must be dropped")
	assert.NotEmpty(t, sink.reports)
	assert.Equal(t, []string{"e2e4", "e7e5"}, ev.SearchInfo.PV)
}

func TestUCIInfoUnknownTokenIsSoftFailure(t *testing.T) {
	a, sink := startFakeUCI(t, `echo "info depth 1 bogus 42"`)

	ev := a.ReadEvent()
	require.Equal(t, protocol.Info, ev.Kind)
	require.NotEmpty(t, sink.reports)
	assert.Contains(t, sink.reports[0], adapter.TopicWrongTokenInInfoLine)
}

func TestUCIOptionTableAndValidation(t *testing.T) {
	a, _ := startFakeUCI(t, `read _; echo "option name Hash type spin default 16 min 1 max 1024"; cat >/dev/null`)

	require.NoError(t, a.StartProtocol())
	ev := a.ReadEvent()
	assert.Equal(t, protocol.NoData, ev.Kind)

	opts := a.Options()
	require.Contains(t, opts, "Hash")
	ok, _ := opts["Hash"].ValidateValue("2048")
	assert.False(t, ok)
	ok, _ = opts["Hash"].ValidateValue("64")
	assert.True(t, ok)
}

func TestUCIComputeMoveWritesPositionAndGo(t *testing.T) {
	a, _ := startFakeUCI(t, `cat`) // echoes each written line back

	g := adapter.GameRecord{Moves: []string{"e2e4", "e7e5"}}
	limits := protocol.GoLimits{WTimeMs: 60000, BTimeMs: 60000}
	_, err := a.ComputeMove(g, limits, false)
	require.NoError(t, err)

	ev := a.ReadEvent()
	assert.Equal(t, "position startpos moves e2e4 e7e5", ev.RawLine)
	ev = a.ReadEvent()
	assert.Equal(t, "go wtime 60000 btime 60000", ev.RawLine)
}
