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

func startFakeXBoard(t *testing.T, script string) *adapter.XBoardAdapter {
	t.Helper()
	ctx := context.Background()
	host, err := process.Start(ctx, "/bin/sh", []string{"-c", script}, "", false)
	require.NoError(t, err)
	t.Cleanup(host.Terminate)
	return adapter.NewXBoard(ctx, host, "fake", nil)
}

func TestXBoardHandshakeDone(t *testing.T) {
	a := startFakeXBoard(t, `read _; read _; echo "feature myname=\"Fake\" done=1"`)
	require.NoError(t, a.StartProtocol())

	ev := a.ReadEvent()
	assert.Equal(t, protocol.UciOk, ev.Kind)
}

func TestXBoardPong(t *testing.T) {
	a := startFakeXBoard(t, `read _; echo "pong 3"`)
	require.NoError(t, a.AskForReady(3))

	ev := a.ReadEvent()
	assert.Equal(t, protocol.ReadyOk, ev.Kind)
}

func TestXBoardMove(t *testing.T) {
	a := startFakeXBoard(t, `echo "move e2e4"`)

	ev := a.ReadEvent()
	require.Equal(t, protocol.BestMove, ev.Kind)
	assert.Equal(t, "e2e4", ev.Best)
}

func TestXBoardIllegal(t *testing.T) {
	a := startFakeXBoard(t, `echo "Illegal move: e2e5"`)

	ev := a.ReadEvent()
	assert.Equal(t, protocol.Error, ev.Kind)
}

func TestXBoardThinkingLine(t *testing.T) {
	a := startFakeXBoard(t, `echo "12 34 156 98765 10 50000 0 e2e4 e7e5"`)

	ev := a.ReadEvent()
	require.Equal(t, protocol.Info, ev.Kind)
	d, _ := ev.SearchInfo.Depth.V()
	assert.Equal(t, 12, d)
	cp, ok := ev.SearchInfo.ScoreCp.V()
	require.True(t, ok)
	assert.Equal(t, 34, cp)
	tms, _ := ev.SearchInfo.TimeMs.V()
	assert.Equal(t, int64(1560), tms)
	assert.Equal(t, []string{"e2e4", "e7e5"}, ev.SearchInfo.PV)
}
