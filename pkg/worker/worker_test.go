package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/mangar2/qaplatester/pkg/adapter"
	"github.com/mangar2/qaplatester/pkg/protocol"
	"github.com/mangar2/qaplatester/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeUCIScript behaves like a minimal, well-behaved UCI engine: it
// acknowledges "uci" and answers every "isready" with "readyok" forever.
const fakeUCIScript = `
echo "id name Fake"
echo "uciok"
while IFS= read -r line; do
  case "$line" in
    isready) echo "readyok" ;;
    setoption*) ;;
    go*) echo "bestmove e2e4" ;;
    quit) exit 0 ;;
  esac
done
`

func fakeConfig(t *testing.T) protocol.EngineConfig {
	t.Helper()
	return protocol.EngineConfig{
		Name:     "fake",
		Path:     "/bin/sh",
		Args:     []string{"-c", fakeUCIScript},
		Protocol: protocol.UCI,
	}
}

func TestWorkerReachesReady(t *testing.T) {
	ctx := context.Background()
	w, err := worker.Start(ctx, fakeConfig(t), worker.ProcessFactory(nil), nil)
	require.NoError(t, err)
	defer w.Stop(false)

	assert.Equal(t, worker.Ready, w.State())
}

func TestWorkerRequestReady(t *testing.T) {
	ctx := context.Background()
	w, err := worker.Start(ctx, fakeConfig(t), worker.ProcessFactory(nil), nil)
	require.NoError(t, err)
	defer w.Stop(false)

	assert.True(t, w.RequestReady(2*time.Second))
}

func TestWorkerComputeMoveDeliversBestMove(t *testing.T) {
	ctx := context.Background()
	w, err := worker.Start(ctx, fakeConfig(t), worker.ProcessFactory(nil), nil)
	require.NoError(t, err)
	defer w.Stop(false)

	events := make(chan protocol.EngineEvent, 8)
	w.SetEventSink(func(ev protocol.EngineEvent) { events <- ev })

	w.ComputeMove(adapter.GameRecord{}, protocol.GoLimits{WTimeMs: 1000, BTimeMs: 1000})

	select {
	case ev := <-events:
		assert.Equal(t, protocol.BestMove, ev.Kind)
		assert.Equal(t, "e2e4", ev.Best)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for bestmove")
	}
}

func TestWorkerFailsToStartOnBadPath(t *testing.T) {
	ctx := context.Background()
	cfg := protocol.EngineConfig{Name: "broken", Path: "/no/such/binary", Protocol: protocol.UCI}

	_, err := worker.Start(ctx, cfg, worker.ProcessFactory(nil), nil)
	assert.Error(t, err)
}
