package process_test

import (
	"context"
	"testing"
	"time"

	"github.com/mangar2/qaplatester/pkg/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoScript is a tiny shell line-echoer standing in for a protocol engine:
// it reads a line and immediately writes it back with a prefix, just like
// a UCI engine echoing "uciok" after "uci".
const echoScript = `while IFS= read -r line; do echo "got:$line"; done`

func TestHostWriteAndRead(t *testing.T) {
	ctx := context.Background()

	h, err := process.Start(ctx, "/bin/sh", []string{"-c", echoScript}, "", false)
	require.NoError(t, err)
	defer h.Terminate()

	_, err = h.WriteLine("hello")
	require.NoError(t, err)

	line := h.ReadLineBlocking()
	require.NoError(t, line.Err)
	assert.Equal(t, "got:hello", line.Content)
	assert.True(t, line.Complete)
	assert.Greater(t, line.TimestampMs, int64(0))
}

func TestHostTerminateIsIdempotent(t *testing.T) {
	ctx := context.Background()

	h, err := process.Start(ctx, "/bin/sh", []string{"-c", echoScript}, "", false)
	require.NoError(t, err)

	h.Terminate()
	h.Terminate() // must not panic or block

	assert.False(t, h.IsRunning())
}

func TestHostDisconnectYieldsErrorLine(t *testing.T) {
	ctx := context.Background()

	h, err := process.Start(ctx, "/bin/sh", []string{"-c", "exit 0"}, "", false)
	require.NoError(t, err)
	defer h.Terminate()

	assert.True(t, h.WaitForExit(2*time.Second))

	line := h.ReadLineBlocking()
	assert.ErrorIs(t, line.Err, process.ErrTerminated)
}
