package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mangar2/qaplatester/pkg/config"
	"github.com/mangar2/qaplatester/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleTOML = `
tc = "40/60+0.5"
concurrency = 2
openings = "book.epd"

[[engine]]
name = "candidate"
path = "/usr/local/bin/candidate"
protocol = "uci"
ponder = true
  [engine.options]
  Hash = "128"

[[engine]]
name = "baseline"
path = "/usr/local/bin/baseline"
protocol = "xboard"

[sprt]
elo0 = 0
elo1 = 5
alpha = 0.05
beta = 0.05
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "engines.toml")
	require.NoError(t, os.WriteFile(path, []byte(sampleTOML), 0o644))
	return path
}

func TestLoadManagerResolvesProtocolsAndOptions(t *testing.T) {
	mgr, file, err := config.LoadManager(writeSample(t))
	require.NoError(t, err)

	assert.Equal(t, "40/60+0.5", file.TC)
	assert.Equal(t, 2, file.Concurrency)
	require.NotNil(t, file.SPRT)
	assert.Equal(t, 5.0, file.SPRT.Elo1)

	candidate, ok := mgr.Get("candidate")
	require.True(t, ok)
	assert.Equal(t, protocol.UCI, candidate.Protocol)
	assert.True(t, candidate.Ponder)
	assert.Equal(t, "128", candidate.Options["Hash"])

	baseline, ok := mgr.Get("baseline")
	require.True(t, ok)
	assert.Equal(t, protocol.XBoard, baseline.Protocol)

	assert.Len(t, mgr.All(), 2)
}

func TestManagerRejectsDuplicateNames(t *testing.T) {
	mgr := config.NewManager()
	require.NoError(t, mgr.Add(protocol.EngineConfig{Name: "a", Path: "/bin/a", Protocol: protocol.UCI}))
	assert.Error(t, mgr.Add(protocol.EngineConfig{Name: "a", Path: "/bin/a2", Protocol: protocol.UCI}))
}

func TestLoadManagerRejectsUnknownProtocol(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[[engine]]
name = "x"
path = "/bin/x"
protocol = "telepathy"
`), 0o644))

	_, _, err := config.LoadManager(path)
	assert.Error(t, err)
}
