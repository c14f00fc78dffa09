package pool_test

import (
	"context"
	"testing"
	"time"

	"github.com/mangar2/qaplatester/pkg/pool"
	"github.com/mangar2/qaplatester/pkg/protocol"
	"github.com/mangar2/qaplatester/pkg/report"
	"github.com/mangar2/qaplatester/pkg/tournament"
	"github.com/mangar2/qaplatester/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Same Fool's Mate fixed-script engines as game/manager_test.go, run
// through the pool/TaskProvider/Duel path end to end instead of driving
// the manager directly.
const whiteFoolsMateScript = `
echo "id name W"
echo "uciok"
moves="f2f3 g2g4"
i=0
while IFS= read -r line; do
  case "$line" in
    isready) echo "readyok" ;;
    go*)
      i=$((i+1))
      set -- $moves
      eval "mv=\${$i}"
      echo "bestmove $mv"
      ;;
    quit) exit 0 ;;
  esac
done
`

const blackFoolsMateScript = `
echo "id name B"
echo "uciok"
moves="e7e5 d8h4"
i=0
while IFS= read -r line; do
  case "$line" in
    isready) echo "readyok" ;;
    go*)
      i=$((i+1))
      set -- $moves
      eval "mv=\${$i}"
      echo "bestmove $mv"
      ;;
    quit) exit 0 ;;
  esac
done
`

func TestPoolPlaysSingleGameThroughDuel(t *testing.T) {
	ctx := context.Background()
	check := report.NewInstance(ctx, nil, "match")

	whiteCfg := protocol.EngineConfig{Name: "white-engine", Path: "/bin/sh", Args: []string{"-c", whiteFoolsMateScript}, Protocol: protocol.UCI}
	blackCfg := protocol.EngineConfig{Name: "black-engine", Path: "/bin/sh", Args: []string{"-c", blackFoolsMateScript}, Protocol: protocol.UCI}

	duel := tournament.NewDuel(tournament.Pairing{
		White:       whiteCfg,
		Black:       blackCfg,
		Openings:    tournament.NewOpeningBook(nil, true, nil),
		GamesTarget: 1,
	})

	p, err := pool.New(ctx, worker.ProcessFactory(check), []pool.SlotEngines{{White: whiteCfg, Black: blackCfg}}, duel, check)
	require.NoError(t, err)
	defer p.Stop()

	done := make(chan struct{})
	go func() { p.Run(); close(done) }()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("pool did not finish its single game in time")
	}

	result := duel.Result()
	assert.Equal(t, 1, result.Games)
	assert.Equal(t, 1, result.Losses) // white-engine is First and was mated as White (Fool's Mate)
}
