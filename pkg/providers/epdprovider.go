// Package providers implements the two concrete task sources of
// spec.md §4.10: an EPD best-move checker (ComputeMove tasks against a
// single worker) and a self-test provider (PlayGame tasks, an engine
// against itself, exercising protocol conformance over many games).
package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/mangar2/qaplatester/pkg/adapter"
	"github.com/mangar2/qaplatester/pkg/chessstate"
	"github.com/mangar2/qaplatester/pkg/epd"
	"github.com/mangar2/qaplatester/pkg/protocol"
	"github.com/mangar2/qaplatester/pkg/report"
	"github.com/mangar2/qaplatester/pkg/worker"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/lang"
)

// EPDResult is one suite entry's outcome.
type EPDResult struct {
	Entry   epd.Entry
	Played  string // the engine's actual move in SAN, if it could be converted
	Correct bool
	ElapsedMs int64
}

// EPDReport is the suite-wide tally.
type EPDReport struct {
	Results []EPDResult
	Correct int
	Total   int
}

// RunSuite drives w through every entry of suite, issuing a fresh
// position + "go movetime" per entry (ComputeMove tasks are single-ply:
// there is no opposing engine, only a best-move judgment), and records
// whether the returned move matches one of the entry's accepted bm SAN
// tokens.
//
// w must already be Ready. RunSuite does not restart it on a
// mid-suite disconnect; the caller's keep-alive polling (mirrored from
// the game package) is out of scope for a single-engine suite run.
func RunSuite(ctx context.Context, w *worker.Worker, suite []epd.Entry, moveTimeMs int64, check *report.Instance) (*EPDReport, error) {
	rep := &EPDReport{}

	events := make(chan protocol.EngineEvent, 8)
	w.SetEventSink(func(ev protocol.EngineEvent) { events <- ev })

	for _, entry := range suite {
		board, err := chessstate.NewFromFEN(entry.FEN)
		if err != nil {
			logw.Warningf(ctx, "epd: entry %v: bad FEN: %v", entry.ID, err)
			continue
		}

		w.NewGame()

		start := time.Now().UnixMilli()
		w.ComputeMove(adapter.GameRecord{StartFEN: entry.FEN}, protocol.GoLimits{MoveTimeMs: lang.Some(moveTimeMs)})

		lan, err := awaitBestMove(ctx, events, moveTimeMs+5000)
		if err != nil {
			logw.Warningf(ctx, "epd: entry %v: %v", entry.ID, err)
			rep.Results = append(rep.Results, EPDResult{Entry: entry})
			rep.Total++
			continue
		}

		elapsed := time.Now().UnixMilli() - start
		played := lan
		if mv, err := board.StringToMove(lan); err == nil {
			played = board.MoveToSAN(mv)
		}

		correct := matchesAny(played, entry.BestSAN)
		if correct {
			rep.Correct++
		}
		rep.Total++
		rep.Results = append(rep.Results, EPDResult{Entry: entry, Played: played, Correct: correct, ElapsedMs: elapsed})

		if check != nil {
			check.Report("epd-best-move", correct, fmt.Sprintf("%v: expected %v, got %v", entry.ID, entry.BestSAN, played))
		}
	}
	return rep, nil
}

func awaitBestMove(ctx context.Context, events <-chan protocol.EngineEvent, timeoutMs int64) (string, error) {
	deadline := time.After(time.Duration(timeoutMs) * time.Millisecond)
	for {
		select {
		case ev := <-events:
			switch ev.Kind {
			case protocol.BestMove:
				return ev.Best, nil
			case protocol.EngineDisconnected:
				return "", fmt.Errorf("engine disconnected while computing")
			}
		case <-deadline:
			return "", fmt.Errorf("timed out waiting for bestmove")
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}

func matchesAny(lan string, bestSAN []string) bool {
	for _, san := range bestSAN {
		if lan == san {
			return true
		}
	}
	return false
}
