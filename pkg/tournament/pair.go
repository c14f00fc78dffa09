// Package tournament implements the engine-duel scheduling of
// spec.md §4.7: pairing, color alternation, opening
// rotation, and the persisted result ledger that lets a tournament
// resume after an interruption.
package tournament

import (
	"context"
	"sync"

	"github.com/mangar2/qaplatester/pkg/game"
	"github.com/mangar2/qaplatester/pkg/player"
	"github.com/mangar2/qaplatester/pkg/protocol"
)

// Pairing is one engine-vs-engine duel under test: the two EngineConfigs,
// the TimeControl both sides play under, and the opening book driving
// successive games.
type Pairing struct {
	White, Black protocol.EngineConfig
	TC           protocol.TimeControl
	Openings     *OpeningBook
	GamesTarget  int // total games to play (both colors count); 0 means unbounded (SPRT-driven)
}

// Duel schedules games for a single Pairing, generating two games per
// opening (one per color) so strength differences attributable to color
// cancel out, per spec.md §4.7.
type Duel struct {
	pairing Pairing

	mu       sync.Mutex
	nextTask int64
	played   int
	result   *EngineDuelResult
	opening  Opening // opening shared by the current pair of tasks
}

// NewDuel creates a fresh, empty Duel for pairing.
func NewDuel(pairing Pairing) *Duel {
	return &Duel{pairing: pairing, result: NewEngineDuelResult(pairing.White.Name, pairing.Black.Name)}
}

// Result returns the running EngineDuelResult. Callers must go through
// its own exported methods (Score, String, ToString, ...), which take
// the result's own lock, rather than reading its fields directly.
func (d *Duel) Result() *EngineDuelResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

// NextTask implements pool.TaskProvider's scheduling half: it returns two
// PlayGame tasks per opening (white-then-black), stopping once
// GamesTarget is reached (0 means never stop here; an SPRT-aware wrapper
// decides when to stop instead).
func (d *Duel) NextTask(ctx context.Context, whiteID, blackID string) (*game.Task, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pairing.GamesTarget > 0 && d.played >= d.pairing.GamesTarget {
		return nil, false
	}

	switchSide := d.nextTask%2 == 1 // odd tasks swap colors on the SAME opening
	if !switchSide {
		d.opening = d.pairing.Openings.Next()
	}
	opening := d.opening

	round := int(d.nextTask/2) + 1
	d.nextTask++
	d.played++

	white, black := d.pairing.White.Name, d.pairing.Black.Name
	if switchSide {
		white, black = black, white
	}

	rec := game.NewRecord(opening.FEN, white, black, round, d.pairing.TC, d.pairing.TC)
	for k, v := range opening.Tags {
		rec.Tags[k] = v
	}

	return &game.Task{Type: game.PlayGame, Record: rec, TaskID: d.nextTask, SwitchSide: switchSide, Round: round}, true
}

// SetGameRecord folds a finished game into the running result and the PV
// sink is a no-op for duel scheduling (only EPD-style providers act on
// SetPV).
func (d *Duel) SetGameRecord(rec *game.Record) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.result.Add(rec)
}

// SetPV is a no-op: a strength-measurement duel does not inspect
// intermediate search output, only final game outcomes.
func (d *Duel) SetPV(engineID string, pv []string, elapsedMs int64, depth, nodes, multipv int) bool {
	return false
}

var _ player.PVSink = (*Duel)(nil)
