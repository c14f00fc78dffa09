// Package pool implements the concurrency layer of spec.md §4.6: a fixed
// number of GameManager slots, each repeatedly pulling work from a
// TaskProvider until the provider reports exhaustion.
package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/mangar2/qaplatester/pkg/chessstate"
	"github.com/mangar2/qaplatester/pkg/game"
	"github.com/mangar2/qaplatester/pkg/player"
	"github.com/mangar2/qaplatester/pkg/protocol"
	"github.com/mangar2/qaplatester/pkg/report"
	"github.com/mangar2/qaplatester/pkg/worker"
	"github.com/seekerror/logw"
)

// TaskProvider supplies games to play and receives their outcomes. It
// also acts as the PVSink every player.Context forwards live search
// snapshots to, so a provider such as an EPD best-move checker can stop a
// search early once its target move has been seen.
type TaskProvider interface {
	player.PVSink

	// NextTask returns the next unit of work for the (whiteID, blackID)
	// worker pair, or !ok once this provider is exhausted for that pairing.
	NextTask(ctx context.Context, whiteID, blackID string) (task *game.Task, ok bool)

	// SetGameRecord reports a finished game's record back to the provider
	// (for persistence, PGN emission, or SPRT accounting).
	SetGameRecord(rec *game.Record)
}

// Slot is one concurrent game-playing unit: a fixed pair of engine
// workers that loop over tasks from a TaskProvider until it is
// exhausted. Workers are reused across games within a slot (restarted
// in place on crash), never recreated per game.
type Slot struct {
	ctx      context.Context
	id       int
	white    *worker.Worker
	black    *worker.Worker
	provider TaskProvider
	check    *report.Instance
}

// NewSlot creates a game-playing slot bound to two already-started
// workers.
func NewSlot(ctx context.Context, id int, white, black *worker.Worker, provider TaskProvider, check *report.Instance) *Slot {
	return &Slot{ctx: ctx, id: id, white: white, black: black, provider: provider, check: check}
}

// Run pulls tasks until the provider reports exhaustion or the context is
// canceled, playing each one to completion.
func (s *Slot) Run() {
	for {
		select {
		case <-s.ctx.Done():
			return
		default:
		}

		task, ok := s.provider.NextTask(s.ctx, s.white.Identifier(), s.black.Identifier())
		if !ok {
			return
		}

		whiteWorker, blackWorker := s.white, s.black
		if task.SwitchSide {
			whiteWorker, blackWorker = s.black, s.white
		}

		if err := s.playOne(task, whiteWorker, blackWorker); err != nil {
			logw.Errorf(s.ctx, "pool slot %d: game %d failed: %v", s.id, task.TaskID, err)
		}
	}
}

func (s *Slot) playOne(task *game.Task, whiteWorker, blackWorker *worker.Worker) error {
	rec := task.Record

	var board *chessstate.State
	var err error
	if rec.StartFEN == "" {
		board = chessstate.NewFromStart()
	} else {
		board, err = chessstate.NewFromFEN(rec.StartFEN)
		if err != nil {
			return fmt.Errorf("pool: bad start position %q: %w", rec.StartFEN, err)
		}
	}

	whiteCtx := player.New(s.ctx, "white", whiteWorker, board.Fork(), rec.WhiteTC, s.check, s.provider)
	blackCtx := player.New(s.ctx, "black", blackWorker, board.Fork(), rec.BlackTC, s.check, s.provider)

	mgr := game.NewManager(s.ctx, rec, board, whiteCtx, blackCtx, s.check)
	if err := mgr.Play(); err != nil {
		return err
	}

	s.provider.SetGameRecord(rec)
	return nil
}

// Pool runs a fixed number of concurrent Slots, each a (white, black)
// worker pair drawn from factory, against a single shared TaskProvider.
type Pool struct {
	ctx   context.Context
	slots []*Slot
}

// SlotEngines names the two engines bound to one slot.
type SlotEngines struct {
	White, Black protocol.EngineConfig
}

// New starts one slot per entry of pairs, spawning a fresh pair of workers
// per slot via factory, all registered against provider.
func New(ctx context.Context, factory worker.Factory, pairs []SlotEngines, provider TaskProvider, check *report.Instance) (*Pool, error) {
	p := &Pool{ctx: ctx}
	for i, pair := range pairs {
		w, err := worker.Start(ctx, pair.White, factory, check)
		if err != nil {
			return nil, fmt.Errorf("pool: slot %d: start white %v: %w", i, pair.White.Name, err)
		}
		b, err := worker.Start(ctx, pair.Black, factory, check)
		if err != nil {
			w.Stop(true)
			return nil, fmt.Errorf("pool: slot %d: start black %v: %w", i, pair.Black.Name, err)
		}
		p.slots = append(p.slots, NewSlot(ctx, i, w, b, provider, check))
	}
	return p, nil
}

// Run blocks until every slot's TaskProvider is exhausted.
func (p *Pool) Run() {
	var wg sync.WaitGroup
	for _, s := range p.slots {
		wg.Add(1)
		go func(s *Slot) {
			defer wg.Done()
			s.Run()
		}(s)
	}
	wg.Wait()
}

// Stop terminates every slot's workers. Call after Run returns, or to
// abort early.
func (p *Pool) Stop() {
	for _, s := range p.slots {
		s.white.Stop(true)
		s.black.Stop(true)
	}
}

// WaitForTask is a convenience helper a TaskProvider can embed when it
// generates tasks on demand from a bounded backlog channel rather than a
// precomputed slice, mirroring spec.md's queue-based providers (EPD
// streaming, SPRT round-by-round scheduling).
type WaitForTask struct {
	mu      sync.Mutex
	backlog []*game.Task
	done    bool
}

// Push adds a task to the backlog.
func (w *WaitForTask) Push(t *game.Task) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.backlog = append(w.backlog, t)
}

// Close marks the backlog as exhausted once drained.
func (w *WaitForTask) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.done = true
}

// Pop removes and returns the oldest queued task, if any.
func (w *WaitForTask) Pop() (*game.Task, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.backlog) == 0 {
		return nil, false
	}
	t := w.backlog[0]
	w.backlog = w.backlog[1:]
	return t, true
}

// Exhausted reports whether the backlog is both closed and empty.
func (w *WaitForTask) Exhausted() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done && len(w.backlog) == 0
}
