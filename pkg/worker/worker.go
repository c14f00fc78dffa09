// Package worker implements the engine worker of spec.md §4.3: one
// process + one protocol adapter, a write thread that serializes outgoing
// commands, and a read thread that delivers typed events and watches for
// handshake arrivals.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mangar2/qaplatester/pkg/adapter"
	"github.com/mangar2/qaplatester/pkg/process"
	"github.com/mangar2/qaplatester/pkg/protocol"
	"github.com/mangar2/qaplatester/pkg/report"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/util/iox"
	"go.uber.org/atomic"
)

// State is the worker lifecycle state of spec.md §4.3.
type State int

const (
	Starting State = iota
	Ready
	Failure
	Stopped
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Failure:
		return "failure"
	case Stopped:
		return "stopped"
	default:
		return "starting"
	}
}

const (
	startupUciOkTimeout   = 10 * time.Second
	startupReadyOkTimeout = 2 * time.Second
	recoveryReadyTimeout  = 1 * time.Second
)

// Factory spawns a fresh process + adapter pair for cfg -- the level of
// indirection that lets a Worker restart itself after a crash with the
// same EngineConfig and options, per spec.md §4.3's recovery rule.
type Factory func(ctx context.Context, cfg protocol.EngineConfig, id string) (adapter.Adapter, error)

// ProcessFactory builds a Factory that spawns a real child process and
// wraps it in the protocol-appropriate adapter.
func ProcessFactory(sink adapter.ChecklistSink) Factory {
	return func(ctx context.Context, cfg protocol.EngineConfig, id string) (adapter.Adapter, error) {
		host, err := process.Start(ctx, cfg.Path, cfg.Args, cfg.WorkingDir, false)
		if err != nil {
			return nil, err
		}
		switch cfg.Protocol {
		case protocol.UCI:
			return adapter.NewUCI(ctx, host, id, sink), nil
		case protocol.XBoard:
			return adapter.NewXBoard(ctx, host, id, sink), nil
		default:
			host.Terminate()
			return nil, fmt.Errorf("worker: unsupported protocol %v", cfg.Protocol)
		}
	}
}

type thunk func(adapter.Adapter)

type handshakeWait struct {
	kind protocol.EventKind
	done chan bool
}

// Worker wraps an adapter with the write-queue/read-loop concurrency model
// of spec.md §4.3/§5. The only goroutines allowed to touch the adapter are
// this worker's own write-thread and read-thread.
type Worker struct {
	iox.AsyncCloser

	ctx     context.Context
	cfg     protocol.EngineConfig
	id      string
	factory Factory
	check   *report.Instance

	mu      sync.Mutex
	adp     adapter.Adapter
	state   State
	pending *handshakeWait
	sink    func(protocol.EngineEvent)

	queue chan thunk
	ready chan struct{} // closed once started and the startup sequence has run
	err   error

	restartCount atomic.Int64
	loops        sync.WaitGroup
}

// Start spawns the engine, launches the write/read goroutines, and runs
// the startup handshake (protocol-start, await acknowledgement, apply
// option overrides, await readyok). It returns once the worker reaches
// Ready or Failure.
func Start(ctx context.Context, cfg protocol.EngineConfig, factory Factory, check *report.Instance) (*Worker, error) {
	w := &Worker{
		AsyncCloser: iox.NewAsyncCloser(),
		ctx:         ctx,
		cfg:         cfg,
		id:          cfg.Name,
		factory:     factory,
		check:       check,
		state:       Starting,
		queue:       make(chan thunk, 64),
		ready:       make(chan struct{}),
	}

	adp, err := factory(ctx, cfg, cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("worker: spawn %v: %w", cfg.Name, err)
	}
	w.adp = adp

	w.loops.Add(2)
	go w.writeLoop()
	go w.readLoop()

	if err := w.startup(); err != nil {
		w.mu.Lock()
		w.state = Failure
		w.err = err
		w.mu.Unlock()
		return w, err
	}

	w.mu.Lock()
	w.state = Ready
	w.mu.Unlock()
	return w, nil
}

func (w *Worker) startup() error {
	if !w.postAndAwait(func(a adapter.Adapter) { _ = a.StartProtocol() }, protocol.UciOk, startupUciOkTimeout) {
		return fmt.Errorf("worker: %v failed to acknowledge protocol start", w.id)
	}
	w.post(func(a adapter.Adapter) { _ = a.SetOptionValues(w.cfg.Options) })
	w.post(func(a adapter.Adapter) { _ = a.SetPonder(w.cfg.Ponder) })
	if !w.RequestReady(startupReadyOkTimeout) {
		return fmt.Errorf("worker: %v failed to become ready", w.id)
	}
	return nil
}

// post enqueues a thunk for the write thread. It is the single point of
// command ordering for this worker's adapter.
func (w *Worker) post(fn thunk) {
	select {
	case w.queue <- fn:
	case <-w.Closed():
	}
}

// postAndAwait posts fn and blocks until an event of kind arrives (bounded
// by timeout), returning whether it did.
func (w *Worker) postAndAwait(fn thunk, kind protocol.EventKind, timeout time.Duration) bool {
	done := make(chan bool, 1)
	w.mu.Lock()
	w.pending = &handshakeWait{kind: kind, done: done}
	w.mu.Unlock()

	w.post(fn)

	select {
	case ok := <-done:
		return ok
	case <-time.After(timeout):
		w.mu.Lock()
		w.pending = nil
		w.mu.Unlock()
		return false
	case <-w.Closed():
		return false
	}
}

func (w *Worker) writeLoop() {
	defer w.loops.Done()
	for {
		select {
		case fn, ok := <-w.queue:
			if !ok {
				return
			}
			if fn == nil {
				return // shutdown sentinel
			}
			w.mu.Lock()
			adp := w.adp
			w.mu.Unlock()
			fn(adp)
		case <-w.Closed():
			return
		}
	}
}

func (w *Worker) readLoop() {
	defer w.loops.Done()
	for {
		w.mu.Lock()
		adp := w.adp
		w.mu.Unlock()

		ev := adp.ReadEvent()

		w.mu.Lock()
		pending := w.pending
		if pending != nil && pending.kind == ev.Kind {
			w.pending = nil
		}
		sink := w.sink
		w.mu.Unlock()

		if pending != nil && pending.kind == ev.Kind {
			pending.done <- true
		}

		if ev.Kind == protocol.EngineDisconnected {
			logw.Warningf(w.ctx, "worker %v: engine disconnected", w.id)
			if pending != nil && pending.kind != ev.Kind {
				pending.done <- false
			}
			if sink != nil {
				sink(ev)
			}
			return
		}

		if ev.Kind == protocol.NoData {
			continue
		}

		if sink != nil {
			sink(ev)
		}
	}
}

// SetEventSink registers the callback that receives every non-NoData
// event from the read thread.
func (w *Worker) SetEventSink(fn func(protocol.EngineEvent)) {
	w.mu.Lock()
	w.sink = fn
	w.mu.Unlock()
}

// State reports the worker's current lifecycle state.
func (w *Worker) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// RequestReady sends isready/ping and blocks for readyok/pong up to
// timeout.
func (w *Worker) RequestReady(timeout time.Duration) bool {
	ok := w.postAndAwait(func(a adapter.Adapter) { _ = a.AskForReady(int(time.Now().UnixNano())) }, protocol.ReadyOk, timeout)
	if w.check != nil {
		w.check.Report(adapter.TopicNoDisconnect, ok, fmt.Sprintf("%v: isready timeout after %v", w.id, timeout))
	}
	return ok
}

// SetOption performs a blocking setoption + readyok round-trip.
func (w *Worker) SetOption(name, value string) bool {
	return w.postAndAwait(func(a adapter.Adapter) {
		_ = a.SetTestOption(name, value)
		_ = a.AskForReady(int(time.Now().UnixNano()))
	}, protocol.ReadyOk, 2*time.Second)
}

// ComputeMove posts a computeMove command; it does not block for the
// reply, since bestmove arrives asynchronously via the event sink.
func (w *Worker) ComputeMove(g adapter.GameRecord, limits protocol.GoLimits) {
	w.post(func(a adapter.Adapter) { _, _ = a.ComputeMove(g, limits, false) })
}

// ComputeMovePonderHit converts an in-flight ponder search into a real
// one.
func (w *Worker) ComputeMovePonderHit(g adapter.GameRecord, limits protocol.GoLimits) {
	w.post(func(a adapter.Adapter) { _, _ = a.ComputeMove(g, limits, true) })
}

// AllowPonder issues a ponder-search on the hypothetical position.
func (w *Worker) AllowPonder(g adapter.GameRecord, limits protocol.GoLimits, ponderMove string) {
	w.post(func(a adapter.Adapter) { _, _ = a.AllowPonder(g, limits, ponderMove) })
}

// NewGame notifies the engine of a new game.
func (w *Worker) NewGame() {
	w.post(func(a adapter.Adapter) { _ = a.NewGame() })
}

// MoveNow requests the engine to move immediately. If waitForBestmove, it
// blocks (bounded by timeout) for the resulting BestMove event, returning
// false on timeout -- the caller (player context / game manager) should
// then restart the worker.
func (w *Worker) MoveNow(waitForBestmove bool, timeout time.Duration) bool {
	if !waitForBestmove {
		w.post(func(a adapter.Adapter) { _ = a.MoveNow() })
		return true
	}
	return w.postAndAwait(func(a adapter.Adapter) { _ = a.MoveNow() }, protocol.BestMove, timeout)
}

// Stop posts the terminate-engine thunk plus a shutdown sentinel. If wait,
// it blocks (up to 5s) for the process to exit.
func (w *Worker) Stop(wait bool) {
	w.mu.Lock()
	w.state = Stopped
	w.mu.Unlock()

	w.post(func(a adapter.Adapter) { a.TerminateEngine() })
	select {
	case w.queue <- nil: // shutdown sentinel
	case <-w.Closed():
	}
	w.Close()

	if wait {
		done := make(chan struct{})
		go func() {
			w.loops.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			// writeLoop/readLoop did not exit in time; the process host's
			// own Terminate() already forced the child down.
		}
	}
}

// Restart replaces the underlying adapter/process with a freshly spawned
// instance of the same EngineConfig, re-applying option overrides, per
// spec.md §4.3's recovery rule. The caller must still re-run NewGame and
// re-issue the position.
func (w *Worker) Restart() error {
	w.restartCount.Inc()

	w.mu.Lock()
	old := w.adp
	w.mu.Unlock()
	old.TerminateEngine()

	adp, err := w.factory(w.ctx, w.cfg, w.id)
	if err != nil {
		w.mu.Lock()
		w.state = Failure
		w.mu.Unlock()
		return err
	}

	w.mu.Lock()
	w.adp = adp
	w.pending = nil
	w.mu.Unlock()

	return w.startup()
}

// RestartCount reports how many times this worker has been restarted.
func (w *Worker) RestartCount() int64 {
	return w.restartCount.Load()
}

// Identifier returns the engine's display name, used to tag events and log
// lines.
func (w *Worker) Identifier() string {
	return w.id
}

// Config returns the EngineConfig this worker was started with.
func (w *Worker) Config() protocol.EngineConfig {
	return w.cfg
}
