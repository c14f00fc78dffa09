// Package player implements the player context of spec.md §4.4: one
// instance per side of a game, binding a worker to a shadow board, a
// clock, the move record under construction, and any pending ponder move.
package player

import (
	"context"
	"fmt"
	"time"

	"github.com/mangar2/qaplatester/pkg/adapter"
	"github.com/mangar2/qaplatester/pkg/chessstate"
	"github.com/mangar2/qaplatester/pkg/game"
	"github.com/mangar2/qaplatester/pkg/protocol"
	"github.com/mangar2/qaplatester/pkg/report"
	"github.com/mangar2/qaplatester/pkg/worker"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/lang"
	"go.uber.org/atomic"
)

// PVSink receives intermediate search information, mirroring spec.md's
// provider.setPV(engineId, pv, elapsed, depth, nodes, multipv) -> early
// stop requested. Defined here (not imported from pool, which would
// import player) to avoid a dependency cycle; pool.TaskProvider satisfies
// it structurally.
type PVSink interface {
	SetPV(engineID string, pv []string, elapsedMs int64, depth, nodes, multipv int) bool
}

const (
	movetimeGraceMs  = 100
	movetimeMinRatio = 0.99
	depthMinRatio    = 0.90
	nodesGrace       = 1000

	keepAliveOverrunMs = 5000
	keepAliveRestockMs = 1000
)

// Context is one side's player context.
type Context struct {
	ctx      context.Context
	side     string // "white" or "black"
	worker   *worker.Worker
	shadow   *chessstate.State
	tc       protocol.TimeControl
	checklist *report.Instance
	pvSink   PVSink

	clockMs   atomic.Int64
	incMs     int64
	movesToGo int

	computeStartMs int64
	limits         protocol.GoLimits
	current        *game.MoveRecord
	computing      atomic.Bool

	ponderMove    lang.Optional[string]
	ponderActive  atomic.Bool

	segIdx int
}

// New creates a player context for side ("white"/"black"), bound to w and
// starting from the given shadow board (independent per side, since each
// side validates its own engine's moves against its own copy).
func New(ctx context.Context, side string, w *worker.Worker, shadow *chessstate.State, tc protocol.TimeControl, checklist *report.Instance, pvSink PVSink) *Context {
	base, inc, movesToGo := tc.Clock()
	c := &Context{
		ctx: ctx, side: side, worker: w, shadow: shadow, tc: tc,
		checklist: checklist, pvSink: pvSink, incMs: inc, movesToGo: movesToGo,
	}
	c.clockMs.Store(base)
	return c
}

func (c *Context) Side() string      { return c.side }
func (c *Context) Worker() *worker.Worker { return c.worker }
func (c *Context) Shadow() *chessstate.State { return c.shadow }
func (c *Context) RemainingMs() int64 { return c.clockMs.Load() }
func (c *Context) IsComputing() bool  { return c.computing.Load() }

// IncrementMs returns the per-move increment in effect for this side's
// current time-control segment.
func (c *Context) IncrementMs() int64 { return c.incMs }

// MovesToGo returns the number of moves left before this side's current
// time-control segment resets (0 if the segment is sudden-death).
func (c *Context) MovesToGo() int { return c.movesToGo }

// StartCompute issues computeMove for the opponent's last applied move
// (already reflected in the shared game record the caller passes in),
// first replaying onto the shadow board the moves of g it has not seen,
// and recording the GoLimits in effect and the send timestamp.
func (c *Context) StartCompute(g adapter.GameRecord, limits protocol.GoLimits) {
	for i := len(c.shadow.LAN()); i < len(g.Moves); i++ {
		if _, err := c.shadow.DoLAN(g.Moves[i]); err != nil {
			logw.Warningf(c.ctx, "player %v: shadow board rejected %v: %v", c.side, g.Moves[i], err)
			break
		}
	}
	c.limits = limits
	c.current = &game.MoveRecord{}
	c.computing.Store(true)
	c.computeStartMs = time.Now().UnixMilli()
	c.worker.ComputeMove(g, limits)
}

// StartPonder applies ponderMove to the shadow board and issues a ponder
// search on the hypothetical position it reaches.
func (c *Context) StartPonder(g adapter.GameRecord, limits protocol.GoLimits, ponderMove string) {
	if _, err := c.shadow.DoLAN(ponderMove); err != nil {
		logw.Warningf(c.ctx, "player %v: shadow board rejected ponder move %v: %v", c.side, ponderMove, err)
	}
	c.ponderMove = lang.Some(ponderMove)
	c.ponderActive.Store(true)
	c.limits = limits
	c.worker.AllowPonder(g, limits, ponderMove)
}

// PonderHit converts the in-flight ponder search into a real one, because
// the opponent played exactly the move that was pondered.
func (c *Context) PonderHit(g adapter.GameRecord, limits protocol.GoLimits) {
	c.ponderActive.Store(false)
	c.ponderMove = lang.Optional[string]{}
	c.limits = limits
	c.current = &game.MoveRecord{}
	c.computing.Store(true)
	c.computeStartMs = time.Now().UnixMilli()
	c.worker.ComputeMovePonderHit(g, limits)
}

// PonderMiss halts the stale ponder search (waiting for its bestmove) and
// undoes the pondered move from the shadow board.
func (c *Context) PonderMiss() {
	c.ponderActive.Store(false)
	c.worker.MoveNow(true, 2*time.Second)
	c.shadow.UndoMove()
	c.ponderMove = lang.Optional[string]{}
}

// PendingPonderMove reports the opponent move this side's engine is
// pondering on, if any.
func (c *Context) PendingPonderMove() (string, bool) {
	return c.ponderMove.V()
}

// OnInfo updates the running move record with the latest search snapshot,
// replays PV tokens against the shadow board (flagging an illegal PV as a
// Notes-class failure), and forwards the snapshot to the PV sink, whose
// return value signals an early-stop request.
func (c *Context) OnInfo(ev protocol.EngineEvent) (earlyStop bool) {
	info := ev.SearchInfo
	if c.current == nil {
		c.current = &game.MoveRecord{}
	}
	if d, ok := info.Depth.V(); ok {
		c.current.Depth = d
	}
	if sd, ok := info.SelDepth.V(); ok {
		c.current.SelDepth = sd
	}
	if mpv, ok := info.MultiPV.V(); ok {
		c.current.MultiPV = mpv
	}
	if n, ok := info.Nodes.V(); ok {
		c.current.Nodes = n
	}
	c.current.ScoreCp = info.ScoreCp
	c.current.ScoreMate = info.ScoreMate
	if len(info.PV) > 0 {
		c.current.PV = info.PV

		legalPrefix, ok := c.shadow.PV(info.PV)
		if !ok {
			c.checklist.Report(adapter.TopicIllegalPV, false, fmt.Sprintf("illegal PV move at index %d: %v", legalPrefix, info.PV))
		} else {
			c.checklist.Report(adapter.TopicIllegalPV, true, "")
		}
	}

	if c.pvSink != nil {
		elapsed := time.Now().UnixMilli() - c.computeStartMs
		depth, _ := info.Depth.V()
		nodes, _ := info.Nodes.V()
		multipv, _ := info.MultiPV.V()
		engineID := ""
		if c.worker != nil {
			engineID = c.worker.Identifier()
		}
		return c.pvSink.SetPV(engineID, info.PV, elapsed, depth, int(nodes), multipv)
	}
	return false
}

// OnBestMove validates the bestmove via StringToMove(lan, requireLan=true).
// An illegal move ends the game with IllegalMove, offender loses. A legal
// move is applied, timeMs is filled in from timestamps, and the completed
// MoveRecord is returned for the game manager to append.
func (c *Context) OnBestMove(ev protocol.EngineEvent) (mr game.MoveRecord, cause chessstate.EndCause, err error) {
	c.computing.Store(false)
	elapsed := ev.TimestampMs - c.computeStartMs

	mv, perr := c.shadow.StringToMove(ev.Best)
	if perr != nil {
		c.checklist.Report(adapter.TopicLegalMove, false, fmt.Sprintf("%v: %v", ev.Best, perr))
		return game.MoveRecord{}, chessstate.CauseIllegalMove, perr
	}
	c.checklist.Report(adapter.TopicLegalMove, true, "")

	san := c.shadow.MoveToSAN(mv)
	if err := c.shadow.DoMove(mv); err != nil {
		c.checklist.Report(adapter.TopicLegalMove, false, fmt.Sprintf("%v: %v", ev.Best, err))
		return game.MoveRecord{}, chessstate.CauseIllegalMove, err
	}

	if c.current == nil {
		c.current = &game.MoveRecord{}
	}
	mr = *c.current
	mr.LAN = ev.Best
	mr.SAN = san
	mr.TimeMs = elapsed
	c.current = nil

	if ok, timeoutCause := c.checkTime(elapsed, mr); !ok {
		return mr, timeoutCause, nil
	}
	c.applyClockAfterMove(elapsed)
	return mr, chessstate.CauseOngoing, nil
}

func (c *Context) applyClockAfterMove(elapsedMs int64) {
	if _, ok := c.limits.MoveTimeMs.V(); ok {
		return // movetime-limited games do not consume a shared clock
	}
	remaining := c.clockMs.Load() - elapsedMs + c.incMs
	if remaining < 0 {
		remaining = 0
	}

	if c.movesToGo > 0 {
		c.movesToGo--
		if c.movesToGo == 0 && c.segIdx+1 < len(c.tc.Segments) {
			c.segIdx++
			next := c.tc.Segments[c.segIdx]
			remaining += next.BaseTimeMs
			c.incMs = next.IncrementMs
			c.movesToGo = next.MovesToPlay
		}
	}

	c.clockMs.Store(remaining)
}

// checkTime validates the elapsed move time, and the depth/nodes reached by
// the completed move mr, against the concrete GoLimits in effect, per
// spec.md §4.4.
func (c *Context) checkTime(elapsedMs int64, mr game.MoveRecord) (ok bool, cause chessstate.EndCause) {
	timeLeft := c.clockMs.Load()
	if _, mtSet := c.limits.MoveTimeMs.V(); !mtSet && !c.limits.Infinite {
		if timeLeft > 0 && elapsedMs > timeLeft {
			c.checklist.Report(adapter.TopicNoLossOnTime, false, fmt.Sprintf("%dms over %dms remaining", elapsedMs, timeLeft))
			return false, chessstate.CauseTimeout
		}
		c.checklist.Report(adapter.TopicNoLossOnTime, true, "")
	}

	singleLimit := c.isSingleLimit()

	if mt, ok := c.limits.MoveTimeMs.V(); ok {
		overrun := elapsedMs > mt+movetimeGraceMs
		c.checklist.Report(adapter.TopicNoMovetimeOverrun, !overrun, fmt.Sprintf("%dms vs limit %dms", elapsedMs, mt))
		if overrun {
			return false, chessstate.CauseTimeout
		}
		if singleLimit {
			underrun := elapsedMs < int64(float64(mt)*movetimeMinRatio)
			c.checklist.Report(adapter.TopicNoMovetimeUnderrun, !underrun, fmt.Sprintf("%dms vs limit %dms", elapsedMs, mt))
		}
	}

	if d, ok := c.limits.Depth.V(); ok && singleLimit {
		if mr.Depth > d {
			c.checklist.Report("no-depth-overrun", false, fmt.Sprintf("depth %d over limit %d", mr.Depth, d))
		} else if float64(mr.Depth) < float64(d)*depthMinRatio {
			c.checklist.Report("no-depth-underrun", false, fmt.Sprintf("depth %d under limit %d", mr.Depth, d))
		}
	}

	if n, ok := c.limits.Nodes.V(); ok {
		if mr.Nodes > n+nodesGrace {
			c.checklist.Report("no-nodes-overrun", false, fmt.Sprintf("nodes %d over limit %d", mr.Nodes, n))
		} else if singleLimit && mr.Nodes < int64(float64(n)*0.90) {
			c.checklist.Report("no-nodes-underrun", false, fmt.Sprintf("nodes %d under limit %d", mr.Nodes, n))
		}
	}

	return true, chessstate.CauseOngoing
}

// isSingleLimit reports whether exactly one of movetime/depth/nodes is the
// active constraint for this move (the clock itself does not count),
// since the underrun checks of spec.md §4.4 only apply to single-limit
// runs.
func (c *Context) isSingleLimit() bool {
	n := 0
	if _, ok := c.limits.MoveTimeMs.V(); ok {
		n++
	}
	if _, ok := c.limits.Depth.V(); ok {
		n++
	}
	if _, ok := c.limits.Nodes.V(); ok {
		n++
	}
	return n == 1
}

// CheckEngineTimeout is polled once per second by the game manager. If
// computing and the wall-clock overrun exceeds the clock by
// keepAliveOverrunMs, it issues moveNow; if the engine does not come ready
// within keepAliveRestockMs, the engine is restarted and the caller should
// terminate the game with Disconnected.
func (c *Context) CheckEngineTimeout() (needsRestart bool) {
	if !c.computing.Load() {
		return false
	}
	elapsed := time.Now().UnixMilli() - c.computeStartMs
	overrun := elapsed - c.clockMs.Load()
	if overrun < keepAliveOverrunMs {
		return false
	}

	logw.Warningf(c.ctx, "player %v: keep-alive overrun %dms, issuing moveNow", c.side, overrun)
	if c.worker.MoveNow(true, keepAliveRestockMs*time.Millisecond) {
		return false
	}

	if !c.worker.RequestReady(keepAliveRestockMs * time.Millisecond) {
		logw.Errorf(c.ctx, "player %v: engine unresponsive, restarting", c.side)
		return true
	}
	return false
}

// Restart replaces the underlying worker's process with a fresh instance.
func (c *Context) Restart() error {
	return c.worker.Restart()
}
