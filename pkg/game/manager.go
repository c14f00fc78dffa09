package game

import (
	"context"
	"fmt"
	"time"

	"github.com/mangar2/qaplatester/pkg/adapter"
	"github.com/mangar2/qaplatester/pkg/chessstate"
	"github.com/mangar2/qaplatester/pkg/protocol"
	"github.com/mangar2/qaplatester/pkg/report"
	"github.com/mangar2/qaplatester/pkg/worker"
	"github.com/seekerror/logw"
)

// ManagerState is the GameManager lifecycle state of spec.md §4.5.
type ManagerState int

const (
	Idle ManagerState = iota
	ComputingMove
	WaitingForPonderHit
	Finishing
	Finished
)

func (s ManagerState) String() string {
	switch s {
	case ComputingMove:
		return "computing-move"
	case WaitingForPonderHit:
		return "waiting-for-ponder-hit"
	case Finishing:
		return "finishing"
	case Finished:
		return "finished"
	default:
		return "idle"
	}
}

const keepAlivePoll = 1 * time.Second

// Player is the narrow view a GameManager needs of a side's player
// context; satisfied by *player.Context, defined here (rather than
// imported, which would cycle) to keep game -> player a one-way edge
// absent -- the manager depends only on this capability.
type Player interface {
	Side() string
	Worker() *worker.Worker
	Shadow() *chessstate.State
	RemainingMs() int64
	IncrementMs() int64
	MovesToGo() int
	IsComputing() bool
	StartCompute(g adapter.GameRecord, limits protocol.GoLimits)
	StartPonder(g adapter.GameRecord, limits protocol.GoLimits, ponderMove string)
	PonderHit(g adapter.GameRecord, limits protocol.GoLimits)
	PonderMiss()
	PendingPonderMove() (string, bool)
	OnInfo(ev protocol.EngineEvent) bool
	OnBestMove(ev protocol.EngineEvent) (MoveRecord, chessstate.EndCause, error)
	CheckEngineTimeout() bool
	Restart() error
}

// Manager drives one game to completion: it alternates computeMove
// requests between the two Players, maintains the authoritative board via
// an independent chessstate.State, detects termination (checkmate,
// stalemate, draw by rule, or a cause reported by a Player), and appends
// each played move to the Record.
type Manager struct {
	ctx    context.Context
	rec    *Record
	board  *chessstate.State
	white  Player
	black  Player
	check  *report.Instance
	events chan playerEvent

	state ManagerState
}

type playerEvent struct {
	side string
	ev   protocol.EngineEvent
}

// NewManager creates a GameManager for rec, bound to the two already
// started/ready Players. The caller owns worker lifecycle; the manager
// only drives moves.
func NewManager(ctx context.Context, rec *Record, board *chessstate.State, white, black Player, check *report.Instance) *Manager {
	m := &Manager{
		ctx: ctx, rec: rec, board: board, white: white, black: black, check: check,
		events: make(chan playerEvent, 32),
		state:  Idle,
	}
	white.Worker().SetEventSink(func(ev protocol.EngineEvent) { m.events <- playerEvent{"white", ev} })
	black.Worker().SetEventSink(func(ev protocol.EngineEvent) { m.events <- playerEvent{"black", ev} })
	return m
}

func (m *Manager) State() ManagerState { return m.state }

// toMove returns the Player to move given the authoritative board.
func (m *Manager) toMove() Player {
	if m.board.Turn() == "w" {
		return m.white
	}
	return m.black
}

func (m *Manager) opponent(p Player) Player {
	if p == m.white {
		return m.black
	}
	return m.white
}

// Play drives the game from rec's current position to a terminal state,
// alternating computeMove between sides, honoring each engine's ponder
// setting, and returning once rec.Finish has been called.
func (m *Manager) Play() error {
	m.white.Worker().NewGame()
	m.black.Worker().NewGame()

	m.issueCompute(m.toMove())
	m.state = ComputingMove

	ticker := time.NewTicker(keepAlivePoll)
	defer ticker.Stop()

	for m.state != Finished {
		select {
		case pe := <-m.events:
			if done := m.handleEvent(pe); done {
				m.state = Finished
			}
		case <-ticker.C:
			if done := m.pollKeepAlive(); done {
				m.state = Finished
			}
		case <-m.ctx.Done():
			m.rec.Finish(chessstate.CauseDisconnected, drawnOrForfeit(m.board))
			m.state = Finished
		}
	}
	return nil
}

func (m *Manager) issueCompute(p Player) {
	g := adapter.GameRecord{StartFEN: m.rec.StartFEN, Moves: m.board.LAN()}
	limits := m.goLimitsFor(p)
	p.StartCompute(g, limits)
}

func (m *Manager) goLimitsFor(p Player) protocol.GoLimits {
	var tc protocol.TimeControl
	if p.Side() == "white" {
		tc = m.rec.WhiteTC
	} else {
		tc = m.rec.BlackTC
	}
	wMs, bMs := m.white.RemainingMs(), m.black.RemainingMs()
	wInc, bInc := m.white.IncrementMs(), m.black.IncrementMs()
	return protocol.ComputeGoLimits(tc, wMs, bMs, wInc, bInc, p.MovesToGo())
}

// handleEvent processes one engine event, returning whether the game has
// now terminated.
func (m *Manager) handleEvent(pe playerEvent) bool {
	p := m.playerFor(pe.side)

	switch pe.ev.Kind {
	case protocol.Info:
		p.OnInfo(pe.ev)
		return false

	case protocol.EngineDisconnected:
		m.check.Report(adapter.TopicNoDisconnect, false, fmt.Sprintf("%v disconnected mid-game", pe.side))
		m.rec.Finish(chessstate.CauseDisconnected, winnerResultFor(m.opponent(p)))
		return true

	case protocol.BestMove:
		return m.onBestMove(p, pe.ev)

	default:
		return false
	}
}

func (m *Manager) onBestMove(p Player, ev protocol.EngineEvent) bool {
	mr, cause, err := p.OnBestMove(ev)
	if err != nil {
		logw.Warningf(m.ctx, "game: %v played illegal move %q: %v", p.Side(), ev.Best, err)
		m.rec.Finish(chessstate.CauseIllegalMove, winnerResultFor(m.opponent(p)))
		return true
	}
	if cause == chessstate.CauseTimeout {
		m.rec.Finish(chessstate.CauseTimeout, winnerResultFor(m.opponent(p)))
		return true
	}

	mv, _ := m.board.StringToMove(ev.Best)
	if err := m.board.DoMove(mv); err != nil {
		m.rec.Finish(chessstate.CauseIllegalMove, winnerResultFor(m.opponent(p)))
		return true
	}
	m.rec.Moves = append(m.rec.Moves, mr)
	m.rec.CurrentPly++

	if done := m.checkBoardTermination(); done {
		return true
	}

	next := m.toMove()
	if ponderMove, ok := m.ponderCandidate(next); ok {
		m.handlePonder(next, ponderMove, ev.Best)
	} else {
		m.issueCompute(next)
	}

	// p just moved: if it predicted the opponent's reply, start pondering
	// now so that when the opponent's actual move arrives (processed by a
	// later call of this function) it may turn into a ponderhit rather
	// than a fresh computeMove.
	if predicted, ok := ev.Ponder.V(); ok && p.Worker().Config().Ponder {
		g := adapter.GameRecord{StartFEN: m.rec.StartFEN, Moves: append(append([]string{}, m.board.LAN()...), predicted)}
		p.StartPonder(g, m.goLimitsFor(p), predicted)
	}
	return false
}

// checkBoardTermination reports the game-theoretic outcome of the
// authoritative board (checkmate/stalemate/insufficient-material/
// fifty-move) and threefold repetition, which the chessstate Result alone
// does not reliably cover across engine-driven replays.
func (m *Manager) checkBoardTermination() bool {
	cause, result := m.board.Result()
	if cause != chessstate.CauseOngoing {
		m.rec.Finish(cause, result)
		return true
	}
	if m.board.Repeated(3) {
		m.rec.Finish(chessstate.CauseRepetition, chessstate.Draw)
		return true
	}
	return false
}

// ponderCandidate reports whether the engine about to move has a pending
// ponder move; handlePonder then compares it with the move just played to
// choose between a ponderhit and a fresh computeMove.
func (m *Manager) ponderCandidate(next Player) (string, bool) {
	return next.PendingPonderMove()
}

func (m *Manager) handlePonder(next Player, pondered, actual string) {
	if pondered == actual {
		g := adapter.GameRecord{StartFEN: m.rec.StartFEN, Moves: m.board.LAN()}
		next.PonderHit(g, m.goLimitsFor(next))
		return
	}
	next.PonderMiss()
	m.issueCompute(next)
}

func (m *Manager) pollKeepAlive() bool {
	for _, p := range []Player{m.white, m.black} {
		if p.CheckEngineTimeout() {
			if err := p.Restart(); err != nil {
				m.check.Report(adapter.TopicNoDisconnect, false, fmt.Sprintf("%v failed to restart: %v", p.Side(), err))
			}
			m.rec.Finish(chessstate.CauseDisconnected, winnerResultFor(m.opponent(p)))
			return true
		}
	}
	return false
}

func (m *Manager) playerFor(side string) Player {
	if side == "white" {
		return m.white
	}
	return m.black
}

func winnerResultFor(winner Player) chessstate.Result {
	if winner.Side() == "white" {
		return chessstate.WhiteWins
	}
	return chessstate.BlackWins
}

func drawnOrForfeit(b *chessstate.State) chessstate.Result {
	_, result := b.Result()
	if result == chessstate.Unterminated {
		return chessstate.Draw
	}
	return result
}
