// Package game implements the single-game state machine of spec.md §4.5:
// GameRecord/MoveRecord/GameTask plus the GameManager that drives a game
// to completion.
package game

import (
	"github.com/mangar2/qaplatester/pkg/chessstate"
	"github.com/mangar2/qaplatester/pkg/protocol"
	"github.com/seekerror/stdlib/pkg/lang"
)

// MoveRecord is one played half-move.
type MoveRecord struct {
	LAN     string
	SAN     string
	Comment string
	NAG     int
	TimeMs  int64

	ScoreCp   lang.Optional[int]
	ScoreMate lang.Optional[int]
	Depth     int
	SelDepth  int
	MultiPV   int
	Nodes     int64
	PV        []string
}

// TaskType identifies the kind of work a GameTask carries.
type TaskType int

const (
	ComputeMove TaskType = iota
	PlayGame
	FetchNextTask
)

// Record is one game: start position, both sides' display names, round,
// PGN tag map, ordered moves, replay cursor, per-side TimeControl, and the
// (cause, result) pair. Invariants: CurrentPly <= len(Moves); Cause ==
// Ongoing iff Result == Unterminated.
type Record struct {
	StartFEN string // empty means standard starting position
	White    string
	Black    string
	Round    int
	Tags     map[string]string

	Moves      []MoveRecord
	CurrentPly int

	WhiteTC, BlackTC protocol.TimeControl

	Cause  chessstate.EndCause
	Result chessstate.Result
}

// NewRecord creates an Ongoing/Unterminated record for the given players.
func NewRecord(startFEN, white, black string, round int, whiteTC, blackTC protocol.TimeControl) *Record {
	return &Record{
		StartFEN: startFEN,
		White:    white,
		Black:    black,
		Round:    round,
		Tags:     map[string]string{},
		WhiteTC:  whiteTC,
		BlackTC:  blackTC,
		Cause:    chessstate.CauseOngoing,
		Result:   chessstate.Unterminated,
	}
}

// LAN returns the applied moves in order, for replaying against an
// adapter's "position ... moves ..." command.
func (r *Record) LAN() []string {
	out := make([]string, len(r.Moves))
	for i, m := range r.Moves {
		out[i] = m.LAN
	}
	return out
}

// Finish sets the terminal (cause, result) pair, keeping the invariant
// Cause == Ongoing iff Result == Unterminated.
func (r *Record) Finish(cause chessstate.EndCause, result chessstate.Result) {
	r.Cause = cause
	r.Result = result
}

// IsOngoing reports whether the game has not yet terminated.
func (r *Record) IsOngoing() bool {
	return r.Cause == chessstate.CauseOngoing && r.Result == chessstate.Unterminated
}

// Task is one unit of scheduling: a PlayGame/ComputeMove/FetchNextTask
// request, carrying the starting position and both TimeControls via its
// embedded GameRecord.
type Task struct {
	Type       TaskType
	Record     *Record
	TaskID     int64
	SwitchSide bool
	Round      int
}
