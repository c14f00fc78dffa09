// Package protocol holds the types shared by every protocol adapter and by
// the engine worker that drives them: the typed event sum, search-info
// snapshot, and the per-move limits computed from both sides' clocks.
package protocol

import (
	"fmt"

	"github.com/seekerror/stdlib/pkg/lang"
)

// Variant identifies which text protocol an engine speaks.
type Variant int

const (
	Unknown Variant = iota
	UCI
	XBoard
)

func (v Variant) String() string {
	switch v {
	case UCI:
		return "uci"
	case XBoard:
		return "xboard"
	default:
		return "unknown"
	}
}

// EventKind tags an EngineEvent. See spec.md §3 EngineEvent.
type EventKind int

const (
	None EventKind = iota
	ComputeMoveSent
	ReadyOk
	UciOk
	BestMove
	Info
	PonderHit
	Error
	EngineDisconnected
	NoData
	KeepAlive
	UnknownEvent
)

func (k EventKind) String() string {
	switch k {
	case ComputeMoveSent:
		return "compute-move-sent"
	case ReadyOk:
		return "ready-ok"
	case UciOk:
		return "uci-ok"
	case BestMove:
		return "best-move"
	case Info:
		return "info"
	case PonderHit:
		return "ponder-hit"
	case Error:
		return "error"
	case EngineDisconnected:
		return "engine-disconnected"
	case NoData:
		return "no-data"
	case KeepAlive:
		return "keep-alive"
	case UnknownEvent:
		return "unknown"
	default:
		return "none"
	}
}

// SearchInfo is a single "info ..." / thinking-line snapshot. All fields
// are optional: an adapter fills in only what the wire line carried.
type SearchInfo struct {
	Depth           lang.Optional[int]
	SelDepth        lang.Optional[int]
	MultiPV         lang.Optional[int]
	ScoreCp         lang.Optional[int]
	ScoreMate       lang.Optional[int]
	ScoreLowerbound bool
	ScoreUpperbound bool
	TimeMs          lang.Optional[int64]
	Nodes           lang.Optional[int64]
	Nps             lang.Optional[int64]
	HashFull        lang.Optional[int]
	TbHits          lang.Optional[int64]
	CpuLoad         lang.Optional[int]
	CurrMove        lang.Optional[string]
	CurrMoveNumber  lang.Optional[int]
	PV              []string
}

func (s SearchInfo) String() string {
	d, _ := s.Depth.V()
	cp, hasCp := s.ScoreCp.V()
	mate, hasMate := s.ScoreMate.V()
	score := "?"
	if hasCp {
		score = fmt.Sprintf("%dcp", cp)
	} else if hasMate {
		score = fmt.Sprintf("#%d", mate)
	}
	return fmt.Sprintf("depth=%d score=%s pv=%v", d, score, s.PV)
}

// EngineEvent is the tagged sum every adapter emits from ReadEvent.
type EngineEvent struct {
	Kind EventKind

	EngineIdentifier string
	TimestampMs      int64
	RawLine          string
	Errors           []string

	// BestMove payload.
	Best   string
	Ponder lang.Optional[string]

	// Info payload.
	SearchInfo SearchInfo
}

func (e EngineEvent) String() string {
	return fmt.Sprintf("[%s] %s: %q", e.EngineIdentifier, e.Kind, e.RawLine)
}

// GoLimits is computed per-move from both sides' TimeControls and elapsed
// time. It is derived, never persisted.
type GoLimits struct {
	WTimeMs, BTimeMs   int64
	WIncMs, BIncMs     int64
	MovesToGo          int
	MoveTimeMs         lang.Optional[int64]
	Depth              lang.Optional[int]
	Nodes              lang.Optional[int64]
	MateIn             lang.Optional[int]
	Infinite           bool
}

func (g GoLimits) String() string {
	return fmt.Sprintf("{wtime=%d btime=%d winc=%d binc=%d movestogo=%d}",
		g.WTimeMs, g.BTimeMs, g.WIncMs, g.BIncMs, g.MovesToGo)
}
