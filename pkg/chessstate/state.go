// Package chessstate is the narrow boundary between the tester core and the
// external move generator / legality checker. Per design, the core never
// touches bitboards, magic tables or Zobrist randoms directly: it only goes
// through the methods of State (StringToMove, MoveToSAN, DoMove, UndoMove,
// Result, Repeated, PV and the like), all of which are delegated to
// github.com/notnil/chess.
package chessstate

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// EndCause mirrors spec.md's GameEndCause without importing the game
// package (which depends on this one), keeping the dependency direction
// one-way: chessstate -> notnil/chess only.
type EndCause int

const (
	CauseOngoing EndCause = iota
	CauseCheckmate
	CauseStalemate
	CauseInsufficientMaterial
	CauseFiftyMoveRule
	CauseRepetition
	CauseIllegalMove
	CauseTimeout
	CauseDisconnected
	CauseResign
	CauseAdjudication
)

func (c EndCause) String() string {
	switch c {
	case CauseCheckmate:
		return "checkmate"
	case CauseStalemate:
		return "stalemate"
	case CauseInsufficientMaterial:
		return "insufficient-material"
	case CauseFiftyMoveRule:
		return "fifty-move-rule"
	case CauseRepetition:
		return "repetition"
	case CauseIllegalMove:
		return "illegal-move"
	case CauseTimeout:
		return "timeout"
	case CauseDisconnected:
		return "disconnected"
	case CauseResign:
		return "resign"
	case CauseAdjudication:
		return "adjudication"
	default:
		return "ongoing"
	}
}

// Result is the GameResult supplied by the external move generator.
type Result int

const (
	Unterminated Result = iota
	WhiteWins
	BlackWins
	Draw
)

func (r Result) String() string {
	switch r {
	case WhiteWins:
		return "1-0"
	case BlackWins:
		return "0-1"
	case Draw:
		return "1/2-1/2"
	default:
		return "*"
	}
}

// State is a shadow board for one side (or one self-play game), maintained
// via the external move generator. It is not safe for concurrent use; each
// PlayerContext/GameManager owns one.
type State struct {
	game *chess.Game
	lan  []string // applied moves in LAN, for undo-by-replay and repetition bookkeeping
}

// NewFromStart creates a shadow board at the standard starting position.
func NewFromStart() *State {
	return &State{game: chess.NewGame()}
}

// NewFromFEN creates a shadow board from a FEN string.
func NewFromFEN(fen string) (*State, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN %q: %w", fen, err)
	}
	return &State{game: chess.NewGame(opt)}, nil
}

// FEN renders the current position.
func (s *State) FEN() string {
	return s.game.Position().String()
}

// Turn reports which side is to move ("w" or "b").
func (s *State) Turn() string {
	if s.game.Position().Turn() == chess.White {
		return "w"
	}
	return "b"
}

// StringToMove validates and parses a LAN move (e.g. "e2e4", "e7e8q")
// against the current position. requireLAN mirrors spec.md's
// GameState.stringToMove(lan, requireLan=true): only UCI/LAN notation is
// accepted, never SAN, since that is what engines emit.
func (s *State) StringToMove(lan string) (chess.Move, error) {
	if lan == "" || lan == "(none)" || lan == "0000" {
		return chess.Move{}, fmt.Errorf("empty move")
	}
	mv, err := chess.UCINotation{}.Decode(s.game.Position(), lan)
	if err != nil {
		return chess.Move{}, fmt.Errorf("illegal move %q: %w", lan, err)
	}
	return *mv, nil
}

// MoveToSAN renders a move in Standard Algebraic Notation against the
// current position.
func (s *State) MoveToSAN(mv chess.Move) string {
	return chess.AlgebraicNotation{}.Encode(s.game.Position(), &mv)
}

// DoMove applies an already-validated move, advancing the shadow board.
func (s *State) DoMove(mv chess.Move) error {
	if err := s.game.Move(&mv); err != nil {
		return err
	}
	s.lan = append(s.lan, mv.String())
	return nil
}

// DoLAN validates and applies a LAN move in one step.
func (s *State) DoLAN(lan string) (chess.Move, error) {
	mv, err := s.StringToMove(lan)
	if err != nil {
		return chess.Move{}, err
	}
	if err := s.DoMove(mv); err != nil {
		return chess.Move{}, err
	}
	return mv, nil
}

// UndoMove rewinds the shadow board by one ply. notnil/chess has no native
// undo, so the state is rebuilt from the starting FEN by replaying all but
// the last applied move -- acceptable at tester scale (single games, not a
// search hot path).
func (s *State) UndoMove() bool {
	if len(s.lan) == 0 {
		return false
	}
	start := s.game.Positions()[0].String()
	replay := s.lan[:len(s.lan)-1]

	opt, err := chess.FEN(start)
	if err != nil {
		return false
	}
	ng := chess.NewGame(opt)
	for _, lan := range replay {
		mv, err := chess.UCINotation{}.Decode(ng.Position(), lan)
		if err != nil {
			return false
		}
		if err := ng.Move(mv); err != nil {
			return false
		}
	}
	s.game = ng
	s.lan = replay
	return true
}

// Fork returns an independent copy of the shadow board, for validating a
// hypothetical ponder move without mutating the real one.
func (s *State) Fork() *State {
	lan := make([]string, len(s.lan))
	copy(lan, s.lan)
	clone := *s.game
	return &State{game: &clone, lan: lan}
}

// PV replays a principal variation against a fork of the current position,
// stopping at the first illegal move. Returns the number of legal moves
// consumed and whether the whole PV was legal -- used by the player
// context to flag illegal-PV as a Notes-class checklist failure.
func (s *State) PV(lan []string) (legalPrefix int, ok bool) {
	f := s.Fork()
	for i, mv := range lan {
		if _, err := f.DoLAN(mv); err != nil {
			return i, false
		}
	}
	return len(lan), true
}

// Result reports the game-theoretic result of the current position, if
// decided by checkmate, stalemate, insufficient material or the 50-move
// rule. It reports repetition only when notnil/chess has recorded a
// repetition as the game's ending method; callers detect threefold
// repetition themselves via Repeated.
func (s *State) Result() (EndCause, Result) {
	switch s.game.Method() {
	case chess.Checkmate:
		return CauseCheckmate, winnerOf(s)
	case chess.Stalemate:
		return CauseStalemate, Draw
	case chess.InsufficientMaterial:
		return CauseInsufficientMaterial, Draw
	case chess.FiftyMoveRule:
		return CauseFiftyMoveRule, Draw
	case chess.ThreefoldRepetition, chess.FivefoldRepetition:
		return CauseRepetition, Draw
	default:
		return CauseOngoing, Unterminated
	}
}

func winnerOf(s *State) Result {
	// Checkmate always befalls the side to move.
	if s.game.Position().Turn() == chess.White {
		return BlackWins
	}
	return WhiteWins
}

// Repeated reports whether the current position (board + side to move +
// castling rights + en-passant target, the full FIDE definition) has
// occurred at least `count` times among positions reachable by reversible
// moves -- the full FIDE definition, not just board+turn.
func (s *State) Repeated(count int) bool {
	positions := s.game.Positions()
	if len(positions) == 0 {
		return false
	}
	// The first four FEN fields are board, side to move, castling rights
	// and en-passant target; the move counters that follow are ignored.
	key := func(p *chess.Position) string {
		return strings.Join(strings.Fields(p.String())[:4], " ")
	}
	current := key(positions[len(positions)-1])
	seen := 0
	for _, p := range positions {
		if key(p) == current {
			seen++
		}
	}
	return seen >= count
}

// PieceCount reports the total number of pieces left on the board, a cheap
// proxy used by self-test adjudication.
func (s *State) PieceCount() int {
	n := 0
	b := s.game.Position().Board()
	for sq := chess.A1; sq <= chess.H8; sq++ {
		if b.Piece(sq) != chess.NoPiece {
			n++
		}
	}
	return n
}

// LAN returns the moves applied so far, in order.
func (s *State) LAN() []string {
	return append([]string(nil), s.lan...)
}

// MovesString renders the applied LAN moves space-joined, for UCI's
// "position startpos moves ..." command.
func (s *State) MovesString() string {
	return strings.Join(s.lan, " ")
}
