package tournament

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mangar2/qaplatester/pkg/chessstate"
	"github.com/mangar2/qaplatester/pkg/game"
)

// causeStats is the win/draw/loss tally for one chessstate.EndCause, kept
// from the same First-engine perspective as EngineDuelResult itself.
type causeStats struct {
	win, draw, loss int
}

// EngineDuelResult is the running result of one Pairing, from the
// perspective of the engine named First. It keeps two parallel views of
// the same games: the aggregate W/D/L/score tally, and the ordered
// per-game result sequence ('1'/'0'/'='/'?') that the ledger persists,
// mirroring pair-tournament.cpp's duelResult_/results_ split.
type EngineDuelResult struct {
	First, Second string

	mu      sync.Mutex
	Wins, Losses, Draws int
	Games   int

	sequence []byte                        // one byte per game, in play order
	causes   map[chessstate.EndCause]*causeStats
}

// NewEngineDuelResult creates an empty tally.
func NewEngineDuelResult(first, second string) *EngineDuelResult {
	return &EngineDuelResult{
		First:  first,
		Second: second,
		causes: map[chessstate.EndCause]*causeStats{},
	}
}

// Add folds one finished game's outcome into the tally and the result
// sequence, from First's perspective (color-swapped games are already
// disambiguated by rec.White carrying whichever engine actually held
// White that game).
func (r *EngineDuelResult) Add(rec *game.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.Games++
	firstIsWhite := rec.White == r.First

	cs := r.causes[rec.Cause]
	if cs == nil {
		cs = &causeStats{}
		r.causes[rec.Cause] = cs
	}

	switch rec.Result {
	case chessstate.Draw:
		r.Draws++
		cs.draw++
		r.sequence = append(r.sequence, '=')
	case chessstate.WhiteWins:
		if firstIsWhite {
			r.Wins++
			cs.win++
			r.sequence = append(r.sequence, '1')
		} else {
			r.Losses++
			cs.loss++
			r.sequence = append(r.sequence, '0')
		}
	case chessstate.BlackWins:
		if firstIsWhite {
			r.Losses++
			cs.loss++
			r.sequence = append(r.sequence, '0')
		} else {
			r.Wins++
			cs.win++
			r.sequence = append(r.sequence, '1')
		}
	default:
		r.sequence = append(r.sequence, '?')
	}
}

// Score returns First's fractional score (wins + draws/2) / games.
func (r *EngineDuelResult) Score() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Games == 0 {
		return 0.5
	}
	return (float64(r.Wins) + float64(r.Draws)/2) / float64(r.Games)
}

// String renders a cutechess-style "+W -L =D" summary.
func (r *EngineDuelResult) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("%v vs %v: +%d -%d =%d (%d games, score=%.3f)",
		r.First, r.Second, r.Wins, r.Losses, r.Draws, r.Games, (float64(r.Wins)+float64(r.Draws)/2)/maxF(r.Games))
}

func maxF(games int) float64 {
	if games == 0 {
		return 1
	}
	return float64(games)
}

// ToString encodes the tally as a persisted ledger line, in the
// "first vs second : <sequence>" shape of pair-tournament.cpp's own
// toString -- one character per game ('1' First-won, '0' First-lost,
// '=' drawn, '?' unterminated), so a crashed or interrupted tournament
// resumes by replaying the sequence rather than the aggregate counts.
func (r *EngineDuelResult) ToString() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("%s vs %s : %s", r.First, r.Second, string(r.sequence))
}

// FromString decodes a ledger line written by ToString, rebuilding both
// the result sequence and the aggregate Wins/Losses/Draws/Games tally
// from it. Cause-keyed stats are not recoverable from the sequence alone
// (pair-tournament.cpp persists wincauses/drawcauses/losscauses on a
// separate line for that reason) and are left empty.
func FromString(s string) (*EngineDuelResult, error) {
	pos := strings.Index(s, " : ")
	if pos < 0 {
		return nil, fmt.Errorf("tournament: malformed result line %q", s)
	}
	header := s[:pos]
	seq := s[pos+3:]

	names := strings.SplitN(header, " vs ", 2)
	if len(names) != 2 {
		return nil, fmt.Errorf("tournament: malformed result header %q", header)
	}

	r := NewEngineDuelResult(names[0], names[1])
	r.sequence = []byte(seq)
	for _, ch := range seq {
		r.Games++
		switch ch {
		case '1':
			r.Wins++
		case '0':
			r.Losses++
		case '=':
			r.Draws++
		case '?':
		default:
			return nil, fmt.Errorf("tournament: bad result char %q in %q", ch, s)
		}
	}
	return r, nil
}

// WriteCauseStats appends the wincauses/drawcauses/losscauses lines of
// pair-tournament.cpp's persisted-state format to b, one line per
// label, each listing only the causes that occurred at least once.
func (r *EngineDuelResult) WriteCauseStats(b *strings.Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()

	writeLine := func(label string, pick func(*causeStats) int) {
		b.WriteString(label)
		b.WriteString(": ")
		var causes []chessstate.EndCause
		for c := range r.causes {
			causes = append(causes, c)
		}
		sort.Slice(causes, func(i, j int) bool { return causes[i] < causes[j] })
		sep := ""
		for _, c := range causes {
			if v := pick(r.causes[c]); v > 0 {
				b.WriteString(sep)
				b.WriteString(c.String())
				b.WriteString(":")
				b.WriteString(strconv.Itoa(v))
				sep = ","
			}
		}
		b.WriteString("\n")
	}
	writeLine("wincauses", func(cs *causeStats) int { return cs.win })
	writeLine("drawcauses", func(cs *causeStats) int { return cs.draw })
	writeLine("losscauses", func(cs *causeStats) int { return cs.loss })
}
