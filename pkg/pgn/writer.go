// Package pgn renders finished games as Portable Game Notation, per
// spec.md §8: the seven-tag roster plus move text, optionally annotated
// with brace comments carrying engine search info.
package pgn

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/mangar2/qaplatester/pkg/chessstate"
	"github.com/mangar2/qaplatester/pkg/game"
)

// sevenTagRoster is the mandatory PGN tag order (STR), per the PGN
// standard.
var sevenTagRoster = []string{"Event", "Site", "Date", "Round", "White", "Black", "Result"}

// Options controls optional annotation output.
type Options struct {
	// Annotate, if true, appends a brace comment after each move carrying
	// score/depth/time, e.g. "{+0.34/12 1.2s}".
	Annotate bool
}

// Write renders rec as one PGN game to w.
func Write(w io.Writer, rec *game.Record, opts Options) error {
	tags := tagsFor(rec)
	for _, key := range sevenTagRoster {
		if _, err := fmt.Fprintf(w, "[%s \"%s\"]\n", key, tags[key]); err != nil {
			return err
		}
	}
	for key, value := range rec.Tags {
		if isSevenTagRoster(key) {
			continue
		}
		if _, err := fmt.Fprintf(w, "[%s \"%s\"]\n", key, value); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}

	movetext := renderMoveText(rec, opts)
	if _, err := fmt.Fprintln(w, wrapMoveText(movetext, 80)); err != nil {
		return err
	}
	return nil
}

func tagsFor(rec *game.Record) map[string]string {
	out := map[string]string{
		"Event": "?", "Site": "?", "Date": "????.??.??",
		"Round":  strconv.Itoa(rec.Round),
		"White":  rec.White,
		"Black":  rec.Black,
		"Result": rec.Result.String(),
	}
	for k, v := range rec.Tags {
		out[k] = v
	}
	return out
}

func isSevenTagRoster(key string) bool {
	for _, k := range sevenTagRoster {
		if k == key {
			return true
		}
	}
	return false
}

func renderMoveText(rec *game.Record, opts Options) string {
	var sb strings.Builder
	moveNumber := 1
	white := true
	if rec.StartFEN != "" && strings.HasSuffix(strings.Fields(rec.StartFEN)[1], "b") {
		white = false
	}

	for i, mv := range rec.Moves {
		if white {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(strconv.Itoa(moveNumber))
			sb.WriteString(". ")
		} else if i == 0 {
			sb.WriteString(strconv.Itoa(moveNumber))
			sb.WriteString("... ")
		} else {
			sb.WriteByte(' ')
		}
		sb.WriteString(mv.SAN)
		if opts.Annotate {
			sb.WriteByte(' ')
			sb.WriteString(annotation(mv))
		}
		if !white {
			moveNumber++
		}
		white = !white
	}
	sb.WriteByte(' ')
	sb.WriteString(rec.Result.String())
	return sb.String()
}

func annotation(mv game.MoveRecord) string {
	score := "?"
	if cp, ok := mv.ScoreCp.V(); ok {
		score = fmt.Sprintf("%+.2f", float64(cp)/100)
	} else if mate, ok := mv.ScoreMate.V(); ok {
		score = fmt.Sprintf("#%d", mate)
	}
	return fmt.Sprintf("{%s/%d %.1fs}", score, mv.Depth, float64(mv.TimeMs)/1000)
}

// wrapMoveText soft-wraps PGN movetext at width columns, as most PGN
// tooling expects (not required by the standard, but universal practice).
func wrapMoveText(s string, width int) string {
	words := strings.Fields(s)
	var sb strings.Builder
	col := 0
	for i, w := range words {
		if col > 0 && col+1+len(w) > width {
			sb.WriteByte('\n')
			col = 0
		} else if i > 0 {
			sb.WriteByte(' ')
			col++
		}
		sb.WriteString(w)
		col += len(w)
	}
	return sb.String()
}

// ResultString renders a chessstate.Result as its PGN token, exported for
// callers that need the mapping without constructing a full Record.
func ResultString(r chessstate.Result) string {
	return r.String()
}
