package tournament

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"sync"
)

// Opening is one starting position drawn from a book: a FEN (empty means
// the standard starting position) plus any PGN tags it carries (an EPD
// "id" opcode becomes the Event tag, for instance).
type Opening struct {
	FEN  string
	Tags map[string]string
}

// OpeningBook hands out successive Openings to a Duel, either in file
// order (sequential, the default -- reproducible runs) or shuffled once
// at load time (random, seeded by the caller for reproducibility).
type OpeningBook struct {
	mu        sync.Mutex
	openings  []Opening
	idx       int
	sequential bool
}

// NewOpeningBook wraps a fixed slice of Openings. sequential selects
// round-robin order; otherwise the slice is shuffled in place with rng
// before serving.
func NewOpeningBook(openings []Opening, sequential bool, rng *rand.Rand) *OpeningBook {
	if !sequential && rng != nil {
		rng.Shuffle(len(openings), func(i, j int) { openings[i], openings[j] = openings[j], openings[i] })
	}
	if len(openings) == 0 {
		openings = []Opening{{}} // the standard starting position
	}
	return &OpeningBook{openings: openings, sequential: sequential}
}

// Next returns the next opening, wrapping around once the book is
// exhausted (a duel with more GamesTarget than openings replays the book).
func (b *OpeningBook) Next() Opening {
	b.mu.Lock()
	defer b.mu.Unlock()
	o := b.openings[b.idx%len(b.openings)]
	b.idx++
	return o
}

// ParseEPDBook reads one FEN (optionally EPD, with a trailing "id" opcode)
// per line from r, in the format produced by most opening-book EPD files.
func ParseEPDBook(r io.Reader) ([]Opening, error) {
	var out []Opening
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fen, tags := parseEPDLine(line)
		out = append(out, Opening{FEN: fen, Tags: tags})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("tournament: reading opening book: %w", err)
	}
	return out, nil
}

// parseEPDLine splits an EPD line's four board-state fields from its
// opcode tail, recognizing only the "id" opcode (the rest pass through
// unparsed, as the opening book does not need them).
func parseEPDLine(line string) (fen string, tags map[string]string) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return line, nil
	}
	fen = strings.Join(fields[:4], " ") + " 0 1"
	tags = map[string]string{}

	rest := strings.Join(fields[4:], " ")
	for _, opcode := range strings.Split(rest, ";") {
		opcode = strings.TrimSpace(opcode)
		if strings.HasPrefix(opcode, "id ") {
			tags["Event"] = strings.Trim(strings.TrimPrefix(opcode, "id "), "\"")
		}
	}
	return fen, tags
}
