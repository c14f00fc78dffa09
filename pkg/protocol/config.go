package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/seekerror/stdlib/pkg/lang"
)

// TimeSegment is one segment of a time control: play `MovesToPlay` moves
// (0 means "rest of the game") in `BaseTimeMs`, gaining `IncrementMs` per
// move made.
type TimeSegment struct {
	MovesToPlay int
	BaseTimeMs  int64
	IncrementMs int64
}

func (s TimeSegment) String() string {
	base := fmt.Sprintf("%g", float64(s.BaseTimeMs)/1000)
	inc := fmt.Sprintf("%g", float64(s.IncrementMs)/1000)
	if s.MovesToPlay == 0 {
		return base + "+" + inc
	}
	return fmt.Sprintf("%d/%s+%s", s.MovesToPlay, base, inc)
}

// TimeControl is zero or more TimeSegments plus optional non-time caps.
// It round-trips to PGN's TimeControl tag string form, e.g.
// "40/60+0.5:0+0.5".
type TimeControl struct {
	Segments []TimeSegment

	MoveTimeMs lang.Optional[int64]
	Depth      lang.Optional[int]
	Nodes      lang.Optional[int64]
	MateIn     lang.Optional[int]
	Infinite   bool
}

// IsSuddenDeath reports whether the last (or only) segment has no move
// count limit.
func (t TimeControl) IsSuddenDeath() bool {
	if len(t.Segments) == 0 {
		return false
	}
	return t.Segments[len(t.Segments)-1].MovesToPlay == 0
}

// PGNString renders the TimeControl PGN tag form.
func (t TimeControl) PGNString() string {
	if mt, ok := t.MoveTimeMs.V(); ok {
		return fmt.Sprintf("%g", float64(mt)/1000)
	}
	if t.Infinite {
		return "-"
	}
	parts := make([]string, len(t.Segments))
	for i, s := range t.Segments {
		parts[i] = s.String()
	}
	return strings.Join(parts, ":")
}

// Clock returns the base time and increment for move 1 of this time
// control, used to seed a PlayerContext's clock.
func (t TimeControl) Clock() (baseMs, incMs int64, movesToGo int) {
	if len(t.Segments) == 0 {
		return 0, 0, 0
	}
	s := t.Segments[0]
	return s.BaseTimeMs, s.IncrementMs, s.MovesToPlay
}

// EngineConfig describes one engine under test.
type EngineConfig struct {
	Name       string
	Path       string
	WorkingDir string
	Args       []string
	Protocol   Variant
	Ponder     bool
	Gauntlet   bool
	TC         TimeControl
	Options    map[string]string
}

// Validate enforces the invariants from spec.md §3: path non-empty,
// protocol known, name non-empty. Name uniqueness is enforced by the
// EngineConfigManager, which sees the whole set.
func (c EngineConfig) Validate() error {
	if strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("engine %q: empty executable path", c.Name)
	}
	if c.Protocol == Unknown {
		return fmt.Errorf("engine %q: unknown protocol", c.Name)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("engine config missing a display name")
	}
	return nil
}

// ComputeGoLimits derives the GoLimits for the side to move from both
// sides' remaining clock and the active TimeControl: the clocks,
// increments and movesToGo are copied as given, and the non-time caps
// (movetime/depth/nodes/mate/infinite) are copied from tc alongside them.
// Clock fields are kept even when a cap is set.
func ComputeGoLimits(tc TimeControl, whiteMs, blackMs, whiteIncMs, blackIncMs int64, movesToGo int) GoLimits {
	g := GoLimits{
		WTimeMs:    whiteMs,
		BTimeMs:    blackMs,
		WIncMs:     whiteIncMs,
		BIncMs:     blackIncMs,
		MovesToGo:  movesToGo,
		MoveTimeMs: tc.MoveTimeMs,
		Depth:      tc.Depth,
		Nodes:      tc.Nodes,
		MateIn:     tc.MateIn,
		Infinite:   tc.Infinite,
	}
	return g
}

// ParseTimeControl parses a cutechess-style "moves/base+inc:moves/base+inc"
// string, e.g. "40/60+0.5:0+0.5", into a TimeControl. Accepts plain
// "base+inc" (sudden death) and bare "movetime=N" (milliseconds).
func ParseTimeControl(s string) (TimeControl, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "movetime=") {
		ms, err := strconv.ParseInt(strings.TrimPrefix(s, "movetime="), 10, 64)
		if err != nil {
			return TimeControl{}, fmt.Errorf("invalid movetime: %w", err)
		}
		return TimeControl{MoveTimeMs: lang.Some(ms)}, nil
	}

	var tc TimeControl
	for _, chunk := range strings.Split(s, ":") {
		seg, err := parseSegment(chunk)
		if err != nil {
			return TimeControl{}, err
		}
		tc.Segments = append(tc.Segments, seg)
	}
	return tc, nil
}

func parseSegment(chunk string) (TimeSegment, error) {
	var seg TimeSegment

	movesPart := chunk
	rest := chunk
	if idx := strings.Index(chunk, "/"); idx >= 0 {
		movesPart = chunk[:idx]
		rest = chunk[idx+1:]

		n, err := strconv.Atoi(movesPart)
		if err != nil {
			return seg, fmt.Errorf("invalid move count in time control %q: %w", chunk, err)
		}
		seg.MovesToPlay = n
	}

	baseStr, incStr := rest, "0"
	if idx := strings.Index(rest, "+"); idx >= 0 {
		baseStr = rest[:idx]
		incStr = rest[idx+1:]
	}

	base, err := strconv.ParseFloat(baseStr, 64)
	if err != nil {
		return seg, fmt.Errorf("invalid base time in time control %q: %w", chunk, err)
	}
	inc, err := strconv.ParseFloat(incStr, 64)
	if err != nil {
		return seg, fmt.Errorf("invalid increment in time control %q: %w", chunk, err)
	}

	seg.BaseTimeMs = int64(base * 1000)
	seg.IncrementMs = int64(inc * 1000)
	return seg, nil
}
