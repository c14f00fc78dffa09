// Package adapter translates typed commands to protocol text and parses
// engine replies into typed events, per spec.md §4.2. Two variants
// implement the Adapter capability interface: UCI and XBoard.
package adapter

import (
	"github.com/mangar2/qaplatester/pkg/protocol"
)

// GameRecord is the minimal view an adapter needs of the game in progress:
// the starting position and the moves played so far, enough to reissue
// "position ... moves ..." (UCI) or replay via force/usermove (XBoard).
type GameRecord struct {
	StartFEN string // empty means standard starting position
	Moves    []string
}

// Adapter is the capability interface every protocol variant implements.
// Concrete implementations are UCI and XBoard; both are driven exclusively
// by the engine worker's single read/write goroutines.
type Adapter interface {
	// StartProtocol sends the initial identification command and enters
	// the feature/option collection sub-state.
	StartProtocol() error
	NewGame() error
	MoveNow() error
	AskForReady(pingID int) error
	SetPonder(enabled bool) error
	SetTestOption(name, value string) error
	SetOptionValues(values map[string]string) error

	// ComputeMove writes the position + go commands and returns the
	// timestamp the process host recorded for the final go-issuing line.
	ComputeMove(g GameRecord, limits protocol.GoLimits, ponderHit bool) (int64, error)
	// AllowPonder issues a ponder-search on the hypothetical position
	// reached by appending ponderMove to g.Moves.
	AllowPonder(g GameRecord, limits protocol.GoLimits, ponderMove string) (int64, error)

	// ReadEvent blocks until exactly one typed event can be emitted.
	ReadEvent() protocol.EngineEvent

	// TerminateEngine sends quit, waits briefly, then forces termination.
	TerminateEngine()

	// Options returns the option table collected during StartProtocol.
	Options() map[string]Option

	// Protocol reports which protocol variant this adapter speaks.
	Protocol() protocol.Variant
}

// OptionType is the declared type of an engine option.
type OptionType int

const (
	Check OptionType = iota
	Spin
	Combo
	Button
	String
)

// Option is one declared engine option, per spec.md §4.2's option table.
type Option struct {
	Name    string
	Type    OptionType
	Default string
	Min     *int64
	Max     *int64
	Vars    []string
}

// ValidateValue validates a candidate value against the option's declared
// type/range, returning false (and a reason) for out-of-range values that
// SetOptionValues should silently skip, per spec.md §4.2.
func (o Option) ValidateValue(value string) (ok bool, reason string) {
	switch o.Type {
	case Check:
		if value != "true" && value != "false" {
			return false, "not a boolean"
		}
	case Spin:
		n, err := parseInt64(value)
		if err != nil {
			return false, "not an integer"
		}
		if o.Min != nil && n < *o.Min {
			return false, "below min"
		}
		if o.Max != nil && n > *o.Max {
			return false, "above max"
		}
	case Combo:
		if len(o.Vars) > 0 && !contains(o.Vars, value) {
			return false, "not a declared var"
		}
	case Button:
		// Buttons carry no value.
	case String:
		// Any string accepted.
	}
	return true, ""
}

func contains(vars []string, v string) bool {
	for _, c := range vars {
		if c == v {
			return true
		}
	}
	return false
}
