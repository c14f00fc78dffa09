// Package report implements the engine checklist of spec.md §4.9: a
// process-wide registry of named check topics and a per-engine instance
// that counts passes/failures and renders a summary.
package report

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/seekerror/logw"
)

// Section categorizes a topic's severity.
type Section int

const (
	Report Section = iota
	Notes
	Misbehaviour
	Important
)

func (s Section) String() string {
	switch s {
	case Notes:
		return "Notes"
	case Misbehaviour:
		return "Misbehaviour"
	case Important:
		return "Important"
	default:
		return "Report"
	}
}

// ReturnCode is the AppReturnCode escalation from spec.md §4.9/§6.
type ReturnCode int

const (
	NoError ReturnCode = iota
	EngineNote
	EngineMisbehaviour
	EngineError
)

// Topic is one named check, process-wide.
type Topic struct {
	Group   string
	ID      string
	Text    string
	Section Section
}

// Registry is the process-wide topic table. Registration is idempotent:
// re-registering the same ID with identical fields is a no-op; conflicting
// re-registration is a hard error, since a changed meaning for an existing
// ID would silently corrupt historical reports.
type Registry struct {
	mu     sync.Mutex
	topics map[string]Topic
}

// NewRegistry creates an empty topic registry. Most callers use the
// process-wide Default instead.
func NewRegistry() *Registry {
	return &Registry{topics: map[string]Topic{}}
}

// Default is the process-wide registry used by adapters and player
// contexts that do not carry their own.
var Default = NewRegistry()

// Register adds a topic, or validates an identical re-registration.
func (r *Registry) Register(t Topic) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.topics[t.ID]; ok {
		if existing != t {
			return fmt.Errorf("report: conflicting re-registration of topic %q", t.ID)
		}
		return nil
	}
	r.topics[t.ID] = t
	return nil
}

// MustRegister panics on a conflicting re-registration; used at package
// init time for built-in topics, where a conflict is a programming error.
func (r *Registry) MustRegister(t Topic) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

func (r *Registry) lookup(id string) (Topic, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.topics[id]
	return t, ok
}

// MaxCLILogsPerError bounds how many failure log lines a single topic can
// emit for one engine before the checklist suppresses the rest, per
// spec.md §4.9 (ported from original_source/src/engine-report.cpp).
const MaxCLILogsPerError = 5

type counter struct {
	total, failures int
	suppressed      bool
}

// Instance is one engine's checklist state: entries keyed by topic ID.
type Instance struct {
	ctx      context.Context
	registry *Registry
	engine   string

	mu      sync.Mutex
	entries map[string]*counter
}

// NewInstance creates a per-engine checklist instance backed by registry
// (or the process-wide Default if nil).
func NewInstance(ctx context.Context, registry *Registry, engine string) *Instance {
	if registry == nil {
		registry = Default
	}
	return &Instance{ctx: ctx, registry: registry, engine: engine, entries: map[string]*counter{}}
}

// Report increments the topic's counters and, on failure, logs once per
// occurrence up to MaxCLILogsPerError, after which a one-time "too many
// similar reports" notice is emitted and further logs for that topic are
// suppressed (counting continues regardless).
func (in *Instance) Report(topicID string, passed bool, detail string) {
	in.mu.Lock()
	c, ok := in.entries[topicID]
	if !ok {
		c = &counter{}
		in.entries[topicID] = c
	}
	c.total++
	if !passed {
		c.failures++
	}
	failures := c.failures
	suppressed := c.suppressed
	if !passed && failures > MaxCLILogsPerError && !suppressed {
		c.suppressed = true
	}
	in.mu.Unlock()

	if passed {
		return
	}

	section := Report
	if t, ok := in.registry.lookup(topicID); ok {
		section = t.Section
	}

	switch {
	case failures <= MaxCLILogsPerError:
		logw.Warningf(in.ctx, "[%v] %v (%v): %v", in.engine, topicID, section, detail)
	case !suppressed:
		logw.Warningf(in.ctx, "[%v] %v: too many similar reports, suppressing further logs", in.engine, topicID)
	}
}

// Counts returns a snapshot of (total, failures) for a topic.
func (in *Instance) Counts(topicID string) (total, failures int) {
	in.mu.Lock()
	defer in.mu.Unlock()
	c, ok := in.entries[topicID]
	if !ok {
		return 0, 0
	}
	return c.total, c.failures
}

// Summary is one rendered line of the per-engine report.
type Summary struct {
	Section Section
	Topic   string
	Total   int
	Failures int
}

// Log renders a per-engine summary grouped by section and returns the
// AppReturnCode escalation: NoError unless some section had a failure, in
// which case the code reflects the most severe section that did.
func (in *Instance) Log() ([]Summary, ReturnCode) {
	in.mu.Lock()
	ids := make([]string, 0, len(in.entries))
	snapshot := map[string]counter{}
	for id, c := range in.entries {
		ids = append(ids, id)
		snapshot[id] = *c
	}
	in.mu.Unlock()

	sort.Strings(ids)

	var out []Summary
	code := NoError
	for _, id := range ids {
		c := snapshot[id]
		section := Report
		if t, ok := in.registry.lookup(id); ok {
			section = t.Section
		}
		out = append(out, Summary{Section: section, Topic: id, Total: c.total, Failures: c.failures})

		if c.failures > 0 {
			switch section {
			case Important:
				code = maxCode(code, EngineError)
			case Misbehaviour:
				code = maxCode(code, EngineMisbehaviour)
			case Notes:
				code = maxCode(code, EngineNote)
			}
		}
	}
	return out, code
}

func maxCode(a, b ReturnCode) ReturnCode {
	if b > a {
		return b
	}
	return a
}

func init() {
	// Built-in topics exercised by the adapters and player context.
	builtin := []Topic{
		{Group: "protocol", ID: "wrong-token-in-info-line", Text: "unexpected or out-of-range info/thinking-line token", Section: Notes},
		{Group: "legality", ID: "legalmove", Text: "bestmove is legal in the current position", Section: Important},
		{Group: "legality", ID: "illegal-pv-move", Text: "principal variation consists of legal moves", Section: Notes},
		{Group: "time", ID: "no-movetime-overrun", Text: "move time does not exceed the movetime limit beyond grace", Section: Important},
		{Group: "time", ID: "no-movetime-underrun", Text: "move time is not suspiciously short of the movetime limit", Section: Notes},
		{Group: "time", ID: "no-loss-on-time", Text: "engine does not exceed its clock", Section: Important},
		{Group: "liveness", ID: "no-disconnect", Text: "engine responds to isready within the timeout", Section: Important},
		{Group: "options", ID: "option-range", Text: "option values are within declared range", Section: Notes},
	}
	for _, t := range builtin {
		Default.MustRegister(t)
	}
}
