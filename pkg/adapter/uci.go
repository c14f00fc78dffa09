package adapter

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mangar2/qaplatester/pkg/process"
	"github.com/mangar2/qaplatester/pkg/protocol"
	"github.com/seekerror/logw"
	"github.com/seekerror/stdlib/pkg/lang"
)

// UCI bounds, per spec.md §4.2.
const (
	uciScoreCpMin  = -110000
	uciScoreCpMax  = 110000
	uciSelDepthMax = 1000
	uciMateAbsMax  = 10000
)

// UCIAdapter drives an engine that speaks the Universal Chess Interface.
type UCIAdapter struct {
	ctx      context.Context
	host     *process.Host
	id       string
	sink     ChecklistSink
	options  map[string]Option
	lastSend string
}

var _ Adapter = (*UCIAdapter)(nil)

// NewUCI wraps a started process host as a UCI adapter.
func NewUCI(ctx context.Context, host *process.Host, engineIdentifier string, sink ChecklistSink) *UCIAdapter {
	if sink == nil {
		sink = nopSink{}
	}
	return &UCIAdapter{ctx: ctx, host: host, id: engineIdentifier, sink: sink, options: map[string]Option{}}
}

func (a *UCIAdapter) Protocol() protocol.Variant { return protocol.UCI }

func (a *UCIAdapter) Options() map[string]Option { return a.options }

func (a *UCIAdapter) write(line string) (int64, error) {
	logw.Debugf(a.ctx, "%v << %v", a.id, line)
	return a.host.WriteLine(line)
}

func (a *UCIAdapter) StartProtocol() error {
	_, err := a.write("uci")
	return err
}

func (a *UCIAdapter) NewGame() error {
	_, err := a.write("ucinewgame")
	return err
}

func (a *UCIAdapter) MoveNow() error {
	_, err := a.write("stop")
	return err
}

func (a *UCIAdapter) AskForReady(int) error {
	_, err := a.write("isready")
	return err
}

func (a *UCIAdapter) SetPonder(enabled bool) error {
	return a.SetOptionValues(map[string]string{"Ponder": strconv.FormatBool(enabled)})
}

func (a *UCIAdapter) SetTestOption(name, value string) error {
	return a.SetOptionValues(map[string]string{name: value})
}

func (a *UCIAdapter) SetOptionValues(values map[string]string) error {
	for name, value := range values {
		opt, known := a.options[name]
		if known {
			if ok, reason := opt.ValidateValue(value); !ok {
				logw.Debugf(a.ctx, "%v: skipping option %v=%v (%v)", a.id, name, value, reason)
				a.sink.Report("option-range", false, fmt.Sprintf("%v=%v: %v", name, value, reason))
				continue
			}
		}
		line := fmt.Sprintf("setoption name %v", name)
		if opt.Type != Button {
			line += " value " + value
		}
		if _, err := a.write(line); err != nil {
			return err
		}
	}
	return nil
}

func (a *UCIAdapter) positionCommand(g GameRecord) string {
	pos := "startpos"
	if g.StartFEN != "" {
		pos = "fen " + g.StartFEN
	}
	if len(g.Moves) == 0 {
		return "position " + pos
	}
	return "position " + pos + " moves " + strings.Join(g.Moves, " ")
}

func (a *UCIAdapter) goCommand(limits protocol.GoLimits, ponder bool) string {
	var b strings.Builder
	b.WriteString("go")
	if !limits.Infinite {
		fmt.Fprintf(&b, " wtime %d btime %d", limits.WTimeMs, limits.BTimeMs)
		if limits.WIncMs > 0 || limits.BIncMs > 0 {
			fmt.Fprintf(&b, " winc %d binc %d", limits.WIncMs, limits.BIncMs)
		}
		if limits.MovesToGo > 0 {
			fmt.Fprintf(&b, " movestogo %d", limits.MovesToGo)
		}
	}
	if mt, ok := limits.MoveTimeMs.V(); ok {
		fmt.Fprintf(&b, " movetime %d", mt)
	}
	if d, ok := limits.Depth.V(); ok {
		fmt.Fprintf(&b, " depth %d", d)
	}
	if n, ok := limits.Nodes.V(); ok {
		fmt.Fprintf(&b, " nodes %d", n)
	}
	if m, ok := limits.MateIn.V(); ok {
		fmt.Fprintf(&b, " mate %d", m)
	}
	if limits.Infinite {
		b.WriteString(" infinite")
	}
	if ponder {
		b.WriteString(" ponder")
	}
	return b.String()
}

func (a *UCIAdapter) ComputeMove(g GameRecord, limits protocol.GoLimits, ponderHit bool) (int64, error) {
	if ponderHit {
		ts, err := a.write("ponderhit")
		return ts, err
	}
	if _, err := a.write(a.positionCommand(g)); err != nil {
		return 0, err
	}
	return a.write(a.goCommand(limits, false))
}

func (a *UCIAdapter) AllowPonder(g GameRecord, limits protocol.GoLimits, ponderMove string) (int64, error) {
	pondered := g
	pondered.Moves = append(append([]string{}, g.Moves...), ponderMove)
	if _, err := a.write(a.positionCommand(pondered)); err != nil {
		return 0, err
	}
	return a.write(a.goCommand(limits, true))
}

func (a *UCIAdapter) TerminateEngine() {
	_, _ = a.write("quit")
	a.host.WaitForExit(200 * time.Millisecond)
	a.host.Terminate()
}

// ReadEvent blocks on the process host until exactly one typed event can
// be emitted.
func (a *UCIAdapter) ReadEvent() protocol.EngineEvent {
	line := a.host.ReadLineBlocking()
	if line.Err != nil {
		return protocol.EngineEvent{Kind: protocol.EngineDisconnected, EngineIdentifier: a.id, TimestampMs: line.TimestampMs, RawLine: line.Content}
	}
	logw.Debugf(a.ctx, "%v >> %v", a.id, line.Content)
	return a.parseLine(line)
}

func (a *UCIAdapter) parseLine(line process.Line) protocol.EngineEvent {
	base := protocol.EngineEvent{EngineIdentifier: a.id, TimestampMs: line.TimestampMs, RawLine: line.Content}
	fields := strings.Fields(line.Content)
	if len(fields) == 0 {
		base.Kind = protocol.NoData
		return base
	}

	switch fields[0] {
	case "id":
		a.handleID(fields)
		base.Kind = protocol.NoData
		return base
	case "option":
		a.handleOption(fields)
		base.Kind = protocol.NoData
		return base
	case "uciok":
		base.Kind = protocol.UciOk
		return base
	case "readyok":
		base.Kind = protocol.ReadyOk
		return base
	case "bestmove":
		return a.parseBestMove(base, fields)
	case "info":
		return a.parseInfo(base, fields)
	default:
		base.Kind = protocol.UnknownEvent
		return base
	}
}

func (a *UCIAdapter) handleID(fields []string) {
	// id name ... / id author ... -- identification only, no state kept
	// beyond what the option table needs; display name is config-owned.
	_ = fields
}

func (a *UCIAdapter) handleOption(fields []string) {
	opt, ok := parseOptionFields(fields)
	if !ok {
		a.sink.Report(TopicWrongTokenInInfoLine, false, "malformed option line: "+strings.Join(fields, " "))
		return
	}
	a.options[opt.Name] = opt
}

// parseOptionFields parses "option name NAME type TYPE [default D] [min N]
// [max N] [var V]*" positionally, tolerating a multi-word NAME.
func parseOptionFields(fields []string) (Option, bool) {
	var opt Option
	i := 1
	for i < len(fields) {
		switch fields[i] {
		case "name":
			j := i + 1
			var parts []string
			for j < len(fields) && fields[j] != "type" {
				parts = append(parts, fields[j])
				j++
			}
			opt.Name = strings.Join(parts, " ")
			i = j
		case "type":
			if i+1 >= len(fields) {
				return opt, false
			}
			switch fields[i+1] {
			case "check":
				opt.Type = Check
			case "spin":
				opt.Type = Spin
			case "combo":
				opt.Type = Combo
			case "button":
				opt.Type = Button
			case "string":
				opt.Type = String
			default:
				return opt, false
			}
			i += 2
		case "default":
			j := i + 1
			var parts []string
			for j < len(fields) && fields[j] != "min" && fields[j] != "max" && fields[j] != "var" {
				parts = append(parts, fields[j])
				j++
			}
			opt.Default = strings.Join(parts, " ")
			i = j
		case "min":
			if i+1 < len(fields) {
				if n, err := strconv.ParseInt(fields[i+1], 10, 64); err == nil {
					opt.Min = &n
				}
			}
			i += 2
		case "max":
			if i+1 < len(fields) {
				if n, err := strconv.ParseInt(fields[i+1], 10, 64); err == nil {
					opt.Max = &n
				}
			}
			i += 2
		case "var":
			if i+1 < len(fields) {
				opt.Vars = append(opt.Vars, fields[i+1])
			}
			i += 2
		default:
			i++
		}
	}
	return opt, opt.Name != ""
}

func (a *UCIAdapter) parseBestMove(base protocol.EngineEvent, fields []string) protocol.EngineEvent {
	base.Kind = protocol.BestMove
	if len(fields) < 2 {
		return base
	}
	best := fields[1]
	if best == "(none)" || best == "none" || best == "null" || best == "0000" {
		best = ""
	}
	base.Best = best
	if len(fields) >= 4 && fields[2] == "ponder" {
		base.Ponder = lang.Some(fields[3])
	}
	return base
}

func (a *UCIAdapter) parseInfo(base protocol.EngineEvent, fields []string) protocol.EngineEvent {
	base.Kind = protocol.Info
	info := protocol.SearchInfo{}
	seen := map[string]bool{}

	i := 1
	for i < len(fields) {
		tok := fields[i]
		if seen[tok] && tok != "pv" {
			a.sink.Report(TopicWrongTokenInInfoLine, false, "duplicate info field: "+tok)
		}
		seen[tok] = true

		switch tok {
		case "depth":
			i = a.intField(fields, i, &info.Depth)
		case "seldepth":
			j := i
			i = a.intField(fields, i, &info.SelDepth)
			if v, ok := info.SelDepth.V(); ok && (v > uciSelDepthMax || v < 0) {
				a.sink.Report(TopicWrongTokenInInfoLine, false, fmt.Sprintf("seldepth out of bounds: %v", v))
				info.SelDepth = lang.Optional[int]{}
			}
			_ = j
		case "multipv":
			i = a.intField(fields, i, &info.MultiPV)
		case "score":
			i = a.parseScore(fields, i, &info)
		case "time":
			i = a.int64Field(fields, i, &info.TimeMs)
		case "nodes":
			i = a.int64Field(fields, i, &info.Nodes)
		case "nps":
			i = a.int64Field(fields, i, &info.Nps)
		case "hashfull":
			i = a.intField(fields, i, &info.HashFull)
		case "tbhits":
			i = a.int64Field(fields, i, &info.TbHits)
		case "cpuload":
			i = a.intField(fields, i, &info.CpuLoad)
		case "currmove":
			if i+1 < len(fields) {
				info.CurrMove = lang.Some(fields[i+1])
			}
			i += 2
		case "currmovenumber":
			i = a.intField(fields, i, &info.CurrMoveNumber)
		case "pv":
			info.PV = append([]string{}, fields[i+1:]...)
			i = len(fields)
		case "string":
			i = len(fields) // rest of line is a free-form string; stop parsing
		default:
			a.sink.Report(TopicWrongTokenInInfoLine, false, "unknown info token: "+tok)
			i++
		}
	}

	base.SearchInfo = info
	return base
}

func (a *UCIAdapter) intField(fields []string, i int, dst *lang.Optional[int]) int {
	if i+1 >= len(fields) {
		return i + 1
	}
	n, err := strconv.Atoi(fields[i+1])
	if err != nil {
		a.sink.Report(TopicWrongTokenInInfoLine, false, "non-integer value for "+fields[i])
		return i + 2
	}
	*dst = lang.Some(n)
	return i + 2
}

func (a *UCIAdapter) int64Field(fields []string, i int, dst *lang.Optional[int64]) int {
	if i+1 >= len(fields) {
		return i + 1
	}
	n, err := strconv.ParseInt(fields[i+1], 10, 64)
	if err != nil {
		a.sink.Report(TopicWrongTokenInInfoLine, false, "non-integer value for "+fields[i])
		return i + 2
	}
	*dst = lang.Some(n)
	return i + 2
}

func (a *UCIAdapter) parseScore(fields []string, i int, info *protocol.SearchInfo) int {
	i++ // past "score"
	for i < len(fields) {
		switch fields[i] {
		case "cp":
			if i+1 < len(fields) {
				n, err := strconv.Atoi(fields[i+1])
				if err == nil {
					if n < uciScoreCpMin || n > uciScoreCpMax {
						a.sink.Report(TopicWrongTokenInInfoLine, false, fmt.Sprintf("score cp out of bounds: %v", n))
					} else {
						info.ScoreCp = lang.Some(n)
					}
				}
			}
			i += 2
		case "mate":
			if i+1 < len(fields) {
				n, err := strconv.Atoi(fields[i+1])
				if err == nil {
					if n > uciMateAbsMax || n < -uciMateAbsMax {
						a.sink.Report(TopicWrongTokenInInfoLine, false, fmt.Sprintf("mate out of bounds: %v", n))
					} else {
						info.ScoreMate = lang.Some(n)
					}
				}
			}
			i += 2
		case "lowerbound":
			info.ScoreLowerbound = true
			i++
		case "upperbound":
			info.ScoreUpperbound = true
			i++
		default:
			return i
		}
	}
	return i
}
