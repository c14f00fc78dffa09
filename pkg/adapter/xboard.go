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
	"go.uber.org/atomic"
)

// XBoardAdapter drives an engine that speaks the XBoard/WinBoard protocol:
// the handshake, force/usermove/go, ping/pong and positional thinking-line
// subset. It does not implement "edit" mode or engine-initiated "analyze",
// which the reference WinBoard adapter this is ported from leaves partial
// too, and which no task provider here needs.
type XBoardAdapter struct {
	ctx     context.Context
	host    *process.Host
	id      string
	sink    ChecklistSink
	pingSeq atomic.Int64
	lastPing int64
	started bool
	lastGame GameRecord
}

var _ Adapter = (*XBoardAdapter)(nil)

func NewXBoard(ctx context.Context, host *process.Host, engineIdentifier string, sink ChecklistSink) *XBoardAdapter {
	if sink == nil {
		sink = nopSink{}
	}
	return &XBoardAdapter{ctx: ctx, host: host, id: engineIdentifier, sink: sink}
}

func (a *XBoardAdapter) Protocol() protocol.Variant { return protocol.XBoard }

func (a *XBoardAdapter) Options() map[string]Option { return nil }

func (a *XBoardAdapter) write(line string) (int64, error) {
	logw.Debugf(a.ctx, "%v << %v", a.id, line)
	return a.host.WriteLine(line)
}

func (a *XBoardAdapter) StartProtocol() error {
	if _, err := a.write("xboard"); err != nil {
		return err
	}
	_, err := a.write("protover 2")
	return err
}

func (a *XBoardAdapter) NewGame() error {
	_, err := a.write("new")
	return err
}

func (a *XBoardAdapter) MoveNow() error {
	_, err := a.write("?")
	return err
}

func (a *XBoardAdapter) AskForReady(pingID int) error {
	a.lastPing = int64(pingID)
	_, err := a.write(fmt.Sprintf("ping %d", pingID))
	return err
}

func (a *XBoardAdapter) SetPonder(enabled bool) error {
	if enabled {
		_, err := a.write("hard")
		return err
	}
	_, err := a.write("easy")
	return err
}

func (a *XBoardAdapter) SetTestOption(name, value string) error {
	_, err := a.write(fmt.Sprintf("option %v=%v", name, value))
	return err
}

func (a *XBoardAdapter) SetOptionValues(values map[string]string) error {
	for name, value := range values {
		if err := a.SetTestOption(name, value); err != nil {
			return err
		}
	}
	return nil
}

// replay sends force + setboard/usermove so the engine's internal board
// matches g, since XBoard has no single "position" command.
func (a *XBoardAdapter) replay(g GameRecord) error {
	if _, err := a.write("force"); err != nil {
		return err
	}
	if g.StartFEN != "" {
		if _, err := a.write("setboard " + g.StartFEN); err != nil {
			return err
		}
	} else {
		if _, err := a.write("new"); err != nil {
			return err
		}
		if _, err := a.write("force"); err != nil {
			return err
		}
	}
	for _, mv := range g.Moves {
		if _, err := a.write("usermove " + mv); err != nil {
			return err
		}
	}
	a.lastGame = g
	return nil
}

func (a *XBoardAdapter) ComputeMove(g GameRecord, limits protocol.GoLimits, ponderHit bool) (int64, error) {
	if ponderHit {
		// XBoard has no distinct ponderhit command in this subset: the
		// pondering move simply becomes the real move via usermove below,
		// continuing the in-flight search.
		if len(g.Moves) > 0 {
			_, _ = a.write("usermove " + g.Moves[len(g.Moves)-1])
		}
		return time.Now().UnixMilli(), nil
	}
	if err := a.replay(g); err != nil {
		return 0, err
	}
	a.setTimeCommands(limits)
	return a.write("go")
}

func (a *XBoardAdapter) AllowPonder(g GameRecord, limits protocol.GoLimits, ponderMove string) (int64, error) {
	pondered := g
	pondered.Moves = append(append([]string{}, g.Moves...), ponderMove)
	if err := a.replay(pondered); err != nil {
		return 0, err
	}
	return time.Now().UnixMilli(), nil
}

func (a *XBoardAdapter) setTimeCommands(limits protocol.GoLimits) {
	// "time" and "otim" are in centiseconds in XBoard.
	_, _ = a.write(fmt.Sprintf("time %d", limits.WTimeMs/10))
	_, _ = a.write(fmt.Sprintf("otim %d", limits.BTimeMs/10))
}

func (a *XBoardAdapter) TerminateEngine() {
	_, _ = a.write("quit")
	a.host.WaitForExit(200 * time.Millisecond)
	a.host.Terminate()
}

func (a *XBoardAdapter) ReadEvent() protocol.EngineEvent {
	line := a.host.ReadLineBlocking()
	if line.Err != nil {
		return protocol.EngineEvent{Kind: protocol.EngineDisconnected, EngineIdentifier: a.id, TimestampMs: line.TimestampMs, RawLine: line.Content}
	}
	logw.Debugf(a.ctx, "%v >> %v", a.id, line.Content)
	return a.parseLine(line)
}

func (a *XBoardAdapter) parseLine(line process.Line) protocol.EngineEvent {
	base := protocol.EngineEvent{EngineIdentifier: a.id, TimestampMs: line.TimestampMs, RawLine: line.Content}
	content := strings.TrimSpace(line.Content)
	if content == "" {
		base.Kind = protocol.NoData
		return base
	}

	fields := strings.Fields(content)
	switch {
	case fields[0] == "feature":
		base.Kind = protocol.NoData
		if strings.Contains(content, "done=1") {
			base.Kind = protocol.UciOk // reuses the "option collection complete" handshake signal
		}
		return base
	case fields[0] == "pong":
		base.Kind = protocol.ReadyOk
		if len(fields) >= 2 {
			if n, err := strconv.ParseInt(fields[1], 10, 64); err == nil && n != a.lastPing {
				a.sink.Report(TopicWrongTokenInInfoLine, false, fmt.Sprintf("pong %d does not match last ping %d", n, a.lastPing))
			}
		}
		return base
	case fields[0] == "move":
		base.Kind = protocol.BestMove
		if len(fields) >= 2 {
			base.Best = fields[1]
		}
		return base
	case fields[0] == "Illegal" || fields[0] == "Error" || strings.HasPrefix(content, "Illegal move"):
		base.Kind = protocol.Error
		base.Errors = []string{content}
		return base
	case isDigits(fields[0]):
		return a.parseThinkingLine(base, fields)
	default:
		base.Kind = protocol.UnknownEvent
		return base
	}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			if r == '-' {
				continue
			}
			return false
		}
	}
	return true
}

// parseThinkingLine parses "depth score time nodes [seldepth nps tbhits] pv...",
// positionally, per spec.md §4.2/§6. Score is centipawns (±mate offset at
// ±10000); time is centiseconds, multiplied by 10 to normalize to ms.
func (a *XBoardAdapter) parseThinkingLine(base protocol.EngineEvent, fields []string) protocol.EngineEvent {
	base.Kind = protocol.Info
	if len(fields) < 4 {
		a.sink.Report(TopicWrongTokenInInfoLine, false, "short thinking line: "+strings.Join(fields, " "))
		return base
	}

	info := protocol.SearchInfo{}
	if d, err := strconv.Atoi(fields[0]); err == nil {
		info.Depth = some(d)
	}
	if sc, err := strconv.Atoi(fields[1]); err == nil {
		if sc >= uciMateAbsMax-1000 || sc <= -(uciMateAbsMax-1000) {
			info.ScoreMate = some(sc - sign(sc)*uciMateAbsMax)
		} else {
			info.ScoreCp = some(sc)
		}
	}
	if t, err := strconv.ParseInt(fields[2], 10, 64); err == nil {
		info.TimeMs = someI64(t * 10)
	}
	if n, err := strconv.ParseInt(fields[3], 10, 64); err == nil {
		info.Nodes = someI64(n)
	}

	i := 4
	if i < len(fields) {
		if v, err := strconv.Atoi(fields[i]); err == nil {
			info.SelDepth = some(v)
			i++
		}
	}
	if i < len(fields) {
		if v, err := strconv.ParseInt(fields[i], 10, 64); err == nil {
			info.Nps = someI64(v)
			i++
		}
	}
	if i < len(fields) {
		if v, err := strconv.ParseInt(fields[i], 10, 64); err == nil {
			info.TbHits = someI64(v)
			i++
		}
	}
	info.PV = append([]string{}, fields[i:]...)

	base.SearchInfo = info
	return base
}

func sign(n int) int {
	if n < 0 {
		return -1
	}
	return 1
}
