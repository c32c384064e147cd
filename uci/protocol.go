// Package uci speaks the Universal Chess Interface protocol in both
// directions: EngineHandler sits behind a stream and answers a controller,
// GUIHandler spawns an engine and drives it.
package uci

import (
	"errors"
	"fmt"
	"strings"

	"chessuci/ucimove"
)

const StartPos = "startpos"

var ErrAlreadyRunning = errors.New("uci: handler already running")

// Error is returned by every parser in this package.
type Error struct {
	Command string
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s command: %s: %v", e.Command, e.Msg, e.Err)
	}
	return fmt.Sprintf("invalid %s command: %s", e.Command, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func parseError(command, format string, args ...interface{}) *Error {
	return &Error{Command: command, Msg: fmt.Sprintf(format, args...)}
}

// Ptr returns a pointer to v, for filling in optional fields.
func Ptr[T any](v T) *T {
	return &v
}

type Debug struct {
	Enable bool
}

// SetOption carries a nil Value when the command had no value part.
type SetOption struct {
	Name  string
	Value *string
}

func (s SetOption) String() string {
	if s.Value == nil {
		return "setoption name " + s.Name
	}
	return "setoption name " + s.Name + " value " + *s.Value
}

// Position holds either StartPos or a FEN string, followed by the moves
// played from there.
type Position struct {
	FEN   string
	Moves []ucimove.UCIMove
}

func (p Position) String() string {
	var sb strings.Builder
	if p.FEN == "" || p.FEN == StartPos {
		sb.WriteString("position startpos")
	} else {
		sb.WriteString("position fen ")
		sb.WriteString(p.FEN)
	}
	if len(p.Moves) > 0 {
		sb.WriteString(" moves")
		writeMoves(&sb, p.Moves)
	}
	return sb.String()
}

type Go struct {
	SearchMoves []ucimove.UCIMove
	Ponder      bool
	WTime       *int64
	BTime       *int64
	WInc        *int
	BInc        *int
	MovesToGo   *int
	Depth       *uint64
	Nodes       *uint64
	Mate        *int
	MoveTime    *int64
	Infinite    bool
}

// HasTimingControl reports whether the search is bounded by a clock.
func (g Go) HasTimingControl() bool {
	return g.WTime != nil || g.BTime != nil || g.WInc != nil || g.BInc != nil ||
		g.MovesToGo != nil || g.MoveTime != nil
}

func (g Go) String() string {
	var sb strings.Builder
	sb.WriteString("go")
	if len(g.SearchMoves) > 0 {
		sb.WriteString(" searchmoves")
		writeMoves(&sb, g.SearchMoves)
	}
	if g.Ponder {
		sb.WriteString(" ponder")
	}
	writeOpt(&sb, "wtime", g.WTime)
	writeOpt(&sb, "btime", g.BTime)
	writeOpt(&sb, "winc", g.WInc)
	writeOpt(&sb, "binc", g.BInc)
	writeOpt(&sb, "movestogo", g.MovesToGo)
	writeOpt(&sb, "depth", g.Depth)
	writeOpt(&sb, "nodes", g.Nodes)
	writeOpt(&sb, "mate", g.Mate)
	writeOpt(&sb, "movetime", g.MoveTime)
	if g.Infinite {
		sb.WriteString(" infinite")
	}
	return sb.String()
}

type ID struct {
	Name   string
	Author string
}

type BestMove struct {
	Move   ucimove.UCIMove
	Ponder *ucimove.UCIMove
}

func (b BestMove) String() string {
	if b.Ponder == nil {
		return "bestmove " + b.Move.String()
	}
	return "bestmove " + b.Move.String() + " ponder " + b.Ponder.String()
}

// Score is either CP or Mate. The bounds are exclusive by convention only.
type Score struct {
	CP         *int
	Mate       *int
	LowerBound bool
	UpperBound bool
}

func (s Score) String() string {
	var sb strings.Builder
	sb.WriteString("score")
	if s.CP != nil {
		writeOpt(&sb, "cp", s.CP)
	} else if s.Mate != nil {
		writeOpt(&sb, "mate", s.Mate)
	}
	if s.LowerBound {
		sb.WriteString(" lowerbound")
	} else if s.UpperBound {
		sb.WriteString(" upperbound")
	}
	return sb.String()
}

type Line struct {
	CPUNr *int
	Moves []ucimove.UCIMove
}

// WDL is the win/draw/loss estimate in permille some engines report.
type WDL struct {
	Win  int
	Draw int
	Loss int
}

// SearchInfo is one "info" line. Every field is optional; nil or empty
// means the engine did not report it in this update.
type SearchInfo struct {
	Depth          *int
	SelDepth       *int
	Time           *int
	Nodes          *uint64
	PV             []ucimove.UCIMove
	MultiPV        *int
	Score          *Score
	WDL            *WDL
	CurrMove       *ucimove.UCIMove
	CurrMoveNumber *int
	HashFull       *int
	NPS            *uint64
	TBHits         *uint64
	SBHits         *uint64
	CPULoad        *int
	Text           string // everything after "string"
	Refutation     []ucimove.UCIMove
	CurrLine       *Line
}

func (i SearchInfo) String() string {
	var sb strings.Builder
	sb.WriteString("info")
	writeOpt(&sb, "depth", i.Depth)
	writeOpt(&sb, "seldepth", i.SelDepth)
	writeOpt(&sb, "time", i.Time)
	writeOpt(&sb, "nodes", i.Nodes)
	writeOpt(&sb, "nps", i.NPS)
	writeOpt(&sb, "hashfull", i.HashFull)
	writeOpt(&sb, "tbhits", i.TBHits)
	writeOpt(&sb, "sbhits", i.SBHits)
	writeOpt(&sb, "cpuload", i.CPULoad)
	writeOpt(&sb, "multipv", i.MultiPV)
	if i.Score != nil {
		sb.WriteByte(' ')
		sb.WriteString(i.Score.String())
	}
	if i.WDL != nil {
		fmt.Fprintf(&sb, " wdl %d %d %d", i.WDL.Win, i.WDL.Draw, i.WDL.Loss)
	}
	if i.CurrMove != nil {
		sb.WriteString(" currmove ")
		sb.WriteString(i.CurrMove.String())
	}
	writeOpt(&sb, "currmovenumber", i.CurrMoveNumber)
	if i.CurrLine != nil {
		sb.WriteString(" currline")
		writeOpt(&sb, "", i.CurrLine.CPUNr)
		writeMoves(&sb, i.CurrLine.Moves)
	}
	if len(i.Refutation) > 0 {
		sb.WriteString(" refutation")
		writeMoves(&sb, i.Refutation)
	}
	if len(i.PV) > 0 {
		sb.WriteString(" pv")
		writeMoves(&sb, i.PV)
	}
	if i.Text != "" {
		sb.WriteString(" string ")
		sb.WriteString(i.Text)
	}
	return sb.String()
}

type OptionType int

const (
	OptionCheck OptionType = iota
	OptionSpin
	OptionCombo
	OptionButton
	OptionString
)

func (t OptionType) String() string {
	switch t {
	case OptionCheck:
		return "check"
	case OptionSpin:
		return "spin"
	case OptionCombo:
		return "combo"
	case OptionButton:
		return "button"
	case OptionString:
		return "string"
	default:
		return "<unknown>"
	}
}

func ParseOptionType(s string) (OptionType, error) {
	switch s {
	case "check":
		return OptionCheck, nil
	case "spin":
		return OptionSpin, nil
	case "combo":
		return OptionCombo, nil
	case "button":
		return OptionButton, nil
	case "string":
		return OptionString, nil
	default:
		return 0, parseError("option", "unknown option type '%s'", s)
	}
}

// Option is an engine parameter as announced after "uci". Min and Max only
// apply to spin options, Vars only to combo options.
type Option struct {
	Name    string
	Type    OptionType
	Default *string
	Min     *int
	Max     *int
	Vars    []string
}

func (o Option) String() string {
	var sb strings.Builder
	sb.WriteString("option name ")
	sb.WriteString(o.Name)
	sb.WriteString(" type ")
	sb.WriteString(o.Type.String())
	if o.Default != nil {
		sb.WriteString(" default ")
		sb.WriteString(*o.Default)
	}
	writeOpt(&sb, "min", o.Min)
	writeOpt(&sb, "max", o.Max)
	for _, v := range o.Vars {
		sb.WriteString(" var ")
		sb.WriteString(v)
	}
	return sb.String()
}

func writeMoves(sb *strings.Builder, moves []ucimove.UCIMove) {
	for _, m := range moves {
		sb.WriteByte(' ')
		sb.WriteString(m.String())
	}
}

type integer interface {
	~int | ~int64 | ~uint64
}

// writeOpt writes " key value" when v is set. An empty key writes the value
// alone.
func writeOpt[T integer](sb *strings.Builder, key string, v *T) {
	if v == nil {
		return
	}
	if key != "" {
		sb.WriteByte(' ')
		sb.WriteString(key)
	}
	fmt.Fprintf(sb, " %d", *v)
}
