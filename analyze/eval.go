package analyze

import (
	"fmt"

	"chessuci/uci"
	"chessuci/ucimove"
)

type Evals []Eval

// Eval is one scored line reported by the engine. CP and Mate are from the
// point of view of the side to move.
type Eval struct {
	UCIMove    string   `yaml:"uci"`
	Depth      int      `yaml:"depth"`
	SelDepth   int      `yaml:"seldepth,omitempty"`
	MultiPV    int      `yaml:"multipv"`
	CP         int      `yaml:"cp"`
	Mate       int      `yaml:"mate,omitempty"`
	Nodes      uint64   `yaml:"nodes"`
	NPS        uint64   `yaml:"nps,omitempty"`
	TBHits     uint64   `yaml:"tbhits,omitempty"`
	Time       int      `yaml:"time"`
	UpperBound bool     `yaml:"ub,omitempty"`
	LowerBound bool     `yaml:"lb,omitempty"`
	PV         []string `yaml:"pv,flow"`
	Mated      bool     `yaml:"mated,omitempty"`
}

// newEval keeps the scored lines of an info update. Updates without a
// score or a pv, like "info currmove", are not evaluations.
func newEval(info uci.SearchInfo) (Eval, bool) {
	if info.Score == nil || len(info.PV) == 0 {
		return Eval{}, false
	}

	eval := Eval{
		UCIMove:    info.PV[0].String(),
		MultiPV:    1,
		UpperBound: info.Score.UpperBound,
		LowerBound: info.Score.LowerBound,
	}

	if info.Score.Mate != nil {
		eval.Mate = *info.Score.Mate
	} else if info.Score.CP != nil {
		eval.CP = *info.Score.CP
	}

	setInt(&eval.Depth, info.Depth)
	setInt(&eval.SelDepth, info.SelDepth)
	setInt(&eval.MultiPV, info.MultiPV)
	setInt(&eval.Time, info.Time)
	setInt(&eval.Nodes, info.Nodes)
	setInt(&eval.NPS, info.NPS)
	setInt(&eval.TBHits, info.TBHits)

	for _, m := range info.PV {
		eval.PV = append(eval.PV, m.String())
	}

	return eval, true
}

func setInt[T int | uint64](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (e Eval) Score() int {
	if e.Mate > 0 {
		return 400_00 - e.Mate*100 // closer mates equal higher numbers
	} else if e.Mate < 0 {
		return -400_00 - e.Mate*100 // being mated later beats being mated sooner
	}

	return e.CP
}

func (e Eval) Empty() bool {
	return e.UCIMove == ""
}

func sign(color ucimove.Color) int {
	if color == ucimove.Black {
		return -1
	}
	return 1
}

// GlobalCP is CP from white's point of view, given the side to move.
func (e Eval) GlobalCP(color ucimove.Color) int {
	return e.CP * sign(color)
}

func (e Eval) GlobalMate(color ucimove.Color) int {
	return e.Mate * sign(color)
}

// String formats the evaluation from white's point of view: "#-3", "1.25".
func (e Eval) String(color ucimove.Color) string {
	if e.Mated {
		return ""
	}

	if e.Mate != 0 {
		return fmt.Sprintf("#%d", e.GlobalMate(color))
	}

	s := fmt.Sprintf("%.2f", float64(e.GlobalCP(color))/100)

	if s == "+0.00" || s == "-0.00" {
		return "0.00"
	}

	return s
}
