package analyze

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"chessuci/commas"
	"chessuci/config"
	"chessuci/uci"
	"chessuci/ucimove"
)

// stopGrace bounds the wait for the engine's bestmove after "stop" was sent
// because the caller gave up.
const stopGrace = time.Second

type Options struct {
	Depth       int           // 0 searches until MaxTime
	MaxTime     time.Duration // 0 waits for the depth to complete
	MultiPV     int           // lines to report, 0 keeps the engine's setting
	SearchMoves []ucimove.UCIMove
}

func OptionsFrom(cfg config.Analysis) Options {
	return Options{Depth: cfg.Depth, MaxTime: cfg.MaxTime, MultiPV: cfg.MultiPV}
}

type Result struct {
	BestMove uci.BestMove
	Evals    Evals // deepest line per multipv, multipv 1 first
	Stopped  bool  // MaxTime ran out before the engine finished
}

// Top is the principal evaluation, empty when the engine reported none.
func (r Result) Top() Eval {
	if len(r.Evals) == 0 {
		return Eval{}
	}
	return r.Evals[0]
}

// Search runs one "go" on pos and collects the evaluations until the
// engine answers with bestmove. It returns ErrNoMove when the side to move
// has no legal move.
func (a *Analyzer) Search(ctx context.Context, pos uci.Position, opts Options) (Result, error) {
	if opts.Depth <= 0 && opts.MaxTime <= 0 {
		return Result{}, errors.New("search needs a depth or a time limit")
	}

	a.drain()

	if opts.MultiPV > 0 && opts.MultiPV != a.multiPV {
		if err := a.SetOption(ctx, uci.SetOption{Name: "MultiPV", Value: uci.Ptr(strconv.Itoa(opts.MultiPV))}); err != nil {
			return Result{}, err
		}
		a.multiPV = opts.MultiPV
	}

	cmd := uci.Go{SearchMoves: opts.SearchMoves}
	if opts.Depth > 0 {
		cmd.Depth = uci.Ptr(uint64(opts.Depth))
	} else {
		cmd.Infinite = true
	}

	if err := a.h.SendPosition(pos); err != nil {
		return Result{}, err
	}
	if err := a.h.SendGo(cmd); err != nil {
		return Result{}, err
	}

	var timeout <-chan time.Time
	if opts.MaxTime > 0 {
		timer := time.NewTimer(opts.MaxTime)
		defer timer.Stop()
		timeout = timer.C
	}

	ticker := time.NewTicker(livenessInterval)
	defer ticker.Stop()

	var result Result
	evals := make(map[int]Eval)
	var maxDepth int

	update := func(info uci.SearchInfo) {
		eval, ok := newEval(info)
		if !ok || eval.UpperBound || eval.LowerBound {
			return
		}
		if prev, found := evals[eval.MultiPV]; found && prev.Depth > eval.Depth {
			return
		}
		evals[eval.MultiPV] = eval

		if eval.Depth > maxDepth {
			maxDepth = eval.Depth
			a.log.Debugf("depth %d %s %s nodes %s", eval.Depth, eval.UCIMove, formatScore(eval), commas.Uint64(eval.Nodes))
		}
	}

	// info lines printed before bestmove are already buffered when bestmove
	// arrives; collect them before returning
	finish := func(bm *uci.BestMove) (Result, error) {
		for done := false; !done; {
			select {
			case info := <-a.infos:
				update(info)
			default:
				done = true
			}
		}

		result.Evals = sortEvals(evals)
		if bm == nil {
			return result, ErrNoMove
		}
		result.BestMove = *bm
		return result, nil
	}

	for {
		select {
		case info := <-a.infos:
			update(info)

		case bm := <-a.best:
			return finish(bm)

		case <-timeout:
			a.log.Debugf("search time expired (%v), using what we have at depth %d", opts.MaxTime, maxDepth)
			if err := a.h.SendStop(); err != nil {
				return Result{}, err
			}
			result.Stopped = true
			timeout = nil

		case <-ctx.Done():
			a.abandon()
			return Result{}, ctx.Err()

		case <-a.closed:
			return Result{}, errors.New("search: analyzer closed")

		case <-ticker.C:
			select {
			case bm := <-a.best:
				return finish(bm)
			default:
			}
			if err := a.alive(); err != nil {
				return Result{}, fmt.Errorf("search: %w", err)
			}
		}
	}
}

// abandon stops a search nobody waits for anymore, so its bestmove does not
// answer the next one.
func (a *Analyzer) abandon() {
	if err := a.h.SendStop(); err != nil {
		return
	}
	select {
	case <-a.best:
	case <-a.closed:
	case <-time.After(stopGrace):
		a.log.Warnf("no bestmove within %v of stop", stopGrace)
	}
}

// drain drops output left over from an earlier search.
func (a *Analyzer) drain() {
	for {
		select {
		case <-a.infos:
		case <-a.best:
		default:
			return
		}
	}
}

func sortEvals(m map[int]Eval) Evals {
	evals := make(Evals, 0, len(m))
	for _, e := range m {
		evals = append(evals, e)
	}
	sort.Slice(evals, func(i, j int) bool {
		return evals[i].MultiPV < evals[j].MultiPV
	})
	return evals
}

func formatScore(e Eval) string {
	if e.Mate != 0 {
		return fmt.Sprintf("mate %d", e.Mate)
	}
	return fmt.Sprintf("cp %d", e.CP)
}
