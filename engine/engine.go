// Package engine is a small UCI engine: it answers the handshake, tracks
// the position it is given and plays the move that wins the most material
// one ply ahead.
package engine

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"chessuci/commas"
	"chessuci/rules"
	"chessuci/uci"
	"chessuci/ucimove"
)

const (
	Name   = "chessuci greedy"
	Author = "the chessuci authors"
)

var options = []uci.Option{
	{Name: "Hash", Type: uci.OptionSpin, Default: uci.Ptr("16"), Min: uci.Ptr(1), Max: uci.Ptr(1024)},
	{Name: "Ponder", Type: uci.OptionCheck, Default: uci.Ptr("false")},
	{Name: "Clear Hash", Type: uci.OptionButton},
}

type Engine struct {
	h   *uci.EngineHandler
	log *logrus.Entry

	// touched only from handler callbacks
	pos     *rules.Position
	debug   bool
	values  map[string]string
	pending *uci.BestMove

	quit     chan struct{}
	quitOnce sync.Once
}

// New builds an engine reading commands from in and replying on out.
func New(in io.Reader, out io.Writer) *Engine {
	e := &Engine{
		log:    logrus.WithField("component", "engine"),
		pos:    rules.Start(),
		values: make(map[string]string),
		quit:   make(chan struct{}),
	}

	for _, opt := range options {
		if opt.Default != nil {
			e.values[opt.Name] = *opt.Default
		}
	}

	e.h = uci.NewEngineHandler(in, out, uci.EngineFuncs{
		OnUCI:       e.uci,
		OnDebug:     func(cmd uci.Debug) { e.debug = cmd.Enable },
		OnIsReady:   func() { e.send(e.h.SendReadyOk()) },
		OnSetOption: e.setOption,
		OnNewGame:   e.newGame,
		OnPosition:  e.position,
		OnGo:        e.goSearch,
		OnStop:      e.flush,
		OnPonderHit: e.flush,
		OnQuit:      e.stop,
	})
	e.h.OnUnknownCommand(func(tokens []string) {
		e.send(e.h.SendInfoString("unknown command: " + strings.Join(tokens, " ")))
	})
	e.h.OnError(func(tokens []string, err error) {
		e.send(e.h.SendInfoString(err.Error()))
	})

	return e
}

// Run serves commands until quit, the end of the input, or ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.h.Start(); err != nil {
		return err
	}

	done := make(chan struct{})
	go func() {
		e.h.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
	case <-e.quit:
	case <-done:
	}

	e.h.Stop()
	return nil
}

// Option returns the current value of a setoption-able option. Call it
// only while Run is not serving.
func (e *Engine) Option(name string) (string, bool) {
	v, ok := e.values[name]
	return v, ok
}

func (e *Engine) send(err error) {
	if err != nil {
		e.log.Errorf("write: %v", err)
	}
}

func (e *Engine) uci() {
	e.send(e.h.SendID(uci.ID{Name: Name, Author: Author}))
	for _, opt := range options {
		e.send(e.h.SendOption(opt))
	}
	e.send(e.h.SendUCIOk())
}

func (e *Engine) setOption(cmd uci.SetOption) {
	var opt *uci.Option
	for i := range options {
		if strings.EqualFold(options[i].Name, cmd.Name) {
			opt = &options[i]
			break
		}
	}
	if opt == nil {
		e.send(e.h.SendInfoString("unknown option " + cmd.Name))
		return
	}

	if opt.Type == uci.OptionButton {
		e.log.Debugf("%s pressed", opt.Name)
		return
	}
	if cmd.Value == nil {
		e.send(e.h.SendInfoString("missing value for " + opt.Name))
		return
	}

	value := *cmd.Value
	switch opt.Type {
	case uci.OptionSpin:
		n, err := strconv.Atoi(value)
		if err != nil || n < *opt.Min || n > *opt.Max {
			e.send(e.h.SendInfoString(fmt.Sprintf("%s must be between %d and %d", opt.Name, *opt.Min, *opt.Max)))
			return
		}
	case uci.OptionCheck:
		if value != "true" && value != "false" {
			e.send(e.h.SendInfoString(opt.Name + " must be true or false"))
			return
		}
	}

	e.values[opt.Name] = value
	e.log.Debugf("option %s = %s", opt.Name, value)
}

func (e *Engine) newGame() {
	e.pos = rules.Start()
	e.pending = nil
}

func (e *Engine) position(cmd uci.Position) {
	start, err := rules.FromFEN(cmd.FEN)
	if err != nil {
		e.send(e.h.SendInfoString(err.Error()))
		return
	}
	pos, err := start.ApplyAll(cmd.Moves)
	if err != nil {
		e.send(e.h.SendInfoString(err.Error()))
		return
	}
	e.pos = pos
}

func (e *Engine) goSearch(cmd uci.Go) {
	start := time.Now()
	best := search(e.pos, cmd.SearchMoves)

	if !best.found {
		e.send(e.h.SendRaw("bestmove (none)"))
		return
	}

	info := uci.SearchInfo{
		Depth: uci.Ptr(1),
		Time:  uci.Ptr(int(time.Since(start).Milliseconds())),
		Nodes: uci.Ptr(best.nodes),
		PV:    []ucimove.UCIMove{best.move},
	}
	if best.mate {
		info.Score = &uci.Score{Mate: uci.Ptr(1)}
	} else {
		info.Score = &uci.Score{CP: uci.Ptr(best.cp)}
	}
	e.send(e.h.SendInfo(info))

	if e.debug {
		e.send(e.h.SendInfoString(fmt.Sprintf("searched %s moves in %s", commas.Uint64(best.nodes), e.pos.FEN())))
	}

	bm := uci.BestMove{Move: best.move}
	if cmd.Infinite || cmd.Ponder {
		e.pending = &bm
		return
	}
	e.send(e.h.SendBestMove(bm))
}

// flush sends the best move held back by "go infinite" or "go ponder".
func (e *Engine) flush() {
	if e.pending == nil {
		return
	}
	bm := *e.pending
	e.pending = nil
	e.send(e.h.SendBestMove(bm))
}

func (e *Engine) stop() {
	e.flush()
	e.quitOnce.Do(func() { close(e.quit) })
}
