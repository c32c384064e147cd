// Package analyze drives an external UCI engine to evaluate positions and
// annotate games.
package analyze

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"chessuci/config"
	"chessuci/process"
	"chessuci/uci"
)

const (
	messageBuffer    = 512
	livenessInterval = 50 * time.Millisecond
)

var ErrNoMove = errors.New("engine reported no move")

// Analyzer owns one engine process for its lifetime.
type Analyzer struct {
	cfg config.Engine
	h   *uci.GUIHandler
	log *logrus.Entry

	uciok   chan struct{}
	readyok chan struct{}
	infos   chan uci.SearchInfo
	best    chan *uci.BestMove // nil when the engine had no move
	closed  chan struct{}

	multiPV int // last MultiPV sent, engines start at 1

	mu      sync.Mutex
	id      uci.ID
	options []uci.Option

	closeOnce sync.Once
}

func New(cfg config.Engine) *Analyzer {
	return NewWithProcess(cfg, process.New())
}

func NewWithProcess(cfg config.Engine, p process.Process) *Analyzer {
	a := &Analyzer{
		cfg:     cfg,
		log:     logrus.WithField("component", "analyze").WithField("engine", cfg.Name),
		uciok:   make(chan struct{}, 1),
		readyok: make(chan struct{}, 1),
		infos:   make(chan uci.SearchInfo, messageBuffer),
		best:    make(chan *uci.BestMove, 1),
		closed:  make(chan struct{}),
		multiPV: 1,
	}

	a.h = uci.NewGUIHandlerWithProcess(p, uci.GUIFuncs{
		OnIDName: func(name string) {
			a.mu.Lock()
			a.id.Name = name
			a.mu.Unlock()
		},
		OnIDAuthor: func(author string) {
			a.mu.Lock()
			a.id.Author = author
			a.mu.Unlock()
		},
		OnOption: func(opt uci.Option) {
			a.mu.Lock()
			a.options = append(a.options, opt)
			a.mu.Unlock()
		},
		OnUCIOk:   func() { a.signal(a.uciok) },
		OnReadyOk: func() { a.signal(a.readyok) },
		OnInfo: func(info uci.SearchInfo) {
			if info.Text != "" {
				a.log.Debugf("info string %s", info.Text)
			}
			select {
			case a.infos <- info:
			case <-a.closed:
			}
		},
		OnBestMove: func(bm uci.BestMove) { a.sendBest(&bm) },
	})

	// engines answer "bestmove (none)" or "bestmove 0000" when there is
	// nothing to play
	a.h.OnError(func(tokens []string, err error) {
		if tokens[0] == "bestmove" {
			a.sendBest(nil)
		}
	})

	if cfg.TerminateTimeout > 0 {
		a.h.TerminateTimeout = cfg.TerminateTimeout
	}

	return a
}

func (a *Analyzer) signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (a *Analyzer) sendBest(bm *uci.BestMove) {
	select {
	case a.best <- bm:
	case <-a.closed:
	}
}

// Start spawns the engine, completes the handshake and sends the configured
// options. Close must be called even when Start fails.
func (a *Analyzer) Start(ctx context.Context) error {
	if err := a.h.Start(a.cfg.Params()); err != nil {
		return err
	}

	if err := a.h.SendUCI(); err != nil {
		return err
	}
	if err := a.wait(ctx, a.uciok, "uciok"); err != nil {
		return err
	}

	for _, cmd := range a.cfg.SetOptions() {
		if err := a.h.SendSetOption(cmd); err != nil {
			return err
		}
	}

	return a.sync(ctx)
}

// NewGame tells the engine the next search is from a different game.
func (a *Analyzer) NewGame(ctx context.Context) error {
	if err := a.h.SendNewGame(); err != nil {
		return err
	}
	return a.sync(ctx)
}

func (a *Analyzer) SetOption(ctx context.Context, cmd uci.SetOption) error {
	if err := a.h.SendSetOption(cmd); err != nil {
		return err
	}
	return a.sync(ctx)
}

// sync waits until the engine has processed everything sent so far.
func (a *Analyzer) sync(ctx context.Context) error {
	if err := a.h.SendIsReady(); err != nil {
		return err
	}
	return a.wait(ctx, a.readyok, "readyok")
}

func (a *Analyzer) wait(ctx context.Context, ch <-chan struct{}, what string) error {
	ticker := time.NewTicker(livenessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ch:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("waiting for %s: %w", what, ctx.Err())
		case <-a.closed:
			return fmt.Errorf("waiting for %s: analyzer closed", what)
		case <-ticker.C:
			select {
			case <-ch:
				return nil
			default:
			}
			if err := a.alive(); err != nil {
				return fmt.Errorf("waiting for %s: %w", what, err)
			}
		}
	}
}

func (a *Analyzer) alive() error {
	if a.h.IsRunning() {
		return nil
	}
	p := a.h.Process()
	if msg := p.LastError(); msg != "" {
		return fmt.Errorf("engine %s: %s", p.State(), msg)
	}
	return fmt.Errorf("engine %s", p.State())
}

// ID is what the engine reported about itself during the handshake.
func (a *Analyzer) ID() uci.ID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id
}

func (a *Analyzer) Options() []uci.Option {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]uci.Option(nil), a.options...)
}

// Close stops the engine, killing it when it ignores quit.
func (a *Analyzer) Close() {
	a.closeOnce.Do(func() {
		close(a.closed)
		a.h.Stop()
	})
}
