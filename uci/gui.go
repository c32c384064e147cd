package uci

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"chessuci/process"
)

// GUIListener receives the engine's messages. Methods run on the handler's
// reader goroutine and must not call Stop.
type GUIListener interface {
	IDName(name string)
	IDAuthor(author string)
	UCIOk()
	ReadyOk()
	BestMove(bm BestMove)
	Info(info SearchInfo)
	Option(opt Option)
}

// GUIFuncs is a GUIListener built from optional funcs. Nil fields ignore
// their message.
type GUIFuncs struct {
	OnIDName   func(string)
	OnIDAuthor func(string)
	OnUCIOk    func()
	OnReadyOk  func()
	OnBestMove func(BestMove)
	OnInfo     func(SearchInfo)
	OnOption   func(Option)
}

func (f GUIFuncs) IDName(name string) {
	if f.OnIDName != nil {
		f.OnIDName(name)
	}
}

func (f GUIFuncs) IDAuthor(author string) {
	if f.OnIDAuthor != nil {
		f.OnIDAuthor(author)
	}
}

func (f GUIFuncs) UCIOk() {
	if f.OnUCIOk != nil {
		f.OnUCIOk()
	}
}

func (f GUIFuncs) ReadyOk() {
	if f.OnReadyOk != nil {
		f.OnReadyOk()
	}
}

func (f GUIFuncs) BestMove(bm BestMove) {
	if f.OnBestMove != nil {
		f.OnBestMove(bm)
	}
}

func (f GUIFuncs) Info(info SearchInfo) {
	if f.OnInfo != nil {
		f.OnInfo(info)
	}
}

func (f GUIFuncs) Option(opt Option) {
	if f.OnOption != nil {
		f.OnOption(opt)
	}
}

// GUIHandler is the controller end of the protocol. It owns the engine
// process it starts.
type GUIHandler struct {
	dispatcher

	// TerminateTimeout bounds the graceful shutdown in Stop before the
	// engine is killed.
	TerminateTimeout time.Duration

	proc     process.Process
	listener GUIListener

	writeMu sync.Mutex
}

// NewGUIHandler drives a local process from process.New.
func NewGUIHandler(l GUIListener) *GUIHandler {
	return NewGUIHandlerWithProcess(process.New(), l)
}

func NewGUIHandlerWithProcess(p process.Process, l GUIListener) *GUIHandler {
	h := &GUIHandler{
		TerminateTimeout: process.DefaultTerminateTimeout,
		proc:             p,
		listener:         l,
	}

	h.dispatcher.init(logrus.WithField("component", "uci-gui"), map[string]builtinFunc{
		"uciok":   func([]string) error { l.UCIOk(); return nil },
		"readyok": func([]string) error { l.ReadyOk(); return nil },
		"id": func(tokens []string) error {
			id, err := ParseID(tokens)
			if err != nil {
				return err
			}
			if id.Name != "" {
				l.IDName(id.Name)
			} else {
				l.IDAuthor(id.Author)
			}
			return nil
		},
		"bestmove": func(tokens []string) error {
			bm, err := ParseBestMove(tokens)
			if err != nil {
				return err
			}
			l.BestMove(bm)
			return nil
		},
		"info": func(tokens []string) error {
			info, err := ParseInfo(tokens)
			if err != nil {
				return err
			}
			l.Info(info)
			return nil
		},
		"option": func(tokens []string) error {
			opt, err := ParseOption(tokens)
			if err != nil {
				return err
			}
			l.Option(opt)
			return nil
		},
	})

	return h
}

// Process returns the engine process the handler drives.
func (h *GUIHandler) Process() process.Process {
	return h.proc
}

// Start spawns the engine and the goroutine reading its output.
func (h *GUIHandler) Start(params process.Params) error {
	if !h.tryStart() {
		return ErrAlreadyRunning
	}

	if err := h.proc.Start(params); err != nil {
		h.tryStop()
		return fmt.Errorf("start engine: %w", err)
	}

	h.log.Debugf("engine %s started, pid %d", params.Executable, h.proc.Pid())

	h.wg.Add(1)
	go h.readLoop()

	return nil
}

// Stop asks the engine to quit, kills it when it does not within
// TerminateTimeout, and waits for the reader goroutine. No callback runs
// after Stop returns.
func (h *GUIHandler) Stop() {
	h.tryStop()

	timeout := h.TerminateTimeout
	if timeout <= 0 {
		timeout = process.DefaultTerminateTimeout
	}

	h.writeMu.Lock()
	if !h.proc.Terminate(timeout) {
		h.log.Warnf("engine did not quit within %v, killing pid %d", timeout, h.proc.Pid())
		h.proc.Kill()
	}
	h.writeMu.Unlock()

	h.wg.Wait()
}

func (h *GUIHandler) readLoop() {
	defer h.wg.Done()

	for h.IsRunning() {
		line, err := h.proc.ReadLine()
		if err != nil {
			h.log.Debugf("engine output ended: %v", err)
			h.tryStop()
			return
		}
		h.log.Tracef("<< %s", line)
		h.ProcessLine(line)
	}
}

// SendRaw writes one line to the engine.
func (h *GUIHandler) SendRaw(line string) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	h.log.Tracef(">> %s", line)
	return h.proc.WriteLine(line)
}

func (h *GUIHandler) SendUCI() error {
	return h.SendRaw("uci")
}

func (h *GUIHandler) SendDebug(on bool) error {
	if on {
		return h.SendRaw("debug on")
	}
	return h.SendRaw("debug off")
}

func (h *GUIHandler) SendIsReady() error {
	return h.SendRaw("isready")
}

func (h *GUIHandler) SendSetOption(cmd SetOption) error {
	return h.SendRaw(cmd.String())
}

func (h *GUIHandler) SendNewGame() error {
	return h.SendRaw("ucinewgame")
}

func (h *GUIHandler) SendPosition(cmd Position) error {
	return h.SendRaw(cmd.String())
}

func (h *GUIHandler) SendGo(cmd Go) error {
	return h.SendRaw(cmd.String())
}

func (h *GUIHandler) SendStop() error {
	return h.SendRaw("stop")
}

func (h *GUIHandler) SendPonderHit() error {
	return h.SendRaw("ponderhit")
}

func (h *GUIHandler) SendQuit() error {
	return h.SendRaw("quit")
}

var _ GUIListener = GUIFuncs{}
