package uci

import (
	"bufio"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

const maxLineLength = 1024 * 1024

// EngineListener receives the controller's commands. Methods run on the
// handler's reader goroutine and must not call Stop.
type EngineListener interface {
	UCI()
	Debug(cmd Debug)
	IsReady()
	SetOption(cmd SetOption)
	NewGame()
	Position(cmd Position)
	Go(cmd Go)
	Stop()
	PonderHit()
	Quit()
}

// EngineFuncs is an EngineListener built from optional funcs. Nil fields
// ignore their command.
type EngineFuncs struct {
	OnUCI       func()
	OnDebug     func(Debug)
	OnIsReady   func()
	OnSetOption func(SetOption)
	OnNewGame   func()
	OnPosition  func(Position)
	OnGo        func(Go)
	OnStop      func()
	OnPonderHit func()
	OnQuit      func()
}

func (f EngineFuncs) UCI() {
	if f.OnUCI != nil {
		f.OnUCI()
	}
}

func (f EngineFuncs) Debug(cmd Debug) {
	if f.OnDebug != nil {
		f.OnDebug(cmd)
	}
}

func (f EngineFuncs) IsReady() {
	if f.OnIsReady != nil {
		f.OnIsReady()
	}
}

func (f EngineFuncs) SetOption(cmd SetOption) {
	if f.OnSetOption != nil {
		f.OnSetOption(cmd)
	}
}

func (f EngineFuncs) NewGame() {
	if f.OnNewGame != nil {
		f.OnNewGame()
	}
}

func (f EngineFuncs) Position(cmd Position) {
	if f.OnPosition != nil {
		f.OnPosition(cmd)
	}
}

func (f EngineFuncs) Go(cmd Go) {
	if f.OnGo != nil {
		f.OnGo(cmd)
	}
}

func (f EngineFuncs) Stop() {
	if f.OnStop != nil {
		f.OnStop()
	}
}

func (f EngineFuncs) PonderHit() {
	if f.OnPonderHit != nil {
		f.OnPonderHit()
	}
}

func (f EngineFuncs) Quit() {
	if f.OnQuit != nil {
		f.OnQuit()
	}
}

// EngineHandler is the engine end of the protocol: it reads commands from
// in and writes replies to out.
type EngineHandler struct {
	dispatcher

	in       io.Reader
	listener EngineListener

	outMu sync.Mutex
	out   *bufio.Writer

	pumpOnce sync.Once
	lines    chan string

	lifeMu sync.Mutex
	stop   chan struct{}
}

func NewEngineHandler(in io.Reader, out io.Writer, l EngineListener) *EngineHandler {
	h := &EngineHandler{
		in:       in,
		listener: l,
		out:      bufio.NewWriter(out),
		lines:    make(chan string),
	}

	h.dispatcher.init(logrus.WithField("component", "uci-engine"), map[string]builtinFunc{
		"uci":        func([]string) error { l.UCI(); return nil },
		"isready":    func([]string) error { l.IsReady(); return nil },
		"ucinewgame": func([]string) error { l.NewGame(); return nil },
		"stop":       func([]string) error { l.Stop(); return nil },
		"ponderhit":  func([]string) error { l.PonderHit(); return nil },
		"quit":       func([]string) error { l.Quit(); return nil },
		"debug": func(tokens []string) error {
			cmd, err := ParseDebug(tokens)
			if err != nil {
				return err
			}
			l.Debug(cmd)
			return nil
		},
		"setoption": func(tokens []string) error {
			cmd, err := ParseSetOption(tokens)
			if err != nil {
				return err
			}
			l.SetOption(cmd)
			return nil
		},
		"position": func(tokens []string) error {
			cmd, err := ParsePosition(tokens)
			if err != nil {
				return err
			}
			l.Position(cmd)
			return nil
		},
		"go": func(tokens []string) error {
			cmd, err := ParseGo(tokens)
			if err != nil {
				return err
			}
			l.Go(cmd)
			return nil
		},
	})

	return h
}

// Start launches the reader goroutine. It returns ErrAlreadyRunning,
// and does nothing else, when the handler is already running.
func (h *EngineHandler) Start() error {
	h.lifeMu.Lock()
	defer h.lifeMu.Unlock()

	if !h.tryStart() {
		return ErrAlreadyRunning
	}

	h.pumpOnce.Do(func() {
		go h.pump()
	})

	h.stop = make(chan struct{})
	h.wg.Add(1)
	go h.readLoop(h.stop)

	return nil
}

// Stop ends the reader goroutine and waits for it. No callback runs after
// Stop returns. Input read but not yet dispatched is kept for the next
// Start.
func (h *EngineHandler) Stop() {
	h.lifeMu.Lock()
	if h.tryStop() {
		close(h.stop)
	}
	h.lifeMu.Unlock()

	h.wg.Wait()
}

// pump is the only reader of h.in. It lives until the input ends, so a
// blocked read never holds up Stop.
func (h *EngineHandler) pump() {
	defer close(h.lines)

	scanner := bufio.NewScanner(h.in)
	scanner.Buffer(make([]byte, 64*1024), maxLineLength)
	for scanner.Scan() {
		h.lines <- scanner.Text()
	}
	if err := scanner.Err(); err != nil {
		h.log.Errorf("reading input: %v", err)
	}
}

func (h *EngineHandler) readLoop(stop <-chan struct{}) {
	defer h.wg.Done()

	for {
		select {
		case <-stop:
			return
		case line, ok := <-h.lines:
			if !ok {
				h.log.Debug("input closed")
				h.tryStop()
				return
			}
			h.log.Tracef("<< %s", line)
			h.ProcessLine(line)
		}
	}
}

// SendRaw writes one line and flushes it.
func (h *EngineHandler) SendRaw(line string) error {
	h.outMu.Lock()
	defer h.outMu.Unlock()

	h.log.Tracef(">> %s", line)
	if _, err := h.out.WriteString(line); err != nil {
		return err
	}
	if err := h.out.WriteByte('\n'); err != nil {
		return err
	}
	return h.out.Flush()
}

func (h *EngineHandler) SendID(id ID) error {
	if err := h.SendRaw("id name " + id.Name); err != nil {
		return err
	}
	return h.SendRaw("id author " + id.Author)
}

func (h *EngineHandler) SendOption(opt Option) error {
	return h.SendRaw(opt.String())
}

func (h *EngineHandler) SendUCIOk() error {
	return h.SendRaw("uciok")
}

func (h *EngineHandler) SendReadyOk() error {
	return h.SendRaw("readyok")
}

func (h *EngineHandler) SendBestMove(bm BestMove) error {
	return h.SendRaw(bm.String())
}

func (h *EngineHandler) SendInfo(info SearchInfo) error {
	return h.SendRaw(info.String())
}

func (h *EngineHandler) SendInfoString(text string) error {
	return h.SendRaw("info string " + text)
}

var _ EngineListener = EngineFuncs{}
