package analyze

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"chessuci/config"
	"chessuci/process"
	"chessuci/uci"
)

// scriptedEngine answers the handshake in memory and replies to every "go"
// with the lines produced by onGo.
type scriptedEngine struct {
	mu        sync.Mutex
	state     process.State
	written   []string
	onGo      func(cmd string) []string
	output    chan string
	exited    chan struct{}
	closeOnce sync.Once
}

func newScriptedEngine(onGo func(cmd string) []string) *scriptedEngine {
	return &scriptedEngine{
		onGo:   onGo,
		output: make(chan string, 4096),
		exited: make(chan struct{}),
	}
}

func (p *scriptedEngine) lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.written...)
}

func (p *scriptedEngine) exit() {
	p.mu.Lock()
	if p.state == process.Running {
		p.state = process.Exited
	}
	p.mu.Unlock()
	p.closeOnce.Do(func() { close(p.exited) })
}

func (p *scriptedEngine) Start(process.Params) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = process.Running
	return nil
}

func (p *scriptedEngine) IsRunning() bool { return p.State() == process.Running }

func (p *scriptedEngine) Pid() int { return 4343 }

func (p *scriptedEngine) State() process.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *scriptedEngine) Terminate(timeout time.Duration) bool {
	if p.IsRunning() {
		_ = p.WriteLine("quit")
	}
	return true
}

func (p *scriptedEngine) Kill() { p.exit() }

func (p *scriptedEngine) WaitForExit(timeout time.Duration) (int, bool) {
	select {
	case <-p.exited:
		return 0, true
	case <-time.After(timeout):
		return 0, false
	}
}

func (p *scriptedEngine) WriteLine(line string) error {
	p.mu.Lock()
	if p.state != process.Running {
		p.mu.Unlock()
		return process.ErrNotRunning
	}
	p.written = append(p.written, line)
	p.mu.Unlock()

	switch {
	case line == "uci":
		p.say("id name scripted", "uciok")
	case line == "isready":
		p.say("readyok")
	case strings.HasPrefix(line, "go"):
		p.say(p.onGo(line)...)
	case line == "quit":
		p.exit()
	}
	return nil
}

func (p *scriptedEngine) say(lines ...string) {
	for _, line := range lines {
		p.output <- line
	}
}

func (p *scriptedEngine) ReadLine() (string, error) {
	select {
	case line := <-p.output:
		return line, nil
	case <-p.exited:
		return "", io.EOF
	}
}

func (p *scriptedEngine) CanRead() bool { return len(p.output) > 0 }

func (p *scriptedEngine) LastError() string { return "" }

var _ process.Process = (*scriptedEngine)(nil)

func startScripted(t *testing.T, onGo func(cmd string) []string) (*Analyzer, *scriptedEngine) {
	t.Helper()

	p := newScriptedEngine(onGo)
	a := NewWithProcess(config.Engine{Name: "scripted", Path: "scripted"}, p)
	t.Cleanup(a.Close)

	if err := a.Start(testContext(t)); err != nil {
		t.Fatalf("start: %v", err)
	}
	return a, p
}

func TestSearchKeepsFinalInfo(t *testing.T) {
	// arrange
	const depth = 300
	a, _ := startScripted(t, func(string) []string {
		var out []string
		for d := 1; d <= depth; d++ {
			out = append(out, fmt.Sprintf("info depth %d score cp %d nodes %d pv e2e4 e7e5", d, d, d*1000))
		}
		return append(out, "bestmove e2e4 ponder e7e5")
	})

	for i := 0; i < 20; i++ {
		// act
		res, err := a.Search(testContext(t), uci.Position{FEN: uci.StartPos}, Options{Depth: depth})

		// assert
		if err != nil {
			t.Fatal(err)
		}
		if got := res.Top().Depth; got != depth {
			t.Fatalf("run %d: top depth, want: %d got: %d", i, depth, got)
		}
		if got := res.Top().CP; got != depth {
			t.Fatalf("run %d: top cp, want: %d got: %d", i, depth, got)
		}
	}
}

func TestSearchMultiPV(t *testing.T) {
	// arrange
	a, p := startScripted(t, func(string) []string {
		return []string{
			"info depth 1 multipv 1 score cp 30 pv e2e4",
			"info depth 1 multipv 2 score cp 20 pv d2d4",
			"info depth 1 multipv 3 score cp 10 pv g1f3",
			"bestmove e2e4",
		}
	})
	opts := OptionsFrom(config.Analysis{Depth: 1, MultiPV: 3})

	// act
	res, err := a.Search(testContext(t), uci.Position{FEN: uci.StartPos}, opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := a.Search(testContext(t), uci.Position{FEN: uci.StartPos}, opts); err != nil {
		t.Fatal(err)
	}

	// assert
	if len(res.Evals) != 3 {
		t.Fatalf("evals, want: 3 got: %+v", res.Evals)
	}
	for i, want := range []string{"e2e4", "d2d4", "g1f3"} {
		if got := res.Evals[i]; got.MultiPV != i+1 || got.UCIMove != want {
			t.Errorf("eval %d: %+v", i, got)
		}
	}

	var sent []string
	for _, line := range p.lines() {
		if strings.HasPrefix(line, "setoption") || strings.HasPrefix(line, "go") {
			sent = append(sent, line)
		}
	}
	want := []string{"setoption name MultiPV value 3", "go depth 1", "go depth 1"}
	if strings.Join(sent, "|") != strings.Join(want, "|") {
		t.Errorf("\nwant: %q\ngot:  %q", want, sent)
	}
}

func TestSearchDefaultMultiPVSendsNothing(t *testing.T) {
	a, p := startScripted(t, func(string) []string {
		return []string{"info depth 1 score cp 5 pv e2e4", "bestmove e2e4"}
	})

	if _, err := a.Search(testContext(t), uci.Position{FEN: uci.StartPos}, OptionsFrom(config.Analysis{Depth: 1, MultiPV: 1})); err != nil {
		t.Fatal(err)
	}

	for _, line := range p.lines() {
		if strings.HasPrefix(line, "setoption") {
			t.Errorf("unexpected '%s'", line)
		}
	}
}
