package uci

import (
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// CommandFunc handles a line whose first token matched. tokens[0] is the
// command itself.
type CommandFunc func(tokens []string)

type builtinFunc func(tokens []string) error

// dispatcher routes tokenized lines to handlers and owns the running flag
// of the reader goroutine. The builtin table is fixed at construction.
type dispatcher struct {
	log     *logrus.Entry
	builtin map[string]builtinFunc

	mu        sync.Mutex
	custom    map[string]CommandFunc
	onUnknown CommandFunc
	onError   func(tokens []string, err error)

	running int32
	wg      sync.WaitGroup
}

func (d *dispatcher) init(log *logrus.Entry, builtin map[string]builtinFunc) {
	d.log = log
	d.builtin = builtin
	d.custom = make(map[string]CommandFunc)
}

// RegisterCommand installs fn for lines starting with command. Builtin
// commands cannot be overridden. Safe to call while the handler runs.
func (d *dispatcher) RegisterCommand(command string, fn CommandFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.custom[command] = fn
}

func (d *dispatcher) UnregisterCommand(command string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.custom, command)
}

// OnUnknownCommand sets the hook for lines nothing else handles. Without
// one, such lines are dropped.
func (d *dispatcher) OnUnknownCommand(fn CommandFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onUnknown = fn
}

// OnError sets the hook for lines a builtin command failed to parse. The
// line is skipped either way.
func (d *dispatcher) OnError(fn func(tokens []string, err error)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onError = fn
}

func (d *dispatcher) IsRunning() bool {
	return atomic.LoadInt32(&d.running) == 1
}

// Wait blocks until the reader goroutine has exited.
func (d *dispatcher) Wait() {
	d.wg.Wait()
}

// ProcessLine dispatches a single line on the calling goroutine.
func (d *dispatcher) ProcessLine(line string) {
	tokens := Tokenize(StripTrailingWhitespace(line))
	if len(tokens) == 0 {
		return
	}

	if fn, ok := d.builtin[tokens[0]]; ok {
		if err := fn(tokens); err != nil {
			d.log.Warnf("skipping '%s': %v", line, err)
			d.mu.Lock()
			onError := d.onError
			d.mu.Unlock()
			if onError != nil {
				onError(tokens, err)
			}
		}
		return
	}

	d.mu.Lock()
	fn, ok := d.custom[tokens[0]]
	onUnknown := d.onUnknown
	d.mu.Unlock()

	if ok {
		fn(tokens)
		return
	}
	if onUnknown != nil {
		onUnknown(tokens)
		return
	}
	d.log.Tracef("dropping unknown command '%s'", tokens[0])
}

func (d *dispatcher) tryStart() bool {
	return atomic.CompareAndSwapInt32(&d.running, 0, 1)
}

func (d *dispatcher) tryStop() bool {
	return atomic.CompareAndSwapInt32(&d.running, 1, 0)
}
