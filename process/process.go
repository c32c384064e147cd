// Package process runs a child process with its standard streams attached
// to pipes and exchanges text lines with it. One backend is compiled per
// operating system; New returns it.
package process

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultTerminateTimeout is how long a graceful shutdown may take
	// before callers should escalate to Kill.
	DefaultTerminateTimeout = 3 * time.Second

	pollInterval   = 10 * time.Millisecond
	startGrace     = 10 * time.Millisecond
	readRetryDelay = time.Millisecond
	readChunkSize  = 4096
)

var (
	ErrNotRunning     = errors.New("process not running")
	ErrAlreadyRunning = errors.New("process already running")
	ErrUnsupported    = errors.New("process control is not supported on this platform")
)

// Params describes the process to start. An empty Dir inherits the
// current working directory.
type Params struct {
	Executable string
	Args       []string
	Dir        string
}

type State int

const (
	NotStarted State = iota
	Running
	Exited  // exited on its own, with any exit code
	Killed  // ended by Kill
	Crashed // ended by a signal it was not sent by Kill
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Exited:
		return "exited"
	case Killed:
		return "killed"
	case Crashed:
		return "crashed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Process is a child process speaking a line protocol on stdin/stdout.
// Its stderr is drained and logged, never parsed.
//
// Start, Terminate, Kill and the query methods are safe to call from any
// goroutine. ReadLine is meant for a single reader; WriteLine calls are
// serialized.
type Process interface {
	// Start spawns the process. It fails without side effects when a
	// process is already running, and fails when the process dies with a
	// non-zero code or a signal right after starting.
	Start(params Params) error

	// IsRunning polls the operating system without blocking. The first
	// exit it observes is cached and the state stays terminal.
	IsRunning() bool
	Pid() int
	State() State

	// Terminate writes "quit" and polls for the exit until timeout. It
	// returns false, leaving the process running, when the timeout
	// passes. A process that is not running counts as terminated.
	Terminate(timeout time.Duration) bool

	// Kill ends the process by force, reaps it and closes the pipes.
	Kill()

	// WaitForExit returns the exit code once the process has exited. A
	// zero timeout checks once. Signalled exits report the signal number.
	WaitForExit(timeout time.Duration) (int, bool)

	WriteLine(line string) error

	// ReadLine blocks until a full line is available or the output ends.
	// The line terminator, and a carriage return before it, are removed.
	ReadLine() (string, error)

	// CanRead reports, without blocking, whether ReadLine has data to
	// work with: a buffered line or unread bytes in the pipe. A closed
	// pipe with nothing left in it is not readable.
	CanRead() bool

	LastError() string
}

// New returns the process implementation for the current platform.
func New() Process {
	return newLocal()
}

// lineBuffer collects bytes read from a pipe and hands them out line by
// line.
type lineBuffer struct {
	mu  sync.Mutex
	buf []byte
}

func (b *lineBuffer) write(p []byte) {
	b.mu.Lock()
	b.buf = append(b.buf, p...)
	b.mu.Unlock()
}

func (b *lineBuffer) next() (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := bytes.IndexByte(b.buf, '\n')
	if i < 0 {
		return "", false
	}
	line := b.buf[:i]
	if n := len(line); n > 0 && line[n-1] == '\r' {
		line = line[:n-1]
	}
	s := string(line)
	b.buf = b.buf[i+1:]
	return s, true
}

func (b *lineBuffer) hasLine() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.IndexByte(b.buf, '\n') >= 0
}

// rest returns whatever is buffered without a terminator and empties the
// buffer.
func (b *lineBuffer) rest() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	s := string(b.buf)
	b.buf = nil
	return s
}

func (b *lineBuffer) reset() {
	b.mu.Lock()
	b.buf = nil
	b.mu.Unlock()
}

// lastError keeps the most recent diagnostic until the next failure.
type lastError struct {
	mu  sync.Mutex
	msg string
}

func (e *lastError) LastError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.msg
}

// fail records err as the last error and returns it.
func (e *lastError) fail(err error) error {
	e.mu.Lock()
	e.msg = err.Error()
	e.mu.Unlock()
	return err
}

func (e *lastError) failf(format string, args ...interface{}) error {
	return e.fail(fmt.Errorf(format, args...))
}
