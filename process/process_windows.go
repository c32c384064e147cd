//go:build windows

package process

import (
	"errors"
	"os/exec"
	"sync"
	"time"
	"unsafe"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/windows"
)

const stillActive = 259

var (
	modkernel32       = windows.NewLazySystemDLL("kernel32.dll")
	procPeekNamedPipe = modkernel32.NewProc("PeekNamedPipe")
)

// peekNamedPipe returns how many bytes can be read from h without
// blocking.
func peekNamedPipe(h windows.Handle) (uint32, error) {
	var avail uint32
	r1, _, e1 := procPeekNamedPipe.Call(uintptr(h), 0, 0, 0, uintptr(unsafe.Pointer(&avail)), 0)
	if r1 == 0 {
		return 0, e1
	}
	return avail, nil
}

type windowsProcess struct {
	lastError
	log *logrus.Entry

	mu       sync.Mutex
	pid      int
	process  windows.Handle
	state    State
	exitCode int
	stdout   windows.Handle
	stderr   windows.Handle

	stdinMu sync.Mutex
	stdin   windows.Handle

	readMu    sync.Mutex
	out       lineBuffer
	errOutput lineBuffer
}

func newLocal() Process {
	return &windowsProcess{
		log:     logrus.WithField("component", "process"),
		process: windows.InvalidHandle,
		stdin:   windows.InvalidHandle,
		stdout:  windows.InvalidHandle,
		stderr:  windows.InvalidHandle,
	}
}

func closeHandle(h *windows.Handle) {
	if *h != windows.InvalidHandle {
		_ = windows.CloseHandle(*h)
		*h = windows.InvalidHandle
	}
}

// inheritablePipe creates a pipe whose child end is inheritable and whose
// parent end is not.
func inheritablePipe(parentReads bool) (parent, child windows.Handle, err error) {
	sa := &windows.SecurityAttributes{InheritHandle: 1}
	sa.Length = uint32(unsafe.Sizeof(*sa))

	var r, w windows.Handle
	if err := windows.CreatePipe(&r, &w, sa, 0); err != nil {
		return windows.InvalidHandle, windows.InvalidHandle, err
	}

	parent, child = w, r
	if parentReads {
		parent, child = r, w
	}
	if err := windows.SetHandleInformation(parent, windows.HANDLE_FLAG_INHERIT, 0); err != nil {
		_ = windows.CloseHandle(r)
		_ = windows.CloseHandle(w)
		return windows.InvalidHandle, windows.InvalidHandle, err
	}
	return parent, child, nil
}

func (p *windowsProcess) Start(params Params) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pollLocked() {
		return p.fail(ErrAlreadyRunning)
	}
	// an earlier child may have exited without anyone closing its pipes
	p.closePipesLocked()
	closeHandle(&p.process)

	path, err := exec.LookPath(params.Executable)
	if err != nil {
		return p.failf("start %s: %w", params.Executable, err)
	}

	handles := make([]windows.Handle, 0, 6)
	closeAll := func() {
		for i := range handles {
			closeHandle(&handles[i])
		}
	}

	inW, inR, err := inheritablePipe(false)
	if err != nil {
		return p.failf("create stdin pipe: %w", err)
	}
	handles = append(handles, inW, inR)
	outR, outW, err := inheritablePipe(true)
	if err != nil {
		closeAll()
		return p.failf("create stdout pipe: %w", err)
	}
	handles = append(handles, outR, outW)
	errR, errW, err := inheritablePipe(true)
	if err != nil {
		closeAll()
		return p.failf("create stderr pipe: %w", err)
	}
	handles = append(handles, errR, errW)

	cmd, err := toUTF16(commandLine(path, params.Args))
	if err != nil {
		closeAll()
		return p.failf("start %s: %w", params.Executable, err)
	}
	var dir *uint16
	if params.Dir != "" {
		d, err := toUTF16(params.Dir)
		if err != nil {
			closeAll()
			return p.failf("start %s: %w", params.Executable, err)
		}
		dir = &d[0]
	}

	si := &windows.StartupInfo{
		Flags:     windows.STARTF_USESTDHANDLES,
		StdInput:  inR,
		StdOutput: outW,
		StdErr:    errW,
	}
	si.Cb = uint32(unsafe.Sizeof(*si))
	var pi windows.ProcessInformation

	err = windows.CreateProcess(nil, &cmd[0], nil, nil, true,
		windows.CREATE_NO_WINDOW|windows.CREATE_UNICODE_ENVIRONMENT, nil, dir, si, &pi)

	// the child has its copies now, or never will
	closeHandle(&handles[1])
	closeHandle(&handles[3])
	closeHandle(&handles[5])

	if err != nil {
		closeAll()
		return p.failf("start %s: %w", params.Executable, err)
	}
	_ = windows.CloseHandle(pi.Thread)

	p.pid = int(pi.ProcessId)
	p.process = pi.Process
	p.stdinMu.Lock()
	p.stdin = inW
	p.stdinMu.Unlock()
	p.stdout = outR
	p.stderr = errR
	p.state = Running
	p.exitCode = 0
	p.out.reset()
	p.errOutput.reset()

	p.log.Debugf("started %s, pid %d", path, p.pid)

	time.Sleep(startGrace)
	if !p.pollLocked() {
		return nil
	}

	switch {
	case p.state == Exited && p.exitCode == 0:
		return nil
	case p.state == Exited:
		p.closePipesLocked()
		return p.failf("process exited immediately with code %d", p.exitCode)
	default:
		p.closePipesLocked()
		return p.failf("process crashed immediately with status %#x", uint32(p.exitCode))
	}
}

func (p *windowsProcess) pollLocked() bool {
	if p.state != Running {
		return false
	}

	ev, err := windows.WaitForSingleObject(p.process, 0)
	if err != nil {
		p.log.Debugf("wait pid %d: %v", p.pid, err)
		p.state = Crashed
		p.exitCode = -1
		closeHandle(&p.process)
		return false
	}
	if ev == uint32(windows.WAIT_TIMEOUT) {
		return true
	}

	var code uint32
	if err := windows.GetExitCodeProcess(p.process, &code); err != nil {
		p.log.Debugf("exit code pid %d: %v", p.pid, err)
		p.state = Crashed
		p.exitCode = -1
		closeHandle(&p.process)
		return false
	}
	if code == stillActive {
		return true
	}
	p.recordExit(code)
	return false
}

// recordExit treats NTSTATUS error codes as crashes.
func (p *windowsProcess) recordExit(code uint32) {
	p.exitCode = int(int32(code))
	if code >= 0xC0000000 {
		p.state = Crashed
	} else {
		p.state = Exited
	}
	closeHandle(&p.process)
	p.log.Debugf("pid %d %s, code %d", p.pid, p.state, p.exitCode)
}

func (p *windowsProcess) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pollLocked()
}

func (p *windowsProcess) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *windowsProcess) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pollLocked()
	return p.state
}

func (p *windowsProcess) Terminate(timeout time.Duration) bool {
	if !p.IsRunning() {
		p.mu.Lock()
		p.closePipesLocked()
		p.mu.Unlock()
		return true
	}

	if err := p.WriteLine("quit"); err != nil {
		p.log.Debugf("sending quit: %v", err)
	}

	_, ok := p.WaitForExit(timeout)
	return ok
}

func (p *windowsProcess) Kill() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == NotStarted {
		return
	}

	if p.state == Running {
		if err := windows.TerminateProcess(p.process, 1); err != nil {
			p.log.Debugf("terminate pid %d: %v", p.pid, err)
		}
		_, _ = windows.WaitForSingleObject(p.process, windows.INFINITE)

		var code uint32
		if err := windows.GetExitCodeProcess(p.process, &code); err != nil {
			code = 1
		}
		p.recordExit(code)
		p.state = Killed
	}

	p.closePipesLocked()
}

func (p *windowsProcess) WaitForExit(timeout time.Duration) (int, bool) {
	deadline := time.Now().Add(timeout)
	for {
		p.mu.Lock()
		if p.state == NotStarted {
			p.mu.Unlock()
			return 0, false
		}
		if !p.pollLocked() {
			code := p.exitCode
			p.closePipesLocked()
			p.mu.Unlock()
			return code, true
		}
		p.mu.Unlock()

		if timeout <= 0 || !time.Now().Before(deadline) {
			return 0, false
		}
		time.Sleep(pollInterval)
	}
}

func (p *windowsProcess) WriteLine(line string) error {
	if !p.IsRunning() {
		return p.fail(ErrNotRunning)
	}

	p.stdinMu.Lock()
	defer p.stdinMu.Unlock()

	if p.stdin == windows.InvalidHandle {
		return p.fail(ErrNotRunning)
	}

	data := []byte(line + "\n")
	for len(data) > 0 {
		var n uint32
		if err := windows.WriteFile(p.stdin, data, &n, nil); err != nil {
			return p.failf("write failed: %w", err)
		}
		data = data[n:]
	}
	return nil
}

// ReadLine polls the pipe with PeekNamedPipe so that a read never blocks
// while mu is held, the same way the unix backend reads a non-blocking
// descriptor.
func (p *windowsProcess) ReadLine() (string, error) {
	p.readMu.Lock()
	defer p.readMu.Unlock()

	if line, ok := p.out.next(); ok {
		return line, nil
	}

	chunk := make([]byte, readChunkSize)
	for {
		p.mu.Lock()
		if p.stdout == windows.InvalidHandle {
			p.mu.Unlock()
			return "", p.failf("read failed: stdout closed")
		}
		p.drainStderrLocked(chunk)

		var n uint32
		avail, err := peekNamedPipe(p.stdout)
		if err == nil && avail > 0 {
			size := int(avail)
			if size > len(chunk) {
				size = len(chunk)
			}
			err = windows.ReadFile(p.stdout, chunk[:size], &n, nil)
		}
		p.mu.Unlock()

		switch {
		case err == nil && n > 0:
			p.out.write(chunk[:n])
			if line, ok := p.out.next(); ok {
				return line, nil
			}
		case err == nil:
			time.Sleep(readRetryDelay)
		case errors.Is(err, windows.ERROR_BROKEN_PIPE), errors.Is(err, windows.ERROR_HANDLE_EOF):
			return "", p.failf("process closed stdout")
		default:
			return "", p.failf("read failed: %w", err)
		}
	}
}

func (p *windowsProcess) drainStderrLocked(chunk []byte) {
	if p.stderr == windows.InvalidHandle {
		return
	}
	for {
		avail, err := peekNamedPipe(p.stderr)
		if err != nil {
			closeHandle(&p.stderr)
			break
		}
		if avail == 0 {
			break
		}
		size := int(avail)
		if size > len(chunk) {
			size = len(chunk)
		}
		var n uint32
		if err := windows.ReadFile(p.stderr, chunk[:size], &n, nil); err != nil || n == 0 {
			break
		}
		p.errOutput.write(chunk[:n])
	}
	for {
		line, ok := p.errOutput.next()
		if !ok {
			break
		}
		p.log.Debugf("stderr: %s", line)
	}
}

func (p *windowsProcess) CanRead() bool {
	if p.out.hasLine() {
		return true
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stdout == windows.InvalidHandle {
		return false
	}
	avail, err := peekNamedPipe(p.stdout)
	return err == nil && avail > 0
}

func (p *windowsProcess) closePipesLocked() {
	p.stdinMu.Lock()
	closeHandle(&p.stdin)
	p.stdinMu.Unlock()

	closeHandle(&p.stdout)
	if p.stderr != windows.InvalidHandle {
		if rest := p.errOutput.rest(); rest != "" {
			p.log.Debugf("stderr: %s", rest)
		}
	}
	closeHandle(&p.stderr)
}
