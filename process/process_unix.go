//go:build unix

package process

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

type unixProcess struct {
	lastError
	log *logrus.Entry

	// mu guards the fields below it, including the stdout and stderr
	// descriptors. -1 marks a closed descriptor.
	mu       sync.Mutex
	pid      int
	state    State
	exitCode int
	stdout   int
	stderr   int

	// stdinMu serializes writes and guards stdin.
	stdinMu sync.Mutex
	stdin   int

	readMu    sync.Mutex
	out       lineBuffer
	errOutput lineBuffer
}

func newLocal() Process {
	return &unixProcess{
		log:    logrus.WithField("component", "process"),
		stdin:  -1,
		stdout: -1,
		stderr: -1,
	}
}

// pipe returns a close-on-exec pipe. ForkLock keeps a concurrent fork from
// inheriting the descriptors before the flag is set.
func pipe() (r, w int, err error) {
	var p [2]int
	syscall.ForkLock.RLock()
	defer syscall.ForkLock.RUnlock()

	if err := unix.Pipe(p[:]); err != nil {
		return -1, -1, err
	}
	unix.CloseOnExec(p[0])
	unix.CloseOnExec(p[1])
	return p[0], p[1], nil
}

func setNonblocking(fd int) error {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return err
	}
	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags|unix.O_NONBLOCK)
	return err
}

func closeFD(fd *int) {
	if *fd >= 0 {
		_ = unix.Close(*fd)
		*fd = -1
	}
}

func (p *unixProcess) Start(params Params) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pollLocked() {
		return p.fail(ErrAlreadyRunning)
	}
	// an earlier child may have exited without anyone closing its pipes
	p.closePipesLocked()

	path, err := exec.LookPath(params.Executable)
	if err != nil {
		return p.failf("start %s: %w", params.Executable, err)
	}

	var fds [6]int
	for i := range fds {
		fds[i] = -1
	}
	closeAll := func() {
		for i := range fds {
			closeFD(&fds[i])
		}
	}
	for i := 0; i < len(fds); i += 2 {
		if fds[i], fds[i+1], err = pipe(); err != nil {
			closeAll()
			return p.failf("create pipe: %w", err)
		}
	}
	inR, inW, outR, outW, errR, errW := fds[0], fds[1], fds[2], fds[3], fds[4], fds[5]

	childFiles := []*os.File{
		os.NewFile(uintptr(inR), "stdin"),
		os.NewFile(uintptr(outW), "stdout"),
		os.NewFile(uintptr(errW), "stderr"),
	}
	argv := append([]string{params.Executable}, params.Args...)
	proc, err := os.StartProcess(path, argv, &os.ProcAttr{Dir: params.Dir, Files: childFiles})

	// the child has its copies now, or never will
	for _, f := range childFiles {
		_ = f.Close()
	}
	fds[0], fds[3], fds[5] = -1, -1, -1

	if err != nil {
		closeAll()
		return p.failf("start %s: %w", params.Executable, err)
	}

	p.pid = proc.Pid
	_ = proc.Release()

	p.stdinMu.Lock()
	p.stdin = inW
	p.stdinMu.Unlock()
	p.stdout = outR
	p.stderr = errR
	p.state = Running
	p.exitCode = 0
	p.out.reset()
	p.errOutput.reset()

	if err := setNonblocking(outR); err != nil {
		p.killLocked()
		return p.failf("set stdout non-blocking: %w", err)
	}
	if err := setNonblocking(errR); err != nil {
		p.log.Debugf("stderr stays blocking: %v", err)
		closeFD(&p.stderr)
	}

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
		return p.failf("process terminated immediately by signal %d", p.exitCode)
	}
}

// pollLocked probes the child without blocking and records its exit.
func (p *unixProcess) pollLocked() bool {
	if p.state != Running {
		return false
	}

	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(p.pid, &ws, unix.WNOHANG, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			p.log.Debugf("wait4 pid %d: %v", p.pid, err)
			p.state = Crashed
			p.exitCode = -1
			return false
		}
		if wpid == p.pid {
			p.recordExit(ws)
			return false
		}
		return true
	}
}

func (p *unixProcess) recordExit(ws unix.WaitStatus) {
	switch {
	case ws.Exited():
		p.state = Exited
		p.exitCode = ws.ExitStatus()
	case ws.Signaled():
		p.state = Crashed
		p.exitCode = int(ws.Signal())
	default:
		p.state = Crashed
		p.exitCode = -1
	}
	p.log.Debugf("pid %d %s, code %d", p.pid, p.state, p.exitCode)
}

func (p *unixProcess) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pollLocked()
}

func (p *unixProcess) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *unixProcess) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pollLocked()
	return p.state
}

func (p *unixProcess) Terminate(timeout time.Duration) bool {
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

func (p *unixProcess) Kill() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.killLocked()
}

func (p *unixProcess) killLocked() {
	if p.state == NotStarted {
		return
	}

	if p.state == Running {
		if err := unix.Kill(p.pid, unix.SIGKILL); err != nil {
			p.log.Debugf("kill pid %d: %v", p.pid, err)
		}

		var ws unix.WaitStatus
		for {
			_, err := unix.Wait4(p.pid, &ws, 0, nil)
			if errors.Is(err, unix.EINTR) {
				continue
			}
			if err != nil {
				p.state = Killed
				p.exitCode = int(unix.SIGKILL)
			} else {
				p.recordExit(ws)
				if ws.Signaled() && ws.Signal() == unix.SIGKILL {
					p.state = Killed
				}
			}
			break
		}
	}

	p.closePipesLocked()
}

func (p *unixProcess) WaitForExit(timeout time.Duration) (int, bool) {
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

func (p *unixProcess) WriteLine(line string) error {
	if !p.IsRunning() {
		return p.fail(ErrNotRunning)
	}

	p.stdinMu.Lock()
	defer p.stdinMu.Unlock()

	if p.stdin < 0 {
		return p.fail(ErrNotRunning)
	}

	data := []byte(line + "\n")
	for len(data) > 0 {
		n, err := unix.Write(p.stdin, data)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return p.failf("write failed: %w", err)
		}
		data = data[n:]
	}
	return nil
}

func (p *unixProcess) ReadLine() (string, error) {
	p.readMu.Lock()
	defer p.readMu.Unlock()

	if line, ok := p.out.next(); ok {
		return line, nil
	}

	chunk := make([]byte, readChunkSize)
	for {
		p.mu.Lock()
		if p.stdout < 0 {
			p.mu.Unlock()
			return "", p.failf("read failed: stdout closed")
		}
		p.drainStderrLocked(chunk)
		n, err := unix.Read(p.stdout, chunk)
		p.mu.Unlock()

		switch {
		case err == nil && n > 0:
			p.out.write(chunk[:n])
			if line, ok := p.out.next(); ok {
				return line, nil
			}
		case err == nil:
			return "", p.failf("process closed stdout")
		case errors.Is(err, unix.EINTR):
		case errors.Is(err, unix.EAGAIN), errors.Is(err, unix.EWOULDBLOCK):
			time.Sleep(readRetryDelay)
		default:
			return "", p.failf("read failed: %w", err)
		}
	}
}

// drainStderrLocked logs whatever the child has written to stderr.
func (p *unixProcess) drainStderrLocked(chunk []byte) {
	if p.stderr < 0 {
		return
	}
	for {
		n, err := unix.Read(p.stderr, chunk)
		if n <= 0 || err != nil {
			if err == nil {
				closeFD(&p.stderr)
			}
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

func (p *unixProcess) CanRead() bool {
	if p.out.hasLine() {
		return true
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stdout < 0 {
		return false
	}
	fds := []unix.PollFd{{Fd: int32(p.stdout), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 0)
	return err == nil && n > 0 && fds[0].Revents&unix.POLLIN != 0
}

func (p *unixProcess) closePipesLocked() {
	p.stdinMu.Lock()
	closeFD(&p.stdin)
	p.stdinMu.Unlock()

	closeFD(&p.stdout)
	if p.stderr >= 0 {
		if rest := p.errOutput.rest(); rest != "" {
			p.log.Debugf("stderr: %s", rest)
		}
	}
	closeFD(&p.stderr)
}
