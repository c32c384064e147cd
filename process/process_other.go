//go:build !unix && !windows

package process

import "time"

type unsupportedProcess struct {
	lastError
}

func newLocal() Process {
	return &unsupportedProcess{}
}

func (p *unsupportedProcess) Start(Params) error {
	return p.fail(ErrUnsupported)
}

func (p *unsupportedProcess) IsRunning() bool { return false }
func (p *unsupportedProcess) Pid() int        { return 0 }
func (p *unsupportedProcess) State() State    { return NotStarted }

func (p *unsupportedProcess) Terminate(time.Duration) bool { return true }
func (p *unsupportedProcess) Kill()                        {}

func (p *unsupportedProcess) WaitForExit(time.Duration) (int, bool) {
	return 0, false
}

func (p *unsupportedProcess) WriteLine(string) error {
	return p.fail(ErrUnsupported)
}

func (p *unsupportedProcess) ReadLine() (string, error) {
	return "", p.fail(ErrUnsupported)
}

func (p *unsupportedProcess) CanRead() bool { return false }
