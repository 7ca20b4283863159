package testutil

import (
	"errors"
	"io"
	"sync"

	"github.com/brianly1003/lanterm/internal/terminal"
)

// FakeProcess is an in-memory terminal.Process. Output written with Emit is
// returned by Read; input written by the code under test is kept for
// inspection.
type FakeProcess struct {
	pid    int
	out    *io.PipeReader
	outW   *io.PipeWriter
	exited chan struct{}

	mu      sync.Mutex
	input   []byte
	cols    uint16
	rows    uint16
	killed  bool
	closed  bool
	resizes int

	exitOnce sync.Once
}

// NewFakeProcess creates a running FakeProcess.
func NewFakeProcess(pid int) *FakeProcess {
	r, w := io.Pipe()
	return &FakeProcess{pid: pid, out: r, outW: w, exited: make(chan struct{})}
}

// Emit makes s available to Read as PTY output. It blocks until read.
func (p *FakeProcess) Emit(s string) error {
	_, err := p.outW.Write([]byte(s))
	return err
}

// EmitBytes makes raw bytes available to Read.
func (p *FakeProcess) EmitBytes(b []byte) error {
	_, err := p.outW.Write(b)
	return err
}

// Exit simulates the shell exiting on its own.
func (p *FakeProcess) Exit() {
	p.exitOnce.Do(func() {
		_ = p.outW.Close()
		close(p.exited)
	})
}

func (p *FakeProcess) Read(b []byte) (int, error) {
	return p.out.Read(b)
}

func (p *FakeProcess) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, errors.New("fake process closed")
	}
	p.input = append(p.input, b...)
	return len(b), nil
}

// Resize records the geometry.
func (p *FakeProcess) Resize(cols, rows uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cols, p.rows = cols, rows
	p.resizes++
	return nil
}

// Kill marks the process killed and makes it exit.
func (p *FakeProcess) Kill() error {
	p.mu.Lock()
	p.killed = true
	p.mu.Unlock()
	p.Exit()
	return nil
}

// Wait blocks until the process exits.
func (p *FakeProcess) Wait() error {
	<-p.exited
	return nil
}

// Pid returns the fake pid.
func (p *FakeProcess) Pid() int { return p.pid }

// Close closes the fake PTY.
func (p *FakeProcess) Close() error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.out.Close()
}

// Input returns everything written to the process.
func (p *FakeProcess) Input() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return string(p.input)
}

// Size returns the last geometry passed to Resize.
func (p *FakeProcess) Size() (cols, rows uint16) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cols, p.rows
}

// Killed reports whether Kill was called.
func (p *FakeProcess) Killed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}

// FakeSpawner hands out FakeProcesses and remembers the options it saw.
type FakeSpawner struct {
	mu      sync.Mutex
	procs   []*FakeProcess
	options []terminal.SpawnOptions
	Err     error
}

// Spawn implements terminal.Spawner.
func (s *FakeSpawner) Spawn(opts terminal.SpawnOptions) (terminal.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	p := NewFakeProcess(1000 + len(s.procs))
	s.procs = append(s.procs, p)
	s.options = append(s.options, opts)
	return p, nil
}

// Last returns the most recently spawned process and its options.
func (s *FakeSpawner) Last() (*FakeProcess, terminal.SpawnOptions) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.procs) == 0 {
		return nil, terminal.SpawnOptions{}
	}
	return s.procs[len(s.procs)-1], s.options[len(s.options)-1]
}

// Count returns how many processes were spawned.
func (s *FakeSpawner) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}
