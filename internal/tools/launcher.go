package tools

import (
	"io"
	"os/exec"
)

// Child is a running subprocess the caller must reap.
type Child interface {
	Wait() error
	Kill() error
}

// Launcher starts subprocesses for runtime adapters. The exec-backed
// implementation is swapped out in tests.
type Launcher interface {
	Start(name string, args ...string) (Child, error)
}

// ExecLauncher starts commands on the local host, wiring their output to the
// given writers.
type ExecLauncher struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (l ExecLauncher) Start(name string, args ...string) (Child, error) {
	cmd := exec.Command(name, args...)
	cmd.Stdout = l.Stdout
	cmd.Stderr = l.Stderr
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return execChild{cmd}, nil
}

type execChild struct {
	cmd *exec.Cmd
}

func (c execChild) Wait() error { return c.cmd.Wait() }

func (c execChild) Kill() error { return c.cmd.Process.Kill() }
