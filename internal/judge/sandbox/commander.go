package sandbox

import (
	"bytes"
	"errors"
	"os/exec"
)

// CommandResult is the outcome of one isolate CLI invocation.
type CommandResult struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
}

// Commander runs the isolate binary. A non-zero exit is reported through
// ExitCode; err is reserved for failures to start or wait on the process.
type Commander interface {
	Run(dir, name string, args ...string) (CommandResult, error)
}

// ExecCommander runs commands with os/exec.
type ExecCommander struct{}

func (ExecCommander) Run(dir, name string, args ...string) (CommandResult, error) {
	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := CommandResult{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	return res, err
}
