// Package proc runs external command-line tools and streams their output.
package proc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"k8s.io/klog/v2"
)

// maxLine bounds a single line of tool output.
const maxLine = 16 * 1024 * 1024

// Runner launches a program in dir and delivers each line written to stdout
// and stderr to the matching callback. Callbacks may be nil. Run blocks until
// the program exits.
type Runner interface {
	Run(ctx context.Context, dir string, argv []string, stdout, stderr func(line string)) error
}

// ExitError reports a tool that exited nonzero or whose output could not be read.
type ExitError struct {
	Program string
	Code    int
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed with exit code %d: %v", e.Program, e.Code, e.Err)
	}
	return fmt.Sprintf("%s failed with exit code %d", e.Program, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// Exec runs programs with os/exec.
type Exec struct {
	// Timeout kills the program after this long. Zero waits forever.
	Timeout time.Duration
}

// Run implements Runner.
func (e Exec) Run(ctx context.Context, dir string, argv []string, stdout, stderr func(string)) error {
	if len(argv) == 0 {
		return errors.New("run: empty argument list")
	}
	program := filepath.Base(argv[0])

	if e.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	klog.V(1).Infof("running %v in %s", argv, dir)
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir

	outPipe, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	errPipe, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return &ExitError{Program: program, Code: -1, Err: err}
	}

	// Both pipes are drained before Wait.
	var wg sync.WaitGroup
	drainErrs := make([]error, 2)
	for n, d := range []struct {
		r  io.Reader
		fn func(string)
	}{{outPipe, stdout}, {errPipe, stderr}} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			drainErrs[n] = drain(d.r, d.fn)
		}()
	}
	wg.Wait()

	waitErr := cmd.Wait()
	if err := ctx.Err(); err != nil {
		return &ExitError{Program: program, Code: -1, Err: err}
	}

	if waitErr != nil {
		var ee *exec.ExitError
		if errors.As(waitErr, &ee) {
			return &ExitError{Program: program, Code: ee.ExitCode()}
		}
		return &ExitError{Program: program, Code: -1, Err: waitErr}
	}

	if err := errors.Join(drainErrs...); err != nil {
		return &ExitError{Program: program, Code: 0, Err: err}
	}
	return nil
}

func drain(r io.Reader, fn func(string)) error {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), maxLine)
	for s.Scan() {
		if fn != nil {
			fn(s.Text())
		}
	}
	if err := s.Err(); err != nil {
		// discard the rest
		_, _ = io.Copy(io.Discard, r)
		return fmt.Errorf("read output: %w", err)
	}
	return nil
}
