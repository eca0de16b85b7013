package proc

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func needShell(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skipf("sh not available: %v", err)
	}
}

func TestExecStreamsLines(t *testing.T) {
	needShell(t)

	var mu sync.Mutex
	var out, errOut []string
	collect := func(dst *[]string) func(string) {
		return func(l string) {
			mu.Lock()
			defer mu.Unlock()
			*dst = append(*dst, l)
		}
	}

	dir := t.TempDir()
	err := Exec{}.Run(context.Background(), dir, []string{"sh", "-c", "pwd; echo one; echo warn >&2; echo two"}, collect(&out), collect(&errOut))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(out) != 3 || !strings.HasSuffix(out[0], filepath.Base(dir)) {
		t.Fatalf("stdout = %q, want working dir %s then two lines", out, dir)
	}
	if diff := cmp.Diff([]string{"one", "two"}, out[1:]); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"warn"}, errOut); diff != "" {
		t.Errorf("stderr mismatch (-want +got):\n%s", diff)
	}
}

func TestExecLargeOutputOnBothPipes(t *testing.T) {
	needShell(t)

	// well beyond a pipe buffer on each stream
	script := "i=0; while [ $i -lt 20000 ]; do echo out-$i; echo err-$i >&2; i=$((i+1)); done"
	var outN, errN int
	err := Exec{Timeout: time.Minute}.Run(context.Background(), "", []string{"sh", "-c", script},
		func(string) { outN++ }, func(string) { errN++ })
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if outN != 20000 || errN != 20000 {
		t.Errorf("got %d stdout and %d stderr lines, want 20000 each", outN, errN)
	}
}

func TestExecNonzeroExit(t *testing.T) {
	needShell(t)

	err := Exec{}.Run(context.Background(), "", []string{"sh", "-c", "exit 3"}, nil, nil)
	var ee *ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("Run error = %v, want *ExitError", err)
	}
	if ee.Program != "sh" || ee.Code != 3 {
		t.Errorf("ExitError = %+v, want program sh with code 3", ee)
	}
}

func TestExecTimeout(t *testing.T) {
	needShell(t)

	err := Exec{Timeout: 50 * time.Millisecond}.Run(context.Background(), "", []string{"sh", "-c", "exec sleep 5"}, nil, nil)
	var ee *ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("Run error = %v, want *ExitError", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run error = %v, want deadline exceeded", err)
	}
}

func TestExecDrainError(t *testing.T) {
	needShell(t)

	// one stdout line longer than maxLine
	script := "head -c 17000000 /dev/zero | tr '\\0' a; echo; echo after >&2"
	var errOut []string
	err := Exec{Timeout: time.Minute}.Run(context.Background(), "", []string{"sh", "-c", script},
		nil, func(l string) { errOut = append(errOut, l) })

	var ee *ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("Run error = %v, want *ExitError", err)
	}
	if ee.Code != 0 {
		t.Errorf("Code = %d, want 0", ee.Code)
	}
	if !errors.Is(err, bufio.ErrTooLong) {
		t.Errorf("Run error = %v, want bufio.ErrTooLong", err)
	}
	if diff := cmp.Diff([]string{"after"}, errOut); diff != "" {
		t.Errorf("stderr mismatch (-want +got):\n%s", diff)
	}
}

func TestExecMissingProgram(t *testing.T) {
	err := Exec{}.Run(context.Background(), "", []string{"/nonexistent/galleri-tool"}, nil, nil)
	var ee *ExitError
	if !errors.As(err, &ee) {
		t.Fatalf("Run error = %v, want *ExitError", err)
	}
	if ee.Program != "galleri-tool" {
		t.Errorf("Program = %q, want %q", ee.Program, "galleri-tool")
	}
}

func TestExecEmptyArgv(t *testing.T) {
	if err := (Exec{}).Run(context.Background(), "", nil, nil, nil); err == nil {
		t.Error("Run(nil argv) succeeded, want error")
	}
}

func TestRecord(t *testing.T) {
	r := &Record{Reply: func(inv Invocation) ([]string, []string, error) {
		return []string{"a", "b"}, []string{"e"}, nil
	}}

	var out, errOut []string
	if err := r.Run(context.Background(), "/x", []string{"tool", "-v"}, func(l string) { out = append(out, l) }, func(l string) { errOut = append(errOut, l) }); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if diff := cmp.Diff([]string{"a", "b"}, out); diff != "" {
		t.Errorf("stdout mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]Invocation{{Dir: "/x", Argv: []string{"tool", "-v"}}}, r.Calls()); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}
