package proc

import (
	"context"
	"slices"
	"sync"
)

// Invocation is one recorded call to Record.Run.
type Invocation struct {
	Dir  string
	Argv []string
}

// Record is a Runner for tests. It remembers every invocation and answers
// with the output returned by Reply, if set.
type Record struct {
	Reply func(inv Invocation) (stdout []string, stderr []string, err error)

	mu    sync.Mutex
	calls []Invocation
}

// Run implements Runner.
func (r *Record) Run(_ context.Context, dir string, argv []string, stdout, stderr func(string)) error {
	inv := Invocation{Dir: dir, Argv: slices.Clone(argv)}
	r.mu.Lock()
	r.calls = append(r.calls, inv)
	r.mu.Unlock()

	if r.Reply == nil {
		return nil
	}

	out, errOut, err := r.Reply(inv)
	for _, l := range out {
		if stdout != nil {
			stdout(l)
		}
	}
	for _, l := range errOut {
		if stderr != nil {
			stderr(l)
		}
	}
	return err
}

// Calls returns the invocations seen so far.
func (r *Record) Calls() []Invocation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.calls)
}
