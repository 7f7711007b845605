// Package runnertest provides a recording Runner for tests.
package runnertest

import (
	"context"
	"io"
	"strings"
	"sync"

	"flutterstrap/internal/runner"
)

// Call records one invocation.
type Call struct {
	Command string
	Args    []string
	Dir     string
	Env     []string
	Stdin   string
}

// Line returns the command line joined by spaces.
func (c Call) Line() string {
	return strings.TrimSpace(c.Command + " " + strings.Join(c.Args, " "))
}

// Handler scripts the outcome of a call. Side effects such as creating marker
// files happen inside the handler.
type Handler func(call Call) (runner.RunResult, error)

// Fake dispatches calls to handlers keyed by command base name.
type Fake struct {
	mu       sync.Mutex
	calls    []Call
	handlers map[string]Handler
}

func New() *Fake {
	return &Fake{handlers: map[string]Handler{}}
}

// Handle registers h for commands whose base name (without extension) is name.
func (f *Fake) Handle(name string, h Handler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[name] = h
}

func (f *Fake) Run(ctx context.Context, command string, args []string, opts runner.RunOptions) (runner.RunResult, error) {
	call := Call{
		Command: command,
		Args:    append([]string(nil), args...),
		Dir:     opts.Dir,
		Env:     append([]string(nil), opts.Env...),
	}
	if opts.Stdin != nil {
		data, _ := io.ReadAll(opts.Stdin)
		call.Stdin = string(data)
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	h := f.handlers[BaseName(command)]
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return runner.RunResult{}, err
	}
	if h == nil {
		return runner.RunResult{}, nil
	}
	result, err := h(call)
	if err != nil {
		return result, runner.CommandError(command, args, result, err)
	}
	return result, nil
}

// Calls returns a copy of the recorded invocations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded invocations of name.
func (f *Fake) CallsTo(name string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if BaseName(c.Command) == name {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets recorded calls and keeps handlers.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

// BaseName strips directories and a Windows script or exe extension.
func BaseName(command string) string {
	if i := strings.LastIndexAny(command, `/\`); i >= 0 {
		command = command[i+1:]
	}
	for _, ext := range []string{".bat", ".exe", ".cmd"} {
		command = strings.TrimSuffix(command, ext)
	}
	return command
}

var _ runner.Runner = (*Fake)(nil)
