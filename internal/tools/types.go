package tools

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"runtime"

	"flutterstrap/internal/config"
	"flutterstrap/internal/fetch"
	"flutterstrap/internal/paths"
	"flutterstrap/internal/runner"
)

var (
	// ErrMissingMarker reports a component whose marker file is absent after
	// the step that should have produced it, or before a step that needs it.
	ErrMissingMarker = errors.New("missing marker")
	// ErrPrerequisite reports a host tool that is not installed.
	ErrPrerequisite = errors.New("missing prerequisite")
)

type Action string

const (
	ActionPresent   Action = "present"
	ActionInstalled Action = "installed"
	ActionSkipped   Action = "skipped"
	ActionMissing   Action = "missing"
	ActionWritten   Action = "written"
)

// Status captures the resolved state for a managed component.
type Status struct {
	Tool      string   `json:"tool"`
	Marker    string   `json:"marker,omitempty"`
	Path      string   `json:"path,omitempty"`
	Version   string   `json:"version,omitempty"`
	Installed bool     `json:"installed"`
	Skipped   bool     `json:"skipped,omitempty"`
	Action    Action   `json:"action,omitempty"`
	Error     string   `json:"error,omitempty"`
	Notes     []string `json:"notes,omitempty"`
}

// Env carries everything a step needs. Zero-valued collaborators fall back to
// the real host implementations.
type Env struct {
	Paths    paths.ProjectPaths
	Config   config.Config
	Runner   runner.Runner
	Fetcher  fetch.Fetcher
	LookPath func(string) (string, error)
	Getenv   func(string) string
	GOOS     string
	GOARCH   string
	Logger   *log.Logger
	Progress fetch.ProgressFunc
}

func (e Env) goos() string {
	if e.GOOS != "" {
		return e.GOOS
	}
	return runtime.GOOS
}

func (e Env) goarch() string {
	if e.GOARCH != "" {
		return e.GOARCH
	}
	return runtime.GOARCH
}

func (e Env) runner() runner.Runner {
	if e.Runner != nil {
		return e.Runner
	}
	return runner.CmdRunner{}
}

func (e Env) lookPath(name string) (string, error) {
	if e.LookPath != nil {
		return e.LookPath(name)
	}
	return exec.LookPath(name)
}

func (e Env) getenv(key string) string {
	if e.Getenv != nil {
		return e.Getenv(key)
	}
	return os.Getenv(key)
}

func (e Env) logger() *log.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return log.New(io.Discard, "", 0)
}

func (e Env) fetcher() fetch.Fetcher {
	f := e.Fetcher
	if f.Runner == nil {
		f.Runner = e.runner()
	}
	return f
}

func missingMarker(tool, marker, hint string) error {
	if hint == "" {
		return fmt.Errorf("%w: %s expected at %s", ErrMissingMarker, tool, marker)
	}
	return fmt.Errorf("%w: %s expected at %s (%s)", ErrMissingMarker, tool, marker, hint)
}
