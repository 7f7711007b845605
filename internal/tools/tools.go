package tools

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"flutterstrap/internal/runner"
)

// ToolInfo captures availability and version details for a host tool.
type ToolInfo struct {
	Name      string `json:"name"`
	Path      string `json:"path,omitempty"`
	Version   string `json:"version,omitempty"`
	Available bool   `json:"available"`
	Error     string `json:"error,omitempty"`
}

var versionArgs = map[string][]string{
	"git":    {"--version"},
	"java":   {"-version"},
	"winget": {"--version"},
	"tar":    {"--version"},
}

// Probe discovers availability and version information for the named host
// tools. The probes run concurrently and never fail the caller.
func Probe(ctx context.Context, env Env, names []string) map[string]ToolInfo {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var mu sync.Mutex
	result := make(map[string]ToolInfo, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			info := probeOne(gctx, env, name)
			mu.Lock()
			result[name] = info
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return result
}

func probeOne(ctx context.Context, env Env, name string) ToolInfo {
	path, err := env.lookPath(name)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) {
			return ToolInfo{Name: name, Available: false, Error: "not found"}
		}
		return ToolInfo{Name: name, Available: false, Error: err.Error()}
	}

	args, ok := versionArgs[name]
	if !ok {
		return ToolInfo{Name: name, Path: path, Available: true}
	}
	res, err := env.runner().Run(ctx, path, args, runner.RunOptions{})
	if err != nil {
		return ToolInfo{Name: name, Path: path, Available: true, Error: err.Error()}
	}
	// java prints its version banner on stderr.
	out := strings.TrimSpace(string(res.Stdout))
	if out == "" {
		out = strings.TrimSpace(string(res.Stderr))
	}
	return ToolInfo{Name: name, Path: path, Version: firstLine(out), Available: true}
}
