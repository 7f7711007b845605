// Package bootstrap runs the provisioning steps in order. Every step is a
// no-op when its marker already exists, so a run can be repeated safely.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"runtime"
	"strings"

	"flutterstrap/internal/config"
	"flutterstrap/internal/editor"
	"flutterstrap/internal/fetch"
	"flutterstrap/internal/logx"
	"flutterstrap/internal/paths"
	"flutterstrap/internal/runner"
	"flutterstrap/internal/tools"
)

const (
	StepPrereqs         = "prereqs"
	StepFlutter         = tools.ComponentFlutter
	StepCmdlineTools    = tools.ComponentCmdlineTools
	StepAndroidPackages = tools.ComponentAndroidPackages
	StepFlutterConfig   = tools.ComponentFlutterConfig
	StepMSVC            = tools.ComponentMSVC
	StepEditor          = "editor"
)

// StepNames lists the steps in execution order.
func StepNames() []string {
	return []string{
		StepPrereqs,
		StepFlutter,
		StepCmdlineTools,
		StepAndroidPackages,
		StepFlutterConfig,
		StepMSVC,
		StepEditor,
	}
}

// Reporter receives step events for console rendering.
type Reporter interface {
	Start(step, detail string)
	Progress(step string, done, total int64)
	Finish(step string, st tools.Status, err error)
}

type nopReporter struct{}

func (nopReporter) Start(string, string)               {}
func (nopReporter) Progress(string, int64, int64)      {}
func (nopReporter) Finish(string, tools.Status, error) {}

// Options carries every collaborator of a run. Zero values fall back to the
// host implementations.
type Options struct {
	Paths      paths.ProjectPaths
	Config     config.Config
	Runner     runner.Runner
	HTTPClient *http.Client
	LookPath   func(string) (string, error)
	Getenv     func(string) string
	GOOS       string
	GOARCH     string
	Logger     *log.Logger
	Reporter   Reporter
	// EditorMode overrides Config.Editor.Mode when set.
	EditorMode string
	UserAgent  string
}

// Result summarises a run for console and JSON output.
type Result struct {
	Project     string         `json:"project"`
	Steps       []tools.Status `json:"steps"`
	EditorFiles []string       `json:"editor_files,omitempty"`
	NextSteps   []string       `json:"next_steps,omitempty"`
}

// Failed returns the first step that reported an error, if any.
func (r Result) Failed() (tools.Status, bool) {
	for _, st := range r.Steps {
		if st.Error != "" {
			return st, true
		}
	}
	return tools.Status{}, false
}

// Run executes the steps in StepNames order and stops at the first failure.
// Partial state on disk is left for the next run to pick up.
func Run(ctx context.Context, opts Options) (Result, error) {
	rep := opts.Reporter
	if rep == nil {
		rep = nopReporter{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logx.Discard()
	}

	res := Result{Project: opts.Paths.Root}
	if err := opts.Paths.EnsureTooling(); err != nil {
		return res, err
	}

	env := tools.Env{
		Paths:    opts.Paths,
		Config:   opts.Config,
		Runner:   opts.Runner,
		Fetcher:  fetch.Fetcher{Client: opts.HTTPClient, Runner: opts.Runner, UserAgent: opts.UserAgent},
		LookPath: opts.LookPath,
		Getenv:   opts.Getenv,
		GOOS:     opts.GOOS,
		GOARCH:   opts.GOARCH,
		Logger:   logger,
	}
	goos := env.GOOS
	if goos == "" {
		goos = runtime.GOOS
	}

	logger.Printf("bootstrap: project %s", opts.Paths.Root)

	rep.Start(StepPrereqs, "git, java")
	prereqs, err := tools.EnsurePrereqs(ctx, env)
	st := mergePrereqs(prereqs, err)
	res.Steps = append(res.Steps, st)
	rep.Finish(StepPrereqs, st, err)
	if err != nil {
		return res, stepError(logger, StepPrereqs, err)
	}

	steps := []struct {
		name   string
		detail string
		run    func(context.Context, tools.Env) (tools.Status, error)
	}{
		{StepFlutter, flutterDetail(opts.Config), tools.EnsureFlutter},
		{StepCmdlineTools, "cmdline-tools " + opts.Config.Android.CmdlineTools, tools.EnsureCmdlineTools},
		{StepAndroidPackages, strings.Join(opts.Config.AndroidPackages(), " "), tools.EnsureAndroidPackages},
		{StepFlutterConfig, "config --android-sdk, precache", tools.ConfigureFlutter},
		{StepMSVC, opts.Config.MSVC.WingetID, tools.EnsureMSVC},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		name := step.name
		stepEnv := env
		stepEnv.Progress = func(done, total int64) { rep.Progress(name, done, total) }

		rep.Start(name, step.detail)
		st, err := step.run(ctx, stepEnv)
		res.Steps = append(res.Steps, st)
		rep.Finish(name, st, err)
		if err != nil {
			return res, stepError(logger, name, err)
		}
		logger.Printf("%s: %s %s", name, st.Action, st.Version)
	}

	mode := opts.Config.Editor.Mode
	if opts.EditorMode != "" {
		mode = opts.EditorMode
	}
	rep.Start(StepEditor, mode)
	files, err := editor.Write(opts.Paths, editor.Options{Mode: mode, GOOS: goos})
	st = tools.Status{Tool: StepEditor, Path: opts.Paths.VSCodeDir, Action: tools.ActionWritten, Installed: err == nil}
	if err != nil {
		st.Action = ""
		st.Error = err.Error()
	} else {
		st.Notes = []string{mode}
	}
	res.Steps = append(res.Steps, st)
	rep.Finish(StepEditor, st, err)
	if err != nil {
		return res, stepError(logger, StepEditor, err)
	}
	res.EditorFiles = files

	res.NextSteps = tools.NextSteps(goos)
	logger.Printf("bootstrap: done")
	return res, nil
}

func stepError(logger *log.Logger, step string, err error) error {
	logger.Printf("%s: FAILED %v", step, err)
	return fmt.Errorf("%s: %w", step, err)
}

func flutterDetail(cfg config.Config) string {
	if cfg.FlutterSource() == config.SourceGit {
		if ref := strings.TrimSpace(cfg.Flutter.Ref); ref != "" {
			return "git " + ref
		}
		return "git " + cfg.Flutter.Channel
	}
	return cfg.Flutter.Version + " " + cfg.Flutter.Channel
}

// mergePrereqs folds the per-tool results into one row.
func mergePrereqs(statuses []tools.Status, err error) tools.Status {
	st := tools.Status{Tool: StepPrereqs, Action: tools.ActionPresent, Installed: err == nil}
	for _, s := range statuses {
		if s.Action == tools.ActionInstalled {
			st.Action = tools.ActionInstalled
		}
		st.Notes = append(st.Notes, s.Notes...)
	}
	if err != nil {
		st.Action = tools.ActionMissing
		st.Error = err.Error()
	}
	return st
}
