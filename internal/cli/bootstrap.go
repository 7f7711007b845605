package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"runtime"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"flutterstrap/internal/bootstrap"
	"flutterstrap/internal/config"
	"flutterstrap/internal/logx"
	"flutterstrap/internal/paths"
	"flutterstrap/internal/tools"
	"flutterstrap/internal/tui"
)

const userAgent = "flutterstrap"

func runBootstrap(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pp, resolved, err := loadProject()
	if err != nil {
		return err
	}
	cfg := resolved.Config
	if editorMode != "" {
		cfg.Editor.Mode = editorMode
	}
	if err := validateForRun(cmd.ErrOrStderr(), cfg); err != nil {
		return err
	}

	if err := pp.EnsureTooling(); err != nil {
		return err
	}
	runLog, err := logx.Open(pp, "bootstrap", time.Now())
	if err != nil {
		return err
	}
	defer runLog.Close()
	runLog.Printf("flutterstrap: project=%s env-file=%s", pp.Root, pp.EnvFile)
	for _, key := range config.KnownKeys() {
		value, _ := cfg.Value(key)
		runLog.Printf("setting %s=%q (%s)", key, value, resolved.Origins[key])
	}

	opts := bootstrap.Options{
		Paths:     pp,
		Config:    cfg,
		Logger:    runLog.Logger,
		UserAgent: userAgent,
	}

	out := cmd.OutOrStdout()
	mode := tui.DetectMode(out, noProgress, outputJSON)

	var res bootstrap.Result
	switch mode {
	case tui.ModeTUI:
		fmt.Fprintf(out, "Project: %s\n", pp.Root)
		model := buildStepModel()
		err = tui.RunWithWork(ctx, out, model, func(ctx context.Context, send func(tea.Msg)) error {
			opts.Reporter = tui.NewStepReporter(send)
			var runErr error
			res, runErr = bootstrap.Run(ctx, opts)
			return runErr
		})
	case tui.ModePlain:
		fmt.Fprintf(out, "Project: %s\n", pp.Root)
		opts.Reporter = tui.NewPlainReporter(out)
		res, err = bootstrap.Run(ctx, opts)
	default:
		res, err = bootstrap.Run(ctx, opts)
	}

	if mode == tui.ModeJSON {
		if jsonErr := writeBootstrapJSON(out, res, runLog.Path, err); jsonErr != nil {
			return jsonErr
		}
		return err
	}
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "log: %s\n", runLog.Path)
		return err
	}

	printNextSteps(out, pp, res)
	return nil
}

// validateForRun prints warnings and fails on configuration errors before
// anything is downloaded.
func validateForRun(w io.Writer, cfg config.Config) error {
	results := cfg.Validate(
		tools.FlutterURLData(cfg, runtime.GOOS, runtime.GOARCH),
		tools.CmdlineToolsURLData(cfg, runtime.GOOS, runtime.GOARCH),
	)
	for _, r := range results {
		if r.Level == "warning" {
			fmt.Fprintf(w, "warning: %s\n", r.Message)
		}
	}
	if config.HasErrors(results) {
		for _, r := range results {
			if r.Level == "error" {
				fmt.Fprintf(w, "config error: %s\n", r.Message)
			}
		}
		return fmt.Errorf("invalid configuration")
	}
	return nil
}

func buildStepModel() tui.ProgressModel {
	columns := append([]tui.Column(nil), tui.StepColumns...)
	steps := bootstrap.StepNames()
	for _, step := range steps {
		columns[0].Width = max(columns[0].Width, len(step)+1)
	}
	model := tui.NewProgressModel("flutterstrap", columns)
	for _, step := range steps {
		model.AddRow(step, []string{step, "pending", ""})
	}
	return model
}

type bootstrapJSON struct {
	bootstrap.Result
	Log   string `json:"log"`
	Error string `json:"error,omitempty"`
}

func writeBootstrapJSON(w io.Writer, res bootstrap.Result, logPath string, runErr error) error {
	payload := bootstrapJSON{Result: res, Log: logPath}
	if runErr != nil {
		payload.Error = runErr.Error()
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func printNextSteps(w io.Writer, pp paths.ProjectPaths, res bootstrap.Result) {
	fmt.Fprintf(w, "\nTooling ready in %s\n", pp.ToolingDir)
	for _, file := range res.EditorFiles {
		fmt.Fprintf(w, "  wrote %s\n", file)
	}
	if len(res.NextSteps) == 0 {
		return
	}
	fmt.Fprintln(w, "\nNext steps:")
	for _, step := range res.NextSteps {
		fmt.Fprintf(w, "  - %s\n", step)
	}
}
