package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"flutterstrap/internal/config"
	"flutterstrap/internal/editor"
	"flutterstrap/internal/paths"
	"flutterstrap/internal/tools"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check prerequisites, components and editor configuration",
		Args:  cobra.NoArgs,
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string   `json:"name"`
	Status  string   `json:"status"` // "ok", "warning", "error"
	Summary string   `json:"summary"`
	Hints   []string `json:"hints,omitempty"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}
	pp = pp.WithEnvFile(envFile)
	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return fmt.Errorf("stat project dir: %w", err)
	}
	if !exists {
		return fmt.Errorf("project directory does not exist: %s", pp.Root)
	}

	goos := runtime.GOOS
	var checks []healthCheck

	resolved, cfgErr := config.Resolve(pp.ConfigFile, pp.EnvFile, nil)
	checks = append(checks, checkConfig(resolved.Config, cfgErr, goos, runtime.GOARCH))
	if cfgErr != nil {
		return writeDoctorResult(cmd.OutOrStdout(), pp.Root, checks)
	}

	env := tools.Env{Paths: pp, Config: resolved.Config}
	infos := tools.Probe(cmd.Context(), env, prerequisiteNames(goos))
	for _, name := range prerequisiteNames(goos) {
		checks = append(checks, checkPrerequisite(infos[name], goos))
	}

	for _, st := range tools.Detect(cmd.Context(), env) {
		checks = append(checks, checkComponent(st, goos))
	}

	checks = append(checks, checkEditor(pp, goos))

	return writeDoctorResult(cmd.OutOrStdout(), pp.Root, checks)
}

func prerequisiteNames(goos string) []string {
	switch goos {
	case "windows":
		return []string{"git", "java", "winget"}
	case "linux":
		return []string{"git", "java", "tar"}
	default:
		return []string{"git", "java"}
	}
}

func checkConfig(cfg config.Config, cfgErr error, goos, goarch string) healthCheck {
	if cfgErr != nil {
		return healthCheck{Name: "Config", Status: "error", Summary: cfgErr.Error()}
	}

	results := cfg.Validate(
		tools.FlutterURLData(cfg, goos, goarch),
		tools.CmdlineToolsURLData(cfg, goos, goarch),
	)
	var warnings, errs []string
	for _, v := range results {
		switch v.Level {
		case "warning":
			warnings = append(warnings, v.Message)
		case "error":
			errs = append(errs, v.Message)
		}
	}

	summary := fmt.Sprintf("flutter %s (%s, %s)", cfg.Flutter.Version, cfg.Flutter.Channel, cfg.FlutterSource())
	if len(errs) > 0 {
		return healthCheck{Name: "Config", Status: "error", Summary: fmt.Sprintf("%s; %d errors", summary, len(errs)), Hints: errs}
	}
	if len(warnings) > 0 {
		return healthCheck{Name: "Config", Status: "warning", Summary: fmt.Sprintf("%s; %d warnings", summary, len(warnings)), Hints: warnings}
	}
	return healthCheck{Name: "Config", Status: "ok", Summary: summary}
}

func checkPrerequisite(info tools.ToolInfo, goos string) healthCheck {
	if !info.Available {
		summary := "not found on PATH"
		if info.Error != "" && info.Error != "not found" {
			summary = info.Error
		}
		return healthCheck{Name: info.Name, Status: "error", Summary: summary, Hints: tools.InstallHints(info.Name, goos)}
	}
	summary := info.Path
	if info.Version != "" {
		summary = info.Version + " (" + info.Path + ")"
	}
	if info.Error != "" {
		return healthCheck{Name: info.Name, Status: "warning", Summary: summary + "; " + info.Error}
	}
	return healthCheck{Name: info.Name, Status: "ok", Summary: summary}
}

func checkComponent(st tools.Status, goos string) healthCheck {
	switch {
	case st.Skipped:
		return healthCheck{Name: st.Tool, Status: "ok", Summary: "skipped"}
	case st.Installed:
		return healthCheck{Name: st.Tool, Status: "ok", Summary: joinComma(nonEmpty(st.Version, st.Path))}
	case st.Error != "":
		return healthCheck{Name: st.Tool, Status: "error", Summary: st.Error, Hints: []string{"delete the directory and re-run flutterstrap"}}
	default:
		summary := "not installed"
		if len(st.Notes) > 0 {
			summary = joinComma(st.Notes)
		}
		return healthCheck{Name: st.Tool, Status: "warning", Summary: summary, Hints: append([]string{"run flutterstrap"}, tools.InstallHints(st.Tool, goos)...)}
	}
}

func checkEditor(pp paths.ProjectPaths, goos string) healthCheck {
	settings, _ := paths.FileExists(pp.SettingsFile)
	launch, _ := paths.FileExists(pp.LaunchFile)
	if !settings && !launch {
		return healthCheck{Name: "editor", Status: "warning", Summary: "VS Code files not written", Hints: []string{"run flutterstrap editor"}}
	}

	problems := editor.Check(pp, goos)
	if len(problems) == 0 {
		return healthCheck{Name: "editor", Status: "ok", Summary: "paths rooted under " + pp.ToolingDir}
	}
	hints := make([]string, 0, len(problems))
	for _, p := range problems {
		hints = append(hints, p.Error())
	}
	return healthCheck{
		Name:    "editor",
		Status:  "error",
		Summary: fmt.Sprintf("%d problems", len(problems)),
		Hints:   append(hints, "run flutterstrap editor"),
	}
}

func writeDoctorResult(w io.Writer, projectRoot string, checks []healthCheck) error {
	if outputJSON {
		data, err := json.MarshalIndent(checks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return doctorError(checks)
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)
	faint := lipgloss.NewStyle().Faint(true).Inline(true)

	fmt.Fprintln(w, bold.Render("PROJECT HEALTH:")+" "+projectRoot)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK   ")
		case "warning":
			statusStr = yellow.Render("WARN ")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(w, "  %-24s %s  %s\n", c.Name+":", statusStr, c.Summary)
		for _, hint := range c.Hints {
			fmt.Fprintf(w, "  %-24s        %s\n", "", faint.Render(hint))
		}
	}

	return doctorError(checks)
}

// errDoctor is returned when at least one check is an error, so scripts can
// gate on the exit code.
var errDoctor = errors.New("doctor found problems")

func doctorError(checks []healthCheck) error {
	var names []string
	for _, c := range checks {
		if c.Status == "error" {
			names = append(names, c.Name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", errDoctor, strings.Join(names, ", "))
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func joinComma(items []string) string {
	if len(items) == 0 {
		return ""
	}
	result := items[0]
	for _, item := range items[1:] {
		result += ", " + item
	}
	return result
}
