package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"flutterstrap/internal/config"
	"flutterstrap/internal/paths"
	"flutterstrap/internal/tools"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved settings and the download URLs",
		Args:  cobra.NoArgs,
		RunE:  runConfigShow,
	}

	cmd.AddCommand(newConfigEditCmd())
	return cmd
}

func newConfigEditCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "edit",
		Short: "Open flutterstrap.yaml in $EDITOR",
		Args:  cobra.NoArgs,
		RunE:  runConfigEdit,
	}
}

// configReport is the payload printed by the config command.
type configReport struct {
	ConfigFile string            `json:"config_file" yaml:"config_file"`
	EnvFile    string            `json:"env_file" yaml:"env_file"`
	Settings   []configSetting   `json:"settings" yaml:"settings"`
	URLs       map[string]string `json:"urls" yaml:"urls"`
}

type configSetting struct {
	Key    string `json:"key" yaml:"key"`
	Value  string `json:"value" yaml:"value"`
	Origin string `json:"origin" yaml:"origin"`
}

func buildConfigReport(pp paths.ProjectPaths, resolved config.Resolved, goos, goarch string) configReport {
	report := configReport{
		ConfigFile: pp.ConfigFile,
		EnvFile:    pp.EnvFile,
		URLs:       map[string]string{},
	}
	for _, key := range config.KnownKeys() {
		value, _ := resolved.Config.Value(key)
		report.Settings = append(report.Settings, configSetting{Key: key, Value: value, Origin: resolved.Origins[key]})
	}

	if resolved.Config.FlutterSource() == config.SourceGit {
		report.URLs["flutter"] = resolved.Config.Flutter.GitURL
	} else if url, err := tools.FlutterURL(resolved.Config, goos, goarch); err == nil {
		report.URLs["flutter"] = url
	} else {
		report.URLs["flutter"] = "error: " + err.Error()
	}
	if url, err := tools.CmdlineToolsURL(resolved.Config, goos, goarch); err == nil {
		report.URLs["android-cmdline-tools"] = url
	} else {
		report.URLs["android-cmdline-tools"] = "error: " + err.Error()
	}
	return report
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	pp, resolved, err := loadProject()
	if err != nil {
		return err
	}

	report := buildConfigReport(pp, resolved, runtime.GOOS, runtime.GOARCH)

	var data []byte
	if outputJSON {
		data, err = json.MarshalIndent(report, "", "  ")
	} else {
		data, err = yaml.Marshal(report)
	}
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	fmt.Fprint(cmd.OutOrStdout(), string(data))
	if len(data) == 0 || data[len(data)-1] != '\n' {
		fmt.Fprintln(cmd.OutOrStdout())
	}
	return nil
}

func runConfigEdit(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return err
	}

	if _, err := ensureConfigFile(pp); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
		if runtime.GOOS == "windows" {
			editor = "notepad"
		}
	}

	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("invalid EDITOR value: %q", editor)
	}
	parts = append(parts, pp.ConfigFile)

	execCmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	execCmd.Stdout = cmd.OutOrStdout()
	execCmd.Stderr = cmd.ErrOrStderr()
	execCmd.Stdin = cmd.InOrStdin()
	execCmd.Dir = pp.Root

	if err := execCmd.Run(); err != nil {
		return fmt.Errorf("editor exited with error: %w", err)
	}
	return nil
}

// ensureConfigFile writes the default flutterstrap.yaml when none exists and
// reports whether it created one.
func ensureConfigFile(pp paths.ProjectPaths) (bool, error) {
	if _, err := os.Stat(pp.ConfigFile); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(pp.ConfigFile), 0o755); err != nil {
		return false, fmt.Errorf("ensure config dir: %w", err)
	}

	data, err := config.Default().Marshal()
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(pp.ConfigFile, data, 0o644); err != nil {
		return false, fmt.Errorf("write default config: %w", err)
	}
	return true, nil
}
