package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"flutterstrap/internal/config"
	"flutterstrap/internal/logx"
	"flutterstrap/internal/paths"
)

const envExampleName = ".env.example"

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init [directory]",
		Short: "Write flutterstrap.yaml and a commented .env.example",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}
}

func resolveInitDir(projectFlag string, args []string) string {
	if projectFlag != "" {
		return projectFlag
	}
	if len(args) == 1 {
		return args[0]
	}
	return ""
}

func runInit(cmd *cobra.Command, args []string) error {
	pp, err := paths.Resolve(resolveInitDir(projectDir, args))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(pp.Root, 0o755); err != nil {
		return fmt.Errorf("create project dir: %w", err)
	}
	if err := pp.EnsureTooling(); err != nil {
		return err
	}

	runLog, err := logx.Open(pp, "init", time.Now())
	if err != nil {
		return err
	}
	defer runLog.Close()
	runLog.Printf("flutterstrap init: project=%s", pp.Root)

	var created []string

	wrote, err := ensureConfigFile(pp)
	if err != nil {
		return err
	}
	if wrote {
		runLog.Printf("created config: %s", pp.ConfigFile)
		created = append(created, filepath.Base(pp.ConfigFile))
	} else {
		runLog.Printf("config exists: %s", pp.ConfigFile)
	}

	if err := ensureEnvExample(pp, &created, runLog); err != nil {
		return err
	}

	if len(created) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "Project already initialized at %s\n", pp.Root)
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Initialized project at %s\n", pp.Root)
	for _, entry := range created {
		fmt.Fprintf(cmd.OutOrStdout(), "  created %s\n", entry)
	}
	return nil
}

func ensureEnvExample(pp paths.ProjectPaths, created *[]string, logger Logger) error {
	path := filepath.Join(pp.Root, envExampleName)
	exists, err := paths.FileExists(path)
	if err != nil {
		return fmt.Errorf("check %s: %w", envExampleName, err)
	}
	if exists {
		logger.Printf("%s exists: %s", envExampleName, path)
		return nil
	}

	if err := os.WriteFile(path, []byte(envExample(config.Default())), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", envExampleName, err)
	}
	logger.Printf("created %s: %s", envExampleName, path)
	*created = append(*created, envExampleName)
	return nil
}

// envExample lists every override key, commented out, with its default value.
func envExample(defaults config.Config) string {
	var b strings.Builder
	b.WriteString("# Copy to .env and uncomment the settings you want to change.\n")
	b.WriteString("# Process environment variables take precedence over this file.\n")
	for _, key := range config.KnownKeys() {
		value, _ := defaults.Value(key)
		fmt.Fprintf(&b, "# %s=%s\n", key, value)
	}
	return b.String()
}

// Logger keeps the subset of log.Logger used locally, enabling easy testing.
type Logger interface {
	Printf(format string, v ...any)
}
