package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"flutterstrap/internal/config"
	"flutterstrap/internal/paths"
	"flutterstrap/internal/tui"
)

var (
	projectDir string
	envFile    string
	outputJSON bool
	noProgress bool
	editorMode string
)

// Exit codes returned by Execute.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitInterrupted = 130
)

// Execute runs the root cobra command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	return exitCode(err, ctx.Err() != nil)
}

func exitCode(err error, signalled bool) int {
	switch {
	case err == nil:
		return ExitOK
	case signalled, errors.Is(err, tui.ErrInterrupted), errors.Is(err, context.Canceled):
		fmt.Fprintln(os.Stderr, "interrupted")
		return ExitInterrupted
	default:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return ExitFailure
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "flutterstrap",
		Short:         "Provision project-local Flutter and Android tooling",
		Long:          "flutterstrap installs the Flutter SDK, the Android command-line tools and SDK packages\nand, on Windows, the MSVC build tools under <project>/.tooling, then points VS Code at them.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runBootstrap,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&projectDir, "project", "", "Path to project directory (default: working directory)")
	flags.StringVar(&envFile, "env-file", "", "Override file with KEY=VALUE settings (default: <project>/.env)")
	flags.BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	flags.BoolVar(&noProgress, "no-progress", false, "Disable interactive progress output")
	cmd.Flags().StringVar(&editorMode, "editor-mode", "", "VS Code config mode: overwrite or merge (default from EDITOR_CONFIG_MODE)")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newEditorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newToolsCmd())

	return cmd
}

// loadProject resolves the project paths and the layered settings. The project
// directory must already exist.
func loadProject() (paths.ProjectPaths, config.Resolved, error) {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return paths.ProjectPaths{}, config.Resolved{}, err
	}
	pp = pp.WithEnvFile(envFile)

	exists, err := paths.DirExists(pp.Root)
	if err != nil {
		return pp, config.Resolved{}, fmt.Errorf("stat project dir: %w", err)
	}
	if !exists {
		return pp, config.Resolved{}, fmt.Errorf("project directory does not exist: %s", pp.Root)
	}

	resolved, err := config.Resolve(pp.ConfigFile, pp.EnvFile, nil)
	if err != nil {
		return pp, config.Resolved{}, err
	}
	return pp, resolved, nil
}
