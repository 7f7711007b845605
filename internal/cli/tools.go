package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"flutterstrap/internal/logx"
	"flutterstrap/internal/tools"
	"flutterstrap/internal/tui"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Inspect host tools or install single components",
	}

	cmd.AddCommand(newToolsListCmd())
	cmd.AddCommand(newToolsInstallCmd())

	return cmd
}

func newToolsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List host tools with their versions",
		Args:  cobra.NoArgs,
		RunE:  runToolsList,
	}
}

func runToolsList(cmd *cobra.Command, _ []string) error {
	names := prerequisiteNames(runtime.GOOS)
	infos := tools.Probe(cmd.Context(), tools.Env{}, names)

	if outputJSON {
		list := make([]tools.ToolInfo, 0, len(names))
		for _, name := range names {
			list = append(list, infos[name])
		}
		data, err := json.MarshalIndent(list, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-7s %-40s %s\n", "Tool", "OK", "Version", "Path")
	for _, name := range names {
		info := infos[name]
		ok := "no"
		if info.Available {
			ok = "yes"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%-8s %-7s %-40s %s\n", name, ok, tui.TruncateWithEllipsis(tui.NonEmptyOrDash(info.Version), 40), tui.NonEmptyOrDash(info.Path))
		if info.Error != "" && info.Available {
			fmt.Fprintf(cmd.OutOrStdout(), "  error: %s\n", info.Error)
		}
	}
	return nil
}

func newToolsInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install [component|all]",
		Short: "Run bootstrap steps for single components, without touching the editor files",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runToolsInstall,
	}
}

var componentSteps = map[string]func(context.Context, tools.Env) (tools.Status, error){
	tools.ComponentFlutter:         tools.EnsureFlutter,
	tools.ComponentCmdlineTools:    tools.EnsureCmdlineTools,
	tools.ComponentAndroidPackages: tools.EnsureAndroidPackages,
	tools.ComponentFlutterConfig:   tools.ConfigureFlutter,
	tools.ComponentMSVC:            tools.EnsureMSVC,
}

func runToolsInstall(cmd *cobra.Command, args []string) error {
	target := "all"
	if len(args) == 1 {
		target = strings.ToLower(args[0])
	}

	var names []string
	if target == "all" {
		names = tools.KnownComponents()
	} else {
		if _, ok := componentSteps[target]; !ok {
			return fmt.Errorf("unknown component: %s (known: %s)", target, strings.Join(tools.KnownComponents(), ", "))
		}
		names = []string{target}
	}

	pp, resolved, err := loadProject()
	if err != nil {
		return err
	}
	if err := pp.EnsureTooling(); err != nil {
		return err
	}
	runLog, err := logx.Open(pp, "install", time.Now())
	if err != nil {
		return err
	}
	defer runLog.Close()

	reporter := tui.NewPlainReporter(cmd.ErrOrStderr())
	env := tools.Env{Paths: pp, Config: resolved.Config, Logger: runLog.Logger}

	var (
		statuses []tools.Status
		errs     []error
	)
	for _, name := range names {
		name := name
		stepEnv := env
		if !outputJSON {
			stepEnv.Progress = func(done, total int64) { reporter.Progress(name, done, total) }
			reporter.Start(name, "")
		}
		status, err := componentSteps[name](cmd.Context(), stepEnv)
		if !outputJSON {
			reporter.Finish(name, status, err)
		}
		statuses = append(statuses, status)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			// Later components depend on earlier ones.
			if errors.Is(err, context.Canceled) || target == "all" {
				break
			}
		}
	}

	if outputJSON {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
	}

	return errors.Join(errs...)
}
