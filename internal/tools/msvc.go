package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"flutterstrap/internal/paths"
	"flutterstrap/internal/runner"
)

// vs7Lookup reads the Visual Studio SxS registry key. Replaced in tests.
var vs7Lookup = registryVS7

// EnsureMSVC makes sure the Visual Studio C++ build tools are installed. It is
// a no-op off Windows or when MSVC_SKIP is set.
func EnsureMSVC(ctx context.Context, env Env) (Status, error) {
	status := Status{Tool: ComponentMSVC}

	if env.goos() != "windows" {
		status.Skipped = true
		status.Action = ActionSkipped
		status.Notes = []string{"not required on " + env.goos()}
		return status, nil
	}
	if env.Config.SkipMSVC() {
		status.Skipped = true
		status.Action = ActionSkipped
		status.Notes = []string{"MSVC_SKIP is set"}
		return status, nil
	}

	if path, how, ok := DetectMSVC(ctx, env); ok {
		status.Installed = true
		status.Action = ActionPresent
		status.Path = path
		status.Notes = []string{"found via " + how}
		return status, nil
	}

	winget, err := env.lookPath("winget")
	if err != nil {
		err = fmt.Errorf("%w: winget not found; %s", ErrPrerequisite, msvcHint)
		status.Error = err.Error()
		return status, err
	}

	cfg := env.Config.MSVC
	args := []string{
		"install", "-e", "--id", cfg.WingetID,
		"--override", cfg.Override,
		"--accept-package-agreements", "--accept-source-agreements",
	}
	env.logger().Printf("msvc: winget %s", strings.Join(args, " "))
	if _, err := env.runner().Run(ctx, winget, args, runner.RunOptions{}); err != nil {
		if ctx.Err() != nil {
			return status, ctx.Err()
		}
		err = fmt.Errorf("install %s: %w\n%s", cfg.WingetID, err, msvcHint)
		status.Error = err.Error()
		return status, err
	}

	status.Installed = true
	status.Action = ActionInstalled
	if path, _, ok := DetectMSVC(ctx, env); ok {
		status.Path = path
	} else {
		status.Notes = append(status.Notes, "installer finished but vswhere does not list the component yet; open a new terminal")
	}
	return status, nil
}

// DetectMSVC asks vswhere for an installation carrying the configured
// component and falls back to the SxS registry key.
func DetectMSVC(ctx context.Context, env Env) (string, string, bool) {
	if vswhere := findVswhere(env); vswhere != "" {
		args := []string{
			"-latest", "-products", "*",
			"-requires", env.Config.MSVC.Component,
			"-property", "installationPath",
		}
		res, err := env.runner().Run(ctx, vswhere, args, runner.RunOptions{})
		if err == nil {
			if path := firstLine(strings.TrimSpace(string(res.Stdout))); path != "" {
				return path, "vswhere", true
			}
		} else {
			env.logger().Printf("msvc: vswhere failed: %v", err)
		}
	}
	if path, ok := vs7Lookup(); ok {
		return path, "registry", true
	}
	return "", "", false
}

func findVswhere(env Env) string {
	for _, key := range []string{"ProgramFiles(x86)", "ProgramFiles"} {
		root := env.getenv(key)
		if root == "" {
			continue
		}
		candidate := filepath.Join(root, "Microsoft Visual Studio", "Installer", "vswhere.exe")
		if ok, _ := paths.FileExists(candidate); ok {
			return candidate
		}
	}
	return ""
}

// pickVS7 returns the install path of the newest SxS entry at version 15.0
// (Visual Studio 2017) or later.
func pickVS7(values map[string]string) (string, bool) {
	best, bestPath := "", ""
	for version, path := range values {
		if strings.TrimSpace(path) == "" || !meetsMinimum(version, "15.0") {
			continue
		}
		if best == "" || meetsMinimum(version, best) {
			best, bestPath = version, path
		}
	}
	return bestPath, best != ""
}
