package tools

import (
	"context"
	"fmt"
	"strings"

	"flutterstrap/internal/runner"
)

// EnsurePrereqs verifies git and java are on PATH. On Windows a missing JDK is
// installed with winget and checked again.
func EnsurePrereqs(ctx context.Context, env Env) ([]Status, error) {
	var statuses []Status

	git := Status{Tool: "git"}
	path, err := env.lookPath("git")
	if err != nil {
		err = fmt.Errorf("%w: git not found on PATH; %s", ErrPrerequisite, strings.Join(installHints("git", env.goos()), "; "))
		git.Error = err.Error()
		git.Action = ActionMissing
		return append(statuses, git), err
	}
	git.Path, git.Installed, git.Action = path, true, ActionPresent
	statuses = append(statuses, git)

	java, err := ensureJava(ctx, env)
	statuses = append(statuses, java)
	return statuses, err
}

func ensureJava(ctx context.Context, env Env) (Status, error) {
	status := Status{Tool: "java"}
	if path, err := env.lookPath("java"); err == nil {
		status.Path, status.Installed, status.Action = path, true, ActionPresent
		return status, nil
	}

	hint := strings.Join(installHints("java", env.goos()), "; ")
	if env.goos() != "windows" {
		err := fmt.Errorf("%w: java not found on PATH; %s", ErrPrerequisite, hint)
		status.Error = err.Error()
		status.Action = ActionMissing
		return status, err
	}

	winget, err := env.lookPath("winget")
	if err != nil {
		err = fmt.Errorf("%w: java not found and winget is unavailable; %s", ErrPrerequisite, hint)
		status.Error = err.Error()
		status.Action = ActionMissing
		return status, err
	}

	id := env.Config.Java.WingetID
	args := []string{"install", "-e", "--id", id, "--accept-package-agreements", "--accept-source-agreements"}
	env.logger().Printf("java: winget %s", strings.Join(args, " "))
	if _, err := env.runner().Run(ctx, winget, args, runner.RunOptions{}); err != nil {
		if ctx.Err() != nil {
			return status, ctx.Err()
		}
		err = fmt.Errorf("install %s: %w", id, err)
		status.Error = err.Error()
		return status, err
	}

	path, err := env.lookPath("java")
	if err != nil {
		err = fmt.Errorf("%w: java still not found after installing %s; open a new terminal and re-run", ErrPrerequisite, id)
		status.Error = err.Error()
		status.Action = ActionMissing
		return status, err
	}
	status.Path, status.Installed, status.Action = path, true, ActionInstalled
	status.Notes = []string{"installed " + id + " via winget"}
	return status, nil
}
