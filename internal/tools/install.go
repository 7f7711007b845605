package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"flutterstrap/internal/config"
	"flutterstrap/internal/fetch"
	"flutterstrap/internal/paths"
	"flutterstrap/internal/runner"
)

// EnsureFlutter installs the Flutter SDK into the tooling directory unless its
// launcher is already present.
func EnsureFlutter(ctx context.Context, env Env) (Status, error) {
	dir := env.Paths.FlutterDir
	marker := FlutterBin(dir, env.goos())
	status := Status{Tool: ComponentFlutter, Marker: marker, Path: dir}

	if done, err := checkMarker(&status, dir); done || err != nil {
		if status.Installed {
			status.Version = FlutterVersion(dir)
		}
		return status, err
	}

	var err error
	if env.Config.FlutterSource() == config.SourceGit {
		err = cloneFlutter(ctx, env)
	} else {
		err = downloadFlutter(ctx, env, &status)
	}
	if err != nil {
		status.Error = err.Error()
		return status, fmt.Errorf("install flutter: %w", err)
	}

	return finishInstall(status, marker, FlutterVersion(dir))
}

func downloadFlutter(ctx context.Context, env Env, status *Status) error {
	url, err := FlutterURL(env.Config, env.goos(), env.goarch())
	if err != nil {
		return err
	}
	env.logger().Printf("flutter: downloading %s", url)
	status.Notes = append(status.Notes, "downloaded "+url)
	_, err = env.fetcher().Ensure(ctx, fetch.Request{
		Dir:          env.Paths.FlutterDir,
		URL:          url,
		Subdir:       "flutter",
		DownloadsDir: env.Paths.DownloadsDir,
		Progress:     env.Progress,
	})
	return err
}

// cloneFlutter checks the repository out into a staging directory under
// downloads and promotes it once every git command has succeeded.
func cloneFlutter(ctx context.Context, env Env) error {
	cfg := env.Config.Flutter
	if err := os.MkdirAll(env.Paths.DownloadsDir, 0o755); err != nil {
		return fmt.Errorf("prepare downloads dir: %w", err)
	}
	staging, err := os.MkdirTemp(env.Paths.DownloadsDir, "flutter-git-")
	if err != nil {
		return fmt.Errorf("create clone dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()
	checkout := filepath.Join(staging, "flutter")

	var steps [][]string
	if ref := strings.TrimSpace(cfg.Ref); ref != "" {
		steps = [][]string{
			{"clone", "--depth", "1", cfg.GitURL, checkout},
			{"-C", checkout, "fetch", "origin", ref, "--depth", "1"},
			{"-C", checkout, "checkout", ref},
		}
	} else {
		steps = [][]string{
			{"clone", "--depth", "1", "-b", cfg.Channel, cfg.GitURL, checkout},
		}
	}

	r := env.runner()
	for _, args := range steps {
		env.logger().Printf("flutter: git %s", strings.Join(args, " "))
		if _, err := r.Run(ctx, "git", args, runner.RunOptions{}); err != nil {
			return err
		}
	}
	return fetch.Promote(checkout, env.Paths.FlutterDir)
}

// EnsureCmdlineTools installs the Android command-line tools under
// cmdline-tools/latest, the layout sdkmanager expects.
func EnsureCmdlineTools(ctx context.Context, env Env) (Status, error) {
	dir := CmdlineToolsDir(env.Paths.AndroidSDKDir)
	marker := SdkmanagerBin(env.Paths.AndroidSDKDir, env.goos())
	status := Status{Tool: ComponentCmdlineTools, Marker: marker, Path: dir}

	if done, err := checkMarker(&status, dir); done || err != nil {
		if status.Installed {
			status.Version = SourceRevision(dir)
		}
		return status, err
	}

	url, err := CmdlineToolsURL(env.Config, env.goos(), env.goarch())
	if err != nil {
		status.Error = err.Error()
		return status, err
	}
	env.logger().Printf("cmdline-tools: downloading %s", url)
	status.Notes = append(status.Notes, "downloaded "+url)
	_, err = env.fetcher().Ensure(ctx, fetch.Request{
		Dir:          dir,
		URL:          url,
		Subdir:       "cmdline-tools",
		DownloadsDir: env.Paths.DownloadsDir,
		Progress:     env.Progress,
	})
	if err != nil {
		status.Error = err.Error()
		return status, fmt.Errorf("install android command-line tools: %w", err)
	}
	return finishInstall(status, marker, SourceRevision(dir))
}

// checkMarker reports done when the marker exists. A directory without its
// marker is a broken install that is never overwritten silently.
func checkMarker(status *Status, dir string) (bool, error) {
	ok, err := paths.FileExists(status.Marker)
	if err != nil {
		return true, fmt.Errorf("stat %s: %w", status.Marker, err)
	}
	if ok {
		status.Installed = true
		status.Action = ActionPresent
		return true, nil
	}
	if exists, _ := paths.Exists(dir); exists {
		err := missingMarker(status.Tool, status.Marker, "delete "+dir+" and re-run")
		status.Error = err.Error()
		status.Action = ActionMissing
		return true, err
	}
	return false, nil
}

func finishInstall(status Status, marker, version string) (Status, error) {
	if ok, _ := paths.FileExists(marker); !ok {
		err := missingMarker(status.Tool, marker, "")
		status.Error = err.Error()
		status.Action = ActionMissing
		return status, err
	}
	status.Installed = true
	status.Action = ActionInstalled
	status.Version = version
	return status, nil
}
