package tools

import (
	"context"
	"fmt"
	"strings"

	"flutterstrap/internal/paths"
)

// Detect reports the presence of each managed component from its marker
// without changing anything on disk.
func Detect(ctx context.Context, env Env) []Status {
	return []Status{
		detectFlutter(env),
		detectCmdlineTools(env),
		detectPackages(env),
		detectMSVC(ctx, env),
	}
}

func detectFlutter(env Env) Status {
	dir := env.Paths.FlutterDir
	status := Status{Tool: ComponentFlutter, Path: dir, Marker: FlutterBin(dir, env.goos())}
	if ok, _ := paths.FileExists(status.Marker); ok {
		status.Installed = true
		status.Action = ActionPresent
		status.Version = FlutterVersion(dir)
		return status
	}
	status.Action = ActionMissing
	if exists, _ := paths.Exists(dir); exists {
		status.Error = fmt.Sprintf("%s exists without %s", dir, status.Marker)
	}
	return status
}

func detectCmdlineTools(env Env) Status {
	sdk := env.Paths.AndroidSDKDir
	dir := CmdlineToolsDir(sdk)
	status := Status{Tool: ComponentCmdlineTools, Path: dir, Marker: SdkmanagerBin(sdk, env.goos())}
	if ok, _ := paths.FileExists(status.Marker); ok {
		status.Installed = true
		status.Action = ActionPresent
		status.Version = SourceRevision(dir)
		return status
	}
	status.Action = ActionMissing
	if exists, _ := paths.Exists(dir); exists {
		status.Error = fmt.Sprintf("%s exists without %s", dir, status.Marker)
	}
	return status
}

func detectPackages(env Env) Status {
	sdk := env.Paths.AndroidSDKDir
	pkgs := env.Config.AndroidPackages()
	status := Status{Tool: ComponentAndroidPackages, Path: sdk, Marker: PackageMarker(sdk, pkgs[0])}
	missing := MissingPackages(sdk, pkgs)
	if len(missing) == 0 {
		status.Installed = true
		status.Action = ActionPresent
		status.Version = env.Config.Android.Platform
		return status
	}
	status.Action = ActionMissing
	status.Notes = []string{"missing: " + strings.Join(missing, ", ")}
	return status
}

func detectMSVC(ctx context.Context, env Env) Status {
	status := Status{Tool: ComponentMSVC}
	if env.goos() != "windows" || env.Config.SkipMSVC() {
		status.Skipped = true
		status.Action = ActionSkipped
		return status
	}
	if path, how, ok := DetectMSVC(ctx, env); ok {
		status.Installed = true
		status.Action = ActionPresent
		status.Path = path
		status.Notes = []string{"found via " + how}
		return status
	}
	status.Action = ActionMissing
	return status
}
