package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"flutterstrap/internal/paths"
	"flutterstrap/internal/runner"
)

// licenseAnswers is fed to sdkmanager --licenses; it asks once per license.
var licenseAnswers = strings.Repeat("y\n", 200)

// ToolEnv returns the variables child processes need to find the local SDKs.
func ToolEnv(p paths.ProjectPaths) []string {
	sdk := p.AndroidSDKDir
	prefix := strings.Join(PathEntries(p), string(os.PathListSeparator))
	return []string{
		"FLUTTER_ROOT=" + p.FlutterDir,
		"ANDROID_HOME=" + sdk,
		"ANDROID_SDK_ROOT=" + sdk,
		"PATH=" + prefix + string(os.PathListSeparator) + os.Getenv("PATH"),
	}
}

// PathEntries lists the tooling bin directories prepended to PATH.
func PathEntries(p paths.ProjectPaths) []string {
	sdk := p.AndroidSDKDir
	return []string{
		filepath.Join(p.FlutterDir, "bin"),
		filepath.Join(CmdlineToolsDir(sdk), "bin"),
		filepath.Join(sdk, "platform-tools"),
	}
}

// MissingPackages returns the requested package ids whose directory is absent.
func MissingPackages(sdkDir string, pkgs []string) []string {
	var missing []string
	for _, id := range pkgs {
		if ok, _ := paths.DirExists(PackageMarker(sdkDir, id)); !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// EnsureAndroidPackages accepts the SDK licenses and installs every configured
// package that is not already on disk, in a single sdkmanager call.
func EnsureAndroidPackages(ctx context.Context, env Env) (Status, error) {
	sdk := env.Paths.AndroidSDKDir
	pkgs := env.Config.AndroidPackages()
	status := Status{Tool: ComponentAndroidPackages, Path: sdk, Marker: PackageMarker(sdk, pkgs[0])}

	sdkmanager := SdkmanagerBin(sdk, env.goos())
	if ok, _ := paths.FileExists(sdkmanager); !ok {
		err := missingMarker("sdkmanager", sdkmanager, "install the Android command-line tools first")
		status.Error = err.Error()
		status.Action = ActionMissing
		return status, err
	}

	r := env.runner()
	opts := runner.RunOptions{Env: ToolEnv(env.Paths)}
	sdkRoot := "--sdk_root=" + sdk

	missing := MissingPackages(sdk, pkgs)
	if len(missing) == 0 {
		status.Installed = true
		status.Action = ActionPresent
		status.Version = env.Config.Android.Platform
		return status, nil
	}

	// Licenses are answered before every install; added packages may bring new ones.
	env.logger().Printf("android: accepting sdk licenses")
	licenseOpts := opts
	licenseOpts.Stdin = strings.NewReader(licenseAnswers)
	if _, err := r.Run(ctx, sdkmanager, []string{sdkRoot, "--licenses"}, licenseOpts); err != nil {
		if ctx.Err() != nil {
			return status, ctx.Err()
		}
		env.logger().Printf("android: WARNING license acceptance failed: %v", err)
		status.Notes = append(status.Notes, "license acceptance reported an error; continuing")
	} else if ok, _ := paths.FileExists(LicenseMarker(sdk)); !ok {
		env.logger().Printf("android: WARNING %s not found after accepting licenses", LicenseMarker(sdk))
	}

	env.logger().Printf("android: installing %s", strings.Join(missing, " "))
	args := append([]string{sdkRoot}, missing...)
	if _, err := r.Run(ctx, sdkmanager, args, opts); err != nil {
		status.Error = err.Error()
		return status, fmt.Errorf("install android packages: %w", err)
	}

	if still := MissingPackages(sdk, missing); len(still) > 0 {
		err := missingMarker(ComponentAndroidPackages, PackageMarker(sdk, still[0]), strings.Join(still, ", ")+" not installed")
		status.Error = err.Error()
		status.Action = ActionMissing
		return status, err
	}

	status.Installed = true
	status.Action = ActionInstalled
	status.Version = env.Config.Android.Platform
	status.Notes = append(status.Notes, "installed "+strings.Join(missing, ", "))
	return status, nil
}

// ConfigureFlutter points Flutter at the local Android SDK and precaches the
// engine artefacts that are not already present.
func ConfigureFlutter(ctx context.Context, env Env) (Status, error) {
	flutter := FlutterBin(env.Paths.FlutterDir, env.goos())
	status := Status{Tool: ComponentFlutterConfig, Marker: flutter, Path: env.Paths.FlutterDir}

	if ok, _ := paths.FileExists(flutter); !ok {
		err := missingMarker(ComponentFlutter, flutter, "")
		status.Error = err.Error()
		return status, err
	}

	r := env.runner()
	opts := runner.RunOptions{Env: ToolEnv(env.Paths)}

	env.logger().Printf("flutter: config --android-sdk %s", env.Paths.AndroidSDKDir)
	if _, err := r.Run(ctx, flutter, []string{"config", "--android-sdk", env.Paths.AndroidSDKDir}, opts); err != nil {
		status.Error = err.Error()
		return status, fmt.Errorf("configure flutter: %w", err)
	}

	windows := env.Config.PrecacheWindows()
	precached := true
	for _, marker := range PrecacheMarkers(env.Paths.FlutterDir, windows) {
		if ok, _ := paths.DirExists(marker); !ok {
			precached = false
			break
		}
	}
	if precached {
		status.Installed = true
		status.Action = ActionPresent
		return status, nil
	}

	args := []string{"precache", "--android"}
	if windows {
		args = append(args, "--windows")
	}
	env.logger().Printf("flutter: %s", strings.Join(args, " "))
	if _, err := r.Run(ctx, flutter, args, opts); err != nil {
		status.Error = err.Error()
		return status, fmt.Errorf("flutter precache: %w", err)
	}
	status.Installed = true
	status.Action = ActionInstalled
	status.Notes = append(status.Notes, "precached "+strings.Join(args[1:], " "))
	return status, nil
}
