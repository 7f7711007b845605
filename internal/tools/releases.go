package tools

import "flutterstrap/internal/config"

// FlutterURLData fills the Flutter archive template for a platform. The
// release bucket names macOS "macos", uses tar.xz on Linux and zip elsewhere,
// and only publishes a separate archive for Apple Silicon.
func FlutterURLData(cfg config.Config, goos, goarch string) config.URLData {
	data := config.URLData{
		Version: cfg.Flutter.Version,
		Channel: cfg.Flutter.Channel,
		Arch:    goarch,
		Ext:     "zip",
	}
	switch goos {
	case "darwin":
		data.OS = "macos"
		if goarch == "arm64" {
			data.ArchSuffix = "_arm64"
		}
	case "windows":
		data.OS = "windows"
	default:
		data.OS = "linux"
		data.Ext = "tar.xz"
	}
	return data
}

// CmdlineToolsURLData fills the command-line tools template for a platform.
func CmdlineToolsURLData(cfg config.Config, goos, goarch string) config.URLData {
	data := config.URLData{
		Version: cfg.Android.CmdlineTools,
		Channel: cfg.Flutter.Channel,
		Arch:    goarch,
		Ext:     "zip",
	}
	switch goos {
	case "darwin":
		data.OS = "mac"
	case "windows":
		data.OS = "win"
	default:
		data.OS = "linux"
	}
	return data
}

func FlutterURL(cfg config.Config, goos, goarch string) (string, error) {
	return config.RenderURL(cfg.Flutter.URL, FlutterURLData(cfg, goos, goarch))
}

func CmdlineToolsURL(cfg config.Config, goos, goarch string) (string, error) {
	return config.RenderURL(cfg.Android.CmdlineToolsURL, CmdlineToolsURLData(cfg, goos, goarch))
}
