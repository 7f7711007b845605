package tools

import (
	"path/filepath"
	"strings"
)

const (
	ComponentFlutter         = "flutter"
	ComponentCmdlineTools    = "android-cmdline-tools"
	ComponentAndroidPackages = "android-packages"
	ComponentFlutterConfig   = "flutter-config"
	ComponentMSVC            = "msvc"
)

// KnownComponents returns the managed components in install order.
func KnownComponents() []string {
	return []string{ComponentFlutter, ComponentCmdlineTools, ComponentAndroidPackages, ComponentFlutterConfig, ComponentMSVC}
}

func scriptName(goos, base string) string {
	if goos == "windows" {
		return base + ".bat"
	}
	return base
}

// FlutterBin is the flutter launcher and the Flutter install marker.
func FlutterBin(flutterDir, goos string) string {
	return filepath.Join(flutterDir, "bin", scriptName(goos, "flutter"))
}

// CmdlineToolsDir is where the command-line tools archive is unpacked.
func CmdlineToolsDir(sdkDir string) string {
	return filepath.Join(sdkDir, "cmdline-tools", "latest")
}

// SdkmanagerBin is the sdkmanager launcher and the cmdline-tools marker.
func SdkmanagerBin(sdkDir, goos string) string {
	return filepath.Join(CmdlineToolsDir(sdkDir), "bin", scriptName(goos, "sdkmanager"))
}

// PackageMarker maps an sdkmanager package id such as "platforms;android-34"
// to the directory it installs.
func PackageMarker(sdkDir, id string) string {
	parts := strings.Split(id, ";")
	return filepath.Join(append([]string{sdkDir}, parts...)...)
}

// LicenseMarker exists once the Android SDK license has been accepted.
func LicenseMarker(sdkDir string) string {
	return filepath.Join(sdkDir, "licenses", "android-sdk-license")
}

// PrecacheMarkers are the engine artefact directories produced by flutter precache.
func PrecacheMarkers(flutterDir string, windows bool) []string {
	engine := filepath.Join(flutterDir, "bin", "cache", "artifacts", "engine")
	markers := []string{filepath.Join(engine, "android-arm64-release")}
	if windows {
		markers = append(markers, filepath.Join(engine, "windows-x64"))
	}
	return markers
}
