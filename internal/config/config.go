package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
	"k8s.io/utils/ptr"
)

const (
	SourceArchive = "archive"
	SourceGit     = "git"

	EditorOverwrite = "overwrite"
	EditorMerge     = "merge"
)

const (
	defaultFlutterURL      = "https://storage.googleapis.com/flutter_infra_release/releases/{{.Channel}}/{{.OS}}/flutter_{{.OS}}{{.ArchSuffix}}_{{.Version}}-{{.Channel}}.{{.Ext}}"
	defaultCmdlineToolsURL = "https://dl.google.com/android/repository/commandlinetools-{{.OS}}-{{.Version}}_latest.zip"
	defaultMSVCOverride    = "--add Microsoft.VisualStudio.Workload.VCTools --includeRecommended --passive --norestart --wait"
)

// Config captures the SDK versions and download locations for a project.
type Config struct {
	Flutter FlutterConfig `yaml:"flutter"`
	Android AndroidConfig `yaml:"android"`
	MSVC    MSVCConfig    `yaml:"msvc"`
	Java    JavaConfig    `yaml:"java"`
	Editor  EditorConfig  `yaml:"editor"`
}

// FlutterConfig selects the Flutter SDK release and how it is obtained.
type FlutterConfig struct {
	Version         string `yaml:"version"`
	Channel         string `yaml:"channel"`
	Source          string `yaml:"source"`
	Ref             string `yaml:"ref,omitempty"`
	URL             string `yaml:"url"`
	GitURL          string `yaml:"git_url"`
	PrecacheWindows *bool  `yaml:"precache_windows,omitempty"`
}

// AndroidConfig lists the command-line tools build and the SDK packages to install.
type AndroidConfig struct {
	CmdlineTools    string   `yaml:"cmdline_tools"`
	CmdlineToolsURL string   `yaml:"cmdline_tools_url"`
	Platform        string   `yaml:"platform"`
	BuildTools      string   `yaml:"build_tools"`
	NDK             string   `yaml:"ndk"`
	CMake           string   `yaml:"cmake"`
	ExtraPackages   []string `yaml:"extra_packages,omitempty"`
}

// MSVCConfig controls the Windows compiler toolchain bootstrap.
type MSVCConfig struct {
	Skip      *bool  `yaml:"skip,omitempty"`
	WingetID  string `yaml:"winget_id"`
	Component string `yaml:"component"`
	Override  string `yaml:"override"`
}

// JavaConfig names the JDK installed through winget when java is missing.
type JavaConfig struct {
	WingetID string `yaml:"winget_id"`
}

// EditorConfig selects how the VS Code documents are written.
type EditorConfig struct {
	Mode string `yaml:"mode"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Flutter: FlutterConfig{
			Version:         "3.24.5",
			Channel:         "stable",
			Source:          SourceArchive,
			URL:             defaultFlutterURL,
			GitURL:          "https://github.com/flutter/flutter",
			PrecacheWindows: ptr.To(runtime.GOOS == "windows"),
		},
		Android: AndroidConfig{
			CmdlineTools:    "11076708",
			CmdlineToolsURL: defaultCmdlineToolsURL,
			Platform:        "android-34",
			BuildTools:      "34.0.0",
			NDK:             "26.1.10909125",
			CMake:           "3.22.1",
		},
		MSVC: MSVCConfig{
			Skip:      ptr.To(false),
			WingetID:  "Microsoft.VisualStudio.2022.BuildTools",
			Component: "Microsoft.VisualStudio.Component.VC.Tools.x86.x64",
			Override:  defaultMSVCOverride,
		},
		Java: JavaConfig{
			WingetID: "Microsoft.OpenJDK.17",
		},
		Editor: EditorConfig{
			Mode: EditorOverwrite,
		},
	}
}

// Load reads the YAML configuration from disk if it exists, otherwise returns
// the default configuration.
func Load(path string) (Config, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults ensures fields fall back to defaults when a layer blanks them.
func (c *Config) ApplyDefaults() {
	defaults := Default()

	fill := func(dst *string, def string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = def
		}
	}

	fill(&c.Flutter.Version, defaults.Flutter.Version)
	fill(&c.Flutter.Channel, defaults.Flutter.Channel)
	fill(&c.Flutter.Source, defaults.Flutter.Source)
	fill(&c.Flutter.URL, defaults.Flutter.URL)
	fill(&c.Flutter.GitURL, defaults.Flutter.GitURL)
	if c.Flutter.PrecacheWindows == nil {
		c.Flutter.PrecacheWindows = defaults.Flutter.PrecacheWindows
	}

	fill(&c.Android.CmdlineTools, defaults.Android.CmdlineTools)
	fill(&c.Android.CmdlineToolsURL, defaults.Android.CmdlineToolsURL)
	fill(&c.Android.Platform, defaults.Android.Platform)
	fill(&c.Android.BuildTools, defaults.Android.BuildTools)
	fill(&c.Android.NDK, defaults.Android.NDK)
	fill(&c.Android.CMake, defaults.Android.CMake)

	if c.MSVC.Skip == nil {
		c.MSVC.Skip = defaults.MSVC.Skip
	}
	fill(&c.MSVC.WingetID, defaults.MSVC.WingetID)
	fill(&c.MSVC.Component, defaults.MSVC.Component)
	fill(&c.MSVC.Override, defaults.MSVC.Override)

	fill(&c.Java.WingetID, defaults.Java.WingetID)
	fill(&c.Editor.Mode, defaults.Editor.Mode)

	c.Flutter.Source = strings.ToLower(strings.TrimSpace(c.Flutter.Source))
	c.Editor.Mode = strings.ToLower(strings.TrimSpace(c.Editor.Mode))
}

// FlutterSource reports how Flutter is obtained. A pinned ref always implies git.
func (c Config) FlutterSource() string {
	if strings.TrimSpace(c.Flutter.Ref) != "" {
		return SourceGit
	}
	return c.Flutter.Source
}

// PrecacheWindows reports whether Windows desktop artefacts are precached.
func (c Config) PrecacheWindows() bool {
	return ptr.Deref(c.Flutter.PrecacheWindows, false)
}

// SkipMSVC reports whether the compiler toolchain step is disabled.
func (c Config) SkipMSVC() bool {
	return ptr.Deref(c.MSVC.Skip, false)
}

// AndroidPackages returns the sdkmanager package ids in install order.
func (c Config) AndroidPackages() []string {
	pkgs := []string{
		"platform-tools",
		"platforms;" + c.Android.Platform,
		"build-tools;" + c.Android.BuildTools,
		"cmake;" + c.Android.CMake,
		"ndk;" + c.Android.NDK,
	}
	seen := make(map[string]bool, len(pkgs))
	for _, p := range pkgs {
		seen[p] = true
	}
	for _, extra := range c.Android.ExtraPackages {
		extra = strings.TrimSpace(extra)
		if extra == "" || seen[extra] {
			continue
		}
		seen[extra] = true
		pkgs = append(pkgs, extra)
	}
	return pkgs
}

// Marshal returns the YAML encoding of the configuration.
func (c Config) Marshal() ([]byte, error) {
	buf, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return buf, nil
}
