package config

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate checks the resolved configuration. The sample data renders each URL
// template so malformed templates surface before any download starts.
func (c Config) Validate(flutterSample, cmdlineSample URLData) []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateRequired()...)
	results = append(results, c.validateEnums()...)
	results = append(results, validateTemplate("flutter.url", c.Flutter.URL, flutterSample)...)
	results = append(results, validateTemplate("android.cmdline_tools_url", c.Android.CmdlineToolsURL, cmdlineSample)...)
	results = append(results, c.validateGit()...)
	results = append(results, c.validateArchivePlatform(flutterSample)...)
	return results
}

// HasErrors reports whether any result is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

func (c Config) validateRequired() []ValidationResult {
	var results []ValidationResult
	required := []struct {
		name  string
		value string
	}{
		{"flutter.version", c.Flutter.Version},
		{"flutter.channel", c.Flutter.Channel},
		{"android.cmdline_tools", c.Android.CmdlineTools},
		{"android.platform", c.Android.Platform},
		{"android.build_tools", c.Android.BuildTools},
		{"android.ndk", c.Android.NDK},
		{"android.cmake", c.Android.CMake},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("%s must not be empty", r.name),
			})
		}
	}
	for _, pkg := range c.Android.ExtraPackages {
		if strings.ContainsAny(pkg, " \t") {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("android extra package %q contains whitespace", pkg),
			})
		}
	}
	return results
}

func (c Config) validateEnums() []ValidationResult {
	var results []ValidationResult
	switch c.Flutter.Source {
	case SourceArchive, SourceGit:
	default:
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("flutter.source %q must be %q or %q", c.Flutter.Source, SourceArchive, SourceGit),
		})
	}
	switch c.Editor.Mode {
	case EditorOverwrite, EditorMerge:
	default:
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("editor.mode %q must be %q or %q", c.Editor.Mode, EditorOverwrite, EditorMerge),
		})
	}
	return results
}

func (c Config) validateGit() []ValidationResult {
	if c.FlutterSource() != SourceGit {
		return nil
	}
	if strings.TrimSpace(c.Flutter.GitURL) == "" {
		return []ValidationResult{{Level: "error", Message: "flutter.git_url must be set when flutter.source is git"}}
	}
	if c.Flutter.Source == SourceArchive && c.Flutter.Ref != "" {
		return []ValidationResult{{
			Level:   "warning",
			Message: fmt.Sprintf("flutter.ref %q forces a git checkout; flutter.source is ignored", c.Flutter.Ref),
		}}
	}
	return nil
}

// validateArchivePlatform warns where the release bucket has no archive for the
// host. Linux archives are x64 only; a custom mirror may publish others.
func (c Config) validateArchivePlatform(sample URLData) []ValidationResult {
	if c.FlutterSource() != SourceArchive || c.Flutter.URL != defaultFlutterURL {
		return nil
	}
	if sample.OS == "linux" && sample.Arch != "" && sample.Arch != "amd64" {
		return []ValidationResult{{
			Level:   "warning",
			Message: fmt.Sprintf("no Flutter archive is published for linux/%s; the x64 archive will be used, set FLUTTER_SOURCE=git instead", sample.Arch),
		}}
	}
	return nil
}

func validateTemplate(name, tmpl string, sample URLData) []ValidationResult {
	rendered, err := RenderURL(tmpl, sample)
	if err != nil {
		return []ValidationResult{{Level: "error", Message: fmt.Sprintf("%s: %v", name, err)}}
	}
	u, err := url.Parse(rendered)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("%s renders to %q, which is not an http(s) URL", name, rendered),
		}}
	}
	return nil
}
