// Package editor writes the VS Code workspace files that point the Dart
// extension and integrated terminals at the project-local SDKs.
package editor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"flutterstrap/internal/config"
	"flutterstrap/internal/paths"
	"flutterstrap/internal/tools"
)

// LaunchName identifies the launch configuration managed by this package.
const LaunchName = "Flutter (local SDK)"

const launchVersion = "0.2.0"

// inheritedPath is the VS Code placeholder for the PATH the editor started with.
const inheritedPath = "${env:PATH}"

type Options struct {
	// Mode is config.EditorOverwrite or config.EditorMerge.
	Mode string
	GOOS string
}

func (o Options) goos() string {
	if o.GOOS != "" {
		return o.GOOS
	}
	return runtime.GOOS
}

// TerminalOS maps a GOOS value to the suffix VS Code uses for
// terminal.integrated.env.<os>.
func TerminalOS(goos string) string {
	switch goos {
	case "darwin":
		return "osx"
	case "windows":
		return "windows"
	default:
		return "linux"
	}
}

// Env returns the variables exported to terminals and debug sessions.
func Env(p paths.ProjectPaths, goos string) map[string]string {
	sep := ":"
	if goos == "windows" {
		sep = ";"
	}
	entries := append(tools.PathEntries(p), inheritedPath)
	return map[string]string{
		"FLUTTER_ROOT":     p.FlutterDir,
		"ANDROID_HOME":     p.AndroidSDKDir,
		"ANDROID_SDK_ROOT": p.AndroidSDKDir,
		"PATH":             strings.Join(entries, sep),
	}
}

// escapeKey quotes the dots in a VS Code setting name so sjson and gjson
// treat it as a single key.
func escapeKey(key string) string {
	return strings.ReplaceAll(key, ".", `\.`)
}

func settingsValues(p paths.ProjectPaths, goos string) []keyValue {
	return []keyValue{
		{escapeKey("dart.flutterSdkPath"), p.FlutterDir},
		{escapeKey("dart.sdkPath"), filepath.Join(p.FlutterDir, "bin", "cache", "dart-sdk")},
		{escapeKey("terminal.integrated.env." + TerminalOS(goos)), Env(p, goos)},
	}
}

type keyValue struct {
	path  string
	value any
}

func launchConfig(p paths.ProjectPaths, goos string) map[string]any {
	return map[string]any{
		"name":    LaunchName,
		"type":    "dart",
		"request": "launch",
		"program": "lib/main.dart",
		"env":     Env(p, goos),
	}
}

// Write renders settings.json and launch.json and returns the files written.
// Overwrite mode replaces both documents. Merge mode updates only the managed
// keys of existing documents.
func Write(p paths.ProjectPaths, opts Options) ([]string, error) {
	merge := opts.Mode == config.EditorMerge
	if err := os.MkdirAll(p.VSCodeDir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", p.VSCodeDir, err)
	}

	settingsDoc, err := baseDocument(p.SettingsFile, merge)
	if err != nil {
		return nil, err
	}
	launchDoc, err := baseDocument(p.LaunchFile, merge)
	if err != nil {
		return nil, err
	}
	settings, err := renderSettings(p, opts.goos(), settingsDoc)
	if err != nil {
		return nil, err
	}
	launch, err := renderLaunch(p, opts.goos(), launchDoc)
	if err != nil {
		return nil, err
	}

	var written []string
	for _, doc := range []struct {
		path string
		data []byte
	}{{p.SettingsFile, settings}, {p.LaunchFile, launch}} {
		if err := writeAtomic(doc.path, doc.data); err != nil {
			return written, err
		}
		written = append(written, doc.path)
	}
	return written, nil
}

// baseDocument returns the document to update: the existing file in merge
// mode, otherwise an empty object. Merge mode refuses files it cannot parse,
// such as settings carrying JSONC comments, rather than dropping their content.
func baseDocument(path string, merge bool) ([]byte, error) {
	if !merge {
		return []byte("{}"), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []byte("{}"), nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return []byte("{}"), nil
	}
	if !gjson.ValidBytes(data) || !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("%s is not a plain JSON object; fix it or use overwrite mode", path)
	}
	return data, nil
}

func renderSettings(p paths.ProjectPaths, goos string, doc []byte) ([]byte, error) {
	var err error
	for _, kv := range settingsValues(p, goos) {
		doc, err = sjson.SetBytes(doc, kv.path, kv.value)
		if err != nil {
			return nil, fmt.Errorf("set %s: %w", kv.path, err)
		}
	}
	return format(doc), nil
}

func renderLaunch(p paths.ProjectPaths, goos string, doc []byte) ([]byte, error) {
	doc, err := sjson.SetBytes(doc, "version", launchVersion)
	if err != nil {
		return nil, fmt.Errorf("set version: %w", err)
	}

	target := "configurations.-1"
	configs := gjson.GetBytes(doc, "configurations")
	if !configs.IsArray() {
		doc, err = sjson.SetRawBytes(doc, "configurations", []byte("[]"))
		if err != nil {
			return nil, fmt.Errorf("set configurations: %w", err)
		}
	} else {
		for i, c := range configs.Array() {
			if c.Get("name").String() == LaunchName {
				target = fmt.Sprintf("configurations.%d", i)
				break
			}
		}
	}

	doc, err = sjson.SetBytes(doc, target, launchConfig(p, goos))
	if err != nil {
		return nil, fmt.Errorf("set launch configuration: %w", err)
	}
	return format(doc), nil
}

func format(doc []byte) []byte {
	return pretty.PrettyOptions(doc, &pretty.Options{Width: 80, Indent: "  "})
}

func writeAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Check reads the written documents back and reports every managed path that
// is missing or not rooted under the tooling directory.
func Check(p paths.ProjectPaths, goos string) []error {
	var problems []error

	settings, err := readJSON(p.SettingsFile)
	if err != nil {
		problems = append(problems, err)
	} else {
		for _, key := range []string{"dart.flutterSdkPath", "dart.sdkPath"} {
			problems = append(problems, checkPath(p, "settings "+key, settings.Get(escapeKey(key)))...)
		}
		envKey := "terminal.integrated.env." + TerminalOS(goos)
		problems = append(problems, checkEnv(p, "settings "+envKey, settings.Get(escapeKey(envKey)), goos)...)
	}

	launch, err := readJSON(p.LaunchFile)
	if err != nil {
		problems = append(problems, err)
	} else {
		found := false
		for _, c := range launch.Get("configurations").Array() {
			if c.Get("name").String() == LaunchName {
				found = true
				problems = append(problems, checkEnv(p, "launch env", c.Get("env"), goos)...)
			}
		}
		if !found {
			problems = append(problems, fmt.Errorf("%s: no %q configuration", p.LaunchFile, LaunchName))
		}
	}
	return problems
}

func readJSON(path string) (gjson.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return gjson.Result{}, fmt.Errorf("%s: not written yet", path)
		}
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(data) {
		return gjson.Result{}, fmt.Errorf("%s: invalid JSON", path)
	}
	return gjson.ParseBytes(data), nil
}

func checkPath(p paths.ProjectPaths, label string, value gjson.Result) []error {
	if !value.Exists() || value.String() == "" {
		return []error{fmt.Errorf("%s is not set", label)}
	}
	if !p.Within(value.String()) {
		return []error{fmt.Errorf("%s = %s is outside %s", label, value.String(), p.ToolingDir)}
	}
	return nil
}

func checkEnv(p paths.ProjectPaths, label string, env gjson.Result, goos string) []error {
	if !env.IsObject() {
		return []error{fmt.Errorf("%s is not set", label)}
	}
	var problems []error
	for _, key := range []string{"FLUTTER_ROOT", "ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		problems = append(problems, checkPath(p, label+"."+key, env.Get(key))...)
	}
	sep := ":"
	if goos == "windows" {
		sep = ";"
	}
	// The placeholder itself contains ':' so it must go before splitting.
	value := strings.ReplaceAll(env.Get("PATH").String(), inheritedPath, "")
	for _, entry := range strings.Split(value, sep) {
		if entry == "" {
			continue
		}
		if !p.Within(entry) {
			problems = append(problems, fmt.Errorf("%s.PATH entry %s is outside %s", label, entry, p.ToolingDir))
		}
	}
	return problems
}
