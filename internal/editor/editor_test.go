package editor

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"flutterstrap/internal/config"
	"flutterstrap/internal/paths"
)

func projectPaths(t *testing.T) paths.ProjectPaths {
	t.Helper()
	pp, err := paths.Resolve(t.TempDir())
	require.NoError(t, err)
	return pp
}

func readDoc(t *testing.T, path string) gjson.Result {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.True(t, gjson.ValidBytes(data), "invalid JSON in %s", path)
	return gjson.ParseBytes(data)
}

func TestWriteOverwrite(t *testing.T) {
	pp := projectPaths(t)

	written, err := Write(pp, Options{Mode: config.EditorOverwrite, GOOS: "linux"})
	require.NoError(t, err)
	assert.Equal(t, []string{pp.SettingsFile, pp.LaunchFile}, written)

	settings := readDoc(t, pp.SettingsFile)
	assert.Equal(t, pp.FlutterDir, settings.Get(`dart\.flutterSdkPath`).String())
	assert.Equal(t, filepath.Join(pp.FlutterDir, "bin", "cache", "dart-sdk"), settings.Get(`dart\.sdkPath`).String())

	env := settings.Get(`terminal\.integrated\.env\.linux`)
	require.True(t, env.IsObject())
	assert.Equal(t, pp.AndroidSDKDir, env.Get("ANDROID_HOME").String())
	assert.Equal(t, pp.AndroidSDKDir, env.Get("ANDROID_SDK_ROOT").String())
	path := env.Get("PATH").String()
	assert.True(t, strings.HasPrefix(path, filepath.Join(pp.FlutterDir, "bin")+":"), path)
	assert.True(t, strings.HasSuffix(path, ":${env:PATH}"), path)

	launch := readDoc(t, pp.LaunchFile)
	assert.Equal(t, "0.2.0", launch.Get("version").String())
	configs := launch.Get("configurations").Array()
	require.Len(t, configs, 1)
	assert.Equal(t, LaunchName, configs[0].Get("name").String())
	assert.Equal(t, "dart", configs[0].Get("type").String())
	assert.Equal(t, "launch", configs[0].Get("request").String())
	assert.Equal(t, "lib/main.dart", configs[0].Get("program").String())
	assert.Equal(t, pp.FlutterDir, configs[0].Get("env.FLUTTER_ROOT").String())

	assert.Empty(t, Check(pp, "linux"))
}

func TestWrittenPathsAreRootedUnderTooling(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("drive letters clash with the PATH separator used below")
	}
	pp := projectPaths(t)
	_, err := Write(pp, Options{GOOS: "linux"})
	require.NoError(t, err)

	var visit func(r gjson.Result)
	visit = func(r gjson.Result) {
		switch {
		case r.IsObject() || r.IsArray():
			r.ForEach(func(_, v gjson.Result) bool {
				visit(v)
				return true
			})
		case r.Type == gjson.String && filepath.IsAbs(r.String()):
			assert.True(t, pp.Within(r.String()), "%s escapes tooling dir", r.String())
		case r.Type == gjson.String && strings.Contains(r.String(), ":"):
			for _, entry := range strings.Split(r.String(), ":") {
				if filepath.IsAbs(entry) {
					assert.True(t, pp.Within(entry), "%s escapes tooling dir", entry)
				}
			}
		}
	}
	visit(readDoc(t, pp.SettingsFile))
	visit(readDoc(t, pp.LaunchFile))
}

func TestWriteOverwriteDropsForeignKeys(t *testing.T) {
	pp := projectPaths(t)
	require.NoError(t, os.MkdirAll(pp.VSCodeDir, 0o755))
	require.NoError(t, os.WriteFile(pp.SettingsFile, []byte(`{"editor.fontSize": 14}`), 0o644))

	_, err := Write(pp, Options{Mode: config.EditorOverwrite, GOOS: "linux"})
	require.NoError(t, err)
	assert.False(t, readDoc(t, pp.SettingsFile).Get(`editor\.fontSize`).Exists())
}

func TestWriteMergeKeepsForeignKeys(t *testing.T) {
	pp := projectPaths(t)
	require.NoError(t, os.MkdirAll(pp.VSCodeDir, 0o755))
	require.NoError(t, os.WriteFile(pp.SettingsFile, []byte(`{
  "editor.fontSize": 14,
  "dart.flutterSdkPath": "/usr/local/flutter"
}`), 0o644))
	require.NoError(t, os.WriteFile(pp.LaunchFile, []byte(`{
  "version": "0.2.0",
  "configurations": [
    {"name": "Attach", "type": "dart", "request": "attach"},
    {"name": "Flutter (local SDK)", "type": "dart", "request": "launch", "program": "old.dart"}
  ]
}`), 0o644))

	_, err := Write(pp, Options{Mode: config.EditorMerge, GOOS: "linux"})
	require.NoError(t, err)

	settings := readDoc(t, pp.SettingsFile)
	assert.Equal(t, int64(14), settings.Get(`editor\.fontSize`).Int())
	assert.Equal(t, pp.FlutterDir, settings.Get(`dart\.flutterSdkPath`).String())

	configs := readDoc(t, pp.LaunchFile).Get("configurations").Array()
	require.Len(t, configs, 2)
	assert.Equal(t, "Attach", configs[0].Get("name").String())
	assert.Equal(t, "lib/main.dart", configs[1].Get("program").String())

	// A second merge must not append another managed configuration.
	_, err = Write(pp, Options{Mode: config.EditorMerge, GOOS: "linux"})
	require.NoError(t, err)
	assert.Len(t, readDoc(t, pp.LaunchFile).Get("configurations").Array(), 2)
}

func TestWriteMergeRejectsUnparseableSettings(t *testing.T) {
	pp := projectPaths(t)
	require.NoError(t, os.MkdirAll(pp.VSCodeDir, 0o755))
	original := []byte("{\n  // comment\n  \"editor.fontSize\": 14\n}")
	require.NoError(t, os.WriteFile(pp.SettingsFile, original, 0o644))

	_, err := Write(pp, Options{Mode: config.EditorMerge, GOOS: "linux"})
	require.Error(t, err)

	data, err := os.ReadFile(pp.SettingsFile)
	require.NoError(t, err)
	assert.Equal(t, original, data)
}

func TestWriteWindows(t *testing.T) {
	pp := projectPaths(t)
	_, err := Write(pp, Options{GOOS: "windows"})
	require.NoError(t, err)

	settings := readDoc(t, pp.SettingsFile)
	env := settings.Get(`terminal\.integrated\.env\.windows`)
	require.True(t, env.IsObject())
	assert.False(t, settings.Get(`terminal\.integrated\.env\.linux`).Exists())
	assert.True(t, strings.HasSuffix(env.Get("PATH").String(), ";${env:PATH}"))
	assert.Empty(t, Check(pp, "windows"))
}

func TestCheckReportsProblems(t *testing.T) {
	pp := projectPaths(t)
	problems := Check(pp, "linux")
	require.Len(t, problems, 2)
	assert.Contains(t, problems[0].Error(), "not written yet")

	_, err := Write(pp, Options{GOOS: "linux"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(pp.SettingsFile, []byte(`{"dart.flutterSdkPath": "/opt/flutter"}`), 0o644))

	problems = Check(pp, "linux")
	var msgs []string
	for _, p := range problems {
		msgs = append(msgs, p.Error())
	}
	joined := strings.Join(msgs, "\n")
	assert.Contains(t, joined, "/opt/flutter is outside")
	assert.Contains(t, joined, "dart.sdkPath is not set")
}

func TestCheckSplitsPathAroundInheritedPlaceholder(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("drive letters clash with the ':' PATH separator")
	}
	for _, goos := range []string{"linux", "darwin"} {
		goos := goos
		t.Run(goos, func(t *testing.T) {
			pp := projectPaths(t)
			_, err := Write(pp, Options{GOOS: goos})
			require.NoError(t, err)
			assert.Empty(t, Check(pp, goos))
		})
	}

	pp := projectPaths(t)
	_, err := Write(pp, Options{GOOS: "linux"})
	require.NoError(t, err)
	envKey := `terminal\.integrated\.env\.linux`
	doc := readDoc(t, pp.SettingsFile)
	patched := strings.Replace(doc.Raw, doc.Get(envKey+".PATH").Raw, `"/opt/bin:${env:PATH}"`, 1)
	require.NoError(t, os.WriteFile(pp.SettingsFile, []byte(patched), 0o644))

	problems := Check(pp, "linux")
	require.Len(t, problems, 1)
	assert.Contains(t, problems[0].Error(), "PATH entry /opt/bin is outside")
}

func TestTerminalOS(t *testing.T) {
	assert.Equal(t, "osx", TerminalOS("darwin"))
	assert.Equal(t, "windows", TerminalOS("windows"))
	assert.Equal(t, "linux", TerminalOS("freebsd"))
}
