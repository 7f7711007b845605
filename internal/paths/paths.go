package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ToolingDirName is the project-relative folder that holds every downloaded SDK.
const ToolingDirName = ".tooling"

// ProjectPaths captures canonical locations for a bootstrapped project.
type ProjectPaths struct {
	Root          string
	ToolingDir    string
	FlutterDir    string
	AndroidSDKDir string
	DownloadsDir  string
	LogsDir       string
	EnvFile       string
	ConfigFile    string
	VSCodeDir     string
	SettingsFile  string
	LaunchFile    string
}

// Resolve determines the project root using the optional --project flag or the
// current working directory when the flag is empty.
func Resolve(projectFlag string) (ProjectPaths, error) {
	var (
		root string
		err  error
	)

	if projectFlag != "" {
		root, err = filepath.Abs(projectFlag)
	} else {
		root, err = os.Getwd()
	}
	if err != nil {
		return ProjectPaths{}, fmt.Errorf("resolve project root: %w", err)
	}

	return newProjectPaths(root), nil
}

func newProjectPaths(root string) ProjectPaths {
	tooling := filepath.Join(root, ToolingDirName)
	vscode := filepath.Join(root, ".vscode")
	return ProjectPaths{
		Root:          root,
		ToolingDir:    tooling,
		FlutterDir:    filepath.Join(tooling, "flutter"),
		AndroidSDKDir: filepath.Join(tooling, "android-sdk"),
		DownloadsDir:  filepath.Join(tooling, "downloads"),
		LogsDir:       filepath.Join(tooling, "logs"),
		EnvFile:       filepath.Join(root, ".env"),
		ConfigFile:    filepath.Join(root, "flutterstrap.yaml"),
		VSCodeDir:     vscode,
		SettingsFile:  filepath.Join(vscode, "settings.json"),
		LaunchFile:    filepath.Join(vscode, "launch.json"),
	}
}

// WithEnvFile points the override file at a custom location. Relative values
// resolve against the project root.
func (p ProjectPaths) WithEnvFile(value string) ProjectPaths {
	if value = strings.TrimSpace(value); value == "" {
		return p
	}
	p.EnvFile = resolveProjectPath(p.Root, value)
	return p
}

func resolveProjectPath(root, value string) string {
	if filepath.IsAbs(value) {
		return filepath.Clean(value)
	}
	return filepath.Join(root, value)
}

// EnsureTooling creates the tooling root with its downloads and logs folders.
// SDK directories are left alone; their absence is what triggers a fetch.
func (p ProjectPaths) EnsureTooling() error {
	dirs := []string{p.ToolingDir, p.DownloadsDir, p.LogsDir}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Within reports whether target sits at or below the tooling directory.
func (p ProjectPaths) Within(target string) bool {
	rel, err := filepath.Rel(p.ToolingDir, target)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// FileExists reports whether a path exists and is a regular file.
func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.Mode().IsRegular(), nil
}

// DirExists reports whether a path exists and is a directory.
func DirExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

// Exists reports whether anything is present at path.
func Exists(path string) (bool, error) {
	if _, err := os.Lstat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
