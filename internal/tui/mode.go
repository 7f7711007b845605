package tui

import (
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/mattn/go-isatty"
)

// OutputMode selects how bootstrap progress is shown.
type OutputMode int

const (
	ModeTUI OutputMode = iota
	ModePlain
	ModeJSON
)

func (m OutputMode) String() string {
	switch m {
	case ModeTUI:
		return "tui"
	case ModePlain:
		return "plain"
	case ModeJSON:
		return "json"
	}
	return "unknown"
}

// DetectMode picks the interactive view only for a real terminal outside CI.
func DetectMode(out io.Writer, noProgress, jsonOutput bool) OutputMode {
	return detectMode(out, noProgress, jsonOutput, os.Getenv)
}

func detectMode(out io.Writer, noProgress, jsonOutput bool, getenv func(string) string) OutputMode {
	switch {
	case jsonOutput:
		return ModeJSON
	case noProgress, getenv("CI") != "":
		return ModePlain
	}
	file, ok := out.(*os.File)
	if !ok || !(isatty.IsTerminal(file.Fd()) || isatty.IsCygwinTerminal(file.Fd())) {
		return ModePlain
	}
	if term := getenv("TERM"); runtime.GOOS != "windows" && (term == "" || strings.EqualFold(term, "dumb")) {
		return ModePlain
	}
	return ModeTUI
}
