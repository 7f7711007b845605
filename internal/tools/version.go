package tools

import (
	"bufio"
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// FlutterVersion reads the framework version recorded in a Flutter checkout.
// Archives ship a plain "version" file; newer SDKs write flutter.version.json
// into the cache on first run.
func FlutterVersion(flutterDir string) string {
	if data, err := os.ReadFile(filepath.Join(flutterDir, "version")); err == nil {
		if v := firstLine(strings.TrimSpace(string(data))); v != "" {
			return v
		}
	}
	data, err := os.ReadFile(filepath.Join(flutterDir, "bin", "cache", "flutter.version.json"))
	if err != nil {
		return ""
	}
	return gjson.GetBytes(data, "frameworkVersion").String()
}

// SourceRevision returns Pkg.Revision from an Android SDK source.properties file.
func SourceRevision(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "source.properties"))
	if err != nil {
		return ""
	}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), "=")
		if ok && strings.TrimSpace(key) == "Pkg.Revision" {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func firstLine(text string) string {
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}

// meetsMinimum compares dotted numeric versions; missing parts count as zero.
func meetsMinimum(version, minimum string) bool {
	if minimum == "" {
		return true
	}
	have, want := numericParts(version), numericParts(minimum)
	if len(have) == 0 {
		return false
	}
	for i := 0; i < max(len(have), len(want)); i++ {
		h, w := partAt(have, i), partAt(want, i)
		if h != w {
			return h > w
		}
	}
	return true
}

func partAt(parts []int, i int) int {
	if i < len(parts) {
		return parts[i]
	}
	return 0
}

func numericParts(version string) []int {
	fields := strings.FieldsFunc(version, func(r rune) bool { return r < '0' || r > '9' })
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			break
		}
		parts = append(parts, n)
	}
	return parts
}
