package logx

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"flutterstrap/internal/paths"
)

// KeepLogs is how many run logs survive in the logs directory.
const KeepLogs = 20

// RunLog is the log file for one flutterstrap invocation.
type RunLog struct {
	*log.Logger
	Path string
	file *os.File
}

// Open creates <logs>/<stamp>-<command>.log and prunes the oldest run logs so
// at most KeepLogs remain.
func Open(p paths.ProjectPaths, command string, now time.Time) (*RunLog, error) {
	if err := os.MkdirAll(p.LogsDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure logs directory: %w", err)
	}

	name := now.Format("20060102-150405")
	if command = strings.TrimSpace(command); command != "" {
		name += "-" + command
	}
	filePath := filepath.Join(p.LogsDir, name+".log")
	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	if err := prune(p.LogsDir, KeepLogs); err != nil {
		file.Close()
		return nil, err
	}

	return &RunLog{
		Logger: log.New(file, "", log.LstdFlags|log.Lmicroseconds),
		Path:   filePath,
		file:   file,
	}, nil
}

// Close flushes and closes the log file. A nil RunLog is a no-op.
func (r *RunLog) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}

// Discard returns a logger that drops everything.
func Discard() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// prune removes the oldest *.log files so at most keep remain. Names start
// with a sortable timestamp, so lexical order is age order.
func prune(dir string, keep int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read logs directory: %w", err)
	}
	var logs []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".log") {
			logs = append(logs, e.Name())
		}
	}
	if len(logs) <= keep {
		return nil
	}
	sort.Strings(logs)
	for _, name := range logs[:len(logs)-keep] {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("prune log %s: %w", name, err)
		}
	}
	return nil
}
