package tui

import (
	"fmt"
	"io"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fatih/color"

	"flutterstrap/internal/tools"
)

// StepOutcome derives the STATUS and DETAIL cells for a finished step.
func StepOutcome(st tools.Status, err error) (string, string) {
	if err != nil {
		return "error", firstLine(err.Error())
	}
	status := string(st.Action)
	if status == "" {
		status = "ok"
	}
	var detail []string
	if st.Version != "" {
		detail = append(detail, st.Version)
	}
	detail = append(detail, st.Notes...)
	if len(detail) == 0 && st.Path != "" {
		detail = append(detail, st.Path)
	}
	return status, strings.Join(detail, "; ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// StepReporter forwards step events to a running ProgressModel.
type StepReporter struct {
	send func(tea.Msg)

	mu     sync.Mutex
	bucket map[string]int64
}

func NewStepReporter(send func(tea.Msg)) *StepReporter {
	return &StepReporter{send: send, bucket: map[string]int64{}}
}

func (r *StepReporter) Start(step, detail string) {
	r.send(RowUpdateMsg{Key: step, Fields: map[string]string{"STATUS": "running", "DETAIL": detail}})
}

// Progress forwards a download update when the whole percentage changes, or
// every MiB when the size is unknown.
func (r *StepReporter) Progress(step string, done, total int64) {
	b := done >> 20
	if total > 0 {
		b = done * 100 / total
	}
	r.mu.Lock()
	last, seen := r.bucket[step]
	if seen && b == last {
		r.mu.Unlock()
		return
	}
	r.bucket[step] = b
	r.mu.Unlock()

	r.send(DownloadMsg{Key: step, Done: done, Total: total})
	if !seen {
		r.send(RowUpdateMsg{Key: step, Fields: map[string]string{"STATUS": "downloading"}})
	}
}

func (r *StepReporter) Finish(step string, st tools.Status, err error) {
	status, detail := StepOutcome(st, err)
	r.send(RowUpdateMsg{Key: step, Fields: map[string]string{"STATUS": status, "DETAIL": detail}})
}

// PlainReporter prints one coloured line per step event.
type PlainReporter struct {
	w io.Writer

	mu       sync.Mutex
	quartile map[string]int64
}

func NewPlainReporter(w io.Writer) *PlainReporter {
	return &PlainReporter{w: w, quartile: map[string]int64{}}
}

func (r *PlainReporter) Start(step, detail string) {
	if detail == "" {
		fmt.Fprintf(r.w, "%s %s\n", color.CyanString("==>"), step)
		return
	}
	fmt.Fprintf(r.w, "%s %s: %s\n", color.CyanString("==>"), step, detail)
}

// Progress prints at each quarter of a download with a known size.
func (r *PlainReporter) Progress(step string, done, total int64) {
	if total <= 0 {
		return
	}
	q := done * 4 / total
	r.mu.Lock()
	last, seen := r.quartile[step]
	if seen && q <= last {
		r.mu.Unlock()
		return
	}
	r.quartile[step] = q
	r.mu.Unlock()
	fmt.Fprintf(r.w, "    %3d%%  %s\n", q*25, FormatBytes(done, total))
}

func (r *PlainReporter) Finish(step string, st tools.Status, err error) {
	status, detail := StepOutcome(st, err)
	var mark string
	switch status {
	case "error":
		mark = color.RedString("x")
	case "skipped", "missing":
		mark = color.YellowString("-")
	default:
		mark = color.GreenString("+")
	}
	line := fmt.Sprintf("  %s %s %s", mark, step, status)
	if detail != "" {
		line += " (" + detail + ")"
	}
	fmt.Fprintln(r.w, line)
}
