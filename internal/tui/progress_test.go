package tui

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"flutterstrap/internal/tools"
)

func stepModel() ProgressModel {
	m := NewProgressModel("flutterstrap", StepColumns)
	m.AddRow("flutter", []string{"flutter", "pending"})
	m.AddRow("editor", []string{"editor", "pending"})
	return m
}

func TestRowUpdateMsg(t *testing.T) {
	m := stepModel()

	updated, _ := m.Update(RowUpdateMsg{
		Key:    "flutter",
		Fields: map[string]string{"STATUS": "installed", "DETAIL": "3.24.5"},
	})
	m = updated.(ProgressModel)

	if m.rows[0].Fields[1] != "installed" {
		t.Errorf("expected STATUS=installed, got %q", m.rows[0].Fields[1])
	}
	if m.rows[0].Fields[2] != "3.24.5" {
		t.Errorf("expected DETAIL=3.24.5, got %q", m.rows[0].Fields[2])
	}
	if m.rows[1].Fields[1] != "pending" {
		t.Errorf("expected editor row untouched, got %q", m.rows[1].Fields[1])
	}

	updated, _ = m.Update(RowUpdateMsg{Key: "unknown", Fields: map[string]string{"STATUS": "error"}})
	m = updated.(ProgressModel)
	if m.rows[0].Fields[1] != "installed" || m.rows[1].Fields[1] != "pending" {
		t.Error("unknown key must not change any row")
	}
}

func TestDownloadBar(t *testing.T) {
	m := stepModel()

	updated, _ := m.Update(DownloadMsg{Key: "flutter", Done: 512, Total: 2048})
	m = updated.(ProgressModel)
	if got := m.BarPercent(); got != 0.25 {
		t.Fatalf("BarPercent = %v, want 0.25", got)
	}
	if !strings.Contains(m.View(), "512 B / 2.0 KiB") {
		t.Errorf("expected byte counter in view:\n%s", m.View())
	}

	updated, _ = m.Update(RowUpdateMsg{Key: "flutter", Fields: map[string]string{"STATUS": "installed"}})
	m = updated.(ProgressModel)
	if strings.Contains(m.View(), "KiB") {
		t.Error("bar should disappear once the step leaves downloading")
	}
}

func TestBarPercentUnknownTotal(t *testing.T) {
	m := stepModel()
	updated, _ := m.Update(DownloadMsg{Key: "flutter", Done: 100, Total: -1})
	m = updated.(ProgressModel)
	if m.BarPercent() != 0 {
		t.Fatalf("unknown totals should report 0, got %v", m.BarPercent())
	}
}

func TestWorkDoneAndError(t *testing.T) {
	m := stepModel()
	updated, cmd := m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)
	if !m.Done() || cmd == nil {
		t.Fatal("expected done with quit command")
	}
	if strings.Contains(m.View(), "Step ") {
		t.Error("footer should be hidden once done")
	}

	m = stepModel()
	updated, _ = m.Update(ErrorMsg{Err: errors.New("download failed")})
	m = updated.(ProgressModel)
	if m.Err() == nil || !strings.Contains(m.View(), "Error: download failed") {
		t.Fatalf("expected error in view:\n%s", m.View())
	}
}

func TestCtrlCInterrupts(t *testing.T) {
	m := stepModel()
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(ProgressModel)
	if !errors.Is(m.Err(), ErrInterrupted) || cmd == nil {
		t.Fatalf("expected ErrInterrupted and quit, got %v", m.Err())
	}
}

func TestTickStopsAfterDone(t *testing.T) {
	m := stepModel()
	updated, cmd := m.Update(tickMsg{})
	m = updated.(ProgressModel)
	if m.tick != 1 || cmd == nil {
		t.Fatal("expected tick to advance and reschedule")
	}

	updated, _ = m.Update(WorkDoneMsg{})
	m = updated.(ProgressModel)
	if _, cmd = m.Update(tickMsg{}); cmd != nil {
		t.Error("expected no tick command after done")
	}
}

func TestProgressCounts(t *testing.T) {
	m := NewProgressModel("", StepColumns)
	m.AddRow("a", []string{"a", "pending"})
	m.AddRow("b", []string{"b", "running"})
	m.AddRow("c", []string{"c", "present"})
	m.AddRow("d", []string{"d", "skipped"})

	processed, total := m.progressCounts()
	if processed != 2 || total != 4 {
		t.Errorf("progressCounts = %d/%d, want 2/4", processed, total)
	}
	if !strings.Contains(m.View(), "Step 2/4") {
		t.Error("expected step counter in footer")
	}
}

func TestTruncateAndShorten(t *testing.T) {
	if got := TruncateWithEllipsis("a longer string here", 10); got != "a longe..." {
		t.Errorf("TruncateWithEllipsis = %q", got)
	}
	if got := TruncateWithEllipsis("abcd", 3); got != "abc" {
		t.Errorf("TruncateWithEllipsis short max = %q", got)
	}
	if got := ShortenMiddle("0123456789", 7); got != "01...89" {
		t.Errorf("ShortenMiddle = %q, want 01...89", got)
	}
	if got := ShortenMiddle("short", 10); got != "short" {
		t.Errorf("ShortenMiddle should leave short values, got %q", got)
	}
	if got := NonEmptyOrDash("  "); got != "-" {
		t.Errorf("NonEmptyOrDash = %q", got)
	}
}

func TestStepColumnFitsLongestStep(t *testing.T) {
	m := NewProgressModel("", StepColumns)
	m.AddRow("android-cmdline-tools", []string{"android-cmdline-tools", "pending"})
	if view := m.View(); !strings.Contains(view, "android-cmdline-tools") {
		t.Fatalf("step name was shortened:\n%s", view)
	}
}

func TestRunningRowShowsSpinner(t *testing.T) {
	m := stepModel()
	updated, _ := m.Update(RowUpdateMsg{Key: "flutter", Fields: map[string]string{"STATUS": "running"}})
	m = updated.(ProgressModel)
	if !strings.Contains(m.View(), spinnerFrames[0]+" running") {
		t.Fatalf("expected spinner before running status:\n%s", m.View())
	}

	updated, _ = m.Update(RowUpdateMsg{Key: "flutter", Fields: map[string]string{"DETAIL": "https://example.com"}})
	m = updated.(ProgressModel)
	if !strings.Contains(m.View(), "https://example.com") {
		t.Fatalf("expected detail in view:\n%s", m.View())
	}
}

func TestDetailUpdateKeepsBar(t *testing.T) {
	m := stepModel()
	updated, _ := m.Update(DownloadMsg{Key: "flutter", Done: 1, Total: 4})
	m = updated.(ProgressModel)
	updated, _ = m.Update(RowUpdateMsg{Key: "flutter", Fields: map[string]string{"DETAIL": "x"}})
	m = updated.(ProgressModel)
	if m.barKey != "flutter" {
		t.Fatal("an update without STATUS must not hide the bar")
	}
}

func TestDetectModeNonTerminal(t *testing.T) {
	var buf bytes.Buffer
	if got := DetectMode(&buf, false, false); got != ModePlain {
		t.Errorf("buffer should be plain, got %v", got)
	}
	if got := DetectMode(&buf, false, true); got != ModeJSON {
		t.Errorf("json flag should win, got %v", got)
	}
	if got := DetectMode(os.Stdout, true, false); got != ModePlain {
		t.Errorf("--no-progress should be plain, got %v", got)
	}

	env := map[string]string{"CI": "true", "TERM": "xterm-256color"}
	if got := detectMode(os.Stdout, false, false, func(k string) string { return env[k] }); got != ModePlain {
		t.Errorf("CI should force plain output, got %v", got)
	}
	if ModeJSON.String() != "json" {
		t.Errorf("String = %q", ModeJSON.String())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		done, total int64
		want        string
	}{
		{10, -1, "10 B"},
		{1536, 0, "1.5 KiB"},
		{5 << 20, 700 << 20, "5.0 MiB / 700.0 MiB"},
	}
	for _, tt := range tests {
		if got := FormatBytes(tt.done, tt.total); got != tt.want {
			t.Errorf("FormatBytes(%d, %d) = %q, want %q", tt.done, tt.total, got, tt.want)
		}
	}
}

func TestStepOutcome(t *testing.T) {
	status, detail := StepOutcome(tools.Status{Action: tools.ActionInstalled, Version: "3.24.5", Notes: []string{"downloaded x"}}, nil)
	if status != "installed" || detail != "3.24.5; downloaded x" {
		t.Errorf("got %q %q", status, detail)
	}

	status, detail = StepOutcome(tools.Status{}, errors.New("boom\nstack"))
	if status != "error" || detail != "boom" {
		t.Errorf("got %q %q", status, detail)
	}

	status, detail = StepOutcome(tools.Status{Path: "/p"}, nil)
	if status != "ok" || detail != "/p" {
		t.Errorf("got %q %q", status, detail)
	}
}

func TestStepReporterSendsRowUpdates(t *testing.T) {
	var msgs []tea.Msg
	r := NewStepReporter(func(msg tea.Msg) { msgs = append(msgs, msg) })
	r.Start("flutter", "downloading")
	r.Progress("flutter", 1, 2)
	r.Finish("flutter", tools.Status{Action: tools.ActionPresent}, nil)

	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	last, ok := msgs[3].(RowUpdateMsg)
	if !ok || last.Fields["STATUS"] != "present" {
		t.Fatalf("unexpected final message %#v", msgs[3])
	}
}

func TestStepReporterThrottlesDownloads(t *testing.T) {
	var downloads, rows int
	var last DownloadMsg
	r := NewStepReporter(func(msg tea.Msg) {
		switch m := msg.(type) {
		case DownloadMsg:
			downloads++
			last = m
		case RowUpdateMsg:
			rows++
		}
	})
	const total = 50_000
	for done := int64(512); done <= total; done += 512 {
		r.Progress("flutter", done, total)
	}
	r.Progress("flutter", total, total)

	if downloads > 101 {
		t.Errorf("expected at most one message per percent, got %d", downloads)
	}
	if rows != 1 {
		t.Errorf("expected a single downloading row update, got %d", rows)
	}
	if last.Done != total {
		t.Errorf("final update done = %d, want %d", last.Done, total)
	}

	downloads = 0
	for done := int64(0); done < 3<<20; done += 64 << 10 {
		r.Progress("cmdline-tools", done, -1)
	}
	if downloads != 3 {
		t.Errorf("unknown size should update once per MiB, got %d", downloads)
	}
}

func TestPlainReporter(t *testing.T) {
	var buf bytes.Buffer
	r := NewPlainReporter(&buf)
	r.Start("flutter", "https://example.com/flutter.zip")
	for _, done := range []int64{10, 20, 50, 60, 100} {
		r.Progress("flutter", done, 100)
	}
	r.Finish("flutter", tools.Status{Action: tools.ActionInstalled, Version: "3.24.5"}, nil)
	r.Finish("msvc", tools.Status{Action: tools.ActionSkipped}, nil)

	out := buf.String()
	for _, want := range []string{"flutter: https://example.com/flutter.zip", " 50%", "100%", "flutter installed (3.24.5)", "msvc skipped"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "%") != 3 {
		t.Errorf("expected one line per new quarter (0, 50, 100), got:\n%s", out)
	}
}
