package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	tickInterval = 120 * time.Millisecond
	barWidth     = 40
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// tickMsg advances the spinner.
type tickMsg time.Time

// Column defines a single column in the progress table.
type Column struct {
	Header string
	Width  int
}

// Row holds the field values for a single table row.
type Row struct {
	Key    string
	Fields []string
}

// StepColumns is the layout used for bootstrap steps.
var StepColumns = []Column{
	{Header: "STEP", Width: 22},
	{Header: "STATUS", Width: 14},
	{Header: "DETAIL", Width: 60},
}

// ProgressModel renders one row per step with a download bar underneath while
// an archive is being fetched.
type ProgressModel struct {
	columns  []Column
	rows     []Row
	rowIndex map[string]int
	title    string
	done     bool
	err      error

	// statusCol caches the index of the STATUS column (-1 if absent).
	statusCol int

	bar      progress.Model
	barKey   string
	barDone  int64
	barTotal int64

	tick int
}

// NewProgressModel creates a progress model with the given title and columns.
func NewProgressModel(title string, columns []Column) ProgressModel {
	statusCol := -1
	for i, c := range columns {
		if strings.EqualFold(c.Header, "STATUS") {
			statusCol = i
			break
		}
	}
	return ProgressModel{
		columns:   columns,
		rowIndex:  make(map[string]int),
		title:     title,
		statusCol: statusCol,
		bar:       progress.New(progress.WithDefaultGradient(), progress.WithWidth(barWidth)),
	}
}

// AddRow pre-populates a row. Call this before the program starts.
func (m *ProgressModel) AddRow(key string, fields []string) {
	padded := make([]string, len(m.columns))
	copy(padded, fields)
	m.rowIndex[key] = len(m.rows)
	m.rows = append(m.rows, Row{Key: key, Fields: padded})
}

func scheduleTick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init satisfies the tea.Model interface.
func (m ProgressModel) Init() tea.Cmd {
	return scheduleTick()
}

// Update satisfies the tea.Model interface.
func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.tick++
		if m.done {
			return m, nil
		}
		return m, scheduleTick()

	case RowUpdateMsg:
		m.applyRowUpdate(msg)
		if status, ok := msg.Fields["STATUS"]; ok && msg.Key == m.barKey && status != "downloading" {
			m.barKey = ""
		}
		return m, nil

	case DownloadMsg:
		m.barKey = msg.Key
		m.barDone = msg.Done
		m.barTotal = msg.Total
		return m, nil

	case WorkDoneMsg:
		m.done = true
		m.barKey = ""
		return m, tea.Quit

	case ErrorMsg:
		m.err = msg.Err
		m.done = true
		return m, tea.Quit

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.err = ErrInterrupted
			m.done = true
			return m, tea.Quit
		}
	}
	return m, nil
}

// applyRowUpdate updates a row's fields from a RowUpdateMsg.
func (m *ProgressModel) applyRowUpdate(msg RowUpdateMsg) {
	idx, ok := m.rowIndex[msg.Key]
	if !ok {
		return
	}
	row := &m.rows[idx]
	for j, col := range m.columns {
		if val, exists := msg.Fields[col.Header]; exists {
			row.Fields[j] = val
		}
	}
}

// View satisfies the tea.Model interface.
func (m ProgressModel) View() string {
	var b strings.Builder
	if m.title != "" {
		b.WriteString(TitleStyle.Render(m.title))
		b.WriteString("\n\n")
	}

	cells := make([]string, len(m.columns))
	for i, col := range m.columns {
		cells[i] = HeaderStyle.Width(m.columnWidth(i)).Render(col.Header)
	}
	b.WriteString(strings.Join(cells, "  "))
	b.WriteByte('\n')

	for _, row := range m.rows {
		for i := range m.columns {
			cells[i] = m.renderCell(row, i)
		}
		b.WriteString(strings.Join(cells, "  "))
		b.WriteByte('\n')
	}

	if m.barKey != "" {
		fmt.Fprintf(&b, "\n%s %s\n", m.bar.ViewAs(m.BarPercent()), FormatBytes(m.barDone, m.barTotal))
	}

	switch {
	case m.done && m.err != nil:
		fmt.Fprintf(&b, "\nError: %v\n", m.err)
	case !m.done:
		processed, total := m.progressCounts()
		fmt.Fprintf(&b, "\nStep %d/%d\n", processed, total)
	}

	return b.String()
}

func (m ProgressModel) columnWidth(i int) int {
	col := m.columns[i]
	if col.Width > len(col.Header) {
		return col.Width
	}
	return len(col.Header)
}

// renderCell fits a field into its column. Active steps get a spinner in
// front of their status.
func (m ProgressModel) renderCell(row Row, i int) string {
	width := m.columnWidth(i)
	val := ""
	if i < len(row.Fields) {
		val = strings.TrimSpace(row.Fields[i])
	}
	if i != m.statusCol {
		return lipgloss.NewStyle().Width(width).Render(ShortenMiddle(val, width))
	}
	text := val
	if active(val) && !m.done {
		text = spinnerFrames[m.tick%len(spinnerFrames)] + " " + val
	}
	return StatusStyle(val).Width(width).Render(TruncateWithEllipsis(text, width))
}

func active(status string) bool {
	return status == "running" || status == "downloading"
}

// BarPercent returns the download completion in [0, 1]. Unknown sizes report 0.
func (m ProgressModel) BarPercent() float64 {
	if m.barTotal <= 0 {
		return 0
	}
	pct := float64(m.barDone) / float64(m.barTotal)
	if pct > 1 {
		return 1
	}
	return pct
}

// progressCounts returns (finished, total) based on how many rows have left
// the pending and running states.
func (m ProgressModel) progressCounts() (int, int) {
	total := len(m.rows)
	processed := 0
	if m.statusCol < 0 {
		return 0, total
	}
	for _, row := range m.rows {
		if m.statusCol < len(row.Fields) {
			status := strings.TrimSpace(row.Fields[m.statusCol])
			if status != "" && status != "pending" && !active(status) {
				processed++
			}
		}
	}
	return processed, total
}

// Done returns whether the model has finished (work done or error).
func (m ProgressModel) Done() bool {
	return m.done
}

// Err returns any fatal error that occurred.
func (m ProgressModel) Err() error {
	return m.err
}

// FormatBytes renders "12.3 MiB / 700.0 MiB", or only the first part when the
// total is unknown.
func FormatBytes(done, total int64) string {
	if total <= 0 {
		return humanBytes(done)
	}
	return humanBytes(done) + " / " + humanBytes(total)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// NonEmptyOrDash returns "-" for empty/whitespace strings.
func NonEmptyOrDash(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}

// TruncateWithEllipsis truncates a string and adds "..." if it exceeds max runes.
func TruncateWithEllipsis(value string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(strings.TrimSpace(value))
	if len(runes) <= max {
		return string(runes)
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

// ShortenMiddle keeps both ends of value and elides the middle, which suits
// URLs and paths whose tails carry the version.
func ShortenMiddle(value string, max int) string {
	runes := []rune(value)
	if len(runes) <= max {
		return value
	}
	if max <= 3 {
		return TruncateWithEllipsis(value, max)
	}
	keep := max - 3
	head := keep / 2
	tail := keep - head
	return string(runes[:head]) + "..." + string(runes[len(runes)-tail:])
}
