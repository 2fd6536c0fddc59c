package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/kestrelsec/walletscout/pkg/walletscout/session"
)

// pollInterval is how often the display refreshes from the manager.
const pollInterval = 100 * time.Millisecond

// statusMsg carries a fresh manager snapshot into the model.
type statusMsg session.Status

// ScanModel renders a running scan: collection phase with a spinner, then
// classification with a determinate progress bar.
type ScanModel struct {
	rootPath string
	status   func() session.Status
	stop     func() error

	spinner  spinner.Model
	progress progress.Model
	snapshot session.Status

	startTime time.Time
	width     int
	height    int
	stopping  bool
	done      bool
	err       error
}

// NewScanModel creates the display for one scan. The status and stop
// functions bridge to the session manager.
func NewScanModel(rootPath string, status func() session.Status, stop func() error) ScanModel {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	p := progress.New(progress.WithDefaultGradient())

	return ScanModel{
		rootPath:  rootPath,
		status:    status,
		stop:      stop,
		spinner:   s,
		progress:  p,
		startTime: time.Now(),
		width:     80,
		height:    24,
	}
}

// Err returns the scan failure, if any, once the display has exited.
func (m ScanModel) Err() error {
	return m.err
}

// Init starts the spinner and the status poll loop.
func (m ScanModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.pollStatus())
}

// pollStatus fetches a status snapshot after the poll interval.
func (m ScanModel) pollStatus() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg {
		return statusMsg(m.status())
	})
}

// Update handles messages for the scanning model.
func (m ScanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = m.width - 10
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			// First press requests a cooperative stop; the display stays
			// up until the session drains.
			if !m.stopping {
				m.stopping = true
				_ = m.stop()
				return m, nil
			}
			return m, tea.Quit
		}
		return m, nil

	case statusMsg:
		m.snapshot = session.Status(msg)
		if m.snapshot.State == session.StateIdle && m.snapshot.LastScan != nil {
			m.done = true
			if m.snapshot.LastScan.Error != "" {
				m.err = fmt.Errorf("%s", m.snapshot.LastScan.Error)
			}
			return m, tea.Quit
		}
		return m, m.pollStatus()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the scanning model.
func (m ScanModel) View() string {
	var b strings.Builder

	contentWidth := m.width - 4
	if contentWidth < 40 {
		contentWidth = 40
	}

	b.WriteString("\n")
	b.WriteString(m.renderHeader(contentWidth))
	b.WriteString("\n")
	b.WriteString(dividerStyle.Render(strings.Repeat("─", contentWidth)))
	b.WriteString("\n\n")

	switch {
	case m.done && m.err != nil:
		b.WriteString(errorTextStyle.Render(fmt.Sprintf("  Error: %v", m.err)))
	case m.done:
		b.WriteString(successTextStyle.Render("  Scan complete!"))
	case m.stopping:
		b.WriteString(mutedTextStyle.Render("  Stopping, letting in-flight files finish..."))
	case m.snapshot.Phase == session.PhaseClassifying:
		b.WriteString(fmt.Sprintf("  %s Classifying: %s",
			m.spinner.View(), truncatePath(m.currentPath(), contentWidth-20)))
	default:
		b.WriteString(fmt.Sprintf("  %s Collecting candidates in %s",
			m.spinner.View(), truncatePath(m.rootPath, contentWidth-30)))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderProgressBar())
	b.WriteString("\n\n")

	b.WriteString(m.renderStats(contentWidth))
	b.WriteString("\n")

	content := b.String()
	contentLines := strings.Count(content, "\n") + 1
	availableLines := m.height - 2
	if availableLines > contentLines {
		content += strings.Repeat("\n", availableLines-contentLines)
	}

	return outerBoxStyle.Width(m.width - 2).Height(m.height - 2).Render(content)
}

// renderHeader renders the title line.
func (m ScanModel) renderHeader(width int) string {
	title := titleStyle.Render("  walletscout")
	hint := mutedTextStyle.Render("[q to stop]")

	spacing := width - lipgloss.Width(title) - lipgloss.Width(hint)
	if spacing < 1 {
		spacing = 1
	}
	return title + strings.Repeat(" ", spacing) + hint
}

// renderProgressBar renders a determinate bar during classification and an
// empty track while collecting.
func (m ScanModel) renderProgressBar() string {
	percent := 0.0
	if p := m.snapshot.Progress; p != nil && p.TotalFiles > 0 {
		percent = float64(p.FilesScanned) / float64(p.TotalFiles)
	}
	return "  " + m.progress.ViewAs(percent)
}

// renderStats renders the statistics boxes.
func (m ScanModel) renderStats(totalWidth int) string {
	boxWidth := (totalWidth - 10) / 4
	if boxWidth < 12 {
		boxWidth = 12
	}

	scanned, found, eta := "-", "-", "-"
	if p := m.snapshot.Progress; p != nil {
		if m.snapshot.Phase == session.PhaseCollecting {
			scanned = "~" + humanize.Comma(p.EstimatedTotalFiles)
		} else {
			scanned = fmt.Sprintf("%s/%s",
				humanize.Comma(p.FilesScanned), humanize.Comma(p.TotalFiles))
		}
		found = findingCountStyle.Render(humanize.Comma(p.FilesFound))
		if p.ETA > 0 {
			eta = formatDuration(p.ETA)
		}
	}
	elapsed := formatDuration(time.Since(m.startTime))

	return lipgloss.JoinHorizontal(lipgloss.Top,
		"  ",
		m.renderStatBox("Files", scanned, boxWidth), " ",
		m.renderStatBox("Findings", found, boxWidth), " ",
		m.renderStatBox("Elapsed", elapsed, boxWidth), " ",
		m.renderStatBox("ETA", eta, boxWidth))
}

// renderStatBox renders a single stat box.
func (m ScanModel) renderStatBox(label, value string, width int) string {
	content := lipgloss.JoinVertical(lipgloss.Center,
		center(statsLabelStyle.Render(label), width-4),
		center(statsValueStyle.Render(value), width-4))
	return statsBoxStyle.Width(width).Render(content)
}

// currentPath returns the file most recently dispatched to a worker.
func (m ScanModel) currentPath() string {
	if p := m.snapshot.Progress; p != nil {
		return p.CurrentPath
	}
	return ""
}

// formatDuration formats a duration as M:SS.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	minutes := d / time.Minute
	seconds := (d % time.Minute) / time.Second
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// truncatePath shortens a path from the left to fit the given width.
func truncatePath(path string, width int) string {
	if width < 4 {
		width = 4
	}
	if lipgloss.Width(path) <= width {
		return path
	}
	runes := []rune(path)
	if len(runes) <= width-3 {
		return path
	}
	return "..." + string(runes[len(runes)-(width-3):])
}

// center pads a string to the given width, centering its content.
func center(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	left := (width - w) / 2
	right := width - w - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}
