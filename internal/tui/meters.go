// SPDX-License-Identifier: MIT
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"vocalscan/internal/analysis"
	"vocalscan/internal/session"
)

const (
	refreshInterval = 50 * time.Millisecond
	spectrumColumns = 64
	meterWidth      = 40
	// Loudness meter range in dBFS.
	meterFloorDb = -60.0
)

var sparkLevels = []rune(" ▁▂▃▄▅▆▇█")

// Controller is the live pipeline as seen by the meters.
type Controller interface {
	Start() error
	Stop() (analysis.Summary, error)
	LatestInto(dst []uint8) (analysis.Descriptor, int)
	State() session.State
	Elapsed() time.Duration
	Peak() float64
	DeviceName() string
}

type refreshMsg time.Time

type startedMsg struct{ err error }

type stoppedMsg struct {
	summary analysis.Summary
	err     error
}

// MeterModel shows the latest descriptor, the spectrum and the summary of
// the last recording.
type MeterModel struct {
	ctl      Controller
	spectrum []uint8
	bins     int
	latest   analysis.Descriptor
	state    session.State
	elapsed  time.Duration
	peak     float64
	busy     bool
	summary  *analysis.Summary
	err      error
	loudness progress.Model
	input    progress.Model
	width    int
}

// NewMeterModel creates meters for ctl. bins is the spectrum length.
func NewMeterModel(ctl Controller, bins int) MeterModel {
	return MeterModel{
		ctl:      ctl,
		spectrum: make([]uint8, bins),
		loudness: progress.New(progress.WithDefaultGradient(), progress.WithWidth(meterWidth), progress.WithoutPercentage()),
		input:    progress.New(progress.WithSolidFill("#25A065"), progress.WithWidth(meterWidth), progress.WithoutPercentage()),
	}
}

func refresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return refreshMsg(t) })
}

// Init starts recording right away.
func (m MeterModel) Init() tea.Cmd {
	return tea.Batch(m.start(), refresh())
}

func (m MeterModel) start() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg { return startedMsg{ctl.Start()} }
}

func (m MeterModel) stop() tea.Cmd {
	ctl := m.ctl
	return func() tea.Msg {
		s, err := ctl.Stop()
		return stoppedMsg{s, err}
	}
}

// Summary returns the summary of the last completed recording.
func (m MeterModel) Summary() (analysis.Summary, bool) {
	if m.summary == nil {
		return analysis.Summary{}, false
	}
	return *m.summary, true
}

// Update implements tea.Model.
func (m MeterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width

	case refreshMsg:
		m.state = m.ctl.State()
		m.elapsed = m.ctl.Elapsed()
		m.peak = m.ctl.Peak()
		if m.state == session.Recording {
			m.latest, m.bins = m.ctl.LatestInto(m.spectrum)
		}
		return m, refresh()

	case startedMsg:
		m.busy = false
		m.err = msg.err
		if msg.err == nil {
			m.summary = nil
		}

	case stoppedMsg:
		m.busy = false
		m.err = msg.err
		if msg.err == nil {
			m.summary = &msg.summary
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			if m.ctl.State() == session.Recording {
				ctl := m.ctl
				return m, tea.Sequence(func() tea.Msg {
					s, err := ctl.Stop()
					return stoppedMsg{s, err}
				}, tea.Quit)
			}
			return m, tea.Quit
		case key.Matches(msg, keys.Toggle):
			if m.busy {
				return m, nil
			}
			m.busy = true
			if m.ctl.State() == session.Recording {
				return m, m.stop()
			}
			return m, m.start()
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m MeterModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("VocalScan"))
	fmt.Fprintf(&b, "  %s  %s  %s\n\n",
		infoStyle.Render(m.ctl.DeviceName()),
		highlightStyle.Render(m.state.String()),
		infoStyle.Render(m.elapsed.Round(100*time.Millisecond).String()))

	d := m.latest
	b.WriteString(row("Input", m.input.ViewAs(m.peak)))
	b.WriteString(row("Loudness", m.loudness.ViewAs(loudnessRatio(d.LoudnessDb))+fmt.Sprintf(" %6.1f dB", d.LoudnessDb)))
	b.WriteString(row("Pitch", formatHz(d.PitchHz)))
	b.WriteString(row("F1", formatHz(d.F1Hz)))
	b.WriteString(row("F2", formatHz(d.F2Hz)))
	b.WriteString("\n")
	b.WriteString(panelStyle.Render(Sparkline(m.spectrum[:m.bins], spectrumColumns)))
	b.WriteString("\n")

	if m.summary != nil {
		s := m.summary
		b.WriteString("\n" + highlightStyle.Render("Last recording") + "\n")
		fmt.Fprintf(&b, "  %d of %d frames voiced • pitch %s • F1 %s • F2 %s • %.0f dB\n",
			s.Accepted, s.Frames, formatHz(s.AvgPitchHz), formatHz(s.AvgF1Hz), formatHz(s.AvgF2Hz), s.AvgLoudnessDb)
	}
	if m.err != nil {
		b.WriteString("\n" + errorStyle.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + infoStyle.Render("space: start/stop • q: quit"))
	return b.String()
}

func row(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value) + "\n"
}

func formatHz(hz float64) string {
	if hz <= 0 {
		return "--"
	}
	return fmt.Sprintf("%.0f Hz", math.Round(hz))
}

// loudnessRatio maps dBFS onto [0, 1] over the meter range.
func loudnessRatio(db float64) float64 {
	return min(max((db-meterFloorDb)/-meterFloorDb, 0), 1)
}

// Sparkline renders bins as block characters in the given number of columns.
// Each column shows the maximum of its group of bins.
func Sparkline(bins []uint8, columns int) string {
	if len(bins) == 0 || columns <= 0 {
		return strings.Repeat(" ", max(columns, 0))
	}
	columns = min(columns, len(bins))
	out := make([]rune, columns)
	for c := range out {
		lo := c * len(bins) / columns
		hi := max((c+1)*len(bins)/columns, lo+1)
		var peak uint8
		for _, v := range bins[lo:hi] {
			peak = max(peak, v)
		}
		out[c] = sparkLevels[int(peak)*(len(sparkLevels)-1)/255]
	}
	return string(out)
}

// RunMeters runs the meters full screen and returns the last summary.
func RunMeters(ctl Controller, bins int) (analysis.Summary, bool, error) {
	final, err := tea.NewProgram(NewMeterModel(ctl, bins), tea.WithAltScreen()).Run()
	if err != nil {
		return analysis.Summary{}, false, err
	}
	s, ok := final.(MeterModel).Summary()
	return s, ok, nil
}
