// Package ui renders merge progress in the terminal.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"weld/internal/diagfmt"
	mp "weld/internal/progress"
)

type progressModel struct {
	title      string
	events     <-chan mp.Event
	spinner    spinner.Model
	prog       progress.Model
	items      []assemblyItem
	index      map[string]int
	stageLabel string
	width      int
	done       bool
}

type assemblyItem struct {
	name   string
	status string
	stage  mp.Stage
}

type eventMsg mp.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that lists every assembly
// with its current stage. Assemblies that first appear in events (closure
// additions, references) are appended.
func NewProgressModel(title string, assemblies []string, events <-chan mp.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = busyStyle

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	m := &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		index:   make(map[string]int, len(assemblies)),
		width:   80,
	}
	for _, name := range assemblies {
		m.item(name)
	}
	return m
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(mp.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		pm, cmd := m.prog.Update(msg)
		m.prog = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	header := m.title
	if m.stageLabel != "" {
		header = fmt.Sprintf("%s (%s)", header, m.stageLabel)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-16, 20)
	for _, it := range m.items {
		status := styleStatus(it.status).Render(fmt.Sprintf("%12s", it.status))
		fmt.Fprintf(&b, "  %s %s\n", status, diagfmt.Truncate(it.name, nameWidth))
	}
	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) item(name string) *assemblyItem {
	idx, ok := m.index[name]
	if !ok {
		idx = len(m.items)
		m.items = append(m.items, assemblyItem{name: name, status: string(mp.StatusQueued)})
		m.index[name] = idx
	}
	return &m.items[idx]
}

func (m *progressModel) applyEvent(ev mp.Event) tea.Cmd {
	label := statusLabel(ev.Stage, ev.Status)
	if ev.Assembly == "" {
		if ev.Status == mp.StatusWorking {
			m.stageLabel = label
		}
		return nil
	}
	it := m.item(ev.Assembly)
	// load done is only halfway; merge done is final
	if ev.Stage == mp.StageLoad && ev.Status == mp.StatusDone {
		label = "loaded"
	}
	if label != "" {
		it.status = label
		it.stage = ev.Stage
	}
	return m.prog.SetPercent(m.percent())
}

func (m *progressModel) percent() float64 {
	if len(m.items) == 0 {
		return 0
	}
	total := 0.0
	for _, it := range m.items {
		switch {
		case it.status == "error":
			total += 1
		case it.stage == mp.StageMerge && it.status == "done":
			total += 1
		case it.stage == mp.StageMerge && it.status != "queued":
			total += 0.6
		case it.status == "loaded", it.stage == mp.StageMerge:
			total += 0.4
		case it.stage == mp.StageLoad:
			total += 0.2
		}
	}
	return total / float64(len(m.items))
}

func statusLabel(stage mp.Stage, status mp.Status) string {
	switch status {
	case mp.StatusQueued:
		return "queued"
	case mp.StatusDone:
		return "done"
	case mp.StatusError:
		return "error"
	case mp.StatusWorking:
		return stageLabel(stage)
	default:
		return ""
	}
}

func stageLabel(stage mp.Stage) string {
	switch stage {
	case mp.StageLoad:
		return "loading"
	case mp.StageMerge:
		return "merging"
	case mp.StageFixup:
		return "fixing up"
	case mp.StageAccess:
		return "repairing"
	case mp.StageWrite:
		return "writing"
	default:
		return string(stage)
	}
}

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	statusStyles = map[string]lipgloss.Style{
		"done":   lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"loaded": lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		"error":  lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		"queued": lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
	}
	busyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

func styleStatus(status string) lipgloss.Style {
	if st, ok := statusStyles[status]; ok {
		return st
	}
	return busyStyle
}
