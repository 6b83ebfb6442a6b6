package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const refreshDur = 250 * time.Millisecond

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	tableStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#666666"))

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type tickMsg time.Time

// monitorModel shows live per-bridge statistics.
type monitorModel struct {
	mon     *monitor
	streams func() int
	addr    string
	table   table.Model
	rows    int
	now     func() time.Time
}

func newMonitorModel(mon *monitor, streams func() int, addr string) *monitorModel {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Bridge", Width: 22},
			{Title: "Events", Width: 8},
			{Title: "Touch", Width: 8},
			{Title: "Motion", Width: 8},
			{Title: "Keys", Width: 6},
			{Title: "Down", Width: 5},
			{Title: "Last", Width: 36},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	return &monitorModel{mon: mon, streams: streams, addr: addr, table: t, now: time.Now}
}

func tick() tea.Cmd {
	return tea.Tick(refreshDur, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m *monitorModel) Init() tea.Cmd {
	return tick()
}

func (m *monitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	case tickMsg:
		m.refresh()
		return m, tick()
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *monitorModel) refresh() {
	snap := m.mon.snapshot()
	rows := make([]table.Row, 0, len(snap))
	for _, r := range snap {
		last := r.Last.String()
		if m.now().Sub(r.LastSeen) > 5*time.Second {
			last = "idle"
		}
		rows = append(rows, table.Row{
			r.Peer,
			strconv.FormatUint(r.Total, 10),
			strconv.FormatUint(r.Touches, 10),
			strconv.FormatUint(r.Motion, 10),
			strconv.FormatUint(r.Keys, 10),
			strconv.Itoa(r.Pointers),
			last,
		})
	}
	m.table.SetRows(rows)
	m.rows = len(rows)
}

func (m *monitorModel) View() string {
	s := titleStyle.Render("berrybridge host") + "\n"
	s += fmt.Sprintf("listening on %s, %d bridge(s) connected\n\n", m.addr, m.streams())
	if m.rows == 0 {
		s += idleStyle.Render("waiting for bridges...") + "\n"
	} else {
		s += tableStyle.Render(m.table.View()) + "\n"
	}
	s += helpStyle.Render("q: quit")
	return s
}
