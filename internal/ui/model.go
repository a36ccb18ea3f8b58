package ui

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"

	"github.com/paneboard/paneboard/internal/logging"
	"github.com/paneboard/paneboard/internal/monitor"
	"github.com/paneboard/paneboard/internal/selection"
)

var uiLog = logging.ForComponent(logging.CompUI)

type treeMsg struct{ tree *monitor.Tree }

type monitorErrMsg struct{ err error }

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding
	Filter key.Binding
	Clear  key.Binding
	Quit   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Top:    key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom: key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		Filter: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Clear:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "clear")),
		Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Filter, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.Filter, k.Clear, k.Quit},
	}
}

// Model renders monitor snapshots. It holds no detection logic: every tick
// arrives as a finished tree and the model only filters, reconciles the
// cursor and draws.
type Model struct {
	mon  *monitor.Monitor
	st   styles
	keys keyMap
	help help.Model
	spin spinner.Model

	tree    *monitor.Tree
	visible []monitor.Agent

	sel     selection.State
	selOpts selection.Options

	filtering bool
	filter    string

	width  int
	height int

	lastErr error
}

// New builds the dashboard model for a running monitor.
func New(mon *monitor.Monitor, theme string, snapToNeighbor bool) Model {
	st := newStyles(theme)
	sp := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	sp.Style = st.Working
	return Model{
		mon:     mon,
		st:      st,
		keys:    defaultKeyMap(),
		help:    help.New(),
		spin:    sp,
		selOpts: selection.Options{SnapToNeighbor: snapToNeighbor},
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForTree(), m.waitForErr(), m.spin.Tick)
}

func (m Model) waitForTree() tea.Cmd {
	return func() tea.Msg {
		tree, ok := <-m.mon.Updates()
		if !ok {
			return tea.Quit()
		}
		return treeMsg{tree: tree}
	}
}

func (m Model) waitForErr() tea.Cmd {
	return func() tea.Msg {
		err, ok := <-m.mon.Errors()
		if !ok {
			return nil
		}
		return monitorErrMsg{err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case treeMsg:
		m.tree = msg.tree
		m.lastErr = nil
		m.refresh()
		return m, m.waitForTree()

	case monitorErrMsg:
		if msg.err != nil {
			m.lastErr = msg.err
			uiLog.Debug("monitor_error_shown", slog.String("error", msg.err.Error()))
		}
		return m, m.waitForErr()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.filtering {
		switch msg.Type {
		case tea.KeyEsc:
			m.filtering = false
			m.filter = ""
			m.refresh()
			return m, nil
		case tea.KeyEnter:
			m.filtering = false
			return m, nil
		case tea.KeyBackspace:
			if m.filter != "" {
				r := []rune(m.filter)
				m.filter = string(r[:len(r)-1])
				m.refresh()
			}
			return m, nil
		case tea.KeyRunes:
			m.filter += string(msg.Runes)
			m.refresh()
			return m, nil
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Filter):
		m.filtering = true
		return m, nil
	case key.Matches(msg, m.keys.Clear):
		m.filter = ""
		m.refresh()
		return m, nil
	case key.Matches(msg, m.keys.Up):
		m.move(-1)
		return m, nil
	case key.Matches(msg, m.keys.Down):
		m.move(1)
		return m, nil
	case key.Matches(msg, m.keys.Top):
		m.moveTo(0)
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		m.moveTo(len(m.visible) - 1)
		return m, nil
	}
	return m, nil
}

// refresh recomputes the visible slice from the latest tree and filter,
// then reconciles the cursor against the new order.
func (m *Model) refresh() {
	m.visible = m.visible[:0]
	if m.tree == nil {
		return
	}
	if m.filter == "" {
		m.visible = append(m.visible, m.tree.Agents...)
	} else {
		haystack := make([]string, len(m.tree.Agents))
		for i, a := range m.tree.Agents {
			haystack[i] = a.Session + " " + a.Target + " " + a.DisplayName + " " + a.Title
		}
		for _, match := range fuzzy.Find(m.filter, haystack) {
			m.visible = append(m.visible, m.tree.Agents[match.Index])
		}
	}
	m.sel, _ = selection.Reconcile(m.sel, m.visible, m.selOpts)
}

func (m *Model) move(delta int) {
	m.moveTo(m.cursor() + delta)
}

func (m *Model) moveTo(i int) {
	if len(m.visible) == 0 {
		return
	}
	if i < 0 {
		i = 0
	}
	if i >= len(m.visible) {
		i = len(m.visible) - 1
	}
	m.sel = selection.Select(m.visible, i)
}

// cursor resolves the selection back to an index in the visible order,
// or -1 when nothing is selected.
func (m *Model) cursor() int {
	for i, a := range m.visible {
		if a.UniqueID == m.sel.UniqueID && a.PID == m.sel.PID {
			return i
		}
	}
	return -1
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.headerView())
	b.WriteString("\n\n")

	if m.tree == nil {
		b.WriteString(m.st.Dim.Render("  " + m.spin.View() + " waiting for first poll..."))
		b.WriteString("\n")
	} else if len(m.visible) == 0 {
		b.WriteString(m.st.Dim.Render("  no panes"))
		b.WriteString("\n")
	} else {
		cursor := m.cursor()
		idx := 0
		session := ""
		for _, a := range m.visible {
			if a.Session != session {
				session = a.Session
				b.WriteString(m.st.Session.Render(" " + session))
				b.WriteString("\n")
			}
			b.WriteString(m.rowView(a, idx == cursor))
			b.WriteString("\n")
			idx++
		}
	}

	b.WriteString("\n")
	if m.lastErr != nil {
		b.WriteString(m.st.Attention.Render(" ! " + m.lastErr.Error()))
		b.WriteString("\n")
	}
	if m.filtering || m.filter != "" {
		b.WriteString(m.st.Filter.Render(" /" + m.filter))
		b.WriteString("\n")
	}
	b.WriteString(m.st.Help.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) headerView() string {
	title := m.st.Session.Render(" paneboard")
	if m.tree == nil {
		return title
	}
	s := m.tree.Summarize()
	parts := []string{
		fmt.Sprintf("%d panes", s.Panes),
		fmt.Sprintf("%d agents", s.Agents),
	}
	if s.Working > 0 {
		parts = append(parts, m.st.Working.Render(fmt.Sprintf("%d working %s", s.Working, m.spin.View())))
	}
	if s.Attention > 0 {
		parts = append(parts, m.st.Attention.Render(fmt.Sprintf("%d need attention", s.Attention)))
	}
	return title + m.st.Dim.Render("  ·  ") + strings.Join(parts, m.st.Dim.Render("  ·  "))
}

func (m Model) rowView(a monitor.Agent, selected bool) string {
	marker := "  "
	nameStyle := m.st.Item
	if selected {
		marker = m.st.Selected.Render("> ")
		nameStyle = m.st.Selected
	}

	glyph := m.st.statusStyle(a.Status.Kind).Render(statusGlyph(a.Status.Kind))
	name := nameStyle.Render(runewidth.Truncate(a.DisplayName, 20, "…"))
	target := m.st.Dim.Render(runewidth.FillRight(runewidth.Truncate(a.Target, 24, "…"), 24))

	status := a.Status.Text()
	if status == "" {
		status = a.Status.Kind.String()
	}
	statusText := m.st.statusStyle(a.Status.Kind).Render(runewidth.Truncate(status, 40, "…"))

	row := fmt.Sprintf(" %s%s %s %s %s", marker, glyph, target, name, statusText)
	for _, sub := range a.Subagents {
		mark := " "
		if sub.Active {
			mark = m.st.Working.Render("●")
		}
		row += "\n" + m.st.Dim.Render(fmt.Sprintf("      %s %s", mark, runewidth.Truncate(sub.Name, 48, "…")))
	}
	return row
}
