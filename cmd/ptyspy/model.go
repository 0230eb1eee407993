package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/vt"
	"github.com/muesli/reflow/wordwrap"
	"github.com/sahilm/fuzzy"
)

var (
	statusStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	closedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// sessionItem is one entry in the session picker list (bubbles/list). It
// satisfies list.DefaultItem so the default delegate can render it, and
// FilterValue so filterSessions (driven by the "/" key binding in Update)
// can fuzzy-match it against argv via github.com/sahilm/fuzzy, the same
// library the teacher uses for its own process filter.
type sessionItem struct {
	id     int
	argv   []string
	closed bool
	term   *vt.Terminal
}

func (i sessionItem) Title() string {
	label := strings.Join(i.argv, " ")
	if i.closed {
		return closedStyle.Render(fmt.Sprintf("#%d %s (closed)", i.id, label))
	}
	return fmt.Sprintf("#%d %s", i.id, label)
}
func (i sessionItem) Description() string { return "" }
func (i sessionItem) FilterValue() string { return strings.Join(i.argv, " ") }

// eventMsg wraps one decoded wire event as a tea.Msg.
type eventMsg event

// model is the bubbletea program driving the session list and the active
// session's live output view.
type model struct {
	client   *client
	list     list.Model
	sessions map[int]*sessionItem
	// allItems holds every session in creation order, independent of
	// what the list is currently displaying — filterSessions recomputes
	// the displayed subset from this slice on every filter keystroke.
	allItems    []*sessionItem
	activeID    int
	width       int
	height      int
	statusMsg   string
	filtering   bool
	filterQuery string
}

func newModel(c *client) model {
	delegate := list.NewDefaultDelegate()
	l := list.New(nil, delegate, 0, 0)
	l.Title = "ptyspy sessions"
	l.SetShowHelp(false)

	return model{
		client:   c,
		list:     l,
		sessions: map[int]*sessionItem{},
	}
}

func (m model) Init() tea.Cmd {
	return waitForEvent(m.client)
}

// waitForEvent blocks on the client's event channel and delivers the next
// decoded wire event as a tea.Msg, re-armed by the caller after each
// delivery — the bubbletea analogue of the supervisor's Activity Signal
// wait/dispatch cycle.
func waitForEvent(c *client) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-c.events
		if !ok {
			return tea.Quit()
		}
		return eventMsg(ev)
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		listHeight := m.height / 3
		m.list.SetSize(msg.Width, listHeight)
		for _, it := range m.sessions {
			if it.term != nil {
				it.term.Resize(m.width, m.height-listHeight-2)
			}
		}
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFiltering(msg), nil
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.client.terminate()
			return m, tea.Quit
		case "tab":
			m.cycleActive()
			return m, nil
		case "/":
			m.filtering = true
			m.filterQuery = ""
			m.refreshList()
			return m, nil
		}
		if m.activeID != 0 {
			m.client.writeSession(m.activeID, msg.String())
		}
		return m, nil

	case eventMsg:
		m.applyEvent(event(msg))
		return m, waitForEvent(m.client)
	}
	return m, nil
}

// updateFiltering handles one keystroke while the operator is composing a
// fuzzy filter query for the session list (entered via "/", confirmed or
// cancelled via enter/esc) rather than sending input to the active
// session.
func (m model) updateFiltering(msg tea.KeyMsg) model {
	switch msg.Type {
	case tea.KeyEsc:
		m.filtering = false
		m.filterQuery = ""
	case tea.KeyEnter:
		m.filtering = false
	case tea.KeyBackspace:
		if len(m.filterQuery) > 0 {
			m.filterQuery = m.filterQuery[:len(m.filterQuery)-1]
		}
	case tea.KeyRunes:
		m.filterQuery += string(msg.Runes)
	}
	m.refreshList()
	return m
}

// refreshList recomputes which sessions the list currently displays by
// running filterSessions over every known session, then hands the result
// to bubbles/list.
func (m *model) refreshList() {
	filtered := filterSessions(m.allItems, m.filterQuery)
	items := make([]list.Item, len(filtered))
	for i, it := range filtered {
		items[i] = it
	}
	m.list.SetItems(items)
}

func (m *model) applyEvent(ev event) {
	switch ev.Type {
	case "created":
		listHeight := m.height / 3
		term := vt.NewTerminal(max(m.width, 1), max(m.height-listHeight-2, 1))
		it := &sessionItem{id: ev.ID, term: term}
		m.sessions[ev.ID] = it
		m.allItems = append(m.allItems, it)
		m.refreshList()
		if m.activeID == 0 {
			m.activeID = ev.ID
		}
		m.client.permitDataSize(ev.ID, 1<<20)
		m.statusMsg = fmt.Sprintf("session %d created", ev.ID)

	case "output":
		if it, ok := m.sessions[ev.ID]; ok && it.term != nil {
			it.term.Write([]byte(ev.Data))
		}

	case "closed":
		if it, ok := m.sessions[ev.ID]; ok {
			it.closed = true
		}
		if m.activeID == ev.ID {
			m.activeID = 0
		}
		m.statusMsg = fmt.Sprintf("session %d closed", ev.ID)
	}
}

func (m *model) cycleActive() {
	ids := make([]int, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return
	}
	for i, id := range ids {
		if id == m.activeID {
			m.activeID = ids[(i+1)%len(ids)]
			return
		}
	}
	m.activeID = ids[0]
}

func (m model) View() string {
	help := "tab: switch, /: filter, q: quit"
	if m.filtering {
		help = fmt.Sprintf("filter: %s_  (enter: confirm, esc: clear)", m.filterQuery)
	}
	status := statusStyle.Render(fmt.Sprintf("ptyspy — %d session(s) — %s", len(m.sessions), help))

	var screen string
	if it, ok := m.sessions[m.activeID]; ok && it.term != nil {
		screen = it.term.String()
	} else {
		screen = wordwrap.String("No active session. Sessions appear here once created.", max(m.width, 20))
	}

	statusMsg := helpStyle.Render(m.statusMsg)

	return lipgloss.JoinVertical(lipgloss.Left, status, m.list.View(), screen, statusMsg)
}

// filterSessions applies a fuzzy filter (matching bubbles/list's own
// filtering behavior, both backed by github.com/sahilm/fuzzy) over the
// known session items; driven by the "/" filter key binding in Update, via
// refreshList.
func filterSessions(items []*sessionItem, query string) []*sessionItem {
	if query == "" {
		return items
	}
	labels := make([]string, len(items))
	for i, it := range items {
		labels[i] = it.FilterValue()
	}
	matches := fuzzy.Find(query, labels)
	out := make([]*sessionItem, 0, len(matches))
	for _, mt := range matches {
		out = append(out, items[mt.Index])
	}
	return out
}
