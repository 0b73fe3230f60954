// Package tui implements the interactive node edit dialog.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/msalah0e/causa/internal/causal"
	"github.com/msalah0e/causa/internal/editor"
)

type focus int

const (
	focusFact focus = iota
	focusFactType
	focusNodeType
	focusParents
	focusCount
)

var nodeTypes = []causal.NodeType{causal.FinalEvent, causal.Intermediate, causal.RootCause}

// LoadingMsg enables or disables the dialog's controls while an external
// update is in flight.
type LoadingMsg bool

// submitDoneMsg reports the outcome of the caller's submit callback.
type submitDoneMsg struct {
	err error
}

// Props are the inputs of the dialog.
type Props struct {
	Node          causal.Node
	ExistingNodes []causal.Node
	OnSubmit      editor.SubmitFunc
	Session       *editor.Session // optional, configured session to reuse
}

// Model is the bubbletea model of the edit dialog.
type Model struct {
	props    Props
	session  *editor.Session
	fact     textinput.Model
	factType causal.FactType
	nodeType causal.NodeType
	focus    focus
	cursor   int
	loading  bool
	notice   string
	err      error

	submitted bool
	cancelled bool
	payload   *editor.UpdateNodeDTO
}

// New opens the dialog on props.Node.
func New(props Props) Model {
	s := props.Session
	if s == nil {
		s = editor.New()
	}
	s.Open(props.Node, props.ExistingNodes)

	ti := textinput.New()
	ti.Placeholder = "Describe the fact"
	ti.CharLimit = 500
	ti.Width = 60
	ti.SetValue(props.Node.Fact)
	ti.Focus()

	factType := props.Node.FactType
	if !factType.Valid() {
		factType = causal.FactVariation
	}
	nodeType := props.Node.NodeType
	if !nodeType.Valid() {
		nodeType = causal.Intermediate
	}

	return Model{
		props:    props,
		session:  s,
		fact:     ti,
		factType: factType,
		nodeType: nodeType,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Submitted reports whether the update was handed to OnSubmit successfully.
func (m Model) Submitted() bool { return m.submitted }

// Cancelled reports whether the user closed the dialog without submitting.
func (m Model) Cancelled() bool { return m.cancelled }

// Err returns the last error returned by OnSubmit.
func (m Model) Err() error { return m.err }

// Payload returns the last payload handed to OnSubmit.
func (m Model) Payload() *editor.UpdateNodeDTO { return m.payload }

// Loading reports whether controls are disabled.
func (m Model) Loading() bool { return m.loading }

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadingMsg:
		m.loading = bool(msg)
		return m, nil

	case submitDoneMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			m.reopen()
			return m, nil
		}
		m.submitted = true
		return m, tea.Quit

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}
		return m.handleKey(msg)
	}

	if m.focus == focusFact {
		var cmd tea.Cmd
		m.fact, cmd = m.fact.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		m.session.Close()
		m.cancelled = true
		return m, tea.Quit
	case "tab":
		m.setFocus((m.focus + 1) % focusCount)
		return m, nil
	case "shift+tab":
		m.setFocus((m.focus + focusCount - 1) % focusCount)
		return m, nil
	case "enter":
		return m.submit()
	}

	m.notice = ""
	switch m.focus {
	case focusFact:
		var cmd tea.Cmd
		m.fact, cmd = m.fact.Update(msg)
		return m, cmd

	case focusFactType:
		switch msg.String() {
		case "left", "right", "h", "l", " ":
			if m.factType == causal.FactVariation {
				m.factType = causal.FactPermanent
			} else {
				m.factType = causal.FactVariation
			}
		}

	case focusNodeType:
		switch msg.String() {
		case "right", "l", " ":
			m.nodeType = cycleNodeType(m.nodeType, 1)
		case "left", "h":
			m.nodeType = cycleNodeType(m.nodeType, -1)
		}

	case focusParents:
		rows := m.rows()
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(rows)-1 {
				m.cursor++
			}
		case " ", "x":
			if m.cursor < len(rows) {
				m.session.Toggle(rows[m.cursor].id)
				// a deselected ineligible parent drops out of the list
				if n := len(m.rows()); m.cursor >= n && n > 0 {
					m.cursor = n - 1
				}
			}
		case "t":
			if m.cursor < len(rows) {
				id := rows[m.cursor].id
				if lt, ok := m.session.LinkType(id); ok {
					m.session.SetLinkType(id, lt.Next())
				}
			}
		}
	}
	return m, nil
}

// parentRow is one line of the parent checklist.
type parentRow struct {
	id       string
	label    string
	eligible bool
}

// rows lists the candidates followed by selected parents that fail the
// cycle guard, so those can still be deselected.
func (m Model) rows() []parentRow {
	var rows []parentRow
	for _, c := range m.session.Candidates() {
		rows = append(rows, parentRow{id: c.ID, label: c.Label(), eligible: true})
	}
	for _, id := range m.session.Ineligible() {
		label := id
		for _, n := range m.props.ExistingNodes {
			if n.ID == id {
				label = n.Label()
				break
			}
		}
		rows = append(rows, parentRow{id: id, label: label})
	}
	return rows
}

func (m *Model) setFocus(f focus) {
	m.focus = f
	if f == focusFact {
		m.fact.Focus()
	} else {
		m.fact.Blur()
	}
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	var dto editor.UpdateNodeDTO
	var nodeID string
	called, _ := m.session.Submit(m.fact.Value(), m.factType, m.nodeType, func(id string, d editor.UpdateNodeDTO) error {
		nodeID, dto = id, d
		return nil
	})
	if !called {
		m.notice = "A fact description is required."
		return m, nil
	}

	m.payload = &dto
	m.err = nil
	m.loading = true
	onSubmit := m.props.OnSubmit
	return m, func() tea.Msg {
		if onSubmit == nil {
			return submitDoneMsg{}
		}
		return submitDoneMsg{err: onSubmit(nodeID, dto)}
	}
}

// reopen restores the frozen selection after a failed submit so the user
// can retry without re-entering it.
func (m *Model) reopen() {
	if m.payload == nil {
		return
	}
	n := m.props.Node
	n.ParentNodes = append([]string(nil), m.payload.ParentNodes...)
	m.session.Open(n, m.props.ExistingNodes)
	for _, l := range m.payload.ParentLinks {
		m.session.SetLinkType(l.ParentNodeID, l.LinkType)
	}
}

func cycleNodeType(t causal.NodeType, step int) causal.NodeType {
	for i, nt := range nodeTypes {
		if nt == t {
			return nodeTypes[(i+step+len(nodeTypes))%len(nodeTypes)]
		}
	}
	return causal.Intermediate
}

// View implements tea.Model.
func (m Model) View() string {
	if m.submitted || m.cancelled {
		return ""
	}

	var b strings.Builder
	title := "Edit node"
	if m.props.Node.Numero > 0 {
		title = fmt.Sprintf("Edit node #%d", m.props.Node.Numero)
	}
	b.WriteString(titleStyle.Render(title) + "\n\n")

	b.WriteString(m.label("Fact", focusFact) + m.fact.View() + "\n")
	b.WriteString(m.label("Fact type", focusFactType) + m.choice(string(m.factType), focusFactType) + "\n")
	b.WriteString(m.label("Node type", focusNodeType) + m.choice(string(m.nodeType), focusNodeType) + "\n\n")

	b.WriteString(m.label("Leads to", focusParents) + subtleStyle.Render("select the effects this fact leads to") + "\n")
	if !m.session.IsOpen() {
		if m.payload != nil {
			for _, l := range m.payload.ParentLinks {
				b.WriteString(fmt.Sprintf("  [x] %s %s\n", valueStyle.Render(l.ParentNodeID), subtleStyle.Render("("+string(l.LinkType)+")")))
			}
			b.WriteString("\n" + subtleStyle.Render(fmt.Sprintf("relation: %s", m.payload.RelationType)) + "\n")
		}
		b.WriteString(subtleStyle.Render("Saving…") + "\n")
		return dialogStyle.Render(b.String())
	}
	rows := m.rows()
	if len(rows) == 0 {
		b.WriteString(subtleStyle.Render("  no eligible nodes") + "\n")
	}
	for i, r := range rows {
		cursor := " "
		if m.focus == focusParents && m.cursor == i {
			cursor = activeStyle.Render(">")
		}
		checked := " "
		suffix := ""
		if lt, ok := m.session.LinkType(r.id); ok {
			checked = "x"
			suffix = " " + subtleStyle.Render("("+string(lt)+")")
		}
		if !r.eligible {
			suffix += " " + warnStyle.Render("(not eligible)")
		}
		b.WriteString(fmt.Sprintf("%s [%s] %s%s\n", cursor, checked, valueStyle.Render(r.label), suffix))
	}

	links := m.session.Links()
	b.WriteString("\n" + subtleStyle.Render(fmt.Sprintf("relation: %s", causal.RelationFor(len(links)))) + "\n")
	if m.session.Isolated() && m.nodeType != causal.FinalEvent {
		b.WriteString(warnStyle.Render("⚠ No parent selected: the node will be isolated from the tree.") + "\n")
	}
	if m.notice != "" {
		b.WriteString(warnStyle.Render(m.notice) + "\n")
	}
	if m.err != nil {
		b.WriteString(errStyle.Render("Update failed: "+m.err.Error()) + "\n")
	}
	if m.loading {
		b.WriteString(subtleStyle.Render("Waiting for the update to finish…") + "\n")
	} else {
		b.WriteString(subtleStyle.Render("tab: next field · space: toggle · t: link type · enter: save · esc: cancel") + "\n")
	}

	return dialogStyle.Render(b.String())
}

func (m Model) label(text string, f focus) string {
	if m.focus == f {
		return activeStyle.Width(11).Render(text)
	}
	return labelStyle.Render(text)
}

func (m Model) choice(value string, f focus) string {
	if m.focus == f {
		return activeStyle.Render("‹ " + value + " ›")
	}
	return valueStyle.Render(value)
}

// Run shows the dialog until it is submitted or cancelled and returns the
// final model.
func Run(props Props, opts ...tea.ProgramOption) (Model, error) {
	final, err := tea.NewProgram(New(props), opts...).Run()
	if err != nil {
		return Model{}, err
	}
	m, ok := final.(Model)
	if !ok {
		return Model{}, fmt.Errorf("unexpected model type %T", final)
	}
	return m, nil
}
