package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/valter-silva-au/tasklists/internal/core"
	"github.com/valter-silva-au/tasklists/pkg/models"
)

// Board input modes.
const (
	modeBrowse = iota
	modeAdd
	modeEdit
	modeMove
)

const (
	inputName = iota
	inputDescription
	inputCount
)

type boardModel struct {
	session *core.Session
	lists   []models.ListID
	cursor  int
	mode    int

	inputs [inputCount]textinput.Model
	focus  int

	width  int
	height int

	syncing bool
	status  string
	failed  bool
}

// syncDoneMsg carries the outcome of a save or load back to the model.
type syncDoneMsg struct {
	action string
	err    error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Padding(0, 1)

	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)

	cursorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newBoardModel(session *core.Session, lists []models.ListID) boardModel {
	if len(lists) == 0 {
		lists = models.AllLists()
	}
	m := boardModel{
		session: session,
		lists:   lists,
	}
	m.inputs[inputName] = textinput.New()
	m.inputs[inputName].Placeholder = "Task name"
	m.inputs[inputName].CharLimit = 200
	m.inputs[inputDescription] = textinput.New()
	m.inputs[inputDescription].Placeholder = "Description (optional)"
	m.inputs[inputDescription].CharLimit = 500
	return m
}

func (m boardModel) Init() tea.Cmd {
	return nil
}

func (m boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case syncDoneMsg:
		m.syncing = false
		if msg.err != nil {
			m.setStatus(core.StatusMessage(msg.err), true)
			return m, nil
		}
		if msg.action == "load" {
			m.setStatus("Tasks loaded successfully from GitHub", false)
		} else {
			m.setStatus("Tasks saved successfully to GitHub", false)
		}
		m.clampCursor()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeAdd, modeEdit:
			return m.updateForm(msg)
		case modeMove:
			return m.updateMove(msg)
		default:
			return m.updateBrowse(msg)
		}
	}

	return m, nil
}

func (m boardModel) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Edits wait for the running save or load.
	if m.syncing {
		if k := msg.String(); k == "q" || k == "ctrl+c" {
			return m, tea.Quit
		}
		m.setStatus(core.StatusMessage(core.ErrSyncInProgress), true)
		return m, nil
	}

	active := m.session.ActiveList()
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab", "right":
		m.switchList(1)
	case "shift+tab", "left":
		m.switchList(-1)
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < m.session.Snapshot().Len(active)-1 {
			m.cursor++
		}
	case " ", "x":
		if m.session.Snapshot().Len(active) > 0 {
			m.report(m.session.ToggleSelected(m.cursor))
		}
	case "esc":
		m.session.ClearSelection()
	case "a":
		m.openForm(modeAdd, "", "")
		return m, textinput.Blink
	case "e":
		selected := m.session.Selected()
		if len(selected) != 1 {
			m.setStatus(core.StatusMessage(core.ErrSingleSelectionRequired), true)
			return m, nil
		}
		task := m.session.Snapshot().Tasks(active)[selected[0]]
		m.openForm(modeEdit, task.Name, task.Description)
		return m, textinput.Blink
	case "d":
		n := len(m.session.Selected())
		if n == 0 {
			m.setStatus("Select tasks to delete", true)
			return m, nil
		}
		if _, err := m.session.DeleteSelected(); err != nil {
			m.setStatus(core.StatusMessage(err), true)
			return m, nil
		}
		m.setStatus(fmt.Sprintf("Deleted %d task(s)", n), false)
		m.clampCursor()
	case "m":
		if len(m.session.Selected()) == 0 {
			m.setStatus("Select tasks to move", true)
			return m, nil
		}
		m.mode = modeMove
		m.setStatus("Move to which list? (1-8, esc to cancel)", false)
	case "K", "shift+up":
		if _, err := m.session.SwapAdjacent(active, m.cursor, models.Up); err != nil {
			m.setStatus(core.StatusMessage(err), true)
		} else if m.cursor > 0 {
			m.cursor--
		}
	case "J", "shift+down":
		if _, err := m.session.SwapAdjacent(active, m.cursor, models.Down); err != nil {
			m.setStatus(core.StatusMessage(err), true)
		} else if m.cursor < m.session.Snapshot().Len(active)-1 {
			m.cursor++
		}
	case "s":
		return m.startSync("save")
	case "l":
		return m.startSync("load")
	default:
		if list, ok := models.ParseListID(key); ok && len(key) == 1 {
			m.setActive(list)
		}
	}
	return m, nil
}

func (m boardModel) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.closeForm()
		return m, nil
	case "tab", "shift+tab", "up", "down":
		m.inputs[m.focus].Blur()
		m.focus = (m.focus + 1) % inputCount
		m.inputs[m.focus].Focus()
		return m, textinput.Blink
	case "enter":
		name := m.inputs[inputName].Value()
		desc := m.inputs[inputDescription].Value()
		mode := m.mode
		m.closeForm()
		if strings.TrimSpace(name) == "" {
			return m, nil
		}
		if mode == modeAdd {
			snap, err := m.session.AddTask(m.session.ActiveList(), name, desc)
			if m.report(err) {
				m.cursor = snap.Len(m.session.ActiveList()) - 1
				m.setStatus("Task added", false)
			}
		} else if _, err := m.session.EditSelected(name, desc); m.report(err) {
			m.setStatus("Task updated", false)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m boardModel) updateMove(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.mode = modeBrowse
		m.status = ""
		return m, nil
	}
	target, ok := models.ParseListID(key)
	if !ok || len(key) != 1 {
		return m, nil
	}
	m.mode = modeBrowse
	n := len(m.session.Selected())
	if _, err := m.session.MoveSelected(target); m.report(err) {
		m.setStatus(fmt.Sprintf("Moved %d task(s) to %s", n, target.DisplayName()), false)
	}
	m.clampCursor()
	return m, nil
}

func (m *boardModel) startSync(action string) (tea.Model, tea.Cmd) {
	m.syncing = true
	if action == "load" {
		m.setStatus("Loading...", false)
	} else {
		m.setStatus("Saving...", false)
	}
	return *m, runSync(m.session, action)
}

func runSync(session *core.Session, action string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		var err error
		if action == "load" {
			_, err = session.Load(ctx, "")
		} else {
			err = session.Save(ctx, "")
		}
		return syncDoneMsg{action: action, err: err}
	}
}

func (m *boardModel) switchList(step int) {
	active := m.session.ActiveList()
	idx := 0
	for i, id := range m.lists {
		if id == active {
			idx = i
			break
		}
	}
	idx = (idx + step + len(m.lists)) % len(m.lists)
	m.setActive(m.lists[idx])
}

func (m *boardModel) setActive(list models.ListID) {
	if m.report(m.session.SetActiveList(list)) {
		m.cursor = 0
		m.status = ""
	}
}

func (m *boardModel) openForm(mode int, name, desc string) {
	m.mode = mode
	m.focus = inputName
	m.inputs[inputName].SetValue(name)
	m.inputs[inputDescription].SetValue(desc)
	m.inputs[inputName].Focus()
	m.inputs[inputDescription].Blur()
}

func (m *boardModel) closeForm() {
	m.mode = modeBrowse
	for i := range m.inputs {
		m.inputs[i].Blur()
		m.inputs[i].Reset()
	}
}

func (m *boardModel) clampCursor() {
	n := m.session.Snapshot().Len(m.session.ActiveList())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// report records err as the status line and reports whether it was nil.
func (m *boardModel) report(err error) bool {
	if err != nil {
		m.setStatus(core.StatusMessage(err), true)
		return false
	}
	return true
}

func (m *boardModel) setStatus(msg string, failed bool) {
	m.status = msg
	m.failed = failed
}

func (m boardModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(" Task Lists "))
	b.WriteString("\n\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")

	panel := panelStyle
	if m.width > 4 {
		panel = panel.Width(m.width - 4)
	}
	b.WriteString(panel.Render(m.renderTasks()))
	b.WriteString("\n")

	if m.mode == modeAdd || m.mode == modeEdit {
		label := "New task"
		if m.mode == modeEdit {
			label = "Edit task"
		}
		b.WriteString(fmt.Sprintf("\n  %s\n  %s\n  %s\n", label, m.inputs[inputName].View(), m.inputs[inputDescription].View()))
	}

	if m.status != "" {
		style := okStyle
		if m.failed {
			style = errStyle
		}
		b.WriteString("\n  " + style.Render(m.status) + "\n")
	}

	b.WriteString("\n" + helpStyle.Render(m.help()))
	return b.String()
}

func (m boardModel) renderTabs() string {
	active := m.session.ActiveList()
	tabs := make([]string, 0, len(m.lists))
	for _, id := range m.lists {
		label := id.DisplayName()
		if id == active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m boardModel) renderTasks() string {
	tasks := m.session.Snapshot().Tasks(m.session.ActiveList())
	if len(tasks) == 0 {
		return "No tasks. Press a to add one."
	}
	var b strings.Builder
	for i, t := range tasks {
		pointer := "  "
		if i == m.cursor {
			pointer = cursorStyle.Render("> ")
		}
		check := "[ ]"
		if m.session.IsSelected(i) {
			check = selectedStyle.Render("[x]")
		}
		line := fmt.Sprintf("%s%s %d. %s", pointer, check, i+1, t.Name)
		if t.Description != "" {
			line += helpStyle.Render("  " + t.Description)
		}
		b.WriteString(line)
		if i < len(tasks)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (m boardModel) help() string {
	switch m.mode {
	case modeAdd, modeEdit:
		return "tab: next field | enter: confirm | esc: cancel"
	case modeMove:
		return "1-8: target list | esc: cancel"
	}
	if m.syncing {
		return "syncing... | q: quit"
	}
	return "tab/1-8: list | space: select | a: add | e: edit | d: delete | m: move | K/J: reorder | s: save | l: load | q: quit"
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Interactive board for editing the task lists",
	Long: `Launch an interactive terminal board. The task file is loaded when the
board opens; changes stay local until you press s to save. Press l to load
the file again, discarding unsaved changes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireSession(); err != nil {
			return err
		}
		m := newBoardModel(Session, displayedLists())
		if _, err := Session.Load(commandContext(cmd), ""); err != nil && !isMissingFile(err) {
			m.setStatus(core.StatusMessage(err), true)
		}
		p := tea.NewProgram(m, tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(boardCmd)
}
