// Package tui is an interactive terminal browser over a model.ObjectList
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/brettbedarf/mtpview"
	"github.com/brettbedarf/mtpview/internal/util"
	"github.com/brettbedarf/mtpview/model"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type mode int

const (
	modeBrowse mode = iota
	modeRename
	modeMkdir
	modeConfirmDelete
)

// crumb remembers a container we entered so we can go back up to it
type crumb struct {
	parent mtpview.ObjectID
	name   string
	cursor int
}

// Model is the bubbletea model of the browser
type Model struct {
	ctx         context.Context
	list        *model.ObjectList
	unsubscribe func()
	title       string

	stack  []crumb
	cursor int
	offset int
	width  int
	height int

	mode   mode
	input  textinput.Model
	status string
	err    error
}

var _ tea.Model = (*Model)(nil)

// New builds a browser listing the root of session
func New(ctx context.Context, session mtpview.Session) *Model {
	m := &Model{ctx: ctx, list: model.New()}
	m.unsubscribe = m.list.Subscribe(model.ObserverFuncs{
		OnListDidReset: func() { m.cursor, m.offset = 0, 0 },
		OnRowsRemoved:  func(int, int) { m.clamp() },
		OnRowsInserted: func(_, last int) { m.cursor = last },
	})
	if di, err := session.GetDeviceInfo(ctx); err == nil {
		m.title = strings.TrimSpace(di.Manufacturer + " " + di.Model)
	}
	m.list.SetSession(ctx, session)
	return m
}

// Close detaches the browser from its listing
func (m *Model) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Run starts the browser on the terminal and blocks until the user quits
func Run(ctx context.Context, session mtpview.Session, opts ...tea.ProgramOption) error {
	m := New(ctx, session)
	defer m.Close()
	_, err := tea.NewProgram(m, append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)...).Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return nil
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.scroll()
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case modeRename, modeMkdir:
			return m.handlePromptKey(msg)
		case modeConfirmDelete:
			return m.handleConfirmKey(msg.String())
		}
		return m.handleBrowseKey(msg.String())
	}
	return m, nil
}

func (m *Model) handleBrowseKey(key string) (tea.Model, tea.Cmd) {
	logger := util.GetLogger("Browser.key")
	m.err = nil
	m.status = ""

	switch key {
	case "q", "esc":
		return m, tea.Quit
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "j", "down":
		if m.cursor < m.list.RowCount()-1 {
			m.cursor++
		}
	case "g", "home":
		m.cursor = 0
	case "G", "end":
		m.cursor = max(m.list.RowCount()-1, 0)
	case "enter", "l", "right":
		m.enter()
	case "backspace", "h", "left":
		m.up()
	case "R":
		logger.Debug().Uint32("parent", uint32(m.list.Parent())).Msg("Reloading")
		m.list.Reload(m.ctx)
		m.status = "reloaded"
	case "r":
		if m.list.RowCount() == 0 {
			break
		}
		m.prompt(modeRename, m.list.DisplayName(m.ctx, m.cursor))
	case "n":
		m.prompt(modeMkdir, "")
	case "d":
		if m.list.RowCount() == 0 {
			break
		}
		m.mode = modeConfirmDelete
	}
	m.scroll()
	return m, nil
}

func (m *Model) enter() {
	idx := m.cursor
	name := m.list.DisplayName(m.ctx, idx)
	parent := m.list.Parent()
	if !m.list.Enter(m.ctx, idx) {
		return
	}
	m.stack = append(m.stack, crumb{parent: parent, name: name, cursor: idx})
}

func (m *Model) up() {
	if len(m.stack) == 0 {
		return
	}
	top := m.stack[len(m.stack)-1]
	m.stack = m.stack[:len(m.stack)-1]
	m.list.SetParent(m.ctx, top.parent)
	m.cursor = top.cursor
	m.clamp()
}

func (m *Model) prompt(md mode, value string) {
	m.mode = md
	m.input = textinput.New()
	m.input.Prompt = "> "
	if md == modeMkdir {
		m.input.Placeholder = "folder name"
	}
	m.input.SetValue(value)
	m.input.Focus()
	m.input.CursorEnd()
}

func (m *Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeBrowse
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		md := m.mode
		m.mode = modeBrowse
		if value == "" {
			return m, nil
		}
		m.apply(md, value)
		m.scroll()
		return m, nil
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) apply(md mode, value string) {
	switch md {
	case modeRename:
		if err := m.list.Rename(m.ctx, m.cursor, value); err != nil {
			m.err = err
			return
		}
		m.status = fmt.Sprintf("renamed to %s", value)
	case modeMkdir:
		if _, err := m.list.CreateDirectory(m.ctx, value); err != nil {
			m.err = err
			return
		}
		m.status = fmt.Sprintf("created %s", value)
	}
}

func (m *Model) handleConfirmKey(key string) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	switch key {
	case "y", "Y":
		name := m.list.DisplayName(m.ctx, m.cursor)
		if _, err := m.list.RemoveRows(m.ctx, m.cursor, 1); err != nil {
			m.err = err
		} else {
			m.status = fmt.Sprintf("deleted %s", name)
		}
		m.scroll()
	}
	return m, nil
}

// clamp keeps the cursor on an existing row
func (m *Model) clamp() {
	if n := m.list.RowCount(); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// visibleRows is the number of listing rows that fit the window, 0 meaning
// no limit
func (m *Model) visibleRows() int {
	if m.height == 0 {
		return 0
	}
	return max(m.height-chromeLines, 1)
}

// scroll keeps the cursor inside the visible window
func (m *Model) scroll() {
	m.clamp()
	rows := m.visibleRows()
	if rows == 0 {
		m.offset = 0
		return
	}
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+rows {
		m.offset = m.cursor - rows + 1
	}
}

// Path returns the names of the containers entered from the root
func (m *Model) Path() string {
	names := make([]string, 0, len(m.stack))
	for _, c := range m.stack {
		names = append(names, c.name)
	}
	return "/" + strings.Join(names, "/")
}

// Cursor returns the selected row
func (m *Model) Cursor() int {
	return m.cursor
}

// List returns the listing the browser shows
func (m *Model) List() *model.ObjectList {
	return m.list
}
