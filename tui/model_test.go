package tui

import (
	"context"
	"strings"
	"testing"

	"github.com/brettbedarf/mtpview"
	"github.com/brettbedarf/mtpview/model"
	"github.com/brettbedarf/mtpview/sessions"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBrowser(t *testing.T) (*Model, *sessions.Memory) {
	t.Helper()
	mem, err := sessions.NewMemory(sessions.MemoryConfig{Files: map[string]string{
		"Music/Album/one.mp3": "111",
		"Music/two.mp3":       "22",
		"Podcasts/":           "",
		"notes.txt":           "hello",
	}})
	require.NoError(t, err)
	m := New(context.Background(), mem)
	t.Cleanup(m.Close)
	return m, mem
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEscape}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
}

func press(m *Model, keys ...string) tea.Cmd {
	var cmd tea.Cmd
	for _, k := range keys {
		_, cmd = m.Update(keyMsg(k))
	}
	return cmd
}

func rowNames(m *Model) []string {
	l := m.List()
	names := make([]string, 0, l.RowCount())
	for i := range l.RowCount() {
		names = append(names, l.DisplayName(context.Background(), i))
	}
	return names
}

func TestBrowser_CursorMovement(t *testing.T) {
	t.Parallel()

	m, _ := newBrowser(t)
	require.Equal(t, []string{"Music", "Podcasts", "notes.txt"}, rowNames(m))

	tests := []struct {
		key  string
		want int
	}{
		{"j", 1},
		{"down", 2},
		{"j", 2},
		{"k", 1},
		{"up", 0},
		{"up", 0},
		{"G", 2},
		{"g", 0},
	}
	for _, tt := range tests {
		press(m, tt.key)
		assert.Equal(t, tt.want, m.Cursor(), "after %q", tt.key)
	}
}

func TestBrowser_EnterAndUp(t *testing.T) {
	t.Parallel()

	m, _ := newBrowser(t)

	press(m, "enter")
	assert.Equal(t, "/Music", m.Path())
	assert.Equal(t, []string{"Album", "two.mp3"}, rowNames(m))

	press(m, "l")
	assert.Equal(t, "/Music/Album", m.Path())
	assert.Equal(t, []string{"one.mp3"}, rowNames(m))

	press(m, "enter")
	assert.Equal(t, "/Music/Album", m.Path(), "files cannot be entered")

	press(m, "backspace")
	assert.Equal(t, "/Music", m.Path())
	assert.Equal(t, 0, m.Cursor(), "cursor returns to the container we left")

	press(m, "h")
	assert.Equal(t, "/", m.Path())
	press(m, "h")
	assert.Equal(t, "/", m.Path(), "already at the root")

	press(m, "j", "enter")
	assert.Equal(t, "/Podcasts", m.Path())
	assert.Zero(t, m.List().RowCount())
	press(m, "h")
	assert.Equal(t, 1, m.Cursor())
	assert.Equal(t, mtpview.Root, m.List().Parent())
}

func TestBrowser_Rename(t *testing.T) {
	t.Parallel()

	m, _ := newBrowser(t)
	press(m, "G", "r")
	require.Equal(t, modeRename, m.mode)
	assert.Equal(t, "notes.txt", m.input.Value(), "prompt starts with the current name")
	assert.Contains(t, m.View(), "Rename:")

	m.input.SetValue("todo.txt")
	press(m, "enter")

	assert.Equal(t, modeBrowse, m.mode)
	assert.Equal(t, "todo.txt", m.List().DisplayName(context.Background(), 2))
	assert.Contains(t, m.View(), "renamed to todo.txt")
}

func TestBrowser_PromptCancel(t *testing.T) {
	t.Parallel()

	m, _ := newBrowser(t)
	press(m, "r", "x", "esc")
	assert.Equal(t, modeBrowse, m.mode)
	assert.Equal(t, []string{"Music", "Podcasts", "notes.txt"}, rowNames(m))

	press(m, "n", "enter")
	assert.Equal(t, 3, m.List().RowCount(), "empty names are ignored")
}

func TestBrowser_Mkdir(t *testing.T) {
	t.Parallel()

	m, _ := newBrowser(t)
	press(m, "n")
	require.Equal(t, modeMkdir, m.mode)
	press(m, "L", "i", "v", "e", "enter")

	assert.Equal(t, []string{"Music", "Podcasts", "notes.txt", "Live"}, rowNames(m))
	assert.Equal(t, 3, m.Cursor(), "cursor follows the new folder")
	assert.Equal(t, model.ContainerForeground, m.List().Foreground(context.Background(), 3))
}

func TestBrowser_Delete(t *testing.T) {
	t.Parallel()

	m, mem := newBrowser(t)
	press(m, "G", "d")
	require.Equal(t, modeConfirmDelete, m.mode)
	assert.Contains(t, m.View(), "Delete notes.txt?")

	press(m, "n")
	assert.Equal(t, modeBrowse, m.mode)
	assert.Equal(t, 3, m.List().RowCount(), "declined delete keeps the row")

	press(m, "d", "y")
	assert.Equal(t, []string{"Music", "Podcasts"}, rowNames(m))
	assert.Equal(t, 1, m.Cursor(), "cursor clamped to the last row")

	handles, err := mem.GetObjectHandles(context.Background(), mtpview.AllStorages, mtpview.AllFormats, mtpview.Root)
	require.NoError(t, err)
	assert.Len(t, handles, 2)
}

func TestBrowser_Reload(t *testing.T) {
	t.Parallel()

	m, mem := newBrowser(t)
	ctx := context.Background()
	_, err := mem.SendObjectInfo(ctx, &mtpview.ObjectInfo{
		Filename:        "Videos",
		ObjectFormat:    mtpview.FormatAssociation,
		AssociationType: mtpview.AssociationGenericFolder,
	}, mtpview.AnyStorage, mtpview.Root)
	require.NoError(t, err)
	assert.Equal(t, 3, m.List().RowCount(), "listing is a snapshot")

	press(m, "R")
	assert.Equal(t, []string{"Music", "Podcasts", "notes.txt", "Videos"}, rowNames(m))
}

func TestBrowser_MutationError(t *testing.T) {
	t.Parallel()

	dir, err := sessions.NewLocalDir(sessions.LocalDirConfig{Root: t.TempDir(), ReadOnly: true})
	require.NoError(t, err)
	m := New(context.Background(), dir)
	defer m.Close()

	press(m, "n", "x", "enter")
	require.ErrorIs(t, m.err, mtpview.ErrReadOnly)
	assert.Contains(t, m.View(), mtpview.ErrReadOnly.Error())

	press(m, "j")
	assert.NoError(t, m.err, "the next key clears the error")
}

func TestBrowser_View(t *testing.T) {
	t.Parallel()

	m, _ := newBrowser(t)
	view := m.View()

	assert.Contains(t, view, "mtpview Memory Device")
	assert.Contains(t, view, "Music/")
	assert.Contains(t, view, "Podcasts/")
	assert.Contains(t, view, "notes.txt")
	assert.Contains(t, view, "5 B")
	assert.Contains(t, view, "q quit")
}

func TestBrowser_Scroll(t *testing.T) {
	t.Parallel()

	m, _ := newBrowser(t)
	m.Update(tea.WindowSizeMsg{Width: 80, Height: chromeLines + 2})

	assert.NotContains(t, m.View(), "notes.txt", "only two rows fit")
	press(m, "j", "j")
	view := m.View()
	assert.Contains(t, view, "notes.txt")
	assert.NotContains(t, view, "Music/")
	assert.Equal(t, 1, m.offset)
}

func TestBrowser_Quit(t *testing.T) {
	t.Parallel()

	for _, key := range []string{"q", "ctrl+c"} {
		m, _ := newBrowser(t)
		cmd := press(m, key)
		require.NotNil(t, cmd, key)
		_, ok := cmd().(tea.QuitMsg)
		assert.True(t, ok, "%s quits", key)
	}

	// q is text inside a prompt
	m, _ := newBrowser(t)
	press(m, "n", "q")
	assert.Equal(t, modeMkdir, m.mode)
	assert.Equal(t, "q", m.input.Value())
}

func TestBrowser_EmptyDevice(t *testing.T) {
	t.Parallel()

	mem, err := sessions.NewMemory(sessions.MemoryConfig{})
	require.NoError(t, err)
	m := New(context.Background(), mem)
	defer m.Close()

	assert.True(t, strings.Contains(m.View(), "(empty)"))
	press(m, "j", "d", "r", "enter")
	assert.Equal(t, modeBrowse, m.mode)
	assert.Equal(t, 0, m.Cursor())
}
