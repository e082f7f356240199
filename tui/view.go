package tui

import (
	"fmt"
	"strings"

	"github.com/brettbedarf/mtpview/model"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// header, path, blank line and the two footer lines
const chromeLines = 5

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ffffff")).Background(lipgloss.Color(model.ContainerForeground.Hex())).Padding(0, 1)
	pathStyle     = lipgloss.NewStyle().Faint(true)
	selectedStyle = lipgloss.NewStyle().Reverse(true)
	sizeStyle     = lipgloss.NewStyle().Faint(true).Width(10).Align(lipgloss.Right)
	statusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#008000"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#c00000")).Bold(true)
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

// rowStyle draws a row in the foreground its listing asks for
func rowStyle(fg model.Foreground) lipgloss.Style {
	s := lipgloss.NewStyle().Foreground(lipgloss.Color(fg.Hex()))
	if fg == model.ContainerForeground {
		s = s.Bold(true)
	}
	return s
}

func (m *Model) View() string {
	var sb strings.Builder

	title := m.title
	if title == "" {
		title = "mtpview"
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")
	sb.WriteString(pathStyle.Render(m.Path()))
	sb.WriteString("\n\n")

	n := m.list.RowCount()
	if n == 0 {
		sb.WriteString(helpStyle.Render("  (empty)"))
		sb.WriteString("\n")
	}
	end := n
	if rows := m.visibleRows(); rows > 0 {
		end = min(m.offset+rows, n)
	}
	for i := m.offset; i < end; i++ {
		sb.WriteString(m.renderRow(i))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(m.footer())
	return sb.String()
}

func (m *Model) renderRow(i int) string {
	name := m.list.DisplayName(m.ctx, i)
	fg := m.list.Foreground(m.ctx, i)

	size := ""
	if fg == model.ContainerForeground {
		name += "/"
	} else if v, ok := m.list.Data(m.ctx, i, model.SizeRole).(uint64); ok {
		size = humanize.IBytes(v)
	}

	line := fmt.Sprintf("%s %s", sizeStyle.Render(size), rowStyle(fg).Render(name))
	if i == m.cursor {
		return selectedStyle.Render(">") + line
	}
	return " " + line
}

func (m *Model) footer() string {
	switch m.mode {
	case modeRename:
		return "Rename:\n" + m.input.View()
	case modeMkdir:
		return "New folder:\n" + m.input.View()
	case modeConfirmDelete:
		return errorStyle.Render(fmt.Sprintf("Delete %s? (y/n)", m.list.DisplayName(m.ctx, m.cursor)))
	}

	var status string
	switch {
	case m.err != nil:
		status = errorStyle.Render(m.err.Error())
	case m.status != "":
		status = statusStyle.Render(m.status)
	}
	return status + "\n" + helpStyle.Render("↑/↓ move • enter open • ⌫ up • r rename • n new folder • d delete • R reload • q quit")
}
