package tui

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/yungbote/school-backend/internal/reconciler"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8B5CF6"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#94A3B8"))
	doneStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#22C55E"))
	activeStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F97316"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F43F5E"))
	frameStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// ViewMsg carries a reconciled view into the program.
type ViewMsg reconciler.View

// ErrMsg ends the program with err.
type ErrMsg struct{ Err error }

// WatchModel renders the generation progress of one course.
type WatchModel struct {
	title string
	view  reconciler.View
	width int
	err   error
	// ExitOnComplete quits once the session completes.
	ExitOnComplete bool
}

func NewWatchModel(title string) WatchModel {
	return WatchModel{title: title, view: reconciler.View{Phase: reconciler.PhaseUninitialized}}
}

func (m WatchModel) Err() error { return m.err }

func (m WatchModel) Init() tea.Cmd { return nil }

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		}
	case ViewMsg:
		m.view = reconciler.View(msg)
		if m.ExitOnComplete && m.view.Phase == reconciler.PhaseComplete {
			return m, tea.Quit
		}
	case ErrMsg:
		m.err = msg.Err
		return m, tea.Quit
	}
	return m, nil
}

func (m WatchModel) View() tea.View {
	return tea.NewView(Render(m.title, m.view, m.width))
}

// Render draws v as a checklist of objectives.
func Render(title string, v reconciler.View, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%s · %s", v.Phase, statusText(v))))
	b.WriteString("\n\n")

	if len(v.Objectives) == 0 {
		b.WriteString(mutedStyle.Render("no objectives yet"))
		b.WriteString("\n")
	}
	active, hasActive := v.Active()
	for i, o := range v.Objectives {
		b.WriteString(objectiveLine(i, o, hasActive && i == active))
		b.WriteString("\n")
	}
	if v.Err != "" {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render("error: " + v.Err))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("q to quit"))

	style := frameStyle
	if width > 4 {
		style = style.Width(width - 2)
	}
	return style.Render(b.String())
}

func statusText(v reconciler.View) string {
	if v.Status == "" {
		return "unknown"
	}
	return string(v.Status)
}

func objectiveLine(i int, o reconciler.ObjectiveProgress, active bool) string {
	label := o.Title
	if o.PlanTitle != "" {
		label = o.PlanTitle
	}
	line := fmt.Sprintf("%2d. %s  %s", i+1, stepMarks(o), label)
	switch {
	case o.Error != "":
		return errorStyle.Render(line + "  (" + o.Error + ")")
	case o.Done():
		return doneStyle.Render(line)
	case active:
		return activeStyle.Render(line + "  …")
	default:
		return line
	}
}

// stepMarks shows planned, written and activity as three cells.
func stepMarks(o reconciler.ObjectiveProgress) string {
	mark := func(ok bool) string {
		if ok {
			return "●"
		}
		return "○"
	}
	return mark(o.Planned) + mark(o.Written) + mark(o.ActivityCreated)
}
