// Package tui provides the live progress view for a reasoning session: the
// deliberation phases for pipeline runs and the node tree for decomposition
// runs.
package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ponderhq/ponder/internal/deliberate"
	"github.com/ponderhq/ponder/pkg/models"
)

// TreeSnapshotMsg carries a tree state snapshot into the view.
type TreeSnapshotMsg struct {
	State models.TreeState
}

// PhaseSnapshotMsg carries a deliberation snapshot into the view.
type PhaseSnapshotMsg struct {
	State deliberate.State
}

// DoneMsg signals that the session finished.
type DoneMsg struct {
	Err error
}

// App is the bubbletea model for session progress.
type App struct {
	// spinner animates in-flight nodes and strategies.
	spinner spinner.Model
	// tree is the latest tree snapshot, nil for pipeline runs.
	tree *models.TreeState
	// phase is the latest deliberation snapshot, nil for tree runs.
	phase *deliberate.State
	// query is the user's question, shown in the header.
	query string
	// width is the terminal width.
	width int
	// done indicates the session finished.
	done bool
	// err holds the session error, if any.
	err error
	// quitting indicates the user asked to quit.
	quitting bool
}

// New creates an App for the given query.
func New(query string) *App {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	return &App{spinner: sp, query: query}
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return a.spinner.Tick
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			a.quitting = true
			return a, tea.Quit
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width

	case TreeSnapshotMsg:
		state := msg.State
		a.tree = &state

	case PhaseSnapshotMsg:
		state := msg.State
		a.phase = &state

	case DoneMsg:
		a.done = true
		a.err = msg.Err
		return a, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd
	}

	return a, nil
}
