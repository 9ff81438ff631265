package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ponderhq/ponder/internal/deliberate"
	"github.com/ponderhq/ponder/internal/tree"
	"github.com/ponderhq/ponder/pkg/models"
)

// Monitor wires engine observers into a running bubbletea program. Observer
// callbacks arrive on engine goroutines; tea.Program.Send is safe to call
// from any of them.
type Monitor struct {
	program *tea.Program
}

// NewMonitor creates a Monitor around an App for the given query.
func NewMonitor(query string) *Monitor {
	return &Monitor{program: tea.NewProgram(New(query))}
}

// TreeObserver returns the observer to pass to the tree engine.
func (m *Monitor) TreeObserver() tree.Observer {
	return func(s models.TreeState) {
		m.program.Send(TreeSnapshotMsg{State: s})
	}
}

// PipelineObserver returns the observer to pass to the deliberation
// pipeline.
func (m *Monitor) PipelineObserver() deliberate.Observer {
	return func(s deliberate.State) {
		m.program.Send(PhaseSnapshotMsg{State: s})
	}
}

// Run blocks until the program exits.
func (m *Monitor) Run() error {
	_, err := m.program.Run()
	return err
}

// Done signals session completion and stops the view.
func (m *Monitor) Done(err error) {
	m.program.Send(DoneMsg{Err: err})
}
