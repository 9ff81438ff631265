package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ponderhq/ponder/internal/deliberate"
	"github.com/ponderhq/ponder/pkg/models"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	branchStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	completeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Italic(true)
)

// View implements tea.Model.
func (a *App) View() string {
	if a.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("ponder") + " " + truncate(a.query, 70) + "\n\n")

	switch {
	case a.tree != nil:
		a.renderTree(&b)
	case a.phase != nil:
		a.renderPhases(&b)
	default:
		b.WriteString(a.spinner.View() + " choosing engine\n")
	}

	if a.done {
		if a.err != nil {
			b.WriteString("\n" + failedStyle.Render("reasoning failed, answering directly") + "\n")
		}
	} else {
		b.WriteString("\n" + footerStyle.Render("q to quit") + "\n")
	}
	return b.String()
}

// renderTree draws the node tree, one line per node, depth-indented.
func (a *App) renderTree(b *strings.Builder) {
	root := a.tree.Root()
	if root == nil {
		return
	}
	a.renderNode(b, root, 0)
}

func (a *App) renderNode(b *strings.Builder, n *models.Node, depth int) {
	indent := strings.Repeat("  ", depth)
	prefix := ""
	if depth > 0 {
		prefix = branchStyle.Render("|-- ")
	}

	title := n.Title
	if title == "" || title == "root" {
		title = truncate(n.Query, 60)
	} else {
		title = truncate(title, 60)
	}

	fmt.Fprintf(b, "%s%s%s %s %s\n", indent, prefix, a.nodeGlyph(n.Status), title, pendingStyle.Render(string(n.Status)))

	for _, id := range n.Children {
		if child := a.tree.Node(id); child != nil {
			a.renderNode(b, child, depth+1)
		}
	}
}

func (a *App) nodeGlyph(status models.NodeStatus) string {
	switch status {
	case models.NodeStatusComplete:
		return completeStyle.Render("✓")
	case models.NodeStatusFailed:
		return failedStyle.Render("✗")
	case models.NodeStatusPending:
		return pendingStyle.Render("·")
	default:
		return a.spinner.View()
	}
}

// renderPhases draws deliberation progress: the current phase plus one line
// per strategy during critique.
func (a *App) renderPhases(b *strings.Builder) {
	fmt.Fprintf(b, "%s %s\n", a.spinner.View(), activeStyle.Render(string(a.phase.Phase)))

	for _, s := range a.phase.Strategies {
		glyph := pendingStyle.Render("·")
		switch a.phase.StrategyStates[s.ID] {
		case deliberate.StrategyRunning:
			glyph = a.spinner.View()
		case deliberate.StrategyComplete:
			glyph = completeStyle.Render("✓")
		}
		fmt.Fprintf(b, "  %s %s\n", glyph, truncate(s.Title, 60))
	}

	if a.phase.Blueprint != nil {
		b.WriteString(completeStyle.Render("  blueprint ready") + "\n")
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
