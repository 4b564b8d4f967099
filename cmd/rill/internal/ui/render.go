package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Style definitions
var (
	// Colors
	primaryColor = lipgloss.Color("#3b82f6")
	successColor = lipgloss.Color("#10b981")
	warningColor = lipgloss.Color("#f59e0b")
	errorColor   = lipgloss.Color("#ef4444")
	mutedColor   = lipgloss.Color("#94a3b8")

	baseStyle = lipgloss.NewStyle().
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(warningColor)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(primaryColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	footerStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginTop(1)
)

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n")
	if m.detail != "" {
		b.WriteString(mutedStyle.Render(m.detail))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.building {
		b.WriteString(m.spinner.View() + " compiling...\n\n")
	} else if m.builds > 0 {
		b.WriteString(m.renderSummary() + "\n\n")
	}

	if len(m.order) == 0 {
		b.WriteString(mutedStyle.Render("waiting for changes"))
		b.WriteString("\n")
	}
	for _, path := range m.order {
		b.WriteString(m.renderFile(path))
		b.WriteString("\n")
	}

	b.WriteString(footerStyle.Render(m.renderHelp()))
	return baseStyle.Render(b.String())
}

func (m Model) renderSummary() string {
	var compiled, failed int
	for _, f := range m.files {
		switch f.status {
		case StatusCompiled:
			compiled++
		case StatusFailed:
			failed++
		}
	}
	if failed > 0 {
		return errorStyle.Render(fmt.Sprintf("%d compiled, %d failed", compiled, failed))
	}
	return successStyle.Render(fmt.Sprintf("%d compiled", compiled))
}

func (m Model) renderFile(path string) string {
	f := m.files[path]

	var icon, status string
	switch f.status {
	case StatusBuilding:
		icon = m.spinner.View()
		status = warningStyle.Render(f.status.String())
	case StatusCompiled:
		icon = successStyle.Render("✓")
		status = successStyle.Render(f.status.String())
	case StatusFailed:
		icon = errorStyle.Render("✗")
		status = errorStyle.Render(f.status.String())
	default:
		icon = mutedStyle.Render("·")
		status = mutedStyle.Render(f.status.String())
	}

	line := fmt.Sprintf("%s %s %s", icon, path, status)
	if f.status == StatusCompiled && f.output != "" {
		line += mutedStyle.Render(" → " + f.output)
	}
	if f.message != "" {
		line += "\n    " + errorStyle.Render(f.message)
	}
	return line
}

func (m Model) renderHelp() string {
	if !m.showHelp {
		return helpStyle.Render(m.keys.Help.Help().Key + " help • " + m.keys.Quit.Help().Key + " quit")
	}
	var parts []string
	for _, binding := range []struct{ key, desc string }{
		{m.keys.Clear.Help().Key, m.keys.Clear.Help().Desc},
		{m.keys.Help.Help().Key, "hide help"},
		{m.keys.Quit.Help().Key, m.keys.Quit.Help().Desc},
	} {
		parts = append(parts, binding.key+" "+binding.desc)
	}
	return helpStyle.Render(strings.Join(parts, " • "))
}
