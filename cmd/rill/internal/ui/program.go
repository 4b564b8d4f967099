package ui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/recera/rill/cmd/rill/internal/build"
)

// Dashboard runs the model in the terminal and forwards build events to it
type Dashboard struct {
	program *tea.Program
}

// NewDashboard creates a dashboard that is not yet running
func NewDashboard(title, detail string) *Dashboard {
	return &Dashboard{
		program: tea.NewProgram(NewModel(title, detail), tea.WithAltScreen()),
	}
}

// Run blocks until the user quits
func (d *Dashboard) Run() error {
	if _, err := d.program.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// Quit stops a running dashboard
func (d *Dashboard) Quit() {
	d.program.Quit()
}

// Started reports templates about to be compiled
func (d *Dashboard) Started(paths []string) {
	d.program.Send(BuildStartedMsg{Paths: paths})
}

// Finished reports compiled templates
func (d *Dashboard) Finished(results []build.Result) {
	d.program.Send(BuildFinishedMsg{Results: results})
}

// Removed reports deleted templates
func (d *Dashboard) Removed(paths []string) {
	d.program.Send(RemovedMsg{Paths: paths})
}

// IsTerminal checks if we're running in a terminal
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
