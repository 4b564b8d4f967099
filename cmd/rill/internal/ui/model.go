// Package ui is the terminal dashboard shown by rill watch and rill dev.
package ui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/recera/rill/cmd/rill/internal/build"
)

// FileStatus is the last known state of a template
type FileStatus int

const (
	StatusPending FileStatus = iota
	StatusBuilding
	StatusCompiled
	StatusFailed
)

func (s FileStatus) String() string {
	switch s {
	case StatusBuilding:
		return "building"
	case StatusCompiled:
		return "compiled"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// fileState tracks one template
type fileState struct {
	status  FileStatus
	output  string
	message string
}

// Model is the watch dashboard state
type Model struct {
	title  string
	detail string

	files map[string]*fileState
	order []string

	building bool
	builds   int
	spinner  spinner.Model
	keys     KeyMap

	width    int
	showHelp bool
	quitting bool
}

// KeyMap defines the dashboard shortcuts
type KeyMap struct {
	Quit  key.Binding
	Help  key.Binding
	Clear key.Binding
}

var DefaultKeyMap = KeyMap{
	Quit: key.NewBinding(
		key.WithKeys("ctrl+c", "q"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Clear: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "clear compiled"),
	),
}

// Messages

// BuildStartedMsg reports templates about to be compiled
type BuildStartedMsg struct {
	Paths []string
}

// BuildFinishedMsg reports the outcome of a batch
type BuildFinishedMsg struct {
	Results []build.Result
}

// RemovedMsg reports templates deleted from disk
type RemovedMsg struct {
	Paths []string
}

// NewModel creates a dashboard. detail is shown under the title, such as
// the watched directory or the server address.
func NewModel(title, detail string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	return Model{
		title:   title,
		detail:  detail,
		files:   make(map[string]*fileState),
		spinner: s,
		keys:    DefaultKeyMap,
	}
}

// Init starts the spinner
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
		case key.Matches(msg, m.keys.Clear):
			m.clearCompiled()
		}
		return m, nil

	case BuildStartedMsg:
		m.building = true
		for _, path := range msg.Paths {
			m.file(path).status = StatusBuilding
		}
		return m, nil

	case BuildFinishedMsg:
		m.building = false
		m.builds++
		for _, r := range msg.Results {
			f := m.file(r.Source)
			f.output = r.Output
			if r.Err != nil {
				f.status = StatusFailed
				f.message = r.Err.Error()
			} else {
				f.status = StatusCompiled
				f.message = ""
			}
		}
		return m, nil

	case RemovedMsg:
		for _, path := range msg.Paths {
			m.remove(path)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) file(path string) *fileState {
	f, ok := m.files[path]
	if !ok {
		f = &fileState{}
		m.files[path] = f
		m.order = append(m.order, path)
	}
	return f
}

func (m *Model) remove(path string) {
	if _, ok := m.files[path]; !ok {
		return
	}
	delete(m.files, path)
	for i, p := range m.order {
		if p == path {
			m.order = append(m.order[:i:i], m.order[i+1:]...)
			break
		}
	}
}

// clearCompiled drops successful entries so failures stand out
func (m *Model) clearCompiled() {
	var order []string
	for _, path := range m.order {
		if m.files[path].status == StatusCompiled {
			delete(m.files, path)
			continue
		}
		order = append(order, path)
	}
	m.order = order
}

// Status returns the state of path and whether it is tracked
func (m Model) Status(path string) (FileStatus, bool) {
	f, ok := m.files[path]
	if !ok {
		return StatusPending, false
	}
	return f.status, true
}
