package ui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/go-cmp/cmp"

	"github.com/recera/rill/cmd/rill/internal/build"
)

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Expected Model, got %T", next)
	}
	return model
}

func keyMsg(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func TestModel_BuildLifecycle(t *testing.T) {
	m := NewModel("rill watch", "src")
	m = update(t, m, BuildStartedMsg{Paths: []string{"a.rill", "b.rill"}})

	if status, ok := m.Status("a.rill"); !ok || status != StatusBuilding {
		t.Errorf("Expected a.rill building, got %v (tracked %v)", status, ok)
	}
	if !strings.Contains(m.View(), "compiling...") {
		t.Errorf("Expected compiling indicator in view:\n%s", m.View())
	}

	m = update(t, m, BuildFinishedMsg{Results: []build.Result{
		{Source: "a.rill", Output: "a.rill.js"},
		{Source: "b.rill", Output: "b.rill.js", Err: errors.New("1:4: expected </p>")},
	}})

	view := m.View()
	for _, want := range []string{"a.rill", "compiled", "a.rill.js", "b.rill", "failed", "expected </p>", "1 compiled, 1 failed"} {
		if !strings.Contains(view, want) {
			t.Errorf("Expected view to contain %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "compiling...") {
		t.Errorf("Expected no compiling indicator after the build:\n%s", view)
	}
}

func TestModel_Order(t *testing.T) {
	m := NewModel("rill watch", "")
	m = update(t, m, BuildStartedMsg{Paths: []string{"b.rill", "a.rill"}})
	m = update(t, m, BuildStartedMsg{Paths: []string{"a.rill", "c.rill"}})

	if diff := cmp.Diff([]string{"b.rill", "a.rill", "c.rill"}, m.order); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}

	m = update(t, m, RemovedMsg{Paths: []string{"a.rill", "missing.rill"}})
	if diff := cmp.Diff([]string{"b.rill", "c.rill"}, m.order); diff != "" {
		t.Errorf("order after removal mismatch (-want +got):\n%s", diff)
	}
	if _, ok := m.Status("a.rill"); ok {
		t.Error("Expected a.rill to be untracked")
	}
}

func TestModel_Keys(t *testing.T) {
	m := NewModel("rill watch", "")
	m = update(t, m, BuildFinishedMsg{Results: []build.Result{
		{Source: "ok.rill"},
		{Source: "bad.rill", Err: errors.New("boom")},
	}})

	m = update(t, m, keyMsg('c'))
	if diff := cmp.Diff([]string{"bad.rill"}, m.order); diff != "" {
		t.Errorf("order after clear mismatch (-want +got):\n%s", diff)
	}

	if strings.Contains(m.View(), "clear compiled") {
		t.Error("Expected full help to be hidden by default")
	}
	m = update(t, m, keyMsg('?'))
	if !strings.Contains(m.View(), "clear compiled") {
		t.Errorf("Expected full help after ?:\n%s", m.View())
	}

	next, cmd := m.Update(keyMsg('q'))
	if cmd == nil {
		t.Fatal("Expected a command from the quit key")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("Expected the quit key to return tea.Quit")
	}
	if view := next.View(); view != "" {
		t.Errorf("Expected empty view after quitting, got %q", view)
	}
}

func TestModel_Empty(t *testing.T) {
	m := NewModel("rill watch", "src")
	if !strings.Contains(m.View(), "waiting for changes") {
		t.Errorf("Expected idle message:\n%s", m.View())
	}
}
