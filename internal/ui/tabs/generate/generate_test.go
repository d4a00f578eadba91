package generate

import (
	"strings"
	"testing"

	"github.com/dmelo/outfit-studio/internal/app"
	"github.com/dmelo/outfit-studio/internal/services/transform"
)

func newTestModel() *Model {
	orch := transform.NewTextToImage(nil, nil, nil, nil, nil, nil)
	return New(app.NewState(), app.NewCommands(nil), orch)
}

func TestNew(t *testing.T) {
	m := newTestModel()
	if m == nil {
		t.Fatal("New returned nil")
	}
	if m.promptInput.Value() != "" {
		t.Error("prompt field should start empty")
	}
	if !m.promptInput.Focused() {
		t.Error("prompt field should start focused")
	}
}

func TestModel_View(t *testing.T) {
	m := newTestModel()
	m.SetSize(100, 40)

	view := m.View()
	if !strings.Contains(view, "Generate Image") {
		t.Error("view should contain the title")
	}
	if !strings.Contains(view, "ctrl+s") {
		t.Error("idle view should hint at the submit key")
	}
}

func TestModel_ViewAfterFailure(t *testing.T) {
	m := newTestModel()
	m.SetSize(100, 40)

	// Submitting an empty prompt fails locally and shows the reason.
	_ = m.orch.Submit(nil)
	view := m.View()
	if !strings.Contains(view, "Error:") {
		t.Errorf("failed state should show the error, got %q", view)
	}
}

func TestModel_ShortHelp(t *testing.T) {
	m := newTestModel()
	if len(m.ShortHelp()) != 3 {
		t.Errorf("expected 3 bindings, got %d", len(m.ShortHelp()))
	}
}
