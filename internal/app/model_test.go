package app

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dmelo/outfit-studio/internal/models"
)

func TestNewModel(t *testing.T) {
	model := NewModel(nil)
	if model == nil {
		t.Fatal("NewModel returned nil")
	}
	if model.state == nil {
		t.Error("State should be initialized")
	}
	if model.activeTab != TabSwap {
		t.Error("Default tab should be Swap")
	}
	if len(model.tabs) != 4 {
		t.Errorf("Should have 4 tab placeholders, got %d", len(model.tabs))
	}
}

func TestModel_Init(t *testing.T) {
	model := NewModel(nil)
	cmd := model.Init()
	if cmd == nil {
		t.Error("Init returned nil command")
	}
}

func TestModel_Update_WindowSize(t *testing.T) {
	model := NewModel(nil)
	msg := tea.WindowSizeMsg{Width: 100, Height: 50}

	newModel, _ := model.Update(msg)

	m, ok := newModel.(*Model)
	if !ok {
		t.Fatal("Update returned wrong model type")
	}

	if m.width != 100 {
		t.Errorf("Width = %d, want 100", m.width)
	}
	if m.height != 50 {
		t.Errorf("Height = %d, want 50", m.height)
	}
	if !m.ready {
		t.Error("Model should be ready after WindowSizeMsg")
	}
}

func TestModel_Update_TabSwitch(t *testing.T) {
	model := NewModel(nil)
	model.ready = true
	model.width = 100
	model.height = 50

	msg := TabSwitchMsg{Tab: TabAccount}
	newModel, _ := model.Update(msg)
	m := newModel.(*Model)

	if m.activeTab != TabAccount {
		t.Errorf("ActiveTab = %v, want Account", m.activeTab)
	}

	// F2 selects the generate tab.
	keyMsg := tea.KeyMsg{Type: tea.KeyF2}
	newModel, _ = m.Update(keyMsg)
	m = newModel.(*Model)
	if m.activeTab != TabGenerate {
		t.Errorf("ActiveTab = %v, want Generate", m.activeTab)
	}
}

func TestModel_Update_NextPrevTab(t *testing.T) {
	model := NewModel(nil)
	model.ready = true

	next := tea.KeyMsg{Type: tea.KeyCtrlRight}
	newModel, _ := model.Update(next)
	m := newModel.(*Model)
	if m.activeTab != TabGenerate {
		t.Errorf("ActiveTab = %v, want Generate", m.activeTab)
	}

	prev := tea.KeyMsg{Type: tea.KeyCtrlLeft}
	newModel, _ = m.Update(prev)
	m = newModel.(*Model)
	if m.activeTab != TabSwap {
		t.Errorf("ActiveTab = %v, want Swap", m.activeTab)
	}

	// Wraps around backwards.
	newModel, _ = m.Update(prev)
	m = newModel.(*Model)
	if m.activeTab != TabKey {
		t.Errorf("ActiveTab = %v, want Key", m.activeTab)
	}
}

func TestModel_Update_Notifications(t *testing.T) {
	model := NewModel(nil)

	msg := AddNotificationMsg{Type: NotificationSuccess, Message: "done", Duration: time.Minute}
	newModel, cmd := model.Update(msg)
	m := newModel.(*Model)

	if cmd == nil {
		t.Error("adding a notification should schedule its removal")
	}
	notifications := m.state.GetNotifications()
	if len(notifications) != 1 || notifications[0].Message != "done" {
		t.Errorf("unexpected notifications: %+v", notifications)
	}

	newModel, _ = m.Update(RemoveNotificationMsg{ID: notifications[0].ID})
	m = newModel.(*Model)
	if len(m.state.GetNotifications()) != 0 {
		t.Error("notification should be removed")
	}
}

func TestModel_Update_UsageLoaded(t *testing.T) {
	model := NewModel(nil)

	snapshot := &models.UsageSnapshot{APICallsRemaining: models.RemainingCalls{Count: 4}}
	newModel, _ := model.Update(UsageLoadedMsg{Snapshot: snapshot})
	m := newModel.(*Model)

	if got := m.state.GetUsage(); got == nil || got.APICallsRemaining.Count != 4 {
		t.Errorf("usage should be stored, got %+v", got)
	}
}

func TestModel_Update_HistoryLoaded(t *testing.T) {
	model := NewModel(nil)

	calls := []models.CallRecord{{Kind: models.KindOutfitSwap, Status: models.CallStatusOK}}
	newModel, _ := model.Update(HistoryLoadedMsg{Calls: calls})
	m := newModel.(*Model)

	if got := m.state.GetCalls(); len(got) != 1 || got[0].Kind != models.KindOutfitSwap {
		t.Errorf("history should be stored, got %+v", got)
	}
}

func TestModel_View_Navbar(t *testing.T) {
	model := NewModel(nil)
	model.ready = true
	model.width = 120
	model.height = 40

	view := model.View()
	for _, name := range []string{"Swap", "Generate", "Account", "API Key"} {
		if !strings.Contains(view, name) {
			t.Errorf("navbar should mention %q", name)
		}
	}
}

func TestModel_HelpToggle(t *testing.T) {
	model := NewModel(nil)
	model.ready = true
	model.width = 120
	model.height = 40

	help := tea.KeyMsg{Type: tea.KeyCtrlH}
	newModel, _ := model.Update(help)
	m := newModel.(*Model)
	if !m.showHelp {
		t.Error("help should be shown after toggle")
	}
	if !strings.Contains(m.View(), "Keyboard Shortcuts") {
		t.Error("help overlay should render")
	}

	esc := tea.KeyMsg{Type: tea.KeyEscape}
	newModel, _ = m.Update(esc)
	m = newModel.(*Model)
	if m.showHelp {
		t.Error("escape should dismiss help")
	}
}

func TestTabID_String(t *testing.T) {
	cases := map[TabID]string{
		TabSwap:     "Swap",
		TabGenerate: "Generate",
		TabAccount:  "Account",
		TabKey:      "API Key",
		TabID(99):   "Unknown",
	}
	for id, want := range cases {
		if id.String() != want {
			t.Errorf("expected %q, got %q", want, id.String())
		}
	}
}
