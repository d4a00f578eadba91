// Package swap provides the outfit-swap tab.
package swap

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dmelo/outfit-studio/internal/app"
	"github.com/dmelo/outfit-studio/internal/models"
	"github.com/dmelo/outfit-studio/internal/services/transform"
	"github.com/dmelo/outfit-studio/internal/ui/components"
)

// focusField identifies which input currently has focus.
type focusField int

const (
	focusPrimary focusField = iota
	focusSecondary
	focusPrompt
	focusCount
)

// keyMap defines the key bindings specific to the swap tab.
type keyMap struct {
	NextField key.Binding
	Submit    key.Binding
	Save      key.Binding
	Reset     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		NextField: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "swap outfit"),
		),
		Save: key.NewBinding(
			key.WithKeys("ctrl+o"),
			key.WithHelp("ctrl+o", "save result"),
		),
		Reset: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "reset form"),
		),
	}
}

// Model represents the swap tab state.
type Model struct {
	state *app.State
	cmds  *app.Commands
	orch  *transform.Orchestrator

	primaryInput   textinput.Model
	secondaryInput textinput.Model
	promptInput    textarea.Model
	focus          focusField

	spinner components.LoadingSpinner
	keys    keyMap

	savedPath string
	width     int
	height    int
}

// New creates a new swap tab model.
func New(state *app.State, cmds *app.Commands, orch *transform.Orchestrator) *Model {
	primary := textinput.New()
	primary.Placeholder = "path to person image"
	primary.Focus()

	secondary := textinput.New()
	secondary.Placeholder = "path to reference outfit image"

	prompt := textarea.New()
	prompt.SetValue(orch.Prompt())
	prompt.SetHeight(4)

	return &Model{
		state:          state,
		cmds:           cmds,
		orch:           orch,
		primaryInput:   primary,
		secondaryInput: secondary,
		promptInput:    prompt,
		focus:          focusPrimary,
		spinner:        components.NewSpinner("Swapping outfit..."),
		keys:           defaultKeyMap(),
	}
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Init()
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (app.Tab, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd := m.handleKeyMsg(msg); cmd != nil {
			return m, cmd
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case app.SubmitResultMsg:
		if msg.Kind == models.KindOutfitSwap && msg.Error == nil {
			cmds = append(cmds, m.cmds.Notify(app.NotificationSuccess, "Outfit swap complete"))
		}

	case app.SaveResultMsg:
		if msg.Kind == models.KindOutfitSwap {
			if msg.Error == nil {
				m.savedPath = msg.Path
				cmds = append(cmds, m.cmds.Notify(app.NotificationSuccess, "Saved to "+msg.Path))
			} else {
				cmds = append(cmds, m.cmds.Notify(app.NotificationError, "Save failed: "+msg.Error.Error()))
			}
		}
	}

	cmds = append(cmds, m.updateInputs(msg)...)

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.NextField):
		m.cycleFocus()
		return nil

	case key.Matches(msg, m.keys.Submit):
		return m.submit()

	case key.Matches(msg, m.keys.Save):
		if m.orch.Result().HasImage() {
			return m.cmds.SaveResult(m.orch)
		}
		return nil

	case key.Matches(msg, m.keys.Reset):
		m.orch.Reset()
		m.primaryInput.SetValue("")
		m.secondaryInput.SetValue("")
		m.promptInput.SetValue(m.orch.Prompt())
		m.savedPath = ""
		return nil
	}

	return nil
}

// submit copies the form into the orchestrator and starts the request.
// The triggering key is ignored while a request is in flight.
func (m *Model) submit() tea.Cmd {
	if m.orch.Phase() == transform.Submitting {
		return nil
	}

	m.orch.SetPrimaryImage(imageRef(m.primaryInput.Value()))
	m.orch.SetSecondaryImage(imageRef(m.secondaryInput.Value()))
	m.orch.SetPrompt(m.promptInput.Value())
	m.savedPath = ""

	return m.cmds.Submit(m.orch)
}

func imageRef(path string) *models.ImageRef {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil
	}
	return &models.ImageRef{Path: trimmed}
}

func (m *Model) cycleFocus() {
	m.focus = (m.focus + 1) % focusCount

	m.primaryInput.Blur()
	m.secondaryInput.Blur()
	m.promptInput.Blur()

	switch m.focus {
	case focusPrimary:
		m.primaryInput.Focus()
	case focusSecondary:
		m.secondaryInput.Focus()
	case focusPrompt:
		m.promptInput.Focus()
	}
}

func (m *Model) updateInputs(msg tea.Msg) []tea.Cmd {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	m.primaryInput, cmd = m.primaryInput.Update(msg)
	cmds = append(cmds, cmd)
	m.secondaryInput, cmd = m.secondaryInput.Update(msg)
	cmds = append(cmds, cmd)
	m.promptInput, cmd = m.promptInput.Update(msg)
	cmds = append(cmds, cmd)

	return cmds
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height

	inputWidth := max(width-10, 20)
	m.primaryInput.Width = inputWidth
	m.secondaryInput.Width = inputWidth
	m.promptInput.SetWidth(inputWidth)
}

// ShortHelp returns key bindings for the help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.NextField, m.keys.Submit, m.keys.Save, m.keys.Reset}
}
