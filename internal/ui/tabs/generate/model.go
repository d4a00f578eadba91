// Package generate provides the text-to-image tab.
package generate

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dmelo/outfit-studio/internal/app"
	"github.com/dmelo/outfit-studio/internal/models"
	"github.com/dmelo/outfit-studio/internal/services/transform"
	"github.com/dmelo/outfit-studio/internal/ui/components"
)

// keyMap defines the key bindings specific to the generate tab.
type keyMap struct {
	Submit key.Binding
	Save   key.Binding
	Reset  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Submit: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "generate"),
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

// Model represents the generate tab state.
type Model struct {
	state *app.State
	cmds  *app.Commands
	orch  *transform.Orchestrator

	promptInput textarea.Model
	spinner     components.LoadingSpinner
	keys        keyMap

	savedPath string
	width     int
	height    int
}

// New creates a new generate tab model.
func New(state *app.State, cmds *app.Commands, orch *transform.Orchestrator) *Model {
	prompt := textarea.New()
	prompt.Placeholder = "describe the image to generate"
	prompt.SetHeight(6)
	prompt.Focus()

	return &Model{
		state:       state,
		cmds:        cmds,
		orch:        orch,
		promptInput: prompt,
		spinner:     components.NewSpinner("Generating image..."),
		keys:        defaultKeyMap(),
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
		switch {
		case key.Matches(msg, m.keys.Submit):
			return m, m.submit()

		case key.Matches(msg, m.keys.Save):
			if m.orch.Result().HasImage() {
				return m, m.cmds.SaveResult(m.orch)
			}
			return m, nil

		case key.Matches(msg, m.keys.Reset):
			m.orch.Reset()
			m.promptInput.SetValue("")
			m.savedPath = ""
			return m, nil
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case app.SubmitResultMsg:
		if msg.Kind == models.KindTextToImage && msg.Error == nil {
			cmds = append(cmds, m.cmds.Notify(app.NotificationSuccess, "Image generated"))
		}

	case app.SaveResultMsg:
		if msg.Kind == models.KindTextToImage {
			if msg.Error == nil {
				m.savedPath = msg.Path
				cmds = append(cmds, m.cmds.Notify(app.NotificationSuccess, "Saved to "+msg.Path))
			} else {
				cmds = append(cmds, m.cmds.Notify(app.NotificationError, "Save failed: "+msg.Error.Error()))
			}
		}
	}

	var cmd tea.Cmd
	m.promptInput, cmd = m.promptInput.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) submit() tea.Cmd {
	if m.orch.Phase() == transform.Submitting {
		return nil
	}

	m.orch.SetPrompt(m.promptInput.Value())
	m.savedPath = ""

	return m.cmds.Submit(m.orch)
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.promptInput.SetWidth(max(width-10, 20))
}

// ShortHelp returns key bindings for the help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Submit, m.keys.Save, m.keys.Reset}
}
