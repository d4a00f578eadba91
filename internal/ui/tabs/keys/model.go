// Package keys provides the API key management tab.
package keys

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dmelo/outfit-studio/internal/app"
	"github.com/dmelo/outfit-studio/internal/services/apikey"
	"github.com/dmelo/outfit-studio/internal/ui/components"
)

// keyMap defines the key bindings specific to the keys tab.
type keyMap struct {
	Set      key.Binding
	Validate key.Binding
	Clear    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Set: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "set key"),
		),
		Validate: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "test key"),
		),
		Clear: key.NewBinding(
			key.WithKeys("ctrl+x"),
			key.WithHelp("ctrl+x", "clear key"),
		),
	}
}

// Model represents the keys tab state.
type Model struct {
	state   *app.State
	cmds    *app.Commands
	service *apikey.Service

	keyInput textinput.Model
	spinner  components.LoadingSpinner
	keys     keyMap

	lastError error
	width     int
	height    int
}

// New creates a new keys tab model.
func New(state *app.State, cmds *app.Commands, service *apikey.Service) *Model {
	input := textinput.New()
	input.Placeholder = "paste your API key"
	input.EchoMode = textinput.EchoPassword
	input.Focus()

	return &Model{
		state:    state,
		cmds:     cmds,
		service:  service,
		keyInput: input,
		spinner:  components.NewSpinner("Checking key..."),
		keys:     defaultKeyMap(),
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
		case key.Matches(msg, m.keys.Set):
			return m, m.setKey()

		case key.Matches(msg, m.keys.Validate):
			return m, m.validateKey()

		case key.Matches(msg, m.keys.Clear):
			m.lastError = nil
			return m, m.cmds.ClearKey()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case app.KeySetResultMsg:
		m.lastError = msg.Error
		if msg.Error == nil {
			m.keyInput.SetValue("")
			cmds = append(cmds, m.cmds.Notify(app.NotificationSuccess, "API key saved"))
		}

	case app.KeyValidatedMsg:
		m.lastError = msg.Error
		if msg.Error == nil {
			if msg.Valid {
				cmds = append(cmds, m.cmds.Notify(app.NotificationSuccess, "API key is valid"))
			} else {
				cmds = append(cmds, m.cmds.Notify(app.NotificationWarning, "API key was rejected"))
			}
		}

	case app.KeyClearedMsg:
		if msg.Error == nil {
			cmds = append(cmds, m.cmds.Notify(app.NotificationInfo, "API key cleared"))
		} else {
			m.lastError = msg.Error
		}
	}

	var cmd tea.Cmd
	m.keyInput, cmd = m.keyInput.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *Model) setKey() tea.Cmd {
	m.lastError = nil
	return m.cmds.SetKey(m.keyInput.Value())
}

// validateKey checks the typed key if any, otherwise the stored one.
func (m *Model) validateKey() tea.Cmd {
	m.lastError = nil
	candidate := strings.TrimSpace(m.keyInput.Value())
	if candidate == "" {
		candidate = m.service.Key()
	}
	if candidate == "" {
		return m.cmds.Notify(app.NotificationWarning, "No key to test")
	}
	return m.cmds.ValidateKey(candidate)
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.keyInput.Width = max(width-10, 20)
}

// ShortHelp returns key bindings for the help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.Set, m.keys.Validate, m.keys.Clear}
}
