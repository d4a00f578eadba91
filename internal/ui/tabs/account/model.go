// Package account provides the account tab: session, usage, and the
// local transform-call history.
package account

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dmelo/outfit-studio/internal/app"
	"github.com/dmelo/outfit-studio/internal/services/auth"
	"github.com/dmelo/outfit-studio/internal/ui/components"
)

// historyLimit caps the rows fetched from the local call history.
const historyLimit = 20

// keyMap defines the key bindings specific to the account tab.
type keyMap struct {
	SignIn   key.Binding
	SignOut  key.Binding
	Refresh  key.Binding
	Checkout key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		SignIn: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "sign in"),
		),
		SignOut: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "sign out"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Checkout: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "upgrade"),
		),
	}
}

// Model represents the account tab state.
type Model struct {
	state *app.State
	cmds  *app.Commands

	spinner components.LoadingSpinner
	keys    keyMap

	busy        bool
	checkoutURL string
	lastError   error
	width       int
	height      int
}

// New creates a new account tab model.
func New(state *app.State, cmds *app.Commands) *Model {
	return &Model{
		state:   state,
		cmds:    cmds,
		spinner: components.NewSpinner("Working..."),
		keys:    defaultKeyMap(),
	}
}

// Init initializes the model and loads the usage view when a session
// was restored from storage.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Init(), m.cmds.LoadHistory(historyLimit)}
	if state, _ := m.state.Session(); state == auth.SignedIn {
		cmds = append(cmds, m.cmds.LoadUsage())
	}
	return tea.Batch(cmds...)
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

	case app.SignInResultMsg:
		m.busy = false
		m.lastError = msg.Error
		if msg.Error == nil {
			cmds = append(cmds,
				m.cmds.Notify(app.NotificationSuccess, "Signed in"),
				m.cmds.LoadUsage(),
			)
		}

	case app.SignOutResultMsg:
		m.busy = false
		m.lastError = msg.Error
		m.checkoutURL = ""
		cmds = append(cmds, m.cmds.Notify(app.NotificationInfo, "Signed out"))

	case app.ProfileRefreshedMsg:
		m.busy = false
		m.lastError = msg.Error
		if msg.Error == nil {
			cmds = append(cmds, m.cmds.LoadUsage())
		}

	case app.CheckoutResultMsg:
		m.busy = false
		m.lastError = msg.Error
		if msg.Error == nil {
			m.checkoutURL = msg.URL
			cmds = append(cmds, m.cmds.Notify(app.NotificationInfo, "Open the checkout link in a browser"))
		}

	case app.UsageLoadedMsg:
		if msg.Error != nil {
			m.lastError = msg.Error
		}

	case app.SubmitResultMsg:
		// Each transform changes both remaining calls and the history.
		cmds = append(cmds, m.cmds.LoadHistory(historyLimit))
		if state, _ := m.state.Session(); state == auth.SignedIn {
			cmds = append(cmds, m.cmds.LoadUsage())
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	if m.busy {
		return nil
	}
	state, _ := m.state.Session()

	switch {
	case key.Matches(msg, m.keys.SignIn):
		if state != auth.SignedOut {
			return nil
		}
		m.busy = true
		m.lastError = nil
		return m.cmds.SignIn()

	case key.Matches(msg, m.keys.SignOut):
		if state != auth.SignedIn {
			return nil
		}
		m.busy = true
		m.lastError = nil
		return m.cmds.SignOut()

	case key.Matches(msg, m.keys.Refresh):
		if state != auth.SignedIn {
			return tea.Batch(m.cmds.LoadHistory(historyLimit))
		}
		m.busy = true
		m.lastError = nil
		return tea.Batch(m.cmds.RefreshProfile(), m.cmds.LoadHistory(historyLimit))

	case key.Matches(msg, m.keys.Checkout):
		if state != auth.SignedIn {
			return nil
		}
		m.busy = true
		m.lastError = nil
		return m.cmds.StartCheckout()
	}

	return nil
}

// SetSize sets the available size for the tab.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// ShortHelp returns key bindings for the help view.
func (m *Model) ShortHelp() []key.Binding {
	return []key.Binding{m.keys.SignIn, m.keys.SignOut, m.keys.Refresh, m.keys.Checkout}
}
