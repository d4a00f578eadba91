// Package app implements the main Bubble Tea application with tab-based navigation.
package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/dmelo/outfit-studio/internal/services"
)

// TabID represents the identifier for a tab in the application.
type TabID int

const (
	// TabSwap is the ID for the outfit-swap tab.
	TabSwap TabID = iota
	// TabGenerate is the ID for the text-to-image tab.
	TabGenerate
	// TabAccount is the ID for the account tab.
	TabAccount
	// TabKey is the ID for the API key tab.
	TabKey
)

// String returns the string representation of the TabID.
func (t TabID) String() string {
	switch t {
	case TabSwap:
		return "Swap"
	case TabGenerate:
		return "Generate"
	case TabAccount:
		return "Account"
	case TabKey:
		return "API Key"
	default:
		return "Unknown"
	}
}

// Tab defines the interface that all tabs must implement.
type Tab interface {
	// Init initializes the tab and returns any initial commands.
	Init() tea.Cmd

	// Update handles messages and returns the updated tab and any commands.
	Update(msg tea.Msg) (Tab, tea.Cmd)

	// View renders the tab content.
	View() string

	// SetSize sets the available size for the tab.
	SetSize(width, height int)

	// ShortHelp returns key bindings for the short help view.
	ShortHelp() []key.Binding
}

// KeyMap defines the keybindings for the application.
type KeyMap struct {
	Tab1    key.Binding
	Tab2    key.Binding
	Tab3    key.Binding
	Tab4    key.Binding
	NextTab key.Binding
	PrevTab key.Binding
	Help    key.Binding
	Quit    key.Binding
	Escape  key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Tab1:    key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "swap")),
		Tab2:    key.NewBinding(key.WithKeys("f2"), key.WithHelp("F2", "generate")),
		Tab3:    key.NewBinding(key.WithKeys("f3"), key.WithHelp("F3", "account")),
		Tab4:    key.NewBinding(key.WithKeys("f4"), key.WithHelp("F4", "api key")),
		NextTab: key.NewBinding(key.WithKeys("ctrl+right"), key.WithHelp("ctrl+→", "next tab")),
		PrevTab: key.NewBinding(key.WithKeys("ctrl+left"), key.WithHelp("ctrl+←", "prev tab")),
		Help:    key.NewBinding(key.WithKeys("ctrl+h"), key.WithHelp("ctrl+h", "toggle help")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
		Escape:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	}
}

// Styles defines the application styles.
type Styles struct {
	TabBar       lipgloss.Style
	ActiveTab    lipgloss.Style
	InactiveTab  lipgloss.Style
	Content      lipgloss.Style
	Toast        lipgloss.Style
	Title        lipgloss.Style
	Subtle       lipgloss.Style
	Highlight    lipgloss.Style
	Error        lipgloss.Style
	Success      lipgloss.Style
	Warning      lipgloss.Style
	Notification map[NotificationType]lipgloss.Style
}

// DefaultStyles returns the default application styles.
func DefaultStyles() Styles {
	subtle := lipgloss.AdaptiveColor{Light: "#9B9B9B", Dark: "#5C5C5C"}
	highlight := lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	success := lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#04B575"}
	warning := lipgloss.AdaptiveColor{Light: "#FF8C00", Dark: "#FF8C00"}
	errorColor := lipgloss.AdaptiveColor{Light: "#FF5F87", Dark: "#FF5F87"}
	info := lipgloss.AdaptiveColor{Light: "#0087D7", Dark: "#5FAFFF"}

	s := Styles{}
	s.TabBar = lipgloss.NewStyle().Padding(0, 1).BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).BorderForeground(subtle)
	s.ActiveTab = lipgloss.NewStyle().Bold(true).Foreground(highlight).Padding(0, 2)
	s.InactiveTab = lipgloss.NewStyle().Foreground(subtle).Padding(0, 2)
	s.Content = lipgloss.NewStyle().Padding(1, 2)
	s.Toast = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(highlight).
		Padding(0, 1).
		MarginBottom(1)
	s.Title = lipgloss.NewStyle().Bold(true).Foreground(highlight)
	s.Subtle = lipgloss.NewStyle().Foreground(subtle)
	s.Highlight = lipgloss.NewStyle().Foreground(highlight)
	s.Error = lipgloss.NewStyle().Foreground(errorColor)
	s.Success = lipgloss.NewStyle().Foreground(success)
	s.Warning = lipgloss.NewStyle().Foreground(warning)
	s.Notification = map[NotificationType]lipgloss.Style{
		NotificationSuccess: lipgloss.NewStyle().Foreground(success).Padding(0, 1),
		NotificationError:   lipgloss.NewStyle().Foreground(errorColor).Bold(true).Padding(0, 1),
		NotificationWarning: lipgloss.NewStyle().Foreground(warning).Padding(0, 1),
		NotificationInfo:    lipgloss.NewStyle().Foreground(info).Padding(0, 1),
	}
	return s
}

// Model is the main application model.
type Model struct {
	activeTab TabID
	tabs      []Tab
	tabNames  []string

	state    *State
	services *services.Manager
	commands *Commands
	keymap   KeyMap
	styles   Styles

	spinner spinner.Model

	width  int
	height int

	showHelp bool
	ready    bool

	eventChannel chan services.ServiceEvent
}

// NewModel initializes a new application model.
func NewModel(mgr *services.Manager) *Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return &Model{
		activeTab: TabSwap,
		tabNames:  []string{"Swap", "Generate", "Account", "API Key"},
		tabs:      make([]Tab, 4),
		state:     NewState(),
		services:  mgr,
		commands:  NewCommands(mgr),
		keymap:    DefaultKeyMap(),
		styles:    DefaultStyles(),
		spinner:   s,
	}
}

// SetTabs sets the tabs for the model.
func (m *Model) SetTabs(tabs []Tab) {
	m.tabs = tabs
	if m.width > 0 && m.height > 0 {
		m.updateTabSizes()
	}
}

// GetState returns the application state.
func (m *Model) GetState() *State {
	return m.state
}

// GetCommands returns the commands helper.
func (m *Model) GetCommands() *Commands {
	return m.commands
}

// GetActiveTab returns the currently active tab ID.
func (m *Model) GetActiveTab() TabID {
	return m.activeTab
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		defaultTickCmd(),
	}

	if m.services != nil {
		cmds = append(cmds, subscribeToServicesCmd(m.services))

		// Seed state from the (possibly restored) session.
		m.state.SetSession(m.services.Auth().State(), m.services.Auth().User())
		m.state.SetKeyView(m.services.Keys().HasKey(), m.services.Keys().Validation(), false)
	}

	for _, tab := range m.tabs {
		if tab != nil {
			cmds = append(cmds, tab.Init())
		}
	}

	return tea.Batch(cmds...)
}

// Update handles messages and updates the model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.updateTabSizes()

	case tea.KeyMsg:
		if cmd := m.handleKeyMsg(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case TickMsg:
		m.state.ClearExpiredNotifications()
		cmds = append(cmds, defaultTickCmd())

	case SubscriptionEventMsg:
		m.eventChannel = msg.Channel
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))

	case ServiceEventMsg:
		cmds = append(cmds, m.handleServiceEvent(msg.Event)...)
		cmds = append(cmds, waitForServiceEventCmd(m.eventChannel))

	case AddNotificationMsg:
		id := m.state.AddNotification(msg.Type, msg.Message, msg.Duration)
		cmds = append(cmds, clearNotificationCmd(id, msg.Duration))

	case RemoveNotificationMsg:
		m.state.RemoveNotification(msg.ID)

	case ClearExpiredNotificationsMsg:
		m.state.ClearExpiredNotifications()

	case ErrorMsg:
		cmds = append(cmds, notifyErrorCmd(msg.Error.Error()))

	case TabSwitchMsg:
		m.activeTab = msg.Tab
		m.updateTabSizes()

	case UsageLoadedMsg:
		if msg.Error == nil {
			m.state.SetUsage(msg.Snapshot)
		}

	case HistoryLoadedMsg:
		if msg.Error == nil {
			m.state.SetCalls(msg.Calls)
		}
	}

	if cmd := m.updateActiveTab(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		return tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.showHelp = !m.showHelp
		return nil

	case key.Matches(msg, m.keymap.Tab1):
		return m.switchTab(TabSwap)
	case key.Matches(msg, m.keymap.Tab2):
		return m.switchTab(TabGenerate)
	case key.Matches(msg, m.keymap.Tab3):
		return m.switchTab(TabAccount)
	case key.Matches(msg, m.keymap.Tab4):
		return m.switchTab(TabKey)

	case key.Matches(msg, m.keymap.NextTab):
		return m.switchTab(TabID((int(m.activeTab) + 1) % len(m.tabs)))
	case key.Matches(msg, m.keymap.PrevTab):
		return m.switchTab(TabID((int(m.activeTab) - 1 + len(m.tabs)) % len(m.tabs)))

	case key.Matches(msg, m.keymap.Escape):
		if m.showHelp {
			m.showHelp = false
		}
		return nil
	}

	return nil
}

func (m *Model) switchTab(tab TabID) tea.Cmd {
	m.activeTab = tab
	m.updateTabSizes()
	return nil
}

func (m *Model) handleServiceEvent(event services.ServiceEvent) []tea.Cmd {
	var cmds []tea.Cmd

	switch e := event.(type) {
	case services.SessionChangedEvent:
		m.state.SetSession(e.State, e.User)

	case services.APIKeyChangedEvent:
		m.state.SetKeyView(e.HasKey, e.Validation, e.Validating)

	case services.TransformEvent:
		// Tabs consume these through updateActiveTab.

	case services.ErrorEvent:
		cmds = append(cmds, notifyErrorCmd(fmt.Sprintf("[%s] %v", e.Service, e.Error)))
	}

	return cmds
}

func (m *Model) updateActiveTab(msg tea.Msg) tea.Cmd {
	if int(m.activeTab) >= len(m.tabs) || m.tabs[m.activeTab] == nil {
		return nil
	}

	tab, cmd := m.tabs[m.activeTab].Update(msg)
	m.tabs[m.activeTab] = tab
	return cmd
}

func (m *Model) updateTabSizes() {
	contentHeight := m.height - 3 // tab bar
	for _, tab := range m.tabs {
		if tab != nil {
			tab.SetSize(m.width, contentHeight)
		}
	}
}

// View renders the application UI.
func (m *Model) View() string {
	var b strings.Builder

	if m.width > 0 {
		b.WriteString(m.renderNavbar())
		b.WriteString("\n")
	}

	if !m.ready {
		b.WriteString(m.styles.Content.Render(fmt.Sprintf("%s Loading...", m.spinner.View())))
		return b.String()
	}

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		b.WriteString(m.tabs[m.activeTab].View())
	}

	mainView := b.String()

	if m.showHelp {
		mainView = m.overlayCentered(mainView, m.renderHelp())
	}

	if toasts := m.renderNotifications(); len(toasts) > 0 {
		return m.overlayToasts(mainView, toasts)
	}

	return mainView
}

func (m *Model) renderNavbar() string {
	var tabs []string

	for i, name := range m.tabNames {
		if TabID(i) == m.activeTab {
			tabs = append(tabs, m.styles.ActiveTab.Render(fmt.Sprintf("[F%d] %s", i+1, name)))
		} else {
			tabs = append(tabs, m.styles.InactiveTab.Render(fmt.Sprintf(" F%d  %s", i+1, name)))
		}
	}

	tabBar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return m.styles.TabBar.Width(m.width).Render(tabBar)
}

func (m *Model) renderNotifications() []string {
	notifications := m.state.GetNotifications()
	if len(notifications) == 0 {
		return nil
	}

	var toasts []string
	for _, n := range notifications {
		style, ok := m.styles.Notification[n.Type]
		if !ok {
			style = m.styles.Notification[NotificationInfo]
		}

		var prefix string
		switch n.Type {
		case NotificationSuccess:
			prefix = "[OK]"
		case NotificationError:
			prefix = "[ERR]"
		case NotificationWarning:
			prefix = "[WARN]"
		default:
			prefix = "[INFO]"
		}

		content := style.Render(fmt.Sprintf("%s %s", prefix, n.Message))
		toasts = append(toasts, m.styles.Toast.Render(content))
	}

	return toasts
}

func (m *Model) overlayCentered(mainView string, overlay string) string {
	mainLines := strings.Split(mainView, "\n")
	overlayLines := strings.Split(overlay, "\n")

	overlayHeight := len(overlayLines)
	overlayWidth := lipgloss.Width(overlay)

	y := max((m.height-overlayHeight)/2, 0)
	x := max((m.width-overlayWidth)/2, 0)

	for i, overlayLine := range overlayLines {
		mainY := y + i
		if mainY >= len(mainLines) {
			break
		}

		mainLine := mainLines[mainY]

		left := ansi.Truncate(mainLine, x, "")
		right := ansi.TruncateLeft(mainLine, x+overlayWidth, "")

		if lipgloss.Width(left) < x {
			left += strings.Repeat(" ", x-lipgloss.Width(left))
		}

		mainLines[mainY] = left + overlayLine + right
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) overlayToasts(mainView string, toasts []string) string {
	toastStack := lipgloss.JoinVertical(lipgloss.Right, toasts...)
	toastLines := strings.Split(toastStack, "\n")
	mainLines := strings.Split(mainView, "\n")

	toastWidth := lipgloss.Width(toastStack)
	startX := max(m.width-toastWidth-2, 0)
	startY := 2

	for i, toastLine := range toastLines {
		lineIdx := startY + i
		if lineIdx >= len(mainLines) {
			break
		}

		mainLine := mainLines[lineIdx]
		mainLineWidth := lipgloss.Width(mainLine)

		if mainLineWidth < startX {
			padding := strings.Repeat(" ", startX-mainLineWidth)
			mainLines[lineIdx] = mainLine + padding + toastLine
		} else {
			truncated := ansi.Truncate(mainLine, startX, "")
			mainLines[lineIdx] = truncated + toastLine
		}
	}

	return strings.Join(mainLines, "\n")
}

func (m *Model) renderHelp() string {
	var lines []string

	lines = append(lines, m.styles.Title.Render("Keyboard Shortcuts"))
	lines = append(lines, "")
	lines = append(lines, m.styles.Highlight.Render("Navigation"))
	lines = append(lines, "  F1-F4       Switch tabs")
	lines = append(lines, "  Ctrl+→/←    Next / previous tab")
	lines = append(lines, "")
	lines = append(lines, m.styles.Highlight.Render("Actions"))
	lines = append(lines, "  Ctrl+H      Toggle help")
	lines = append(lines, "  Ctrl+C      Quit")
	lines = append(lines, "")

	if int(m.activeTab) < len(m.tabs) && m.tabs[m.activeTab] != nil {
		tabHelp := m.tabs[m.activeTab].ShortHelp()
		if len(tabHelp) > 0 {
			lines = append(lines, m.styles.Highlight.Render(fmt.Sprintf("%s Tab", m.tabNames[m.activeTab])))
			for _, binding := range tabHelp {
				lines = append(lines, fmt.Sprintf("  %-10s %s", binding.Help().Key, binding.Help().Desc))
			}
			lines = append(lines, "")
		}
	}

	lines = append(lines, m.styles.Subtle.Render("Press Ctrl+H or Esc to close"))

	return m.styles.Toast.Render(strings.Join(lines, "\n"))
}
