package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dmelo/outfit-studio/internal/services"
	"github.com/dmelo/outfit-studio/internal/services/transform"
)

const (
	// DefaultTickInterval is the default interval between ticks.
	DefaultTickInterval = 2 * time.Second

	// DefaultNotificationDuration is the default duration for notifications.
	DefaultNotificationDuration = 5 * time.Second

	// LongNotificationDuration is for important notifications.
	LongNotificationDuration = 10 * time.Second
)

// Commands builds tea.Cmds over the service manager for the tabs to use.
type Commands struct {
	mgr *services.Manager
}

// NewCommands creates the command helper.
func NewCommands(mgr *services.Manager) *Commands {
	return &Commands{mgr: mgr}
}

// tickCmd returns a command that sends a TickMsg after the specified interval.
func tickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// defaultTickCmd returns a command that sends a TickMsg after the default interval.
func defaultTickCmd() tea.Cmd {
	return tickCmd(DefaultTickInterval)
}

// subscribeToServicesCmd returns a command that subscribes to service events.
func subscribeToServicesCmd(mgr *services.Manager) tea.Cmd {
	ch, _ := mgr.Subscribe()
	return func() tea.Msg {
		return SubscriptionEventMsg{Channel: ch}
	}
}

// waitForServiceEventCmd returns a command that waits for the next service event.
func waitForServiceEventCmd(ch <-chan services.ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-ch
		if !ok {
			return nil
		}
		return ServiceEventMsg{Event: event}
	}
}

// SignIn runs the external-provider sign-in flow.
func (c *Commands) SignIn() tea.Cmd {
	return func() tea.Msg {
		return SignInResultMsg{Error: c.mgr.Auth().SignIn(context.Background())}
	}
}

// SignOut destroys the session.
func (c *Commands) SignOut() tea.Cmd {
	return func() tea.Msg {
		return SignOutResultMsg{Error: c.mgr.Auth().SignOut(context.Background())}
	}
}

// RefreshProfile fetches and replaces the user profile.
func (c *Commands) RefreshProfile() tea.Cmd {
	return func() tea.Msg {
		return ProfileRefreshedMsg{Error: c.mgr.Auth().RefreshUserData(context.Background())}
	}
}

// StartCheckout requests a subscription checkout URL.
func (c *Commands) StartCheckout() tea.Cmd {
	return func() tea.Msg {
		url, err := c.mgr.Auth().StartSubscriptionCheckout(context.Background())
		return CheckoutResultMsg{URL: url, Error: err}
	}
}

// LoadUsage fetches a fresh usage snapshot. Display contexts tolerate the
// error; it still travels in the message for contexts that do not.
func (c *Commands) LoadUsage() tea.Cmd {
	return func() tea.Msg {
		snapshot, err := c.mgr.CheckUsage(context.Background())
		return UsageLoadedMsg{Snapshot: snapshot, Error: err}
	}
}

// Submit runs one orchestrator end to end.
func (c *Commands) Submit(o *transform.Orchestrator) tea.Cmd {
	return func() tea.Msg {
		return SubmitResultMsg{Kind: o.Kind(), Error: o.Submit(context.Background())}
	}
}

// SaveResult writes the produced image into the gallery.
func (c *Commands) SaveResult(o *transform.Orchestrator) tea.Cmd {
	return func() tea.Msg {
		path, err := o.SaveResult(context.Background())
		return SaveResultMsg{Kind: o.Kind(), Path: path, Error: err}
	}
}

// SetKey persists a personal API key.
func (c *Commands) SetKey(key string) tea.Cmd {
	return func() tea.Msg {
		return KeySetResultMsg{Error: c.mgr.Keys().SetKey(context.Background(), key)}
	}
}

// ValidateKey checks a key against the backend.
func (c *Commands) ValidateKey(key string) tea.Cmd {
	return func() tea.Msg {
		valid, err := c.mgr.Keys().ValidateKey(context.Background(), key)
		return KeyValidatedMsg{Valid: valid, Error: err}
	}
}

// ClearKey removes the personal API key.
func (c *Commands) ClearKey() tea.Cmd {
	return func() tea.Msg {
		return KeyClearedMsg{Error: c.mgr.Keys().ClearKey(context.Background())}
	}
}

// LoadHistory reads recent transform-call history rows.
func (c *Commands) LoadHistory(limit int) tea.Cmd {
	return func() tea.Msg {
		calls, err := c.mgr.RecentCalls(context.Background(), limit)
		return HistoryLoadedMsg{Calls: calls, Error: err}
	}
}

// Notify returns a command that adds a notification.
func (c *Commands) Notify(typ NotificationType, message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     typ,
			Message:  message,
			Duration: DefaultNotificationDuration,
		}
	}
}

// notifyErrorCmd returns a command that adds an error notification.
func notifyErrorCmd(message string) tea.Cmd {
	return func() tea.Msg {
		return AddNotificationMsg{
			Type:     NotificationError,
			Message:  message,
			Duration: LongNotificationDuration,
		}
	}
}

// clearNotificationCmd returns a command that removes a notification after a delay.
func clearNotificationCmd(id string, delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(_ time.Time) tea.Msg {
		return RemoveNotificationMsg{ID: id}
	})
}
