package app

import (
	"time"

	"github.com/dmelo/outfit-studio/internal/models"
	"github.com/dmelo/outfit-studio/internal/services"
)

// TickMsg is sent periodically to trigger housekeeping.
type TickMsg struct {
	Time time.Time
}

// SubscriptionEventMsg carries the service event channel after subscribing.
type SubscriptionEventMsg struct {
	Channel chan services.ServiceEvent
}

// ServiceEventMsg wraps one event routed from the service manager.
type ServiceEventMsg struct {
	Event services.ServiceEvent
}

// SignInResultMsg contains the result of a sign-in attempt.
type SignInResultMsg struct {
	Error error
}

// SignOutResultMsg contains the result of a sign-out.
type SignOutResultMsg struct {
	Error error
}

// ProfileRefreshedMsg contains the result of a profile refresh.
type ProfileRefreshedMsg struct {
	Error error
}

// CheckoutResultMsg carries the subscription checkout URL.
type CheckoutResultMsg struct {
	URL   string
	Error error
}

// UsageLoadedMsg carries a fresh usage snapshot.
type UsageLoadedMsg struct {
	Snapshot *models.UsageSnapshot
	Error    error
}

// SubmitResultMsg contains the terminal outcome of one transform.
type SubmitResultMsg struct {
	Kind  models.TransformKind
	Error error
}

// SaveResultMsg contains the outcome of saving a result image.
type SaveResultMsg struct {
	Kind  models.TransformKind
	Path  string
	Error error
}

// KeySetResultMsg contains the result of setting the API key.
type KeySetResultMsg struct {
	Error error
}

// KeyValidatedMsg contains the result of validating the API key.
type KeyValidatedMsg struct {
	Valid bool
	Error error
}

// KeyClearedMsg contains the result of clearing the API key.
type KeyClearedMsg struct {
	Error error
}

// HistoryLoadedMsg carries recent transform-call history rows.
type HistoryLoadedMsg struct {
	Calls []models.CallRecord
	Error error
}

// AddNotificationMsg requests adding a new notification.
type AddNotificationMsg struct {
	Type     NotificationType
	Message  string
	Duration time.Duration
}

// RemoveNotificationMsg requests removal of a notification.
type RemoveNotificationMsg struct {
	ID string
}

// ClearExpiredNotificationsMsg requests dropping expired notifications.
type ClearExpiredNotificationsMsg struct{}

// ErrorMsg wraps an error for display.
type ErrorMsg struct {
	Error error
}

// TabSwitchMsg requests switching to a specific tab.
type TabSwitchMsg struct {
	Tab TabID
}
