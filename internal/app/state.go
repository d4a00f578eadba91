// Package app provides the main Bubble Tea application model and state management.
package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/dmelo/outfit-studio/internal/models"
	"github.com/dmelo/outfit-studio/internal/services/auth"
)

// NotificationType defines the type of notification.
type NotificationType int

const (
	// NotificationSuccess represents a success notification.
	NotificationSuccess NotificationType = iota
	// NotificationError represents an error notification.
	NotificationError
	// NotificationWarning represents a warning notification.
	NotificationWarning
	// NotificationInfo represents an informational notification.
	NotificationInfo
)

// String returns the string representation of a NotificationType.
func (n NotificationType) String() string {
	switch n {
	case NotificationSuccess:
		return "success"
	case NotificationError:
		return "error"
	case NotificationWarning:
		return "warning"
	case NotificationInfo:
		return "info"
	default:
		return "unknown"
	}
}

// Notification represents a user-facing notification message.
type Notification struct {
	ID        string
	Type      NotificationType
	Message   string
	CreatedAt time.Time
	Duration  time.Duration
}

// IsExpired returns true if the notification has expired.
func (n *Notification) IsExpired() bool {
	if n.Duration <= 0 {
		return false
	}
	return time.Since(n.CreatedAt) > n.Duration
}

// maxUsagePoints bounds the in-memory remaining-calls series. Usage
// snapshots are never persisted; the series lives only for this run.
const maxUsagePoints = 60

// State is the shared application state consumed by the tabs.
type State struct {
	mu sync.RWMutex

	// Session view
	SessionState auth.State
	User         *models.UserProfile

	// API key view
	KeySet        bool
	KeyValidation models.KeyValidation
	KeyValidating bool

	// Usage view
	Usage        *models.UsageSnapshot
	usageHistory []float64

	// Transform-call history
	Calls []models.CallRecord

	LastUpdated time.Time

	notifications   []Notification
	notificationSeq int
}

// NewState creates an empty application state.
func NewState() *State {
	return &State{
		SessionState: auth.SignedOut,
	}
}

// SetSession updates the session view.
func (s *State) SetSession(state auth.State, user *models.UserProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SessionState = state
	s.User = user
	s.LastUpdated = time.Now()
}

// Session returns the session view.
func (s *State) Session() (auth.State, *models.UserProfile) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SessionState, s.User
}

// SetKeyView updates the API key view.
func (s *State) SetKeyView(set bool, validation models.KeyValidation, validating bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.KeySet = set
	s.KeyValidation = validation
	s.KeyValidating = validating
}

// KeyView returns the API key view.
func (s *State) KeyView() (bool, models.KeyValidation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.KeySet, s.KeyValidation, s.KeyValidating
}

// SetUsage replaces the usage snapshot and appends to the in-memory
// remaining-calls series.
func (s *State) SetUsage(snapshot *models.UsageSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Usage = snapshot
	s.LastUpdated = time.Now()

	if snapshot == nil || snapshot.APICallsRemaining.Unlimited {
		return
	}
	s.usageHistory = append(s.usageHistory, float64(snapshot.APICallsRemaining.Count))
	if len(s.usageHistory) > maxUsagePoints {
		s.usageHistory = s.usageHistory[len(s.usageHistory)-maxUsagePoints:]
	}
}

// GetUsage returns the last usage snapshot, or nil.
func (s *State) GetUsage() *models.UsageSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Usage
}

// UsageHistory returns a copy of the remaining-calls series.
func (s *State) UsageHistory() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := make([]float64, len(s.usageHistory))
	copy(history, s.usageHistory)
	return history
}

// SetCalls replaces the transform-call history view.
func (s *State) SetCalls(calls []models.CallRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = calls
}

// GetCalls returns the transform-call history view.
func (s *State) GetCalls() []models.CallRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.Calls
}

// AddNotification adds a notification and returns its ID.
func (s *State) AddNotification(typ NotificationType, message string, duration time.Duration) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notificationSeq++
	id := fmt.Sprintf("n-%d", s.notificationSeq)

	s.notifications = append(s.notifications, Notification{
		ID:        id,
		Type:      typ,
		Message:   message,
		CreatedAt: time.Now(),
		Duration:  duration,
	})
	return id
}

// RemoveNotification removes a notification by ID.
func (s *State) RemoveNotification(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return
		}
	}
}

// ClearExpiredNotifications drops notifications past their duration.
func (s *State) ClearExpiredNotifications() {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.notifications[:0]
	for _, n := range s.notifications {
		if !n.IsExpired() {
			kept = append(kept, n)
		}
	}
	s.notifications = kept
}

// GetNotifications returns a copy of the active notifications.
func (s *State) GetNotifications() []Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	notifications := make([]Notification, len(s.notifications))
	copy(notifications, s.notifications)
	return notifications
}
