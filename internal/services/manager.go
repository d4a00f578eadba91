// Package services wires the individual services together and routes
// their events to the TUI.
package services

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dmelo/outfit-studio/internal/api"
	"github.com/dmelo/outfit-studio/internal/config"
	"github.com/dmelo/outfit-studio/internal/models"
	"github.com/dmelo/outfit-studio/internal/services/apikey"
	"github.com/dmelo/outfit-studio/internal/services/auth"
	"github.com/dmelo/outfit-studio/internal/services/transform"
	"github.com/dmelo/outfit-studio/internal/services/usage"
	"github.com/dmelo/outfit-studio/internal/store"
)

type (
	// SessionChangedEvent is emitted when the auth session moves.
	SessionChangedEvent struct {
		State auth.State
		User  *models.UserProfile
	}

	// APIKeyChangedEvent is emitted when the personal key or its
	// validation state changes.
	APIKeyChangedEvent struct {
		HasKey     bool
		Validation models.KeyValidation
		Validating bool
	}

	// TransformEvent is emitted when either orchestrator changes state.
	TransformEvent struct {
		Kind  models.TransformKind
		Type  transform.EventType
		Error error
	}

	// ErrorEvent is emitted when an error occurs in any service.
	ErrorEvent struct {
		Service string
		Error   error
	}
)

// ServiceEvent is the interface implemented by all service events.
type ServiceEvent interface {
	isServiceEvent()
}

func (SessionChangedEvent) isServiceEvent() {}
func (APIKeyChangedEvent) isServiceEvent()  {}
func (TransformEvent) isServiceEvent()      {}
func (ErrorEvent) isServiceEvent()          {}

// Manager constructs the services and routes event channels to
// subscribers.
type Manager struct {
	mu          sync.RWMutex
	store       *store.Store
	client      *api.Client
	auth        *auth.Service
	keys        *apikey.Service
	gate        *usage.Gate
	swap        *transform.Orchestrator
	generate    *transform.Orchestrator
	stopChan    chan struct{}
	subscribers []chan<- ServiceEvent
}

// NewManager builds the full service graph from configuration.
func NewManager(cfg *config.Config) (*Manager, error) {
	m := &Manager{
		stopChan: make(chan struct{}),
	}

	var err error
	m.store, err = store.Open(cfg.StorePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	m.client = api.New(cfg.APIBaseURL, cfg.HTTPTimeout, m.store)

	provider := &auth.GoogleProvider{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RefreshToken: cfg.GoogleRefreshToken,
	}
	m.auth = auth.New(m.store, m.client, provider)

	m.keys, err = apikey.New(m.store, m.client, cfg.APIKeyFile)
	if err != nil {
		_ = m.store.Close()
		return nil, fmt.Errorf("failed to start api key service: %w", err)
	}

	m.gate = usage.NewGate(m.client)

	gallery := transform.NewDirGallery(cfg.GalleryDir)
	m.swap = transform.NewOutfitSwap(m.client, m.gate, m.auth, m.keys, m.store, gallery)
	m.generate = transform.NewTextToImage(m.client, m.gate, m.auth, m.keys, m.store, gallery)

	// Restore a persisted session optimistically; an expired token only
	// surfaces on the first authenticated call.
	if err := m.auth.LoadFromStorage(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	go m.routeEvents()

	return m, nil
}

// Auth returns the auth session manager.
func (m *Manager) Auth() *auth.Service { return m.auth }

// Keys returns the API key session manager.
func (m *Manager) Keys() *apikey.Service { return m.keys }

// Gate returns the usage gate.
func (m *Manager) Gate() *usage.Gate { return m.gate }

// Swap returns the outfit-swap orchestrator.
func (m *Manager) Swap() *transform.Orchestrator { return m.swap }

// Generate returns the text-to-image orchestrator.
func (m *Manager) Generate() *transform.Orchestrator { return m.generate }

// Store returns the local store.
func (m *Manager) Store() *store.Store { return m.store }

// CheckUsage fetches a fresh usage snapshot.
func (m *Manager) CheckUsage(ctx context.Context) (*models.UsageSnapshot, error) {
	return m.gate.CheckUsage(ctx)
}

// RecentCalls returns the most recent transform-call history rows.
func (m *Manager) RecentCalls(ctx context.Context, limit int) ([]models.CallRecord, error) {
	return m.store.RecentCalls(ctx, limit)
}

// routeEvents routes events from individual services to subscribers.
func (m *Manager) routeEvents() {
	for {
		select {
		case event := <-m.auth.Events():
			m.handleAuthEvent(event)

		case event := <-m.keys.Events():
			m.handleKeyEvent(event)

		case event := <-m.swap.Events():
			m.handleTransformEvent(models.KindOutfitSwap, event)

		case event := <-m.generate.Events():
			m.handleTransformEvent(models.KindTextToImage, event)

		case <-m.stopChan:
			return
		}
	}
}

func (m *Manager) handleAuthEvent(event auth.Event) {
	switch event.Type {
	case auth.EventStateChanged, auth.EventSignedIn, auth.EventSignedOut, auth.EventProfileRefreshed:
		m.broadcast(SessionChangedEvent{
			State: m.auth.State(),
			User:  m.auth.User(),
		})
	case auth.EventError:
		m.broadcast(ErrorEvent{Service: "auth", Error: event.Error})
	}
}

func (m *Manager) handleKeyEvent(event apikey.Event) {
	switch event.Type {
	case apikey.EventKeyChanged, apikey.EventKeyImported, apikey.EventValidating, apikey.EventValidated:
		m.broadcast(APIKeyChangedEvent{
			HasKey:     m.keys.HasKey(),
			Validation: m.keys.Validation(),
			Validating: m.keys.IsValidating(),
		})
	case apikey.EventError:
		m.broadcast(ErrorEvent{Service: "apikey", Error: event.Error})
	}
}

func (m *Manager) handleTransformEvent(kind models.TransformKind, event transform.Event) {
	m.broadcast(TransformEvent{
		Kind:  kind,
		Type:  event.Type,
		Error: event.Error,
	})
}

// broadcast sends an event to all subscribers.
func (m *Manager) broadcast(event ServiceEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, sub := range m.subscribers {
		select {
		case sub <- event:
		default:
			// Subscriber channel full, skip
		}
	}
}

// Subscribe creates a channel for receiving service events.
// Returns a tea.Cmd that can be used in Bubble Tea's Init or Update.
func (m *Manager) Subscribe() (chan ServiceEvent, tea.Cmd) {
	ch := make(chan ServiceEvent, 50)

	m.mu.Lock()
	m.subscribers = append(m.subscribers, ch)
	m.mu.Unlock()

	return ch, WaitForEvent(ch)
}

// WaitForEvent returns a tea.Cmd for the next event on a channel.
func WaitForEvent(ch <-chan ServiceEvent) tea.Cmd {
	return func() tea.Msg {
		return <-ch
	}
}

// Unsubscribe removes a subscriber channel.
func (m *Manager) Unsubscribe(ch chan ServiceEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, sub := range m.subscribers {
		if sub == ch {
			m.subscribers = append(m.subscribers[:i], m.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Close stops event routing and releases resources.
func (m *Manager) Close() error {
	close(m.stopChan)

	var firstErr error
	if err := m.keys.Close(); err != nil {
		firstErr = err
	}
	if err := m.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
