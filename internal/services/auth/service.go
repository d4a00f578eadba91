// Package auth owns the token and user profile lifecycle.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmelo/outfit-studio/internal/api"
	"github.com/dmelo/outfit-studio/internal/logger"
	"github.com/dmelo/outfit-studio/internal/models"
	"github.com/dmelo/outfit-studio/internal/store"
)

// ErrAuthRequired is returned by operations that need a signed-in session.
var ErrAuthRequired = errors.New("sign in required")

// State is the session state machine position.
type State int

const (
	// SignedOut means no token and no user are held.
	SignedOut State = iota
	// SigningIn means a sign-in exchange is in flight.
	SigningIn
	// SignedIn means both token and user are held.
	SignedIn
	// Refreshing means a profile refresh is in flight.
	Refreshing
)

// String returns the display name of the state.
func (s State) String() string {
	switch s {
	case SignedOut:
		return "signed out"
	case SigningIn:
		return "signing in"
	case SignedIn:
		return "signed in"
	case Refreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// IdentityProvider obtains an identity token from an external OAuth
// collaborator. The token is then exchanged with the backend.
type IdentityProvider interface {
	ObtainIDToken(ctx context.Context) (string, error)
}

// Backend is the subset of the API client the service needs.
type Backend interface {
	LoginWithGoogle(ctx context.Context, idToken string) (*api.LoginResponse, error)
	GetUser(ctx context.Context) (*models.UserProfile, error)
	CreateCheckoutSession(ctx context.Context) (string, error)
}

// SessionStore is the subset of the local store the service needs.
type SessionStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	PutPair(ctx context.Context, key1, value1, key2, value2 string) error
	DeletePair(ctx context.Context, key1, key2 string) error
}

// Event represents an auth service event.
type Event struct {
	Type  EventType
	Error error
}

// EventType defines the type of auth event.
type EventType int

const (
	// EventStateChanged indicates the state machine moved.
	EventStateChanged EventType = iota
	// EventSignedIn indicates a successful sign-in.
	EventSignedIn
	// EventSignedOut indicates the session was destroyed.
	EventSignedOut
	// EventProfileRefreshed indicates the profile was replaced.
	EventProfileRefreshed
	// EventError indicates a sign-in or refresh failure.
	EventError
)

// Service manages the session: token plus cached user profile. The two are
// held and persisted together; at every observable point the token is nil
// exactly when the user is nil.
type Service struct {
	mu        sync.RWMutex
	store     SessionStore
	backend   Backend
	provider  IdentityProvider
	state     State
	token     string
	user      *models.UserProfile
	eventChan chan Event
}

// New creates the auth service. Call LoadFromStorage before first use.
func New(st SessionStore, backend Backend, provider IdentityProvider) *Service {
	return &Service{
		store:     st,
		backend:   backend,
		provider:  provider,
		state:     SignedOut,
		eventChan: make(chan Event, 100),
	}
}

// Events returns the event channel.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// State returns the current state machine position.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Token returns the current auth token, or "" when signed out.
func (s *Service) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns a copy of the cached profile, or nil when signed out.
func (s *Service) User() *models.UserProfile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

// IsAuthenticated reports whether a session is held.
func (s *Service) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != "" && s.user != nil
}

// LoadFromStorage restores a persisted session without network validation.
// An expired token is only discovered on the next authenticated call.
// A half-present pair (token without profile or vice versa) is treated as
// no session and the leftover entry is cleared.
func (s *Service) LoadFromStorage(ctx context.Context) error {
	token, hasToken, err := s.store.Get(ctx, store.KeyAuthToken)
	if err != nil {
		return fmt.Errorf("failed to read auth token: %w", err)
	}
	profileJSON, hasProfile, err := s.store.Get(ctx, store.KeyUserProfile)
	if err != nil {
		return fmt.Errorf("failed to read profile: %w", err)
	}

	if !hasToken || !hasProfile {
		if hasToken != hasProfile {
			logger.Warn("found half-written session, clearing")
			if err := s.store.DeletePair(ctx, store.KeyAuthToken, store.KeyUserProfile); err != nil {
				logger.Error("failed to clear half-written session", "error", err)
			}
		}
		return nil
	}

	var user models.UserProfile
	if err := json.Unmarshal([]byte(profileJSON), &user); err != nil {
		logger.Warn("stored profile unreadable, clearing session", "error", err)
		if err := s.store.DeletePair(ctx, store.KeyAuthToken, store.KeyUserProfile); err != nil {
			logger.Error("failed to clear session", "error", err)
		}
		return nil
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.state = SignedIn
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventSignedIn})
	return nil
}

// SignIn obtains an identity token from the external provider, exchanges
// it with the backend, and persists token plus profile together. Any
// failure leaves the session signed out with nothing persisted.
func (s *Service) SignIn(ctx context.Context) error {
	s.mu.Lock()
	if s.state == SigningIn {
		s.mu.Unlock()
		return errors.New("sign-in already in progress")
	}
	s.state = SigningIn
	s.mu.Unlock()
	s.sendEvent(Event{Type: EventStateChanged})

	idToken, err := s.provider.ObtainIDToken(ctx)
	if err != nil {
		return s.failSignIn(fmt.Errorf("identity provider: %w", err))
	}

	resp, err := s.backend.LoginWithGoogle(ctx, idToken)
	if err != nil {
		return s.failSignIn(fmt.Errorf("token exchange: %w", err))
	}

	profileJSON, err := json.Marshal(resp.User)
	if err != nil {
		return s.failSignIn(fmt.Errorf("failed to encode profile: %w", err))
	}

	// Single transaction: the token is never persisted without the profile.
	if err := s.store.PutPair(ctx,
		store.KeyAuthToken, resp.AccessToken,
		store.KeyUserProfile, string(profileJSON)); err != nil {
		return s.failSignIn(fmt.Errorf("failed to persist session: %w", err))
	}

	s.mu.Lock()
	s.token = resp.AccessToken
	s.user = resp.User
	s.state = SignedIn
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventSignedIn})
	return nil
}

func (s *Service) failSignIn(err error) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.state = SignedOut
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventError, Error: err})
	return err
}

// SignOut destroys the session. In-memory state is cleared even when the
// storage delete fails; the failure is surfaced, not blocking.
func (s *Service) SignOut(ctx context.Context) error {
	err := s.store.DeletePair(ctx, store.KeyAuthToken, store.KeyUserProfile)

	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.state = SignedOut
	s.mu.Unlock()

	if err != nil {
		s.sendEvent(Event{Type: EventError, Error: err})
	}
	s.sendEvent(Event{Type: EventSignedOut})
	return err
}

// RefreshUserData fetches the profile and replaces it wholesale. A no-op
// when signed out. A 401 means the restored token expired; the session is
// force signed out.
func (s *Service) RefreshUserData(ctx context.Context) error {
	s.mu.Lock()
	if s.state != SignedIn {
		s.mu.Unlock()
		return nil
	}
	s.state = Refreshing
	s.mu.Unlock()

	user, err := s.backend.GetUser(ctx)
	if err != nil {
		if api.IsUnauthorized(err) {
			logger.Warn("session token expired, signing out")
			_ = s.SignOut(ctx)
			return err
		}

		s.mu.Lock()
		s.state = SignedIn
		s.mu.Unlock()
		s.sendEvent(Event{Type: EventError, Error: err})
		return err
	}

	profileJSON, marshalErr := json.Marshal(user)

	s.mu.Lock()
	s.user = user
	s.state = SignedIn
	s.mu.Unlock()

	if marshalErr == nil {
		if err := s.store.Put(ctx, store.KeyUserProfile, string(profileJSON)); err != nil {
			logger.Error("failed to persist refreshed profile", "error", err)
		}
	}

	s.sendEvent(Event{Type: EventProfileRefreshed})
	return nil
}

// StartSubscriptionCheckout requests a checkout URL from the backend and
// returns it unopened.
func (s *Service) StartSubscriptionCheckout(ctx context.Context) (string, error) {
	if !s.IsAuthenticated() {
		return "", ErrAuthRequired
	}
	return s.backend.CreateCheckoutSession(ctx)
}

// sendEvent sends an event to the event channel non-blocking.
func (s *Service) sendEvent(event Event) {
	select {
	case s.eventChan <- event:
	default:
		select {
		case <-s.eventChan:
		default:
		}
		select {
		case s.eventChan <- event:
		default:
		}
	}
}
