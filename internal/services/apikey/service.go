// Package apikey manages the optional personal API key lifecycle.
package apikey

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dmelo/outfit-studio/internal/logger"
	"github.com/dmelo/outfit-studio/internal/models"
	"github.com/dmelo/outfit-studio/internal/store"
)

// ErrEmptyKey rejects empty or whitespace-only input before anything is
// persisted or sent over the network.
var ErrEmptyKey = errors.New("api key must not be empty")

// KeyStore is the subset of the local store the service needs.
type KeyStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Validator checks a key against the backend.
type Validator interface {
	ValidateKey(ctx context.Context, key string) (bool, error)
}

// Event represents an API key service event.
type Event struct {
	Type  EventType
	Error error
}

// EventType defines the type of API key event.
type EventType int

const (
	// EventKeyChanged indicates the key was set or cleared.
	EventKeyChanged EventType = iota
	// EventKeyImported indicates a key was picked up from the watched file.
	EventKeyImported
	// EventValidating indicates a validation call is in flight.
	EventValidating
	// EventValidated indicates a validation call finished.
	EventValidated
	// EventError indicates a best-effort operation partially failed.
	EventError
)

// Service owns the personal API key and its validation state.
type Service struct {
	mu            sync.RWMutex
	store         KeyStore
	validator     Validator
	key           string
	validation    models.KeyValidation
	validating    bool
	eventChan     chan Event
	stopChan      chan struct{}
	watcher       *fsnotify.Watcher
	watchedFile   string
	debounceTimer *time.Timer
}

// New creates the service and loads any persisted key. When keyFile is
// non-empty the file is watched and externally written keys are imported.
func New(st KeyStore, validator Validator, keyFile string) (*Service, error) {
	s := &Service{
		store:     st,
		validator: validator,
		eventChan: make(chan Event, 100),
		stopChan:  make(chan struct{}),
	}

	if value, ok, err := st.Get(context.Background(), store.KeyAPIKey); err != nil {
		logger.Error("failed to load api key", "error", err)
	} else if ok {
		s.key = value
	}

	if keyFile != "" {
		if err := s.startWatcher(keyFile); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Events returns the event channel.
func (s *Service) Events() <-chan Event {
	return s.eventChan
}

// Key returns the current key, or "" when none is set.
func (s *Service) Key() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// Validation returns the current validation state.
func (s *Service) Validation() models.KeyValidation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validation
}

// IsValidating reports whether a validation call is in flight.
func (s *Service) IsValidating() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validating
}

// HasKey reports whether a personal key is set.
func (s *Service) HasKey() bool {
	return s.Key() != ""
}

// SetKey persists a new key and resets validation to unvalidated.
// Empty or whitespace input is rejected locally and storage is untouched.
func (s *Service) SetKey(ctx context.Context, key string) error {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return ErrEmptyKey
	}

	if err := s.store.Put(ctx, store.KeyAPIKey, trimmed); err != nil {
		return err
	}

	s.mu.Lock()
	s.key = trimmed
	s.validation = models.KeyUnvalidated
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventKeyChanged})
	return nil
}

// ClearKey removes the persisted key. In-memory state is reset even when
// the storage delete fails; the failure is surfaced, not blocking.
func (s *Service) ClearKey(ctx context.Context) error {
	err := s.store.Delete(ctx, store.KeyAPIKey)

	s.mu.Lock()
	s.key = ""
	s.validation = models.KeyUnvalidated
	s.mu.Unlock()

	if err != nil {
		s.sendEvent(Event{Type: EventError, Error: err})
		return err
	}

	s.sendEvent(Event{Type: EventKeyChanged})
	return nil
}

// ValidateKey checks the key against the backend. Any failure of the call
// itself lands the state on invalid, never unvalidated. Concurrent calls
// are not coalesced; the last one to complete wins.
func (s *Service) ValidateKey(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	s.validating = true
	s.mu.Unlock()
	s.sendEvent(Event{Type: EventValidating})

	valid, err := s.validator.ValidateKey(ctx, key)
	if err != nil {
		// Fail closed.
		valid = false
		logger.Error("api key validation failed", "error", err)
	}

	s.mu.Lock()
	if valid {
		s.validation = models.KeyValid
	} else {
		s.validation = models.KeyInvalid
	}
	s.validating = false
	s.mu.Unlock()

	s.sendEvent(Event{Type: EventValidated, Error: err})
	return valid, err
}

// startWatcher watches the key drop-file's directory. Watching the parent
// keeps working across editors that replace the file on save.
func (s *Service) startWatcher(keyFile string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(keyFile)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		_ = watcher.Close()
		return err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}

	s.watcher = watcher
	s.watchedFile = keyFile

	go s.watchLoop()

	// Import a key that was already present at startup.
	s.importKeyFile()

	return nil
}

func (s *Service) watchLoop() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if event.Name != s.watchedFile {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			// Debounce bursts of writes.
			s.mu.Lock()
			if s.debounceTimer != nil {
				s.debounceTimer.Stop()
			}
			s.debounceTimer = time.AfterFunc(200*time.Millisecond, s.importKeyFile)
			s.mu.Unlock()

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			logger.Error("key file watcher error", "error", err)

		case <-s.stopChan:
			return
		}
	}
}

// importKeyFile reads the drop-file and adopts its key when it differs
// from the current one.
func (s *Service) importKeyFile() {
	data, err := os.ReadFile(s.watchedFile)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Error("failed to read key file", "path", s.watchedFile, "error", err)
		}
		return
	}

	key := strings.TrimSpace(string(data))
	if key == "" || key == s.Key() {
		return
	}

	if err := s.SetKey(context.Background(), key); err != nil {
		logger.Error("failed to import key from file", "error", err)
		return
	}
	s.sendEvent(Event{Type: EventKeyImported})
	logger.Info("imported api key from file", "path", s.watchedFile)
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

// Close stops the watcher and releases resources.
func (s *Service) Close() error {
	close(s.stopChan)
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}
