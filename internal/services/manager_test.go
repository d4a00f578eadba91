package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmelo/outfit-studio/internal/config"
	"github.com/dmelo/outfit-studio/internal/models"
	"github.com/dmelo/outfit-studio/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		APIBaseURL:  "http://backend.test",
		StorePath:   filepath.Join(dir, "test.db"),
		GalleryDir:  filepath.Join(dir, "gallery"),
		HTTPTimeout: 5 * time.Second,
	}
}

func newTestManager(t *testing.T, cfg *config.Config) *Manager {
	t.Helper()
	mgr, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Close() })
	return mgr
}

func TestNewManager(t *testing.T) {
	mgr := newTestManager(t, testConfig(t))

	if mgr.Auth() == nil || mgr.Keys() == nil || mgr.Gate() == nil {
		t.Error("services should be constructed")
	}
	if mgr.Swap() == nil || mgr.Generate() == nil || mgr.Store() == nil {
		t.Error("orchestrators and store should be constructed")
	}
	if mgr.Swap().Kind() != models.KindOutfitSwap {
		t.Errorf("unexpected swap kind %q", mgr.Swap().Kind())
	}
	if mgr.Generate().Kind() != models.KindTextToImage {
		t.Errorf("unexpected generate kind %q", mgr.Generate().Kind())
	}
}

func TestManager_RestoresPersistedKey(t *testing.T) {
	cfg := testConfig(t)

	// Seed the store the way a previous run would have left it.
	st, err := store.Open(cfg.StorePath)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if err := st.Put(context.Background(), store.KeyAPIKey, "sk-from-last-run"); err != nil {
		t.Fatalf("failed to seed key: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("failed to close store: %v", err)
	}

	mgr := newTestManager(t, cfg)
	if mgr.Keys().Key() != "sk-from-last-run" {
		t.Errorf("expected restored key, got %q", mgr.Keys().Key())
	}
}

func TestManager_SubscribeReceivesKeyEvents(t *testing.T) {
	mgr := newTestManager(t, testConfig(t))

	ch, cmd := mgr.Subscribe()
	if cmd == nil {
		t.Fatal("Subscribe should return a wait command")
	}
	defer mgr.Unsubscribe(ch)

	if err := mgr.Keys().SetKey(context.Background(), "sk-event-test"); err != nil {
		t.Fatalf("SetKey failed: %v", err)
	}

	select {
	case event := <-ch:
		keyEvent, ok := event.(APIKeyChangedEvent)
		if !ok {
			t.Fatalf("expected APIKeyChangedEvent, got %T", event)
		}
		if !keyEvent.HasKey || keyEvent.Validation != models.KeyUnvalidated {
			t.Errorf("unexpected event: %+v", keyEvent)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
}

func TestManager_RecentCallsEmpty(t *testing.T) {
	mgr := newTestManager(t, testConfig(t))

	calls, err := mgr.RecentCalls(context.Background(), 10)
	if err != nil {
		t.Fatalf("RecentCalls failed: %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("expected empty history, got %d rows", len(calls))
	}
}

func TestManager_Unsubscribe(t *testing.T) {
	mgr := newTestManager(t, testConfig(t))

	ch, _ := mgr.Subscribe()
	mgr.Unsubscribe(ch)

	// The channel is closed on unsubscribe.
	select {
	case _, open := <-ch:
		if open {
			t.Error("channel should be closed")
		}
	default:
		t.Error("channel should be closed and readable")
	}
}
