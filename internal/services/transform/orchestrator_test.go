package transform

import (
	"context"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dmelo/outfit-studio/internal/api"
	"github.com/dmelo/outfit-studio/internal/models"
)

// mockBackend implements Backend with programmable outcomes.
type mockBackend struct {
	mu       sync.Mutex
	resp     *api.TransformResponse
	err      error
	calls    int
	started  chan struct{}
	blockCh  chan struct{}
	lastKind models.TransformKind
}

func (m *mockBackend) respond(kind models.TransformKind) (*api.TransformResponse, error) {
	m.mu.Lock()
	m.calls++
	m.lastKind = kind
	started := m.started
	block := m.blockCh
	m.mu.Unlock()

	if started != nil {
		close(started)
		m.mu.Lock()
		m.started = nil
		m.mu.Unlock()
	}
	if block != nil {
		<-block
	}
	return m.resp, m.err
}

func (m *mockBackend) OutfitSwap(ctx context.Context, primary, secondary models.ImageRef, prompt string) (*api.TransformResponse, error) {
	return m.respond(models.KindOutfitSwap)
}

func (m *mockBackend) GenerateImage(ctx context.Context, prompt string) (*api.TransformResponse, error) {
	return m.respond(models.KindTextToImage)
}

// mockGate implements Authorizer.
type mockGate struct {
	err   error
	calls int
}

func (m *mockGate) Authorize(ctx context.Context) error {
	m.calls++
	return m.err
}

// mockSession implements Session.
type mockSession struct{ authenticated bool }

func (m *mockSession) IsAuthenticated() bool { return m.authenticated }

// mockKeys implements KeyHolder.
type mockKeys struct{ hasKey bool }

func (m *mockKeys) HasKey() bool { return m.hasKey }

// mockRecorder implements Recorder in memory.
type mockRecorder struct {
	mu      sync.Mutex
	records []models.CallRecord
}

func (m *mockRecorder) RecordCall(ctx context.Context, rec models.CallRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *mockRecorder) statuses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var statuses []string
	for _, rec := range m.records {
		statuses = append(statuses, rec.Status)
	}
	return statuses
}

// mockGallery implements Gallery in memory.
type mockGallery struct {
	writableErr error
	saveErr     error
	saved       map[string][]byte
}

func newMockGallery() *mockGallery {
	return &mockGallery{saved: make(map[string][]byte)}
}

func (m *mockGallery) Writable() error { return m.writableErr }

func (m *mockGallery) Save(filename string, data []byte) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	m.saved[filename] = data
	return "/gallery/" + filename, nil
}

type fixture struct {
	backend  *mockBackend
	gate     *mockGate
	session  *mockSession
	keys     *mockKeys
	recorder *mockRecorder
	gallery  *mockGallery
}

func newFixture() *fixture {
	return &fixture{
		backend:  &mockBackend{},
		gate:     &mockGate{},
		session:  &mockSession{},
		keys:     &mockKeys{},
		recorder: &mockRecorder{},
		gallery:  newMockGallery(),
	}
}

func (f *fixture) swap() *Orchestrator {
	return NewOutfitSwap(f.backend, f.gate, f.session, f.keys, f.recorder, f.gallery)
}

func (f *fixture) textToImage() *Orchestrator {
	return NewTextToImage(f.backend, f.gate, f.session, f.keys, f.recorder, f.gallery)
}

func imageResponse() *api.TransformResponse {
	payload := base64.StdEncoding.EncodeToString([]byte("image bytes"))
	return &api.TransformResponse{Image: payload, MimeType: "image/png"}
}

func TestOrchestrator_SwapSucceedsWithDefaultPrompt(t *testing.T) {
	f := newFixture()
	f.backend.resp = imageResponse()
	o := f.swap()

	if o.Prompt() != DefaultOutfitPrompt {
		t.Fatal("swap orchestrator should start with the default prompt")
	}

	o.SetPrimaryImage(&models.ImageRef{Path: "/tmp/person.jpg"})
	o.SetSecondaryImage(&models.ImageRef{Path: "/tmp/outfit.jpg"})

	if err := o.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if o.Phase() != Succeeded {
		t.Errorf("expected Succeeded, got %v", o.Phase())
	}
	result := o.Result()
	if !result.HasImage() {
		t.Fatal("expected a result image")
	}
	if !strings.HasPrefix(result.ImageDataURI, "data:image/png;base64,") {
		t.Errorf("unexpected data URI %q", result.ImageDataURI)
	}
	if got := f.recorder.statuses(); len(got) != 1 || got[0] != models.CallStatusOK {
		t.Errorf("expected one ok record, got %v", got)
	}
}

func TestOrchestrator_SwapRequiresBothImages(t *testing.T) {
	f := newFixture()
	o := f.swap()
	o.SetPrimaryImage(&models.ImageRef{Path: "/tmp/person.jpg"})

	err := o.Submit(context.Background())
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if o.Phase() != Failed {
		t.Errorf("expected Failed, got %v", o.Phase())
	}
	if f.backend.calls != 0 {
		t.Error("no backend call should be made for invalid input")
	}
}

func TestOrchestrator_TextToImageRequiresPrompt(t *testing.T) {
	f := newFixture()
	o := f.textToImage()

	for _, prompt := range []string{"", "   \t"} {
		o.SetPrompt(prompt)
		err := o.Submit(context.Background())
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("prompt %q: expected ValidationError, got %v", prompt, err)
		}
	}
	if f.backend.calls != 0 {
		t.Error("no backend call should be made for empty prompts")
	}
}

func TestOrchestrator_SoftFailure(t *testing.T) {
	f := newFixture()
	f.backend.resp = &api.TransformResponse{Text: "I cannot generate that image"}
	o := f.textToImage()
	o.SetPrompt("a red coat")

	err := o.Submit(context.Background())
	if !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected ErrNoImage, got %v", err)
	}

	if o.Phase() != Failed {
		t.Errorf("expected Failed, got %v", o.Phase())
	}
	if o.ResponseText() != "I cannot generate that image" {
		t.Errorf("the model text should be exposed, got %q", o.ResponseText())
	}
	if o.Result().HasImage() {
		t.Error("a soft failure has no result image")
	}
	if got := f.recorder.statuses(); len(got) != 1 || got[0] != models.CallStatusSoft {
		t.Errorf("expected one soft record, got %v", got)
	}
}

func TestOrchestrator_EmptyResponse(t *testing.T) {
	f := newFixture()
	f.backend.resp = &api.TransformResponse{}
	o := f.textToImage()
	o.SetPrompt("anything")

	err := o.Submit(context.Background())
	var formatErr *api.ResponseFormatError
	if !errors.As(err, &formatErr) {
		t.Fatalf("expected ResponseFormatError, got %v", err)
	}
	if got := f.recorder.statuses(); len(got) != 1 || got[0] != models.CallStatusFailed {
		t.Errorf("expected one failed record, got %v", got)
	}
}

func TestOrchestrator_BackendFailure(t *testing.T) {
	f := newFixture()
	f.backend.err = &api.NetworkError{Err: errors.New("connection reset")}
	o := f.textToImage()
	o.SetPrompt("a red coat")

	if err := o.Submit(context.Background()); err == nil {
		t.Fatal("expected submit to fail")
	}
	if o.Phase() != Failed {
		t.Errorf("expected Failed, got %v", o.Phase())
	}
	if got := f.recorder.statuses(); len(got) != 1 || got[0] != models.CallStatusFailed {
		t.Errorf("expected one failed record, got %v", got)
	}
}

func TestOrchestrator_RejectsConcurrentSubmit(t *testing.T) {
	f := newFixture()
	f.backend.resp = imageResponse()
	f.backend.started = make(chan struct{})
	f.backend.blockCh = make(chan struct{})
	o := f.textToImage()
	o.SetPrompt("a red coat")

	firstDone := make(chan error, 1)
	go func() { firstDone <- o.Submit(context.Background()) }()

	<-f.backend.started

	// Second submit while the first is still in flight.
	if err := o.Submit(context.Background()); !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	close(f.backend.blockCh)
	if err := <-firstDone; err != nil {
		t.Fatalf("first submit failed: %v", err)
	}
	if f.backend.calls != 1 {
		t.Errorf("the rejected submit must not reach the backend, got %d calls", f.backend.calls)
	}

	// After completion a new submit is accepted again.
	f.backend.mu.Lock()
	f.backend.blockCh = nil
	f.backend.mu.Unlock()
	if err := o.Submit(context.Background()); err != nil {
		t.Errorf("submit after completion failed: %v", err)
	}
}

func TestOrchestrator_SubmitClearsPreviousOutcome(t *testing.T) {
	f := newFixture()
	f.backend.resp = &api.TransformResponse{Text: "no can do"}
	o := f.textToImage()
	o.SetPrompt("first")

	if err := o.Submit(context.Background()); !errors.Is(err, ErrNoImage) {
		t.Fatalf("expected soft failure, got %v", err)
	}

	f.backend.resp = imageResponse()
	if err := o.Submit(context.Background()); err != nil {
		t.Fatalf("second submit failed: %v", err)
	}

	if o.Err() != nil {
		t.Errorf("previous error should be cleared, got %v", o.Err())
	}
	if o.ResponseText() != "" {
		t.Errorf("previous text should be cleared, got %q", o.ResponseText())
	}
	if !o.Result().HasImage() {
		t.Error("expected the fresh result")
	}
}

func TestOrchestrator_GalleryPreflight(t *testing.T) {
	f := newFixture()
	f.gallery.writableErr = &PermissionError{Path: "/gallery", Err: errors.New("read-only")}
	o := f.textToImage()
	o.SetPrompt("a red coat")

	err := o.Submit(context.Background())
	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected PermissionError, got %v", err)
	}
	if f.backend.calls != 0 {
		t.Error("no backend call should be spent when the gallery is unwritable")
	}
}

func TestOrchestrator_UsageGate(t *testing.T) {
	tests := []struct {
		name          string
		authenticated bool
		hasKey        bool
		wantGateCalls int
	}{
		{"signed out skips the gate", false, false, 0},
		{"personal key skips the gate", true, true, 0},
		{"signed in without key is gated", true, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.backend.resp = imageResponse()
			f.session.authenticated = tt.authenticated
			f.keys.hasKey = tt.hasKey
			o := f.textToImage()
			o.SetPrompt("a red coat")

			if err := o.Submit(context.Background()); err != nil {
				t.Fatalf("Submit failed: %v", err)
			}
			if f.gate.calls != tt.wantGateCalls {
				t.Errorf("expected %d gate calls, got %d", tt.wantGateCalls, f.gate.calls)
			}
		})
	}
}

func TestOrchestrator_UsageGateBlocks(t *testing.T) {
	f := newFixture()
	f.session.authenticated = true
	f.gate.err = errors.New("no api calls remaining")
	o := f.textToImage()
	o.SetPrompt("a red coat")

	if err := o.Submit(context.Background()); err == nil {
		t.Fatal("expected the gate to block")
	}
	if f.backend.calls != 0 {
		t.Error("a blocked submit must not reach the backend")
	}
	if o.Phase() != Failed {
		t.Errorf("expected Failed, got %v", o.Phase())
	}
}

func TestOrchestrator_SaveResult(t *testing.T) {
	f := newFixture()
	f.backend.resp = imageResponse()
	o := f.textToImage()
	o.SetPrompt("a red coat")

	if err := o.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	path, err := o.SaveResult(context.Background())
	if err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}
	if !strings.HasPrefix(path, "/gallery/generated_image_") || !strings.HasSuffix(path, ".png") {
		t.Errorf("unexpected save path %q", path)
	}

	// The stored bytes are the decoded payload.
	for _, data := range f.gallery.saved {
		if string(data) != "image bytes" {
			t.Errorf("unexpected saved bytes %q", data)
		}
	}

	// The result survives the save; saving again works.
	if !o.Result().HasImage() {
		t.Error("result should be untouched by save")
	}
	if _, err := o.SaveResult(context.Background()); err != nil {
		t.Errorf("second save failed: %v", err)
	}
}

func TestOrchestrator_SaveResultWithoutImage(t *testing.T) {
	f := newFixture()
	o := f.textToImage()

	_, err := o.SaveResult(context.Background())
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestOrchestrator_SaveResultFailureKeepsResult(t *testing.T) {
	f := newFixture()
	f.backend.resp = imageResponse()
	o := f.textToImage()
	o.SetPrompt("a red coat")
	if err := o.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	f.gallery.saveErr = errors.New("disk full")
	if _, err := o.SaveResult(context.Background()); err == nil {
		t.Fatal("expected save to fail")
	}

	// A failed save can simply be retried.
	f.gallery.saveErr = nil
	if _, err := o.SaveResult(context.Background()); err != nil {
		t.Errorf("retry after failed save should work: %v", err)
	}
}

func TestOrchestrator_Reset(t *testing.T) {
	f := newFixture()
	f.backend.resp = imageResponse()

	t.Run("swap restores default prompt", func(t *testing.T) {
		o := f.swap()
		o.SetPrimaryImage(&models.ImageRef{Path: "/tmp/a.jpg"})
		o.SetSecondaryImage(&models.ImageRef{Path: "/tmp/b.jpg"})
		o.SetPrompt("custom prompt")
		if err := o.Submit(context.Background()); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}

		o.Reset()

		if o.Phase() != Idle {
			t.Errorf("expected Idle, got %v", o.Phase())
		}
		if o.PrimaryImage() != nil || o.SecondaryImage() != nil {
			t.Error("images should be cleared")
		}
		if o.Prompt() != DefaultOutfitPrompt {
			t.Error("swap reset should restore the default prompt")
		}
		if o.Result() != nil || o.Err() != nil || o.ResponseText() != "" {
			t.Error("outcome should be cleared")
		}
	})

	t.Run("text-to-image clears prompt", func(t *testing.T) {
		o := f.textToImage()
		o.SetPrompt("a red coat")
		o.Reset()
		if o.Prompt() != "" {
			t.Errorf("expected empty prompt, got %q", o.Prompt())
		}
	})
}

func TestOrchestrator_NotificationsOnOutcome(t *testing.T) {
	var mu sync.Mutex
	var messages []string
	original := notify
	notify = func(title, message string, icon any) error {
		mu.Lock()
		defer mu.Unlock()
		messages = append(messages, message)
		return nil
	}
	defer func() { notify = original }()

	f := newFixture()
	f.backend.resp = imageResponse()
	o := f.textToImage()
	o.SetPrompt("a red coat")

	if err := o.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := o.SaveResult(context.Background()); err != nil {
		t.Fatalf("SaveResult failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(messages) != 2 {
		t.Fatalf("expected 2 notifications, got %v", messages)
	}
	if messages[0] != "Your image is ready" {
		t.Errorf("unexpected completion notification %q", messages[0])
	}
	if !strings.HasPrefix(messages[1], "Image saved to ") {
		t.Errorf("unexpected save notification %q", messages[1])
	}
}

func TestDirGallery_SaveAndWritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "gallery")
	g := NewDirGallery(dir)

	if err := g.Writable(); err != nil {
		t.Fatalf("Writable failed: %v", err)
	}

	path, err := g.Save("result.png", []byte("payload"))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("expected save under %s, got %s", dir, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read saved file: %v", err)
	}
	if string(data) != "payload" {
		t.Errorf("unexpected file contents %q", data)
	}
}

func TestDecodeDataURI(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("hello"))
	data, err := decodeDataURI("data:image/png;base64," + payload)
	if err != nil {
		t.Fatalf("decodeDataURI failed: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("unexpected payload %q", data)
	}

	if _, err := decodeDataURI("no comma here"); err == nil {
		t.Error("expected error for malformed data URI")
	}
	if _, err := decodeDataURI("data:image/png;base64,@@@"); err == nil {
		t.Error("expected error for invalid base64")
	}
}

func TestOrchestrator_RecordsDuration(t *testing.T) {
	f := newFixture()
	f.backend.resp = imageResponse()
	o := f.textToImage()
	o.SetPrompt("a red coat")

	if err := o.Submit(context.Background()); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	f.recorder.mu.Lock()
	defer f.recorder.mu.Unlock()
	if len(f.recorder.records) != 1 {
		t.Fatalf("expected one record, got %d", len(f.recorder.records))
	}
	rec := f.recorder.records[0]
	if rec.Kind != models.KindTextToImage {
		t.Errorf("unexpected kind %q", rec.Kind)
	}
	if rec.Duration < 0 || rec.Duration > time.Minute {
		t.Errorf("implausible duration %v", rec.Duration)
	}
}
