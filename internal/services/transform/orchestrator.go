// Package transform drives the end-to-end sequence for one user action:
// validate inputs, gate on usage, call the backend, interpret the result.
package transform

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/dmelo/outfit-studio/internal/api"
	"github.com/dmelo/outfit-studio/internal/logger"
	"github.com/dmelo/outfit-studio/internal/models"
)

// DefaultOutfitPrompt is the starting prompt for the outfit-swap variant.
// Submitting with it unchanged is fine; only missing images block a swap.
const DefaultOutfitPrompt = "Take the person from the first image and precisely dress them in the exact outfit from the second reference image. Transfer every detail of the outfit - including exact fabric patterns, textures, colors, seams, buttons, zippers, logos, embroidery, and all decorative elements - without any modifications or artistic interpretations. Maintain the complete fidelity of the reference clothing while naturally adapting it to the person's body shape, pose, and proportions. Pay special attention to how the garment would realistically fold, drape, and interact with light based on the person's position and the lighting conditions in their original photo. The final result should look like a professional photograph of the person actually wearing the precise outfit from the reference image."

// notify is swappable in tests.
var notify = beeep.Notify

// Phase is the orchestrator state machine position.
type Phase int

const (
	// Idle means no request has run, or the last one was reset.
	Idle Phase = iota
	// Submitting means a request is in flight.
	Submitting
	// Succeeded means the last request produced an image.
	Succeeded
	// Failed means the last request produced an error (possibly soft).
	Failed
)

// String returns the display name of the phase.
func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Backend is the subset of the API client the orchestrator needs.
type Backend interface {
	OutfitSwap(ctx context.Context, primary, secondary models.ImageRef, prompt string) (*api.TransformResponse, error)
	GenerateImage(ctx context.Context, prompt string) (*api.TransformResponse, error)
}

// Authorizer is the advisory usage gate.
type Authorizer interface {
	Authorize(ctx context.Context) error
}

// Session answers whether the user is signed in.
type Session interface {
	IsAuthenticated() bool
}

// KeyHolder answers whether a personal API key is set.
type KeyHolder interface {
	HasKey() bool
}

// Recorder appends to the local transform-call history.
type Recorder interface {
	RecordCall(ctx context.Context, rec models.CallRecord) error
}

// Event represents an orchestrator event.
type Event struct {
	Type  EventType
	Error error
}

// EventType defines the type of orchestrator event.
type EventType int

const (
	// EventSubmitting indicates a request started.
	EventSubmitting EventType = iota
	// EventFinished indicates a request reached a terminal state.
	EventFinished
	// EventSaved indicates the result image was placed in the gallery.
	EventSaved
	// EventReset indicates the transient state returned to defaults.
	EventReset
)

// Orchestrator coordinates one transform flow. Two instances exist, one
// per variant; each allows a single in-flight request.
type Orchestrator struct {
	mu       sync.RWMutex
	kind     models.TransformKind
	backend  Backend
	gate     Authorizer
	session  Session
	keys     KeyHolder
	recorder Recorder
	gallery  Gallery

	phase          Phase
	primaryImage   *models.ImageRef
	secondaryImage *models.ImageRef
	prompt         string
	result         *models.TransformResult
	responseText   string
	err            error

	eventChan chan Event
}

// NewOutfitSwap creates the dual-image orchestrator. Its prompt starts at
// the default outfit text.
func NewOutfitSwap(backend Backend, gate Authorizer, session Session, keys KeyHolder, recorder Recorder, gallery Gallery) *Orchestrator {
	o := newOrchestrator(models.KindOutfitSwap, backend, gate, session, keys, recorder, gallery)
	o.prompt = DefaultOutfitPrompt
	return o
}

// NewTextToImage creates the prompt-only orchestrator.
func NewTextToImage(backend Backend, gate Authorizer, session Session, keys KeyHolder, recorder Recorder, gallery Gallery) *Orchestrator {
	return newOrchestrator(models.KindTextToImage, backend, gate, session, keys, recorder, gallery)
}

func newOrchestrator(kind models.TransformKind, backend Backend, gate Authorizer, session Session, keys KeyHolder, recorder Recorder, gallery Gallery) *Orchestrator {
	return &Orchestrator{
		kind:      kind,
		backend:   backend,
		gate:      gate,
		session:   session,
		keys:      keys,
		recorder:  recorder,
		gallery:   gallery,
		phase:     Idle,
		eventChan: make(chan Event, 100),
	}
}

// Events returns the event channel.
func (o *Orchestrator) Events() <-chan Event {
	return o.eventChan
}

// Kind returns which variant this orchestrator runs.
func (o *Orchestrator) Kind() models.TransformKind {
	return o.kind
}

// Phase returns the state machine position.
func (o *Orchestrator) Phase() Phase {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.phase
}

// SetPrimaryImage sets the person image.
func (o *Orchestrator) SetPrimaryImage(ref *models.ImageRef) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.primaryImage = ref
}

// SetSecondaryImage sets the reference outfit image.
func (o *Orchestrator) SetSecondaryImage(ref *models.ImageRef) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.secondaryImage = ref
}

// SetPrompt replaces the prompt text.
func (o *Orchestrator) SetPrompt(prompt string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prompt = prompt
}

// PrimaryImage returns the person image, or nil.
func (o *Orchestrator) PrimaryImage() *models.ImageRef {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.primaryImage
}

// SecondaryImage returns the reference outfit image, or nil.
func (o *Orchestrator) SecondaryImage() *models.ImageRef {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.secondaryImage
}

// Prompt returns the current prompt text.
func (o *Orchestrator) Prompt() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.prompt
}

// Result returns the produced result, or nil.
func (o *Orchestrator) Result() *models.TransformResult {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.result
}

// ResponseText returns text the backend attached, or "".
func (o *Orchestrator) ResponseText() string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.responseText
}

// Err returns the last error, or nil.
func (o *Orchestrator) Err() error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.err
}

// Submit runs the full sequence. A second submit while one is in flight
// is rejected with ErrBusy. Previous result, error, and text are cleared
// before anything else so stale output never shows during a new run.
func (o *Orchestrator) Submit(ctx context.Context) error {
	o.mu.Lock()
	if o.phase == Submitting {
		o.mu.Unlock()
		return ErrBusy
	}

	o.result = nil
	o.responseText = ""
	o.err = nil

	primary := o.primaryImage
	secondary := o.secondaryImage
	prompt := o.prompt

	if err := o.validateLocked(primary, secondary, prompt); err != nil {
		o.err = err
		o.phase = Failed
		o.mu.Unlock()
		o.sendEvent(Event{Type: EventFinished, Error: err})
		return err
	}

	o.phase = Submitting
	o.mu.Unlock()
	o.sendEvent(Event{Type: EventSubmitting})

	err := o.run(ctx, primary, secondary, prompt)
	o.sendEvent(Event{Type: EventFinished, Error: err})
	return err
}

// validateLocked checks variant-specific input requirements.
func (o *Orchestrator) validateLocked(primary, secondary *models.ImageRef, prompt string) error {
	switch o.kind {
	case models.KindOutfitSwap:
		if primary == nil || secondary == nil {
			return &ValidationError{Reason: "select both a person image and a reference outfit image"}
		}
	case models.KindTextToImage:
		if strings.TrimSpace(prompt) == "" {
			return &ValidationError{Reason: "enter a description for the image you want to create"}
		}
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, primary, secondary *models.ImageRef, prompt string) error {
	// Gallery writability preflight: fail before spending a backend call
	// on a result we could not save.
	if o.gallery != nil {
		if err := o.gallery.Writable(); err != nil {
			return o.finishFailed(err, "")
		}
	}

	// Advisory usage gate. Metering only applies to signed-in users on the
	// shared key; a personal key is billed to its owner.
	if o.gate != nil && o.session != nil && o.session.IsAuthenticated() &&
		(o.keys == nil || !o.keys.HasKey()) {
		if err := o.gate.Authorize(ctx); err != nil {
			return o.finishFailed(err, "")
		}
	}

	start := time.Now()
	resp, err := o.call(ctx, primary, secondary, prompt)
	elapsed := time.Since(start)

	if err != nil {
		o.record(models.CallStatusFailed, elapsed)
		return o.finishFailed(err, "")
	}

	return o.interpret(resp, elapsed)
}

func (o *Orchestrator) call(ctx context.Context, primary, secondary *models.ImageRef, prompt string) (*api.TransformResponse, error) {
	switch o.kind {
	case models.KindOutfitSwap:
		return o.backend.OutfitSwap(ctx, *primary, *secondary, prompt)
	case models.KindTextToImage:
		return o.backend.GenerateImage(ctx, prompt)
	default:
		return nil, fmt.Errorf("unknown transform kind %q", o.kind)
	}
}

// interpret projects the backend response into observable state.
func (o *Orchestrator) interpret(resp *api.TransformResponse, elapsed time.Duration) error {
	switch {
	case resp.Image != "":
		o.record(models.CallStatusOK, elapsed)

		o.mu.Lock()
		o.result = &models.TransformResult{
			ImageDataURI: resp.DataURI(),
			MimeType:     resp.MimeType,
			Text:         resp.Text,
		}
		o.responseText = resp.Text
		o.phase = Succeeded
		o.mu.Unlock()

		if err := notify("Outfit Studio", "Your image is ready", ""); err != nil {
			logger.Debug("notification failed", "error", err)
		}
		return nil

	case resp.Text != "":
		// Soft failure: expose the text, but flag that no image came back.
		o.record(models.CallStatusSoft, elapsed)
		return o.finishFailed(ErrNoImage, resp.Text)

	default:
		o.record(models.CallStatusFailed, elapsed)
		return o.finishFailed(&api.ResponseFormatError{Reason: "response carried neither image nor text"}, "")
	}
}

func (o *Orchestrator) finishFailed(err error, responseText string) error {
	o.mu.Lock()
	o.err = err
	o.responseText = responseText
	o.phase = Failed
	o.mu.Unlock()

	logger.Error("transform failed", "kind", string(o.kind), "error", err)
	return err
}

func (o *Orchestrator) record(status string, elapsed time.Duration) {
	if o.recorder == nil {
		return
	}
	rec := models.CallRecord{
		Timestamp: time.Now(),
		Kind:      o.kind,
		Status:    status,
		Duration:  elapsed,
	}
	if err := o.recorder.RecordCall(context.Background(), rec); err != nil {
		logger.Error("failed to record call", "error", err)
	}
}

// SaveResult writes the produced image into the gallery. The in-memory
// result is untouched either way, so a failed save may simply be retried.
func (o *Orchestrator) SaveResult(_ context.Context) (string, error) {
	o.mu.RLock()
	result := o.result
	o.mu.RUnlock()

	if !result.HasImage() {
		return "", &ValidationError{Reason: "no result image to save"}
	}

	if err := o.gallery.Writable(); err != nil {
		return "", err
	}

	data, err := decodeDataURI(result.ImageDataURI)
	if err != nil {
		return "", err
	}

	path, err := o.gallery.Save(o.saveFilename(result.MimeType), data)
	if err != nil {
		return "", err
	}

	o.sendEvent(Event{Type: EventSaved})
	if err := notify("Outfit Studio", "Image saved to "+path, ""); err != nil {
		logger.Debug("notification failed", "error", err)
	}
	return path, nil
}

func (o *Orchestrator) saveFilename(mime string) string {
	ext := ".jpg"
	if mime == "image/png" {
		ext = ".png"
	}
	prefix := "generated_image"
	if o.kind == models.KindOutfitSwap {
		prefix = "outfit_swap_result"
	}
	return fmt.Sprintf("%s_%d%s", prefix, time.Now().Unix(), ext)
}

// decodeDataURI strips the data URI prefix and decodes the payload.
func decodeDataURI(uri string) ([]byte, error) {
	_, payload, found := strings.Cut(uri, ",")
	if !found {
		return nil, &ValidationError{Reason: "malformed image data"}
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image payload: %w", err)
	}
	return data, nil
}

// Reset clears all transient state back to initial defaults. Session and
// API key state are untouched.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	o.primaryImage = nil
	o.secondaryImage = nil
	o.result = nil
	o.responseText = ""
	o.err = nil
	o.phase = Idle
	if o.kind == models.KindOutfitSwap {
		o.prompt = DefaultOutfitPrompt
	} else {
		o.prompt = ""
	}
	o.mu.Unlock()

	o.sendEvent(Event{Type: EventReset})
}

// sendEvent sends an event to the event channel non-blocking.
func (o *Orchestrator) sendEvent(event Event) {
	select {
	case o.eventChan <- event:
	default:
		select {
		case <-o.eventChan:
		default:
		}
		select {
		case o.eventChan <- event:
		default:
		}
	}
}
