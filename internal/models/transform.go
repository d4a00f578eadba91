package models

import "time"

// ImageRef points at a local image file chosen by the user.
type ImageRef struct {
	Path string
	Mime string
}

// TransformRequest carries the inputs for one transform call. It lives only
// for the duration of the orchestration that submits it.
type TransformRequest struct {
	PrimaryImage   *ImageRef
	SecondaryImage *ImageRef
	Prompt         string
}

// TransformResult is the interpreted backend response. ImageDataURI is a
// displayable data URI composed from the base64 payload and MIME type.
type TransformResult struct {
	ImageDataURI string
	MimeType     string
	Text         string
}

// HasImage reports whether the backend produced an image.
func (r *TransformResult) HasImage() bool {
	return r != nil && r.ImageDataURI != ""
}

// TransformKind distinguishes the two orchestrator variants.
type TransformKind string

const (
	// KindOutfitSwap composites a person image with a reference outfit.
	KindOutfitSwap TransformKind = "outfit-swap"
	// KindTextToImage generates an image from a text prompt.
	KindTextToImage TransformKind = "text-to-image"
)

// CallRecord is one row of the local transform-call history.
type CallRecord struct {
	Timestamp time.Time
	Kind      TransformKind
	Status    string
	Duration  time.Duration
}

// Call statuses recorded in the history table.
const (
	CallStatusOK     = "ok"
	CallStatusSoft   = "soft-failure"
	CallStatusFailed = "failed"
)
