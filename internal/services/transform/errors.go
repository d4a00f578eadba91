package transform

import (
	"errors"
	"fmt"
)

// ErrBusy rejects a submit while another request is in flight. One
// in-flight request per orchestrator instance.
var ErrBusy = errors.New("a request is already in progress")

// ErrNoImage marks a soft failure: the backend answered, but with text
// only and no image payload.
var ErrNoImage = errors.New("no image was generated, but the model provided a response")

// ValidationError reports bad or missing local input. It never reaches
// the network.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// PermissionError reports a denied or failed gallery access preflight.
type PermissionError struct {
	Path string
	Err  error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("gallery %s is not writable: %v", e.Path, e.Err)
}

func (e *PermissionError) Unwrap() error {
	return e.Err
}
