package services

import (
	"errors"
	"fmt"
)

// ErrMissingAsset means a create-mode submission resolved no featured image.
var ErrMissingAsset = errors.New("featured image is required")

// ErrSubmitInFlight means a second submit arrived for a form session that is
// still submitting.
var ErrSubmitInFlight = errors.New("submission already in progress")

// ValidationError reports a missing required form field. It is raised before
// any network call is made.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return "missing required field: " + e.Field
}

// UploadError wraps a failed featured-image upload. The submission is
// aborted and any prior asset is left untouched.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return "image upload failed: " + e.Err.Error()
}

func (e *UploadError) Unwrap() error { return e.Err }

// DeletionError wraps a failed cleanup of a superseded asset. It never fails
// the submission; it is logged and reported on the telemetry channel.
type DeletionError struct {
	PublicID string
	Err      error
}

func (e *DeletionError) Error() string {
	return fmt.Sprintf("delete asset %s: %v", e.PublicID, e.Err)
}

func (e *DeletionError) Unwrap() error { return e.Err }

// PersistError wraps a failed create or update of the post record. The
// backend's message is surfaced to the user verbatim.
type PersistError struct {
	Op  string // "create" or "update"
	Err error
}

func (e *PersistError) Error() string {
	return e.Op + " post failed: " + e.Err.Error()
}

func (e *PersistError) Unwrap() error { return e.Err }
