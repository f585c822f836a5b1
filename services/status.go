package services

import "go.mongodb.org/mongo-driver/bson/primitive"

// State is the submission lifecycle of one form session. Every submit moves
// submitting -> succeeded|failed and then back to idle so the form stays
// usable.
type State string

const (
	StateIdle       State = "idle"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// StatusSink receives submission state transitions and asset-cleanup
// telemetry for delivery to the author's UI (e.g. over a websocket).
type StatusSink interface {
	SubmissionState(authorID primitive.ObjectID, session string, state State, message string)
	CleanupFailure(authorID primitive.ObjectID, publicID string, err error)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) SubmissionState(primitive.ObjectID, string, State, string) {}

func (NopSink) CleanupFailure(primitive.ObjectID, string, error) {}
