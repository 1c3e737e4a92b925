// Package coreorc provides the orchestration core for turning long-form
// video recordings into structured analyses: a bounded job queue, a
// chunked analysis pipeline, a load-balanced credential pool, and a
// resumable upload layer, fronting an external multimodal model service.
//
// This file re-exports the internal Event contract so callers embedding
// the core can receive typed progress/result/error events directly,
// following five82-reel's root events.go re-export idiom.
package coreorc

import "github.com/five82/coreorc/internal/events"

// Event type discriminators.
const (
	EventTypeProgress = events.TypeProgress
	EventTypeResult   = events.TypeResult
	EventTypeError    = events.TypeError
)

// Event is the interface all published events satisfy.
type Event = events.Event

// ProgressEvent reports a job's latest progress snapshot.
type ProgressEvent = events.ProgressEvent

// ResultEvent carries a job's merged artifact on success.
type ResultEvent = events.ResultEvent

// ErrorEvent carries a job's terminal error.
type ErrorEvent = events.ErrorEvent

// EventHandler is called with events as a worker advances a job.
type EventHandler = events.Handler

// NewTimestamp returns the current Unix timestamp.
func NewTimestamp() int64 {
	return events.NewTimestamp()
}
