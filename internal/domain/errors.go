package domain

import (
	"errors"
	"fmt"
)

// ErrorClass identifies which branch of the error taxonomy an error belongs to.
type ErrorClass string

const (
	ClassInputInvalid        ErrorClass = "InputInvalid"
	ClassCredentialExhausted ErrorClass = "CredentialExhausted"
	ClassUploadTransient     ErrorClass = "UploadTransient"
	ClassUploadTimedOut      ErrorClass = "UploadTimedOut"
	ClassUploadFailedTerm    ErrorClass = "UploadFailedTerminal"
	ClassAnalysisRateLimit   ErrorClass = "AnalysisRateLimit"
	ClassAnalysisTransient   ErrorClass = "AnalysisTransient"
	ClassAnalysisBadJSON     ErrorClass = "AnalysisBadJSON"
	ClassContextExceeded     ErrorClass = "ContextExceeded"
	ClassWorkerCrash         ErrorClass = "WorkerCrash"
)

// retriableClasses are the classes the queue will re-enqueue with backoff.
var retriableClasses = map[ErrorClass]bool{
	ClassCredentialExhausted: true,
	ClassUploadTransient:     true,
	ClassWorkerCrash:         true,
}

// ClassifiedError wraps an underlying error with its taxonomy class and
// whether the queue should retry the owning job.
type ClassifiedError struct {
	Class ErrorClass
	Err   error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Class, e.Err)
}

func (e *ClassifiedError) Unwrap() error { return e.Err }

// Retriable reports whether the queue should re-enqueue the owning job.
func (e *ClassifiedError) Retriable() bool { return retriableClasses[e.Class] }

// Classify wraps err with the given class.
func Classify(class ErrorClass, err error) *ClassifiedError {
	return &ClassifiedError{Class: class, Err: err}
}

// ClassOf extracts the error class from err, if it (or something it wraps)
// is a *ClassifiedError. Returns "" if unclassified.
func ClassOf(err error) ErrorClass {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class
	}
	return ""
}

// IsRetriable reports whether err should cause a retriable job failure.
func IsRetriable(err error) bool {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Retriable()
	}
	return false
}

var (
	// ErrNoCapacity is returned by the Credential Pool when Acquire times out.
	ErrNoCapacity = errors.New("no credential capacity available within timeout")

	// ErrQueueFull is returned by the Job Queue when Enqueue would exceed max_waiting.
	ErrQueueFull = errors.New("queue is full")
)
