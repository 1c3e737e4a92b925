// Package reporter defines the Reporter interface workers use to surface
// job lifecycle events, plus a terminal and a log-file implementation.
//
// Grounded on five82-reel's internal/reporter package: the same
// interface-plus-two-implementations shape, swapped from the
// hardware/encode vocabulary to the job-lifecycle vocabulary of
// SPEC_FULL.md.
package reporter

import "time"

// JobAcceptedInfo describes a job at the moment a worker picks it up.
type JobAcceptedInfo struct {
	JobID       string
	DisplayName string
	SizeBytes   int64
	Attempt     int
}

// ProgressUpdate is a single stage/percent snapshot for a job in flight.
type ProgressUpdate struct {
	JobID      string
	Stage      string
	Percent    int
	Message    string
	ETASeconds *int
}

// ResultSummary describes a successfully completed job.
type ResultSummary struct {
	JobID            string
	Duration         time.Duration
	ChunkCount       int
	PlaceholderCount int
	ConceptCount     int
	PracticeCount    int
}

// JobFailure describes a job's terminal error.
type JobFailure struct {
	JobID     string
	Class     string
	Message   string
	Retriable bool
}

// Reporter receives job lifecycle events from a worker.
type Reporter interface {
	JobAccepted(info JobAcceptedInfo)
	Progress(update ProgressUpdate)
	Result(summary ResultSummary)
	Failed(failure JobFailure)
	Warning(message string)
	Verbose(message string)
}

// NullReporter discards all events.
type NullReporter struct{}

func (NullReporter) JobAccepted(JobAcceptedInfo) {}
func (NullReporter) Progress(ProgressUpdate)     {}
func (NullReporter) Result(ResultSummary)        {}
func (NullReporter) Failed(JobFailure)           {}
func (NullReporter) Warning(string)              {}
func (NullReporter) Verbose(string)              {}

// CompositeReporter fans every event out to a fixed set of Reporters, in
// order. Used to drive a terminal reporter and a log reporter from the
// same event stream without either knowing about the other.
//
// Reconstructed from cmd/reel/main.go's NewCompositeReporter call site
// (reporter.NewCompositeReporter(termRep, logRep)); like Reporter and
// NullReporter, the composite's own source file was not present in the
// retrieved pack.
type CompositeReporter struct {
	reporters []Reporter
}

// NewCompositeReporter builds a CompositeReporter over the given reporters.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return &CompositeReporter{reporters: reporters}
}

func (c *CompositeReporter) JobAccepted(info JobAcceptedInfo) {
	for _, r := range c.reporters {
		r.JobAccepted(info)
	}
}

func (c *CompositeReporter) Progress(update ProgressUpdate) {
	for _, r := range c.reporters {
		r.Progress(update)
	}
}

func (c *CompositeReporter) Result(summary ResultSummary) {
	for _, r := range c.reporters {
		r.Result(summary)
	}
}

func (c *CompositeReporter) Failed(failure JobFailure) {
	for _, r := range c.reporters {
		r.Failed(failure)
	}
}

func (c *CompositeReporter) Warning(message string) {
	for _, r := range c.reporters {
		r.Warning(message)
	}
}

func (c *CompositeReporter) Verbose(message string) {
	for _, r := range c.reporters {
		r.Verbose(message)
	}
}
