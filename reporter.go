// This file re-exports the internal Reporter interface and associated
// types so callers can receive all job lifecycle events directly.

package coreorc

import (
	"io"

	"github.com/five82/coreorc/internal/reporter"
)

// Reporter defines the interface for progress reporting during job
// processing. Implement this interface to drive a custom UI from job
// lifecycle events.
type Reporter = reporter.Reporter

// NullReporter is a no-op reporter that discards all updates.
type NullReporter = reporter.NullReporter

// CompositeReporter fans events out to multiple Reporters.
type CompositeReporter = reporter.CompositeReporter

// NewCompositeReporter builds a CompositeReporter over the given reporters.
func NewCompositeReporter(reporters ...Reporter) *CompositeReporter {
	return reporter.NewCompositeReporter(reporters...)
}

// TerminalReporter prints human-friendly job progress to the terminal.
type TerminalReporter = reporter.TerminalReporter

// NewTerminalReporter creates a terminal reporter with verbose mode disabled.
func NewTerminalReporter() *TerminalReporter {
	return reporter.NewTerminalReporter()
}

// NewTerminalReporterVerbose creates a terminal reporter with configurable verbose mode.
func NewTerminalReporterVerbose(verbose bool) *TerminalReporter {
	return reporter.NewTerminalReporterVerbose(verbose)
}

// LogReporter writes job lifecycle events to a log file.
type LogReporter = reporter.LogReporter

// NewLogReporter creates a LogReporter writing to w.
func NewLogReporter(w io.Writer) *LogReporter {
	return reporter.NewLogReporter(w)
}

// JobAcceptedInfo describes a job at the moment a worker picks it up.
type JobAcceptedInfo = reporter.JobAcceptedInfo

// ProgressUpdate is a single stage/percent snapshot for a job in flight.
type ProgressUpdate = reporter.ProgressUpdate

// ResultSummary describes a successfully completed job.
type ResultSummary = reporter.ResultSummary

// JobFailure describes a job's terminal error.
type JobFailure = reporter.JobFailure
