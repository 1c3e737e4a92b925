package reporter

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// LogReporter writes job lifecycle events to a log file, one line each.
type LogReporter struct {
	w                  io.Writer
	mu                 sync.Mutex
	lastProgressBucket int
}

// NewLogReporter creates a LogReporter writing to w.
func NewLogReporter(w io.Writer) *LogReporter {
	return &LogReporter{w: w, lastProgressBucket: -1}
}

func (r *LogReporter) log(level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	timestamp := time.Now().Format("2006-01-02 15:04:05")
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintf(r.w, "%s [%s] %s\n", timestamp, level, msg)
}

func (r *LogReporter) JobAccepted(info JobAcceptedInfo) {
	r.mu.Lock()
	r.lastProgressBucket = -1
	r.mu.Unlock()
	r.log("INFO", "=== JOB ACCEPTED === %s (%s, attempt %d)", info.JobID, info.DisplayName, info.Attempt)
}

// Progress logs at 5% intervals to avoid flooding the log file.
func (r *LogReporter) Progress(update ProgressUpdate) {
	bucket := update.Percent / 5
	r.mu.Lock()
	if bucket <= r.lastProgressBucket {
		r.mu.Unlock()
		return
	}
	r.lastProgressBucket = bucket
	r.mu.Unlock()

	if update.ETASeconds != nil {
		r.log("INFO", "[%s] %d%% %s (eta %ds)", update.Stage, update.Percent, update.Message, *update.ETASeconds)
	} else {
		r.log("INFO", "[%s] %d%% %s", update.Stage, update.Percent, update.Message)
	}
}

func (r *LogReporter) Result(summary ResultSummary) {
	r.log("INFO", "=== RESULT === %s", summary.JobID)
	r.log("INFO", "Duration: %s", summary.Duration)
	r.log("INFO", "Chunks: %d (%d placeholder)", summary.ChunkCount, summary.PlaceholderCount)
	r.log("INFO", "Concepts: %d, practice problems: %d", summary.ConceptCount, summary.PracticeCount)
}

func (r *LogReporter) Failed(failure JobFailure) {
	r.log("ERROR", "=== FAILED === %s [%s] %s (retriable=%v)", failure.JobID, failure.Class, failure.Message, failure.Retriable)
}

func (r *LogReporter) Warning(message string) {
	r.log("WARN", "%s", message)
}

func (r *LogReporter) Verbose(message string) {
	r.log("DEBUG", "%s", message)
}
