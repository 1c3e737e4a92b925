// Package domain holds the shared data model for the orchestration core:
// jobs, chunk plans, credentials, and the structured artifact produced by
// a successful run.
package domain

import "time"

// JobState is a job's lifecycle state.
type JobState string

const (
	JobQueued    JobState = "queued"
	JobActive    JobState = "active"
	JobSucceeded JobState = "succeeded"
	JobFailed    JobState = "failed"
	JobCancelled JobState = "cancelled"
)

// Job is the unit of work the queue dispatches.
type Job struct {
	ID             string
	ChatRef        string
	ReplyRef       string
	SourcePath     string
	DisplayName    string
	MimeType       string
	SizeBytes      int64
	ModelID        string
	SubmitterID    string
	SubmitterLabel string
	EnqueuedAt     time.Time

	State    JobState
	Attempts int
}

// Stage is a job's processing stage, used for monotonic progress ordering.
type Stage string

const (
	StageQueued      Stage = "queued"
	StageDownloading Stage = "downloading"
	StageUploading   Stage = "uploading"
	StageProcessing  Stage = "processing"
	StageAnalyzing   Stage = "analyzing"
	StageTrimming    Stage = "trimming"
	StageSending     Stage = "sending"
	StageComplete    Stage = "complete"
	StageError       Stage = "error"
)

// stageRank gives each stage a monotonically increasing rank so that
// (stage_rank, percent) ordering can be checked and enforced.
var stageRank = map[Stage]int{
	StageQueued:      0,
	StageDownloading: 1,
	StageUploading:   2,
	StageProcessing:  3,
	StageAnalyzing:   4,
	StageTrimming:    5,
	StageSending:     6,
	StageComplete:    7,
	StageError:       8,
}

// Rank returns the stage's position in the monotonic progress order.
func (s Stage) Rank() int { return stageRank[s] }

// JobProgress is a snapshot published whenever a worker advances a job.
type JobProgress struct {
	JobID   string
	Stage   Stage
	Percent int
	Message string
	ETA     *int // seconds, optional
}

// Precedes reports whether p logically precedes other within the same job,
// i.e. other is a valid next snapshot. Only violated when going backwards
// on a non-error stage.
func (p JobProgress) Precedes(other JobProgress) bool {
	if other.Stage == StageError {
		return true
	}
	if other.Stage.Rank() != p.Stage.Rank() {
		return other.Stage.Rank() > p.Stage.Rank()
	}
	return other.Percent >= p.Percent
}
