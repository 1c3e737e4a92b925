// Package worker drives a single job from lease to terminal ack: parallel
// per-credential upload, chunk planning, parallel analysis, merge, an
// optional trim pass, and cleanup.
//
// Grounded on five82-reel's internal/processing/chunked.go: the same
// phase-1-errgroup / phase-2-parallel-with-progress-callback / merge /
// cleanup-with-defer shape, retargeted from a single-file video pipeline
// to a queue-dispatched multi-credential analysis pipeline. The upload
// phase's errgroup.WithContext use is lifted directly from chunked.go's
// "Phase 1" indexing+crop-detection fan-out.
package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/five82/coreorc/internal/analysis"
	"github.com/five82/coreorc/internal/config"
	"github.com/five82/coreorc/internal/credpool"
	"github.com/five82/coreorc/internal/domain"
	"github.com/five82/coreorc/internal/events"
	"github.com/five82/coreorc/internal/merger"
	"github.com/five82/coreorc/internal/planner"
	"github.com/five82/coreorc/internal/queue"
	"github.com/five82/coreorc/internal/reporter"
	"github.com/five82/coreorc/internal/scheduler"
	"github.com/five82/coreorc/internal/trimmer"
	"github.com/five82/coreorc/internal/upload"
	"github.com/five82/coreorc/internal/util"
)

// staleTrimSweepMaxAgeHours bounds how long an orphaned trimmed scratch
// file (left behind by a worker that crashed mid-job) survives before the
// next worker startup reclaims it.
const staleTrimSweepMaxAgeHours = 24

// cleanupGrace is how long a completed job's temp files are kept around
// before removal, giving any in-flight sender a window to read them.
const cleanupGrace = 60 * time.Second

// stageBand bounds the percent range the scheduler's own 0..100 progress
// is rescaled into, so a job's overall percent stays monotonic across
// stages per SPEC_FULL.md's stage/percent ordering.
type stageBand struct {
	lo, hi int
}

var analyzingBand = stageBand{lo: 42, hi: 90}

// Worker leases and processes jobs until its context is cancelled.
type Worker struct {
	Queue     *queue.Queue
	Pool      *credpool.Pool
	Upload    *upload.Adapter
	Analysis  *analysis.Client
	Scheduler *scheduler.Scheduler
	Trimmer   trimmer.Trimmer
	Config    *config.Config
	Reporter  reporter.Reporter
	OnEvent   events.Handler
}

// New builds a Worker wiring together the queue, pool, upload adapter,
// analysis client, scheduler and trimmer implied by cfg.
func New(cfg *config.Config, q *queue.Queue, rep reporter.Reporter, onEvent events.Handler) *Worker {
	pool := credpool.New(cfg.Credentials, cfg.PerCredCap, cfg.RateLimitCooldownMS)
	analysisClient := analysis.NewClient()
	if rep == nil {
		rep = reporter.NullReporter{}
	}
	return &Worker{
		Queue:     q,
		Pool:      pool,
		Upload:    upload.NewAdapter(analysis.BaseURL),
		Analysis:  analysisClient,
		Scheduler: scheduler.New(pool, analysisClient),
		Trimmer:   trimmer.NewExecTrimmer(),
		Config:    cfg,
		Reporter:  rep,
		OnEvent:   onEvent,
	}
}

// Run leases and processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if w.Config != nil && w.Config.TempVideoDir != "" {
		if n, err := util.CleanupStaleTempFiles(w.Config.TempVideoDir, "trimmed", staleTrimSweepMaxAgeHours); err == nil && n > 0 {
			w.Reporter.Warning(fmt.Sprintf("swept %d stale trimmed temp file(s) left behind by a previous run", n))
		}
	}
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		job, err := w.Queue.Lease(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.Reporter.Warning(fmt.Sprintf("lease failed: %v", err))
			continue
		}
		w.processJob(ctx, *job)
	}
}

func (w *Worker) processJob(ctx context.Context, job domain.Job) {
	started := time.Now()
	w.Reporter.JobAccepted(reporter.JobAcceptedInfo{
		JobID:       job.ID,
		DisplayName: job.DisplayName,
		SizeBytes:   job.SizeBytes,
		Attempt:     job.Attempts + 1,
	})

	var trimmedPath string
	defer func() { w.cleanup(job, trimmedPath) }()

	artifact, err := w.runPipeline(ctx, job, &trimmedPath)
	if err != nil {
		class := domain.ClassOf(err)
		retriable := domain.IsRetriable(err)
		w.emitError(job, err, string(class))
		w.Reporter.Failed(reporter.JobFailure{
			JobID:     job.ID,
			Class:     string(class),
			Message:   err.Error(),
			Retriable: retriable,
		})
		if ackErr := w.Queue.AckFailure(ctx, job.ID, err, retriable); ackErr != nil {
			w.Reporter.Warning(fmt.Sprintf("ack failure for %s: %v", job.ID, ackErr))
		}
		return
	}

	w.emitResult(job, artifact)
	w.emitProgress(job, domain.StageComplete, 100, "complete")
	w.Reporter.Result(reporter.ResultSummary{
		JobID:            job.ID,
		Duration:         time.Since(started),
		ChunkCount:       artifact.ProcessingMetadata.TotalChunks,
		PlaceholderCount: artifact.ProcessingMetadata.FailedChunks,
		ConceptCount:     len(artifact.Concepts),
		PracticeCount:    len(artifact.Practice),
	})
	if err := w.Queue.AckSuccess(ctx, job.ID); err != nil {
		w.Reporter.Warning(fmt.Sprintf("ack success for %s: %v", job.ID, err))
	}
}

// runPipeline runs steps 2 through 6 of the job lifecycle: upload, plan,
// schedule, merge, and (conditionally) trim. trimmedPath is set to the
// trimmed artifact's path when a trim pass runs, so the caller can clean
// it up alongside the source file.
func (w *Worker) runPipeline(ctx context.Context, job domain.Job, trimmedPath *string) (domain.MergedArtifact, error) {
	if job.SizeBytes > config.MaxJobSizeBytes {
		return domain.MergedArtifact{}, domain.Classify(domain.ClassInputInvalid, fmt.Errorf("size %d exceeds max job size %d", job.SizeBytes, config.MaxJobSizeBytes))
	}
	w.emitProgress(job, domain.StageUploading, 10, "uploading to analysis service")
	fileRefs, err := w.uploadToAllCredentials(ctx, job)
	if err != nil {
		return domain.MergedArtifact{}, err
	}
	w.emitProgress(job, domain.StageUploading, 100, "upload complete")

	w.emitProgress(job, domain.StageProcessing, 0, "planning chunks")
	estimatedS := planner.EstimateDurationSeconds(job.SizeBytes)
	targetS := float64(w.Config.ChunkSizeMinutes) * 60
	overlapS := float64(w.Config.ChunkOverlapSeconds)
	plan := planner.Plan(job.SizeBytes, estimatedS, targetS, overlapS)
	w.emitProgress(job, domain.StageProcessing, 100, fmt.Sprintf("planned %d chunks", len(plan.Chunks)))

	w.emitProgress(job, domain.StageAnalyzing, 0, "analyzing chunks")
	maxConcurrency := w.Pool.MaxConcurrency()
	if w.Config.MaxConcurrentChunks < maxConcurrency {
		maxConcurrency = w.Config.MaxConcurrentChunks
	}
	result := w.Scheduler.Run(
		ctx, plan, fileRefs, job.MimeType, job.ModelID, maxConcurrency,
		func(p scheduler.ParallelProgress) {
			w.emitProgress(job, domain.StageAnalyzing, analyzingBand.scale(p.OverallPercent),
				fmt.Sprintf("%d/%d chunks", p.Completed+p.Failed, p.Total))
		},
		nil, nil,
	)
	if result.Cancelled {
		return domain.MergedArtifact{}, domain.Classify(domain.ClassWorkerCrash, ctx.Err())
	}

	artifact := merger.Merge(result.Chunks)
	artifact.ProcessingMetadata.Cancelled = result.Cancelled

	if len(artifact.ContentMetadata.MainContentTimestamps) > 0 {
		w.emitProgress(job, domain.StageTrimming, 0, "trimming to main content")
		outputPath, err := w.trim(ctx, job, artifact)
		if err != nil {
			return domain.MergedArtifact{}, domain.Classify(domain.ClassWorkerCrash, err)
		}
		*trimmedPath = outputPath
		w.emitProgress(job, domain.StageTrimming, 100, "trim complete")
	}

	w.emitProgress(job, domain.StageSending, 100, "ready to send")
	return artifact, nil
}

// uploadToAllCredentials uploads job.SourcePath once per pool credential,
// in parallel, per SPEC_FULL.md's "file_ref is scoped to the uploading
// credential" contract.
func (w *Worker) uploadToAllCredentials(ctx context.Context, job domain.Job) (map[string]string, error) {
	creds := w.Pool.Credentials()
	fileRefs := make(map[string]string, len(creds))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, cred := range creds {
		cred := cred
		g.Go(func() error {
			fileRef, err := w.Upload.Upload(gctx, cred.Secret, job.SourcePath, job.MimeType, job.DisplayName)
			if err != nil {
				return err
			}
			if err := w.Upload.WaitReady(gctx, cred.Secret, fileRef, job.SizeBytes); err != nil {
				return err
			}
			mu.Lock()
			fileRefs[cred.ID] = fileRef
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return fileRefs, nil
}

// trim pairs consecutive main_content_timestamps into (start,end) segments
// and invokes the external Trimmer, returning the path it wrote to.
//
// SPEC_FULL.md §4.4 flat-maps main_content_timestamps as single absolute
// timestamps; §6 describes the Trimmer's segments as (start,end) pairs.
// Reconciling the two: consecutive timestamps are paired (ts[2i], ts[2i+1])
// into keep-segments, the natural reading of a flat-mapped list of segment
// boundaries. An odd trailing timestamp with no partner is dropped.
func (w *Worker) trim(ctx context.Context, job domain.Job, artifact domain.MergedArtifact) (string, error) {
	ts := artifact.ContentMetadata.MainContentTimestamps
	var segments []trimmer.Segment
	for i := 0; i+1 < len(ts); i += 2 {
		segments = append(segments, trimmer.Segment{Start: ts[i], End: ts[i+1]})
	}
	if len(segments) == 0 {
		return "", nil
	}

	outputPath, err := w.allocateTrimOutputPath(job.SourcePath)
	if err != nil {
		return "", err
	}
	if err := w.Trimmer.Trim(ctx, job.SourcePath, segments, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

// allocateTrimOutputPath picks a scratch path for the trimmed artifact. If
// a temp directory is configured, it checks available space there (per
// SPEC_FULL.md §5's disk-space preflight) and allocates the path inside it,
// so a crashed worker's leftovers are confined to one directory the
// stale-file sweep in Run can later reclaim. Otherwise it falls back to a
// path alongside the source file.
func (w *Worker) allocateTrimOutputPath(sourcePath string) (string, error) {
	if w.Config == nil || w.Config.TempVideoDir == "" {
		return trimmedOutputPath(sourcePath), nil
	}
	util.CheckDiskSpace(w.Config.TempVideoDir, func(format string, args ...any) {
		w.Reporter.Warning(fmt.Sprintf(format, args...))
	})
	ext := strings.TrimPrefix(filepath.Ext(sourcePath), ".")
	return util.CreateTempFilePath(w.Config.TempVideoDir, "trimmed", ext)
}

func trimmedOutputPath(sourcePath string) string {
	if idx := strings.LastIndex(sourcePath, "."); idx > 0 {
		return sourcePath[:idx] + "_trimmed" + sourcePath[idx:]
	}
	return sourcePath + "_trimmed"
}

// cleanup removes the job's local temp files after cleanupGrace, per
// SPEC_FULL.md §4.7 step 8.
func (w *Worker) cleanup(job domain.Job, trimmedPath string) {
	paths := []string{job.SourcePath}
	if trimmedPath != "" {
		paths = append(paths, trimmedPath)
	}
	time.AfterFunc(cleanupGrace, func() {
		for _, p := range paths {
			_ = os.Remove(p)
		}
	})
}

func (w *Worker) emitProgress(job domain.Job, stage domain.Stage, percent int, message string) {
	if w.Queue != nil {
		_ = w.Queue.Progress(context.Background(), domain.JobProgress{JobID: job.ID, Stage: stage, Percent: percent, Message: message})
	}
	if w.OnEvent == nil {
		return
	}
	_ = w.OnEvent(events.ProgressEvent{
		BaseEvent: events.BaseEvent{EventType: events.TypeProgress, Job: job.ID, Time: events.NewTimestamp()},
		Stage:     string(stage),
		Percent:   percent,
		Message:   message,
	})
}

func (w *Worker) emitResult(job domain.Job, artifact domain.MergedArtifact) {
	if w.OnEvent == nil {
		return
	}
	_ = w.OnEvent(events.ResultEvent{
		BaseEvent: events.BaseEvent{EventType: events.TypeResult, Job: job.ID, Time: events.NewTimestamp()},
		Artifact:  artifact,
	})
}

func (w *Worker) emitError(job domain.Job, err error, class string) {
	if w.OnEvent == nil {
		return
	}
	_ = w.OnEvent(events.ErrorEvent{
		BaseEvent: events.BaseEvent{EventType: events.TypeError, Job: job.ID, Time: events.NewTimestamp()},
		Message:   fmt.Sprintf("%s: %v", class, err),
	})
}

// scale maps a 0..100 scheduler percent into the stage's [lo,hi] band.
func (b stageBand) scale(percent int) int {
	return b.lo + (percent*(b.hi-b.lo))/100
}
