// Package scheduler drives analysis of a ChunkPlan across the Credential
// Pool with bounded concurrency, emitting progress snapshots and
// substituting placeholder analyses for chunks that fail.
//
// Grounded on five82-reel's internal/processing/chunked.go progress/ETA
// math (time.Since(startTime) against a completed/total ratio) and
// internal/encode/encode.go's dispatch-and-collect pattern, reused here
// via the Credential Pool's RunWithAll.
package scheduler

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/five82/coreorc/internal/analysis"
	"github.com/five82/coreorc/internal/credpool"
	"github.com/five82/coreorc/internal/domain"
	"github.com/five82/coreorc/internal/merger"
)

// ParallelProgress is emitted after every chunk-task transition.
type ParallelProgress struct {
	Total          int
	Completed      int
	Failed         int
	Active         int
	OverallPercent int
	PerChunk       []domain.ChunkTask
	ETASeconds     *int
	PoolStatus     string
}

// Scheduler fans out chunk analysis across a Credential Pool.
type Scheduler struct {
	Pool     *credpool.Pool
	Analysis *analysis.Client
}

// New builds a Scheduler over the given pool and Analysis Service client.
func New(pool *credpool.Pool, client *analysis.Client) *Scheduler {
	return &Scheduler{Pool: pool, Analysis: client}
}

// Result is the outcome of driving a plan to completion (or cancellation).
type Result struct {
	Chunks    []domain.ChunkResult
	Cancelled bool
}

// Run drives plan.Chunks through the pool. credentialFileRefs maps a
// credential ID to the file_ref that credential uploaded. onProgress is
// invoked after every task transition.
func (s *Scheduler) Run(
	ctx context.Context,
	plan domain.ChunkPlan,
	credentialFileRefs map[string]string,
	mimeType, modelID string,
	maxConcurrency int,
	onProgress func(ParallelProgress),
	onChunkComplete func(domain.ChunkResult),
	onChunkError func(index int, err error),
) Result {
	n := len(plan.Chunks)
	tasks := make([]credpool.Task[domain.ChunkResult], n)

	var mu sync.Mutex
	taskStates := make([]domain.ChunkTask, n)
	for i, chunk := range plan.Chunks {
		taskStates[i] = domain.ChunkTask{Chunk: chunk, Status: domain.ChunkPending}
	}

	startTime := time.Now()
	processed := 0

	emit := func() {
		mu.Lock()
		defer mu.Unlock()
		completed, failed, active := 0, 0, 0
		var effective float64
		snapshot := make([]domain.ChunkTask, n)
		for i, t := range taskStates {
			snapshot[i] = t
			switch t.Status {
			case domain.ChunkCompleted:
				completed++
				effective += 1.0
			case domain.ChunkFailed:
				failed++
				effective += 1.0
			case domain.ChunkProcessing, domain.ChunkUploading:
				active++
				effective += t.Progress
			}
		}
		var percent int
		if n > 0 {
			percent = int(math.Round(100 * effective / float64(n)))
		}
		var eta *int
		if processed > 0 {
			elapsed := time.Since(startTime)
			remaining := n - processed
			e := int(elapsed.Seconds() * float64(remaining) / float64(processed))
			eta = &e
		}
		onProgress(ParallelProgress{
			Total:          n,
			Completed:      completed,
			Failed:         failed,
			Active:         active,
			OverallPercent: percent,
			PerChunk:       snapshot,
			ETASeconds:     eta,
		})
	}

	for i, chunk := range plan.Chunks {
		i, chunk := i, chunk
		tasks[i] = credpool.Task[domain.ChunkResult]{
			Index: i,
			Fn: func(ctx context.Context, cred *domain.Credential) (domain.ChunkResult, error) {
				mu.Lock()
				taskStates[i].Status = domain.ChunkProcessing
				started := time.Now().Unix()
				taskStates[i].StartedAt = &started
				mu.Unlock()
				emit()

				fileRef := credentialFileRefs[cred.ID]
				prompt := chunkPrompt(chunk)
				chunkAnalysis, err := s.Analysis.Generate(ctx, cred.Secret, modelID, fileRef, mimeType, prompt)
				if err != nil {
					// Rate-limited and transient failures get one retry against
					// the same credential before the chunk falls back to a
					// placeholder; all other classes fail the chunk immediately.
					switch domain.ClassOf(err) {
					case domain.ClassAnalysisRateLimit, domain.ClassAnalysisTransient:
						chunkAnalysis, err = s.Analysis.Generate(ctx, cred.Secret, modelID, fileRef, mimeType, prompt)
					}
				}

				ended := time.Now().Unix()
				mu.Lock()
				taskStates[i].EndedAt = &ended
				processed++
				if err != nil {
					taskStates[i].Status = domain.ChunkFailed
					taskStates[i].Err = err
				} else {
					taskStates[i].Status = domain.ChunkCompleted
					taskStates[i].Progress = 1.0
				}
				mu.Unlock()
				emit()

				if err != nil {
					return domain.ChunkResult{}, err
				}
				return domain.ChunkResult{
					ChunkIndex:        chunk.Index,
					ChunkStartOffsetS: chunk.StartS,
					Analysis:          chunkAnalysis,
				}, nil
			},
		}
	}

	raw := credpool.RunWithAll(ctx, s.Pool, tasks, maxConcurrency)

	out := make([]domain.ChunkResult, n)
	for i, r := range raw {
		chunk := plan.Chunks[i]
		if r.Err != nil {
			if onChunkError != nil {
				onChunkError(i, r.Err)
			}
			out[i] = placeholderResult(chunk, r.Err)
			continue
		}
		out[i] = r.Value
		if onChunkComplete != nil {
			onChunkComplete(r.Value)
		}
	}
	emit()

	return Result{Chunks: out, Cancelled: ctx.Err() != nil}
}

func chunkPrompt(chunk domain.Chunk) string {
	return fmt.Sprintf(
		"Analyze this video segment using RELATIVE timestamps starting from 00:00. "+
			"The segment spans absolute time %s to %s in the source video, but describe "+
			"it as if it starts at 00:00. Return only JSON, no commentary.",
		merger.FormatHMS(chunk.StartS), merger.FormatHMS(chunk.EndS),
	)
}

// placeholderResult builds a minimally-valid analysis for a chunk that
// failed, preserving index density and merger invariants.
func placeholderResult(chunk domain.Chunk, err error) domain.ChunkResult {
	reason := "analysis failed"
	if err != nil {
		reason = err.Error()
	}
	start := merger.FormatHMS(chunk.StartS)
	end := merger.FormatHMS(chunk.EndS)
	return domain.ChunkResult{
		ChunkIndex:        chunk.Index,
		ChunkStartOffsetS: chunk.StartS,
		Placeholder:       true,
		Analysis: domain.ChunkAnalysis{
			CleanScript: fmt.Sprintf("[Content from %s to %s — %s]", start, end, reason),
			Chapters: []domain.Chapter{{
				Title:     "Unavailable segment",
				StartTime: "00:00:00",
				EndTime:   merger.FormatHMS(chunk.DurationS),
			}},
		},
	}
}
