// Package planner computes a ChunkPlan from a source file's size and the
// configured target chunk length. It is a pure function: no I/O, no
// concurrency, no state — grounded on five82-reel's internal/chunk.Chunkify
// windowing logic, adapted from frame-index windows to second-denominated
// time windows.
package planner

import "github.com/five82/coreorc/internal/domain"

// BytesPerMinute is the heuristic used to estimate a video's duration from
// its size when no container metadata is available: 16 MB per minute.
// This is explicitly approximate; downstream code must tolerate the last
// chunk being partly outside the real duration.
const BytesPerMinute = 16 * 1024 * 1024

// EstimateDurationSeconds derives a heuristic duration estimate from size.
func EstimateDurationSeconds(sizeBytes int64) float64 {
	minutes := float64(sizeBytes) / float64(BytesPerMinute)
	return minutes * 60
}

// Plan partitions [0, estimatedDurationS) into consecutive windows of
// length targetS, with an optional read-only overlapS appended to each
// non-terminal chunk's end. The last chunk is truncated to the estimate.
// Indexes are dense and zero-based.
func Plan(sizeBytes int64, estimatedDurationS, targetS, overlapS float64) domain.ChunkPlan {
	if targetS <= 0 {
		targetS = 1
	}

	plan := domain.ChunkPlan{
		EstimatedDurationS: estimatedDurationS,
		TargetS:            targetS,
		OverlapS:           overlapS,
	}

	if estimatedDurationS <= 0 {
		return plan
	}

	if estimatedDurationS <= targetS {
		plan.Chunks = []domain.Chunk{{
			Index:     0,
			StartS:    0,
			EndS:      estimatedDurationS,
			DurationS: estimatedDurationS,
		}}
		return plan
	}

	var chunks []domain.Chunk
	start := 0.0
	idx := 0
	for start < estimatedDurationS {
		end := start + targetS
		if end > estimatedDurationS {
			end = estimatedDurationS
		}
		duration := end - start
		windowEnd := end
		isTerminal := end >= estimatedDurationS
		if !isTerminal && overlapS > 0 {
			windowEnd = end + overlapS
		}
		chunks = append(chunks, domain.Chunk{
			Index:     idx,
			StartS:    start,
			EndS:      windowEnd,
			DurationS: duration,
		})
		start = end
		idx++
	}
	plan.Chunks = chunks
	return plan
}
