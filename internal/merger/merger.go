// Package merger folds an ordered list of chunk analyses into one
// MergedArtifact with absolute timestamps, grounded on five82-reel's
// internal/chunk/merge.go ordered-fold-then-batch structure (there: a
// concat-demuxer file list written in chunk-index order, batched past 500
// entries to bound the working set; here: an in-memory ordered fold over
// JSON documents instead of media files, batched the same way).
package merger

import (
	"fmt"
	"math"
	"strings"

	"github.com/five82/coreorc/internal/domain"
)

// batchSize is the length of the slices of results the fold walks in turn;
// every batch accumulates directly into the same running totals.
const batchSize = 500

// Merge folds results (assumed already sorted by ChunkIndex) into a
// MergedArtifact.
func Merge(results []domain.ChunkResult) domain.MergedArtifact {
	var artifact domain.MergedArtifact
	seenConcepts := make(map[string]bool)
	seenPractice := make(map[string]bool)
	categoryTotals := make(map[string]*domain.FilteredCategory)
	var categoryOrder []string

	var scriptParts []string
	var summaryParts []string
	var originalDurationTotal, essentialDurationTotal float64
	var removedPercentages []float64
	var mainTimestamps []string
	var chapters []domain.Chapter

	for start := 0; start < len(results); start += batchSize {
		end := start + batchSize
		if end > len(results) {
			end = len(results)
		}
		batch := results[start:end]

		for _, r := range batch {
			offset := r.ChunkStartOffsetS

			if r.Analysis.CleanScript != "" {
				if len(scriptParts) > 0 {
					scriptParts = append(scriptParts, fmt.Sprintf("continuing from %s", FormatHMS(offset)))
				}
				scriptParts = append(scriptParts, r.Analysis.CleanScript)
			}

			for _, ch := range r.Analysis.Chapters {
				chapters = append(chapters, domain.Chapter{
					Title:     ch.Title,
					StartTime: FormatHMS(offset + ParseDuration(ch.StartTime)),
					EndTime:   FormatHMS(offset + ParseDuration(ch.EndTime)),
				})
			}

			for _, c := range r.Analysis.Concepts {
				key := strings.ToLower(strings.TrimSpace(c))
				if key == "" || seenConcepts[key] {
					continue
				}
				seenConcepts[key] = true
				artifact.Concepts = append(artifact.Concepts, strings.TrimSpace(c))
			}

			for _, p := range r.Analysis.Practice {
				key := strings.ToLower(strings.TrimSpace(p))
				if key == "" || seenPractice[key] {
					continue
				}
				seenPractice[key] = true
				artifact.Practice = append(artifact.Practice, strings.TrimSpace(p))
			}

			if r.Analysis.Summary != "" {
				summaryParts = append(summaryParts, fmt.Sprintf("Part %d (%s onwards)\n%s", r.ChunkIndex+1, FormatHMS(offset), r.Analysis.Summary))
			}

			originalDurationTotal += ParseDuration(r.Analysis.ContentMetadata.OriginalDurationEstimate)
			essentialDurationTotal += ParseDuration(r.Analysis.ContentMetadata.EssentialContentDuration)
			removedPercentages = append(removedPercentages, r.Analysis.ContentMetadata.RemovedPercentage)

			for _, fc := range r.Analysis.ContentMetadata.FilteredCategories {
				if existing, ok := categoryTotals[fc.Category]; ok {
					existing.Duration = FormatHMS(ParseDuration(existing.Duration) + ParseDuration(fc.Duration))
					continue
				}
				categoryOrder = append(categoryOrder, fc.Category)
				categoryTotals[fc.Category] = &domain.FilteredCategory{
					Category:    fc.Category,
					Description: fc.Description,
					Duration:    FormatHMS(ParseDuration(fc.Duration)),
				}
			}

			for _, ts := range r.Analysis.ContentMetadata.MainContentTimestamps {
				mainTimestamps = append(mainTimestamps, FormatHMS(offset+ParseDuration(ts)))
			}
		}
	}

	artifact.CleanScript = strings.Join(scriptParts, "\n\n")
	artifact.Chapters = chapters
	artifact.Summary = strings.Join(summaryParts, "\n\n")

	artifact.ContentMetadata.OriginalDurationEstimate = FormatHMS(originalDurationTotal)
	artifact.ContentMetadata.EssentialContentDuration = FormatHMS(essentialDurationTotal)
	artifact.ContentMetadata.RemovedPercentage = mean(removedPercentages)
	artifact.ContentMetadata.MainContentTimestamps = mainTimestamps
	for _, name := range categoryOrder {
		artifact.ContentMetadata.FilteredCategories = append(artifact.ContentMetadata.FilteredCategories, *categoryTotals[name])
	}

	successful, failed := 0, 0
	for _, r := range results {
		if r.Placeholder {
			failed++
		} else {
			successful++
		}
	}
	artifact.ProcessingMetadata = domain.ProcessingMetadata{
		TotalChunks:      len(results),
		SuccessfulChunks: successful,
		FailedChunks:     failed,
	}

	return artifact
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return math.Round(sum / float64(len(vals)))
}
