// Package analysis implements the client side of the Analysis Service's
// generateContent endpoint: building the request, applying the per-call
// deadline, and recovering from occasionally-truncated JSON responses.
//
// No file in the retrieved example pack calls an LLM endpoint directly;
// the net/http + context idiom here follows the same shape used by the
// Upload Adapter's grounding file (explicit per-call timeout via
// context.WithTimeout, single JSON decode, no retries inside the HTTP
// layer itself — retries are the scheduler's concern).
package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/five82/coreorc/internal/domain"
)

// GenerateDeadline is the per-chunk generate-call deadline.
const GenerateDeadline = 8 * time.Minute

// BaseURL is the Analysis Service's API root.
const BaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Client calls the external Analysis Service's generateContent endpoint.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
}

// NewClient builds a Client with a dedicated HTTP client timed to the
// generate-call deadline.
func NewClient() *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: GenerateDeadline},
		BaseURL:    BaseURL,
	}
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	FileData *fileData `json:"file_data,omitempty"`
	Text     string    `json:"text,omitempty"`
}

type fileData struct {
	MimeType string `json:"mime_type"`
	FileURI  string `json:"file_uri"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	TopK             int     `json:"top_k"`
	TopP             float64 `json:"top_p"`
	MaxOutputTokens  int     `json:"max_output_tokens"`
	ResponseMimeType string  `json:"response_mime_type"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate issues a single generateContent call for one chunk and returns
// the parsed analysis. It applies the GenerateDeadline, strips code
// fences, and attempts one JSON repair pass if the raw text does not
// parse directly.
func (c *Client) Generate(ctx context.Context, cred string, modelID, fileURI, mimeType, prompt string) (domain.ChunkAnalysis, error) {
	ctx, cancel := context.WithTimeout(ctx, GenerateDeadline)
	defer cancel()

	reqBody := generateRequest{
		Contents: []content{{
			Parts: []part{
				{FileData: &fileData{MimeType: mimeType, FileURI: fileURI}},
				{Text: prompt},
			},
		}},
		GenerationConfig: generationConfig{
			Temperature:      0.3,
			TopK:             32,
			TopP:             0.95,
			MaxOutputTokens:  16384,
			ResponseMimeType: "application/json",
		},
	}

	buf, err := json.Marshal(reqBody)
	if err != nil {
		return domain.ChunkAnalysis{}, fmt.Errorf("marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.BaseURL, modelID, cred)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return domain.ChunkAnalysis{}, fmt.Errorf("build generate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return domain.ChunkAnalysis{}, domain.Classify(domain.ClassAnalysisTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ChunkAnalysis{}, domain.Classify(domain.ClassAnalysisTransient, err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return domain.ChunkAnalysis{}, domain.Classify(domain.ClassAnalysisRateLimit, fmt.Errorf("rate limited: %s", string(body)))
	}
	if resp.StatusCode == http.StatusRequestEntityTooLarge {
		return domain.ChunkAnalysis{}, domain.Classify(domain.ClassContextExceeded, fmt.Errorf("request too large: %s", string(body)))
	}
	if resp.StatusCode >= 500 {
		return domain.ChunkAnalysis{}, domain.Classify(domain.ClassAnalysisTransient, fmt.Errorf("server error %d: %s", resp.StatusCode, string(body)))
	}
	if resp.StatusCode >= 400 {
		return domain.ChunkAnalysis{}, domain.Classify(domain.ClassAnalysisTransient, fmt.Errorf("client error %d: %s", resp.StatusCode, string(body)))
	}

	var gr generateResponse
	if err := json.Unmarshal(body, &gr); err != nil {
		return domain.ChunkAnalysis{}, domain.Classify(domain.ClassAnalysisBadJSON, fmt.Errorf("decode generate response envelope: %w", err))
	}
	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return domain.ChunkAnalysis{}, domain.Classify(domain.ClassAnalysisBadJSON, fmt.Errorf("generate response has no candidates"))
	}

	raw := stripCodeFence(gr.Candidates[0].Content.Parts[0].Text)

	analysis, err := decodeAnalysis(raw)
	if err == nil {
		return analysis, nil
	}

	repaired := RepairJSON(raw)
	analysis, err2 := decodeAnalysis(repaired)
	if err2 != nil {
		return domain.ChunkAnalysis{}, domain.Classify(domain.ClassAnalysisBadJSON, fmt.Errorf("unparseable after repair: %w (original: %v)", err2, err))
	}
	return analysis, nil
}

// stripCodeFence removes a leading ```json / ``` fence and a trailing ```
// fence, if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// wireAnalysis mirrors the Analysis Service's on-wire JSON shape; field
// names follow the service's own snake_case convention, distinct from the
// Go-idiomatic domain.ChunkAnalysis this decodes into.
type wireAnalysis struct {
	CleanScript string `json:"clean_script"`
	Chapters    []struct {
		Title     string `json:"title"`
		StartTime string `json:"start_time"`
		EndTime   string `json:"end_time"`
	} `json:"chapters"`
	Summary  string   `json:"summary"`
	Concepts []string `json:"concepts"`
	Practice []string `json:"practice"`
	ContentMetadata struct {
		OriginalDurationEstimate string `json:"original_duration_estimate"`
		EssentialContentDuration string `json:"essential_content_duration"`
		RemovedPercentage        float64 `json:"removed_percentage"`
		FilteredCategories       []struct {
			Category    string `json:"category"`
			Description string `json:"description"`
			Duration    string `json:"duration"`
		} `json:"filtered_categories"`
		MainContentTimestamps []string `json:"main_content_timestamps"`
	} `json:"content_metadata"`
}

func decodeAnalysis(raw string) (domain.ChunkAnalysis, error) {
	var w wireAnalysis
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return domain.ChunkAnalysis{}, err
	}

	a := domain.ChunkAnalysis{
		CleanScript: w.CleanScript,
		Summary:     w.Summary,
		Concepts:    w.Concepts,
		Practice:    w.Practice,
	}
	for _, ch := range w.Chapters {
		a.Chapters = append(a.Chapters, domain.Chapter{
			Title:     ch.Title,
			StartTime: ch.StartTime,
			EndTime:   ch.EndTime,
		})
	}
	a.ContentMetadata.OriginalDurationEstimate = w.ContentMetadata.OriginalDurationEstimate
	a.ContentMetadata.EssentialContentDuration = w.ContentMetadata.EssentialContentDuration
	a.ContentMetadata.RemovedPercentage = w.ContentMetadata.RemovedPercentage
	a.ContentMetadata.MainContentTimestamps = w.ContentMetadata.MainContentTimestamps
	for _, fc := range w.ContentMetadata.FilteredCategories {
		a.ContentMetadata.FilteredCategories = append(a.ContentMetadata.FilteredCategories, domain.FilteredCategory{
			Category:    fc.Category,
			Description: fc.Description,
			Duration:    fc.Duration,
		})
	}
	return a, nil
}
