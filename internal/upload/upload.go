// Package upload implements the Upload Adapter: a two-step resumable
// upload protocol against the external Analysis Service's file-intake
// endpoint, plus wait-for-ready polling.
//
// Grounded on other_examples/.../gensupport.ResumableUpload: the
// X-Goog-Upload-* header construction, the offset/command PUT loop, and
// the use of github.com/google/uuid for a per-upload attempt identifier
// are all adapted directly from that file, retargeted at this spec's
// exact endpoint contract (§6).
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/five82/coreorc/internal/config"
	"github.com/five82/coreorc/internal/domain"
)

const (
	initTimeout       = 60 * time.Second
	transferTimeout   = 300 * time.Second
	statusPollTimeout = 30 * time.Second
	statusPollEvery   = 2 * time.Second

	// maxUploadAttempts bounds the adapter-internal retry loop for
	// ClassUploadTransient failures (network errors, 5xx) before the
	// error is escalated to the caller.
	maxUploadAttempts = 3
)

// retryTransientUpload calls attempt up to maxUploadAttempts times,
// retrying only on domain.ClassUploadTransient. Any other error, or the
// last transient error once attempts are exhausted, is returned as-is.
func retryTransientUpload(attempt func() (string, error)) (string, error) {
	var lastErr error
	for i := 0; i < maxUploadAttempts; i++ {
		val, err := attempt()
		if err == nil {
			return val, nil
		}
		if domain.ClassOf(err) != domain.ClassUploadTransient {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

// Adapter performs resumable uploads against the Analysis Service.
type Adapter struct {
	InitClient     *http.Client
	TransferClient *http.Client
	StatusClient   *http.Client
	BaseURL        string
}

// NewAdapter builds an Adapter with one HTTP client per timeout class.
func NewAdapter(baseURL string) *Adapter {
	return &Adapter{
		InitClient:     &http.Client{Timeout: initTimeout},
		TransferClient: &http.Client{Timeout: transferTimeout},
		StatusClient:   &http.Client{Timeout: statusPollTimeout},
		BaseURL:        baseURL,
	}
}

type initiateRequestBody struct {
	File struct {
		DisplayName string `json:"displayName"`
	} `json:"file"`
}

type fileEnvelope struct {
	File struct {
		URI  string `json:"uri"`
		Name string `json:"name"`
	} `json:"file"`
}

// Upload streams path's contents to the Analysis Service, never reading
// the whole file into memory, and returns the durable file_ref.
func (a *Adapter) Upload(ctx context.Context, credSecret, path, mimeType, displayName string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", domain.Classify(domain.ClassInputInvalid, fmt.Errorf("open %s: %w", path, err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", domain.Classify(domain.ClassInputInvalid, fmt.Errorf("stat %s: %w", path, err))
	}
	size := info.Size()

	uploadURL, err := a.initiate(ctx, credSecret, size, mimeType, displayName)
	if err != nil {
		return "", err
	}

	invocationID := uuid.NewString()

	if size > config.UploadChunkThresholdBytes {
		return a.transferChunked(ctx, uploadURL, f, size, invocationID)
	}
	return a.transferSingleShot(ctx, uploadURL, f, size, invocationID)
}

func (a *Adapter) initiate(ctx context.Context, credSecret string, size int64, mimeType, displayName string) (string, error) {
	var body initiateRequestBody
	body.File.DisplayName = displayName
	buf, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal initiate body: %w", err)
	}

	return retryTransientUpload(func() (string, error) {
		return a.doInitiate(ctx, credSecret, size, mimeType, buf)
	})
}

func (a *Adapter) doInitiate(ctx context.Context, credSecret string, size int64, mimeType string, buf []byte) (string, error) {
	url := fmt.Sprintf("%s/upload?key=%s", a.BaseURL, credSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return "", fmt.Errorf("build initiate request: %w", err)
	}
	req.Header.Set("X-Goog-Upload-Protocol", "resumable")
	req.Header.Set("X-Goog-Upload-Command", "start")
	req.Header.Set("X-Goog-Upload-Header-Content-Length", fmt.Sprintf("%d", size))
	req.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.InitClient.Do(req)
	if err != nil {
		return "", domain.Classify(domain.ClassUploadTransient, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 500 {
		return "", domain.Classify(domain.ClassUploadTransient, fmt.Errorf("initiate upload: server error %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return "", domain.Classify(domain.ClassUploadFailedTerm, fmt.Errorf("initiate upload: client error %d", resp.StatusCode))
	}

	uploadURL := resp.Header.Get("X-Goog-Upload-URL")
	if uploadURL == "" {
		return "", domain.Classify(domain.ClassUploadFailedTerm, fmt.Errorf("initiate upload: missing X-Goog-Upload-URL header"))
	}
	return uploadURL, nil
}

func (a *Adapter) transferSingleShot(ctx context.Context, uploadURL string, f *os.File, size int64, invocationID string) (string, error) {
	return retryTransientUpload(func() (string, error) {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return "", fmt.Errorf("seek to offset 0: %w", err)
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, io.LimitReader(f, size))
		if err != nil {
			return "", fmt.Errorf("build transfer request: %w", err)
		}
		req.ContentLength = size
		req.Header.Set("Content-Length", fmt.Sprintf("%d", size))
		req.Header.Set("X-Goog-Upload-Offset", "0")
		req.Header.Set("X-Goog-Upload-Command", "upload, finalize")
		req.Header.Set("X-Goog-Upload-Gcs-Idempotency-Token", invocationID)

		return a.doTransfer(req)
	})
}

func (a *Adapter) transferChunked(ctx context.Context, uploadURL string, f *os.File, size int64, invocationID string) (string, error) {
	chunkSize := config.UploadChunkSizeBytes
	var offset int64
	var fileRef string

	for offset < size {
		remaining := size - offset
		n := chunkSize
		final := false
		if n >= remaining {
			n = remaining
			final = true
		}

		ref, err := retryTransientUpload(func() (string, error) {
			if _, err := f.Seek(offset, io.SeekStart); err != nil {
				return "", fmt.Errorf("seek to offset %d: %w", offset, err)
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, io.LimitReader(f, n))
			if err != nil {
				return "", fmt.Errorf("build transfer request: %w", err)
			}
			req.ContentLength = n
			req.Header.Set("Content-Length", fmt.Sprintf("%d", n))
			req.Header.Set("X-Goog-Upload-Offset", fmt.Sprintf("%d", offset))
			req.Header.Set("X-Goog-Upload-Gcs-Idempotency-Token", invocationID)
			if final {
				req.Header.Set("X-Goog-Upload-Command", "upload, finalize")
			} else {
				req.Header.Set("X-Goog-Upload-Command", "upload")
			}

			return a.doTransfer(req)
		})
		if err != nil {
			return "", err
		}
		if final {
			fileRef = ref
		}
		offset += n
	}

	return fileRef, nil
}

func (a *Adapter) doTransfer(req *http.Request) (string, error) {
	resp, err := a.TransferClient.Do(req)
	if err != nil {
		return "", domain.Classify(domain.ClassUploadTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.Classify(domain.ClassUploadTransient, err)
	}

	if resp.StatusCode >= 500 {
		return "", domain.Classify(domain.ClassUploadTransient, fmt.Errorf("transfer: server error %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return "", domain.Classify(domain.ClassUploadFailedTerm, fmt.Errorf("transfer: client error %d", resp.StatusCode))
	}

	if len(body) == 0 {
		return "", nil
	}
	var env fileEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return "", nil // not the final response; fine for non-finalizing chunks
	}
	return env.File.URI, nil
}

type fileStatusResponse struct {
	State string `json:"state"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// WaitReady polls the Analysis Service until the uploaded file reaches
// state ACTIVE, fails terminally, or the computed timeout elapses.
func (a *Adapter) WaitReady(ctx context.Context, credSecret, name string, sizeBytes int64) error {
	maxWait := maxWaitFor(sizeBytes)
	deadline := time.Now().Add(maxWait)

	for {
		state, errMsg, err := a.pollStatus(ctx, credSecret, name)
		if err != nil {
			return err
		}
		switch state {
		case "ACTIVE":
			return nil
		case "FAILED":
			return domain.Classify(domain.ClassUploadFailedTerm, fmt.Errorf("file processing failed: %s", errMsg))
		}

		if time.Now().After(deadline) {
			return domain.Classify(domain.ClassUploadTimedOut, fmt.Errorf("wait-ready exceeded %s", maxWait))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(statusPollEvery):
		}
	}
}

func (a *Adapter) pollStatus(ctx context.Context, credSecret, name string) (state, errMsg string, err error) {
	url := fmt.Sprintf("%s/%s?key=%s", a.BaseURL, name, credSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", "", fmt.Errorf("build status request: %w", err)
	}

	resp, doErr := a.StatusClient.Do(req)
	if doErr != nil {
		return "", "", domain.Classify(domain.ClassUploadTransient, doErr)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return "", "", domain.Classify(domain.ClassUploadTransient, readErr)
	}

	var fs fileStatusResponse
	if jsonErr := json.Unmarshal(body, &fs); jsonErr != nil {
		return "", "", domain.Classify(domain.ClassUploadTransient, fmt.Errorf("decode status response: %w", jsonErr))
	}
	if fs.Error != nil {
		errMsg = fs.Error.Message
	}
	return fs.State, errMsg, nil
}

// maxWaitFor computes min(15 min, 45s + ceil(sizeMB/10) * 18s).
func maxWaitFor(sizeBytes int64) time.Duration {
	sizeMB := float64(sizeBytes) / (1024 * 1024)
	chunks := sizeMB / 10
	if chunks != float64(int64(chunks)) {
		chunks = float64(int64(chunks) + 1)
	}
	wait := 45*time.Second + time.Duration(chunks)*18*time.Second
	if wait > 15*time.Minute {
		return 15 * time.Minute
	}
	return wait
}

