// Package coreorc provides the orchestration core for turning long-form
// video recordings into structured analyses: a bounded job queue, a
// chunked processing pipeline that works around the Analysis Service's
// context window, a load-balanced credential pool, and a streaming
// resumable upload layer.
//
// Basic usage:
//
//	core, err := coreorc.New(
//	    coreorc.WithCredentials("key-a", "key-b"),
//	    coreorc.WithQueueURL("redis://localhost:6379/0"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer core.Close()
//
//	jobID, position, err := core.Submit(ctx, coreorc.SubmitRequest{
//	    SourcePath:  "lecture.mp4",
//	    DisplayName: "lecture.mp4",
//	    MimeType:    "video/mp4",
//	    ModelID:     "gemini-2.0-flash",
//	})
package coreorc

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/five82/coreorc/internal/config"
	"github.com/five82/coreorc/internal/domain"
	"github.com/five82/coreorc/internal/queue"
	"github.com/five82/coreorc/internal/worker"
)

// Core is the main entry point: a submission API backed by a durable
// queue, plus the ability to run worker loops against that queue.
type Core struct {
	config *config.Config
	queue  *queue.Queue
}

// Option configures the core before it connects to its durable queue.
type Option func(*config.Config)

// New builds a Core, applying opts over the process environment's
// defaults, and connects to the configured durable queue store.
func New(opts ...Option) (*Core, error) {
	cfg, err := config.NewConfig()
	if err != nil {
		return nil, err
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	q, err := queue.New(queue.Options{
		URL:                 cfg.QueueURL,
		MaxWaiting:          cfg.MaxQueueSize,
		LeaseTimeoutSeconds: cfg.LeaseTimeoutSeconds,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to queue: %w", err)
	}

	return &Core{config: cfg, queue: q}, nil
}

// Close releases the core's durable queue connection.
func (c *Core) Close() error {
	return c.queue.Close()
}

// WithCredentials sets the Analysis Service credential pool.
func WithCredentials(credentials ...string) Option {
	return func(c *config.Config) {
		c.Credentials = credentials
	}
}

// WithQueueURL sets the durable queue store's connection URL.
func WithQueueURL(url string) Option {
	return func(c *config.Config) {
		c.QueueURL = url
	}
}

// WithMaxQueueSize sets the bounded waiting-list capacity.
func WithMaxQueueSize(n int) Option {
	return func(c *config.Config) {
		c.MaxQueueSize = n
	}
}

// WithMaxConcurrentChunks sets the chunk fan-out cap.
func WithMaxConcurrentChunks(n int) Option {
	return func(c *config.Config) {
		c.MaxConcurrentChunks = n
	}
}

// WithPerCredentialCap sets the per-credential in-flight request cap.
func WithPerCredentialCap(n int) Option {
	return func(c *config.Config) {
		c.PerCredCap = n
	}
}

// WithChunkSizeMinutes sets the target chunk length.
func WithChunkSizeMinutes(n int) Option {
	return func(c *config.Config) {
		c.ChunkSizeMinutes = n
	}
}

// WithVerbose enables verbose reporter output.
func WithVerbose() Option {
	return func(c *config.Config) {
		c.Verbose = true
	}
}

// SubmitRequest describes a job to enqueue.
type SubmitRequest struct {
	SourcePath     string
	DisplayName    string
	MimeType       string
	SizeBytes      int64
	ModelID        string
	SubmitterID    string
	SubmitterLabel string
	ChatRef        string
	ReplyRef       string
}

// Submit enqueues a job, returning its ID and its position in the waiting
// list. Returns an error classified as domain.ClassInputInvalid if
// req.SizeBytes exceeds config.MaxJobSizeBytes, or domain.ErrQueueFull if
// the queue is at capacity.
func (c *Core) Submit(ctx context.Context, req SubmitRequest) (jobID string, position int, err error) {
	if req.SizeBytes > config.MaxJobSizeBytes {
		return "", 0, domain.Classify(domain.ClassInputInvalid, fmt.Errorf("size %d exceeds max job size %d", req.SizeBytes, config.MaxJobSizeBytes))
	}

	job := domain.Job{
		ID:             uuid.NewString(),
		ChatRef:        req.ChatRef,
		ReplyRef:       req.ReplyRef,
		SourcePath:     req.SourcePath,
		DisplayName:    req.DisplayName,
		MimeType:       req.MimeType,
		SizeBytes:      req.SizeBytes,
		ModelID:        req.ModelID,
		SubmitterID:    req.SubmitterID,
		SubmitterLabel: req.SubmitterLabel,
	}
	return c.queue.Enqueue(ctx, job)
}

// Status reports a submitter's active and waiting jobs.
func (c *Core) Status(ctx context.Context, submitterID string) (*queue.UserStatus, error) {
	return c.queue.Status(ctx, submitterID)
}

// QueueStats reports queue-wide counts by state.
func (c *Core) QueueStats(ctx context.Context) (*queue.Stats, error) {
	return c.queue.QueueStats(ctx)
}

// RunWorker runs one worker loop against the core's queue until ctx is
// cancelled; a failed lease is reported as a warning and leasing is tried
// again. onEvent, if non-nil, receives
// a typed Event for every progress/result/error transition. Call RunWorker
// from multiple goroutines (or processes sharing the same QueueURL) to
// scale out workers.
func (c *Core) RunWorker(ctx context.Context, rep Reporter, onEvent EventHandler) error {
	w := worker.New(c.config, c.queue, rep, onEvent)
	return w.Run(ctx)
}
