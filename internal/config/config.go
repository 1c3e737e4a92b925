// Package config provides configuration types and defaults for coreorc.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/five82/coreorc/internal/logging"
)

// Default constants
const (
	// DefaultMaxQueueSize is the maximum number of waiting jobs.
	DefaultMaxQueueSize int = 10

	// DefaultMaxConcurrentChunks is the default chunk fan-out cap.
	DefaultMaxConcurrentChunks int = 12

	// DefaultPerCredCap is the default per-credential in-flight cap.
	DefaultPerCredCap int = 3

	// DefaultRateLimitCooldownMS is the default rate-limit cooldown, in milliseconds.
	DefaultRateLimitCooldownMS int = 60000

	// DefaultChunkSizeMinutes is the default chunk target length.
	DefaultChunkSizeMinutes int = 20

	// DefaultChunkOverlapSeconds is the default read-only overlap window.
	DefaultChunkOverlapSeconds int = 5

	// DefaultAutoChunkThresholdMB is an ingress-only hint; the core never reads it directly.
	DefaultAutoChunkThresholdMB int = 500

	// DefaultLeaseTimeoutSeconds is how long a worker may hold an active lease
	// before the stale-lease sweeper reclaims it.
	DefaultLeaseTimeoutSeconds int = 900

	// MaxJobSizeBytes is the hard per-job size ceiling.
	MaxJobSizeBytes int64 = 1 << 30 // 1 GB

	// UploadChunkThresholdBytes is the size above which uploads use chunked transfer.
	UploadChunkThresholdBytes int64 = 50 << 20 // 50 MB

	// UploadChunkSizeBytes is the size of each chunked-transfer segment.
	UploadChunkSizeBytes int64 = 64 << 20 // 64 MB
)

// Config holds all configuration for the orchestration core.
type Config struct {
	// Queue and concurrency
	MaxQueueSize        int
	MaxConcurrentChunks int
	PerCredCap          int
	LeaseTimeoutSeconds int

	// Rate limiting
	RateLimitCooldownMS int

	// Chunk planning
	ChunkSizeMinutes     int
	ChunkOverlapSeconds  int
	AutoChunkThresholdMB int

	// Credentials for the Analysis Service
	Credentials []string

	// Paths
	TempVideoDir string
	LogDir       string

	// Durable queue store
	QueueURL string

	// Debug options
	Verbose bool
}

// NewConfig builds a Config from the process environment, applying defaults
// for any variable that is unset.
func NewConfig() (*Config, error) {
	cfg := &Config{
		MaxQueueSize:         envInt("MAX_QUEUE_SIZE", DefaultMaxQueueSize),
		MaxConcurrentChunks:  envInt("MAX_CONCURRENT_CHUNKS", DefaultMaxConcurrentChunks),
		PerCredCap:           envInt("PER_CRED_CAP", DefaultPerCredCap),
		LeaseTimeoutSeconds:  envInt("LEASE_TIMEOUT_SECONDS", DefaultLeaseTimeoutSeconds),
		RateLimitCooldownMS:  envInt("RATE_LIMIT_COOLDOWN_MS", DefaultRateLimitCooldownMS),
		ChunkSizeMinutes:     envInt("CHUNK_SIZE_MINUTES", DefaultChunkSizeMinutes),
		ChunkOverlapSeconds:  envInt("CHUNK_OVERLAP_SECONDS", DefaultChunkOverlapSeconds),
		AutoChunkThresholdMB: envInt("AUTO_CHUNK_THRESHOLD_MB", DefaultAutoChunkThresholdMB),
		Credentials:          envList("CREDENTIALS"),
		TempVideoDir:         os.Getenv("TEMP_VIDEO_DIR"),
		LogDir:               os.Getenv("LOG_DIR"),
		QueueURL:             os.Getenv("QUEUE_URL"),
		Verbose:              envBool("VERBOSE", false),
	}

	if cfg.TempVideoDir == "" {
		cfg.TempVideoDir = os.TempDir()
	}
	if cfg.LogDir == "" {
		cfg.LogDir = logging.DefaultLogDir()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.MaxQueueSize < 1 {
		return fmt.Errorf("max_queue_size must be at least 1, got %d", c.MaxQueueSize)
	}
	if c.MaxConcurrentChunks < 1 {
		return fmt.Errorf("max_concurrent_chunks must be at least 1, got %d", c.MaxConcurrentChunks)
	}
	if c.PerCredCap < 1 {
		return fmt.Errorf("per_cred_cap must be at least 1, got %d", c.PerCredCap)
	}
	if c.RateLimitCooldownMS < 0 {
		return fmt.Errorf("rate_limit_cooldown_ms must be non-negative, got %d", c.RateLimitCooldownMS)
	}
	if c.ChunkSizeMinutes < 1 {
		return fmt.Errorf("chunk_size_minutes must be at least 1, got %d", c.ChunkSizeMinutes)
	}
	if c.ChunkOverlapSeconds < 0 {
		return fmt.Errorf("chunk_overlap_seconds must be non-negative, got %d", c.ChunkOverlapSeconds)
	}
	if c.LeaseTimeoutSeconds < 1 {
		return fmt.Errorf("lease_timeout_seconds must be at least 1, got %d", c.LeaseTimeoutSeconds)
	}
	if len(c.Credentials) == 0 {
		return fmt.Errorf("at least one credential must be configured via CREDENTIALS")
	}
	if c.QueueURL == "" {
		return fmt.Errorf("QUEUE_URL must be set")
	}
	return nil
}

// MaxConcurrency returns the pool-wide concurrency ceiling implied by the
// configured credential count and per-credential cap.
func (c *Config) MaxConcurrency() int {
	return len(c.Credentials) * c.PerCredCap
}

func envInt(name string, def int) int {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envBool(name string, def bool) bool {
	v := os.Getenv(name)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envList(name string) []string {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
