package config

import (
	"os"
	"testing"
)

func withEnv(t *testing.T, kv map[string]string) {
	t.Helper()
	for k, v := range kv {
		old, had := os.LookupEnv(k)
		os.Setenv(k, v)
		t.Cleanup(func() {
			if had {
				os.Setenv(k, old)
			} else {
				os.Unsetenv(k)
			}
		})
	}
}

func TestNewConfigAppliesDefaults(t *testing.T) {
	withEnv(t, map[string]string{
		"CREDENTIALS": "cred-a,cred-b",
		"QUEUE_URL":   "redis://localhost:6379/0",
	})
	for _, k := range []string{"MAX_QUEUE_SIZE", "MAX_CONCURRENT_CHUNKS", "PER_CRED_CAP", "CHUNK_SIZE_MINUTES"} {
		os.Unsetenv(k)
	}

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}
	if cfg.MaxQueueSize != DefaultMaxQueueSize {
		t.Errorf("MaxQueueSize = %d, want default %d", cfg.MaxQueueSize, DefaultMaxQueueSize)
	}
	if len(cfg.Credentials) != 2 {
		t.Errorf("Credentials = %v, want 2 entries", cfg.Credentials)
	}
}

func TestNewConfigRejectsMissingCredentials(t *testing.T) {
	withEnv(t, map[string]string{"QUEUE_URL": "redis://localhost:6379/0"})
	os.Unsetenv("CREDENTIALS")

	if _, err := NewConfig(); err == nil {
		t.Fatal("NewConfig() with no CREDENTIALS should fail validation")
	}
}

func TestNewConfigRejectsMissingQueueURL(t *testing.T) {
	withEnv(t, map[string]string{"CREDENTIALS": "cred-a"})
	os.Unsetenv("QUEUE_URL")

	if _, err := NewConfig(); err == nil {
		t.Fatal("NewConfig() with no QUEUE_URL should fail validation")
	}
}

func TestValidateRejectsZeroValues(t *testing.T) {
	cfg := &Config{
		MaxQueueSize:        0,
		MaxConcurrentChunks: 1,
		PerCredCap:          1,
		ChunkSizeMinutes:    1,
		LeaseTimeoutSeconds: 1,
		Credentials:         []string{"a"},
		QueueURL:            "redis://localhost:6379/0",
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("Validate() with MaxQueueSize=0 should fail")
	}
}

func TestMaxConcurrency(t *testing.T) {
	cfg := &Config{Credentials: []string{"a", "b", "c"}, PerCredCap: 4}
	if got := cfg.MaxConcurrency(); got != 12 {
		t.Errorf("MaxConcurrency() = %d, want 12", got)
	}
}
