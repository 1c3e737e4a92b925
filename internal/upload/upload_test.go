package upload

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMaxWaitFor(t *testing.T) {
	cases := []struct {
		sizeBytes int64
		want      time.Duration
	}{
		{0, 45 * time.Second},
		{10 * 1024 * 1024, 45*time.Second + 18*time.Second},
		{11 * 1024 * 1024, 45*time.Second + 36*time.Second},
		{1 << 40, 15 * time.Minute},
	}
	for _, c := range cases {
		if got := maxWaitFor(c.sizeBytes); got != c.want {
			t.Errorf("maxWaitFor(%d) = %v, want %v", c.sizeBytes, got, c.want)
		}
	}
}

func TestInitiateReturnsUploadURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Goog-Upload-URL", "https://upload.example.com/session-1")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	a := NewAdapter(server.URL)
	url, err := a.initiate(context.Background(), "cred", 1024, "video/mp4", "clip.mp4")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if url != "https://upload.example.com/session-1" {
		t.Errorf("initiate() = %q, want the X-Goog-Upload-URL header value", url)
	}
}

func TestInitiateRetriesTransientFailureThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("X-Goog-Upload-URL", "https://upload.example.com/session-2")
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	a := NewAdapter(server.URL)
	url, err := a.initiate(context.Background(), "cred", 1024, "video/mp4", "clip.mp4")
	if err != nil {
		t.Fatalf("initiate: %v", err)
	}
	if url != "https://upload.example.com/session-2" {
		t.Errorf("initiate() = %q, want the session URL recovered after retries", url)
	}
	if calls != 3 {
		t.Errorf("server called %d times, want exactly 3 (2 failures + 1 success)", calls)
	}
}

func TestInitiateGivesUpAfterMaxTransientAttempts(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	a := NewAdapter(server.URL)
	if _, err := a.initiate(context.Background(), "cred", 1024, "video/mp4", "clip.mp4"); err == nil {
		t.Fatal("initiate() should fail once transient retries are exhausted")
	}
	if calls != maxUploadAttempts {
		t.Errorf("server called %d times, want exactly maxUploadAttempts=%d", calls, maxUploadAttempts)
	}
}

func TestInitiateMissingUploadURLIsTerminal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	a := NewAdapter(server.URL)
	if _, err := a.initiate(context.Background(), "cred", 1024, "video/mp4", "clip.mp4"); err == nil {
		t.Fatal("initiate() with no X-Goog-Upload-URL header should fail")
	}
}
