package credpool

import (
	"context"
	"testing"
	"time"

	"github.com/five82/coreorc/internal/domain"
)

func TestAcquireSelectsLeastLoaded(t *testing.T) {
	p := New([]string{"a", "b"}, 2, 0)

	lease1, err := p.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Acquire 1: %v", err)
	}
	if lease1.Credential.ID != "a" {
		t.Fatalf("first acquire = %q, want %q (first in fairness order)", lease1.Credential.ID, "a")
	}

	lease2, err := p.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Acquire 2: %v", err)
	}
	if lease2.Credential.ID != "b" {
		t.Errorf("second acquire = %q, want %q (least-loaded)", lease2.Credential.ID, "b")
	}
}

func TestAcquireTimesOutWhenExhausted(t *testing.T) {
	p := New([]string{"a"}, 1, 0)

	lease, err := p.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Acquire 1: %v", err)
	}
	defer p.Release(lease, false, false)

	_, err = p.Acquire(context.Background(), 50*time.Millisecond)
	if err == nil {
		t.Fatal("Acquire with no capacity left should have timed out")
	}
	if domain.ClassOf(err) != domain.ClassCredentialExhausted {
		t.Errorf("ClassOf(err) = %q, want %q", domain.ClassOf(err), domain.ClassCredentialExhausted)
	}
}

func TestReleaseRateLimitedStartsCooldown(t *testing.T) {
	p := New([]string{"a"}, 1, 1000)

	lease, err := p.Acquire(context.Background(), time.Second)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	p.Release(lease, true, true)

	_, err = p.Acquire(context.Background(), 50*time.Millisecond)
	if err == nil {
		t.Fatal("Acquire should fail while the only credential is cooling down")
	}
}

func TestRunWithAllCollectsResultsByIndex(t *testing.T) {
	p := New([]string{"a", "b"}, 1, 0)

	tasks := []Task[int]{
		{Index: 0, Fn: func(ctx context.Context, cred *domain.Credential) (int, error) { return 10, nil }},
		{Index: 1, Fn: func(ctx context.Context, cred *domain.Credential) (int, error) { return 20, nil }},
		{Index: 2, Fn: func(ctx context.Context, cred *domain.Credential) (int, error) { return 30, nil }},
	}

	results := RunWithAll(context.Background(), p, tasks, p.MaxConcurrency())
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for i, want := range []int{10, 20, 30} {
		if results[i].Err != nil {
			t.Errorf("results[%d].Err = %v, want nil", i, results[i].Err)
		}
		if results[i].Value != want {
			t.Errorf("results[%d].Value = %d, want %d", i, results[i].Value, want)
		}
	}
}

func TestCredentials(t *testing.T) {
	p := New([]string{"a", "b", "c"}, 1, 0)
	creds := p.Credentials()
	if len(creds) != 3 {
		t.Fatalf("len(Credentials()) = %d, want 3", len(creds))
	}
	for i, id := range []string{"a", "b", "c"} {
		if creds[i].ID != id {
			t.Errorf("Credentials()[%d].ID = %q, want %q", i, creds[i].ID, id)
		}
	}
}
