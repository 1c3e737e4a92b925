package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyWrapsAndUnwraps(t *testing.T) {
	base := errors.New("boom")
	ce := Classify(ClassUploadTransient, base)

	if !errors.Is(ce, base) {
		t.Error("errors.Is(ce, base) = false, want true: ClassifiedError must unwrap")
	}
	if got := ClassOf(ce); got != ClassUploadTransient {
		t.Errorf("ClassOf(ce) = %q, want %q", got, ClassUploadTransient)
	}
	if got := ClassOf(fmt.Errorf("wrapped: %w", ce)); got != ClassUploadTransient {
		t.Errorf("ClassOf should see through fmt.Errorf wrapping, got %q", got)
	}
}

func TestClassOfUnclassifiedReturnsEmpty(t *testing.T) {
	if got := ClassOf(errors.New("plain")); got != "" {
		t.Errorf("ClassOf(plain error) = %q, want empty", got)
	}
}

func TestIsRetriableMatchesTaxonomy(t *testing.T) {
	cases := []struct {
		class     ErrorClass
		retriable bool
	}{
		{ClassCredentialExhausted, true},
		{ClassUploadTransient, true},
		{ClassWorkerCrash, true},
		{ClassInputInvalid, false},
		{ClassUploadFailedTerm, false},
		{ClassAnalysisBadJSON, false},
	}
	for _, c := range cases {
		err := Classify(c.class, errors.New("x"))
		if got := IsRetriable(err); got != c.retriable {
			t.Errorf("IsRetriable(%s) = %v, want %v", c.class, got, c.retriable)
		}
	}
}
