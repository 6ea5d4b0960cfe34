package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestAgentRegistryGetReportsMissingName(t *testing.T) {
	r := NewAgentRegistry()
	_, ok := r.Get("missing")
	if ok {
		t.Fatal("expected ok=false for an unregistered name")
	}
}

func TestAgentRegistryAddRejectsDuplicateName(t *testing.T) {
	r := NewAgentRegistry()
	a := NewMockAgent("writer", "", "hi")

	if err := r.Add(a); err != nil {
		t.Fatalf("first Add: unexpected error: %v", err)
	}

	err := r.Add(NewMockAgent("writer", "", "hi again"))
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("second Add: got %v, want ErrAlreadyRegistered", err)
	}
}

func TestErrAgentNotFoundWrappingSurvivesMultipleLayers(t *testing.T) {
	wrappedOnce := fmt.Errorf("step %q: %w", "step_1", ErrAgentNotFound)
	wrappedTwice := fmt.Errorf("run failed: %w", wrappedOnce)

	if !errors.Is(wrappedTwice, ErrAgentNotFound) {
		t.Error("errors.Is should see through multiple wrapping layers")
	}
}
