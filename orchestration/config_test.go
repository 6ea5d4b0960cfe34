package orchestration

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultConfigFallsBackWhenUnset(t *testing.T) {
	os.Unsetenv("ORCHESTRATOR_MAX_CONCURRENCY")
	os.Unsetenv("ORCHESTRATOR_STEP_TIMEOUT")
	c := DefaultConfig()
	assert.Equal(t, 8, c.MaxConcurrency)
	assert.Equal(t, 60*time.Second, c.StepTimeout)
}

func TestDefaultConfigReadsEnv(t *testing.T) {
	os.Setenv("ORCHESTRATOR_MAX_CONCURRENCY", "16")
	os.Setenv("ORCHESTRATOR_STEP_TIMEOUT", "2m")
	os.Setenv("ORCHESTRATOR_MAX_REDESIGN_ATTEMPTS", "2")
	defer os.Unsetenv("ORCHESTRATOR_MAX_CONCURRENCY")
	defer os.Unsetenv("ORCHESTRATOR_STEP_TIMEOUT")
	defer os.Unsetenv("ORCHESTRATOR_MAX_REDESIGN_ATTEMPTS")

	c := DefaultConfig()
	assert.Equal(t, 16, c.MaxConcurrency)
	assert.Equal(t, 2*time.Minute, c.StepTimeout)
	assert.Equal(t, 2, c.MaxRedesignAttempts)
}

func TestDefaultConfigRedesignAttemptsDefaultUnbounded(t *testing.T) {
	os.Unsetenv("ORCHESTRATOR_MAX_REDESIGN_ATTEMPTS")
	c := DefaultConfig()
	assert.Equal(t, 0, c.MaxRedesignAttempts)
}

func TestDefaultConfigIgnoresUnparsableValues(t *testing.T) {
	os.Setenv("ORCHESTRATOR_MAX_CONCURRENCY", "not-a-number")
	defer os.Unsetenv("ORCHESTRATOR_MAX_CONCURRENCY")

	c := DefaultConfig()
	assert.Equal(t, 8, c.MaxConcurrency)
}

func TestDefaultConfigFullRegenerationsDefaultsToTwo(t *testing.T) {
	os.Unsetenv("ORCHESTRATOR_MAX_FULL_REGENERATIONS")
	c := DefaultConfig()
	assert.Equal(t, 2, c.MaxFullRegenerations)
}

func TestDefaultConfigReadsFullRegenerationsFromEnv(t *testing.T) {
	os.Setenv("ORCHESTRATOR_MAX_FULL_REGENERATIONS", "5")
	defer os.Unsetenv("ORCHESTRATOR_MAX_FULL_REGENERATIONS")

	c := DefaultConfig()
	assert.Equal(t, 5, c.MaxFullRegenerations)
}
