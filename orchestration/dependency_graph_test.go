package orchestration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDependencyGraphZeroDependencySteps(t *testing.T) {
	g := NewDependencyGraph([]Step{
		{StepID: "a"},
		{StepID: "b", Dependencies: []string{"a"}},
	})
	assert.ElementsMatch(t, []string{"a"}, g.GetZeroDependencySteps())
}

func TestDependencyGraphValidateDetectsCycle(t *testing.T) {
	g := NewDependencyGraph([]Step{
		{StepID: "a", Dependencies: []string{"b"}},
		{StepID: "b", Dependencies: []string{"a"}},
	})
	require.Error(t, g.Validate())
}

func TestDependencyGraphValidateDetectsUnknownDependency(t *testing.T) {
	g := NewDependencyGraph([]Step{
		{StepID: "a", Dependencies: []string{"missing"}},
	})
	require.Error(t, g.Validate())
}

func TestDependencyGraphTransitiveDependents(t *testing.T) {
	g := NewDependencyGraph([]Step{
		{StepID: "a"},
		{StepID: "b", Dependencies: []string{"a"}},
		{StepID: "c", Dependencies: []string{"b"}},
		{StepID: "d"},
	})
	assert.ElementsMatch(t, []string{"b", "c"}, g.TransitiveDependents("a"))
	assert.Empty(t, g.TransitiveDependents("d"))
}

func TestDependencyGraphGetDependents(t *testing.T) {
	g := NewDependencyGraph([]Step{
		{StepID: "a"},
		{StepID: "b", Dependencies: []string{"a"}},
		{StepID: "c", Dependencies: []string{"a"}},
	})
	assert.ElementsMatch(t, []string{"b", "c"}, g.GetDependents("a"))
}
