package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gomind-ai/orchestrator-core/core"
)

func TestSnapshotCatalog(t *testing.T) {
	reg := core.NewAgentRegistry()
	reg.Add(core.NewMockAgent("writer", "writes prose", "ok"))

	catalog := SnapshotCatalog(reg)
	assert.False(t, catalog.Empty())
	assert.Equal(t, "writer", catalog.Entries[0].Name)
	assert.True(t, catalog.Entries[0].Available)
}

func TestEmptyCatalog(t *testing.T) {
	assert.True(t, AgentCatalog{}.Empty())
}
