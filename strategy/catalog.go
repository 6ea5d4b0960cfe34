package strategy

import "github.com/gomind-ai/orchestrator-core/core"

// CatalogEntry snapshots one registered agent's assignability at
// prompt-build time: {name, expertise, available}.
type CatalogEntry struct {
	Name      string `json:"name"`
	Expertise string `json:"expertise"`
	Available bool   `json:"available"`
}

// AgentCatalog is the list of registered agents and their expertise strings
// the strategy-generation prompt embeds (§4.2). It is a read snapshot, not a
// live view: the registry may change between snapshot and use.
type AgentCatalog struct {
	Entries []CatalogEntry
}

// SnapshotCatalog captures the current registry state.
func SnapshotCatalog(registry *core.AgentRegistry) AgentCatalog {
	names := registry.Names()
	entries := make([]CatalogEntry, 0, len(names))
	for _, name := range names {
		agent, ok := registry.Get(name)
		if !ok {
			continue
		}
		entries = append(entries, CatalogEntry{
			Name:      agent.Name(),
			Expertise: agent.Expertise(),
			Available: agent.IsAvailable(),
		})
	}
	return AgentCatalog{Entries: entries}
}

// Empty reports whether the catalog has no entries — generate_strategy fails
// with StrategyGenerationFailed when this is true (§4.2).
func (c AgentCatalog) Empty() bool { return len(c.Entries) == 0 }
