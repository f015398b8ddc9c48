// Package agentregistry implements the AgentRegistry component (spec §4.5):
// CRUD and fast lookup over Agent definitions by id, name, keyword, or
// domain, backed by a lazily-refreshed cache over a pluggable config source.
package agentregistry

import (
	"github.com/kadirpekel/orchestrator/pkg/clampf"
	"github.com/kadirpekel/orchestrator/pkg/llmpool"
)

// PerformanceSummary is the embedded rolling-average block an Agent carries
// (spec §3 "embedded performance summary (rolling averages)"). No component
// in this module writes it: it keeps whatever value the caller stored.
type PerformanceSummary struct {
	InteractionCount int64
	AvgRating        float64
	AvgResponseTime  float64 // seconds
}

// Agent is the stable identity + routing + scoring record the spec
// describes in §3.
type Agent struct {
	ID       string
	Name     string // unique among active agents
	Role     string
	Goal     string
	Backstory string

	Keywords []string
	Domain   string

	PreferredTier llmpool.Tier
	Tools         []string

	// SpecializationScore and CollaborationScore are always clamped to
	// [0,1]. Per spec §9's open-question resolution, SpecializationScore
	// is treated as slowly-varying configuration updated only by learning
	// insights, never per-interaction.
	SpecializationScore float64
	CollaborationScore  float64

	IsActive bool

	Performance PerformanceSummary
}

// clampScores enforces the [0,1] invariant on both score fields.
func (a *Agent) clampScores() {
	a.SpecializationScore = clampf.Unit(a.SpecializationScore)
	a.CollaborationScore = clampf.Unit(a.CollaborationScore)
}

// Clone returns a deep-enough copy safe for callers to mutate without
// affecting the registry's internal state.
func (a *Agent) Clone() *Agent {
	cp := *a
	cp.Keywords = append([]string(nil), a.Keywords...)
	cp.Tools = append([]string(nil), a.Tools...)
	return &cp
}
