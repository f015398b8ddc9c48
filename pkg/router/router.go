// Package router implements the AgentRouter component (spec §4.6): given a
// query, return an ordered list of agent handles with confidences. The
// router is a thin delegator over AgentRegistry, following the same
// registry-delegation idiom as pkg/agent.AgentRouter in the teacher repo;
// the keyword-category scoring algorithm itself is new, transcribed from
// the spec.
package router

import (
	"sort"
	"strings"

	"github.com/kadirpekel/orchestrator/pkg/agentregistry"
	"github.com/kadirpekel/orchestrator/pkg/orcherr"
)

// defaultTopK is spec §4.6 step 7's default truncation.
const defaultTopK = 3

// defaultFallbackAgent is spec §4.6 step 5's configured default.
const defaultFallbackAgent = "technical_support"

// defaultFallbackConfidence is the confidence assigned to the fallback agent.
const defaultFallbackConfidence = 0.5

// scoreThreshold is spec §4.6 step 5's minimum score to be kept.
const scoreThreshold = 1.0

// confidenceDivisor normalizes score into confidence (spec §4.6 step 4).
const confidenceDivisor = 3.0

// Registry is the subset of agentregistry.Registry the router depends on.
type Registry interface {
	List() ([]*agentregistry.Agent, error)
	ActiveCount() (int, error)
	Get(id string) (*agentregistry.Agent, error)
}

// Match is one routed agent with its confidence.
type Match struct {
	Agent      *agentregistry.Agent
	Confidence float64
}

// Router routes queries to agents by keyword-category overlap.
type Router struct {
	registry        Registry
	fallbackAgentID string
	orchestratorID  string
	topK            int
}

// Option configures a Router.
type Option func(*Router)

// WithFallbackAgent overrides the configured default agent id used when no
// candidate clears the score threshold.
func WithFallbackAgent(agentID string) Option {
	return func(r *Router) { r.fallbackAgentID = agentID }
}

// WithOrchestratorAgent configures the agent id always prepended to results
// (spec §4.6 step 6).
func WithOrchestratorAgent(agentID string) Option {
	return func(r *Router) { r.orchestratorID = agentID }
}

// WithTopK overrides the default truncation of 3.
func WithTopK(k int) Option {
	return func(r *Router) {
		if k > 0 {
			r.topK = k
		}
	}
}

// New creates a Router over registry.
func New(registry Registry, opts ...Option) *Router {
	r := &Router{registry: registry, topK: defaultTopK}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route scores every active agent against query and returns an ordered list
// of matches, top-K, with the orchestrator agent (if configured) always
// first.
func (r *Router) Route(query string) ([]Match, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, orcherr.New(orcherr.InvalidInput, "query cannot be empty")
	}

	active, err := r.registry.ActiveCount()
	if err != nil {
		return nil, err
	}
	if active == 0 {
		return nil, orcherr.New(orcherr.NoAgentsAvailable, "no active agents available for routing")
	}

	expanded := expandQuery(query)

	agents, err := r.registry.List()
	if err != nil {
		return nil, err
	}

	var matches []Match
	for _, a := range agents {
		score := scoreAgent(a, expanded)
		if score < scoreThreshold {
			continue
		}
		matches = append(matches, Match{
			Agent:      a,
			Confidence: minF(1.0, score/confidenceDivisor),
		})
	}

	if len(matches) == 0 {
		if fallback := r.fallbackAgent(agents); fallback != nil {
			matches = append(matches, Match{Agent: fallback, Confidence: defaultFallbackConfidence})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		// keyword collisions broken by higher specialization_score (spec §4.6 edge case)
		return matches[i].Agent.SpecializationScore > matches[j].Agent.SpecializationScore
	})

	if r.orchestratorID != "" {
		if orchestrator, err := r.registry.Get(r.orchestratorID); err == nil {
			matches = prependOrchestrator(matches, orchestrator)
		}
	}

	if len(matches) > r.topK {
		matches = matches[:r.topK]
	}

	return matches, nil
}

// fallbackAgent resolves the configured default agent (technical_support by
// default) among the active agent list.
func (r *Router) fallbackAgent(agents []*agentregistry.Agent) *agentregistry.Agent {
	name := r.fallbackAgentID
	if name == "" {
		name = defaultFallbackAgent
	}
	for _, a := range agents {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// prependOrchestrator ensures orchestrator leads the result set without
// duplicating it if already present.
func prependOrchestrator(matches []Match, orchestrator *agentregistry.Agent) []Match {
	filtered := matches[:0:0]
	for _, m := range matches {
		if m.Agent.ID != orchestrator.ID {
			filtered = append(filtered, m)
		}
	}
	return append([]Match{{Agent: orchestrator, Confidence: 1.0}}, filtered...)
}

// expandQuery normalizes query to lowercase tokens and expands each token
// against the keyword-category map (spec §4.6 steps 1-2), returning the
// weight at which each term is present in the expanded set: 1.0 for a
// literal query token (direct match), 0.5 for a category the query matched
// into (category match).
func expandQuery(query string) map[string]float64 {
	tokens := strings.Fields(strings.ToLower(query))

	expanded := make(map[string]float64)
	for _, tok := range tokens {
		expanded[tok] = 1.0
		_, categories := expandToCategories(tok)
		for _, cat := range categories {
			if expanded[cat] < 0.5 {
				expanded[cat] = 0.5
			}
			for _, term := range categoryMap[cat] {
				if expanded[term] < 0.5 {
					expanded[term] = 0.5
				}
			}
		}
	}
	return expanded
}

// scoreAgent sums, over the agent's own keyword list, the weight at which
// each keyword appears in the expanded token set (spec §4.6 step 3).
func scoreAgent(a *agentregistry.Agent, expanded map[string]float64) float64 {
	var score float64
	for _, kw := range a.Keywords {
		score += expanded[strings.ToLower(kw)]
	}
	return score
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
