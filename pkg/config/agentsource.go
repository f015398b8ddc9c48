package config

import (
	"sync"

	"github.com/kadirpekel/orchestrator/pkg/agentregistry"
)

// AgentSource implements agentregistry.Source over a Loader's most recently
// decoded Config, so AgentRegistry's own TTL-driven refresh re-reads
// whatever WatchAndReload last produced without either component knowing
// about the other's lifecycle.
type AgentSource struct {
	mu  sync.RWMutex
	cfg *Config
}

// NewAgentSource builds an AgentSource seeded with an already-loaded cfg.
func NewAgentSource(cfg *Config) *AgentSource {
	return &AgentSource{cfg: cfg}
}

// Update replaces the definitions AgentSource serves; call this from a
// Loader.WatchAndReload callback to keep AgentRegistry's view current.
func (s *AgentSource) Update(cfg *Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// LoadAgents implements agentregistry.Source.
func (s *AgentSource) LoadAgents() ([]*agentregistry.Agent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agents := make([]*agentregistry.Agent, 0, len(s.cfg.Agents))
	for _, def := range s.cfg.Agents {
		agents = append(agents, def.ToAgent())
	}
	return agents, nil
}
