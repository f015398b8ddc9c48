// Package config loads the static definitions that feed AgentRegistry and
// LLMPool (spec §4.10, ambient): agent roster, LLM capability bindings and
// server settings, from a YAML document that may live on disk or in a
// remote KV store, with environment-variable interpolation and optional
// hot reload. Generalized from the teacher's pkg/config, which defines a
// much larger hector-specific schema (tools, RAG stores, databases, auth)
// this module has no use for; only the env/provider/hot-reload machinery
// is kept and adapted.
package config

import (
	"os"

	"github.com/kadirpekel/orchestrator/pkg/agentregistry"
	"github.com/kadirpekel/orchestrator/pkg/llmpool"
)

// AgentDef is the on-disk shape of one AgentRegistry entry.
type AgentDef struct {
	ID                  string   `yaml:"id" mapstructure:"id"`
	Name                string   `yaml:"name" mapstructure:"name"`
	Role                string   `yaml:"role" mapstructure:"role"`
	Goal                string   `yaml:"goal" mapstructure:"goal"`
	Backstory           string   `yaml:"backstory" mapstructure:"backstory"`
	Keywords            []string `yaml:"keywords" mapstructure:"keywords"`
	Domain              string   `yaml:"domain" mapstructure:"domain"`
	PreferredTier       string   `yaml:"preferred_tier" mapstructure:"preferred_tier"`
	Tools               []string `yaml:"tools" mapstructure:"tools"`
	SpecializationScore float64  `yaml:"specialization_score" mapstructure:"specialization_score"`
	CollaborationScore  float64  `yaml:"collaboration_score" mapstructure:"collaboration_score"`
	Active              bool     `yaml:"active" mapstructure:"active"`
}

// ToAgent converts the definition to an agentregistry.Agent. Performance
// counters start zeroed; they are never loaded from config.
func (d AgentDef) ToAgent() *agentregistry.Agent {
	return &agentregistry.Agent{
		ID:                  d.ID,
		Name:                d.Name,
		Role:                d.Role,
		Goal:                d.Goal,
		Backstory:           d.Backstory,
		Keywords:            d.Keywords,
		Domain:              d.Domain,
		PreferredTier:       llmpool.Tier(d.PreferredTier),
		Tools:               d.Tools,
		SpecializationScore: d.SpecializationScore,
		CollaborationScore:  d.CollaborationScore,
		IsActive:            d.Active,
	}
}

// LLMCapabilityDef is the on-disk shape of one LLMPool capability binding.
// Capabilities with an Endpoint are wired to llmpool.NewHTTPProvider; those
// without one are expected to be satisfied by a capability plugin of kind
// capplugin.KindLLMProvider registered under the same Name instead.
type LLMCapabilityDef struct {
	Name            string  `yaml:"name" mapstructure:"name"`
	Tier            string  `yaml:"tier" mapstructure:"tier"`
	ProviderModelID string  `yaml:"provider_model_id" mapstructure:"provider_model_id"`
	Endpoint        string  `yaml:"endpoint" mapstructure:"endpoint"`
	Temperature     float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens       int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	CostPerToken    float64 `yaml:"cost_per_token" mapstructure:"cost_per_token"`
	CeilingSeconds  float64 `yaml:"ceiling_seconds" mapstructure:"ceiling_seconds"`
	APIKeyEnv       string  `yaml:"api_key_env" mapstructure:"api_key_env"`
}

// ToCapabilityConfig converts the definition to an llmpool.CapabilityConfig.
func (d LLMCapabilityDef) ToCapabilityConfig() llmpool.CapabilityConfig {
	return llmpool.CapabilityConfig{
		Tier:            llmpool.Tier(d.Tier),
		ProviderModelID: d.ProviderModelID,
		Temperature:     d.Temperature,
		MaxTokens:       d.MaxTokens,
		CostPerToken:    d.CostPerToken,
		CeilingSeconds:  d.CeilingSeconds,
	}
}

// APIKey resolves the capability's provider API key from its configured
// environment variable, matching the teacher's GetProviderAPIKey
// lookup-by-env-var convention in env.go.
func (d LLMCapabilityDef) APIKey() string {
	if d.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(d.APIKeyEnv)
}

// CapabilityPluginDef describes an out-of-process capability (spec §4.9)
// discovered under one of Server.PluginDirs; CapabilityPlugins are loaded
// through pkg/capplugin, not through this config package directly.
type CapabilityPluginDef struct {
	Name     string            `yaml:"name" mapstructure:"name"`
	Enabled  bool              `yaml:"enabled" mapstructure:"enabled"`
	Settings map[string]string `yaml:"settings" mapstructure:"settings"`
}

// ServerDef holds the settings that aren't per-agent or per-capability.
type ServerDef struct {
	ListenAddr     string   `yaml:"listen_addr" mapstructure:"listen_addr"`
	PluginDirs     []string `yaml:"plugin_dirs" mapstructure:"plugin_dirs"`
	VectorStoreDir string   `yaml:"vector_store_dir" mapstructure:"vector_store_dir"`
}

// Config is the fully-decoded document a Loader produces.
type Config struct {
	Server          ServerDef             `yaml:"server" mapstructure:"server"`
	Agents          []AgentDef            `yaml:"agents" mapstructure:"agents"`
	LLMCapabilities []LLMCapabilityDef    `yaml:"llm_capabilities" mapstructure:"llm_capabilities"`
	Plugins         []CapabilityPluginDef `yaml:"plugins" mapstructure:"plugins"`
}
