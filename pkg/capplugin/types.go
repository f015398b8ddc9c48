// Package capplugin hosts the three capability kinds (LLM provider, vector
// searcher, scraper) that SPEC_FULL.md allows to run out-of-process, using
// hashicorp/go-plugin subprocess isolation over net/rpc. Grounded on the
// PluginRegistry/PluginDiscovery shape of the teacher's pkg/plugins, adapted
// from its gRPC+protobuf transport (which targets hector-specific Database/
// Embedder/DocumentParser services the pack never generated code for) to
// go-plugin's simpler net/rpc plugin kind, which needs no generated stubs
// for the new LLM/VectorSearcher/Scraper wire shapes.
package capplugin

import (
	"context"
	"fmt"

	"github.com/kadirpekel/orchestrator/pkg/orcherr"
)

// Kind names one of the three out-of-process capabilities a plugin may
// provide (spec §4.9).
type Kind string

const (
	KindLLMProvider    Kind = "llm_provider"
	KindVectorSearcher Kind = "vector_searcher"
	KindScraper        Kind = "scraper"
)

// Status is a plugin's lifecycle state.
type Status string

const (
	StatusUnloaded Status = "unloaded"
	StatusLoading  Status = "loading"
	StatusReady    Status = "ready"
	StatusCrashed  Status = "crashed"
	StatusShutdown Status = "shutdown"
)

// Manifest describes a plugin binary, read from its sidecar
// "<path>.capplugin.yaml" file.
type Manifest struct {
	Name          string            `yaml:"name"`
	Version       string            `yaml:"version"`
	Kind          Kind              `yaml:"kind"`
	Author        string            `yaml:"author,omitempty"`
	Description   string            `yaml:"description,omitempty"`
	RequiredConfig []string         `yaml:"required_config,omitempty"`
	Defaults      map[string]string `yaml:"defaults,omitempty"`
}

// Config is the loader input for one plugin instance.
type Config struct {
	Name     string
	Path     string
	Enabled  bool
	Settings map[string]string
	Manifest *Manifest
}

// Plugin is the lifecycle surface every hosted capability exposes,
// regardless of Kind. The capability itself (llmpool.Provider,
// knowledge.VectorSearcher or knowledge.Scraper) is obtained from the
// adapter returned by Loader.Load via a type assertion.
type Plugin interface {
	Initialize(ctx context.Context, settings map[string]string) error
	Shutdown(ctx context.Context) error
	Health(ctx context.Context) error
	Manifest() *Manifest
	Status() Status
}

// Loader launches a plugin binary and dispenses a Plugin for it.
type Loader interface {
	Load(ctx context.Context, cfg *Config) (Plugin, error)
	Unload(ctx context.Context, p Plugin) error
}

func errPluginNotFound(name string) error {
	return orcherr.New(orcherr.NotFound, fmt.Sprintf("plugin %q not registered", name))
}
