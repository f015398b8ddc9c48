package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kadirpekel/orchestrator/pkg/agentregistry"
	"github.com/kadirpekel/orchestrator/pkg/capplugin"
	"github.com/kadirpekel/orchestrator/pkg/config"
	"github.com/kadirpekel/orchestrator/pkg/config/provider"
	"github.com/kadirpekel/orchestrator/pkg/convmemory"
	"github.com/kadirpekel/orchestrator/pkg/knowledge"
	"github.com/kadirpekel/orchestrator/pkg/llmpool"
	"github.com/kadirpekel/orchestrator/pkg/metrics"
	"github.com/kadirpekel/orchestrator/pkg/orchestrator"
	"github.com/kadirpekel/orchestrator/pkg/realtime"
	"github.com/kadirpekel/orchestrator/pkg/router"
)

// system bundles everything wire builds, so Serve can reload the agent
// roster without tearing down the whole process on a config change. The
// LLM pool's capability set is not reloaded.
type system struct {
	loader   *config.Loader
	agents   *config.AgentSource
	registry *agentregistry.Registry
	pool     *llmpool.Pool
	plugins  *capplugin.Registry
	coord    *orchestrator.Coordinator
}

// wire loads configPath once and constructs every component named in spec
// §4 over it. The caller owns the returned system's lifetime; call
// plugins.Shutdown(ctx) before exiting.
func wire(ctx context.Context, configPath string) (*system, error) {
	prov, err := provider.New(provider.ProviderConfig{Type: provider.TypeFile, Path: configPath})
	if err != nil {
		return nil, fmt.Errorf("open config provider: %w", err)
	}

	loader := config.New(prov)
	cfg, err := loader.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	agentSrc := config.NewAgentSource(cfg)
	registry := agentregistry.New(agentSrc)

	pluginRegistry := capplugin.NewRegistry(capplugin.NewRPCLoader(), func(name string, p capplugin.Plugin) {
		slog.Warn("capability plugin crashed", "plugin", name)
	})
	if err := loadPlugins(ctx, pluginRegistry, cfg); err != nil {
		return nil, fmt.Errorf("load capability plugins: %w", err)
	}

	pool := llmpool.New()
	if err := registerCapabilities(pool, pluginRegistry, cfg); err != nil {
		_ = pluginRegistry.Shutdown(ctx)
		return nil, fmt.Errorf("register llm capabilities: %w", err)
	}

	var vector knowledge.VectorSearcher
	for _, p := range pluginRegistry.ByKind(capplugin.KindVectorSearcher) {
		if a, ok := p.(interface {
			VectorSearcher() (knowledge.VectorSearcher, bool)
		}); ok {
			if v, ok := a.VectorSearcher(); ok {
				vector = v
				break
			}
		}
	}
	// No vector plugin configured: fall back to the embedded chromem-go
	// backend rather than leaving knowledge retrieval vector-less.
	if vector == nil {
		cs, err := knowledge.NewChromemSearcher(cfg.Server.VectorStoreDir)
		if err != nil {
			return nil, fmt.Errorf("open embedded vector store: %w", err)
		}
		vector = cs
	}
	var scraper knowledge.Scraper
	for _, p := range pluginRegistry.ByKind(capplugin.KindScraper) {
		if a, ok := p.(interface {
			Scraper() (knowledge.Scraper, bool)
		}); ok {
			if s, ok := a.Scraper(); ok {
				scraper = s
				break
			}
		}
	}
	retriever := knowledge.New(vector, scraper)

	memory := convmemory.New()
	metricsStore := metrics.New()
	tracker := realtime.New()
	rt := router.New(registry)

	coord := orchestrator.New(registry, rt, pool, retriever, memory, metricsStore, tracker)

	return &system{
		loader:   loader,
		agents:   agentSrc,
		registry: registry,
		pool:     pool,
		plugins:  pluginRegistry,
		coord:    coord,
	}, nil
}

// loadPlugins loads every enabled plugin in cfg.Plugins from the manifests
// discovered under cfg.Server.PluginDirs, matching plugin config entries to
// discovered manifests by binary name.
func loadPlugins(ctx context.Context, reg *capplugin.Registry, cfg *config.Config) error {
	if len(cfg.Plugins) == 0 {
		return nil
	}

	discovered, err := capplugin.Discover(cfg.Server.PluginDirs)
	if err != nil {
		return err
	}
	byName := make(map[string]capplugin.Discovered, len(discovered))
	for _, d := range discovered {
		byName[d.Manifest.Name] = d
	}

	for _, def := range cfg.Plugins {
		if !def.Enabled {
			continue
		}
		d, ok := byName[def.Name]
		if !ok {
			return fmt.Errorf("capability plugin %q not found under configured plugin_dirs", def.Name)
		}
		err := reg.Load(ctx, &capplugin.Config{
			Name:     def.Name,
			Path:     d.Path,
			Enabled:  true,
			Settings: def.Settings,
			Manifest: d.Manifest,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// registerCapabilities binds every configured LLM capability to the pool:
// capabilities with an Endpoint go through llmpool.NewHTTPProvider;
// capabilities without one must be served by a KindLLMProvider plugin
// registered under the same name.
func registerCapabilities(pool *llmpool.Pool, plugins *capplugin.Registry, cfg *config.Config) error {
	for _, def := range cfg.LLMCapabilities {
		capCfg := def.ToCapabilityConfig()

		var provider llmpool.Provider
		if def.Endpoint != "" {
			provider = llmpool.NewHTTPProvider(llmpool.HTTPProviderConfig{
				Endpoint: def.Endpoint,
				APIKey:   def.APIKey(),
				ModelID:  def.ProviderModelID,
			})
		} else if p, ok := plugins.Get(def.Name); ok {
			if a, ok := p.(interface {
				LLMProvider() (llmpool.Provider, bool)
			}); ok {
				provider, _ = a.LLMProvider()
			}
		}
		if provider == nil {
			return fmt.Errorf("llm capability %q has no endpoint and no matching plugin", def.Name)
		}

		if err := pool.RegisterCapability(def.Name, capCfg, provider); err != nil {
			return err
		}
	}
	return nil
}
