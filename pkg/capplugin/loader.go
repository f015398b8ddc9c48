package capplugin

import (
	"context"
	"fmt"
	"os/exec"

	hclog "github.com/hashicorp/go-hclog"
	hcplugin "github.com/hashicorp/go-plugin"

	"github.com/kadirpekel/orchestrator/pkg/capplugin/rpc"
	"github.com/kadirpekel/orchestrator/pkg/knowledge"
	"github.com/kadirpekel/orchestrator/pkg/llmpool"
)

// RPCLoader launches plugin binaries as hashicorp/go-plugin net/rpc
// subprocesses. It is the one Loader this module ships; adapted from the
// handshake/client-config shape of the teacher's grpc.GRPCLoader, trimmed
// to net/rpc transport (see rpc.Handshake).
type RPCLoader struct {
	logger hclog.Logger
}

// NewRPCLoader builds an RPCLoader with a plugin-scoped hclog logger, the
// convention the teacher's GRPCLoader also follows.
func NewRPCLoader() *RPCLoader {
	return &RPCLoader{
		logger: hclog.New(&hclog.LoggerOptions{
			Name:  "capplugin",
			Level: hclog.Warn,
		}),
	}
}

func (l *RPCLoader) Load(ctx context.Context, cfg *Config) (Plugin, error) {
	if cfg == nil || cfg.Manifest == nil {
		return nil, fmt.Errorf("plugin config and manifest are required")
	}

	cmd := exec.Command(cfg.Path)
	for k, v := range cfg.Settings {
		cmd.Env = append(cmd.Env, fmt.Sprintf("CAPPLUGIN_%s=%s", k, v))
	}

	client := hcplugin.NewClient(&hcplugin.ClientConfig{
		HandshakeConfig:  rpc.Handshake,
		Plugins:          pluginMapFor(cfg.Manifest.Kind),
		Cmd:              cmd,
		Logger:           l.logger,
		AllowedProtocols: []hcplugin.Protocol{hcplugin.ProtocolNetRPC},
	})

	rpcClient, err := client.Client()
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("dial plugin %q: %w", cfg.Name, err)
	}

	raw, err := rpcClient.Dispense(string(cfg.Manifest.Kind))
	if err != nil {
		client.Kill()
		return nil, fmt.Errorf("dispense plugin %q: %w", cfg.Name, err)
	}

	a := &adapter{manifest: cfg.Manifest, client: client, capability: raw, status: StatusLoading}
	return a, nil
}

func (l *RPCLoader) Unload(ctx context.Context, p Plugin) error {
	if a, ok := p.(*adapter); ok {
		a.client.Kill()
	}
	return nil
}

func pluginMapFor(kind Kind) map[string]hcplugin.Plugin {
	switch kind {
	case KindLLMProvider:
		return map[string]hcplugin.Plugin{string(KindLLMProvider): &rpc.LLMProviderPlugin{}}
	case KindVectorSearcher:
		return map[string]hcplugin.Plugin{string(KindVectorSearcher): &rpc.VectorSearcherPlugin{}}
	case KindScraper:
		return map[string]hcplugin.Plugin{string(KindScraper): &rpc.ScraperPlugin{}}
	default:
		return nil
	}
}

// adapter implements Plugin and exposes the dispensed net/rpc client as
// one of llmpool.Provider, knowledge.VectorSearcher or knowledge.Scraper
// via its accessor methods; callers type-switch on Manifest().Kind to
// know which accessor to use.
type adapter struct {
	manifest   *Manifest
	client     *hcplugin.Client
	capability interface{}
	status     Status
}

func (a *adapter) Initialize(ctx context.Context, settings map[string]string) error {
	// Configuration is passed as CAPPLUGIN_* environment variables at
	// process launch (see RPCLoader.Load); by the time Dispense succeeds
	// the subprocess has already initialized its capability.
	a.status = StatusReady
	return nil
}

func (a *adapter) Shutdown(ctx context.Context) error {
	a.client.Kill()
	a.status = StatusShutdown
	return nil
}

func (a *adapter) Health(ctx context.Context) error {
	if a.client.Exited() {
		a.status = StatusCrashed
		return fmt.Errorf("plugin %q process has exited", a.manifest.Name)
	}
	return nil
}

func (a *adapter) Manifest() *Manifest { return a.manifest }
func (a *adapter) Status() Status      { return a.status }

// LLMProvider returns the dispensed capability as an llmpool.Provider; ok
// is false unless the plugin's manifest Kind is KindLLMProvider.
func (a *adapter) LLMProvider() (llmpool.Provider, bool) {
	p, ok := a.capability.(llmpool.Provider)
	return p, ok
}

// VectorSearcher returns the dispensed capability as a
// knowledge.VectorSearcher; ok is false unless the plugin's manifest Kind
// is KindVectorSearcher.
func (a *adapter) VectorSearcher() (knowledge.VectorSearcher, bool) {
	v, ok := a.capability.(knowledge.VectorSearcher)
	return v, ok
}

// Scraper returns the dispensed capability as a knowledge.Scraper; ok is
// false unless the plugin's manifest Kind is KindScraper.
func (a *adapter) Scraper() (knowledge.Scraper, bool) {
	s, ok := a.capability.(knowledge.Scraper)
	return s, ok
}
