package config

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/kadirpekel/orchestrator/pkg/config/provider"
)

// fakeProvider is an in-memory provider.Provider test double.
type fakeProvider struct {
	mu       sync.Mutex
	data     []byte
	watchers []chan struct{}
}

func (p *fakeProvider) Type() provider.Type { return provider.TypeFile }

func (p *fakeProvider) Load(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.data, nil
}

func (p *fakeProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	p.mu.Lock()
	p.watchers = append(p.watchers, ch)
	p.mu.Unlock()
	return ch, nil
}

func (p *fakeProvider) Close() error { return nil }

func (p *fakeProvider) update(data []byte) {
	p.mu.Lock()
	p.data = data
	watchers := append([]chan struct{}(nil), p.watchers...)
	p.mu.Unlock()

	for _, ch := range watchers {
		ch <- struct{}{}
	}
}

const sampleYAML = `
server:
  listen_addr: ":8080"
agents:
  - id: a-support
    name: technical_support
    role: Technical Support Specialist
    domain: technical
    keywords: [webhook, api]
    active: true
llm_capabilities:
  - name: default
    tier: balanced
    api_key_env: TEST_PROVIDER_KEY
    cost_per_token: 0.00001
`

func TestLoader_LoadDecodesAgentsAndCapabilities(t *testing.T) {
	prov := &fakeProvider{data: []byte(sampleYAML)}
	cfg, err := New(prov).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Agents) != 1 || cfg.Agents[0].ID != "a-support" {
		t.Fatalf("Agents = %+v, want one agent a-support", cfg.Agents)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("Server.ListenAddr = %q, want %q", cfg.Server.ListenAddr, ":8080")
	}
	agent := cfg.Agents[0].ToAgent()
	if agent.Name != "technical_support" || agent.Domain != "technical" {
		t.Errorf("ToAgent() = %+v, unexpected fields", agent)
	}
}

func TestLoader_ExpandsEnvVars(t *testing.T) {
	os.Setenv("TEST_LISTEN_ADDR", ":9090")
	defer os.Unsetenv("TEST_LISTEN_ADDR")

	prov := &fakeProvider{data: []byte(`
server:
  listen_addr: "${TEST_LISTEN_ADDR}"
agents: []
llm_capabilities: []
`)}
	cfg, err := New(prov).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.ListenAddr != ":9090" {
		t.Errorf("Server.ListenAddr = %q, want %q", cfg.Server.ListenAddr, ":9090")
	}
}

func TestLoader_RejectsDuplicateAgentID(t *testing.T) {
	prov := &fakeProvider{data: []byte(`
agents:
  - id: dup
    name: one
  - id: dup
    name: two
`)}
	if _, err := New(prov).Load(context.Background()); err == nil {
		t.Error("expected an error for duplicate agent ids")
	}
}

func TestLoader_WatchAndReloadFiresOnChange(t *testing.T) {
	prov := &fakeProvider{data: []byte(sampleYAML)}
	loader := New(prov)

	reloaded := make(chan *Config, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := loader.WatchAndReload(ctx, func(cfg *Config, err error) {
		if err == nil {
			reloaded <- cfg
		}
	}); err != nil {
		t.Fatalf("WatchAndReload() error = %v", err)
	}

	prov.update([]byte(`
agents:
  - id: a-new
    name: new_agent
`))

	select {
	case cfg := <-reloaded:
		if len(cfg.Agents) != 1 || cfg.Agents[0].ID != "a-new" {
			t.Errorf("reloaded Config.Agents = %+v, want one agent a-new", cfg.Agents)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WatchAndReload never fired onReload")
	}
}
