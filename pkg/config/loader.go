package config

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"
	yaml "gopkg.in/yaml.v3"

	"github.com/kadirpekel/orchestrator/pkg/config/provider"
)

// Loader decodes a Config from a provider.Provider, applying
// environment-variable interpolation before the mapstructure decode.
type Loader struct {
	prov provider.Provider
}

// New builds a Loader reading from prov.
func New(prov provider.Provider) *Loader {
	return &Loader{prov: prov}
}

// Load reads, env-expands and decodes the current document.
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	data, err := l.prov.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	expanded := ExpandEnvVarsInData(raw)

	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("build decoder: %w", err)
	}
	if err := decoder.Decode(expanded); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate applies the handful of structural invariants SPEC_FULL.md
// requires of a loaded document: every agent needs an id and a name, and
// agent ids must be unique; every capability needs a name, and capability
// names must be unique.
func validate(cfg *Config) error {
	seenAgents := make(map[string]bool, len(cfg.Agents))
	for _, a := range cfg.Agents {
		if a.ID == "" || a.Name == "" {
			return fmt.Errorf("agent definition missing id or name")
		}
		if seenAgents[a.ID] {
			return fmt.Errorf("duplicate agent id %q", a.ID)
		}
		seenAgents[a.ID] = true
	}

	seenCaps := make(map[string]bool, len(cfg.LLMCapabilities))
	for _, c := range cfg.LLMCapabilities {
		if c.Name == "" {
			return fmt.Errorf("llm capability definition missing name")
		}
		if seenCaps[c.Name] {
			return fmt.Errorf("duplicate llm capability name %q", c.Name)
		}
		seenCaps[c.Name] = true
	}

	return nil
}

// WatchAndReload calls onReload with every successfully re-decoded Config
// whenever the underlying provider reports a change, and with a non-nil
// error if a reload fails to parse (the previous Config stays in effect;
// callers decide whether to apply a given reload). It returns once the
// provider's Watch call is established; the reload loop itself runs in
// its own goroutine until ctx is cancelled.
func (l *Loader) WatchAndReload(ctx context.Context, onReload func(*Config, error)) error {
	ch, err := l.prov.Watch(ctx)
	if err != nil {
		return fmt.Errorf("watch config: %w", err)
	}
	if ch == nil {
		return nil
	}

	go func() {
		for range ch {
			cfg, err := l.Load(ctx)
			onReload(cfg, err)
		}
	}()

	return nil
}
