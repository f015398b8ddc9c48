package provider

import (
	"context"
	"fmt"

	consulapi "github.com/hashicorp/consul/api"
)

// ConsulProvider loads config from a Consul KV key and watches it using
// Consul's blocking-query long-poll, the idiom hashicorp/consul/api's own
// watch package is built on.
type ConsulProvider struct {
	client *consulapi.Client
	key    string
}

// NewConsulProvider dials the Consul agent at the first of endpoints (or
// the client's default address if endpoints is empty) and reads key.
func NewConsulProvider(endpoints []string, key string) (*ConsulProvider, error) {
	if key == "" {
		return nil, fmt.Errorf("consul key is required")
	}

	cfg := consulapi.DefaultConfig()
	if len(endpoints) > 0 {
		cfg.Address = endpoints[0]
	}

	client, err := consulapi.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create consul client: %w", err)
	}

	return &ConsulProvider{client: client, key: key}, nil
}

func (p *ConsulProvider) Type() Type { return TypeConsul }

func (p *ConsulProvider) Load(ctx context.Context) ([]byte, error) {
	pair, _, err := p.client.KV().Get(p.key, (&consulapi.QueryOptions{}).WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("read consul key %q: %w", p.key, err)
	}
	if pair == nil {
		return nil, fmt.Errorf("consul key %q not found", p.key)
	}
	return pair.Value, nil
}

// Watch long-polls the key via Consul's ModifyIndex blocking query and
// signals once per value change.
func (p *ConsulProvider) Watch(ctx context.Context) (<-chan struct{}, error) {
	ch := make(chan struct{}, 1)
	go p.watchLoop(ctx, ch)
	return ch, nil
}

func (p *ConsulProvider) watchLoop(ctx context.Context, ch chan<- struct{}) {
	defer close(ch)

	var lastIndex uint64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		opts := (&consulapi.QueryOptions{WaitIndex: lastIndex}).WithContext(ctx)
		pair, meta, err := p.client.KV().Get(p.key, opts)
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
				continue
			}
		}
		if pair != nil && meta.LastIndex != lastIndex {
			if lastIndex != 0 {
				select {
				case ch <- struct{}{}:
				default:
				}
			}
			lastIndex = meta.LastIndex
		}
	}
}

func (p *ConsulProvider) Close() error { return nil }

var _ Provider = (*ConsulProvider)(nil)
