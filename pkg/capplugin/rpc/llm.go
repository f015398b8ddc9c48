package rpc

import (
	"context"
	"net/rpc"

	hcplugin "github.com/hashicorp/go-plugin"

	"github.com/kadirpekel/orchestrator/pkg/llmpool"
)

// LLMProviderPlugin wires an llmpool.Provider implementation across a
// plugin process boundary.
type LLMProviderPlugin struct {
	Impl llmpool.Provider
}

func (p *LLMProviderPlugin) Server(*hcplugin.MuxBroker) (interface{}, error) {
	return &llmProviderRPCServer{impl: p.Impl}, nil
}

func (p *LLMProviderPlugin) Client(_ *hcplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &LLMProviderRPCClient{client: c}, nil
}

// llmProviderRPCServer runs inside the plugin process and dispatches
// net/rpc calls to the real Provider.
type llmProviderRPCServer struct {
	impl llmpool.Provider
}

func (s *llmProviderRPCServer) Invoke(req llmpool.Request, resp *llmpool.Response) error {
	r, err := s.impl.Invoke(context.Background(), req)
	if err != nil {
		return err
	}
	*resp = r
	return nil
}

func (s *llmProviderRPCServer) Close(struct{}, *struct{}) error {
	return s.impl.Close()
}

// LLMProviderRPCClient runs in the host process and satisfies
// llmpool.Provider by forwarding to the subprocess over net/rpc.
type LLMProviderRPCClient struct {
	client *rpc.Client
}

func (c *LLMProviderRPCClient) Invoke(ctx context.Context, req llmpool.Request) (llmpool.Response, error) {
	var resp llmpool.Response
	call := c.client.Go("Plugin.Invoke", req, &resp, nil)
	select {
	case <-ctx.Done():
		return llmpool.Response{}, ctx.Err()
	case res := <-call.Done:
		return resp, res.Error
	}
}

func (c *LLMProviderRPCClient) Close() error {
	return c.client.Call("Plugin.Close", struct{}{}, &struct{}{})
}
