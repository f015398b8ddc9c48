package rpc

import (
	"context"
	"net/rpc"

	hcplugin "github.com/hashicorp/go-plugin"

	"github.com/kadirpekel/orchestrator/pkg/knowledge"
)

// VectorSearcherPlugin wires a knowledge.VectorSearcher implementation
// across a plugin process boundary.
type VectorSearcherPlugin struct {
	Impl knowledge.VectorSearcher
}

func (p *VectorSearcherPlugin) Server(*hcplugin.MuxBroker) (interface{}, error) {
	return &vectorSearcherRPCServer{impl: p.Impl}, nil
}

func (p *VectorSearcherPlugin) Client(_ *hcplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &VectorSearcherRPCClient{client: c}, nil
}

type vectorSearchArgs struct {
	Query string
	Limit int
}

type vectorSearcherRPCServer struct {
	impl knowledge.VectorSearcher
}

func (s *vectorSearcherRPCServer) Search(args vectorSearchArgs, resp *[]knowledge.Result) error {
	results, err := s.impl.Search(context.Background(), args.Query, args.Limit)
	if err != nil {
		return err
	}
	*resp = results
	return nil
}

// VectorSearcherRPCClient satisfies knowledge.VectorSearcher by forwarding
// to the subprocess over net/rpc.
type VectorSearcherRPCClient struct {
	client *rpc.Client
}

func (c *VectorSearcherRPCClient) Search(ctx context.Context, query string, limit int) ([]knowledge.Result, error) {
	var resp []knowledge.Result
	call := c.client.Go("Plugin.Search", vectorSearchArgs{Query: query, Limit: limit}, &resp, nil)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-call.Done:
		return resp, res.Error
	}
}
