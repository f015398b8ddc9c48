package rpc

import (
	"context"
	"net/rpc"

	hcplugin "github.com/hashicorp/go-plugin"

	"github.com/kadirpekel/orchestrator/pkg/knowledge"
)

// ScraperPlugin wires a knowledge.Scraper implementation across a plugin
// process boundary.
type ScraperPlugin struct {
	Impl knowledge.Scraper
}

func (p *ScraperPlugin) Server(*hcplugin.MuxBroker) (interface{}, error) {
	return &scraperRPCServer{impl: p.Impl}, nil
}

func (p *ScraperPlugin) Client(_ *hcplugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &ScraperRPCClient{client: c}, nil
}

type scrapeArgs struct {
	Query string
	K     int
}

type scraperRPCServer struct {
	impl knowledge.Scraper
}

func (s *scraperRPCServer) Scrape(args scrapeArgs, resp *[]knowledge.Result) error {
	results, err := s.impl.Scrape(context.Background(), args.Query, args.K)
	if err != nil {
		return err
	}
	*resp = results
	return nil
}

// ScraperRPCClient satisfies knowledge.Scraper by forwarding to the
// subprocess over net/rpc.
type ScraperRPCClient struct {
	client *rpc.Client
}

func (c *ScraperRPCClient) Scrape(ctx context.Context, query string, k int) ([]knowledge.Result, error) {
	var resp []knowledge.Result
	call := c.client.Go("Plugin.Scrape", scrapeArgs{Query: query, K: k}, &resp, nil)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-call.Done:
		return resp, res.Error
	}
}
