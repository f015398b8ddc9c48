package llmpool

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kadirpekel/orchestrator/pkg/httpclient"
	"github.com/kadirpekel/orchestrator/pkg/orcherr"
)

// HTTPProviderConfig configures a generic JSON-over-HTTP LLM endpoint. Real
// vendor SDKs (Anthropic/OpenAI/Gemini/Ollama clients) are explicitly out of
// scope (spec §1); this is the reference, vendor-agnostic implementation
// every capability can fall back to, and what the in-memory test fake
// stands in for. Grounded on pkg/httpclient's retry/backoff client.
type HTTPProviderConfig struct {
	Endpoint string
	APIKey   string
	ModelID  string
}

type httpProvider struct {
	cfg    HTTPProviderConfig
	client *httpclient.Client
}

// NewHTTPProvider builds a Provider that POSTs a small JSON envelope to an
// HTTP endpoint and parses back {text, tokens_in, tokens_out, finish_reason}.
func NewHTTPProvider(cfg HTTPProviderConfig) Provider {
	return &httpProvider{
		cfg:    cfg,
		client: httpclient.New(httpclient.WithMaxRetries(1), httpclient.WithRetryStrategy(func(int) httpclient.RetryStrategy { return httpclient.SmartRetry })),
	}
}

type httpRequestBody struct {
	Model       string  `json:"model"`
	System      string  `json:"system,omitempty"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

type httpResponseBody struct {
	Text         string `json:"text"`
	TokensIn     int    `json:"tokens_in"`
	TokensOut    int    `json:"tokens_out"`
	FinishReason string `json:"finish_reason"`
	Error        string `json:"error,omitempty"`
}

func (p *httpProvider) Invoke(ctx context.Context, req Request) (Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	body, err := json.Marshal(httpRequestBody{
		Model:       p.cfg.ModelID,
		System:      req.SystemPrompt,
		Prompt:      req.UserPrompt,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return Response{}, orcherr.Wrap(orcherr.Internal, "failed to encode LLM request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Response{}, orcherr.Wrap(orcherr.Internal, "failed to build LLM request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if p.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.cfg.APIKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return Response{}, orcherr.Wrap(orcherr.Timeout, "LLM request timed out", err)
		}
		return Response{}, orcherr.Wrap(orcherr.ProviderError, "LLM request failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, orcherr.Wrap(orcherr.ProviderError, "failed to read LLM response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return Response{}, orcherr.New(orcherr.RateLimited, "LLM provider rate limited the request")
	}
	if resp.StatusCode >= 500 {
		return Response{}, orcherr.New(orcherr.ProviderError, fmt.Sprintf("LLM provider returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return Response{}, orcherr.New(orcherr.ProviderError, fmt.Sprintf("LLM provider rejected request: %d", resp.StatusCode))
	}

	var parsed httpResponseBody
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Response{}, orcherr.Wrap(orcherr.ProviderError, "failed to parse LLM response", err)
	}
	if parsed.Error != "" {
		return Response{}, orcherr.New(orcherr.ProviderError, parsed.Error)
	}

	return Response{
		Text:         parsed.Text,
		TokensIn:     parsed.TokensIn,
		TokensOut:    parsed.TokensOut,
		FinishReason: parsed.FinishReason,
	}, nil
}

func (p *httpProvider) Close() error { return nil }
