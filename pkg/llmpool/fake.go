package llmpool

import (
	"context"
	"time"

	"github.com/kadirpekel/orchestrator/pkg/orcherr"
)

// FakeProvider is the in-memory reference Provider used by tests, so the
// core runs without external services. cmd/orchestrator does not register
// it: each capability configured there needs an endpoint or a matching
// plugin.
type FakeProvider struct {
	Reply   string
	Delay   time.Duration
	FailErr *orcherr.Error
}

// Invoke returns the configured canned reply (or error) after Delay,
// honoring context cancellation.
func (f *FakeProvider) Invoke(ctx context.Context, req Request) (Response, error) {
	if f.Delay > 0 {
		select {
		case <-time.After(f.Delay):
		case <-ctx.Done():
			return Response{}, orcherr.Wrap(orcherr.Timeout, "fake provider cancelled", ctx.Err())
		}
	}
	if f.FailErr != nil {
		return Response{}, f.FailErr
	}
	text := f.Reply
	if text == "" {
		text = "[fake] " + req.UserPrompt
	}
	return Response{
		Text:         text,
		TokensIn:     len(req.SystemPrompt) + len(req.UserPrompt),
		TokensOut:    len(text),
		FinishReason: "stop",
	}, nil
}

// Close is a no-op for FakeProvider.
func (f *FakeProvider) Close() error { return nil }
