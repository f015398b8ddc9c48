package llmpool

import (
	"context"
	"testing"

	"github.com/kadirpekel/orchestrator/pkg/orcherr"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	p := New()
	if err := p.RegisterCapability("fast", CapabilityConfig{Tier: TierFast, CostPerToken: 0.000001, CeilingSeconds: 2}, &FakeProvider{Reply: "fast reply"}); err != nil {
		t.Fatalf("register fast: %v", err)
	}
	if err := p.RegisterCapability("powerful", CapabilityConfig{Tier: TierPowerful, CostPerToken: 0.00002, CeilingSeconds: 5}, &FakeProvider{Reply: "powerful reply"}); err != nil {
		t.Fatalf("register powerful: %v", err)
	}
	return p
}

func TestPool_SelectReturnsRegisteredCapability(t *testing.T) {
	p := newTestPool(t)
	cap, err := p.Select(context.Background(), SelectionRequest{TaskType: "technical", Complexity: 0.5}, nil)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if cap == nil {
		t.Fatal("Select() returned nil capability")
	}
}

// P5 (LLM selection monotonicity): raising complexity never decreases the
// score of a powerful/reasoning capability.
func TestPool_ComplexityMonotonicity(t *testing.T) {
	p := New()
	if err := p.RegisterCapability("reasoning", CapabilityConfig{Tier: TierReasoning, CostPerToken: 0.00002, CeilingSeconds: 5}, &FakeProvider{}); err != nil {
		t.Fatalf("register: %v", err)
	}
	cap, _ := p.Get("reasoning")

	lowScore := p.score(cap, SelectionRequest{Complexity: 0.2})
	highScore := p.score(cap, SelectionRequest{Complexity: 0.9})

	if highScore < lowScore {
		t.Errorf("score decreased when complexity increased: low=%v high=%v", lowScore, highScore)
	}
}

func TestPool_InvokeWithFallback(t *testing.T) {
	p := New()
	failing := &FakeProvider{FailErr: orcherr.New(orcherr.ProviderError, "boom")}
	if err := p.RegisterCapability("broken", CapabilityConfig{Tier: TierFast, CostPerToken: 0.000001, CeilingSeconds: 1}, failing); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := p.RegisterCapability("healthy", CapabilityConfig{Tier: TierFast, CostPerToken: 0.00005, CeilingSeconds: 1}, &FakeProvider{Reply: "ok"}); err != nil {
		t.Fatalf("register: %v", err)
	}

	resp, cap, err := p.InvokeWithFallback(context.Background(), SelectionRequest{Complexity: 0.1}, Request{UserPrompt: "hi"})
	if err != nil {
		t.Fatalf("InvokeWithFallback() error = %v", err)
	}
	if resp.Text == "" {
		t.Error("expected non-empty response text")
	}
	if cap == nil {
		t.Fatal("expected a winning capability")
	}
}

func TestPool_InvokeWithFallback_AllFail(t *testing.T) {
	p := New()
	for _, name := range []string{"a", "b"} {
		if err := p.RegisterCapability(name, CapabilityConfig{Tier: TierFast, CostPerToken: 0.00001}, &FakeProvider{FailErr: orcherr.New(orcherr.ProviderError, "down")}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}

	_, _, err := p.InvokeWithFallback(context.Background(), SelectionRequest{}, Request{})
	if err == nil {
		t.Fatal("expected error when all capabilities fail")
	}
	if orcherr.KindOf(err) != orcherr.ProviderError {
		t.Errorf("KindOf(err) = %v, want %v", orcherr.KindOf(err), orcherr.ProviderError)
	}
}

func TestPool_TieBreakByCostThenLatency(t *testing.T) {
	p := New()
	// With the cost weight at zero both capabilities score identically, so
	// only the CostPerToken tie-break separates them.
	p.SetWeights(Weights{Quality: 0.4, Speed: 0.3, Cost: 0, Reliability: 0.1})
	if err := p.RegisterCapability("expensive", CapabilityConfig{Tier: TierFast, CostPerToken: 0.001}, &FakeProvider{}); err != nil {
		t.Fatal(err)
	}
	if err := p.RegisterCapability("cheap", CapabilityConfig{Tier: TierFast, CostPerToken: 0.0001}, &FakeProvider{}); err != nil {
		t.Fatal(err)
	}

	cap, err := p.Select(context.Background(), SelectionRequest{}, nil)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if cap.Name != "cheap" {
		t.Errorf("Select() = %v, want cheap (lower cost wins a score tie)", cap.Name)
	}
}
