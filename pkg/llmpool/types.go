// Package llmpool owns the configured set of LLM capabilities (C5), tracks
// their live performance, and selects one per task using the weighted
// scoring formula from spec §4.4. It is grounded on the teacher's
// pkg/llms/registry.go and pkg/llms/types.go, generalized from "one provider
// SDK binding per file" to "one scored capability per logical tier".
package llmpool

import (
	"context"
	"time"
)

// Tier is the logical model handle requested by an agent or the coordinator.
type Tier string

const (
	TierFast      Tier = "fast"
	TierBalanced  Tier = "balanced"
	TierPowerful  Tier = "powerful"
	TierReasoning Tier = "reasoning"
	TierCreative  Tier = "creative"
	TierLocal     Tier = "local"
)

// Request describes a single LLM invocation.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
	Timeout      time.Duration
}

// Response is what a Provider returns on success.
type Response struct {
	Text         string
	TokensIn     int
	TokensOut    int
	FinishReason string
}

// Provider is the outbound LLM capability interface (spec §6). Concrete LLM
// vendor SDKs are out of scope; this module ships httpProvider (a minimal
// HTTP-based reference implementation) and an in-memory fake for tests.
type Provider interface {
	Invoke(ctx context.Context, req Request) (Response, error)
	Close() error
}

// CapabilityConfig is the static, config-file-sourced description of one
// LLM capability binding.
type CapabilityConfig struct {
	Tier            Tier
	ProviderModelID string
	Temperature     float64
	MaxTokens       int
	CostPerToken    float64 // USD per output token
	CeilingSeconds  float64 // response-time ceiling used for speedBonus
}

// SelectionRequest is the input to Pool.Select (spec §4.4).
type SelectionRequest struct {
	TaskType   string
	Complexity float64 // [0,1]
	BudgetCap  *float64
}

// InvocationOutcome is recorded after every invocation via Capability.Record.
type InvocationOutcome struct {
	Quality      float64 // [0,1], caller-assessed (e.g. from a judge or heuristic)
	ResponseTime time.Duration
	TokensIn     int
	TokensOut    int
	Success      bool
	TaskType     string
}
