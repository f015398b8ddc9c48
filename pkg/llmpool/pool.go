package llmpool

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kadirpekel/orchestrator/pkg/orcherr"
	"github.com/kadirpekel/orchestrator/pkg/registry"
)

// Weights are the scoring weights from spec §4.4, tunable via learning
// insights (spec §4.1).
type Weights struct {
	Quality     float64
	Speed       float64
	Cost        float64
	Reliability float64
}

// DefaultWeights matches spec §4.4's defaults exactly.
func DefaultWeights() Weights {
	return Weights{Quality: 0.4, Speed: 0.3, Cost: 0.2, Reliability: 0.1}
}

// Pool is the registry of configured LLM capabilities plus the weighted
// selector described in spec §4.4. It embeds the generic BaseRegistry the
// way pkg/llms.LLMRegistry embeds it in the teacher.
type Pool struct {
	*registry.BaseRegistry[*Capability]
	weights Weights
}

// New creates an empty pool with default weights.
func New() *Pool {
	return &Pool{
		BaseRegistry: registry.NewBaseRegistry[*Capability](),
		weights:      DefaultWeights(),
	}
}

// SetWeights overrides the scoring weights (called when a learning insight
// recommends a reweighting).
func (p *Pool) SetWeights(w Weights) { p.weights = w }

// RegisterCapability adds a named capability to the pool.
func (p *Pool) RegisterCapability(name string, cfg CapabilityConfig, provider Provider) error {
	if name == "" {
		return orcherr.New(orcherr.InvalidInput, "capability name cannot be empty")
	}
	if provider == nil {
		return orcherr.New(orcherr.InvalidInput, "capability provider cannot be nil")
	}
	return p.Register(name, NewCapability(name, cfg, provider))
}

// scored pairs a capability with its computed selection score.
type scored struct {
	cap   *Capability
	score float64
}

// score implements spec §4.4's per-capability formula exactly:
//
//	score = w_q*avgQuality + w_s*speedScore + w_c*costScore + w_r*reliability
//	      + expertiseBonus + complexityBonus - errorPenalty
func (p *Pool) score(c *Capability, req SelectionRequest) float64 {
	snap := c.snapshot()

	speedScore := 1 - minF(1, snap.AvgResponseTime.Seconds()/5.0)
	costScore := 1 / (1 + c.Config.CostPerToken*1000)
	total := float64(snap.SuccessCount + snap.ErrorCount)
	reliability := 1.0
	if total > 0 {
		reliability = float64(snap.SuccessCount) / maxF(1, total)
	}

	score := p.weights.Quality*snap.AvgQuality +
		p.weights.Speed*speedScore +
		p.weights.Cost*costScore +
		p.weights.Reliability*reliability

	if c.hasExpertise(req.TaskType) {
		score += 0.2
	}

	switch c.Config.Tier {
	case TierPowerful, TierReasoning:
		if req.Complexity >= 0.7 {
			score += 0.15
		}
	case TierFast, TierBalanced:
		if req.Complexity <= 0.4 {
			score += 0.10
		}
	}

	errorRate := 0.0
	if total > 0 {
		errorRate = float64(snap.ErrorCount) / total
	}
	score -= 0.5 * errorRate

	return score
}

// Select ranks all registered capabilities for req and returns them ordered
// best-first, breaking ties by lower avg cost then lower avg latency (spec
// §4.4). excluded capabilities (prior fallback attempts) are skipped.
func (p *Pool) Select(ctx context.Context, req SelectionRequest, excluded map[string]bool) (*Capability, error) {
	candidates := p.List()
	if len(candidates) == 0 {
		return nil, orcherr.New(orcherr.ProviderError, "no LLM capabilities registered")
	}

	var ranked []scored
	for _, c := range candidates {
		if excluded[c.Name] {
			continue
		}
		ranked = append(ranked, scored{cap: c, score: p.score(c, req)})
	}
	if len(ranked) == 0 {
		return nil, orcherr.New(orcherr.ProviderError, "all LLM capabilities excluded or unhealthy")
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		ci, cj := ranked[i].cap, ranked[j].cap
		if ci.Config.CostPerToken != cj.Config.CostPerToken {
			return ci.Config.CostPerToken < cj.Config.CostPerToken
		}
		return ci.snapshot().AvgResponseTime < cj.snapshot().AvgResponseTime
	})

	return ranked[0].cap, nil
}

// InvokeWithFallback selects a capability, invokes it, and on failure tries
// up to two further fallback capabilities (spec §4.4 "Fallback"), excluding
// previously failed capabilities and recording every outcome.
func (p *Pool) InvokeWithFallback(ctx context.Context, selReq SelectionRequest, req Request) (Response, *Capability, error) {
	excluded := make(map[string]bool)
	var lastErr error

	for attempt := 0; attempt <= 2; attempt++ {
		cap, err := p.Select(ctx, selReq, excluded)
		if err != nil {
			if lastErr != nil {
				return Response{}, nil, orcherr.Wrap(orcherr.ProviderError, "all fallback attempts exhausted", lastErr)
			}
			return Response{}, nil, err
		}

		start := time.Now()
		resp, invokeErr := cap.Provider.Invoke(ctx, req)
		elapsed := time.Since(start)

		if invokeErr == nil {
			cap.Record(InvocationOutcome{
				Quality:      1.0,
				ResponseTime: elapsed,
				TokensIn:     resp.TokensIn,
				TokensOut:    resp.TokensOut,
				Success:      true,
				TaskType:     selReq.TaskType,
			})
			return resp, cap, nil
		}

		cap.Record(InvocationOutcome{
			ResponseTime: elapsed,
			Success:      false,
			TaskType:     selReq.TaskType,
		})
		excluded[cap.Name] = true
		lastErr = invokeErr
	}

	return Response{}, nil, orcherr.Wrap(orcherr.ProviderError, "all fallback attempts exhausted", lastErr)
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

var _ fmt.Stringer = Tier("")

func (t Tier) String() string { return string(t) }
