package llmpool

import (
	"sync"
	"time"

	"github.com/kadirpekel/orchestrator/pkg/clampf"
	"github.com/kadirpekel/orchestrator/pkg/ringbuf"
)

const (
	responseTimeRingCap = 100
	qualityRingCap      = 100
)

// Capability binds a logical Tier to a provider and its rolling metrics
// block (spec §3, LLMCapability). It is the unit LLMPool scores and selects.
type Capability struct {
	Name   string // registry key, e.g. "default", "fast-openai"
	Config CapabilityConfig
	Provider Provider

	mu             sync.RWMutex
	responseTimes  *ringbuf.Ring[time.Duration]
	qualitySamples *ringbuf.Ring[float64]
	successCount   int64
	errorCount     int64
	tokensIn       int64
	tokensOut      int64
	expertise      map[string]int64 // taskType -> count, the "expertise multiset"
}

// NewCapability wires a provider into a named, scored capability slot.
func NewCapability(name string, cfg CapabilityConfig, provider Provider) *Capability {
	return &Capability{
		Name:           name,
		Config:         cfg,
		Provider:       provider,
		responseTimes:  ringbuf.New[time.Duration](responseTimeRingCap),
		qualitySamples: ringbuf.New[float64](qualityRingCap),
		expertise:      make(map[string]int64),
	}
}

// Record pushes an invocation outcome into the rolling metrics (spec §4.4
// "Recording").
func (c *Capability) Record(o InvocationOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.responseTimes.Push(o.ResponseTime)
	c.qualitySamples.Push(clampf.Unit(o.Quality))
	c.tokensIn += int64(o.TokensIn)
	c.tokensOut += int64(o.TokensOut)
	if o.Success {
		c.successCount++
	} else {
		c.errorCount++
	}
	if o.TaskType != "" {
		c.expertise[o.TaskType]++
	}
}

// Snapshot is a point-in-time read of a capability's rolling metrics.
type Snapshot struct {
	AvgQuality      float64
	AvgResponseTime time.Duration
	SuccessCount    int64
	ErrorCount      int64
	TokensIn        int64
	TokensOut       int64
}

func (c *Capability) snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	qs := c.qualitySamples.Slice()
	var qSum float64
	for _, q := range qs {
		qSum += q
	}
	avgQ := 0.0
	if len(qs) > 0 {
		avgQ = qSum / float64(len(qs))
	}

	rts := c.responseTimes.Slice()
	var rtSum time.Duration
	for _, rt := range rts {
		rtSum += rt
	}
	avgRT := time.Duration(0)
	if len(rts) > 0 {
		avgRT = rtSum / time.Duration(len(rts))
	}

	return Snapshot{
		AvgQuality:      avgQ,
		AvgResponseTime: avgRT,
		SuccessCount:    c.successCount,
		ErrorCount:      c.errorCount,
		TokensIn:        c.tokensIn,
		TokensOut:       c.tokensOut,
	}
}

// hasExpertise reports whether taskType has been recorded before for this
// capability (spec §4.4 expertiseBonus).
func (c *Capability) hasExpertise(taskType string) bool {
	if taskType == "" {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.expertise[taskType] > 0
}

// EfficiencyScore is the derived metric from spec §3:
//
//	efficiency_score = avgQuality / costPerToken * (1 + speedBonus)
//	speedBonus = max(0, (ceilingSeconds - avgResponseTime) / ceilingSeconds) * 0.2
func (c *Capability) EfficiencyScore() float64 {
	snap := c.snapshot()
	if c.Config.CostPerToken <= 0 {
		return snap.AvgQuality
	}
	ceiling := c.Config.CeilingSeconds
	if ceiling <= 0 {
		ceiling = 1
	}
	speedBonus := (ceiling - snap.AvgResponseTime.Seconds()) / ceiling
	if speedBonus < 0 {
		speedBonus = 0
	}
	speedBonus *= 0.2
	return (snap.AvgQuality / c.Config.CostPerToken) * (1 + speedBonus)
}
