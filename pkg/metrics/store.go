package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/kadirpekel/orchestrator/pkg/clampf"
	"github.com/kadirpekel/orchestrator/pkg/clock"
)

// driftWindowPoints is the minimum data-point count for a routing_drift
// insight (spec §4.1).
const driftWindowPoints = 20

// driftDropThreshold is the week-over-week success-rate drop that triggers
// a routing_drift insight.
const driftDropThreshold = 0.15

// agentState holds the rolling metrics for one agent.
type agentState struct {
	mu           sync.Mutex
	records      []InteractionRecord // bounded to a reasonable in-memory window
	ratings      []int
	skills       map[string]skillValue
	weekSuccess  []weekBucket // rolling week-over-week success-rate buckets
}

type skillValue struct {
	value      float64
	usageCount int64
}

type weekBucket struct {
	weekStart time.Time
	successes int
	total     int
}

const maxRecordsPerAgent = 5000

// Store is the MetricsStore component.
type Store struct {
	mu       sync.RWMutex
	agents   map[string]*agentState
	insights []LearningInsight

	sink    Sink
	journal *journal
	clock   clock.Clock
}

// Option configures a Store.
type Option func(*Store)

// WithSink configures the durable persistence backend.
func WithSink(s Sink) Option {
	return func(st *Store) { st.sink = s }
}

// WithClock overrides the clock source (tests use clock.Fake).
func WithClock(c clock.Clock) Option {
	return func(st *Store) { st.clock = c }
}

// New creates a Store. Without a Sink, records are retained in memory only
// (zero-config/test mode).
func New(opts ...Option) *Store {
	st := &Store{
		agents: make(map[string]*agentState),
		clock:  clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(st)
	}
	st.journal = newJournal(func() {
		st.emitInsight(LearningInsight{
			Type:        "metrics_shedding",
			Title:       "Metrics journal full",
			Description: "the local retry journal is full; oldest non-critical records were dropped",
			Confidence:  1.0,
			Status:      InsightPending,
			Timestamp:   st.clock.Now(),
		})
	})
	return st
}

func (st *Store) stateFor(agentID string) *agentState {
	st.mu.RLock()
	s, ok := st.agents[agentID]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok = st.agents[agentID]; ok {
		return s
	}
	s = &agentState{skills: make(map[string]skillValue)}
	st.agents[agentID] = s
	return s
}

// Record appends an InteractionRecord. Non-blocking: if a Sink is
// configured, the write is attempted synchronously but on failure the
// record is handed to the journal for background retry rather than
// propagating an error to the caller (spec §4.1 "Failure").
func (st *Store) Record(ctx context.Context, r InteractionRecord) {
	if r.Timestamp.IsZero() {
		r.Timestamp = st.clock.Now()
	}

	state := st.stateFor(r.AgentID)
	state.mu.Lock()
	state.records = append(state.records, r)
	if len(state.records) > maxRecordsPerAgent {
		state.records = state.records[len(state.records)-maxRecordsPerAgent:]
	}
	state.recordWeekBucket(r)
	state.mu.Unlock()

	if st.sink != nil {
		if err := st.sink.WriteInteraction(ctx, r); err != nil {
			st.journal.enqueue(r, st.clock.Now())
		}
	}

	st.checkDrift(r.AgentID)
}

func (s *agentState) recordWeekBucket(r InteractionRecord) {
	weekStart := r.Timestamp.Truncate(7 * 24 * time.Hour)
	if n := len(s.weekSuccess); n > 0 && s.weekSuccess[n-1].weekStart.Equal(weekStart) {
		s.weekSuccess[n-1].total++
		if r.Success {
			s.weekSuccess[n-1].successes++
		}
		return
	}
	successes := 0
	if r.Success {
		successes = 1
	}
	s.weekSuccess = append(s.weekSuccess, weekBucket{weekStart: weekStart, successes: successes, total: 1})
	if len(s.weekSuccess) > 8 {
		s.weekSuccess = s.weekSuccess[len(s.weekSuccess)-8:]
	}
}

// checkDrift implements spec §4.1's routing_drift detector.
func (st *Store) checkDrift(agentID string) {
	state := st.stateFor(agentID)
	state.mu.Lock()
	defer state.mu.Unlock()

	n := len(state.weekSuccess)
	if n < 2 {
		return
	}
	curr, prev := state.weekSuccess[n-1], state.weekSuccess[n-2]
	if curr.total+prev.total < driftWindowPoints {
		return
	}
	currRate := rateOf(curr)
	prevRate := rateOf(prev)
	if prevRate-currRate > driftDropThreshold {
		st.emitInsight(LearningInsight{
			Type:        "routing_drift",
			Title:       "Routing drift detected",
			Description: "rolling success rate for agent " + agentID + " dropped week-over-week",
			Confidence:  0.7,
			DataPoints:  curr.total + prev.total,
			Status:      InsightPending,
			Timestamp:   st.clock.Now(),
		})
	}
}

func rateOf(b weekBucket) float64 {
	if b.total == 0 {
		return 0
	}
	return float64(b.successes) / float64(b.total)
}

// Feedback attaches a 1-5 satisfaction rating to agentID and triggers
// insight generation per spec §4.1. It reports whether a learning insight
// was generated as a result.
func (st *Store) Feedback(agentID string, rating int, comment string) bool {
	state := st.stateFor(agentID)
	state.mu.Lock()
	state.ratings = append(state.ratings, rating)
	state.mu.Unlock()

	switch {
	case rating <= 2:
		st.emitInsight(LearningInsight{
			Type:                "low_satisfaction",
			Title:               "Low satisfaction feedback",
			Description:         comment,
			Confidence:          0.8,
			RecommendedActions:  []string{"review routing", "analyze quality", "consider retraining"},
			Status:              InsightPending,
			Timestamp:           st.clock.Now(),
		})
		return true
	case rating >= 4:
		st.emitInsight(LearningInsight{
			Type:                "high_satisfaction",
			Title:               "High satisfaction feedback",
			Description:         comment,
			Confidence:          0.9,
			RecommendedActions:  []string{"reinforce pattern", "record as positive example"},
			Status:              InsightPending,
			Timestamp:           st.clock.Now(),
		})
		return true
	}
	return false
}

func (st *Store) emitInsight(i LearningInsight) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.insights = append(st.insights, i)
}

// Summary computes aggregates for one agent (spec §4.1 summary()).
// window, if non-zero, restricts the aggregate to records no older than
// window relative to the current clock time.
func (st *Store) Summary(agentID string, window time.Duration) AgentSummary {
	state := st.stateFor(agentID)
	state.mu.Lock()
	defer state.mu.Unlock()

	var cutoff time.Time
	if window > 0 {
		cutoff = st.clock.Now().Add(-window)
	}

	var (
		quality, latency, cost float64
		successCount, n        int
	)
	for _, r := range state.records {
		if window > 0 && r.Timestamp.Before(cutoff) {
			continue
		}
		n++
		quality += r.Quality
		latency += float64(r.ResponseTimeMS)
		cost += r.Cost
		if r.Success {
			successCount++
		}
	}

	var ratingSum float64
	for _, rt := range state.ratings {
		ratingSum += float64(rt)
	}

	summary := AgentSummary{Interactions: n}
	if n > 0 {
		summary.AvgQuality = quality / float64(n)
		summary.AvgLatencyMS = latency / float64(n)
		summary.AvgCost = cost / float64(n)
		summary.SuccessRate = float64(successCount) / float64(n)
	}
	if len(state.ratings) > 0 {
		summary.AvgRating = ratingSum / float64(len(state.ratings))
	}
	return summary
}

// SystemSummary aggregates across all agents (spec §4.1 systemSummary()).
func (st *Store) SystemSummary(window time.Duration) AgentSummary {
	st.mu.RLock()
	ids := make([]string, 0, len(st.agents))
	for id := range st.agents {
		ids = append(ids, id)
	}
	st.mu.RUnlock()

	var total AgentSummary
	var weighted struct{ quality, latency, cost, rating float64 }
	var interactions, ratingCount int

	for _, id := range ids {
		s := st.Summary(id, window)
		interactions += s.Interactions
		weighted.quality += s.AvgQuality * float64(s.Interactions)
		weighted.latency += s.AvgLatencyMS * float64(s.Interactions)
		weighted.cost += s.AvgCost * float64(s.Interactions)
		if s.AvgRating > 0 {
			weighted.rating += s.AvgRating
			ratingCount++
		}
		total.SuccessRate += s.SuccessRate * float64(s.Interactions)
	}

	total.Interactions = interactions
	if interactions > 0 {
		total.AvgQuality = weighted.quality / float64(interactions)
		total.AvgLatencyMS = weighted.latency / float64(interactions)
		total.AvgCost = weighted.cost / float64(interactions)
		total.SuccessRate = total.SuccessRate / float64(interactions)
	}
	if ratingCount > 0 {
		total.AvgRating = weighted.rating / float64(ratingCount)
	}
	return total
}

// SkillUpdate adjusts an agent's named skill value by delta, clamped to
// [0,1], with a monotonically increasing usage count (spec §4.1).
func (st *Store) SkillUpdate(agentID, skillName string, delta float64) {
	state := st.stateFor(agentID)
	state.mu.Lock()
	defer state.mu.Unlock()

	sv := state.skills[skillName]
	sv.value = clampf.Unit(sv.value + delta)
	sv.usageCount++
	state.skills[skillName] = sv
}

// Insights lists insights matching status, most recent first, up to limit
// (0 means unlimited).
func (st *Store) Insights(status InsightStatus, limit int) []LearningInsight {
	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []LearningInsight
	for i := len(st.insights) - 1; i >= 0; i-- {
		ins := st.insights[i]
		if status != "" && ins.Status != status {
			continue
		}
		out = append(out, ins)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// DrainJournal forces a journal retry pass against the configured sink.
// Journaled records are retried only when this is called; no ticker in this
// module calls it, and cmd/orchestrator builds its Store without a Sink.
func (st *Store) DrainJournal(ctx context.Context) {
	if st.sink == nil {
		return
	}
	st.journal.drain(ctx, st.sink, st.clock.Now())
}

// JournalLen reports the number of records currently buffered for retry.
func (st *Store) JournalLen() int { return st.journal.len() }
