// Package metrics implements the MetricsStore component (spec §4.1):
// durable, non-blocking interaction recording, satisfaction feedback with
// insight generation, and rolling aggregates, grounded on the
// atomic-counter accounting idiom of pkg/rag/metrics.go and exported via
// prometheus/client_golang the way pkg/observability does in the teacher.
package metrics

import "time"

// InteractionRecord is the canonical per-call metric record (spec §3),
// appended on every agent invocation. Append-only.
type InteractionRecord struct {
	SessionID        string
	AgentID          string
	LLMCapability    string
	QueryHash        string
	Quality          float64 // [0,1]
	ResponseTimeMS   int64
	TokensUsed       int64
	Cost             float64
	Success          bool
	ErrorKind        string // empty when Success
	Timestamp        time.Time
}

// InsightStatus is the lifecycle state of a LearningInsight.
type InsightStatus string

const (
	InsightPending  InsightStatus = "pending"
	InsightApplied  InsightStatus = "applied"
	InsightDismissed InsightStatus = "dismissed"
)

// LearningInsight is a learning signal derived from metrics/feedback (spec §3).
type LearningInsight struct {
	Type               string
	Title              string
	Description        string
	Confidence         float64 // [0,1]
	DataPoints         int
	RecommendedActions []string
	Status             InsightStatus
	Timestamp          time.Time
}

// AgentSummary is the result of summary(agentId, window) (spec §4.1).
type AgentSummary struct {
	Interactions int
	AvgQuality   float64
	AvgLatencyMS float64
	SuccessRate  float64
	AvgCost      float64
	AvgRating    float64
}
