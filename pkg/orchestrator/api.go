package orchestrator

import (
	"context"

	"github.com/kadirpekel/orchestrator/pkg/convmemory"
	"github.com/kadirpekel/orchestrator/pkg/knowledge"
	"github.com/kadirpekel/orchestrator/pkg/orcherr"
	"github.com/kadirpekel/orchestrator/pkg/realtime"
)

// GetSessionState returns the RealtimeTracker's live snapshot for a session
// (spec §6 "getSessionState").
func (c *Coordinator) GetSessionState(sessionID string) (realtime.Snapshot, error) {
	return c.tracker.Snapshot(sessionID)
}

// ListSessions returns the ids of sessions still in flight (spec §6
// "listSessions").
func (c *Coordinator) ListSessions() []string {
	return c.tracker.ActiveSessions()
}

// SubmitFeedback attaches a satisfaction rating to a session, resolving it
// to the agent(s) the RealtimeTracker has on record for that session before
// delegating to MetricsStore (spec §4.1 "feedback(sessionId, rating,
// comment)", §6 "submitFeedback").
func (c *Coordinator) SubmitFeedback(sessionID string, rating int, comment string) (FeedbackResult, error) {
	if rating < 1 || rating > 5 {
		return FeedbackResult{}, orcherr.New(orcherr.InvalidInput, "rating must be between 1 and 5")
	}

	snap, err := c.tracker.Snapshot(sessionID)
	if err != nil {
		return FeedbackResult{}, err
	}
	if len(snap.Agents) == 0 {
		return FeedbackResult{}, orcherr.New(orcherr.NotFound, "no agents tracked for session: "+sessionID)
	}

	var generated bool
	for agentID := range snap.Agents {
		if c.metrics.Feedback(agentID, rating, comment) {
			generated = true
		}
	}
	return FeedbackResult{OK: true, LearningInsightGenerated: generated}, nil
}

// GetConversation returns the message-level projection of a session's
// conversation history (spec §6 "getConversation").
func (c *Coordinator) GetConversation(sessionID string) convmemory.Summary {
	return c.memory.SessionSummary(sessionID)
}

// SearchKnowledge exposes the KnowledgeRetriever directly, bypassing the
// full execution FSM (spec §6 "searchKnowledge").
func (c *Coordinator) SearchKnowledge(ctx context.Context, query string) (knowledge.Response, error) {
	return c.retriever.Retrieve(ctx, query)
}

// Subscribe registers a live event sink for the RealtimeTracker (spec §6
// "subscribe").
func (c *Coordinator) Subscribe(subscriberID string, filter func(realtime.Event) bool, sink realtime.Sink) error {
	return c.tracker.Subscribe(subscriberID, filter, sink)
}

// Unsubscribe removes a previously registered event sink.
func (c *Coordinator) Unsubscribe(subscriberID string) {
	c.tracker.Unsubscribe(subscriberID)
}
