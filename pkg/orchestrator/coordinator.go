package orchestrator

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"math/rand"
	"strings"
	"time"

	"github.com/kadirpekel/orchestrator/pkg/agentregistry"
	"github.com/kadirpekel/orchestrator/pkg/clock"
	"github.com/kadirpekel/orchestrator/pkg/convmemory"
	"github.com/kadirpekel/orchestrator/pkg/knowledge"
	"github.com/kadirpekel/orchestrator/pkg/llmpool"
	"github.com/kadirpekel/orchestrator/pkg/metrics"
	"github.com/kadirpekel/orchestrator/pkg/orcherr"
	"github.com/kadirpekel/orchestrator/pkg/realtime"
	"github.com/kadirpekel/orchestrator/pkg/router"
)

// cancelGracePeriod is spec §5's "must complete within 2s of cancellation,
// else report cancel_timeout".
const cancelGracePeriod = 2 * time.Second

// retryJitterBase is spec §4.8's "at most one retry of an idempotent
// sub-op, with 250ms jitter".
const retryJitterBase = 250 * time.Millisecond

// Coordinator is the ExecutionCoordinator component (spec §4.8): it owns no
// state of its own beyond configuration, delegating to the other eight
// components wired in at construction.
type Coordinator struct {
	registry  *agentregistry.Registry
	router    *router.Router
	pool      *llmpool.Pool
	retriever *knowledge.Retriever
	memory    *convmemory.Memory
	metrics   *metrics.Store
	tracker   *realtime.Tracker

	clk    clock.Clock
	idgen  clock.IDGen
	budgets Budgets
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithBudgets overrides the default execution budgets.
func WithBudgets(b Budgets) Option {
	return func(c *Coordinator) { c.budgets = b.withDefaults() }
}

// WithClock overrides the clock/id source (tests use clock.Fake for both).
func WithClock(c clock.Clock, idgen clock.IDGen) Option {
	return func(co *Coordinator) {
		co.clk = c
		co.idgen = idgen
	}
}

// New wires the ExecutionCoordinator over the other eight components.
func New(
	registry *agentregistry.Registry,
	rt *router.Router,
	pool *llmpool.Pool,
	retriever *knowledge.Retriever,
	memory *convmemory.Memory,
	metricsStore *metrics.Store,
	tracker *realtime.Tracker,
	opts ...Option,
) *Coordinator {
	sys := clock.NewSystem()
	c := &Coordinator{
		registry:  registry,
		router:    rt,
		pool:      pool,
		retriever: retriever,
		memory:    memory,
		metrics:   metricsStore,
		tracker:   tracker,
		clk:       sys,
		idgen:     sys,
		budgets:   defaultBudgets(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// procResult is the payload passed back from the async FSM run.
type procResult struct {
	outcome Outcome
	err     error
}

// ProcessQuery drives one query through Intake, Route, Plan, Retrieve,
// Execute, Synthesize and Commit (spec §4.8). It runs the FSM on a
// background goroutine so that, if ctx is cancelled, the caller still gets
// a bounded wait: either the FSM honors cancellation within
// cancelGracePeriod, or ProcessQuery itself gives up and reports
// cancel_timeout (spec §5 "Cancellation propagation").
func (c *Coordinator) ProcessQuery(ctx context.Context, sessionID, query string) (Outcome, error) {
	resultCh := make(chan procResult, 1)
	go func() {
		outcome, err := c.run(ctx, sessionID, query)
		resultCh <- procResult{outcome, err}
	}()

	select {
	case r := <-resultCh:
		return r.outcome, r.err
	case <-ctx.Done():
		select {
		case r := <-resultCh:
			return r.outcome, r.err
		case <-time.After(cancelGracePeriod):
			err := orcherr.New(orcherr.Cancelled, "cancel_timeout: execution did not stop within the grace period")
			return Outcome{SessionID: sessionID, Phase: PhaseFailed, Err: err}, err
		}
	}
}

// run is the synchronous FSM body.
func (c *Coordinator) run(ctx context.Context, sessionID, query string) (Outcome, error) {
	phase := PhaseIntake

	// ---- Intake ----
	query = strings.TrimSpace(query)
	if query == "" {
		return Outcome{SessionID: sessionID, Phase: PhaseFailed}, orcherr.New(orcherr.InvalidInput, "query cannot be empty")
	}
	if sessionID == "" {
		sessionID = c.idgen.NewID()
	}

	// ---- Route ----
	phase = advance(phase, PhaseRoute)
	matches, err := c.router.Route(query)
	if err != nil {
		return c.fail(sessionID, err)
	}
	if len(matches) > c.budgets.MaxParallelAgents {
		matches = matches[:c.budgets.MaxParallelAgents]
	}

	agentIDs := make([]string, len(matches))
	for i, m := range matches {
		agentIDs[i] = m.Agent.ID
	}
	if err := c.tracker.OpenSession(sessionID, query, agentIDs); err != nil {
		return c.fail(sessionID, err)
	}

	// ---- Plan ----
	phase = advance(phase, PhasePlan)
	features := knowledge.DetectFeatures(query)
	cplx := complexity(query, features)
	collaborative := collaborationEnabled(cplx, len(matches))
	convContext := c.memory.Context(sessionID)

	// ---- Retrieve ----
	phase = advance(phase, PhaseRetrieve)
	rctx, cancel := context.WithTimeout(ctx, c.budgets.ExecutionTimeout)
	kresp, err := c.retrieveWithRetry(rctx, query)
	cancel()
	if err != nil {
		_ = c.tracker.AppendLog(sessionID, "warn", "", "knowledge retrieval failed: "+err.Error(), nil)
	}

	// ---- Execute ----
	phase = advance(phase, PhaseExecute)
	if collaborative && len(matches) > 1 {
		_ = c.tracker.RecordCollaboration(sessionID, matches[0].Agent.ID, matches[1].Agent.ID, "parallel", "complexity/agent-count crossed the collaboration threshold")
	}
	results := c.executeAll(ctx, sessionID, query, cplx, convContext, kresp.Results, matches, collaborative)

	// ---- Synthesize ----
	phase = advance(phase, PhaseSynthesize)
	finalText, citations, partial, execErr := synthesize(results, kresp.Results, c.clk.Now())

	// ---- Commit ----
	phase = advance(phase, PhaseCommit)
	outcome := Outcome{
		SessionID:     sessionID,
		Complexity:    cplx,
		Collaborative: collaborative,
		Results:       results,
		FinalText:     finalText,
		Citations:     citations,
		PartialFailure: partial,
	}

	if execErr != nil && finalText == "" {
		outcome.Phase = PhaseFailed
		outcome.Err = execErr
		_ = c.tracker.CloseSession(sessionID, "failed")
		return outcome, execErr
	}

	c.memory.Append(sessionID, "user", query, "")
	c.memory.Append(sessionID, "assistant", finalText, leadAgentName(matches))

	outcomeLabel := "success"
	if partial {
		outcomeLabel = "partial_failure"
	}
	_ = c.tracker.CloseSession(sessionID, outcomeLabel)

	phase = advance(phase, PhaseDone)
	outcome.Phase = phase
	if partial {
		return outcome, orcherr.New(orcherr.PartialFailure, "one or more agents failed; returning best-effort synthesis")
	}
	return outcome, nil
}

// advance records the FSM transition; illegal transitions never occur in
// practice since run() only calls this along the happy path, but the check
// keeps the state machine honest against future edits.
func advance(from, to Phase) Phase {
	if !canTransition(from, to) {
		return from
	}
	return to
}

func (c *Coordinator) fail(sessionID string, err error) (Outcome, error) {
	return Outcome{SessionID: sessionID, Phase: PhaseFailed, Err: err}, err
}

// retrieveWithRetry calls the retriever once, and once more with 250ms(+
// jitter) backoff if the first attempt returned a retriable error (spec
// §4.8 "Retry policy": idempotent sub-ops retried at most once).
func (c *Coordinator) retrieveWithRetry(ctx context.Context, query string) (knowledge.Response, error) {
	resp, err := c.retriever.Retrieve(ctx, query)
	if err == nil || !orcherr.IsRetriable(orcherr.KindOf(err)) {
		return resp, err
	}

	jitter := time.Duration(rand.Int63n(int64(retryJitterBase)))
	select {
	case <-time.After(retryJitterBase + jitter):
	case <-ctx.Done():
		return resp, err
	}
	return c.retriever.Retrieve(ctx, query)
}

// executeAll runs one invocation per matched agent. By default agents run
// sequentially, in match order; only when collaborative is true and the
// matched agents' tool sets are disjoint (spec §4.8 step 5) do they run
// concurrently, bounded to MaxParallelAgents in flight, each under its own
// per-agent timeout derived from ctx.
func (c *Coordinator) executeAll(ctx context.Context, sessionID, query string, cplx float64, convContext string, kresults []knowledge.Result, matches []router.Match, collaborative bool) []AgentResult {
	results := make([]AgentResult, len(matches))

	parallel := collaborative
	toolOwner := make(map[string]string)
	for _, m := range matches {
		for _, tool := range m.Agent.Tools {
			if owner, ok := toolOwner[tool]; ok && owner != m.Agent.ID {
				parallel = false
			}
			toolOwner[tool] = m.Agent.ID
		}
	}

	if !parallel {
		for i, m := range matches {
			results[i] = c.executeAgent(ctx, sessionID, query, cplx, convContext, kresults, m)
		}
		return results
	}

	sem := make(chan struct{}, c.budgets.MaxParallelAgents)
	done := make(chan int, len(matches))

	for i, m := range matches {
		i, m := i, m
		sem <- struct{}{}
		go func() {
			defer func() { <-sem; done <- i }()
			results[i] = c.executeAgent(ctx, sessionID, query, cplx, convContext, kresults, m)
		}()
	}
	for range matches {
		<-done
	}
	return results
}

// executeAgent runs a single agent's turn: select an LLM capability,
// invoke it with fallback, record metrics, and reflect status transitions
// into the RealtimeTracker.
func (c *Coordinator) executeAgent(ctx context.Context, sessionID, query string, cplx float64, convContext string, kresults []knowledge.Result, m router.Match) AgentResult {
	a := m.Agent
	_ = c.tracker.SetAgentStatus(sessionID, a.ID, realtime.AgentAnalyzing, 0.1, "planning")

	sys := systemPrompt(a)
	user := assemblePrompt(convContext, kresults, query)

	_ = c.tracker.SetAgentStatus(sessionID, a.ID, realtime.AgentProcessing, 0.4, "invoking model")

	actx, cancel := context.WithTimeout(ctx, c.budgets.PerAgentTimeout)
	defer cancel()

	selReq := selectionRequestFor(a.Domain, cplx)
	req := llmpool.Request{SystemPrompt: sys, UserPrompt: user, MaxTokens: c.budgets.MaxOutputTokens}

	start := time.Now()
	resp, capability, invokeErr := c.pool.InvokeWithFallback(actx, selReq, req)
	elapsed := time.Since(start)

	record := metrics.InteractionRecord{
		SessionID:      sessionID,
		AgentID:        a.ID,
		QueryHash:      queryHash(query),
		ResponseTimeMS: elapsed.Milliseconds(),
		Success:        invokeErr == nil,
		Timestamp:      c.clk.Now(),
	}
	if capability != nil {
		record.LLMCapability = capability.Name
	}

	if invokeErr != nil {
		record.ErrorKind = string(orcherr.KindOf(invokeErr))
		c.metrics.Record(ctx, record)
		_ = c.tracker.SetAgentStatus(sessionID, a.ID, realtime.AgentError, 1.0, invokeErr.Error())
		return AgentResult{AgentID: a.ID, ResponseTime: elapsed, Err: invokeErr}
	}

	record.Quality = 1.0
	record.TokensUsed = int64(resp.TokensIn + resp.TokensOut)
	c.metrics.Record(ctx, record)

	_ = c.tracker.SetAgentStatus(sessionID, a.ID, realtime.AgentCompleted, 1.0, "done")

	return AgentResult{
		AgentID:      a.ID,
		Text:         resp.Text,
		Capability:   record.LLMCapability,
		TokensIn:     resp.TokensIn,
		TokensOut:    resp.TokensOut,
		ResponseTime: elapsed,
	}
}

func leadAgentName(matches []router.Match) string {
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Agent.Name
}

func queryHash(query string) string {
	sum := md5.Sum([]byte(strings.ToLower(strings.TrimSpace(query))))
	return hex.EncodeToString(sum[:])
}
