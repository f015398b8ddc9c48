// Package orchestrator implements the ExecutionCoordinator component (spec
// §4.8): the top-level FSM that drives one query through Intake, Route,
// Plan, Retrieve, Execute, Synthesize and Commit, wiring together every
// other component. Grounded on the state-machine shape of pkg/task.Task and
// the owned-fields-plus-scratchpad idiom of pkg/reasoning.ReasoningState in
// the teacher repo.
package orchestrator

import (
	"time"

	"github.com/kadirpekel/orchestrator/pkg/knowledge"
	"github.com/kadirpekel/orchestrator/pkg/llmpool"
)

// Phase is one step of the ExecutionCoordinator's FSM (spec §4.8).
type Phase string

const (
	PhaseIntake      Phase = "intake"
	PhaseRoute       Phase = "route"
	PhasePlan        Phase = "plan"
	PhaseRetrieve    Phase = "retrieve"
	PhaseExecute     Phase = "execute"
	PhaseSynthesize  Phase = "synthesize"
	PhaseCommit      Phase = "commit"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

// validPhaseTransitions is the linear happy path plus "failed" reachable
// from any non-terminal phase (spec §4.8 "any phase may transition directly
// to failed on a fatal error").
var validPhaseTransitions = map[Phase][]Phase{
	PhaseIntake:     {PhaseRoute, PhaseFailed},
	PhaseRoute:      {PhasePlan, PhaseFailed},
	PhasePlan:       {PhaseRetrieve, PhaseFailed},
	PhaseRetrieve:   {PhaseExecute, PhaseFailed},
	PhaseExecute:    {PhaseSynthesize, PhaseFailed},
	PhaseSynthesize: {PhaseCommit, PhaseFailed},
	PhaseCommit:     {PhaseDone, PhaseFailed},
	PhaseDone:       {},
	PhaseFailed:     {},
}

// canTransition reports whether from -> to is a legal phase transition.
func canTransition(from, to Phase) bool {
	for _, allowed := range validPhaseTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// isTerminal reports whether phase has no outgoing transitions.
func isTerminal(phase Phase) bool {
	return phase == PhaseDone || phase == PhaseFailed
}

// Budgets are the tunable ceilings from spec §4.8/§5. Zero fields fall back
// to their documented defaults.
type Budgets struct {
	PerAgentTimeout   time.Duration // default 60s
	ExecutionTimeout  time.Duration // default 120s
	MaxOutputTokens   int           // default 4096
	MaxParallelAgents int           // default 3
}

// defaultBudgets matches spec §4.8 exactly.
func defaultBudgets() Budgets {
	return Budgets{
		PerAgentTimeout:   60 * time.Second,
		ExecutionTimeout:  120 * time.Second,
		MaxOutputTokens:   4096,
		MaxParallelAgents: 3,
	}
}

// withDefaults fills zero fields of b with the spec defaults.
func (b Budgets) withDefaults() Budgets {
	d := defaultBudgets()
	if b.PerAgentTimeout <= 0 {
		b.PerAgentTimeout = d.PerAgentTimeout
	}
	if b.ExecutionTimeout <= 0 {
		b.ExecutionTimeout = d.ExecutionTimeout
	}
	if b.MaxOutputTokens <= 0 {
		b.MaxOutputTokens = d.MaxOutputTokens
	}
	if b.MaxParallelAgents <= 0 {
		b.MaxParallelAgents = d.MaxParallelAgents
	}
	return b
}

// AgentResult is one agent's contribution to the shared scratchpad (spec
// §4.8 "Execute").
type AgentResult struct {
	AgentID      string
	Text         string
	Capability   string
	TokensIn     int
	TokensOut    int
	ResponseTime time.Duration
	Err          error
}

// Outcome is the terminal result of ProcessQuery.
type Outcome struct {
	SessionID      string
	Phase          Phase
	Complexity     float64
	Collaborative  bool
	Results        []AgentResult
	FinalText      string
	Citations      []knowledge.Citation
	PartialFailure bool
	Err            error
}

// FeedbackResult is the return shape of SubmitFeedback (spec §6
// "submitFeedback(sessionId, rating, comment?) -> {ok, learningInsightGenerated}").
type FeedbackResult struct {
	OK                       bool
	LearningInsightGenerated bool
}

// selectionRequestFor builds an llmpool.SelectionRequest from a detected
// complexity score and a task type (the caller passes the agent's domain).
func selectionRequestFor(taskType string, complexity float64) llmpool.SelectionRequest {
	return llmpool.SelectionRequest{TaskType: taskType, Complexity: complexity}
}
