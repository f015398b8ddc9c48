// Package realtime implements the RealtimeTracker component (spec §4.7): a
// live view of every active execution, broadcast to bounded subscriber
// queues. Grounded on the session/event model of pkg/session/session.go
// (state + event history per session) and pkg/task/task.go's status
// transitions in the teacher repo.
package realtime

// SessionPhase is a session-level state in the spec §4.7 state machine.
type SessionPhase string

const (
	SessionQueued       SessionPhase = "queued"
	SessionAnalyzing    SessionPhase = "analyzing"
	SessionProcessing   SessionPhase = "processing"
	SessionCollaborating SessionPhase = "collaborating"
	SessionFinishing    SessionPhase = "finishing"
	SessionDone         SessionPhase = "done"
	SessionFailed       SessionPhase = "failed"
)

// validSessionTransitions encodes the session state machine from spec §4.7:
// queued → analyzing → processing → (collaborating ↔ processing)* →
// finishing → done, with failed reachable from any non-terminal state.
var validSessionTransitions = map[SessionPhase][]SessionPhase{
	SessionQueued:        {SessionAnalyzing, SessionFailed},
	SessionAnalyzing:     {SessionProcessing, SessionFailed},
	SessionProcessing:    {SessionCollaborating, SessionFinishing, SessionFailed},
	SessionCollaborating: {SessionProcessing, SessionFailed},
	SessionFinishing:     {SessionDone, SessionFailed},
	SessionDone:          {},
	SessionFailed:        {},
}

// CanTransitionSession reports whether from -> to is a legal session phase
// transition.
func CanTransitionSession(from, to SessionPhase) bool {
	for _, allowed := range validSessionTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsSessionTerminal reports whether phase has no outgoing transitions.
func IsSessionTerminal(phase SessionPhase) bool {
	return phase == SessionDone || phase == SessionFailed
}

// AgentPhase is a per-agent state in the spec §4.7 state machine.
type AgentPhase string

const (
	AgentIdle          AgentPhase = "idle"
	AgentAnalyzing     AgentPhase = "analyzing"
	AgentProcessing    AgentPhase = "processing"
	AgentCollaborating AgentPhase = "collaborating"
	AgentCompleted     AgentPhase = "completed"
	AgentError         AgentPhase = "error"
)

// validAgentTransitions encodes the per-agent state machine from spec §4.7:
// idle → analyzing → processing → (collaborating ↔ processing)* →
// completed, with terminal error reachable from any non-terminal state.
var validAgentTransitions = map[AgentPhase][]AgentPhase{
	AgentIdle:          {AgentAnalyzing, AgentError},
	AgentAnalyzing:     {AgentProcessing, AgentError},
	AgentProcessing:    {AgentCollaborating, AgentCompleted, AgentError},
	AgentCollaborating: {AgentProcessing, AgentError},
	AgentCompleted:     {},
	AgentError:         {},
}

// CanTransitionAgent reports whether from -> to is a legal per-agent phase
// transition.
func CanTransitionAgent(from, to AgentPhase) bool {
	for _, allowed := range validAgentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsAgentTerminal reports whether phase has no outgoing transitions.
func IsAgentTerminal(phase AgentPhase) bool {
	return phase == AgentCompleted || phase == AgentError
}
