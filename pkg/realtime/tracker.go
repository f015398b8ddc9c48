package realtime

import (
	"sync"
	"time"

	"github.com/kadirpekel/orchestrator/pkg/clock"
	"github.com/kadirpekel/orchestrator/pkg/orcherr"
	"github.com/kadirpekel/orchestrator/pkg/ringbuf"
)

const (
	logRingCap          = 500
	subscriberQueueCap  = 256
	heartbeatInterval   = 30 * time.Second
	ackTimeout          = 90 * time.Second
	defaultRetention    = 10 * time.Minute
)

// EventType names the kind of Event emitted by the tracker.
type EventType string

const (
	EventSessionOpened      EventType = "session_opened"
	EventAgentStatus        EventType = "agent_status"
	EventAgentCollaboration EventType = "agent_collaboration"
	EventLog                EventType = "log"
	EventSessionClosed      EventType = "session_closed"
	EventLagged             EventType = "lagged"
	EventHeartbeat          EventType = "heartbeat"
)

// Event is one broadcast unit. Fields not relevant to Type are left zero.
type Event struct {
	Type      EventType
	SessionID string
	AgentID   string
	Status    string
	Progress  float64
	Message   string
	Details   map[string]any
	Timestamp time.Time
}

// agentRecord is the per-agent live state within a session.
type agentRecord struct {
	Phase    AgentPhase
	Progress float64
	Message  string
}

// sessionRecord is the live state of one tracked execution.
type sessionRecord struct {
	mu        sync.Mutex
	id        string
	query     string
	phase     SessionPhase
	agents    map[string]*agentRecord
	logs      *ringbuf.Ring[Event]
	openedAt  time.Time
	closedAt  time.Time
	outcome   string
	closed    bool
}

// Sink receives events for a subscription. Send is called from that
// subscription's own dispatch goroutine, never from broadcast itself, so a
// Sink that blocks only delays its own subscriber.
type Sink interface {
	Send(Event) error
}

// subscription is one subscriber's bounded outbound channel, dispatch
// goroutine and liveness state. broadcast only ever enqueues onto ch; the
// goroutine started by Subscribe is the sole reader and the only caller of
// sink.Send, so a slow Sink stalls its own subscriber, never the tracker.
type subscription struct {
	id        string
	filter    func(Event) bool
	sink      Sink
	ch        chan Event
	enqueueMu sync.Mutex // serializes the drop-oldest swap in enqueue

	mu        sync.Mutex // guards lastAckOK, written by the dispatch goroutine
	lastAckOK time.Time

	closeOnce sync.Once
	closed    chan struct{}
}

// Tracker is the RealtimeTracker component.
type Tracker struct {
	mu            sync.RWMutex
	sessions      map[string]*sessionRecord
	subscriptions map[string]*subscription
	clock         clock.Clock
	retention     time.Duration
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the clock source (tests use clock.Fake).
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithRetention overrides the default 10-minute post-close GC retention.
func WithRetention(d time.Duration) Option {
	return func(t *Tracker) { t.retention = d }
}

// New creates an empty Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{
		sessions:      make(map[string]*sessionRecord),
		subscriptions: make(map[string]*subscription),
		clock:         clock.NewSystem(),
		retention:     defaultRetention,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// OpenSession initializes session state and emits session_opened.
func (t *Tracker) OpenSession(sessionID, query string, agentIDs []string) error {
	if sessionID == "" {
		return orcherr.New(orcherr.InvalidInput, "sessionID cannot be empty")
	}

	s := &sessionRecord{
		id:       sessionID,
		query:    query,
		phase:    SessionQueued,
		agents:   make(map[string]*agentRecord, len(agentIDs)),
		logs:     ringbuf.New[Event](logRingCap),
		openedAt: t.clock.Now(),
	}
	for _, id := range agentIDs {
		s.agents[id] = &agentRecord{Phase: AgentIdle}
	}

	t.mu.Lock()
	t.sessions[sessionID] = s
	t.mu.Unlock()

	t.broadcast(Event{Type: EventSessionOpened, SessionID: sessionID, Timestamp: t.clock.Now()})
	return nil
}

func (t *Tracker) getSession(sessionID string) (*sessionRecord, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sessions[sessionID]
	if !ok {
		return nil, orcherr.New(orcherr.NotFound, "session not found: "+sessionID)
	}
	return s, nil
}

// SetAgentStatus transitions an agent's phase and emits agent_status. The
// session phase is advanced alongside when the agent transition implies a
// session-level change (e.g. first agent entering processing moves the
// session out of analyzing).
func (t *Tracker) SetAgentStatus(sessionID, agentID string, phase AgentPhase, progress float64, message string) error {
	s, err := t.getSession(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	ar, ok := s.agents[agentID]
	if !ok {
		ar = &agentRecord{Phase: AgentIdle}
		s.agents[agentID] = ar
	}
	if ar.Phase != phase && !CanTransitionAgent(ar.Phase, phase) {
		s.mu.Unlock()
		return orcherr.New(orcherr.InvalidInput, "illegal agent phase transition")
	}
	ar.Phase = phase
	ar.Progress = progress
	ar.Message = message
	t.advanceSessionPhaseLocked(s, phase)
	s.mu.Unlock()

	t.broadcast(Event{
		Type: EventAgentStatus, SessionID: sessionID, AgentID: agentID,
		Status: string(phase), Progress: progress, Message: message, Timestamp: t.clock.Now(),
	})
	return nil
}

// advanceSessionPhaseLocked mirrors the per-agent transition into the
// session-level phase. Caller must hold s.mu.
func (t *Tracker) advanceSessionPhaseLocked(s *sessionRecord, agentPhase AgentPhase) {
	switch agentPhase {
	case AgentAnalyzing:
		if s.phase == SessionQueued {
			s.phase = SessionAnalyzing
		}
	case AgentProcessing:
		if s.phase == SessionAnalyzing || s.phase == SessionCollaborating {
			s.phase = SessionProcessing
		}
	case AgentCollaborating:
		if s.phase == SessionProcessing {
			s.phase = SessionCollaborating
		}
	case AgentError:
		s.phase = SessionFailed
	}
}

// RecordCollaboration emits agent_collaboration.
func (t *Tracker) RecordCollaboration(sessionID, primaryAgentID, secondaryAgentID, collabType, reason string) error {
	if _, err := t.getSession(sessionID); err != nil {
		return err
	}
	t.broadcast(Event{
		Type: EventAgentCollaboration, SessionID: sessionID, AgentID: primaryAgentID,
		Message: reason, Details: map[string]any{"secondary_agent_id": secondaryAgentID, "type": collabType},
		Timestamp: t.clock.Now(),
	})
	return nil
}

// AppendLog appends to the bounded per-session log ring (cap 500).
func (t *Tracker) AppendLog(sessionID, level, agentID, message string, details map[string]any) error {
	s, err := t.getSession(sessionID)
	if err != nil {
		return err
	}
	evt := Event{
		Type: EventLog, SessionID: sessionID, AgentID: agentID,
		Status: level, Message: message, Details: details, Timestamp: t.clock.Now(),
	}
	s.mu.Lock()
	s.logs.Push(evt)
	s.mu.Unlock()

	t.broadcast(evt)
	return nil
}

// CloseSession emits the terminal event and marks the session for GC after
// the configured retention window.
func (t *Tracker) CloseSession(sessionID, outcome string) error {
	s, err := t.getSession(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.phase = SessionDone
	s.outcome = outcome
	s.closedAt = t.clock.Now()
	s.closed = true
	s.mu.Unlock()

	t.broadcast(Event{Type: EventSessionClosed, SessionID: sessionID, Message: outcome, Timestamp: t.clock.Now()})
	return nil
}

// GC removes sessions closed for longer than the retention window.
func (t *Tracker) GC() int {
	now := t.clock.Now()
	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for id, s := range t.sessions {
		s.mu.Lock()
		evict := s.closed && now.Sub(s.closedAt) > t.retention
		s.mu.Unlock()
		if evict {
			delete(t.sessions, id)
			removed++
		}
	}
	return removed
}

// ActiveSessions returns the ids of sessions not yet closed.
func (t *Tracker) ActiveSessions() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []string
	for id, s := range t.sessions {
		s.mu.Lock()
		closed := s.closed
		s.mu.Unlock()
		if !closed {
			out = append(out, id)
		}
	}
	return out
}

// Snapshot is a point-in-time view of one session's state.
type Snapshot struct {
	SessionID string
	Phase     SessionPhase
	Agents    map[string]AgentSnapshot
	Logs      []Event
	Outcome   string
}

// AgentSnapshot is one agent's state within a Snapshot.
type AgentSnapshot struct {
	Phase    AgentPhase
	Progress float64
	Message  string
}

// Snapshot returns the current state of sessionID for REST reads / resync
// after a subscriber falls behind.
func (t *Tracker) Snapshot(sessionID string) (Snapshot, error) {
	s, err := t.getSession(sessionID)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	agents := make(map[string]AgentSnapshot, len(s.agents))
	for id, ar := range s.agents {
		agents[id] = AgentSnapshot{Phase: ar.Phase, Progress: ar.Progress, Message: ar.Message}
	}
	return Snapshot{
		SessionID: s.id,
		Phase:     s.phase,
		Agents:    agents,
		Logs:      s.logs.Slice(),
		Outcome:   s.outcome,
	}, nil
}
