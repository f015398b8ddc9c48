// Package convmemory implements the ConversationMemory component (spec
// §4.2): an in-RAM, bounded per-session message log with a compact context
// projection, grounded on the per-session locking idiom of pkg/session and
// the service-shaped API of pkg/memory in the teacher repo.
package convmemory

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/kadirpekel/orchestrator/pkg/clock"
)

// defaultMaxMessages is spec §4.2's default N for per-session eviction.
const defaultMaxMessages = 10

// contextWindow is the number of most recent messages context() projects.
const contextWindow = 6

// assistantTruncateLen is the max length of an assistant line in context().
const assistantTruncateLen = 200

// Message is one turn in a session's history.
type Message struct {
	Role      string // "user", "assistant", "system"
	Content   string
	AgentName string // optional, set for assistant turns attributed to an agent
	Timestamp time.Time
}

// session holds one conversation's bounded message ring plus its own lock,
// so concurrent appends to distinct sessions never contend (spec §4.2
// invariant, §5 "ConversationMemory: per-session mutex").
type session struct {
	mu       sync.Mutex
	messages []Message
	maxSize  int
	firstTs  time.Time
	lastTs   time.Time
}

func (s *session) append(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.messages) == 0 {
		s.firstTs = msg.Timestamp
	}
	s.lastTs = msg.Timestamp

	s.messages = append(s.messages, msg)
	if len(s.messages) > s.maxSize {
		s.messages = s.messages[len(s.messages)-s.maxSize:]
	}
}

// Summary is the result of summary(sessionId).
type Summary struct {
	MessageCount int
	FirstTs      time.Time
	LastTs       time.Time
}

// Memory is the ConversationMemory component.
type Memory struct {
	mu          sync.RWMutex
	sessions    map[string]*session
	maxMessages int
	clock       clock.Clock
}

// Option configures a Memory instance.
type Option func(*Memory)

// WithMaxMessages overrides the default per-session cap of 10.
func WithMaxMessages(n int) Option {
	return func(m *Memory) {
		if n > 0 {
			m.maxMessages = n
		}
	}
}

// WithClock overrides the clock source (tests use clock.Fake).
func WithClock(c clock.Clock) Option {
	return func(m *Memory) { m.clock = c }
}

// New creates an empty Memory with the given options.
func New(opts ...Option) *Memory {
	m := &Memory{
		sessions:    make(map[string]*session),
		maxMessages: defaultMaxMessages,
		clock:       clock.NewSystem(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory) sessionFor(sessionID string) *session {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		return s
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok = m.sessions[sessionID]; ok {
		return s
	}
	s = &session{maxSize: m.maxMessages}
	m.sessions[sessionID] = s
	return s
}

// Append records a new turn, evicting the oldest message if the session
// exceeds its bound. O(1) amortized.
func (m *Memory) Append(sessionID, role, content, agentName string) {
	m.sessionFor(sessionID).append(Message{
		Role:      role,
		Content:   content,
		AgentName: agentName,
		Timestamp: m.clock.Now(),
	})
}

// Context projects the last 6 messages of a session as newline-joined lines
// formatted "<Role>[ (agentName)]: <content>", truncating assistant content
// to 200 characters. Missing sessions yield an empty string.
func (m *Memory) Context(sessionID string) string {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return ""
	}

	s.mu.Lock()
	msgs := append([]Message(nil), s.messages...)
	s.mu.Unlock()

	if len(msgs) > contextWindow {
		msgs = msgs[len(msgs)-contextWindow:]
	}

	lines := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		content := msg.Content
		if strings.EqualFold(msg.Role, "assistant") && len(content) > assistantTruncateLen {
			content = content[:assistantTruncateLen]
		}
		role := capitalize(msg.Role)
		if msg.AgentName != "" {
			lines = append(lines, fmt.Sprintf("%s (%s): %s", role, msg.AgentName, content))
		} else {
			lines = append(lines, fmt.Sprintf("%s: %s", role, content))
		}
	}
	return strings.Join(lines, "\n")
}

// SessionSummary returns message count and first/last timestamps for a
// session. Missing sessions yield a zero Summary.
func (m *Memory) SessionSummary(sessionID string) Summary {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return Summary{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		MessageCount: len(s.messages),
		FirstTs:      s.firstTs,
		LastTs:       s.lastTs,
	}
}

// Prune removes sessions whose last activity is older than olderThan ago.
func (m *Memory) Prune(olderThan time.Duration) int {
	cutoff := m.clock.Now().Add(-olderThan)

	m.mu.Lock()
	defer m.mu.Unlock()

	pruned := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		idle := s.lastTs.Before(cutoff)
		s.mu.Unlock()
		if idle {
			delete(m.sessions, id)
			pruned++
		}
	}
	return pruned
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
