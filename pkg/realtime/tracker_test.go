package realtime

import (
	"sync"
	"testing"
	"time"

	"github.com/kadirpekel/orchestrator/pkg/clock"
)

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	fail   bool
}

func (s *recordingSink) Send(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errTest
	}
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) all() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

type testErr string

func (e testErr) Error() string { return string(e) }

const errTest = testErr("sink failure")

// waitForEvents polls until sink has received at least n events, since
// delivery now happens off a per-subscriber dispatch goroutine rather than
// inline with the call that triggered it.
func waitForEvents(t *testing.T, sink *recordingSink, n int) []Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if events := sink.all(); len(events) >= n {
			return events
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d event(s); got %d", n, len(sink.all()))
	return nil
}

func TestTracker_OpenSessionEmitsEvent(t *testing.T) {
	tr := New()
	sink := &recordingSink{}
	if err := tr.Subscribe("sub1", nil, sink); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := tr.OpenSession("s1", "hello", []string{"a1"}); err != nil {
		t.Fatalf("OpenSession() error = %v", err)
	}

	events := waitForEvents(t, sink, 1)
	if len(events) != 1 || events[0].Type != EventSessionOpened {
		t.Fatalf("events = %+v, want one session_opened", events)
	}
}

func TestTracker_AgentStatusTransitionsAndSessionPhase(t *testing.T) {
	tr := New()
	if err := tr.OpenSession("s1", "q", []string{"a1"}); err != nil {
		t.Fatal(err)
	}

	if err := tr.SetAgentStatus("s1", "a1", AgentAnalyzing, 0.1, "thinking"); err != nil {
		t.Fatalf("SetAgentStatus() error = %v", err)
	}
	if err := tr.SetAgentStatus("s1", "a1", AgentProcessing, 0.5, "working"); err != nil {
		t.Fatalf("SetAgentStatus() error = %v", err)
	}
	if err := tr.SetAgentStatus("s1", "a1", AgentCompleted, 1.0, "done"); err != nil {
		t.Fatalf("SetAgentStatus() error = %v", err)
	}

	snap, err := tr.Snapshot("s1")
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if snap.Agents["a1"].Phase != AgentCompleted {
		t.Errorf("agent phase = %v, want completed", snap.Agents["a1"].Phase)
	}
}

func TestTracker_IllegalTransitionRejected(t *testing.T) {
	tr := New()
	if err := tr.OpenSession("s1", "q", []string{"a1"}); err != nil {
		t.Fatal(err)
	}
	err := tr.SetAgentStatus("s1", "a1", AgentCompleted, 1.0, "")
	if err == nil {
		t.Fatal("expected error transitioning idle -> completed directly")
	}
}

func TestTracker_AppendLogBoundedRing(t *testing.T) {
	tr := New()
	if err := tr.OpenSession("s1", "q", nil); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < logRingCap+10; i++ {
		if err := tr.AppendLog("s1", "info", "", "msg", nil); err != nil {
			t.Fatal(err)
		}
	}
	snap, err := tr.Snapshot("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(snap.Logs) != logRingCap {
		t.Errorf("len(Logs) = %d, want %d", len(snap.Logs), logRingCap)
	}
}

func TestTracker_SubscriberOverflowDropsOldestAndLags(t *testing.T) {
	tr := New()
	sink := &recordingSink{}
	if err := tr.Subscribe("sub1", nil, sink); err != nil {
		t.Fatal(err)
	}
	if err := tr.OpenSession("s1", "q", nil); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < subscriberQueueCap+5; i++ {
		if err := tr.AppendLog("s1", "info", "", "msg", nil); err != nil {
			t.Fatal(err)
		}
	}

	events := waitForEvents(t, sink, 1)
	var sawLagged bool
	for _, e := range events {
		if e.Type == EventLagged {
			sawLagged = true
		}
	}
	if !sawLagged {
		t.Error("expected at least one lagged marker after overflowing the subscriber queue")
	}
}

// blockingSink blocks in Send until released, simulating a subscriber stuck
// on a slow network write.
type blockingSink struct {
	release chan struct{}
	sent    chan Event
}

func newBlockingSink() *blockingSink {
	return &blockingSink{release: make(chan struct{}), sent: make(chan Event, 16)}
}

func (s *blockingSink) Send(e Event) error {
	<-s.release
	s.sent <- e
	return nil
}

// TestTracker_SlowSubscriberDoesNotStallBroadcast proves that a subscriber
// whose Send blocks indefinitely cannot delay delivery to other subscribers
// or block the tracker call that triggered the broadcast (spec §4.7, §5,
// property P8).
func TestTracker_SlowSubscriberDoesNotStallBroadcast(t *testing.T) {
	tr := New()
	slow := newBlockingSink()
	fast := &recordingSink{}
	if err := tr.Subscribe("slow", nil, slow); err != nil {
		t.Fatal(err)
	}
	if err := tr.Subscribe("fast", nil, fast); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		if err := tr.OpenSession("s1", "q", nil); err != nil {
			t.Error(err)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("OpenSession blocked on a stuck subscriber")
	}

	waitForEvents(t, fast, 1)

	close(slow.release)
	select {
	case <-slow.sent:
	case <-time.After(time.Second):
		t.Fatal("slow subscriber never received its event after being released")
	}
}

func TestTracker_HeartbeatExpiresDeadSubscriber(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0), time.Minute, "rt")
	tr := New(WithClock(fc))
	sink := &recordingSink{fail: true}
	if err := tr.Subscribe("sub1", nil, sink); err != nil {
		t.Fatal(err)
	}

	// Advance the fake clock well past the 90s ack timeout via repeated
	// heartbeats (each Send fails, so lastAckOK never refreshes).
	for i := 0; i < 3; i++ {
		tr.Heartbeat()
	}

	tr.mu.RLock()
	_, stillSubscribed := tr.subscriptions["sub1"]
	tr.mu.RUnlock()
	if stillSubscribed {
		t.Error("expected dead subscriber to be evicted after ack timeout")
	}
}

func TestTracker_CloseSessionMarksDone(t *testing.T) {
	tr := New()
	if err := tr.OpenSession("s1", "q", nil); err != nil {
		t.Fatal(err)
	}
	if err := tr.CloseSession("s1", "success"); err != nil {
		t.Fatalf("CloseSession() error = %v", err)
	}
	if active := tr.ActiveSessions(); len(active) != 0 {
		t.Errorf("ActiveSessions() = %v, want empty after close", active)
	}
}

func TestTracker_GCEvictsAfterRetention(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0), time.Minute, "rt")
	tr := New(WithClock(fc), WithRetention(5*time.Minute))
	if err := tr.OpenSession("s1", "q", nil); err != nil {
		t.Fatal(err)
	}
	if err := tr.CloseSession("s1", "done"); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		fc.Now()
	}
	if removed := tr.GC(); removed != 1 {
		t.Errorf("GC() removed %d, want 1", removed)
	}
}
