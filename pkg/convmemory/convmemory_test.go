package convmemory

import (
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kadirpekel/orchestrator/pkg/clock"
)

func TestMemory_AppendEvictsOldest(t *testing.T) {
	m := New(WithMaxMessages(3), WithClock(clock.NewFake(time.Unix(0, 0), time.Second, "m")))
	for i := 0; i < 5; i++ {
		m.Append("s1", "user", "msg-"+strconv.Itoa(i), "")
	}

	summary := m.SessionSummary("s1")
	if summary.MessageCount != 3 {
		t.Fatalf("MessageCount = %d, want 3", summary.MessageCount)
	}

	ctx := m.Context("s1")
	if strings.Contains(ctx, "msg-0") || strings.Contains(ctx, "msg-1") {
		t.Errorf("Context() still contains evicted messages: %q", ctx)
	}
	if !strings.Contains(ctx, "msg-4") {
		t.Errorf("Context() missing most recent message: %q", ctx)
	}
}

func TestMemory_ContextFormat(t *testing.T) {
	m := New(WithClock(clock.NewFake(time.Unix(0, 0), time.Second, "m")))
	m.Append("s1", "user", "hello", "")
	m.Append("s1", "assistant", "hi there", "billing_agent")

	ctx := m.Context("s1")
	lines := strings.Split(ctx, "\n")
	if len(lines) != 2 {
		t.Fatalf("Context() = %q, want 2 lines", ctx)
	}
	if lines[0] != "User: hello" {
		t.Errorf("line 0 = %q, want %q", lines[0], "User: hello")
	}
	if lines[1] != "Assistant (billing_agent): hi there" {
		t.Errorf("line 1 = %q, want %q", lines[1], "Assistant (billing_agent): hi there")
	}
}

func TestMemory_ContextTruncatesAssistantContent(t *testing.T) {
	m := New(WithClock(clock.NewFake(time.Unix(0, 0), time.Second, "m")))
	long := strings.Repeat("x", 300)
	m.Append("s1", "assistant", long, "")

	ctx := m.Context("s1")
	content := strings.TrimPrefix(ctx, "Assistant: ")
	if len(content) != assistantTruncateLen {
		t.Errorf("truncated content length = %d, want %d", len(content), assistantTruncateLen)
	}
}

func TestMemory_ContextMissingSessionIsEmpty(t *testing.T) {
	m := New()
	if got := m.Context("nope"); got != "" {
		t.Errorf("Context() for missing session = %q, want empty", got)
	}
}

func TestMemory_ContextOnlyLastSix(t *testing.T) {
	m := New(WithClock(clock.NewFake(time.Unix(0, 0), time.Second, "m")))
	for i := 0; i < 10; i++ {
		m.Append("s1", "user", "m"+strconv.Itoa(i), "")
	}
	ctx := m.Context("s1")
	if strings.Count(ctx, "\n")+1 != 6 {
		t.Errorf("Context() returned %d lines, want 6", strings.Count(ctx, "\n")+1)
	}
}

func TestMemory_PruneIdleSessions(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0), time.Minute, "m")
	m := New(WithClock(fc))
	m.Append("idle", "user", "hi", "")

	for i := 0; i < 20; i++ {
		fc.Now()
	}
	m.Append("active", "user", "hi", "")

	pruned := m.Prune(10 * time.Minute)
	if pruned != 1 {
		t.Errorf("Prune() pruned %d sessions, want 1", pruned)
	}
	if m.SessionSummary("active").MessageCount != 1 {
		t.Error("active session should survive prune")
	}
}

func TestMemory_ConcurrentAppendSameSessionKeepsAllMessages(t *testing.T) {
	m := New(WithMaxMessages(1000))
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			m.Append("s1", "user", strconv.Itoa(n), "")
		}(i)
	}
	wg.Wait()

	if m.SessionSummary("s1").MessageCount != 50 {
		t.Errorf("MessageCount = %d, want 50", m.SessionSummary("s1").MessageCount)
	}
}

func TestMemory_IndependentSessionsConcurrent(t *testing.T) {
	m := New()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			m.Append("session-"+strconv.Itoa(n), "user", "hi", "")
		}(i)
	}
	wg.Wait()

	for i := 0; i < 10; i++ {
		if m.SessionSummary("session-"+strconv.Itoa(i)).MessageCount != 1 {
			t.Errorf("session-%d MessageCount != 1", i)
		}
	}
}
