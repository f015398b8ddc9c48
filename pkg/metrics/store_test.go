package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/kadirpekel/orchestrator/pkg/clock"
)

func TestStore_RecordAndSummary(t *testing.T) {
	st := New()
	ctx := context.Background()

	st.Record(ctx, InteractionRecord{AgentID: "a1", Quality: 0.8, ResponseTimeMS: 100, Success: true})
	st.Record(ctx, InteractionRecord{AgentID: "a1", Quality: 0.6, ResponseTimeMS: 200, Success: false})

	summary := st.Summary("a1", 0)
	if summary.Interactions != 2 {
		t.Fatalf("Interactions = %d, want 2", summary.Interactions)
	}
	if summary.SuccessRate != 0.5 {
		t.Errorf("SuccessRate = %v, want 0.5", summary.SuccessRate)
	}
	wantQuality := 0.7
	if summary.AvgQuality != wantQuality {
		t.Errorf("AvgQuality = %v, want %v", summary.AvgQuality, wantQuality)
	}
}

func TestStore_FeedbackGeneratesInsights(t *testing.T) {
	st := New()
	if generated := st.Feedback("a1", 1, "bad experience"); !generated {
		t.Error("Feedback(rating=1) generated = false, want true")
	}
	if generated := st.Feedback("a1", 5, "great!"); !generated {
		t.Error("Feedback(rating=5) generated = false, want true")
	}
	if generated := st.Feedback("a1", 3, "fine"); generated {
		t.Error("Feedback(rating=3) generated = true, want false")
	}

	low := st.Insights(InsightPending, 0)
	var sawLow, sawHigh bool
	for _, ins := range low {
		if ins.Type == "low_satisfaction" {
			sawLow = true
		}
		if ins.Type == "high_satisfaction" {
			sawHigh = true
		}
	}
	if !sawLow {
		t.Error("expected a low_satisfaction insight for rating 1")
	}
	if !sawHigh {
		t.Error("expected a high_satisfaction insight for rating 5")
	}
}

func TestStore_SkillUpdateClampedAndMonotonicUsage(t *testing.T) {
	st := New()
	st.SkillUpdate("a1", "routing", 0.9)
	st.SkillUpdate("a1", "routing", 0.9)

	state := st.stateFor("a1")
	state.mu.Lock()
	sv := state.skills["routing"]
	state.mu.Unlock()

	if sv.value != 1.0 {
		t.Errorf("skill value = %v, want clamped to 1.0", sv.value)
	}
	if sv.usageCount != 2 {
		t.Errorf("usageCount = %d, want 2", sv.usageCount)
	}
}

func TestStore_JournalRetriesOnSinkFailure(t *testing.T) {
	fc := clock.NewFake(time.Unix(0, 0), time.Second, "m")
	failing := &failingSink{failUntil: 1}
	st := New(WithSink(failing), WithClock(fc))

	st.Record(context.Background(), InteractionRecord{AgentID: "a1", Success: true})
	if st.JournalLen() != 1 {
		t.Fatalf("JournalLen() = %d, want 1 after sink failure", st.JournalLen())
	}

	// advance clock well past the backoff window and drain
	for i := 0; i < 5; i++ {
		fc.Now()
	}
	st.DrainJournal(context.Background())
	if st.JournalLen() != 0 {
		t.Errorf("JournalLen() = %d, want 0 after successful drain", st.JournalLen())
	}
}

type failingSink struct {
	calls     int
	failUntil int
}

func (f *failingSink) WriteInteraction(ctx context.Context, r InteractionRecord) error {
	f.calls++
	if f.calls <= f.failUntil {
		return context.DeadlineExceeded
	}
	return nil
}

func (f *failingSink) WriteInsight(ctx context.Context, i LearningInsight) error { return nil }

func TestStore_RoutingDriftDetection(t *testing.T) {
	st := New()
	base := time.Unix(0, 0)

	// Week 1: mostly successful (20 points, 95% success).
	for i := 0; i < 19; i++ {
		st.Record(context.Background(), InteractionRecord{AgentID: "a1", Success: true, Timestamp: base})
	}
	st.Record(context.Background(), InteractionRecord{AgentID: "a1", Success: false, Timestamp: base})

	// Week 2: success rate drops sharply.
	week2 := base.Add(7 * 24 * time.Hour)
	for i := 0; i < 10; i++ {
		st.Record(context.Background(), InteractionRecord{AgentID: "a1", Success: false, Timestamp: week2})
	}

	insights := st.Insights(InsightPending, 0)
	var sawDrift bool
	for _, ins := range insights {
		if ins.Type == "routing_drift" {
			sawDrift = true
		}
	}
	if !sawDrift {
		t.Error("expected a routing_drift insight after a sharp week-over-week success drop")
	}
}
