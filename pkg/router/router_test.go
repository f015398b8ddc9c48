package router

import (
	"testing"
	"time"

	"github.com/kadirpekel/orchestrator/pkg/agentregistry"
	"github.com/kadirpekel/orchestrator/pkg/clock"
	"github.com/kadirpekel/orchestrator/pkg/orcherr"
)

func newTestRegistry(t *testing.T) *agentregistry.Registry {
	t.Helper()
	r := agentregistry.New(nil, agentregistry.WithClock(clock.NewFake(time.Unix(0, 0), time.Second, "r")))
	agents := []*agentregistry.Agent{
		{ID: "billing", Name: "billing_agent", IsActive: true, Keywords: []string{"billing", "invoice"}, SpecializationScore: 0.5},
		{ID: "security", Name: "security_agent", IsActive: true, Keywords: []string{"security", "breach"}, SpecializationScore: 0.9},
		{ID: "orchestrator", Name: "orchestrator", IsActive: true, Keywords: nil},
		{ID: "technical_support", Name: "technical_support", IsActive: true, Keywords: []string{"support"}},
	}
	for _, a := range agents {
		if err := r.Create(a); err != nil {
			t.Fatalf("Create(%s) error = %v", a.ID, err)
		}
	}
	return r
}

func TestRouter_DirectKeywordMatch(t *testing.T) {
	reg := newTestRegistry(t)
	rt := New(reg)

	matches, err := rt.Route("I have a billing invoice question")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("Route() returned no matches")
	}
	found := false
	for _, m := range matches {
		if m.Agent.Name == "billing_agent" {
			found = true
			if m.Confidence <= 0 {
				t.Errorf("billing_agent confidence = %v, want > 0", m.Confidence)
			}
		}
	}
	if !found {
		t.Error("expected billing_agent to be routed for a billing query")
	}
}

func TestRouter_CategoryMatch(t *testing.T) {
	reg := newTestRegistry(t)
	rt := New(reg)

	// "payment" and "refund" are category-expansion terms under "billing",
	// not the literal token "billing" itself.
	matches, err := rt.Route("payment refund charge subscription")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	found := false
	for _, m := range matches {
		if m.Agent.Name == "billing_agent" {
			found = true
		}
	}
	if !found {
		t.Error("expected billing_agent to be routed via category expansion")
	}
}

func TestRouter_EmptyQueryIsInvalidInput(t *testing.T) {
	reg := newTestRegistry(t)
	rt := New(reg)

	_, err := rt.Route("   ")
	if orcherr.KindOf(err) != orcherr.InvalidInput {
		t.Errorf("KindOf(err) = %v, want InvalidInput", orcherr.KindOf(err))
	}
}

func TestRouter_NoActiveAgentsIsNoAgentsAvailable(t *testing.T) {
	reg := agentregistry.New(nil)
	rt := New(reg)

	_, err := rt.Route("anything")
	if orcherr.KindOf(err) != orcherr.NoAgentsAvailable {
		t.Errorf("KindOf(err) = %v, want NoAgentsAvailable", orcherr.KindOf(err))
	}
}

func TestRouter_FallsBackToDefaultAgent(t *testing.T) {
	reg := newTestRegistry(t)
	rt := New(reg)

	matches, err := rt.Route("completely unrelated gibberish query")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	found := false
	for _, m := range matches {
		if m.Agent.Name == "technical_support" {
			found = true
			if m.Confidence != defaultFallbackConfidence {
				t.Errorf("fallback confidence = %v, want %v", m.Confidence, defaultFallbackConfidence)
			}
		}
	}
	if !found {
		t.Error("expected fallback to technical_support")
	}
}

func TestRouter_OrchestratorAlwaysPrepended(t *testing.T) {
	reg := newTestRegistry(t)
	rt := New(reg, WithOrchestratorAgent("orchestrator"))

	matches, err := rt.Route("billing invoice")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(matches) == 0 || matches[0].Agent.Name != "orchestrator" {
		t.Errorf("expected orchestrator first, got %+v", matches)
	}
}

func TestRouter_TruncatesToTopK(t *testing.T) {
	reg := agentregistry.New(nil, agentregistry.WithClock(clock.NewFake(time.Unix(0, 0), time.Second, "r")))
	for i := 0; i < 5; i++ {
		a := &agentregistry.Agent{
			ID: "a" + string(rune('0'+i)), Name: "agent" + string(rune('0'+i)),
			IsActive: true, Keywords: []string{"security", "breach", "auth"},
		}
		if err := reg.Create(a); err != nil {
			t.Fatal(err)
		}
	}
	rt := New(reg, WithTopK(2))
	matches, err := rt.Route("security breach auth issue")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("len(matches) = %d, want 2", len(matches))
	}
}

// TestRouter_OrchestratorPrependThenTruncate combines both conditions
// (spec §4.6: always prepend the orchestrator agent, step 6, THEN truncate
// to top K, step 7) — prepending must not push the result over K.
func TestRouter_OrchestratorPrependThenTruncate(t *testing.T) {
	reg := agentregistry.New(nil, agentregistry.WithClock(clock.NewFake(time.Unix(0, 0), time.Second, "r")))
	must(t, reg.Create(&agentregistry.Agent{ID: "orchestrator", Name: "orchestrator", IsActive: true}))
	for i := 0; i < 5; i++ {
		a := &agentregistry.Agent{
			ID: "a" + string(rune('0'+i)), Name: "agent" + string(rune('0'+i)),
			IsActive: true, Keywords: []string{"security", "breach", "auth"},
		}
		must(t, reg.Create(a))
	}

	rt := New(reg, WithOrchestratorAgent("orchestrator"), WithTopK(2))
	matches, err := rt.Route("security breach auth issue")
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("len(matches) = %d, want 2 (topK must bound the result even with an orchestrator prepended)", len(matches))
	}
	if matches[0].Agent.Name != "orchestrator" {
		t.Errorf("matches[0].Agent.Name = %q, want orchestrator", matches[0].Agent.Name)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
