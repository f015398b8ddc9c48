package agentregistry

import (
	"testing"
	"time"

	"github.com/kadirpekel/orchestrator/pkg/clock"
	"github.com/kadirpekel/orchestrator/pkg/orcherr"
)

func newTestRegistry() *Registry {
	return New(nil, WithClock(clock.NewFake(time.Unix(0, 0), time.Second, "t")))
}

func TestRegistry_CreateGetDeactivate(t *testing.T) {
	r := newTestRegistry()
	a := &Agent{ID: "a1", Name: "billing_agent", IsActive: true, SpecializationScore: 1.5}
	if err := r.Create(a); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := r.Get("a1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.SpecializationScore != 1.0 {
		t.Errorf("SpecializationScore not clamped: got %v, want 1.0", got.SpecializationScore)
	}

	if err := r.Deactivate("a1"); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	// still resolvable by id per spec invariant
	if _, err := r.Get("a1"); err != nil {
		t.Errorf("Get() after deactivate should still succeed, got %v", err)
	}
	list, _ := r.List()
	if len(list) != 0 {
		t.Errorf("List() after deactivate = %d agents, want 0", len(list))
	}
}

func TestRegistry_CreateDuplicateNameRejected(t *testing.T) {
	r := newTestRegistry()
	if err := r.Create(&Agent{ID: "a1", Name: "dup", IsActive: true}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	err := r.Create(&Agent{ID: "a2", Name: "dup", IsActive: true})
	if err == nil {
		t.Fatal("expected error creating duplicate active name")
	}
	if orcherr.KindOf(err) != orcherr.InvalidInput {
		t.Errorf("KindOf(err) = %v, want InvalidInput", orcherr.KindOf(err))
	}
}

func TestRegistry_ByKeywordsRanking(t *testing.T) {
	r := newTestRegistry()
	must(t, r.Create(&Agent{ID: "a1", Name: "billing", IsActive: true, Keywords: []string{"invoice", "payment"}, SpecializationScore: 0.2}))
	must(t, r.Create(&Agent{ID: "a2", Name: "security", IsActive: true, Keywords: []string{"invoice"}, SpecializationScore: 0.9}))
	must(t, r.Create(&Agent{ID: "a3", Name: "support", IsActive: true, Keywords: []string{"unrelated"}}))

	ranked, err := r.ByKeywords([]string{"invoice", "payment"})
	if err != nil {
		t.Fatalf("ByKeywords() error = %v", err)
	}
	if len(ranked) != 2 {
		t.Fatalf("ByKeywords() returned %d agents, want 2", len(ranked))
	}
	if ranked[0].Name != "billing" {
		t.Errorf("top ranked = %s, want billing (2 matches beats 1 match + specialization bonus)", ranked[0].Name)
	}
}

func TestRegistry_ByKeywordsTieBrokenBySpecialization(t *testing.T) {
	r := newTestRegistry()
	must(t, r.Create(&Agent{ID: "a1", Name: "low", IsActive: true, Keywords: []string{"invoice"}, SpecializationScore: 0.1}))
	must(t, r.Create(&Agent{ID: "a2", Name: "high", IsActive: true, Keywords: []string{"invoice"}, SpecializationScore: 0.8}))

	ranked, err := r.ByKeywords([]string{"invoice"})
	if err != nil {
		t.Fatalf("ByKeywords() error = %v", err)
	}
	if ranked[0].Name != "high" {
		t.Errorf("top ranked = %s, want high (tie broken by specialization_score)", ranked[0].Name)
	}
}

func TestRegistry_ByDomainAndActiveCount(t *testing.T) {
	r := newTestRegistry()
	must(t, r.Create(&Agent{ID: "a1", Name: "n1", IsActive: true, Domain: "billing"}))
	must(t, r.Create(&Agent{ID: "a2", Name: "n2", IsActive: true, Domain: "security"}))
	must(t, r.Create(&Agent{ID: "a3", Name: "n3", IsActive: false, Domain: "billing"}))

	billing, err := r.ByDomain("billing")
	if err != nil {
		t.Fatalf("ByDomain() error = %v", err)
	}
	if len(billing) != 1 {
		t.Errorf("ByDomain(billing) = %d agents, want 1 (inactive excluded)", len(billing))
	}

	count, err := r.ActiveCount()
	if err != nil {
		t.Fatalf("ActiveCount() error = %v", err)
	}
	if count != 2 {
		t.Errorf("ActiveCount() = %d, want 2", count)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
