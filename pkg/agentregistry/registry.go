package agentregistry

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kadirpekel/orchestrator/pkg/clock"
	"github.com/kadirpekel/orchestrator/pkg/orcherr"
)

// defaultTTL matches spec §4.5 "cache TTL ≈ 5 minutes".
const defaultTTL = 5 * time.Minute

// Source loads the full set of agent definitions from a backing store
// (static config, consul/etcd/zk-backed remote config, etc). Implementations
// live in pkg/config; Registry only depends on this narrow interface.
type Source interface {
	LoadAgents() ([]*Agent, error)
}

// Registry is the AgentRegistry component (spec §4.5). It caches agent
// definitions loaded from a Source, refreshing lazily on read once the TTL
// has elapsed, or eagerly through Refresh. Create, Update and Deactivate
// change only the cache: they neither write to the Source nor reload from
// it, so the next reload replaces whatever they changed.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]*Agent
	byName  map[string]string // name -> id, active agents only
	source  Source
	clock   clock.Clock
	ttl     time.Duration
	lastLoad time.Time
	loaded  bool
}

// Option configures a Registry.
type Option func(*Registry)

// WithTTL overrides the default 5-minute cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

// WithClock overrides the clock source (tests use clock.Fake).
func WithClock(c clock.Clock) Option {
	return func(r *Registry) { r.clock = c }
}

// New creates a Registry backed by source. If source is nil the registry
// starts empty and operates purely in-memory (zero-config / test mode).
func New(source Source, opts ...Option) *Registry {
	r := &Registry{
		byID:   make(map[string]*Agent),
		byName: make(map[string]string),
		source: source,
		clock:  clock.NewSystem(),
		ttl:    defaultTTL,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// refreshLocked reloads from source if the TTL has elapsed. Caller must hold
// r.mu for writing.
func (r *Registry) refreshLocked(force bool) error {
	if r.source == nil {
		r.loaded = true
		return nil
	}
	if !force && r.loaded && r.clock.Now().Sub(r.lastLoad) < r.ttl {
		return nil
	}

	agents, err := r.source.LoadAgents()
	if err != nil {
		return orcherr.Wrap(orcherr.Internal, "failed to load agent definitions", err)
	}

	byID := make(map[string]*Agent, len(agents))
	byName := make(map[string]string, len(agents))
	for _, a := range agents {
		a.clampScores()
		byID[a.ID] = a
		if a.IsActive {
			byName[a.Name] = a.ID
		}
	}
	r.byID = byID
	r.byName = byName
	r.lastLoad = r.clock.Now()
	r.loaded = true
	return nil
}

// ensureFresh is the lazy-on-read refresh entrypoint.
func (r *Registry) ensureFresh() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshLocked(false)
}

// Refresh forces an eager reload from the backing store regardless of TTL.
func (r *Registry) Refresh() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshLocked(true)
}

// Create registers a new agent in the cache. It does not reload from or
// write to the Source.
func (r *Registry) Create(a *Agent) error {
	if a == nil || a.ID == "" || a.Name == "" {
		return orcherr.New(orcherr.InvalidInput, "agent must have a non-empty id and name")
	}
	a.clampScores()

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[a.ID]; exists {
		return orcherr.New(orcherr.InvalidInput, "agent id already exists")
	}
	if a.IsActive {
		if _, exists := r.byName[a.Name]; exists {
			return orcherr.New(orcherr.InvalidInput, "agent name already active")
		}
	}
	r.byID[a.ID] = a
	if a.IsActive {
		r.byName[a.Name] = a.ID
	}
	return nil
}

// Get returns the agent by id, active or not (spec §4.5 invariant: deactivated
// agents stay resolvable by id for historical metric attribution).
func (r *Registry) Get(id string) (*Agent, error) {
	if err := r.ensureFresh(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.byID[id]
	if !ok {
		return nil, orcherr.New(orcherr.NotFound, "agent not found: "+id)
	}
	return a.Clone(), nil
}

// Update replaces the stored agent's fields in place.
func (r *Registry) Update(a *Agent) error {
	if a == nil || a.ID == "" {
		return orcherr.New(orcherr.InvalidInput, "agent must have a non-empty id")
	}
	a.clampScores()

	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.byID[a.ID]
	if !ok {
		return orcherr.New(orcherr.NotFound, "agent not found: "+a.ID)
	}
	if existing.IsActive {
		delete(r.byName, existing.Name)
	}
	r.byID[a.ID] = a
	if a.IsActive {
		r.byName[a.Name] = a.ID
	}
	return nil
}

// Deactivate soft-deletes the agent: it is excluded from routing lookups but
// remains resolvable by id (spec §3, §4.5 invariants).
func (r *Registry) Deactivate(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return orcherr.New(orcherr.NotFound, "agent not found: "+id)
	}
	a.IsActive = false
	delete(r.byName, a.Name)
	return nil
}

// List returns all active agents.
func (r *Registry) List() ([]*Agent, error) {
	if err := r.ensureFresh(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Agent, 0, len(r.byName))
	for _, id := range r.byName {
		out = append(out, r.byID[id].Clone())
	}
	// Sorted by id so routing stays deterministic within a cache epoch
	// (spec §8 P1) instead of depending on Go's randomized map order.
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ActiveCount returns the number of currently active agents.
func (r *Registry) ActiveCount() (int, error) {
	if err := r.ensureFresh(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byName), nil
}

// ByDomain returns all active agents tagged with the given domain.
func (r *Registry) ByDomain(domain string) ([]*Agent, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	var out []*Agent
	for _, a := range all {
		if a.Domain == domain {
			out = append(out, a)
		}
	}
	return out, nil
}

// ranked pairs an agent with its byKeywords rank.
type ranked struct {
	agent *Agent
	rank  float64
}

// ByKeywords ranks active agents by keyword overlap with the query set:
// rank = count of matching keywords + 0.5*specialization_score, descending
// (spec §4.5). Ties are broken by higher specialization_score.
func (r *Registry) ByKeywords(keywords []string) ([]*Agent, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}

	want := make(map[string]bool, len(keywords))
	for _, k := range keywords {
		want[strings.ToLower(strings.TrimSpace(k))] = true
	}

	var scored []ranked
	for _, a := range all {
		matches := 0
		for _, k := range a.Keywords {
			if want[strings.ToLower(k)] {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		scored = append(scored, ranked{
			agent: a,
			rank:  float64(matches) + 0.5*a.SpecializationScore,
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].rank != scored[j].rank {
			return scored[i].rank > scored[j].rank
		}
		return scored[i].agent.SpecializationScore > scored[j].agent.SpecializationScore
	})

	out := make([]*Agent, len(scored))
	for i, s := range scored {
		out[i] = s.agent
	}
	return out, nil
}
