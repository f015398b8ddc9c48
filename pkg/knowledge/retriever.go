package knowledge

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kadirpekel/orchestrator/pkg/clampf"
	"github.com/kadirpekel/orchestrator/pkg/clock"
)

const (
	vectorLimitDefault   = 5
	vectorLimitTechnical = 10
	scrapeKDefault       = 3
	scrapeKComparison    = 5
	vectorTimeoutDefault = 5 * time.Second
	scrapeTimeoutDefault = 15 * time.Second
	vectorTopScoreFloor  = 0.7
	fingerprintLen       = 500
	scrapedSourceBonus   = 0.15
	indexedSourceBonus   = 0.10
	titleMatchBonus      = 0.15
	freshnessWeight      = 0.2
	relevanceWeight      = 0.5
	maxAgeDays           = 365.0
)

// Retriever is the KnowledgeRetriever component.
type Retriever struct {
	vector  VectorSearcher
	scraper Scraper
	clock   clock.Clock

	vectorTimeout time.Duration
	scrapeTimeout time.Duration
}

// Option configures a Retriever.
type Option func(*Retriever)

// WithVectorTimeout overrides the default 5s per-call vector timeout.
func WithVectorTimeout(d time.Duration) Option {
	return func(r *Retriever) { r.vectorTimeout = d }
}

// WithScrapeTimeout overrides the default 15s per-call scrape timeout.
func WithScrapeTimeout(d time.Duration) Option {
	return func(r *Retriever) { r.scrapeTimeout = d }
}

// WithClock overrides the clock source (tests use clock.Fake).
func WithClock(c clock.Clock) Option {
	return func(r *Retriever) { r.clock = c }
}

// New creates a Retriever. vector and scraper may each be nil, in which
// case that source is simply skipped (failure isolation, spec §4.3).
func New(vector VectorSearcher, scraper Scraper, opts ...Option) *Retriever {
	r := &Retriever{
		vector:        vector,
		scraper:       scraper,
		clock:         clock.NewSystem(),
		vectorTimeout: vectorTimeoutDefault,
		scrapeTimeout: scrapeTimeoutDefault,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retrieve runs the full spec §4.3 strategy: detect features, fan out to
// vector search (always) and the scraper (conditionally), concurrently with
// per-capability timeouts; isolate failures; dedup; rank; return results
// plus citations.
func (r *Retriever) Retrieve(ctx context.Context, query string) (Response, error) {
	features := DetectFeatures(query)

	vectorLimit := vectorLimitDefault
	if features.Technical {
		vectorLimit = vectorLimitTechnical
	}
	scrapeK := scrapeKDefault
	if features.Comparison {
		scrapeK = scrapeKComparison
	}

	var (
		wg                           sync.WaitGroup
		vectorResults, scrapeResults []Result
		vectorTopScore               float64
		vectorOK                     bool
	)

	// Vector search always runs. The scraper runs unconditionally alongside
	// it (same goroutine wave, spec §4.3 "run concurrently") when temporal
	// or comparison features already justify it; otherwise it only fires
	// once vector's top score is known to be below the 0.7 floor.
	unconditionalScrape := features.Temporal || features.Comparison

	if r.vector != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			vctx, cancel := context.WithTimeout(ctx, r.vectorTimeout)
			defer cancel()
			results, err := r.vector.Search(vctx, query, vectorLimit)
			if err != nil {
				return // failure isolation: one failed source doesn't fail the call
			}
			vectorResults = results
			vectorOK = true
			if len(results) > 0 {
				vectorTopScore = results[0].BaseRelevance
			}
		}()
	}

	if unconditionalScrape && r.scraper != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sctx, cancel := context.WithTimeout(ctx, r.scrapeTimeout)
			defer cancel()
			results, err := r.scraper.Scrape(sctx, query, scrapeK)
			if err != nil {
				return
			}
			scrapeResults = results
		}()
	}

	wg.Wait()

	if !unconditionalScrape && r.scraper != nil && (!vectorOK || vectorTopScore < vectorTopScoreFloor) {
		sctx, cancel := context.WithTimeout(ctx, r.scrapeTimeout)
		results, err := r.scraper.Scrape(sctx, query, scrapeK)
		cancel()
		if err == nil {
			scrapeResults = results
		}
	}

	all := append(vectorResults, scrapeResults...)
	if len(all) == 0 {
		return Response{Warning: "no knowledge sources returned results"}, nil
	}

	deduped := dedup(all)
	ranked := r.rank(deduped, query)

	return Response{Results: ranked}, nil
}

// dedup fingerprints each result by MD5 of its first 500 lowercased content
// characters and keeps the first occurrence (spec §4.3 "Deduplication").
func dedup(results []Result) []Result {
	seen := make(map[string]bool, len(results))
	out := make([]Result, 0, len(results))
	for _, res := range results {
		fp := fingerprint(res.Content)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		res.fingerprint = fp
		out = append(out, res)
	}
	return out
}

func fingerprint(content string) string {
	lc := strings.ToLower(content)
	if len(lc) > fingerprintLen {
		lc = lc[:fingerprintLen]
	}
	sum := md5.Sum([]byte(lc))
	return hex.EncodeToString(sum[:])
}

// rank scores every result per spec §4.3's ranking formula and sorts
// descending.
func (r *Retriever) rank(results []Result, query string) []Result {
	tokens := strings.Fields(strings.ToLower(query))
	now := r.clock.Now()

	for i := range results {
		res := &results[i]
		freshness := 0.0
		if !res.LastUpdated.IsZero() {
			ageDays := now.Sub(res.LastUpdated).Hours() / 24
			freshness = 1 - ageDays/maxAgeDays
			if freshness < 0 {
				freshness = 0
			}
		}

		sourceBonus := indexedSourceBonus
		if res.Source == "scrape" {
			sourceBonus = scrapedSourceBonus
		}

		titleMatch := 0.0
		titleLower := strings.ToLower(res.Title)
		for _, tok := range tokens {
			if tok != "" && strings.Contains(titleLower, tok) {
				titleMatch = titleMatchBonus
				break
			}
		}

		res.Score = relevanceWeight*res.BaseRelevance + freshnessWeight*freshness + sourceBonus + titleMatch
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results
}

// Citations builds the ordered citation list for the top-ranked results
// (spec §4.3 "Citations"), carrying each result's rank position as Ordinal
// and its ranked Score, clamped to [0,1], as Relevance (spec §3).
func Citations(results []Result, accessedAt time.Time) []Citation {
	citations := make([]Citation, 0, len(results))
	for i, res := range results {
		ordinal := i + 1
		relevance := clampf.Unit(res.Score)
		if res.Source == "scrape" {
			citations = append(citations, Citation{
				Title:      res.Title,
				URL:        res.URL,
				AccessedAt: accessedAt,
				External:   true,
				Ordinal:    ordinal,
				Relevance:  relevance,
			})
		} else {
			citations = append(citations, Citation{
				Title:       res.Title,
				Category:    res.Category,
				LastUpdated: res.LastUpdated,
				External:    false,
				Ordinal:     ordinal,
				Relevance:   relevance,
			})
		}
	}
	return citations
}
