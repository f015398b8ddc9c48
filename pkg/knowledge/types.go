// Package knowledge implements the KnowledgeRetriever component (spec
// §4.3): query feature detection, concurrent vector+scrape fan-out, ranked
// deduplicated results, and citation generation. Grounded on the
// DataSource/SearchEngine split of pkg/rag/store.go and the provider
// surface of pkg/vector for the vector side, and pkg/tool/webtool's
// web_request tool for the scrape side.
package knowledge

import (
	"context"
	"time"
)

// Result is one retrieved knowledge snippet, ranked and deduplicated.
type Result struct {
	Title         string
	Content       string
	URL           string // set for scraped results
	Category      string // set for indexed/internal results
	LastUpdated   time.Time
	Source        string // "vector" or "scrape"
	BaseRelevance float64
	Score         float64
	fingerprint   string
}

// Citation is a user-facing reference to a Result.
type Citation struct {
	Title       string
	URL         string    // external items
	Category    string    // internal items
	AccessedAt  time.Time // external items
	LastUpdated time.Time // internal items
	External    bool
	Ordinal     int     // 1-based position in the ranked result set (spec §3)
	Relevance   float64 // clamped to [0,1] (spec §3)
}

// Features are the query characteristics detected by DetectFeatures (spec
// §4.3 "Query features").
type Features struct {
	Temporal   bool
	Specific   bool
	Technical  bool
	Comparison bool
}

// Response is the result of a Retrieve call.
type Response struct {
	Results  []Result
	Warning  string // set when both sources failed (spec §4.3 "Failure modes")
}

// VectorSearcher is the subset of a vector backend (qdrant/pinecone/chromem)
// KnowledgeRetriever depends on.
type VectorSearcher interface {
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// Scraper fetches external content for up to K URLs.
type Scraper interface {
	Scrape(ctx context.Context, query string, k int) ([]Result, error)
}
