package knowledge

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
)

// chromemEmbeddingDims is the hashing-trick embedding width: large enough
// that unrelated terms rarely collide, small enough to stay cheap without a
// real embedding model (spec scope has no embedder component; see
// DESIGN.md's pkg/knowledge entry).
const chromemEmbeddingDims = 256

// ChromemSearcher is a zero-config, embedded VectorSearcher backed by
// chromem-go, grounded on the teacher's pkg/vector.ChromemProvider
// (collection-per-DB, optional gzip-compressed file persistence). Unlike
// the teacher's provider, which expects pre-computed embeddings from a
// separate embedder package, ChromemSearcher embeds text itself with a
// deterministic hashing-trick vectorizer, since this module has no vendor
// embedding SDK in scope.
type ChromemSearcher struct {
	mu    sync.Mutex
	col   *chromem.Collection
	count int
}

// NewChromemSearcher opens (or creates) a chromem-go database under
// persistPath and returns a searcher over its "knowledge" collection. An
// empty persistPath keeps everything in memory.
func NewChromemSearcher(persistPath string) (*ChromemSearcher, error) {
	var db *chromem.DB
	if persistPath != "" {
		if err := os.MkdirAll(persistPath, 0o755); err != nil {
			return nil, fmt.Errorf("create chromem persist dir: %w", err)
		}
		loaded, err := chromem.NewPersistentDB(persistPath+"/vectors.gob.gz", true)
		if err != nil {
			return nil, fmt.Errorf("open chromem db: %w", err)
		}
		db = loaded
	} else {
		db = chromem.NewDB()
	}

	col, err := db.GetOrCreateCollection("knowledge", nil, hashEmbed)
	if err != nil {
		return nil, fmt.Errorf("create chromem collection: %w", err)
	}
	return &ChromemSearcher{col: col}, nil
}

// Index adds one document to the collection.
func (s *ChromemSearcher) Index(ctx context.Context, id string, r Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.col.AddDocuments(ctx, []chromem.Document{{
		ID:      id,
		Content: r.Content,
		Metadata: map[string]string{
			"title":    r.Title,
			"category": r.Category,
		},
	}}, 1); err != nil {
		return err
	}
	s.count++
	return nil
}

// Search implements VectorSearcher over the embedded chromem collection.
func (s *ChromemSearcher) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 1
	}
	s.mu.Lock()
	n := s.count
	s.mu.Unlock()
	if n == 0 {
		return nil, nil
	}
	if limit > n {
		limit = n
	}

	docs, err := s.col.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	results := make([]Result, 0, len(docs))
	for _, d := range docs {
		results = append(results, Result{
			Title:         d.Metadata["title"],
			Content:       d.Content,
			Category:      d.Metadata["category"],
			Source:        "vector",
			BaseRelevance: float64(d.Similarity),
		})
	}
	return results, nil
}

// hashEmbed is a deterministic hashing-trick text embedding: every token
// hashes into one of chromemEmbeddingDims buckets, whose counts are then
// L2-normalized. It stands in for a real embedding model so the chromem
// backend has no external API dependency.
func hashEmbed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, chromemEmbeddingDims)
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%chromemEmbeddingDims]++
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec, nil
	}
	norm = math.Sqrt(norm)
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec, nil
}
