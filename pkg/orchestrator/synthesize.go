package orchestrator

import (
	"strings"
	"time"

	"github.com/kadirpekel/orchestrator/pkg/knowledge"
	"github.com/kadirpekel/orchestrator/pkg/orcherr"
)

// synthesize merges successful agent outputs into one response (spec §4.8
// "Synthesize": bounded concat+dedup+citation-union merge when more than
// one agent succeeded; a deterministic merge rather than a further LLM
// call, per the Open Question resolution recorded in DESIGN.md). It
// reports whether any agent failed (partial_failure) and, if every agent
// failed, a fatal error.
func synthesize(results []AgentResult, kresults []knowledge.Result, accessedAt time.Time) (text string, citations []knowledge.Citation, partial bool, err error) {
	var texts []string
	seen := make(map[string]bool)
	var failures int

	for _, r := range results {
		if r.Err != nil {
			failures++
			continue
		}
		trimmed := strings.TrimSpace(r.Text)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		texts = append(texts, trimmed)
	}

	if len(texts) == 0 {
		return "", nil, failures > 0, orcherr.New(orcherr.ProviderError, "every agent invocation failed")
	}

	partial = failures > 0
	text = strings.Join(texts, "\n\n")
	citations = knowledge.Citations(kresults, accessedAt)
	return text, citations, partial, nil
}
