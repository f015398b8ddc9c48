package orchestrator

import (
	"strings"

	"github.com/kadirpekel/orchestrator/pkg/knowledge"
)

// referenceTerms are pronouns/demonstratives that indicate a query leans on
// prior conversation context (spec §4.8 "hasReference").
var referenceTerms = []string{
	"it", "that", "this", "those", "these", "previous", "earlier", "above", "again", "last time",
}

// complexityWordThreshold is spec §4.8's word-count cutoff.
const complexityWordThreshold = 15

// complexity implements spec §4.8's exact heuristic:
//
//	0.2 + 0.2*isTechnical + 0.2*isComparison + 0.2*(wordCount>15) + 0.2*hasReference
func complexity(query string, features knowledge.Features) float64 {
	score := 0.2
	if features.Technical {
		score += 0.2
	}
	if features.Comparison {
		score += 0.2
	}
	if len(strings.Fields(query)) > complexityWordThreshold {
		score += 0.2
	}
	if hasReference(query) {
		score += 0.2
	}
	return score
}

// hasReference reports whether query contains a pronoun/demonstrative that
// suggests it depends on prior conversational context.
func hasReference(query string) bool {
	lower := strings.ToLower(query)
	for _, term := range referenceTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

// collaborationEnabled implements spec §4.8's exact rule: collaboration is
// enabled when complexity crosses 0.6, or whenever more than one agent was
// routed regardless of complexity.
func collaborationEnabled(complexity float64, agentCount int) bool {
	return complexity >= 0.6 || agentCount > 1
}
