package knowledge

import (
	"regexp"
	"strings"
)

var (
	temporalTerms   = []string{"latest", "current", "recent", "new", "updated"}
	temporalYearRe  = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	specificTerms   = []string{"how to", "step by step", "guide", "tutorial", "example"}
	technicalTerms  = []string{"api", "webhook", "integration", "code", "implementation"}
	comparisonTerms = []string{"compare", "versus", "vs", "difference", "better"}
)

// DetectFeatures computes the query features from spec §4.3.
func DetectFeatures(query string) Features {
	q := strings.ToLower(query)
	return Features{
		Temporal:   containsAny(q, temporalTerms) || temporalYearRe.MatchString(q),
		Specific:   containsAny(q, specificTerms),
		Technical:  containsAny(q, technicalTerms),
		Comparison: containsAny(q, comparisonTerms),
	}
}

func containsAny(q string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(q, t) {
			return true
		}
	}
	return false
}
