package router

// categoryMap is the fixed keyword-category map from spec §4.6: at least
// webhook, billing, security, database, deployment, legal, competitive,
// marketing, and support, each mapped to a set of related terms a raw query
// token can match.
var categoryMap = map[string][]string{
	"webhook": {"webhook", "callback", "event_subscription", "payload", "endpoint_trigger"},
	"billing": {"billing", "invoice", "payment", "charge", "subscription", "refund", "pricing"},
	"security": {"security", "auth", "authentication", "authorization", "vulnerability",
		"breach", "encryption", "credential"},
	"database":    {"database", "db", "query", "schema", "migration", "index", "sql"},
	"deployment":  {"deployment", "deploy", "release", "rollout", "pipeline", "ci", "cd"},
	"legal":       {"legal", "contract", "compliance", "terms", "policy", "gdpr", "liability"},
	"competitive": {"competitor", "competitive", "versus", "benchmark", "market_share"},
	"marketing":   {"marketing", "campaign", "ad", "seo", "brand", "promotion"},
	"support":     {"support", "ticket", "help", "issue", "complaint", "faq"},
}

// expandToCategories returns the set of categories whose related-term list
// contains tok, alongside whether tok is itself a category name (a direct
// match carries full weight, a related-term match is a category match).
func expandToCategories(tok string) (direct []string, category []string) {
	if _, isCategory := categoryMap[tok]; isCategory {
		direct = append(direct, tok)
	}
	for cat, terms := range categoryMap {
		for _, term := range terms {
			if term == tok {
				category = append(category, cat)
				break
			}
		}
	}
	return direct, category
}
