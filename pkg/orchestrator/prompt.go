package orchestrator

import (
	"strings"

	"github.com/kadirpekel/orchestrator/pkg/agentregistry"
	"github.com/kadirpekel/orchestrator/pkg/knowledge"
)

// systemPrompt renders an agent's persona block (spec §4.8 "Plan" prompt
// assembly: system = role + goal + backstory).
func systemPrompt(a *agentregistry.Agent) string {
	var b strings.Builder
	b.WriteString("You are ")
	b.WriteString(a.Role)
	b.WriteString(".\n")
	if a.Goal != "" {
		b.WriteString("Goal: ")
		b.WriteString(a.Goal)
		b.WriteString("\n")
	}
	if a.Backstory != "" {
		b.WriteString("Backstory: ")
		b.WriteString(a.Backstory)
		b.WriteString("\n")
	}
	return b.String()
}

// knowledgeBlock renders ranked knowledge snippets for prompt inclusion.
func knowledgeBlock(results []knowledge.Result) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Relevant knowledge:\n")
	for _, r := range results {
		b.WriteString("- ")
		b.WriteString(r.Title)
		b.WriteString(": ")
		b.WriteString(r.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// assemblePrompt builds the full user prompt handed to the LLM: prior
// conversation context, ranked knowledge, then the query itself (spec §4.8
// "Plan").
func assemblePrompt(convContext string, results []knowledge.Result, query string) string {
	var b strings.Builder
	if convContext != "" {
		b.WriteString("Conversation so far:\n")
		b.WriteString(convContext)
		b.WriteString("\n\n")
	}
	if kb := knowledgeBlock(results); kb != "" {
		b.WriteString(kb)
		b.WriteString("\n")
	}
	b.WriteString("Query: ")
	b.WriteString(query)
	return b.String()
}
