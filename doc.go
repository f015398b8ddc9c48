// Package orchestrator is a multi-agent orchestration engine: a registry of
// agents, an LLM capability pool shared across them, a router that picks and
// sequences agents per query, and the supporting knowledge, memory, metrics
// and realtime-tracking components that feed a query through to a final
// answer.
//
// # Quick Start
//
// Install the CLI:
//
//	go install github.com/kadirpekel/orchestrator/cmd/orchestrator@latest
//
// Describe your agents and LLM capabilities in a YAML config:
//
//	agents:
//	  - id: billing
//	    name: "Billing Agent"
//	    domain: billing
//	    keywords: ["invoice", "refund", "charge"]
//	    preferred_tier: balanced
//
//	llm_capabilities:
//	  - name: standard
//	    tier: balanced
//	    endpoint: "http://localhost:8000/v1/completions"
//
// Ask a question:
//
//	orchestrator ask --config my-orchestrator.yaml "why was my invoice late?"
//
// Or run it as a long-lived process with hot config reload:
//
//	orchestrator serve --config my-orchestrator.yaml
//
// # As a Go library
//
//	import "github.com/kadirpekel/orchestrator/pkg/orchestrator"
//
// See pkg/orchestrator.Coordinator for the programmatic entry point; the
// CLI in cmd/orchestrator is a thin wrapper around it.
//
// # Architecture
//
//	Query → Router (picks agent(s)) → Coordinator → LLM Pool / Knowledge
//	      → Conversation Memory + Realtime Tracker → Outcome
//
// # Alpha status
//
// This module is in active development; APIs may change.
package orchestrator
