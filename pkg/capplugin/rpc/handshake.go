// Package rpc defines the three net/rpc hashicorp/go-plugin kinds that
// carry one out-of-process capability each: an LLM provider, a vector
// searcher or a scraper. Adapted from the handshake/plugin-map idiom of
// the teacher's pkg/plugins/grpc/loader.go, retargeted from gRPC+protobuf
// to go-plugin's net/rpc transport.
package rpc

import (
	"github.com/hashicorp/go-plugin"
)

// Handshake is shared by the host and every plugin binary so go-plugin
// refuses to dispense a mismatched or unrelated executable.
var Handshake = plugin.HandshakeConfig{
	ProtocolVersion:  1,
	MagicCookieKey:   "ORCHESTRATOR_CAPABILITY_PLUGIN",
	MagicCookieValue: "orchestrator_capability_v1",
}

// The Key* constants are the dispense keys each plugin kind registers under.
const (
	KeyLLMProvider    = "llm_provider"
	KeyVectorSearcher = "vector_searcher"
	KeyScraper        = "scraper"
)
