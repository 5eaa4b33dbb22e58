// Package aigate provides a top-level convenience entry point for talking to
// any catalogued LLM provider through one client.
//
// Usage:
//
//	import "github.com/BaSui01/aigate"
//
//	c, err := aigate.New()
//	resp, err := c.Chat(ctx, aigate.NewRequest("gpt-4o-mini",
//	    aigate.UserMessage("Hello")))
//
// This is a thin wrapper around [client.New]; both produce identical
// results. Use this package when you prefer the shorter import path.
package aigate

import (
	"github.com/BaSui01/aigate/client"
	"github.com/BaSui01/aigate/types"
)

// Option configures the client created by [New].
type Option = client.Option

// Client is the gateway façade.
type Client = client.Client

// New creates a gateway client. With no options it serves the embedded
// default manifest with the full default interceptor stack.
func New(opts ...Option) (*Client, error) {
	return client.New(opts...)
}

// Re-export the common options so callers never need to import client/.

// WithManifestFile loads the manifest from a path.
var WithManifestFile = client.WithManifestFile

// WithHotReload watches the manifest file for changes.
var WithHotReload = client.WithHotReload

// WithProvider sets the default provider hint.
var WithProvider = client.WithProvider

// WithFailover routes across providers in order.
var WithFailover = client.WithFailover

// WithRoundRobin rotates calls across providers.
var WithRoundRobin = client.WithRoundRobin

// WithAPIKey overrides the credential for one provider.
var WithAPIKey = client.WithAPIKey

// WithLogger sets the shared logger.
var WithLogger = client.WithLogger

// WithMaxConcurrentRequests bounds in-flight calls; 0 means unbounded.
var WithMaxConcurrentRequests = client.WithMaxConcurrentRequests

// WithTimeout sets the per-attempt timeout.
var WithTimeout = client.WithTimeout

// NewRequest builds a canonical chat request.
func NewRequest(model string, messages ...types.Message) *types.ChatRequest {
	return types.NewChatRequest(model, messages)
}

// SystemMessage builds a system message.
var SystemMessage = types.NewSystemMessage

// UserMessage builds a user message.
var UserMessage = types.NewUserMessage

// AssistantMessage builds an assistant message.
var AssistantMessage = types.NewAssistantMessage
