// Package classify provides the chat-completion client that maps file
// content onto the closed subject label set.
//
// # Classification Logic
//
// The client sends one system/user message pair to an OpenAI-compatible
// /chat/completions endpoint. The system prompt constrains answers to the
// label set; the user message is the configured content prompt followed by
// the excerpt (or filename line) under classification. The reply text is
// scanned for the earliest label occurrence; position ties resolve in set
// order, and replies naming no label resolve to the fallback.
//
// # Configuration
//
// Requires api_key and model. base_url defaults to the OpenAI endpoint;
// referer and title are optional attribution headers for gateway providers.
//
// # Entry Points
//
// NewClient: construct a client from Config and a subject.Set.
// Client.Classify: classify one excerpt, returning a member label.
// Client.Ping: verify the API key and model with a minimal request.
//
// # Failure Behaviour
//
// Requests are never retried here. Transport failures, non-2xx statuses,
// and undecodable replies surface as errors tagged through the services
// sentinels; callers decide whether a failure means the fallback label.
package classify
