// Package gateway provides the typed client for the external AI coordination
// endpoint.
//
// # Overview
//
// Every AI model invocation in the service (semantic analysis, text
// embedding, visual embedding, document text extraction) flows through a
// single coordination endpoint. The Client turns a logical action into an
// authenticated POST of the form
//
//	{"action": "...", "payload": {...}}
//
// and decodes the {success, data, error} envelope on the way back.
//
// # Error taxonomy
//
// Invocation failures are classified into a closed set of sentinels:
//
//   - ErrTimeout: the deadline elapsed
//   - ErrRemoteRejected: the provider rejected this request (caller bug)
//   - ErrRemoteUnavailable: 5xx or transport failure (provider degradation)
//
// The distinction matters: the circuit breaker counts only timeouts and
// unavailability toward its failure threshold, and only those outcomes are
// ever retried.
//
// # Retries
//
// Idempotent actions (the embedding actions and extract_document_text) are
// retried up to AI_GATEWAY_MAX_RETRIES times with exponential backoff, each
// attempt bounded by the invocation deadline. semantic_analysis is never
// retried automatically.
//
// # Boundaries
//
// The client is purely a request/response boundary. It has no database
// access and applies no side effects on the caller's behalf; budget
// admission and circuit breaking are composed around it by the pipeline.
package gateway
