package gateway

import (
	"fmt"
)

// Action identifies a logical AI operation routed through the coordination
// endpoint. The set is closed; unknown actions fail validation before any I/O.
type Action string

const (
	ActionSemanticAnalysis Action = "semantic_analysis"
	ActionTextEmbedding    Action = "generate_text_embedding"
	ActionVisualEmbedding  Action = "generate_visual_embedding"
	ActionExtractText      Action = "extract_document_text"
)

// TruncationMarker is appended to any text field that was cut to fit the
// configured maximum length, so downstream consumers can tell a truncated
// input from a naturally short one.
const TruncationMarker = "…[truncated]"

// Valid reports whether the action belongs to the closed set.
func (a Action) Valid() bool {
	switch a {
	case ActionSemanticAnalysis, ActionTextEmbedding, ActionVisualEmbedding, ActionExtractText:
		return true
	}
	return false
}

// Idempotent reports whether the action is safe to retry automatically.
// Embedding generation and text extraction are pure functions of their input;
// semantic analysis may have provider-side side effects and is never retried.
func (a Action) Idempotent() bool {
	switch a {
	case ActionTextEmbedding, ActionVisualEmbedding, ActionExtractText:
		return true
	}
	return false
}

// requiredTextField maps each action to the payload field that must carry
// non-empty text (or data) for the request to make sense.
func (a Action) requiredField() string {
	switch a {
	case ActionSemanticAnalysis:
		return "text"
	case ActionTextEmbedding:
		return "text"
	case ActionVisualEmbedding:
		return "image_data"
	case ActionExtractText:
		return "content"
	}
	return ""
}

// validatePayload checks the payload against the action's schema and returns
// a copy with oversized text fields truncated. The original map is never
// mutated.
func (c *Client) validatePayload(action Action, payload map[string]any) (map[string]any, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: payload is required", ErrInvalidPayload)
	}

	field := action.requiredField()
	raw, ok := payload[field]
	if !ok {
		return nil, fmt.Errorf("%w: action %q requires field %q", ErrInvalidPayload, action, field)
	}

	s, isString := raw.(string)
	if !isString || s == "" {
		return nil, fmt.Errorf("%w: field %q must be a non-empty string", ErrInvalidPayload, field)
	}

	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = v
	}

	// Truncate rather than fail: a too-long chunk should not stall ingestion.
	// The cap counts characters, not bytes, so multibyte text is never cut
	// mid-rune. Binary fields (image_data, content) are exempt; length limits
	// there are the provider's concern.
	if field == "text" {
		if runes := []rune(s); len(runes) > c.cfg.MaxTextChars {
			out[field] = string(runes[:c.cfg.MaxTextChars]) + TruncationMarker
		}
	}

	return out, nil
}

// costEstimate returns the fallback per-invocation cost used when the
// provider response carries no cost_usd figure.
func costEstimate(action Action) float64 {
	switch action {
	case ActionSemanticAnalysis:
		return 0.01
	case ActionTextEmbedding:
		return 0.0004
	case ActionVisualEmbedding:
		return 0.001
	case ActionExtractText:
		return 0.005
	}
	return 0
}
