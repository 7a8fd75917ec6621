package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNPCNotFound is returned by HandleTurn when the referenced NPC does not
// exist.
var ErrNPCNotFound = errors.New("chat: npc not found")

// ValidationError reports a missing or empty required turn input. It is
// detected before any generation call and has no side effects.
type ValidationError struct {
	// Field names the offending input ("npcId" or "message").
	Field string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("chat: %s is required", e.Field)
}

// GenerationErrorKind classifies why the text-generation capability failed.
type GenerationErrorKind string

const (
	// GenerationUnauthenticated covers invalid credentials and permission
	// denials.
	GenerationUnauthenticated GenerationErrorKind = "unauthenticated"

	// GenerationQuotaExhausted covers rate limits and exhausted quotas.
	GenerationQuotaExhausted GenerationErrorKind = "quota_exhausted"

	// GenerationModelUnavailable covers unknown or unreachable models.
	GenerationModelUnavailable GenerationErrorKind = "model_unavailable"

	// GenerationEmptyResponse covers completions that yielded no usable text.
	GenerationEmptyResponse GenerationErrorKind = "empty_response"

	// GenerationUnknown covers everything else, including timeouts.
	GenerationUnknown GenerationErrorKind = "unknown"
)

// GenerationError wraps a failed or unusable LLM completion. It is fatal to
// the current turn — the NPC's memory is left untouched — but non-fatal to
// the system.
type GenerationError struct {
	// Kind is the failure classification.
	Kind GenerationErrorKind

	// Err is the underlying provider error. May be nil for empty responses.
	Err error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("chat: generation failed (%s)", e.Kind)
	}
	return fmt.Sprintf("chat: generation failed (%s): %v", e.Kind, e.Err)
}

// Unwrap returns the underlying provider error.
func (e *GenerationError) Unwrap() error { return e.Err }

// PersistenceError wraps a campaign store failure. It is fatal to the turn:
// a reply is never returned when it could not be saved, since the next turn
// would then contradict what the player saw.
type PersistenceError struct {
	// Err is the underlying store error.
	Err error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("chat: persist memory: %v", e.Err)
}

// Unwrap returns the underlying store error.
func (e *PersistenceError) Unwrap() error { return e.Err }

// ClassifyGenerationError maps a provider error onto a [GenerationError].
// Providers surface backend failures as opaque wrapped errors, so the
// classification matches on well-known status codes and phrases the backends
// emit. Unrecognised errors, including deadline expiry, classify as
// GenerationUnknown.
func ClassifyGenerationError(err error) *GenerationError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &GenerationError{Kind: GenerationUnknown, Err: err}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case containsAny(msg, "401", "403", "unauthenticated", "unauthorized", "api key", "permission denied", "permission_denied"):
		return &GenerationError{Kind: GenerationUnauthenticated, Err: err}
	case containsAny(msg, "429", "quota", "rate limit", "rate_limit", "resource exhausted", "resource_exhausted"):
		return &GenerationError{Kind: GenerationQuotaExhausted, Err: err}
	case containsAny(msg, "model not found", "model_not_found", "unsupported model", "no such model") ||
		(strings.Contains(msg, "404") && strings.Contains(msg, "model")):
		return &GenerationError{Kind: GenerationModelUnavailable, Err: err}
	default:
		return &GenerationError{Kind: GenerationUnknown, Err: err}
	}
}

// containsAny reports whether s contains at least one of the needles.
func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
