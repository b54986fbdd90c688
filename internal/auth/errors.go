package auth

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfigIncomplete marks a strategy that was skipped because its configuration is missing
var ErrConfigIncomplete = errors.New("configuration incomplete")

// ConfigIncompleteError names the strategy and the fields it is missing
type ConfigIncompleteError struct {
	Strategy string
	Missing  []string
}

func (e ConfigIncompleteError) Error() string {
	return fmt.Sprintf("%s: configuration incomplete (missing %s)", e.Strategy, strings.Join(e.Missing, ", "))
}

func (e ConfigIncompleteError) Is(target error) bool {
	return target == ErrConfigIncomplete
}

// StrategyError indicates a strategy ran and failed (network, parse, or rejected credentials)
type StrategyError struct {
	Strategy string
	Reason   string
	Err      error
}

func (e StrategyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Strategy, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Strategy, e.Reason)
}

func (e StrategyError) Unwrap() error {
	return e.Err
}

// ExhaustedError collects every attempted strategy's failure.
// The broker only logs it; callers receive the offline credential instead.
type ExhaustedError struct {
	Failures []error
}

func (e ExhaustedError) Error() string {
	if len(e.Failures) == 0 {
		return "all strategies exhausted (none eligible)"
	}
	msgs := make([]string, len(e.Failures))
	for i, err := range e.Failures {
		msgs[i] = err.Error()
	}
	return "all strategies exhausted: " + strings.Join(msgs, "; ")
}

func (e ExhaustedError) Unwrap() []error {
	return e.Failures
}

// Failure reasons shared by the CLI strategy
const (
	ReasonToolUnavailable = "tool unavailable"
	ReasonMalformedOutput = "tool output malformed"
	ReasonNoTokenField    = "no token field present"
)

// ReasonInvalidKey is reported by the JWT strategy when SF_JWT_PRIVATE_KEY does not parse
const ReasonInvalidKey = "invalid private key"

// ReasonPanicked marks a strategy that panicked during Attempt
const ReasonPanicked = "strategy panicked"
