package llm

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoCandidates is returned when Complete is called without any model candidates.
// It is a caller error, not a gateway failure.
var ErrNoCandidates = errors.New("no model candidates provided")

// CandidateFailure records why a single model candidate failed
type CandidateFailure struct {
	Model  string `json:"model"`
	Reason string `json:"reason"`
}

// GatewayExhaustedError is returned when every model candidate failed
type GatewayExhaustedError struct {
	Failures []CandidateFailure
}

func (e *GatewayExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %s", f.Model, f.Reason))
	}
	return fmt.Sprintf("all %d model candidates failed: %s", len(e.Failures), strings.Join(parts, "; "))
}

// ExternalServiceError represents an HTTP-layer error from a model or search provider
type ExternalServiceError struct {
	Service string
	Message string
	Cause   error
}

func (e *ExternalServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s call failed: %s: %v", e.Service, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s call failed: %s", e.Service, e.Message)
}

func (e *ExternalServiceError) Unwrap() error {
	return e.Cause
}

// IsGatewayExhausted reports whether err wraps a GatewayExhaustedError
func IsGatewayExhausted(err error) bool {
	var exhausted *GatewayExhaustedError
	return errors.As(err, &exhausted)
}
