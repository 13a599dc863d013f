package pipeline

import (
	"errors"
	"fmt"

	"github.com/chulminlee01/mrt-tech-test/internal/assignments"
	"github.com/chulminlee01/mrt-tech-test/internal/llm"
	"github.com/chulminlee01/mrt-tech-test/internal/types"
)

// ConfigurationError reports a run that cannot start: an invalid job spec,
// an unsatisfiable skip combination or an empty model candidate list.
// It is always raised before any step executes.
type ConfigurationError struct {
	Message string
	Cause   error
}

func (e *ConfigurationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Cause
}

// IsConfigurationError reports whether err is a *ConfigurationError
func IsConfigurationError(err error) bool {
	var cfgErr *ConfigurationError
	return errors.As(err, &cfgErr)
}

// ErrorKind classifies an error observed by a step
func ErrorKind(err error) types.ErrorKind {
	var (
		cfgErr    *ConfigurationError
		itemErr   *types.PerItemError
		countErr  *assignments.CountError
		extErr    *llm.ExternalServiceError
	)
	switch {
	case errors.As(err, &cfgErr), errors.Is(err, llm.ErrNoCandidates):
		return types.ErrorConfiguration
	case errors.As(err, &itemErr):
		return types.ErrorPerItem
	case assignments.IsSchemaValidation(err), errors.As(err, &countErr):
		return types.ErrorSchemaValidation
	case llm.IsGatewayExhausted(err):
		return types.ErrorGatewayExhausted
	case errors.As(err, &extErr):
		return types.ErrorExternalService
	}
	return types.ErrorFilesystem
}

// stepError converts err into the RunResult record for step
func stepError(step string, err error, terminal bool) types.StepError {
	se := types.StepError{
		Step:     step,
		Kind:     ErrorKind(err),
		Message:  err.Error(),
		Terminal: terminal,
	}
	var itemErr *types.PerItemError
	if errors.As(err, &itemErr) {
		se.Item = itemErr.Item
	}
	return se
}
