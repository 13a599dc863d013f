package assignments

import "fmt"

// SchemaValidationError is returned when the model output could not be coerced into
// an assignment set, including after the repair attempt.
type SchemaValidationError struct {
	Attempts int
	// Raw is the last model response that was rejected
	Raw   string
	Cause error
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("assignment output failed validation after %d attempt(s): %v", e.Attempts, e.Cause)
}

func (e *SchemaValidationError) Unwrap() error {
	return e.Cause
}

// CountError reports an assignment set with fewer records than requested
type CountError struct {
	Want int
	Got  int
}

func (e *CountError) Error() string {
	return fmt.Sprintf("expected %d assignment(s), got %d", e.Want, e.Got)
}
