package types

import "fmt"

// PerItemError reports a single dataset or starter-code item that could not be generated.
// It never aborts the step that produced it.
type PerItemError struct {
	Step    string
	Item    string
	Message string
	Cause   error
}

func (e *PerItemError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: item %q failed: %s: %v", e.Step, e.Item, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: item %q failed: %s", e.Step, e.Item, e.Message)
}

func (e *PerItemError) Unwrap() error {
	return e.Cause
}
