package submit

import (
	"errors"
	"fmt"
)

// FatalError is a failed Critical step. The run stopped at this step.
type FatalError struct {
	Step string
	Err  error
}

// Error implements the error interface
func (e *FatalError) Error() string {
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

// Unwrap returns the underlying error
func (e *FatalError) Unwrap() error {
	return e.Err
}

// ItemFailure is a failed step of an independent item. The run continued.
type ItemFailure struct {
	Item string
	Step string
	Err  error
}

// Error implements the error interface
func (e *ItemFailure) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Item, e.Step, e.Err)
}

// Unwrap returns the underlying error
func (e *ItemFailure) Unwrap() error {
	return e.Err
}

// IsFatal checks if an error aborted a run
func IsFatal(err error) bool {
	var fe *FatalError
	return errors.As(err, &fe)
}

// IsItemFailure checks if an error is a tolerated per-item failure
func IsItemFailure(err error) bool {
	var ie *ItemFailure
	return errors.As(err, &ie)
}
