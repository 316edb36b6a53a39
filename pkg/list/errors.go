package list

import (
	"errors"
	"fmt"
)

// ErrUnsupportedOperation is returned when an operation is not valid for a
// list: fetching into an Empty List or fetching a list a second time.
var ErrUnsupportedOperation = errors.New("list: unsupported operation")

// OutOfRangeError is returned by At for an index outside [0, Len).
type OutOfRangeError struct {
	Index int
	Len   int
}

// Error implements the error interface.
func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("list: index %d out of range [0, %d)", e.Index, e.Len)
}
