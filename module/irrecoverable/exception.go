package irrecoverable

import (
	"fmt"
)

// exception represents an unexpected error. An unexpected error is any
// error returned by a function, other than the errors documented by
// that function.
//
// Wrapping an error in an exception ensures that sentinel comparisons
// further up the stack cannot accidentally match it: all sentinel
// information of the wrapped error is dropped.
type exception struct {
	err error
}

// Error returns the error string of the exception. It is always
// prefixed by `[exception!]` to easily differentiate unexpected errors
// in logs.
func (e exception) Error() string {
	return "[exception!] " + e.err.Error()
}

// NewException wraps the input error as an exception, stripping any
// sentinel information.
func NewException(err error) error {
	return exception{err: err}
}

// NewExceptionf is NewException with the ability to add formatting and
// context to the error text.
func NewExceptionf(msg string, args ...interface{}) error {
	return NewException(fmt.Errorf(msg, args...))
}
