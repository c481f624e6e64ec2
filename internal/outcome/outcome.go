// Package outcome provides a tagged result type holding either a value or
// an error, never both, so batch processing can collect results without
// interleaving control flow.
package outcome

import "errors"

// Outcome carries exactly one of a successful value or an error.
// Construct with Ok or Fail; a nil error always means success.
type Outcome[T any] struct {
	value T
	err   error
}

// Ok wraps a successful value.
func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{value: v}
}

// Fail wraps an error. A nil err is replaced so the outcome is never
// value-less and error-less at the same time.
func Fail[T any](err error) Outcome[T] {
	if err == nil {
		err = errors.New("unspecified failure")
	}
	return Outcome[T]{err: err}
}

// OK reports whether the outcome holds a value.
func (o Outcome[T]) OK() bool {
	return o.err == nil
}

// Err returns the carried error, nil for successful outcomes.
func (o Outcome[T]) Err() error {
	return o.err
}

// Unpack returns the value and error in the usual Go shape.
func (o Outcome[T]) Unpack() (T, error) {
	return o.value, o.err
}
