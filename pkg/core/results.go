package core

// Result is the uniform envelope returned by public wallet operations.
// Exactly one of Value/Err is meaningful; Err is always a classified
// *Error so callers never see an unclassified fault.
type Result[T any] struct {
	Value T
	Err   *Error
}

func OK[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func Fail[T any](err *Error) Result[T] {
	return Result[T]{Err: err}
}

func (r Result[T]) Success() bool {
	return r.Err == nil
}

// Unwrap returns the value, or the classified error on failure.
func (r Result[T]) Unwrap() (T, error) {
	if r.Err != nil {
		var zero T
		return zero, r.Err
	}
	return r.Value, nil
}

// MustUnwrap panics on failure. Intended for tests and tooling.
func (r Result[T]) MustUnwrap() T {
	if r.Err != nil {
		panic(r.Err)
	}
	return r.Value
}
