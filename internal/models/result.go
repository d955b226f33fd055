package models

// Result carries either a value or the error that prevented producing it.
// Remote sources return it instead of a (value, error) pair so a failed
// item can travel through fan-out code alongside successful ones.
type Result[T any] struct {
	Value T
	Err   error
}

func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{Err: err}
}

func (r Result[T]) IsOk() bool {
	return r.Err == nil
}

func (r Result[T]) Unwrap() (T, error) {
	return r.Value, r.Err
}

type UpdateCheckResult struct {
	RunID   string
	Updates []Game
	Errors  []error
}

type UpdateResult struct {
	RunID        string
	SuccessCount int
	ErrorCount   int
}
