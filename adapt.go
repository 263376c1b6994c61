package areabook

import (
	"context"
	"errors"
	"time"
)

// Apply creates a Step from a function that transforms data and may return
// an error. Apply is the workhorse adapter - use it when your
// transformation might fail due to validation, parsing, I/O, or business
// rule violations.
//
// The function receives a context for timeout/cancellation support. On
// error, the pipeline stops immediately and the error is returned wrapped
// in *Error with debugging context.
//
// Example:
//
//	parseJSON := areabook.Apply("parse_json", func(_ context.Context, raw string) (Data, error) {
//	    var data Data
//	    if err := json.Unmarshal([]byte(raw), &data); err != nil {
//	        return Data{}, fmt.Errorf("invalid JSON: %w", err)
//	    }
//	    return data, nil
//	})
func Apply[In, Out any](name Name, fn func(context.Context, In) (Out, error)) Step[In, Out] {
	return Step[In, Out]{
		name: name,
		fn: func(ctx context.Context, value In) (result Out, err error) {
			start := time.Now()
			defer recoverFromPanic(&result, &err, name, start)
			out, ferr := fn(ctx, value)
			if ferr != nil {
				var zero Out
				return zero, &Error{
					Path:      []Name{name},
					Err:       ferr,
					Timestamp: time.Now(),
					Duration:  time.Since(start),
					Timeout:   errors.Is(ferr, context.DeadlineExceeded),
					Canceled:  errors.Is(ferr, context.Canceled),
				}
			}
			return out, nil
		},
	}
}

// Transform creates a Step that applies a pure transformation to data.
// Transform is the simplest adapter - use it when your operation always
// succeeds. If the transformation might fail, use Apply instead.
//
// Example:
//
//	uppercase := areabook.Transform("uppercase", func(_ context.Context, s string) string {
//	    return strings.ToUpper(s)
//	})
func Transform[In, Out any](name Name, fn func(context.Context, In) Out) Step[In, Out] {
	return Step[In, Out]{
		name: name,
		fn: func(ctx context.Context, value In) (result Out, err error) {
			defer recoverFromPanic(&result, &err, name, time.Now())
			result = fn(ctx, value)
			return result, nil
		},
	}
}

// Effect creates a Step that performs a side effect without modifying the
// data. The function receives the value for inspection; any returned error
// stops the pipeline immediately, otherwise the value passes through
// unchanged. Ideal for logging, metrics, audit trails and validation
// without transformation.
func Effect[T any](name Name, fn func(context.Context, T) error) Step[T, T] {
	return Step[T, T]{
		name: name,
		fn: func(ctx context.Context, value T) (result T, err error) {
			start := time.Now()
			defer recoverFromPanic(&result, &err, name, start)
			if ferr := fn(ctx, value); ferr != nil {
				var zero T
				return zero, &Error{
					Path:      []Name{name},
					Err:       ferr,
					Timestamp: time.Now(),
					Duration:  time.Since(start),
					Timeout:   errors.Is(ferr, context.DeadlineExceeded),
					Canceled:  errors.Is(ferr, context.Canceled),
				}
			}
			return value, nil
		},
	}
}
