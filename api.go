// Package areabook provides a lightweight, type-safe library for composing
// data processing steps into pipelines. It is the core of the areabook
// contact-directory service (see the contacts and server packages), but
// carries no knowledge of that domain.
//
// # Core Concepts
//
// The library is built around a single, uniform interface:
//
//	type Chainable[In, Out any] interface {
//	    Process(context.Context, In) (Out, error)
//	    Name() Name
//	}
//
// Key components:
//   - Steps: individual processing stages created with adapter functions
//     (Transform, Apply, Effect)
//   - Pipeline: an immutable chain of steps built with New and Then
//
// Unlike same-type sequences, a step's output type may differ from its
// input type; composition is checked by the compiler end to end.
//
// Design philosophy:
//   - Steps are immutable values (simple functions wrapped with metadata)
//   - Pipelines are immutable once built: Then returns a new Pipeline and
//     never modifies the receiver, so a built pipeline can be shared freely
//     across concurrent requests
//   - Execution is fail-fast: the first failing step aborts the chain and
//     its error, wrapped in *Error with the path to the failure, becomes
//     the chain's error
//
// # Quick Start
//
//	parse := areabook.Apply("parse", func(_ context.Context, s string) (int, error) {
//	    return strconv.Atoi(s)
//	})
//	double := areabook.Transform("double", func(_ context.Context, n int) int {
//	    return n * 2
//	})
//
//	pipeline := areabook.Then(areabook.New("math", parse), double)
//	result, err := pipeline.Process(context.Background(), "21")
//	// result: 42, err: nil
//
// # Observability
//
// Each Pipeline owns a metrics registry, a tracer and an event hook set.
// Process increments processed/success/failure counters, records the run
// duration, opens a pipeline.process span and emits a pipeline.complete
// event after every run. Time is read through an injectable clock so tests
// can control durations.
package areabook

import "context"

// Chainable defines the interface for any component that can process a
// value of type In into a value of type Out. Steps, pipelines and
// composed chains all implement it, which is what makes them freely
// combinable with New, Then and Join.
type Chainable[In, Out any] interface {
	Process(context.Context, In) (Out, error)
	Name() Name
}

// Name is a type alias for step and pipeline names.
// Using this type encourages storing names as constants rather than
// using inline strings throughout your code.
//
// Names appear in Error.Path for debugging (e.g. ["people", "parse_records"]).
type Name = string

// Step is a named processing stage that transforms a value of type In
// into a value of type Out. Steps are created through the adapter
// functions (Apply, Transform, Effect), which keeps error wrapping and
// panic recovery consistent; the fn field is intentionally private.
type Step[In, Out any] struct {
	fn   func(context.Context, In) (Out, error)
	name Name
}

// Process implements the Chainable interface, allowing individual steps
// to be used directly or composed into pipelines.
func (s Step[In, Out]) Process(ctx context.Context, value In) (Out, error) {
	return s.fn(ctx, value)
}

// Name returns the name of the step for debugging and error reporting.
func (s Step[In, Out]) Name() Name {
	return s.name
}
