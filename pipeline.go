package areabook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for Pipeline.
const (
	// Metrics.
	PipelineProcessedTotal = metricz.Key("pipeline.processed.total")
	PipelineSuccessesTotal = metricz.Key("pipeline.successes.total")
	PipelineFailuresTotal  = metricz.Key("pipeline.failures.total")
	PipelineDurationMs     = metricz.Key("pipeline.duration.ms")

	// Spans.
	PipelineProcessSpan = tracez.Key("pipeline.process")

	// Tags.
	PipelineTagName    = tracez.Tag("pipeline.name")
	PipelineTagSuccess = tracez.Tag("pipeline.success")
	PipelineTagError   = tracez.Tag("pipeline.error")

	// Hook event keys.
	PipelineEventComplete = hookz.Key("pipeline.complete")
)

// PipelineEvent represents the completion of a pipeline run.
// It is emitted via hookz after every Process call, success or failure,
// allowing external systems to observe pipeline outcomes without being
// part of the data flow.
type PipelineEvent struct {
	Name      Name          // Pipeline name
	Success   bool          // Whether the run succeeded
	Error     error         // Error if the run failed
	Duration  time.Duration // How long the run took
	Timestamp time.Time     // When the run completed
}

// Pipeline is an immutable, type-safe chain of processing stages that
// turns a value of type In into a value of type Out.
//
// A Pipeline is built by wrapping a head stage with New and extending it
// with Then. Because Then returns a new Pipeline and never modifies its
// argument, a built pipeline can be stored once and shared across
// concurrent requests; each Process call re-executes the full chain from
// scratch with no state carried between invocations.
//
// Pipeline itself implements Chainable[In, Out], so whole pipelines can
// be used as stages of larger pipelines.
//
// # Observability
//
// Metrics:
//   - pipeline.processed.total: Counter of runs
//   - pipeline.successes.total: Counter of successful runs
//   - pipeline.failures.total: Counter of failed runs
//   - pipeline.duration.ms: Gauge of last run duration
//
// Traces:
//   - pipeline.process: Span covering the whole run
//
// Events (via hooks):
//   - pipeline.complete: Fired after every run
type Pipeline[In, Out any] struct {
	name  Name
	chain Chainable[In, Out]

	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[PipelineEvent]
	clock   clockz.Clock
}

// New wraps a chainable stage into a Pipeline. The resulting pipeline
// carries the given name in error paths, spans and events; the wrapped
// stage keeps its own name.
//
// Example:
//
//	resolve := areabook.Apply("resolve_path", resolveFn)
//	people := areabook.New("people", resolve)
func New[In, Out any](name Name, chain Chainable[In, Out]) *Pipeline[In, Out] {
	metrics := metricz.New()
	metrics.Counter(PipelineProcessedTotal)
	metrics.Counter(PipelineSuccessesTotal)
	metrics.Counter(PipelineFailuresTotal)
	metrics.Gauge(PipelineDurationMs)

	return &Pipeline[In, Out]{
		name:    name,
		chain:   chain,
		metrics: metrics,
		tracer:  tracez.New(),
		hooks:   hookz.New[PipelineEvent](),
	}
}

// Then returns a new Pipeline that runs p's chain and feeds its output
// into next, equivalent to x -> next(p(x)). The receiver pipeline is not
// modified, so intermediate pipelines remain valid and reusable.
//
// Then is a free function rather than a method because the composed
// pipeline's output type differs from p's, and Go methods cannot
// introduce new type parameters.
//
// Example:
//
//	people := areabook.Then(areabook.Then(areabook.Then(
//	    areabook.New("people", resolve),
//	    readLines),
//	    parseRecords),
//	    toContacts)
func Then[In, Mid, Out any](p *Pipeline[In, Mid], next Chainable[Mid, Out]) *Pipeline[In, Out] {
	return New[In, Out](p.name, Join(p.chain, next))
}

// Join composes two chainables into one, equivalent to x -> second(first(x)).
// It is the building block Then uses internally and is useful on its own
// when no pipeline-level observability is wanted around the composition.
func Join[In, Mid, Out any](first Chainable[In, Mid], second Chainable[Mid, Out]) Chainable[In, Out] {
	return joined[In, Mid, Out]{first: first, second: second}
}

// joined is the sequential composition of two chainables. Failure of the
// first stage short-circuits the second.
type joined[In, Mid, Out any] struct {
	first  Chainable[In, Mid]
	second Chainable[Mid, Out]
}

func (j joined[In, Mid, Out]) Process(ctx context.Context, value In) (Out, error) {
	mid, err := j.first.Process(ctx, value)
	if err != nil {
		var zero Out
		return zero, err
	}
	return j.second.Process(ctx, mid)
}

func (j joined[In, Mid, Out]) Name() Name {
	return j.first.Name() + "+" + j.second.Name()
}

// Process executes the composed chain on the input value. The first
// failing stage aborts the run; its error is returned with this
// pipeline's name prepended to the path. Non-pipeline errors from foreign
// Chainable implementations are wrapped.
//
// Process is safe for concurrent use.
func (p *Pipeline[In, Out]) Process(ctx context.Context, value In) (result Out, err error) {
	defer recoverFromPanic(&result, &err, p.name, time.Now())

	clock := p.getClock()
	start := clock.Now()

	// Handle nil context
	if ctx == nil {
		ctx = context.Background()
	}

	p.metrics.Counter(PipelineProcessedTotal).Inc()

	ctx, span := p.tracer.StartSpan(ctx, PipelineProcessSpan)
	span.SetTag(PipelineTagName, string(p.name))
	defer func() {
		elapsed := clock.Now().Sub(start)
		p.metrics.Gauge(PipelineDurationMs).Set(float64(elapsed.Milliseconds()))

		if err == nil {
			span.SetTag(PipelineTagSuccess, "true")
			p.metrics.Counter(PipelineSuccessesTotal).Inc()
		} else {
			span.SetTag(PipelineTagSuccess, "false")
			span.SetTag(PipelineTagError, err.Error())
			p.metrics.Counter(PipelineFailuresTotal).Inc()
		}
		span.Finish()

		_ = p.hooks.Emit(ctx, PipelineEventComplete, PipelineEvent{ //nolint:errcheck
			Name:      p.name,
			Success:   err == nil,
			Error:     err,
			Duration:  elapsed,
			Timestamp: clock.Now(),
		})
	}()

	result, err = p.chain.Process(ctx, value)
	if err != nil {
		var zero Out
		var pipeErr *Error
		if errors.As(err, &pipeErr) {
			// Prepend this pipeline's name to the path
			pipeErr.Path = append([]Name{p.name}, pipeErr.Path...)
			return zero, pipeErr
		}
		// Wrap non-pipeline errors
		return zero, &Error{
			Timestamp: clock.Now(),
			Duration:  clock.Now().Sub(start),
			Err:       err,
			Path:      []Name{p.name},
			Timeout:   errors.Is(err, context.DeadlineExceeded),
			Canceled:  errors.Is(err, context.Canceled),
		}
	}
	return result, nil
}

// Name returns the name of this pipeline.
func (p *Pipeline[In, Out]) Name() Name {
	return p.name
}

// Names returns the names of the stages in execution order, flattening
// nested compositions. Useful for debugging what a built pipeline will do.
func (p *Pipeline[In, Out]) Names() []Name {
	return flattenNames(p.chain)
}

// namer is implemented by compositions that can enumerate their parts.
type namer interface {
	parts() []any
}

func (j joined[In, Mid, Out]) parts() []any {
	return []any{j.first, j.second}
}

func flattenNames(c any) []Name {
	if n, ok := c.(namer); ok {
		var names []Name
		for _, part := range n.parts() {
			names = append(names, flattenNames(part)...)
		}
		return names
	}
	if named, ok := c.(interface{ Name() Name }); ok {
		return []Name{named.Name()}
	}
	return []Name{fmt.Sprintf("%T", c)}
}

// WithClock sets a custom clock for testing.
func (p *Pipeline[In, Out]) WithClock(clock clockz.Clock) *Pipeline[In, Out] {
	p.clock = clock
	return p
}

// getClock returns the clock to use.
func (p *Pipeline[In, Out]) getClock() clockz.Clock {
	if p.clock == nil {
		return clockz.RealClock
	}
	return p.clock
}

// Metrics returns the metrics registry for this pipeline.
func (p *Pipeline[In, Out]) Metrics() *metricz.Registry {
	return p.metrics
}

// Tracer returns the tracer for this pipeline.
func (p *Pipeline[In, Out]) Tracer() *tracez.Tracer {
	return p.tracer
}

// OnComplete registers a handler called asynchronously after every run,
// successful or not.
func (p *Pipeline[In, Out]) OnComplete(handler func(context.Context, PipelineEvent) error) error {
	_, err := p.hooks.Hook(PipelineEventComplete, handler)
	return err
}

// Close gracefully shuts down observability components.
func (p *Pipeline[In, Out]) Close() error {
	if p.tracer != nil {
		p.tracer.Close()
	}
	p.hooks.Close()
	return nil
}
