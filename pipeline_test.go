package areabook

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/clockz"
)

func TestPipeline(t *testing.T) {
	parse := Apply("parse", func(_ context.Context, s string) (int, error) {
		return strconv.Atoi(strings.TrimSpace(s))
	})
	double := Transform("double", func(_ context.Context, n int) int {
		return n * 2
	})
	describe := Transform("describe", func(_ context.Context, n int) string {
		return strconv.Itoa(n) + "!"
	})

	t.Run("Single Stage", func(t *testing.T) {
		p := New("math", parse)
		defer p.Close()

		result, err := p.Process(context.Background(), " 21 ")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != 21 {
			t.Errorf("expected 21, got %d", result)
		}
	})

	t.Run("Then Composes Across Types", func(t *testing.T) {
		p := Then(Then(New("math", parse), double), describe)
		defer p.Close()

		result, err := p.Process(context.Background(), "21")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != "42!" {
			t.Errorf("expected '42!', got %q", result)
		}
	})

	t.Run("Then Does Not Mutate Original", func(t *testing.T) {
		head := New("math", parse)
		defer head.Close()

		extended := Then(head, double)
		defer extended.Close()

		// The original still produces the un-extended result.
		got, err := head.Process(context.Background(), "21")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 21 {
			t.Errorf("expected original pipeline untouched, got %d", got)
		}

		extendedGot, err := extended.Process(context.Background(), "21")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if extendedGot != 42 {
			t.Errorf("expected 42 from extended pipeline, got %d", extendedGot)
		}
	})

	t.Run("Composition Is Associative", func(t *testing.T) {
		leftGrouped := Then(Then(New("math", parse), double), describe)
		defer leftGrouped.Close()

		rightGrouped := Then(New("math", Join(parse, double)), describe)
		defer rightGrouped.Close()

		single := New("math", Join(Join(parse, double), describe))
		defer single.Close()

		for _, input := range []string{"0", "7", "  13 "} {
			a, errA := leftGrouped.Process(context.Background(), input)
			b, errB := rightGrouped.Process(context.Background(), input)
			c, errC := single.Process(context.Background(), input)

			if errA != nil || errB != nil || errC != nil {
				t.Fatalf("unexpected errors: %v %v %v", errA, errB, errC)
			}
			if a != b || b != c {
				t.Errorf("groupings disagree for %q: %q %q %q", input, a, b, c)
			}
		}
	})

	t.Run("Fail Fast Skips Later Stages", func(t *testing.T) {
		called := false
		observer := Transform("observer", func(_ context.Context, n int) int {
			called = true
			return n
		})

		p := Then(Then(New("math", parse), double), observer)
		defer p.Close()

		_, err := p.Process(context.Background(), "not a number")
		if err == nil {
			t.Fatal("expected parse error")
		}
		if called {
			t.Error("expected stages after the failure to be skipped")
		}
	})

	t.Run("Error Path Includes Pipeline And Stage", func(t *testing.T) {
		p := Then(New("math", parse), double)
		defer p.Close()

		_, err := p.Process(context.Background(), "oops")
		if err == nil {
			t.Fatal("expected error")
		}

		var chainErr *Error
		if !errors.As(err, &chainErr) {
			t.Fatal("expected areabook.Error")
		}
		if len(chainErr.Path) != 2 || chainErr.Path[0] != "math" || chainErr.Path[1] != "parse" {
			t.Errorf("expected path [math parse], got %v", chainErr.Path)
		}
	})

	t.Run("Foreign Errors Are Wrapped", func(t *testing.T) {
		sentinel := errors.New("raw failure")
		p := New[int, int]("raw", rawChainable{err: sentinel})
		defer p.Close()

		_, err := p.Process(context.Background(), 1)
		var chainErr *Error
		if !errors.As(err, &chainErr) {
			t.Fatal("expected areabook.Error wrapping foreign error")
		}
		if !errors.Is(err, sentinel) {
			t.Error("expected errors.Is to reach the foreign error")
		}
		if len(chainErr.Path) != 1 || chainErr.Path[0] != "raw" {
			t.Errorf("expected path [raw], got %v", chainErr.Path)
		}
	})

	t.Run("Nil Context", func(t *testing.T) {
		p := New("math", parse)
		defer p.Close()

		//nolint:staticcheck // deliberately testing nil context handling
		result, err := p.Process(nil, "5")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result != 5 {
			t.Errorf("expected 5, got %d", result)
		}
	})

	t.Run("Names Flattens Stages", func(t *testing.T) {
		p := Then(Then(New("math", parse), double), describe)
		defer p.Close()

		names := p.Names()
		want := []Name{"parse", "double", "describe"}
		if len(names) != len(want) {
			t.Fatalf("expected %v, got %v", want, names)
		}
		for i := range want {
			if names[i] != want[i] {
				t.Errorf("stage %d: expected %q, got %q", i, want[i], names[i])
			}
		}
	})

	t.Run("Pipeline Recovers Panic In Foreign Chainable", func(t *testing.T) {
		p := New[int, int]("raw", rawChainable{panicMsg: "boom"})
		defer p.Close()

		result, err := p.Process(context.Background(), 1)
		if err == nil {
			t.Fatal("expected error from panic")
		}
		if result != 0 {
			t.Errorf("expected zero value, got %d", result)
		}
	})

	t.Run("Concurrent Reuse", func(t *testing.T) {
		p := Then(New("math", parse), double)
		defer p.Close()

		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				result, err := p.Process(context.Background(), strconv.Itoa(n))
				if err != nil {
					t.Errorf("unexpected error: %v", err)
					return
				}
				if result != n*2 {
					t.Errorf("expected %d, got %d", n*2, result)
				}
			}(i)
		}
		wg.Wait()
	})
}

func TestPipelineObservability(t *testing.T) {
	parse := Apply("parse", func(_ context.Context, s string) (int, error) {
		return strconv.Atoi(s)
	})

	t.Run("Metrics Count Runs", func(t *testing.T) {
		p := New("math", parse)
		defer p.Close()

		if _, err := p.Process(context.Background(), "1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := p.Process(context.Background(), "nope"); err == nil {
			t.Fatal("expected error")
		}

		if got := p.Metrics().Counter(PipelineProcessedTotal).Value(); got != 2 {
			t.Errorf("expected 2 processed, got %v", got)
		}
		if got := p.Metrics().Counter(PipelineSuccessesTotal).Value(); got != 1 {
			t.Errorf("expected 1 success, got %v", got)
		}
		if got := p.Metrics().Counter(PipelineFailuresTotal).Value(); got != 1 {
			t.Errorf("expected 1 failure, got %v", got)
		}
	})

	t.Run("Complete Hook Fires", func(t *testing.T) {
		p := New("math", parse)
		defer p.Close()

		var mu sync.Mutex
		var events []PipelineEvent
		if err := p.OnComplete(func(_ context.Context, event PipelineEvent) error {
			mu.Lock()
			events = append(events, event)
			mu.Unlock()
			return nil
		}); err != nil {
			t.Fatalf("failed to register hook: %v", err)
		}

		if _, err := p.Process(context.Background(), "1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := p.Process(context.Background(), "nope"); err == nil {
			t.Fatal("expected error")
		}

		// Wait for async hooks to fire
		time.Sleep(50 * time.Millisecond)

		mu.Lock()
		defer mu.Unlock()
		if len(events) != 2 {
			t.Fatalf("expected 2 events, got %d", len(events))
		}
		if !events[0].Success || events[0].Name != "math" {
			t.Errorf("unexpected first event: %+v", events[0])
		}
		if events[1].Success || events[1].Error == nil {
			t.Errorf("unexpected second event: %+v", events[1])
		}
	})

	t.Run("WithClock Drives Durations", func(t *testing.T) {
		clock := clockz.NewFakeClock()
		p := New("math", parse).WithClock(clock)
		defer p.Close()

		if _, err := p.Process(context.Background(), "1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// Fake clock never advanced, so the recorded duration is zero.
		if got := p.Metrics().Gauge(PipelineDurationMs).Value(); got != 0 {
			t.Errorf("expected 0ms duration with frozen clock, got %v", got)
		}
	})
}

func TestError(t *testing.T) {
	t.Run("Message Includes Path", func(t *testing.T) {
		e := &Error{
			Path:     []Name{"people", "parse_records"},
			Err:      errors.New("bad line"),
			Duration: time.Millisecond,
		}
		msg := e.Error()
		if !strings.Contains(msg, "people -> parse_records") {
			t.Errorf("expected path in message, got %q", msg)
		}
		if !strings.Contains(msg, "bad line") {
			t.Errorf("expected cause in message, got %q", msg)
		}
	})

	t.Run("Timeout And Cancel Classification", func(t *testing.T) {
		timeout := &Error{Err: context.DeadlineExceeded}
		if !timeout.IsTimeout() {
			t.Error("expected IsTimeout for deadline exceeded")
		}

		canceled := &Error{Err: context.Canceled}
		if !canceled.IsCanceled() {
			t.Error("expected IsCanceled for canceled")
		}

		plain := &Error{Err: errors.New("plain")}
		if plain.IsTimeout() || plain.IsCanceled() {
			t.Error("expected plain error to be neither timeout nor canceled")
		}
	})

	t.Run("Unwrap", func(t *testing.T) {
		cause := errors.New("cause")
		e := &Error{Err: cause, Path: []Name{"x"}}
		if !errors.Is(e, cause) {
			t.Error("expected errors.Is to reach cause")
		}
	})
}

// rawChainable is a Chainable implementation from outside the package's
// adapters, used to exercise foreign-error wrapping and panic recovery.
type rawChainable struct {
	err      error
	panicMsg string
}

func (r rawChainable) Process(_ context.Context, value int) (int, error) {
	if r.panicMsg != "" {
		panic(r.panicMsg)
	}
	if r.err != nil {
		return 0, r.err
	}
	return value, nil
}

func (r rawChainable) Name() Name { return "raw" }
