package observe

import (
	"context"
	"errors"
)

// Sink receives the loop's progress events. Implementations must not
// block the research loop; slow consumers should buffer on their side.
type Sink interface {
	Emit(ctx context.Context, event Event) error
}

// SinkFunc adapts a plain function to the Sink interface.
type SinkFunc func(ctx context.Context, event Event) error

func (f SinkFunc) Emit(ctx context.Context, event Event) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

// NoopSink discards every event. It is the loop's default observer.
type NoopSink struct{}

func (NoopSink) Emit(context.Context, Event) error { return nil }

// MultiSink fans each event out to every underlying sink. All sinks
// see every event even when one of them fails; the errors are joined.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink drops nil sinks and collapses the trivial cases: zero
// sinks become a NoopSink, a single sink is returned as-is.
func NewMultiSink(sinks ...Sink) Sink {
	kept := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			kept = append(kept, s)
		}
	}
	switch len(kept) {
	case 0:
		return NoopSink{}
	case 1:
		return kept[0]
	}
	return &MultiSink{sinks: kept}
}

func (m *MultiSink) Emit(ctx context.Context, event Event) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, sink := range m.sinks {
		if err := sink.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
