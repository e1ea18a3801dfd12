package logging

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Sink names used by Setup.
const (
	SinkFile    = "file"
	SinkConsole = "console"
	SinkOTel    = "otel"
	SinkGraylog = "graylog"
)

// Sink is one named log destination.
type Sink struct {
	Name    string
	Handler slog.Handler
}

// sinkSet delivers every record to each sink that accepts its level. A
// failing sink does not stop the others; its failures are counted per name.
type sinkSet struct {
	sinks    []Sink
	failures map[string]*atomic.Int64
}

func newSinkSet(sinks ...Sink) *sinkSet {
	s := &sinkSet{failures: make(map[string]*atomic.Int64)}
	for _, sink := range sinks {
		if sink.Handler == nil {
			continue
		}
		s.sinks = append(s.sinks, sink)
		if _, ok := s.failures[sink.Name]; !ok {
			s.failures[sink.Name] = new(atomic.Int64)
		}
	}
	return s
}

// derive keeps the failure counters shared with copies made by WithAttrs
// and WithGroup.
func (s *sinkSet) derive(wrap func(slog.Handler) slog.Handler) *sinkSet {
	out := &sinkSet{sinks: make([]Sink, len(s.sinks)), failures: s.failures}
	for i, sink := range s.sinks {
		out.sinks[i] = Sink{Name: sink.Name, Handler: wrap(sink.Handler)}
	}
	return out
}

func (s *sinkSet) Enabled(ctx context.Context, level slog.Level) bool {
	for _, sink := range s.sinks {
		if sink.Handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (s *sinkSet) Handle(ctx context.Context, r slog.Record) error {
	for _, sink := range s.sinks {
		if !sink.Handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := sink.Handler.Handle(ctx, r.Clone()); err != nil {
			s.failures[sink.Name].Add(1)
		}
	}
	return nil
}

func (s *sinkSet) WithAttrs(attrs []slog.Attr) slog.Handler {
	return s.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (s *sinkSet) WithGroup(name string) slog.Handler {
	if name == "" {
		return s
	}
	return s.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (s *sinkSet) names() []string {
	out := make([]string, len(s.sinks))
	for i, sink := range s.sinks {
		out[i] = sink.Name
	}
	return out
}

// failureCounts returns sinks that failed at least once.
func (s *sinkSet) failureCounts() map[string]int64 {
	out := make(map[string]int64)
	for name, n := range s.failures {
		if v := n.Load(); v > 0 {
			out[name] = v
		}
	}
	return out
}
