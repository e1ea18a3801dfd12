package logging

import (
	"context"
	"log/slog"

	"github.com/fleetfeast/pogicity/internal/util"
)

// checksumLen is how much of the grid checksum each record carries.
const checksumLen = 12

// WorldState is stamped onto every record while the city runs.
type WorldState struct {
	Tick     uint64
	Checksum string
}

// WorldStateFunc reports the current world state. ok is false when the state
// cannot be read without waiting, e.g. while a tick holds the engine.
type WorldStateFunc func() (state WorldState, ok bool)

// worldHandler adds tick and grid attributes to each record. A record or
// logger that already carries a tick keeps its own.
type worldHandler struct {
	inner   slog.Handler
	state   WorldStateFunc
	hasTick bool
}

func newWorldHandler(inner slog.Handler, state WorldStateFunc) *worldHandler {
	return &worldHandler{inner: inner, state: state}
}

func (h *worldHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *worldHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.hasTick || recordHasTick(r) {
		return h.inner.Handle(ctx, r)
	}
	if st, ok := h.state(); ok {
		r.AddAttrs(slog.Uint64("tick", st.Tick), slog.String("grid", util.Truncate(st.Checksum, checksumLen)))
	}
	return h.inner.Handle(ctx, r)
}

func (h *worldHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hasTick := h.hasTick
	for _, a := range attrs {
		if a.Key == "tick" {
			hasTick = true
		}
	}
	return &worldHandler{inner: h.inner.WithAttrs(attrs), state: h.state, hasTick: hasTick}
}

func (h *worldHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &worldHandler{inner: h.inner.WithGroup(name), state: h.state, hasTick: h.hasTick}
}

func recordHasTick(r slog.Record) bool {
	found := false
	r.Attrs(func(a slog.Attr) bool {
		found = a.Key == "tick"
		return !found
	})
	return found
}
