package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event sources.
const (
	SourceHost = "host"
	SourceHTTP = "http"
	SourceFeed = "feed"
)

// Event is an editor or feed command addressed by name, e.g. ":PLACE:".
type Event struct {
	Command   string
	Args      []string
	Timestamp time.Time
	// Source is one of the Source* constants. Dispatch fills in SourceHost
	// when it is empty.
	Source string
}

var (
	ErrUnknownCommand = errors.New("unknown command")
	ErrQueueFull      = errors.New("command queue full")
	ErrClosed         = errors.New("dispatcher closed")
)

// Queued is the result of a buffered command once its event is accepted.
type Queued struct {
	Command string `json:"command"`
	Pending int    `json:"pending"`
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// CommandStats describes one registered command since start. Handled
// includes failed events.
type CommandStats struct {
	Command        string  `json:"command"`
	Buffered       bool    `json:"buffered"`
	Handled        int64   `json:"handled"`
	Failed         int64   `json:"failed"`
	Dropped        int64   `json:"dropped"`
	Pending        int     `json:"pending"`
	LastDurationMs float64 `json:"lastDurationMs"`
	LastError      string  `json:"lastError,omitempty"`
}

// route is one registered command.
type route struct {
	command  string
	handle   HandlerFunc
	buffer   chan Event
	blocking bool
	logged   bool
	// retired is set under Dispatcher.mu once buffer is closed
	retired bool

	handled   atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
	lastNanos atomic.Int64
	lastErr   atomic.Pointer[string]
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	logger Logger

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	duration  metric.Float64Histogram

	// mu guards routes and closed; buffered sends hold it for reading so
	// Close never closes a channel under a sender.
	mu      sync.RWMutex
	routes  map[string]*route
	closed  bool
	workers sync.WaitGroup
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		routes: make(map[string]*route),
		logger: logger,
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"pogicity.dispatcher.queue.size",
		metric.WithDescription("Events waiting in a buffered command queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for cmd, r := range d.routes {
				if r.buffer == nil {
					continue
				}
				o.ObserveInt64(d.queueSize, int64(len(r.buffer)),
					metric.WithAttributes(attribute.String("command", cmd)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"pogicity.dispatcher.events.processed",
		metric.WithDescription("Events handled, by command and outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"pogicity.dispatcher.events.dropped",
		metric.WithDescription("Events dropped because the command queue was full"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	d.duration, err = m.Float64Histogram(
		"pogicity.dispatcher.command.duration",
		metric.WithDescription("Time spent in a command handler"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating duration histogram: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given command with optional configuration.
// Registering a command again replaces it.
func (d *Dispatcher) Register(command string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	r := &route{command: command, logged: cfg.logged}

	handler := d.track(r, h)
	if cfg.logged {
		handler = d.withLogging(command, handler)
	}
	if cfg.bufferSize > 0 {
		r.buffer = make(chan Event, cfg.bufferSize)
		r.blocking = cfg.blocking
		d.workers.Add(1)
		go d.drain(r, handler)
		handler = d.enqueue(r)
	}
	r.handle = handler

	d.mu.Lock()
	defer d.mu.Unlock()
	if old, ok := d.routes[command]; ok && old.buffer != nil && !old.retired {
		old.retired = true
		close(old.buffer)
	}
	if d.closed && r.buffer != nil {
		r.retired = true
		close(r.buffer)
	}
	d.routes[command] = r
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	r, ok := d.routes[e.Command]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownCommand, e.Command)
	}
	if e.Source == "" {
		e.Source = SourceHost
	}
	return r.handle(e)
}

// HasHandler returns true if a handler is registered for the command.
func (d *Dispatcher) HasHandler(command string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[command]
	return ok
}

// Commands returns the registered command names in sorted order.
func (d *Dispatcher) Commands() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.routes))
	for cmd := range d.routes {
		out = append(out, cmd)
	}
	sort.Strings(out)
	return out
}

// Stats returns per-command counters sorted by command name.
func (d *Dispatcher) Stats() []CommandStats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]CommandStats, 0, len(d.routes))
	for _, r := range d.routes {
		s := CommandStats{
			Command:        r.command,
			Buffered:       r.buffer != nil,
			Handled:        r.handled.Load(),
			Failed:         r.failed.Load(),
			Dropped:        r.dropped.Load(),
			LastDurationMs: float64(r.lastNanos.Load()) / float64(time.Millisecond),
		}
		if r.buffer != nil {
			s.Pending = len(r.buffer)
		}
		if msg := r.lastErr.Load(); msg != nil {
			s.LastError = *msg
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Command < out[j].Command })
	return out
}

// Close stops accepting buffered events and waits until every queued event
// has been handled. Sync commands keep working afterwards.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, r := range d.routes {
			if r.buffer != nil && !r.retired {
				r.retired = true
				close(r.buffer)
			}
		}
	}
	d.mu.Unlock()
	d.workers.Wait()
}

// track counts every call of h on r and records its duration.
func (d *Dispatcher) track(r *route, h HandlerFunc) HandlerFunc {
	cmdAttr := attribute.String("command", r.command)
	return func(e Event) (any, error) {
		start := time.Now()
		result, err := h(e)
		elapsed := time.Since(start)

		r.handled.Add(1)
		r.lastNanos.Store(int64(elapsed))
		outcome := "ok"
		if err != nil {
			r.failed.Add(1)
			msg := err.Error()
			r.lastErr.Store(&msg)
			outcome = "error"
		}

		ctx := context.Background()
		d.duration.Record(ctx, float64(elapsed)/float64(time.Millisecond), metric.WithAttributes(cmdAttr))
		d.processed.Add(ctx, 1, metric.WithAttributes(cmdAttr, attribute.String("outcome", outcome), attribute.String("source", e.Source)))
		return result, err
	}
}

func (d *Dispatcher) drain(r *route, h HandlerFunc) {
	defer d.workers.Done()
	for e := range r.buffer {
		if _, err := h(e); err != nil && !r.logged {
			d.logger.Error("buffered event failed", "command", r.command, "source", e.Source, "error", err)
		}
	}
}

func (d *Dispatcher) enqueue(r *route) HandlerFunc {
	cmdAttr := attribute.String("command", r.command)
	return func(e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed || r.retired {
			return nil, fmt.Errorf("%w: %s", ErrClosed, r.command)
		}

		if r.blocking {
			r.buffer <- e
			return Queued{Command: r.command, Pending: len(r.buffer)}, nil
		}

		select {
		case r.buffer <- e:
			return Queued{Command: r.command, Pending: len(r.buffer)}, nil
		default:
			r.dropped.Add(1)
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(cmdAttr))
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, r.command)
		}
	}
}

func (d *Dispatcher) withLogging(command string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "command", command, "source", e.Source, "args", len(e.Args))

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "command", command, "source", e.Source, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "command", command, "source", e.Source, "duration", time.Since(start))
		}

		return result, err
	}
}
