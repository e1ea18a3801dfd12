package dispatcher

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// testLogger implements Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("DEBUG: %s %v", msg, keysAndValues))
}

func (l *testLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("INFO: %s %v", msg, keysAndValues))
}

func (l *testLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("ERROR: %s %v", msg, keysAndValues))
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *testLogger) {
	logger := &testLogger{}

	d, err := New(logger)
	if err != nil {
		t.Fatalf("failed to create dispatcher: %v", err)
	}
	t.Cleanup(d.Close)

	return d, logger
}

func TestDispatcher_SyncHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	called := false
	d.Register(":TEST:", func(e Event) (any, error) {
		called = true
		return "result", nil
	})

	result, err := d.Dispatch(Event{Command: ":TEST:", Args: []string{"arg1"}})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !called {
		t.Error("handler was not called")
	}
	if result != "result" {
		t.Errorf("expected 'result', got %v", result)
	}
}

func TestDispatcher_UnknownCommand(t *testing.T) {
	d, _ := newTestDispatcher(t)

	_, err := d.Dispatch(Event{Command: ":UNKNOWN:"})

	if !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("expected ErrUnknownCommand, got %v", err)
	}
}

func TestDispatcher_BufferedHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)

	d.Register(":BUFFERED:", func(e Event) (any, error) {
		processed.Add(1)
		wg.Done()
		return nil, nil
	}, Buffered(100))

	// Dispatch 3 events
	for i := 0; i < 3; i++ {
		result, err := d.Dispatch(Event{Command: ":BUFFERED:"})
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if q, ok := result.(Queued); !ok || q.Command != ":BUFFERED:" {
			t.Errorf("expected Queued for :BUFFERED:, got %v", result)
		}
	}

	// Wait for processing
	wg.Wait()

	if processed.Load() != 3 {
		t.Errorf("expected 3 processed, got %d", processed.Load())
	}
}

func TestDispatcher_BufferedDropsWhenFull(t *testing.T) {
	d, _ := newTestDispatcher(t)

	// Block the handler so queue fills up
	block := make(chan struct{})
	d.Register(":FULL:", func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(2))

	// Fill the queue (2 items) + 1 being processed
	d.Dispatch(Event{Command: ":FULL:"}) // being processed
	d.Dispatch(Event{Command: ":FULL:"}) // queued
	d.Dispatch(Event{Command: ":FULL:"}) // queued

	// This should be dropped
	_, err := d.Dispatch(Event{Command: ":FULL:"})

	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}
	if got := d.Stats()[0].Dropped; got < 1 {
		t.Errorf("expected a dropped event in stats, got %d", got)
	}

	close(block)
}

func TestDispatcher_BufferedBlocking(t *testing.T) {
	d, _ := newTestDispatcher(t)

	block := make(chan struct{})
	d.Register(":BLOCKING:", func(e Event) (any, error) {
		<-block
		return nil, nil
	}, Buffered(1), Blocking())

	// First event starts processing
	d.Dispatch(Event{Command: ":BLOCKING:"})
	// Second event fills the queue
	d.Dispatch(Event{Command: ":BLOCKING:"})

	// Third event should block (test with timeout)
	done := make(chan struct{})
	go func() {
		d.Dispatch(Event{Command: ":BLOCKING:"})
		close(done)
	}()

	select {
	case <-done:
		t.Error("dispatch should have blocked")
	case <-time.After(50 * time.Millisecond):
		// Expected - dispatch is blocking
	}

	close(block)
}

func TestDispatcher_LoggedHandler(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":LOGGED:", func(e Event) (any, error) {
		return "ok", nil
	}, Logged())

	d.Dispatch(Event{Command: ":LOGGED:", Args: []string{"a", "b"}})

	// Give time for logging
	time.Sleep(10 * time.Millisecond)

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected at least 2 log messages, got %d", len(logger.messages))
	}
}

func TestDispatcher_LoggedHandlerError(t *testing.T) {
	d, logger := newTestDispatcher(t)

	d.Register(":ERROR:", func(e Event) (any, error) {
		return nil, fmt.Errorf("test error")
	}, Logged())

	d.Dispatch(Event{Command: ":ERROR:"})

	logger.mu.Lock()
	defer logger.mu.Unlock()

	hasError := false
	for _, msg := range logger.messages {
		if len(msg) >= 5 && msg[:5] == "ERROR" {
			hasError = true
			break
		}
	}

	if !hasError {
		t.Error("expected error log message")
	}
}

func TestDispatcher_HasHandler(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register(":EXISTS:", func(e Event) (any, error) { return nil, nil })

	if !d.HasHandler(":EXISTS:") {
		t.Error("expected handler to exist")
	}

	if d.HasHandler(":NOT_EXISTS:") {
		t.Error("expected handler to not exist")
	}
}

func TestDispatcher_CombinedOptions(t *testing.T) {
	d, logger := newTestDispatcher(t)

	var processed atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)

	d.Register(":COMBINED:", func(e Event) (any, error) {
		processed.Add(1)
		wg.Done()
		return "done", nil
	}, Buffered(100), Logged())

	result, err := d.Dispatch(Event{Command: ":COMBINED:"})

	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, ok := result.(Queued); !ok {
		t.Errorf("expected Queued, got %v", result)
	}

	wg.Wait()
	// handler logging finishes after the handler returns
	d.Close()

	if processed.Load() != 1 {
		t.Errorf("expected 1 processed, got %d", processed.Load())
	}

	logger.mu.Lock()
	defer logger.mu.Unlock()

	if len(logger.messages) < 2 {
		t.Errorf("expected log messages, got %d", len(logger.messages))
	}
}

func TestDispatcher_Commands(t *testing.T) {
	d, _ := newTestDispatcher(t)

	if got := d.Commands(); len(got) != 0 {
		t.Errorf("expected no commands, got %v", got)
	}

	noop := func(e Event) (any, error) { return nil, nil }
	d.Register(":SAVE:", noop)
	d.Register(":PLACE:", noop, Logged())
	d.Register(":TRUCKS:", noop, Buffered(1))

	got := d.Commands()
	want := []string{":PLACE:", ":SAVE:", ":TRUCKS:"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Commands()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestDispatcher_BufferedHandlerErrorLogged(t *testing.T) {
	d, logger := newTestDispatcher(t)

	done := make(chan struct{})
	d.Register(":TRUCKS:", func(e Event) (any, error) {
		defer close(done)
		return nil, fmt.Errorf("bad report")
	}, Buffered(1))

	if _, err := d.Dispatch(Event{Command: ":TRUCKS:"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	<-done

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		logger.mu.Lock()
		n := len(logger.messages)
		logger.mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("expected buffered handler error to be logged")
}

func TestDispatcher_SourceDefaultsToHost(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var got string
	d.Register(":PLACE:", func(e Event) (any, error) {
		got = e.Source
		return nil, nil
	})

	d.Dispatch(Event{Command: ":PLACE:"})
	if got != SourceHost {
		t.Errorf("expected source %q, got %q", SourceHost, got)
	}

	d.Dispatch(Event{Command: ":PLACE:", Source: SourceHTTP})
	if got != SourceHTTP {
		t.Errorf("expected source %q, got %q", SourceHTTP, got)
	}
}

func TestDispatcher_Stats(t *testing.T) {
	d, _ := newTestDispatcher(t)

	d.Register(":PLACE:", func(e Event) (any, error) {
		if len(e.Args) == 0 {
			return nil, fmt.Errorf("missing coordinates")
		}
		return "ok", nil
	})
	d.Register(":TRUCKS:", func(e Event) (any, error) { return nil, nil }, Buffered(4))

	d.Dispatch(Event{Command: ":PLACE:", Args: []string{"1", "2", "road"}})
	d.Dispatch(Event{Command: ":PLACE:"})
	d.Dispatch(Event{Command: ":TRUCKS:", Source: SourceFeed})
	d.Close()

	stats := d.Stats()
	if len(stats) != 2 {
		t.Fatalf("expected 2 commands, got %v", stats)
	}

	place := stats[0]
	if place.Command != ":PLACE:" || place.Buffered {
		t.Errorf("unexpected :PLACE: stats %+v", place)
	}
	if place.Handled != 2 || place.Failed != 1 {
		t.Errorf("expected 2 handled and 1 failed, got %+v", place)
	}
	if place.LastError != "missing coordinates" {
		t.Errorf("expected last error recorded, got %q", place.LastError)
	}

	trucks := stats[1]
	if !trucks.Buffered || trucks.Handled != 1 || trucks.Pending != 0 {
		t.Errorf("unexpected :TRUCKS: stats %+v", trucks)
	}
}

func TestDispatcher_CloseDrainsQueue(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var processed atomic.Int32
	d.Register(":TRUCKS:", func(e Event) (any, error) {
		time.Sleep(time.Millisecond)
		processed.Add(1)
		return nil, nil
	}, Buffered(10))
	d.Register(":SAVE:", func(e Event) (any, error) { return "saved", nil })

	for i := 0; i < 5; i++ {
		if _, err := d.Dispatch(Event{Command: ":TRUCKS:"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	d.Close()
	if processed.Load() != 5 {
		t.Errorf("expected every queued event handled before Close returns, got %d", processed.Load())
	}

	if _, err := d.Dispatch(Event{Command: ":TRUCKS:"}); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after Close, got %v", err)
	}
	if result, err := d.Dispatch(Event{Command: ":SAVE:"}); err != nil || result != "saved" {
		t.Errorf("sync commands should keep working, got %v, %v", result, err)
	}

	// second Close is a no-op
	d.Close()
}

func TestDispatcher_ReRegisterBuffered(t *testing.T) {
	d, _ := newTestDispatcher(t)

	var first, second atomic.Int32
	d.Register(":TRUCKS:", func(e Event) (any, error) {
		first.Add(1)
		return nil, nil
	}, Buffered(1))
	d.Register(":TRUCKS:", func(e Event) (any, error) {
		second.Add(1)
		return nil, nil
	}, Buffered(1))

	if _, err := d.Dispatch(Event{Command: ":TRUCKS:"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d.Close()

	if first.Load() != 0 || second.Load() != 1 {
		t.Errorf("expected only the replacement handler to run, got first=%d second=%d", first.Load(), second.Load())
	}
}
