package fleet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/fleetfeast/pogicity/internal/parser"
	"github.com/fleetfeast/pogicity/pkg/core"
	"github.com/fleetfeast/pogicity/pkg/streaming"
)

// StreamPath is the fleet backend WebSocket endpoint.
const StreamPath = "/api/v1/stream"

// StreamURL derives the WebSocket URL from the backend's HTTP base URL.
func StreamURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + StreamPath
}

// StreamConfig holds WebSocket feed configuration.
type StreamConfig struct {
	URL   string
	Token string
	// Client identifies this process to the server.
	Client string
	// Depot restricts the subscription to one depot; empty means all trucks.
	Depot string
}

// Stream receives pushed truck states over WebSocket and acknowledges each
// report.
type Stream struct {
	conn   *connection
	cfg    StreamConfig
	sink   Sink
	logger *slog.Logger
}

// NewStream creates a stream delivering reports to sink.
func NewStream(cfg StreamConfig, sink Sink, logger *slog.Logger) *Stream {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Client == "" {
		cfg.Client = "pogicity"
	}
	s := &Stream{cfg: cfg, sink: sink, logger: logger}
	s.conn = newConnection(s.handle, logger)
	return s
}

// Start connects, subscribes and waits for the server's ack.
func (s *Stream) Start() error {
	if err := s.conn.dial(s.cfg.URL, s.cfg.Token); err != nil {
		return err
	}
	data, err := streaming.Marshal(streaming.TypeSubscribe, streaming.SubscribePayload{
		Client: s.cfg.Client,
		Depot:  s.cfg.Depot,
	})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	s.conn.mu.Lock()
	s.conn.cachedSubscribe = data
	s.conn.mu.Unlock()

	return s.conn.sendAndWait(data, streaming.TypeSubscribe, ackTimeout)
}

// Run starts the stream and keeps it open until ctx is cancelled.
func (s *Stream) Run(ctx context.Context) error {
	if err := s.Start(); err != nil {
		_ = s.Close()
		return fmt.Errorf("fleet stream: %w", err)
	}
	<-ctx.Done()
	if err := s.Close(); err != nil {
		s.logger.Warn("Error closing fleet stream", "error", err)
	}
	return ctx.Err()
}

// Close disconnects from the server.
func (s *Stream) Close() error {
	return s.conn.close()
}

func (s *Stream) handle(env streaming.Envelope) {
	switch env.Type {
	case streaming.TypeTruckStates:
		p, err := streaming.DecodeTruckStates(env)
		if err == nil {
			err = parser.ValidateTrucks(p.Trucks)
		}
		if err != nil {
			s.logger.Warn("Dropping malformed truck report", "error", err)
			return
		}
		s.sink(core.TruckSnapshot{Trucks: p.Trucks, ReceivedAt: time.Now().UTC()})
		s.ack(env.Type)
	default:
		s.logger.Debug("Ignoring message", "type", env.Type)
	}
}

func (s *Stream) ack(msgType string) {
	data, err := json.Marshal(streaming.AckMessage{Type: streaming.TypeAck, For: msgType})
	if err != nil {
		return
	}
	s.conn.send(data)
}
