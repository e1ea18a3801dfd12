package fleet

import (
	"context"
	"log/slog"
	"time"

	"github.com/fleetfeast/pogicity/pkg/core"
)

// Sink receives every decoded fleet report.
type Sink func(core.TruckSnapshot)

// Poller fetches truck states on a fixed interval.
type Poller struct {
	client   *Client
	interval time.Duration
	sink     Sink
	logger   *slog.Logger
}

// NewPoller creates a poller delivering reports to sink.
func NewPoller(client *Client, interval time.Duration, sink Sink, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{client: client, interval: interval, sink: sink, logger: logger}
}

// Run polls immediately and then every interval until ctx is cancelled.
// A failed poll is logged and skipped; the engine keeps the last report.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	failures := 0
	for {
		snap, err := p.client.FetchTrucks(ctx)
		switch {
		case err == nil:
			if failures > 0 {
				p.logger.Info("Fleet backend reachable again", "failedPolls", failures)
			}
			failures = 0
			p.sink(snap)
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			failures++
			p.logger.Warn("Fleet poll failed", "error", err, "consecutive", failures)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
