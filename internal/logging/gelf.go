package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogSink returns a sink that ships every record as a GELF message
// over UDP to addr. Close the returned closer on shutdown.
func NewGraylogSink(addr, level string) (Sink, io.Closer, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return Sink{}, nil, fmt.Errorf("graylog writer %s: %w", addr, err)
	}
	w.Facility = ServiceName
	return Sink{Name: SinkGraylog, Handler: slog.NewJSONHandler(w, handlerOptions(level))}, w, nil
}
