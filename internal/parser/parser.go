// Package parser converts raw command arguments into typed requests. Numbers
// may arrive float-formatted ("12.00") from script clients, and string
// arguments may carry surrounding or doubled quotes.
package parser

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/fleetfeast/pogicity/internal/util"
)

// parseUintFromFloat parses a string that may be an integer ("32") or float ("32.00") into uint64.
func parseUintFromFloat(s string) (uint64, error) {
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f < 0 || f != float64(uint64(f)) {
		return 0, fmt.Errorf("parseUintFromFloat: %q is not a valid uint64", s)
	}
	return uint64(f), nil
}

// parseIntFromFloat parses a string that may be an integer or float into int64.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// Parser provides pure []string -> request conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger}
}

// clean strips quoting from every argument in place.
func clean(data []string) []string {
	out := make([]string, len(data))
	for i, v := range data {
		out[i] = util.FixEscapeQuotes(util.TrimQuotes(v))
	}
	return out
}

func need(data []string, n int, command string) error {
	if len(data) < n {
		return fmt.Errorf("%s: expected at least %d args, got %d", command, n, len(data))
	}
	return nil
}

// cell parses an integral coordinate pair.
func cell(xs, ys string) (int, int, error) {
	x, err := parseIntFromFloat(xs)
	if err != nil {
		return 0, 0, fmt.Errorf("error parsing x: %w", err)
	}
	y, err := parseIntFromFloat(ys)
	if err != nil {
		return 0, 0, fmt.Errorf("error parsing y: %w", err)
	}
	return int(x), int(y), nil
}

// point parses a fractional coordinate pair.
func point(xs, ys string) (float64, float64, error) {
	x, err := strconv.ParseFloat(xs, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("error parsing x: %w", err)
	}
	y, err := strconv.ParseFloat(ys, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("error parsing y: %w", err)
	}
	return x, y, nil
}
