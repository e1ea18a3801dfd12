// Package server exposes the engine over HTTP: read-only world views, the
// GeoJSON export, and a command endpoint that goes through the dispatcher.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/fleetfeast/pogicity/internal/agent"
	"github.com/fleetfeast/pogicity/internal/building"
	"github.com/fleetfeast/pogicity/internal/dispatcher"
	"github.com/fleetfeast/pogicity/internal/geo"
	"github.com/fleetfeast/pogicity/internal/grid"
	"github.com/fleetfeast/pogicity/internal/settings"
	"github.com/fleetfeast/pogicity/internal/sim"
	"github.com/fleetfeast/pogicity/internal/storage"
	"github.com/fleetfeast/pogicity/internal/zone"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// maxBody caps request bodies.
const maxBody = 4 << 20

// Dependencies holds everything the HTTP API needs.
type Dependencies struct {
	Engine     *sim.Engine
	Dispatcher *dispatcher.Dispatcher
	Settings   *settings.Store
	// Anchor enables GET /api/geojson when set.
	Anchor *geo.Anchor
	Logger *slog.Logger

	RequestsPerSecond float64
	Burst             int
}

// Server is the editor HTTP API.
type Server struct {
	deps    Dependencies
	limiter *ipLimiter
	router  chi.Router
}

// New builds the router.
func New(deps Dependencies) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	s := &Server{
		deps:    deps,
		limiter: newIPLimiter(deps.RequestsPerSecond, deps.Burst),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.limiter.middleware)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/world", s.getWorld)
		r.Get("/world/stats", s.getStats)
		r.Get("/cells/{x}/{y}", s.getCell)
		r.Get("/zones", s.getZones)
		r.Get("/cars", s.getCars)
		r.Get("/characters", s.getCharacters)
		r.Get("/settings", s.getSettings)
		r.Get("/geojson", s.getGeoJSON)

		r.Get("/commands", s.listCommands)
		r.Post("/commands", s.postCommand)
		r.Post("/trucks", s.postTrucks)
	})
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	prune := time.NewTicker(time.Minute)
	defer prune.Stop()

	for {
		select {
		case err := <-errCh:
			return err
		case <-prune.C:
			s.limiter.prune()
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return err
			}
			return ctx.Err()
		}
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.deps.Logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"requestId", middleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) getWorld(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Engine.Snapshot())
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"tick":     s.deps.Engine.CurrentTick(),
		"checksum": s.deps.Engine.Checksum(),
		"grid":     s.deps.Engine.Stats(),
		"fleet":    s.deps.Engine.FleetStatuses(),
	})
}

func (s *Server) getCell(w http.ResponseWriter, r *http.Request) {
	x, errX := strconv.Atoi(chi.URLParam(r, "x"))
	y, errY := strconv.Atoi(chi.URLParam(r, "y"))
	if errX != nil || errY != nil {
		respondError(w, http.StatusBadRequest, "invalid cell coordinates")
		return
	}
	c, err := s.deps.Engine.CellAt(x, y)
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) getZones(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Engine.Zones())
}

func (s *Server) getCars(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Engine.Cars())
}

func (s *Server) getCharacters(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Engine.Characters())
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	if s.deps.Settings == nil {
		respondJSON(w, http.StatusOK, settings.DefaultScene())
		return
	}
	respondJSON(w, http.StatusOK, s.deps.Settings.Scene())
}

func (s *Server) getGeoJSON(w http.ResponseWriter, r *http.Request) {
	if s.deps.Anchor == nil {
		respondError(w, http.StatusNotFound, "geo export not configured")
		return
	}
	fc := geo.Export(s.deps.Engine.Snapshot(), s.deps.Engine.Zones(), s.deps.Anchor)
	w.Header().Set("Content-Type", "application/geo+json")
	if err := geo.WriteGeoJSON(w, fc); err != nil {
		s.deps.Logger.Error("Failed to write GeoJSON", "error", err)
	}
}

// CommandRequest is the body of POST /api/commands.
type CommandRequest struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
}

// CommandResponse carries a handler's result.
type CommandResponse struct {
	Command string `json:"command"`
	Result  any    `json:"result,omitempty"`
}

func (s *Server) listCommands(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.deps.Dispatcher.Stats())
}

func (s *Server) postCommand(w http.ResponseWriter, r *http.Request) {
	var req CommandRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBody)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	s.dispatch(w, req, dispatcher.SourceHTTP)
}

// postTrucks accepts a fleet report pushed by the backend.
func (s *Server) postTrucks(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}
	s.dispatch(w, CommandRequest{Command: ":TRUCKS:", Args: []string{string(body)}}, dispatcher.SourceFeed)
}

func (s *Server) dispatch(w http.ResponseWriter, req CommandRequest, source string) {
	result, err := s.deps.Dispatcher.Dispatch(dispatcher.Event{
		Command:   req.Command,
		Args:      req.Args,
		Timestamp: time.Now(),
		Source:    source,
	})
	if err != nil {
		respondError(w, statusFor(err), err.Error())
		return
	}
	respondJSON(w, http.StatusOK, CommandResponse{Command: req.Command, Result: result})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, grid.ErrOccupied),
		errors.Is(err, grid.ErrNotAnOrigin),
		errors.Is(err, agent.ErrDuplicateAgent):
		return http.StatusConflict
	case errors.Is(err, agent.ErrUnknownAgent),
		errors.Is(err, storage.ErrNoSnapshot),
		errors.Is(err, dispatcher.ErrUnknownCommand):
		return http.StatusNotFound
	case errors.Is(err, dispatcher.ErrQueueFull),
		errors.Is(err, dispatcher.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, grid.ErrOutOfBounds),
		errors.Is(err, grid.ErrInvalidPlacement),
		errors.Is(err, grid.ErrInvalidOrientation),
		errors.Is(err, building.ErrUnknownBuildingID),
		errors.Is(err, zone.ErrUnknownZone):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
