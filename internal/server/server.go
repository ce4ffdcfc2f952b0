// Package server exposes the player over a small JSON API so a browser
// renderer (or curl) can drive playback and read snapshots with their
// render attributes.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abelbrown/emograph/internal/anim"
	"github.com/abelbrown/emograph/internal/dataset"
	"github.com/abelbrown/emograph/internal/force"
	"github.com/abelbrown/emograph/internal/metrics"
	"github.com/abelbrown/emograph/internal/otel"
)

// Config wires the server to the shared playback state.
type Config struct {
	Source  dataset.Source
	Player  *anim.Player
	Params  force.Params
	Weights force.Weights
	Events  *otel.Logger // optional
	Logger  *log.Logger  // optional
}

// Server owns the dataset currently loaded into the player and the force
// tuning that shapes rendered snapshots.
type Server struct {
	source  dataset.Source
	player  *anim.Player
	weights force.Weights
	events  *otel.Logger
	log     *log.Logger

	mu       sync.RWMutex
	params   force.Params
	graph    *dataset.Graph
	dataType string
	name     string
	loadGen  uint64

	router chi.Router
}

// New builds the server and its routes.
func New(cfg Config) *Server {
	if cfg.Weights == nil {
		cfg.Weights = force.DefaultWeights()
	}
	if cfg.Events == nil {
		cfg.Events = otel.NewNullLogger()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(io.Discard)
	}
	s := &Server{
		source:  cfg.Source,
		player:  cfg.Player,
		weights: cfg.Weights,
		events:  cfg.Events,
		log:     cfg.Logger,
		params:  cfg.Params.Clamped(),
		graph:   &dataset.Graph{},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.instrument)

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/index", s.handleIndex)
		r.Get("/categories", s.handleCategories)
		r.Post("/datasets/{type}/{name}", s.handleLoad)
		r.Get("/snapshot", s.handleSnapshot)
		r.Post("/playback", s.handlePlayback)
		r.Post("/step", s.handleStep)
		r.Get("/params", s.handleGetParams)
		r.Put("/params", s.handlePutParams)
		r.Get("/links/{source}/{target}/event", s.handleLinkEvent)
	})
	return r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// LoadDataset fetches a dataset and loads it into the player. On failure the
// player is loaded with an empty graph so playback idles, and the error is
// returned. Concurrent loads are applied in request order: a load that
// finishes after a later one started returns dataset.ErrSuperseded.
func (s *Server) LoadDataset(ctx context.Context, dataType, name string) (*dataset.Graph, error) {
	s.mu.Lock()
	s.loadGen++
	gen := s.loadGen
	s.mu.Unlock()

	start := time.Now()
	g, err := s.source.Load(ctx, dataType, name)
	dur := time.Since(start)
	if err != nil {
		g = &dataset.Graph{Nodes: []dataset.Node{}, Frames: []dataset.Frame{}}
	}

	s.mu.Lock()
	if gen != s.loadGen {
		s.mu.Unlock()
		s.log.Debug("dataset load superseded", "type", dataType, "name", name)
		return nil, dataset.ErrSuperseded
	}
	s.graph = g
	s.dataType, s.name = dataType, name
	s.player.Load(g.Nodes, g.Frames)
	s.mu.Unlock()

	metrics.RecordLoad(dataType, dur, err)
	if err != nil {
		s.events.Emit(otel.Event{Level: otel.LevelError, Kind: otel.KindDatasetError, Comp: "server",
			DataType: dataType, Dataset: name, Err: err.Error()})
		s.log.Error("dataset load failed", "type", dataType, "name", name, "err", err)
	} else {
		s.events.Emit(otel.Event{Level: otel.LevelInfo, Kind: otel.KindDatasetLoad, Comp: "server",
			DataType: dataType, Dataset: name, Count: g.EventCount(), Dur: dur})
		s.log.Info("dataset loaded", "type", dataType, "name", name,
			"nodes", len(g.Nodes), "frames", len(g.Frames))
	}
	return g, err
}

// Current returns the loaded dataset identity.
func (s *Server) Current() (dataType, name string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataType, s.name
}

// Params returns the current force tuning.
func (s *Server) Params() force.Params {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen %s: %w", addr, err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}
