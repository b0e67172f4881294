// Package server implements the N-FORCE HTTP API that game servers call to
// file exploit reports and query the ban ledger.
package server

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/NicolasHaas/nforce/pkg/datastore"
	"github.com/NicolasHaas/nforce/pkg/model"
	"github.com/NicolasHaas/nforce/pkg/moderation"
)

// Config holds server configuration.
type Config struct {
	Addr          string // HTTP bind address (e.g. ":8080")
	DBPath        string // SQLite database path
	ModConfigFile string // YAML file with guild/channel/role settings
	Open          bool   // serve the API without API-key auth (open server)
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Addr:   ":8080",
		DBPath: "nforce.db",
	}
}

// Notifier delivers a rendered exploit report to the moderation surface.
// The Discord bot is the production implementation.
type Notifier interface {
	Deliver(ctx context.Context, r model.Report) error
}

// Dependencies holds external dependencies for the server.
// Server assumes ownership of Store and will Close() it on shutdown.
type Dependencies struct {
	Store    datastore.DataProviderFactory
	Notifier Notifier
	Adapter  *moderation.Adapter
}

// Server routes API requests to the moderation adapter and the notifier.
type Server struct {
	cfg      Config
	router   *mux.Router
	metrics  *Metrics
	store    datastore.DataProviderFactory
	notifier Notifier
	adapter  *moderation.Adapter
	ctx      context.Context
	cancel   context.CancelFunc
}

// New creates a new Server instance and wires its routes.
func New(cfg Config, deps Dependencies) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:      cfg,
		metrics:  NewMetrics(),
		store:    deps.Store,
		notifier: deps.Notifier,
		adapter:  deps.Adapter,
		ctx:      ctx,
		cancel:   cancel,
	}
	s.router = s.routes()
	return s
}

// Metrics returns the server metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

// Handler returns the HTTP handler, exposed for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	// Probes stay outside the auth wall.
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(s.requireAPIKey)
	api.HandleFunc("/report", s.handleReport).Methods(http.MethodPost)
	api.HandleFunc("/ban", s.handleBan).Methods(http.MethodPost)
	api.HandleFunc("/unban/{playerId}", s.handleUnban).Methods(http.MethodDelete)
	api.HandleFunc("/bans/{playerId}", s.handleGetBan).Methods(http.MethodGet)
	api.HandleFunc("/checkBanStatus", s.handleCheckBanStatus).Methods(http.MethodPost)
	api.HandleFunc("/banlist", s.handleBanList).Methods(http.MethodGet)
	api.HandleFunc("/bantop", s.handleBanTop).Methods(http.MethodGet)

	return r
}
