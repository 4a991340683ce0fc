// Package httpapi exposes the registry's status and endpoint data over
// HTTP: a read-only REST surface plus a websocket event stream. External
// supervisors and tunnelling tools can read registry state through it; it
// has no mutating routes, so claims, releases, and status/endpoint updates
// go through the registry package directly. The registry itself never
// imports this package.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/websoft9/portd/internal/registry"
)

// Server bundles the chi router, the Registry it serves, and the event bus
// its websocket endpoint streams from.
type Server struct {
	router   chi.Router
	registry *registry.Registry
	events   *EventBus
	log      zerolog.Logger
}

// Options configures New.
type Options struct {
	CORSAllowedOrigins []string
	Log                zerolog.Logger
}

// New builds a Server over reg. Pass events (e.g. created alongside reg via
// registry.WithNotifier(events.Notify)) to enable GET /ws/events; nil
// disables it.
func New(reg *registry.Registry, events *EventBus, opts Options) *Server {
	s := &Server{registry: reg, events: events, log: opts.Log}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(requestLogger(opts.Log))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(15 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Get("/services", s.handleFind)
	r.Get("/services/{id}", s.handleGet)
	if events != nil {
		r.Get("/ws/events", s.handleWebsocket)
	}

	s.router = r
	return s
}

// ServeHTTP makes Server an http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
