// Package api exposes the inspector over HTTP: JSON views of the filtered
// event table, rendered bar panels and a websocket playback stream.
package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/signalsfoundry/comms-inspector/core"
	"github.com/signalsfoundry/comms-inspector/internal/config"
	"github.com/signalsfoundry/comms-inspector/internal/logging"
	"github.com/signalsfoundry/comms-inspector/internal/observability"
	"github.com/signalsfoundry/comms-inspector/internal/session"
)

// Options configures a Server.
type Options struct {
	Sessions     *session.Manager
	Render       config.RenderConfig
	Cesium       config.CesiumConfig
	CORSOrigins  []string
	PlaybackTick time.Duration
	RateLimit    RateLimit
	Metrics      *observability.HTTPCollector
	Logger       logging.Logger
	Version      string
}

// RateLimit caps API requests per client IP. A zero Requests disables it.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

// Server holds the handlers and their shared dependencies.
type Server struct {
	sessions *session.Manager
	render   config.RenderConfig
	cesium   config.CesiumConfig
	origins  []string
	tick     time.Duration
	limit    RateLimit
	metrics  *observability.HTTPCollector
	log      logging.Logger
	version  string

	validate *validator.Validate
	upgrader websocket.Upgrader

	surfaceOnce sync.Once
	surface     core.Surface
	surfaceErr  error
}

// NewServer builds a server from opts. A nil Sessions manager makes every
// data endpoint answer 503 until one is set.
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logging.Noop()
	}
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	tick := opts.PlaybackTick
	if tick <= 0 {
		tick = time.Second
	}
	return &Server{
		sessions: opts.Sessions,
		render:   opts.Render,
		cesium:   opts.Cesium,
		origins:  origins,
		tick:     tick,
		limit:    opts.RateLimit,
		metrics:  opts.Metrics,
		log:      log,
		version:  opts.Version,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestLogger(s.log))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", RequestIDHeader, session.HeaderName},
		ExposedHeaders: []string{RequestIDHeader, session.HeaderName},
		MaxAge:         300,
	}))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}
	r.Use(observability.TracingMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		if s.limit.Requests > 0 {
			r.Use(s.rateLimiter())
		}
		r.Get("/health", s.health)
		r.Get("/schema", s.schema)
		r.Get("/config/cesium", s.cesiumConfig)
		r.Get("/globe/surface", s.globeSurface)

		r.Post("/sessions", s.createSession)
		r.Delete("/sessions/{id}", s.deleteSession)

		r.Get("/timestamps", s.timestamps)
		r.Get("/filters", s.getFilters)
		r.Put("/filters", s.putFilters)
		r.Delete("/filters", s.deleteFilters)
		r.Post("/time/step", s.step)
		r.Get("/globe", s.globe)
		r.Get("/geojson", s.geoJSON)
		r.Get("/bars", s.bars)
		r.Get("/bars.png", s.barsPNG)
		r.Get("/network", s.network)
		r.Get("/playback", s.playback)
	})

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

func (s *Server) rateLimiter() func(http.Handler) http.Handler {
	window := s.limit.Window
	if window <= 0 {
		window = time.Minute
	}
	return httprate.Limit(s.limit.Requests, window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			s.fail(w, r, ErrRateLimited)
		}),
	)
}
