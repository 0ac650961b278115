package router

import (
	"net/http"

	"dog-match/internal/domain/session"
	"dog-match/internal/middleware"
	"dog-match/internal/platform/logger"
	"dog-match/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Options struct {
	Guard   *session.Guard
	Metrics *metrics.Metrics // puede ser nil: sin /metrics
	Logger  logger.Logger    // puede ser nil

	// Vacío = "*". Con credenciales el front debe estar listado explícitamente.
	CORSAllowedOrigins []string
}

func NewRouter(opts Options) http.Handler {
	l := opts.Logger
	if l == nil {
		l = logger.Nop()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(l))
	r.Use(chimw.Recoverer)

	origins := opts.CORSAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	session.RegisterRoutes(r, opts.Guard)

	return r
}
