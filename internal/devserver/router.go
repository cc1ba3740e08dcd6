// Package devserver is a local Redirectly-compatible REST API. It serves the
// link endpoints the client calls and resolves links opened in the
// development URL format.
package devserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/binSaed/flutter-redirectly/docs/swagger"
	"github.com/binSaed/flutter-redirectly/internal/deeplink"
	"github.com/binSaed/flutter-redirectly/internal/store"
)

// Deps holds all dependencies required to build the dev server router.
type Deps struct {
	Links *store.LinkStore
	Keys  *store.KeyStore
	Log   zerolog.Logger

	// Domain is the production domain used for link URLs and for resolving
	// requests that arrive on a <username>.<domain> host.
	Domain string

	// Concurrency caps in-flight requests. Zero means no cap.
	Concurrency int

	// Now is the clock used for temp-link expiry. Defaults to time.Now.
	Now func() time.Time
}

type server struct {
	links      *store.LinkStore
	keys       *store.KeyStore
	log        zerolog.Logger
	domain     string
	classifier *deeplink.Classifier
	now        func() time.Time
}

// NewRouter builds the dev server routes.
func NewRouter(deps Deps) chi.Router {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Domain == "" {
		deps.Domain = deeplink.DefaultDomain
	}
	s := &server{
		links:  deps.Links,
		keys:   deps.Keys,
		log:    deps.Log,
		domain: deps.Domain,
		classifier: deeplink.New(
			deeplink.WithDomain(deps.Domain),
			deeplink.WithLogger(deps.Log),
			deeplink.WithClock(deps.Now),
		),
		now: deps.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(deps.Log))
	if deps.Concurrency > 0 {
		r.Use(middleware.Throttle(deps.Concurrency))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Group(func(r chi.Router) {
		r.Use(jsonContentType)
		r.Use(s.authenticate)

		r.Post("/api/v1/links", s.createLink)
		r.Get("/api/v1/links", s.listLinks)
		r.Post("/api/v1/temp-links", s.createTempLink)
		r.Get("/api/links/{slug}", s.getLink)
		r.Put("/api/links/{slug}", s.updateLink)
		r.Delete("/api/links/{slug}", s.deleteLink)
	})

	// Everything else is a link being opened.
	r.Get("/*", s.resolve)
	return r
}

// jsonContentType sets Content-Type: application/json on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("elapsed", time.Since(start)).
				Msg("request")
		})
	}
}
