package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/chaptermap/internal/chapter"
	"github.com/dgallion1/chaptermap/internal/config"
	"github.com/dgallion1/chaptermap/internal/content"
	"github.com/dgallion1/chaptermap/internal/mapping"
	"github.com/dgallion1/chaptermap/internal/pipeline"
	"github.com/dgallion1/chaptermap/internal/render"
	"github.com/dgallion1/chaptermap/internal/stats"
)

// ChapterLister enumerates the chapter ids that have a configuration.
type ChapterLister interface {
	IDs() ([]string, error)
}

// Deps are the components the HTTP layer dispatches to. Content and
// Stats may be nil.
type Deps struct {
	Orchestrator *pipeline.Orchestrator
	Resolver     *mapping.Resolver
	Repository   chapter.Repository
	Chapters     ChapterLister
	Content      *content.Store
	Renderer     *render.Renderer
	Stats        *stats.Mapping
}

// Server is the HTTP API server for chaptermap.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	// Public endpoints.
	r.Get("/health", s.handleHealth)

	// Authenticated endpoints.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.cfg.APIKey, s.log))

		r.Post("/api/parse", s.handleParse)
		r.Post("/api/map", s.handleMap)
		r.Post("/api/render", s.handleRender)

		r.Get("/api/chapters", s.handleListChapters)
		r.Get("/api/chapters/config", s.handleChapterConfig)
		r.Get("/api/chapters/source", s.handleChapterSource)
		r.Delete("/api/chapters/cache", s.handleInvalidateCache)

		r.Post("/api/ingest", s.handleIngest)
		r.Get("/api/ingest/{jobID}/status", s.handleIngestStatus)
		r.Get("/api/ingest/{jobID}/result", s.handleIngestResult)

		r.Get("/api/stats/mapping", s.handleMappingStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
