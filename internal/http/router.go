package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"vectoria/internal/embeddings"
	"vectoria/internal/handlers"
	"vectoria/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Store *storage.Store
	// Embeddings may be nil; text queries and ingestion are rejected then.
	Embeddings embeddings.Provider
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(CORS)

	libraryHandler := handlers.NewLibraryHandler(deps.Store)
	documentHandler := handlers.NewDocumentHandler(deps.Store)
	chunkHandler := handlers.NewChunkHandler(deps.Store)
	searchHandler := handlers.NewSearchHandler(deps.Store, deps.Embeddings)
	ingestHandler := handlers.NewIngestHandler(deps.Store, deps.Embeddings)
	adminHandler := handlers.NewAdminHandler(deps.Store)
	healthHandler := handlers.NewHealthHandler(deps.Store)
	demoHandler := handlers.NewDemoHandler(deps.Store, deps.Embeddings)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Get("/stats", adminHandler.Stats)
		r.Post("/admin/snapshot", adminHandler.Snapshot)
		r.Method(http.MethodPost, "/demo/seed", demoHandler)

		r.Route("/search/libraries", func(r chi.Router) {
			r.Post("/", searchHandler.SearchMany)
			r.Post("/{libraryID}", searchHandler.Search)
		})

		r.Route("/libraries", func(r chi.Router) {
			r.Post("/", libraryHandler.Create)
			r.Get("/", libraryHandler.List)

			r.Route("/{libraryID}", func(r chi.Router) {
				r.Get("/", libraryHandler.Get)
				r.Put("/", libraryHandler.Update)
				r.Delete("/", libraryHandler.Delete)
				r.Post("/index", libraryHandler.BuildIndex)
				r.Get("/stats", libraryHandler.Stats)
				r.Get("/suggestions", searchHandler.Suggestions)
				r.Get("/analytics", searchHandler.Analytics)

				r.Route("/documents", func(r chi.Router) {
					r.Post("/", documentHandler.Create)
					r.Get("/", documentHandler.List)
					r.Route("/{documentID}", func(r chi.Router) {
						r.Get("/", documentHandler.Get)
						r.Delete("/", documentHandler.Delete)
						r.Post("/chunks", chunkHandler.Add)
						r.Get("/chunks", chunkHandler.List)
						r.Method(http.MethodPost, "/ingest", ingestHandler)
					})
				})

				r.Route("/chunks/{chunkID}", func(r chi.Router) {
					r.Get("/", chunkHandler.Get)
					r.Patch("/", chunkHandler.Update)
					r.Delete("/", chunkHandler.Delete)
				})
			})
		})
	})

	return r
}
