package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/scribe/internal/documents"
	"github.com/starford/scribe/internal/execution"
	"github.com/starford/scribe/internal/notebook"
	"github.com/starford/scribe/internal/store"
)

// Services are the domain components the API drives.
type Services struct {
	Documents *documents.Manager
	Engine    *notebook.Engine
	Executor  *execution.Executor
	Store     store.Store
}

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc Services, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", h.ListDocuments)
		r.Post("/", h.CreateDocument)
		r.Post("/import", h.ImportDocument)
		r.Get("/stats", h.Stats)
		r.Get("/recent", h.RecentDocuments)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetDocument)
			r.Patch("/", h.UpdateDocument)
			r.Delete("/", h.DeleteDocument)
			r.Post("/favorite", h.ToggleFavorite)
			r.Put("/mode", h.SwitchMode)
			r.Post("/select", h.SelectDocument)
			r.Get("/cells", h.ListCells)
			r.Post("/cells", h.CreateCell)
			r.Put("/tags/{tagID}", h.AttachTag)
			r.Delete("/tags/{tagID}", h.DetachTag)
		})
	})

	r.Get("/selection", h.Selection)

	r.Route("/cells/{id}", func(r chi.Router) {
		r.Get("/", h.GetCell)
		r.Patch("/", h.UpdateCell)
		r.Delete("/", h.DeleteCell)
		r.Post("/move-up", h.MoveUp)
		r.Post("/move-down", h.MoveDown)
		r.Post("/duplicate", h.Duplicate)
		r.Post("/insert-above", h.InsertAbove)
		r.Post("/insert-below", h.InsertBelow)
		r.Post("/run", h.RunCell)
		r.Post("/clear-output", h.ClearOutput)
		r.Post("/select", h.SelectCell)
	})

	r.Get("/tags", h.ListTags)
	r.Post("/tags", h.CreateTag)
	r.Get("/tags/{id}", h.GetTag)
	r.Delete("/tags/{id}", h.DeleteTag)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
