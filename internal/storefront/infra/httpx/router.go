package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/infra/httpx/middlewares"
)

// NewRouter mounts the handler. /healthz is open; everything under /api
// requires an account id.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachRequestMetadata)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handler.Healthz)

	r.Route("/api", func(r chi.Router) {
		r.Use(middlewares.RequireAccount)

		r.Get("/menu", handler.Menu)
		r.Post("/orders", handler.CreateOrder)

		r.Route("/admin", func(r chi.Router) {
			r.Get("/analytics", handler.GetAnalytics)
			r.Get("/orders", handler.ListOrders)
			r.Get("/checkouts", handler.ListCheckouts)
			r.Get("/checkouts/{id}", handler.GetCheckout)

			r.Route("/menu", func(r chi.Router) {
				r.Get("/", handler.ListMenuItems)
				r.Post("/", handler.CreateMenuItem)
				r.Put("/{id}", handler.UpdateMenuItem)
				r.Delete("/{id}", handler.DeleteMenuItem)
			})
			r.Route("/categories", func(r chi.Router) {
				r.Get("/", handler.ListCategories)
				r.Post("/", handler.CreateCategory)
				r.Put("/{id}", handler.UpdateCategory)
				r.Delete("/{id}", handler.DeleteCategory)
			})
		})
	})
	return r
}
