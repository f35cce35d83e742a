// Package routes registers the catalog's HTTP endpoints.
package routes

import (
	"net/http"

	"github.com/shashiranjanraj/tagcatalog/app/controllers"
	"github.com/shashiranjanraj/tagcatalog/pkg/auth"
	"github.com/shashiranjanraj/tagcatalog/pkg/middleware"
	"github.com/shashiranjanraj/tagcatalog/pkg/rbac"
	"github.com/shashiranjanraj/tagcatalog/pkg/router"
)

// Handlers are the endpoints RegisterAPI mounts. Nil http.Handlers are
// skipped, so route:list can register with zero values.
type Handlers struct {
	Auth    *controllers.AuthController
	Product *controllers.ProductController
	Catalog *controllers.CatalogController

	GraphQL http.Handler
	Feed    http.Handler
	Events  http.Handler
	Files   http.Handler
}

func RegisterAPI(r *router.Router, h Handlers) {
	api := r.Group("/api")
	api.Post("/login", "auth.login", h.Auth.Login)

	api.Get("/products", "products.index", h.Product.Index)
	api.Get("/products/{id}", "products.show", h.Product.Show)
	api.Get("/ratelist/match", "ratelist.match", h.Catalog.MatchRate)

	admin := api.Group("", middleware.Auth, rbac.HasRole(auth.RoleAdmin))
	admin.Post("/products", "products.store", h.Product.Store)
	admin.Patch("/products/{id}", "products.update", h.Product.Update)
	admin.Put("/products/{id}", "products.replace", h.Product.Update)
	admin.Delete("/products/{id}", "products.destroy", h.Product.Destroy)
	admin.Post("/products/{id}/image", "products.image", h.Product.UploadImage)
	admin.Post("/catalog/scan", "catalog.scan", h.Catalog.Scan)
	admin.Post("/ratelist", "ratelist.upload", h.Catalog.UploadRateList)

	if h.GraphQL != nil {
		r.Get("/graphql", "graphql.query", h.GraphQL.ServeHTTP)
		r.Post("/graphql", "graphql", h.GraphQL.ServeHTTP)
	}
	if h.Feed != nil {
		r.Get("/ws/products", "products.feed", h.Feed.ServeHTTP)
	}
	if h.Events != nil {
		r.Get("/sse/products", "products.events", h.Events.ServeHTTP)
	}
	if h.Files != nil {
		r.Mount("/storage", http.StripPrefix("/storage", h.Files))
	}
}
