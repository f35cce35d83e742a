// Package kernel assembles the HTTP handler: global middleware, the health
// endpoints and the catalog routes.
package kernel

import (
	"net/http"
	"time"

	"github.com/shashiranjanraj/tagcatalog/app/routes"
	"github.com/shashiranjanraj/tagcatalog/pkg/metrics"
	"github.com/shashiranjanraj/tagcatalog/pkg/middleware"
	"github.com/shashiranjanraj/tagcatalog/pkg/reqid"
	"github.com/shashiranjanraj/tagcatalog/pkg/response"
	"github.com/shashiranjanraj/tagcatalog/pkg/router"
)

type HTTPKernel struct {
	router *router.Router
}

func NewHTTPKernel(h routes.Handlers) *HTTPKernel {
	r := router.New()

	// Outermost first: metrics see total latency, recovery wraps everything
	// that can panic, and the request ID exists before anything logs.
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit(200, time.Minute))

	r.HandleFunc("/metrics", metrics.Handler())
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	routes.RegisterAPI(r, h)
	return &HTTPKernel{router: r}
}

func (k *HTTPKernel) Handler() http.Handler { return k.router.Handler() }

// Routes lists the named routes the kernel serves.
func (k *HTTPKernel) Routes() []router.RouteInfo { return k.router.Routes() }
