package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/amakane-hakari/ttlmap/internal/expiremap"
	ilog "github.com/amakane-hakari/ttlmap/internal/log"
)

// Deps はルータが使う依存を表します。nil のものはルートを登録しません。
type Deps struct {
	KV       *expiremap.Map[string, string]
	Badges   BadgeLister
	Gatherer prometheus.Gatherer
	Logger   ilog.Logger
}

// NewRouter は HTTP ルータを作成します。
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestIDMiddleware())
	r.Use(AccessLog(d.Logger))
	r.Use(RecoverMiddleware(d.Logger))
	r.NotFound(notFoundHandler)
	r.MethodNotAllowed(methodNotAllowedHandler)

	r.Get("/health", healthHandler)

	if d.KV != nil {
		(&kvHandler{m: d.KV}).mount(r)
	}
	if d.Badges != nil {
		(&badgeHandler{svc: d.Badges}).mount(r)
	}
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
