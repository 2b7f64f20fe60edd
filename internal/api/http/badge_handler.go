package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amakane-hakari/ttlmap/internal/badge"
)

// BadgeLister は有効なバッジを返すものです。
type BadgeLister interface {
	List(ctx context.Context) []badge.Badge
}

type badgeHandler struct {
	svc BadgeLister
}

func (h *badgeHandler) mount(r chi.Router) {
	r.Method(http.MethodGet, "/badges", HandlerFunc(h.list))
}

func (h *badgeHandler) list(w http.ResponseWriter, r *http.Request) error {
	badges := h.svc.List(r.Context())
	if err := r.Context().Err(); err != nil {
		return err
	}
	writeSuccess(w, http.StatusOK, badges)
	return nil
}
