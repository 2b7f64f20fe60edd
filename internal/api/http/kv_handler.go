package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/amakane-hakari/ttlmap/internal/expiremap"
)

type kvHandler struct {
	m *expiremap.Map[string, string]
}

func (h *kvHandler) mount(r chi.Router) {
	r.Route("/kvs", func(r chi.Router) {
		r.Method(http.MethodGet, "/", HandlerFunc(h.list))
		r.Method(http.MethodPut, "/{key}", HandlerFunc(h.put))
		r.Method(http.MethodGet, "/{key}", HandlerFunc(h.get))
		r.Method(http.MethodDelete, "/{key}", HandlerFunc(h.del))
	})
}

type valueRequest struct {
	Value string `json:"value"`
}

type valueDTO struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

func (h *kvHandler) put(w http.ResponseWriter, r *http.Request) error {
	key := chi.URLParam(r, "key")
	if key == "" {
		return BadRequest("empty key")
	}
	var req valueRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		return err
	}
	h.m.Set(key, req.Value)
	writeSuccess(w, http.StatusOK, valueDTO{Key: key, Value: req.Value})
	return nil
}

func (h *kvHandler) get(w http.ResponseWriter, r *http.Request) error {
	key := chi.URLParam(r, "key")
	if key == "" {
		return BadRequest("empty key")
	}
	v, ok := h.m.Get(key)
	if !ok {
		return NotFound("key not found")
	}
	writeSuccess(w, http.StatusOK, valueDTO{Key: key, Value: v})
	return nil
}

func (h *kvHandler) del(w http.ResponseWriter, r *http.Request) error {
	key := chi.URLParam(r, "key")
	if key == "" {
		return BadRequest("empty key")
	}
	h.m.Delete(key)
	writeSuccess(w, http.StatusOK, valueDTO{Key: key})
	return nil
}

// list は最近触れた順にエントリを返します。順序を変えないよう Get は使いません。
func (h *kvHandler) list(w http.ResponseWriter, _ *http.Request) error {
	entries := expiremap.Transform(h.m, func(v, k string, _ *expiremap.Map[string, string]) valueDTO {
		return valueDTO{Key: k, Value: v}
	})
	writeSuccess(w, http.StatusOK, entries)
	return nil
}
