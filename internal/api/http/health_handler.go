package http

import (
	"net/http"
	"sync/atomic"
)

var draining atomic.Bool

// SetDraining はドレイニング状態を設定します。シャットダウン開始時に true にします。
func SetDraining(v bool) {
	draining.Store(v)
}

type healthResponse struct {
	Status string `json:"status"`
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	if draining.Load() {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "draining"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
