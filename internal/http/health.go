package http

import (
	"context"
	"net/http"
	"time"
)

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida as dependências configuradas (Postgres, Redis).
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failed := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
			"message": "Dependencies unavailable",
			"checks":  failed,
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}
