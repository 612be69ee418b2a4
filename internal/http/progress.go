package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/videorelay/internal/progress"
	"github.com/gestaozabele/videorelay/internal/upload"
	"github.com/gestaozabele/videorelay/internal/util"
)

// Progress abre um stream SSE. Sem upload id o stream fica mudo até o cliente
// desconectar; com id, repassa os eventos daquele upload até o evento final.
func (h *Handler) Progress(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteMessage(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	uploadID := util.FirstNonEmpty(chi.URLParam(r, "uploadID"), r.URL.Query().Get(uploadIDField))
	if uploadID != "" && !util.ValidUploadID(uploadID) {
		WriteMessage(w, http.StatusBadRequest, upload.ErrInvalidUploadID.Message)
		return
	}

	ctx := r.Context()

	var sub progress.Subscription
	if uploadID != "" && h.broker != nil {
		var err error
		sub, err = h.broker.Subscribe(ctx, uploadID)
		if err != nil {
			log.Error().Err(err).Str("upload_id", uploadID).Msg("falha ao assinar progresso")
			WriteMessage(w, http.StatusServiceUnavailable, "Progress unavailable")
			return
		}
		defer sub.Close()
	}

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	header.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	done := h.metrics.StreamOpened()
	defer done()

	if sub == nil {
		select {
		case <-ctx.Done():
		case <-h.done:
		}
		return
	}

	stream := &sseStream{w: w, flusher: flusher, last: -1}

	// assinatura feita antes do snapshot: eventos repetidos são filtrados pelo stream
	if snap, err := h.broker.Snapshot(ctx, uploadID); err == nil {
		if !stream.send(snap) {
			return
		}
	}

	var heartbeat <-chan time.Time
	if h.heartbeat > 0 {
		ticker := time.NewTicker(h.heartbeat)
		defer ticker.Stop()
		heartbeat = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-h.done:
			return
		case <-heartbeat:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, ok := <-sub.Events():
			if !ok {
				// assinatura encerrada pelo broker: o snapshot ainda pode trazer o evento final
				if snap, err := h.broker.Snapshot(context.WithoutCancel(ctx), uploadID); err == nil && snap.Terminal() {
					stream.send(snap)
				}
				return
			}
			if !stream.send(ev) {
				return
			}
		}
	}
}

type sseStream struct {
	w       http.ResponseWriter
	flusher http.Flusher
	last    int
}

// send escreve o evento e informa se o stream deve continuar.
func (s *sseStream) send(ev progress.Event) bool {
	if ev.Status == progress.StatusProgress && ev.Percent <= s.last {
		return true
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return false
	}
	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", ev.Status, data); err != nil {
		return false
	}
	s.flusher.Flush()

	s.last = ev.Percent
	return !ev.Terminal()
}
