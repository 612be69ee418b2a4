package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/gestaozabele/videorelay/internal/upload"
	"github.com/gestaozabele/videorelay/internal/util"
)

// GetUpload devolve o registro persistido de um upload.
func (h *Handler) GetUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "uploadID")
	if !util.ValidUploadID(id) {
		WriteMessage(w, http.StatusBadRequest, upload.ErrInvalidUploadID.Message)
		return
	}

	rec, err := h.uploads.Get(r.Context(), id)
	switch {
	case errors.Is(err, upload.ErrNotFound):
		WriteMessage(w, http.StatusNotFound, "Upload not found")
		return
	case errors.Is(err, upload.ErrLedgerDisabled):
		WriteMessage(w, http.StatusServiceUnavailable, "Upload ledger disabled")
		return
	case err != nil:
		log.Error().Err(err).Str("upload_id", id).Msg("falha ao consultar upload")
		WriteMessage(w, http.StatusInternalServerError, "Internal error")
		return
	}

	WriteJSON(w, http.StatusOK, rec)
}
