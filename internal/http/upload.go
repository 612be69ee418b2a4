package http

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	httpmiddleware "github.com/gestaozabele/videorelay/internal/http/middleware"
	"github.com/gestaozabele/videorelay/internal/upload"
	"github.com/gestaozabele/videorelay/internal/util"
)

const (
	fileField     = "video"
	uploadIDField = "uploadId"
)

type uploadResponse struct {
	URL      string `json:"url"`
	UploadID string `json:"uploadId"`
}

// Upload recebe o multipart, grava o vídeo em disco e repassa ao host de mídia.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	uploadID := util.FirstNonEmpty(
		strings.TrimSpace(r.Header.Get("X-Upload-ID")),
		strings.TrimSpace(r.URL.Query().Get(uploadIDField)),
	)
	if uploadID != "" && !util.ValidUploadID(uploadID) {
		WriteMessage(w, http.StatusBadRequest, upload.ErrInvalidUploadID.Message)
		return
	}

	file, formID, err := h.receive(r)
	if uploadID == "" {
		uploadID = formID
	}
	if uploadID == "" {
		uploadID = util.NewUploadID()
	}
	w.Header().Set("X-Upload-ID", uploadID)
	if err != nil {
		var terr *upload.TransferError
		if errors.As(err, &terr) {
			log.Error().Err(terr.Err).Str("upload_id", uploadID).Str("op", terr.Op).Msg("falha ao receber vídeo")
		}
		h.writeUploadError(w, uploadID, err)
		return
	}
	file.Subject = httpmiddleware.GetSubject(r.Context())

	res, err := h.relay.Relay(r.Context(), uploadID, file)
	if err != nil {
		h.writeUploadError(w, uploadID, err)
		return
	}

	WriteJSON(w, http.StatusOK, uploadResponse{URL: res.SecureURL, UploadID: uploadID})
}

func (h *Handler) writeUploadError(w http.ResponseWriter, uploadID string, err error) {
	var verr *upload.ValidationError
	if errors.As(err, &verr) {
		WriteMessage(w, http.StatusBadRequest, verr.Message)
		return
	}

	var terr *upload.TransferError
	if !errors.As(err, &terr) {
		log.Error().Err(err).Str("upload_id", uploadID).Msg("falha inesperada no upload")
	}
	WriteJSON(w, http.StatusInternalServerError, MessageBody{Message: "Upload failed", Error: err.Error()})
}

// receive percorre as partes até encontrar o campo de vídeo. Um uploadId enviado
// como campo de formulário só é considerado se vier antes do arquivo.
func (h *Handler) receive(r *http.Request) (upload.File, string, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return upload.File{}, "", upload.ErrNoFile
	}

	var formID string
	for {
		part, err := mr.NextPart()
		if err != nil {
			// io.EOF ou corpo malformado: nenhum arquivo chegou
			return upload.File{}, formID, upload.ErrNoFile
		}

		switch {
		case part.FormName() == uploadIDField && part.FileName() == "":
			raw, err := io.ReadAll(io.LimitReader(part, 128))
			_ = part.Close()
			if err != nil {
				return upload.File{}, "", &upload.TransferError{Op: "receive", Err: err}
			}
			id := strings.TrimSpace(string(raw))
			if id != "" && !util.ValidUploadID(id) {
				return upload.File{}, "", upload.ErrInvalidUploadID
			}
			formID = id
		case part.FormName() == fileField && part.FileName() != "":
			file, err := h.spool(part)
			return file, formID, err
		default:
			_ = part.Close()
		}
	}
}

func (h *Handler) spool(part *multipart.Part) (upload.File, error) {
	defer part.Close()

	tmp, err := os.CreateTemp(h.tempDir, "upload-*"+filepath.Ext(part.FileName()))
	if err != nil {
		return upload.File{}, &upload.TransferError{Op: "receive", Err: err}
	}

	if _, err := io.Copy(tmp, part); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return upload.File{}, &upload.TransferError{Op: "receive", Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return upload.File{}, &upload.TransferError{Op: "receive", Err: err}
	}

	return upload.File{
		Path:        tmp.Name(),
		Filename:    filepath.Base(part.FileName()),
		ContentType: part.Header.Get("Content-Type"),
	}, nil
}
