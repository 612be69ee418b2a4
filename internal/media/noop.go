package media

import (
	"context"
	"errors"
)

// ErrNotConfigured indica que nenhum host de mídia foi configurado.
var ErrNotConfigured = errors.New("media: host not configured")

// NoopHost devolve erro indicando que não há backend configurado.
type NoopHost struct{}

func (NoopHost) Name() string { return "noop" }

// UploadLarge sempre retorna erro, sinalizando que o recurso não está disponível.
func (NoopHost) UploadLarge(ctx context.Context, input UploadInput, onProgress ProgressFunc) (*UploadResult, error) {
	return nil, ErrNotConfigured
}
