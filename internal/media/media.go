package media

import "context"

// UploadInput descreve o arquivo local a ser enviado ao host de mídia.
type UploadInput struct {
	Path        string
	Size        int64
	ContentType string
	Filename    string
	UploadID    string
}

// UploadResult descreve o recurso hospedado.
type UploadResult struct {
	SecureURL string
	PublicID  string
	Bytes     int64
}

// ProgressFunc recebe bytes acumulados enviados e o total do arquivo.
type ProgressFunc func(loaded, total int64)

// Host define o upload grande para um serviço externo de hospedagem.
type Host interface {
	Name() string
	UploadLarge(ctx context.Context, input UploadInput, onProgress ProgressFunc) (*UploadResult, error)
}
