package upload

import "time"

// File é o arquivo temporário criado a partir do multipart recebido.
type File struct {
	Path        string
	Filename    string
	ContentType string
	// Subject do token de upload, vazio quando a autenticação está desligada.
	Subject string
}

// Status do registro persistido.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Record representa uma linha da tabela video_uploads.
type Record struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	Provider    string    `json:"provider"`
	Subject     string    `json:"subject,omitempty"`
	Status      string    `json:"status"`
	SecureURL   *string   `json:"url,omitempty"`
	PublicID    *string   `json:"publicId,omitempty"`
	Error       *string   `json:"error,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
