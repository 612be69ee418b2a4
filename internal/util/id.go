package util

import "github.com/google/uuid"

// NewUploadID gera o identificador usado para chavear progresso e registro.
func NewUploadID() string {
	return uuid.NewString()
}
