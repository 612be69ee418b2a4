package upload

import "errors"

// ValidationError representa entrada inválida devolvida ao cliente como 400.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

var (
	ErrNoFile          = &ValidationError{Message: "No file uploaded"}
	ErrEmptyFile       = &ValidationError{Message: "Empty file"}
	ErrInvalidUploadID = &ValidationError{Message: "Invalid upload id"}
)

// TransferError envolve falhas de acesso ao arquivo local ou do envio remoto.
// A mensagem é a do erro original.
type TransferError struct {
	Op  string
	Err error
}

func (e *TransferError) Error() string {
	return e.Err.Error()
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// ErrNotFound é retornado quando o registro do upload não existe.
var ErrNotFound = errors.New("upload: registro não encontrado")

// ErrLedgerDisabled indica que nenhum banco foi configurado.
var ErrLedgerDisabled = errors.New("upload: ledger desabilitado")
