package http

import (
	"encoding/json"
	"net/http"
)

// MessageBody é o corpo padrão das respostas de erro.
type MessageBody struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// WriteJSON serializa o payload com o status informado.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteMessage escreve {"message": ...}.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, MessageBody{Message: message})
}
