package util

import "strings"

const maxUploadIDLen = 64

// ValidUploadID aceita apenas letras, dígitos, '-' e '_' (até 64 caracteres),
// pois o id compõe chaves do Redis e nomes de objeto.
func ValidUploadID(id string) bool {
	if id == "" || len(id) > maxUploadIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

// FirstNonEmpty devolve o primeiro valor não vazio após TrimSpace.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
