package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestGenerateAndParse(t *testing.T) {
	m := NewJWTManager(testSecret, time.Minute)
	token, err := m.GenerateToken("cli", []string{"upload"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.ParseAndValidate(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "cli" || !claims.HasScope("upload") || claims.HasScope("progress") {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestParseRejectsOtherSecretAndAudience(t *testing.T) {
	m := NewJWTManager(testSecret, time.Minute)
	other := NewJWTManager("ffffffffffffffffffffffffffffffff", time.Minute)

	token, _ := other.GenerateToken("x", nil)
	if _, err := m.ParseAndValidate(token); err == nil {
		t.Fatal("esperava erro de assinatura")
	}

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Audience:  jwt.ClaimStrings{"outro"},
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	})
	signed, _ := foreign.SignedString([]byte(testSecret))
	if _, err := m.ParseAndValidate(signed); err == nil {
		t.Fatal("esperava erro de audience")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	m := &JWTManager{secret: []byte(testSecret), ttl: -time.Minute}
	token, _ := m.GenerateToken("x", nil)
	if _, err := m.ParseAndValidate(token); err == nil {
		t.Fatal("esperava token expirado")
	}
}

func TestEmptyScopesAllowEverything(t *testing.T) {
	c := &Claims{}
	if !c.HasScope("upload") {
		t.Fatal("sem escopos deveria permitir")
	}
}
