package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gestaozabele/videorelay/internal/auth"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestRecoverReturnsSanitizedBody(t *testing.T) {
	h := Recover(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if rr.Code != http.StatusInternalServerError || !strings.Contains(rr.Body.String(), `"Internal error"`) {
		t.Fatalf("status = %d body = %s", rr.Code, rr.Body.String())
	}
}

func TestIPRateLimitPerAddress(t *testing.T) {
	h := IPRateLimit(NewRateLimiter(0.001, 1))(okHandler)

	do := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/upload", nil)
		req.RemoteAddr = ip + ":5555"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr.Code
	}

	if do("10.0.0.1") != http.StatusNoContent {
		t.Fatal("primeira requisição deveria passar")
	}
	if code := do("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Fatalf("segunda requisição: %d", code)
	}
	if do("10.0.0.2") != http.StatusNoContent {
		t.Fatal("outro IP tem limite próprio")
	}
}

func TestIPRateLimitNilLimiter(t *testing.T) {
	h := IPRateLimit(nil)(okHandler)
	for i := 0; i < 5; i++ {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/", nil))
		if rr.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rr.Code)
		}
	}
}

func TestAuth(t *testing.T) {
	manager := auth.NewJWTManager(strings.Repeat("k", 32), time.Minute)
	var subject string
	h := Auth(manager, auth.ScopeUpload)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = GetSubject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	uploadToken, _ := manager.GenerateToken("studio", []string{auth.ScopeUpload})
	readToken, _ := manager.GenerateToken("viewer", []string{"read"})

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"sem token", "", "", http.StatusUnauthorized},
		{"token inválido", "Bearer abc.def.ghi", "", http.StatusUnauthorized},
		{"escopo errado", "Bearer " + readToken, "", http.StatusForbidden},
		{"header", "Bearer " + uploadToken, "", http.StatusNoContent},
		{"query", "", uploadToken, http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			target := "/upload"
			if tc.query != "" {
				target += "?access_token=" + tc.query
			}
			req := httptest.NewRequest(http.MethodPost, target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)
			if rr.Code != tc.want {
				t.Fatalf("status = %d, want %d", rr.Code, tc.want)
			}
		})
	}
	if subject != "studio" {
		t.Fatalf("subject = %q", subject)
	}
}

func TestAuthDisabledWithoutManager(t *testing.T) {
	rr := httptest.NewRecorder()
	Auth(nil, auth.ScopeUpload)(okHandler).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/upload", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestCORS(t *testing.T) {
	allowAll := CORS([]string{"*"})(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/progress", nil)
	req.Header.Set("Origin", "https://app.exemplo.com")
	rr := httptest.NewRecorder()
	allowAll.ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("allow origin = %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}

	restricted := CORS([]string{"https://*.exemplo.com"})(okHandler)
	for origin, want := range map[string]string{
		"https://app.exemplo.com": "https://app.exemplo.com",
		"https://evil.test":       "",
	} {
		req := httptest.NewRequest(http.MethodGet, "/progress", nil)
		req.Header.Set("Origin", origin)
		rr := httptest.NewRecorder()
		restricted.ServeHTTP(rr, req)
		if got := rr.Header().Get("Access-Control-Allow-Origin"); got != want {
			t.Fatalf("origin %s: allow = %q, want %q", origin, got, want)
		}
	}
}
