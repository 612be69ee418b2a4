package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSlackNotifierPostsText(t *testing.T) {
	var payload map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&payload)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	alert := UploadFailed("up-1", "cloudinary", "clip.mp4", errors.New("network down"))
	if err := n.Notify(context.Background(), alert); err != nil {
		t.Fatalf("notify: %v", err)
	}

	text := payload["text"]
	if !strings.HasPrefix(text, ":warning: *Upload de vídeo falhou*") || !strings.Contains(text, "network down") {
		t.Fatalf("text = %q", text)
	}
}

func TestSlackNotifierReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	if err := NewSlackNotifier(srv.URL).Notify(context.Background(), Alert{Text: "x"}); err == nil {
		t.Fatal("esperava erro")
	}
}

func TestNilSlackNotifier(t *testing.T) {
	if NewSlackNotifier("") != nil {
		t.Fatal("esperava nil sem webhook")
	}
	var n *SlackNotifier
	if err := n.Notify(context.Background(), Alert{}); err == nil {
		t.Fatal("esperava erro para notifier nil")
	}
}
