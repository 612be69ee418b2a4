package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gestaozabele/videorelay/internal/progress"
)

func TestReadEvents(t *testing.T) {
	stream := ": ping\n\n" +
		"event: progress\ndata: {\"uploadId\":\"a\",\"status\":\"progress\",\"percent\":10}\n\n" +
		": ping\n\n" +
		"event: completed\ndata: {\"uploadId\":\"a\",\"status\":\"completed\",\"percent\":100,\"url\":\"https://x\"}\n\n" +
		"event: progress\ndata: {\"uploadId\":\"a\",\"status\":\"progress\",\"percent\":100}\n\n"

	var got []progress.Event
	err := readEvents(strings.NewReader(stream), func(ev progress.Event) bool {
		got = append(got, ev)
		return !ev.Terminal()
	})
	if err != nil {
		t.Fatalf("readEvents: %v", err)
	}
	if len(got) != 2 || got[0].Percent != 10 || got[1].URL != "https://x" {
		t.Fatalf("eventos = %+v", got)
	}
}

func TestReadEventsInvalidJSON(t *testing.T) {
	err := readEvents(strings.NewReader("data: {oops\n\n"), func(progress.Event) bool { return true })
	if err == nil {
		t.Fatal("esperava erro")
	}
}

func TestClientUpload(t *testing.T) {
	var gotID, gotAuth, gotName, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = r.Header.Get("X-Upload-ID")
		gotAuth = r.Header.Get("Authorization")
		f, hdr, err := r.FormFile("video")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		gotName, gotBody = hdr.Filename, string(data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"url":"https://cdn/v.mp4","uploadId":"`+gotID+`"}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte("frames"), 0o600); err != nil {
		t.Fatal(err)
	}

	res, err := NewClient(srv.URL+"/", "tok").Upload(context.Background(), "up-7", path)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if res.URL != "https://cdn/v.mp4" || res.UploadID != "up-7" {
		t.Fatalf("res = %+v", res)
	}
	if gotID != "up-7" || gotAuth != "Bearer tok" || gotName != "clip.mp4" || gotBody != "frames" {
		t.Fatalf("id=%q auth=%q name=%q body=%q", gotID, gotAuth, gotName, gotBody)
	}
}

func TestClientUploadAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"message":"Upload failed","error":"Invalid Signature"}`)
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "clip.mp4")
	_ = os.WriteFile(path, []byte("x"), 0o600)

	_, err := NewClient(srv.URL, "").Upload(context.Background(), "up-8", path)
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != 500 || apiErr.Detail != "Invalid Signature" {
		t.Fatalf("err = %v", err)
	}
}

func TestClientWatchStopsOnTerminal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/progress/up-9" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "event: progress\ndata: {\"uploadId\":\"up-9\",\"status\":\"progress\",\"percent\":50}\n\n")
		_, _ = io.WriteString(w, "event: failed\ndata: {\"uploadId\":\"up-9\",\"status\":\"failed\",\"error\":\"boom\"}\n\n")
	}))
	defer srv.Close()

	var statuses []progress.Status
	err := NewClient(srv.URL, "").Watch(context.Background(), "up-9", func(ev progress.Event) {
		statuses = append(statuses, ev.Status)
	})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if len(statuses) != 2 || statuses[1] != progress.StatusFailed {
		t.Fatalf("statuses = %v", statuses)
	}
}

func TestClientWatchUploadReopensAfterStaleResult(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		if calls.Add(1) == 1 {
			_, _ = io.WriteString(w, "event: completed\ndata: {\"uploadId\":\"dup\",\"status\":\"completed\",\"percent\":100,\"url\":\"https://cdn/antigo.mp4\"}\n\n")
			return
		}
		_, _ = io.WriteString(w, "event: progress\ndata: {\"uploadId\":\"dup\",\"status\":\"progress\",\"percent\":50}\n\n")
		_, _ = io.WriteString(w, "event: completed\ndata: {\"uploadId\":\"dup\",\"status\":\"completed\",\"percent\":100,\"url\":\"https://cdn/novo.mp4\"}\n\n")
	}))
	defer srv.Close()

	posted := make(chan struct{})
	var urls []string
	var sawProgress bool
	err := NewClient(srv.URL, "").WatchUpload(context.Background(), "dup", posted, func(ev progress.Event) {
		switch ev.Status {
		case progress.StatusProgress:
			sawProgress = true
		case progress.StatusCompleted:
			urls = append(urls, ev.URL)
			if ev.URL == "https://cdn/novo.mp4" {
				close(posted)
			}
		}
	})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if !sawProgress || len(urls) != 2 || urls[1] != "https://cdn/novo.mp4" || calls.Load() != 2 {
		t.Fatalf("progress=%v urls=%v calls=%d", sawProgress, urls, calls.Load())
	}
}
