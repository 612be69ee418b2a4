package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gestaozabele/videorelay/internal/config"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.mp4")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestSignParamsSortsAndSkipsReservedKeys(t *testing.T) {
	got := signParams(map[string]string{
		"timestamp":     "1315060510",
		"public_id":     "sample_image",
		"api_key":       "ignored",
		"resource_type": "video",
		"eager":         "",
	}, "abcd")
	// sha1("public_id=sample_image&timestamp=1315060510abcd")
	want := "b4ad47fb4e25c7bf5f92a20089f9db59bc302313"
	if got != want {
		t.Fatalf("signature = %s, want %s", got, want)
	}
}

func TestCloudinaryUploadLargeSendsChunks(t *testing.T) {
	content := "0123456789"
	path := writeTemp(t, content)

	var (
		mu       sync.Mutex
		ranges   []string
		received strings.Builder
		ids      []string
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1_1/demo/video/upload" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("multipart: %v", err)
			return
		}
		if r.FormValue("api_key") != "key" {
			t.Errorf("api_key = %q", r.FormValue("api_key"))
		}
		wantSig := signParams(map[string]string{"timestamp": r.FormValue("timestamp")}, "secret")
		if r.FormValue("signature") != wantSig {
			t.Errorf("signature = %q, want %q", r.FormValue("signature"), wantSig)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("file: %v", err)
			return
		}
		data, _ := io.ReadAll(file)

		mu.Lock()
		ranges = append(ranges, r.Header.Get("Content-Range"))
		ids = append(ids, r.Header.Get("X-Unique-Upload-Id"))
		received.Write(data)
		done := received.Len() == len(content)
		mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		if done {
			fmt.Fprint(w, `{"secure_url":"https://res.cloudinary.com/demo/video/upload/v1/abc.mp4","public_id":"abc","bytes":10}`)
			return
		}
		fmt.Fprint(w, `{"done":false}`)
	}))
	defer srv.Close()

	host, err := NewCloudinaryHost(CloudinaryConfig{
		CloudName: "demo", APIKey: "key", APISecret: "secret",
		APIBase: srv.URL, ChunkSize: 4,
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	host.now = func() time.Time { return time.Unix(1700000000, 0) }

	var loaded []int64
	res, err := host.UploadLarge(context.Background(), UploadInput{Path: path, Size: 10, Filename: "clip.mp4", UploadID: "up-1"}, func(l, total int64) {
		if total != 10 {
			t.Errorf("total = %d", total)
		}
		loaded = append(loaded, l)
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if res.SecureURL != "https://res.cloudinary.com/demo/video/upload/v1/abc.mp4" || res.PublicID != "abc" {
		t.Fatalf("result = %+v", res)
	}
	wantRanges := []string{"bytes 0-3/10", "bytes 4-7/10", "bytes 8-9/10"}
	if strings.Join(ranges, ",") != strings.Join(wantRanges, ",") {
		t.Fatalf("ranges = %v", ranges)
	}
	for _, id := range ids {
		if id != "up-1" {
			t.Fatalf("upload id = %q", id)
		}
	}
	if received.String() != content {
		t.Fatalf("received = %q", received.String())
	}
	if len(loaded) == 0 || loaded[len(loaded)-1] != 10 {
		t.Fatalf("progress = %v", loaded)
	}
	for i := 1; i < len(loaded); i++ {
		if loaded[i] < loaded[i-1] {
			t.Fatalf("progresso regrediu: %v", loaded)
		}
	}
}

func TestCloudinaryUploadLargeSurfacesAPIError(t *testing.T) {
	path := writeTemp(t, "abc")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"Invalid Signature"}}`)
	}))
	defer srv.Close()

	host, _ := NewCloudinaryHost(CloudinaryConfig{CloudName: "demo", APIKey: "k", APISecret: "s", APIBase: srv.URL})
	_, err := host.UploadLarge(context.Background(), UploadInput{Path: path}, nil)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("esperava APIError, got %v", err)
	}
	if apiErr.StatusCode != http.StatusUnauthorized || err.Error() != "Invalid Signature" {
		t.Fatalf("err = %v (%d)", err, apiErr.StatusCode)
	}
}

func TestCloudinaryRequiresCredentials(t *testing.T) {
	if _, err := NewCloudinaryHost(CloudinaryConfig{CloudName: "demo"}); err == nil {
		t.Fatal("esperava erro sem api key")
	}
}

func TestS3UploadLargePutsObject(t *testing.T) {
	path := writeTemp(t, "video-bytes")

	var (
		gotPath string
		gotBody string
		gotType string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("method = %s", r.Method)
		}
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.Header().Set("ETag", `"etag"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	host, err := NewS3Host(S3Config{
		Endpoint: srv.URL, Region: "auto", Bucket: "media",
		AccessKey: "ak", SecretKey: "sk", Prefix: "videos/",
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	var last int64
	res, err := host.UploadLarge(context.Background(), UploadInput{
		Path: path, Size: 11, ContentType: "video/mp4", Filename: "Clip.MP4", UploadID: "abc",
	}, func(l, _ int64) { last = l })
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if gotPath != "/media/videos/abc.mp4" {
		t.Fatalf("path = %s", gotPath)
	}
	if gotBody != "video-bytes" || gotType != "video/mp4" {
		t.Fatalf("body = %q, type = %q", gotBody, gotType)
	}
	if res.SecureURL != srv.URL+"/media/videos/abc.mp4" {
		t.Fatalf("url = %s", res.SecureURL)
	}
	if last != 11 {
		t.Fatalf("último progresso = %d", last)
	}
}

func TestS3ConfigValidation(t *testing.T) {
	if _, err := NewS3Host(S3Config{Endpoint: "minio:9000", Region: "x", Bucket: "b", AccessKey: "a", SecretKey: "s"}); err == nil {
		t.Fatal("esperava erro para endpoint sem protocolo")
	}
}

func TestFromConfig(t *testing.T) {
	host, err := FromConfig(config.MediaConfig{Provider: config.ProviderNoop})
	if err != nil {
		t.Fatalf("noop: %v", err)
	}
	if _, err := host.UploadLarge(context.Background(), UploadInput{}, nil); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("err = %v", err)
	}

	host, err = FromConfig(config.MediaConfig{Provider: config.ProviderCloudinary, CloudinaryCloudName: "c", CloudinaryAPIKey: "k", CloudinaryAPISecret: "s"})
	if err != nil || host.Name() != "cloudinary" {
		t.Fatalf("cloudinary: %v", err)
	}

	host, err = FromConfig(config.MediaConfig{
		Provider: config.ProviderR2, S3Endpoint: "https://acc.r2.cloudflarestorage.com", S3Region: "auto",
		S3Bucket: "media", S3AccessKey: "ak", S3SecretKey: "sk",
	})
	if err != nil || host.Name() != "r2" {
		t.Fatalf("r2: host = %v, err = %v", host, err)
	}

	if _, err := FromConfig(config.MediaConfig{Provider: "ftp"}); err == nil {
		t.Fatal("esperava erro")
	}
}
