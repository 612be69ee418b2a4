package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gestaozabele/videorelay/internal/progress"
	"github.com/gestaozabele/videorelay/internal/upload"
)

// Client fala com a API HTTP do relay.
type Client struct {
	base  string
	token string
	http  *http.Client
}

// UploadResponse espelha o corpo de sucesso de POST /upload.
type UploadResponse struct {
	URL      string `json:"url"`
	UploadID string `json:"uploadId"`
}

// APIError é uma resposta não-2xx da API.
type APIError struct {
	Status  int
	Message string
	Detail  string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

func NewClient(base, token string) *Client {
	return &Client{
		base:  strings.TrimRight(base, "/"),
		token: token,
		http:  &http.Client{},
	}
}

// Upload envia o arquivo no campo "video" sem carregá-lo inteiro em memória.
func (c *Client) Upload(ctx context.Context, uploadID, path string) (*UploadResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("video", filepath.Base(path))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/upload", pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Upload-ID", uploadID)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var out UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("resposta inválida: %w", err)
	}
	return &out, nil
}

// Watch segue GET /progress/{id} até o evento final ou o cancelamento do ctx.
func (c *Client) Watch(ctx context.Context, uploadID string, fn func(progress.Event)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/progress/"+url.PathEscape(uploadID), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	return readEvents(resp.Body, func(ev progress.Event) bool {
		fn(ev)
		return !ev.Terminal()
	})
}

// WatchUpload segue o progresso enquanto o POST não termina. Um evento final
// recebido antes disso pertence a um envio anterior com o mesmo id, então o
// stream é reaberto.
func (c *Client) WatchUpload(ctx context.Context, uploadID string, posted <-chan struct{}, fn func(progress.Event)) error {
	for {
		err := c.Watch(ctx, uploadID, fn)
		select {
		case <-posted:
			return err
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// Status consulta GET /uploads/{id}.
func (c *Client) Status(ctx context.Context, uploadID string) (*upload.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/uploads/"+url.PathEscape(uploadID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, decodeAPIError(resp)
	}
	var rec upload.Record
	if err := json.NewDecoder(resp.Body).Decode(&rec); err != nil {
		return nil, fmt.Errorf("resposta inválida: %w", err)
	}
	return &rec, nil
}

func decodeAPIError(resp *http.Response) error {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body)
	if body.Message == "" {
		body.Message = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: body.Message, Detail: body.Error}
}

// readEvents interpreta um stream text/event-stream. Comentários (": ping") e
// campos desconhecidos são ignorados; fn devolve false para parar a leitura.
func readEvents(r io.Reader, fn func(progress.Event) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)

	var data strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if data.Len() == 0 {
				continue
			}
			var ev progress.Event
			if err := json.Unmarshal([]byte(data.String()), &ev); err != nil {
				return fmt.Errorf("evento inválido: %w", err)
			}
			data.Reset()
			if !fn(ev) {
				return nil
			}
		case strings.HasPrefix(line, ":"):
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	return scanner.Err()
}
