package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultCloudinaryBase = "https://api.cloudinary.com"

// CloudinaryConfig descreve credenciais e parâmetros do upload em blocos.
type CloudinaryConfig struct {
	CloudName  string
	APIKey     string
	APISecret  string
	APIBase    string
	ChunkSize  int64
	HTTPClient *http.Client
}

// CloudinaryHost implementa o upload grande (upload_large) da Cloudinary.
type CloudinaryHost struct {
	cfg    CloudinaryConfig
	client *http.Client
	now    func() time.Time
}

// APIError representa erro devolvido pela API da Cloudinary.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// NewCloudinaryHost cria cliente pronto para enviar vídeos.
func NewCloudinaryHost(cfg CloudinaryConfig) (*CloudinaryHost, error) {
	if strings.TrimSpace(cfg.CloudName) == "" {
		return nil, errors.New("cloudinary: cloud name obrigatório")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("cloudinary: api key obrigatória")
	}
	if strings.TrimSpace(cfg.APISecret) == "" {
		return nil, errors.New("cloudinary: api secret obrigatório")
	}

	base := strings.TrimSpace(cfg.APIBase)
	if base == "" {
		base = defaultCloudinaryBase
	}
	cfg.APIBase = strings.TrimRight(base, "/")

	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 20_000_000
	}

	// sem timeout: o upload é limitado apenas pelo contexto da requisição
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &CloudinaryHost{cfg: cfg, client: client, now: time.Now}, nil
}

func (c *CloudinaryHost) Name() string { return "cloudinary" }

type cloudinaryResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
	Bytes     int64  `json:"bytes"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// UploadLarge envia o arquivo em blocos com Content-Range e devolve a URL segura.
func (c *CloudinaryHost) UploadLarge(ctx context.Context, input UploadInput, onProgress ProgressFunc) (*UploadResult, error) {
	f, err := os.Open(input.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	total := input.Size
	if total <= 0 {
		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		total = info.Size()
	}
	if total <= 0 {
		return nil, errors.New("cloudinary: arquivo vazio")
	}

	uniqueID := input.UploadID
	if uniqueID == "" {
		uniqueID = uuid.NewString()
	}

	filename := input.Filename
	if filename == "" {
		filename = filepath.Base(input.Path)
	}

	params := map[string]string{
		"timestamp": strconv.FormatInt(c.now().Unix(), 10),
	}
	fields := map[string]string{
		"api_key":   c.cfg.APIKey,
		"timestamp": params["timestamp"],
		"signature": signParams(params, c.cfg.APISecret),
	}

	endpoint := fmt.Sprintf("%s/v1_1/%s/video/upload", c.cfg.APIBase, c.cfg.CloudName)

	var last *cloudinaryResponse
	for start := int64(0); start < total; start += c.cfg.ChunkSize {
		size := c.cfg.ChunkSize
		if start+size > total {
			size = total - start
		}

		chunk := io.NewSectionReader(f, start, size)
		resp, err := c.sendChunk(ctx, endpoint, uniqueID, filename, fields, chunk, start, size, total, onProgress)
		if err != nil {
			return nil, err
		}
		last = resp
	}

	if last == nil || last.SecureURL == "" {
		return nil, errors.New("cloudinary: resposta sem secure_url")
	}

	return &UploadResult{SecureURL: last.SecureURL, PublicID: last.PublicID, Bytes: last.Bytes}, nil
}

func (c *CloudinaryHost) sendChunk(ctx context.Context, endpoint, uniqueID, filename string, fields map[string]string, chunk io.Reader, start, size, total int64, onProgress ProgressFunc) (*cloudinaryResponse, error) {
	var head bytes.Buffer
	mw := multipart.NewWriter(&head)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := mw.WriteField(k, fields[k]); err != nil {
			return nil, err
		}
	}
	if _, err := mw.CreateFormFile("file", filename); err != nil {
		return nil, err
	}
	headLen := head.Len()
	if err := mw.Close(); err != nil {
		return nil, err
	}
	tail := append([]byte(nil), head.Bytes()[headLen:]...)
	head.Truncate(headLen)

	body := io.MultiReader(&head, newProgressReader(chunk, start, total, onProgress), bytes.NewReader(tail))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = int64(headLen) + size + int64(len(tail))
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-Unique-Upload-Id", uniqueID)
	req.Header.Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, start+size-1, total))

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var payload cloudinaryResponse
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil && resp.StatusCode < 300 {
			return nil, fmt.Errorf("cloudinary: resposta inválida: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(raw))
		if payload.Error != nil && payload.Error.Message != "" {
			msg = payload.Error.Message
		}
		if msg == "" {
			msg = fmt.Sprintf("cloudinary: status %d", resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	return &payload, nil
}

// signParams assina parâmetros ordenados no formato k=v&k=v seguido do segredo.
func signParams(params map[string]string, secret string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		switch k {
		case "file", "api_key", "resource_type", "cloud_name":
			continue
		}
		if v == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + params[k]
	}

	sum := sha1.Sum([]byte(strings.Join(parts, "&") + secret))
	return hex.EncodeToString(sum[:])
}
