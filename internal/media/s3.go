package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Config descreve parâmetros de um bucket compatível com S3 (AWS, R2, MinIO).
type S3Config struct {
	// Name rotula métricas e registros (s3, r2); vazio vale "s3".
	Name         string
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	PublicDomain string
	Prefix       string
	HTTPClient   *http.Client
}

// S3Host envia vídeos com PutObject usando o aws-sdk-go-v2.
type S3Host struct {
	cfg    S3Config
	client *s3.Client
}

// NewS3Host cria um host pronto para enviar arquivos a um endpoint S3/R2.
func NewS3Host(cfg S3Config) (*S3Host, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	awsCfg := aws.Config{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}
	if cfg.HTTPClient != nil {
		awsCfg.HTTPClient = cfg.HTTPClient
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		// payload não assinado: o corpo é lido uma única vez, mantendo o progresso fiel
		o.APIOptions = append(o.APIOptions, v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware)
	})

	return &S3Host{cfg: cfg, client: client}, nil
}

func (u *S3Host) Name() string {
	if u.cfg.Name != "" {
		return u.cfg.Name
	}
	return "s3"
}

// UploadLarge envia o arquivo para o bucket configurado e retorna a URL pública.
func (u *S3Host) UploadLarge(ctx context.Context, input UploadInput, onProgress ProgressFunc) (*UploadResult, error) {
	f, err := os.Open(input.Path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	size := input.Size
	if size <= 0 {
		info, err := f.Stat()
		if err != nil {
			return nil, err
		}
		size = info.Size()
	}

	contentType := strings.TrimSpace(input.ContentType)
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	id := input.UploadID
	if id == "" {
		id = uuid.NewString()
	}
	key := u.cfg.Prefix + id + strings.ToLower(filepath.Ext(input.Filename))

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.cfg.Bucket),
		Key:           aws.String(key),
		Body:          newProgressReader(f, 0, size, onProgress),
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("s3: upload falhou: %w", err)
	}

	escapedKey := (&url.URL{Path: strings.TrimLeft(key, "/")}).EscapedPath()
	publicURL := fmt.Sprintf("%s/%s/%s", strings.TrimRight(u.cfg.Endpoint, "/"), u.cfg.Bucket, escapedKey)
	if strings.TrimSpace(u.cfg.PublicDomain) != "" {
		publicURL = fmt.Sprintf("%s/%s", strings.TrimRight(u.cfg.PublicDomain, "/"), escapedKey)
	}

	return &UploadResult{SecureURL: publicURL, PublicID: key, Bytes: size}, nil
}

func (cfg S3Config) validate() error {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return errors.New("media: endpoint do S3 ausente")
	}
	if strings.TrimSpace(cfg.Region) == "" {
		return errors.New("media: região do S3 ausente")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return errors.New("media: bucket do S3 ausente")
	}
	if strings.TrimSpace(cfg.AccessKey) == "" {
		return errors.New("media: access key ausente")
	}
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return errors.New("media: secret key ausente")
	}
	if !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://") {
		return errors.New("media: endpoint deve incluir protocolo http/https")
	}
	return nil
}
