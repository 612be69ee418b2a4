package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config centraliza a configuração carregada do ambiente.
type Config struct {
	Port          int
	DBDSN         string
	RedisURL      string
	AllowOrigins  []string
	RateLimit     RateLimitConfig
	Media         MediaConfig
	Upload        UploadConfig
	JWTSecret     string
	SlackWebhook  string
	LogLevel      string
	LogFormat     string
	ShutdownGrace time.Duration
}

// RateLimitConfig representa limites simples para throttling.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// MediaConfig descreve o provedor de hospedagem de mídia.
type MediaConfig struct {
	Provider string

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryAPIBase   string
	CloudinaryChunkSize int64

	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string
	S3Prefix    string
}

// UploadConfig agrupa parâmetros do relay de upload.
type UploadConfig struct {
	TempDir      string
	Timeout      time.Duration
	SnapshotTTL  time.Duration
	SSEHeartbeat time.Duration
}

const (
	ProviderCloudinary = "cloudinary"
	ProviderS3         = "s3"
	ProviderR2         = "r2"
	ProviderNoop       = "noop"
)

// DefaultChunkSize segue o tamanho de bloco padrão do upload_large da Cloudinary.
const DefaultChunkSize int64 = 20_000_000

// Load carrega variáveis de ambiente e aplica defaults seguros.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	portStr := getEnv("PORT", "5000")
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return nil, errors.New("PORT inválida")
	}
	cfg.Port = port

	cfg.DBDSN = strings.TrimSpace(getEnv("DB_DSN", getEnv("DATABASE_URL", "")))
	cfg.RedisURL = strings.TrimSpace(getEnv("REDIS_URL", ""))

	cfg.AllowOrigins = splitList(getEnv("ALLOW_ORIGINS", "*"))

	rps, err := parseFloatEnv("RATE_LIMIT_RPS", 5)
	if err != nil {
		return nil, err
	}
	burst, err := parseIntEnv("RATE_LIMIT_BURST", 10)
	if err != nil {
		return nil, err
	}
	cfg.RateLimit = RateLimitConfig{RequestsPerSecond: rps, Burst: burst}

	media, err := loadMedia()
	if err != nil {
		return nil, err
	}
	cfg.Media = media

	cfg.Upload.TempDir = strings.TrimSpace(getEnv("UPLOAD_TMP_DIR", os.TempDir()))
	if cfg.Upload.Timeout, err = parseDurationEnv("UPLOAD_TIMEOUT", 0); err != nil {
		return nil, err
	}
	if cfg.Upload.SnapshotTTL, err = parseDurationEnv("PROGRESS_SNAPSHOT_TTL", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Upload.SSEHeartbeat, err = parseDurationEnv("SSE_HEARTBEAT", 15*time.Second); err != nil {
		return nil, err
	}

	cfg.JWTSecret = strings.TrimSpace(getEnv("UPLOAD_JWT_SECRET", ""))
	if cfg.JWTSecret != "" && len(cfg.JWTSecret) < 32 {
		return nil, errors.New("UPLOAD_JWT_SECRET deve ter pelo menos 32 caracteres")
	}

	cfg.SlackWebhook = strings.TrimSpace(getEnv("SLACK_WEBHOOK_URL", ""))
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(getEnv("LOG_LEVEL", "info")))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(getEnv("LOG_FORMAT", "console")))

	if cfg.ShutdownGrace, err = parseDurationEnv("SHUTDOWN_GRACE", 5*time.Second); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadMedia() (MediaConfig, error) {
	m := MediaConfig{
		Provider:            strings.ToLower(strings.TrimSpace(getEnv("MEDIA_PROVIDER", ProviderCloudinary))),
		CloudinaryCloudName: strings.TrimSpace(getEnv("CLOUDINARY_CLOUD_NAME", "")),
		CloudinaryAPIKey:    strings.TrimSpace(getEnv("CLOUDINARY_API_KEY", "")),
		CloudinaryAPISecret: strings.TrimSpace(getEnv("CLOUDINARY_API_SECRET", "")),
		CloudinaryAPIBase:   strings.TrimSpace(getEnv("CLOUDINARY_API_BASE", "")),
		S3Endpoint:          strings.TrimSpace(getEnv("S3_ENDPOINT", "")),
		S3Region:            strings.TrimSpace(getEnv("S3_REGION", "auto")),
		S3Bucket:            strings.TrimSpace(getEnv("S3_BUCKET", "")),
		S3AccessKey:         strings.TrimSpace(getEnv("S3_ACCESS_KEY", "")),
		S3SecretKey:         strings.TrimSpace(getEnv("S3_SECRET_KEY", "")),
		S3PublicURL:         strings.TrimSpace(getEnv("S3_PUBLIC_URL", "")),
		S3Prefix:            strings.TrimSpace(getEnv("S3_PREFIX", "videos/")),
	}

	chunk, err := parseIntEnv("CLOUDINARY_CHUNK_SIZE", int(DefaultChunkSize))
	if err != nil {
		return m, err
	}
	if chunk <= 0 {
		return m, errors.New("CLOUDINARY_CHUNK_SIZE inválido")
	}
	m.CloudinaryChunkSize = int64(chunk)

	switch m.Provider {
	case ProviderCloudinary:
		if m.CloudinaryCloudName == "" || m.CloudinaryAPIKey == "" || m.CloudinaryAPISecret == "" {
			return m, errors.New("CLOUDINARY_CLOUD_NAME, CLOUDINARY_API_KEY e CLOUDINARY_API_SECRET obrigatórios")
		}
	case ProviderS3, ProviderR2, ProviderNoop:
	default:
		return m, errors.New("MEDIA_PROVIDER não suportado: " + m.Provider)
	}

	return m, nil
}

func getEnv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return def
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	val := getEnv(key, "")
	if val == "" {
		return def, nil
	}
	dur, err := time.ParseDuration(val)
	if err != nil || dur < 0 {
		return 0, errors.New(key + " inválido")
	}
	return dur, nil
}

func parseIntEnv(key string, def int) (int, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, errors.New(key + " inválido")
	}
	return n, nil
}

func parseFloatEnv(key string, def float64) (float64, error) {
	val := strings.TrimSpace(getEnv(key, ""))
	if val == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f <= 0 {
		return 0, errors.New(key + " inválido")
	}
	return f, nil
}
