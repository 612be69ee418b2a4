package media

import (
	"fmt"

	"github.com/gestaozabele/videorelay/internal/config"
)

// FromConfig escolhe o host de mídia conforme MEDIA_PROVIDER.
func FromConfig(cfg config.MediaConfig) (Host, error) {
	switch cfg.Provider {
	case "", config.ProviderCloudinary:
		host, err := NewCloudinaryHost(CloudinaryConfig{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			APIBase:   cfg.CloudinaryAPIBase,
			ChunkSize: cfg.CloudinaryChunkSize,
		})
		if err != nil {
			return nil, err
		}
		return host, nil
	case config.ProviderS3, config.ProviderR2:
		host, err := NewS3Host(S3Config{
			Name:         cfg.Provider,
			Endpoint:     cfg.S3Endpoint,
			Region:       cfg.S3Region,
			Bucket:       cfg.S3Bucket,
			AccessKey:    cfg.S3AccessKey,
			SecretKey:    cfg.S3SecretKey,
			PublicDomain: cfg.S3PublicURL,
			Prefix:       cfg.S3Prefix,
		})
		if err != nil {
			return nil, err
		}
		return host, nil
	case config.ProviderNoop:
		return NoopHost{}, nil
	default:
		return nil, fmt.Errorf("media: provedor %s não suportado", cfg.Provider)
	}
}
