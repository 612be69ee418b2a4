package upload

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Recorder persiste o histórico de uploads.
type Recorder interface {
	Create(ctx context.Context, rec Record) error
	MarkCompleted(ctx context.Context, id, secureURL, publicID string) error
	MarkFailed(ctx context.Context, id, message string) error
	Get(ctx context.Context, id string) (*Record, error)
}

// Repository provê acesso à tabela video_uploads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository cria instância do repositório.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create insere (ou reinicia) o registro como pendente.
func (r *Repository) Create(ctx context.Context, rec Record) error {
	const query = `
        INSERT INTO video_uploads (id, filename, content_type, size_bytes, provider, subject, status)
        VALUES ($1, $2, $3, $4, $5, $6, 'pending')
        ON CONFLICT (id) DO UPDATE
        SET filename = EXCLUDED.filename,
            content_type = EXCLUDED.content_type,
            size_bytes = EXCLUDED.size_bytes,
            provider = EXCLUDED.provider,
            subject = EXCLUDED.subject,
            status = 'pending',
            secure_url = NULL,
            public_id = NULL,
            error = NULL,
            updated_at = now()
    `
	_, err := r.pool.Exec(ctx, query, rec.ID, rec.Filename, rec.ContentType, rec.SizeBytes, rec.Provider, rec.Subject)
	return err
}

// MarkCompleted grava a URL segura devolvida pelo host.
func (r *Repository) MarkCompleted(ctx context.Context, id, secureURL, publicID string) error {
	const query = `
        UPDATE video_uploads
        SET status = 'completed', secure_url = $2, public_id = $3, error = NULL, updated_at = now()
        WHERE id = $1
    `
	tag, err := r.pool.Exec(ctx, query, id, secureURL, publicID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkFailed registra a mensagem de erro do envio.
func (r *Repository) MarkFailed(ctx context.Context, id, message string) error {
	const query = `
        UPDATE video_uploads
        SET status = 'failed', error = $2, updated_at = now()
        WHERE id = $1
    `
	tag, err := r.pool.Exec(ctx, query, id, message)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Get busca um upload específico.
func (r *Repository) Get(ctx context.Context, id string) (*Record, error) {
	const query = `
        SELECT id, filename, content_type, size_bytes, provider, subject, status, secure_url, public_id, error, created_at, updated_at
        FROM video_uploads
        WHERE id = $1
    `

	var rec Record
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID,
		&rec.Filename,
		&rec.ContentType,
		&rec.SizeBytes,
		&rec.Provider,
		&rec.Subject,
		&rec.Status,
		&rec.SecureURL,
		&rec.PublicID,
		&rec.Error,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// NopRecorder é usado quando DB_DSN não está configurado.
type NopRecorder struct{}

func (NopRecorder) Create(context.Context, Record) error                        { return nil }
func (NopRecorder) MarkCompleted(context.Context, string, string, string) error { return nil }
func (NopRecorder) MarkFailed(context.Context, string, string) error            { return nil }
func (NopRecorder) Get(context.Context, string) (*Record, error)                { return nil, ErrLedgerDisabled }
