package progress

import (
	"context"
	"errors"
	"time"
)

// Status identifica o tipo de evento publicado para um upload.
type Status string

const (
	StatusProgress  Status = "progress"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Event é a mensagem entregue aos assinantes do canal de progresso.
type Event struct {
	UploadID string    `json:"uploadId"`
	Status   Status    `json:"status"`
	Percent  int       `json:"percent"`
	URL      string    `json:"url,omitempty"`
	Error    string    `json:"error,omitempty"`
	At       time.Time `json:"at"`
}

// Terminal indica se o evento encerra o upload.
func (e Event) Terminal() bool {
	return e.Status == StatusCompleted || e.Status == StatusFailed
}

var (
	// ErrMissingUploadID é retornado quando o evento não informa o upload.
	ErrMissingUploadID = errors.New("progress: upload id obrigatório")
	// ErrNoSnapshot indica que não há evento recente para o upload.
	ErrNoSnapshot = errors.New("progress: sem snapshot")
)

// Broker distribui eventos de progresso por upload.
type Broker interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(ctx context.Context, uploadID string) (Subscription, error)
	Snapshot(ctx context.Context, uploadID string) (Event, error)
}

// Subscription representa um fluxo ativo de eventos de um upload.
type Subscription interface {
	Events() <-chan Event
	Close()
}

func validate(event Event) error {
	if event.UploadID == "" {
		return ErrMissingUploadID
	}
	if event.Status == "" {
		return errors.New("progress: status obrigatório")
	}
	return nil
}
