package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	channelPrefix  = "relay:progress:"
	snapshotPrefix = "relay:progress:last:"
)

// RedisBroker distribui eventos via pub/sub do Redis, permitindo que o canal de
// progresso e o upload rodem em instâncias diferentes.
type RedisBroker struct {
	client *redis.Client
	ttl    time.Duration
	buffer int
}

// NewRedisBroker cria broker apoiado em Redis.
func NewRedisBroker(client *redis.Client, ttl time.Duration) *RedisBroker {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RedisBroker{client: client, ttl: ttl, buffer: 32}
}

// Publish grava o snapshot e publica o evento no canal do upload.
func (b *RedisBroker) Publish(ctx context.Context, event Event) error {
	if err := validate(event); err != nil {
		return err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	pipe := b.client.TxPipeline()
	pipe.Set(ctx, snapshotPrefix+event.UploadID, payload, b.ttl)
	pipe.Publish(ctx, channelPrefix+event.UploadID, payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("progress: publish: %w", err)
	}
	return nil
}

// Subscribe assina o canal do upload e aguarda a confirmação do servidor.
func (b *RedisBroker) Subscribe(ctx context.Context, uploadID string) (Subscription, error) {
	if uploadID == "" {
		return nil, ErrMissingUploadID
	}

	ps := b.client.Subscribe(ctx, channelPrefix+uploadID)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("progress: subscribe: %w", err)
	}

	sub := &redisSubscription{
		ps:   ps,
		ch:   make(chan Event, b.buffer),
		done: make(chan struct{}),
	}
	go sub.pump()
	return sub, nil
}

// Snapshot lê o último evento publicado para o upload.
func (b *RedisBroker) Snapshot(ctx context.Context, uploadID string) (Event, error) {
	raw, err := b.client.Get(ctx, snapshotPrefix+uploadID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Event{}, ErrNoSnapshot
	}
	if err != nil {
		return Event{}, err
	}
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

type redisSubscription struct {
	once sync.Once
	ps   *redis.PubSub
	ch   chan Event
	done chan struct{}
}

func (s *redisSubscription) pump() {
	defer close(s.ch)
	for msg := range s.ps.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Warn().Err(err).Str("channel", msg.Channel).Msg("progress: evento inválido descartado")
			continue
		}
		select {
		case s.ch <- event:
		case <-s.done:
			return
		}
	}
}

func (s *redisSubscription) Events() <-chan Event {
	return s.ch
}

func (s *redisSubscription) Close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.ps.Close()
	})
}
