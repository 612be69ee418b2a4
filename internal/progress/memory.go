package progress

import (
	"context"
	"sync"
	"time"
)

// MemoryBroker distribui eventos dentro do processo. Adequado para uma única
// instância e para testes.
type MemoryBroker struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscription]struct{}
	last   map[string]snapshot
	buffer int
	ttl    time.Duration
	now    func() time.Time
}

type snapshot struct {
	event   Event
	expires time.Time
}

// NewMemoryBroker cria broker em memória com buffer por assinante e TTL de snapshot.
func NewMemoryBroker(buffer int, ttl time.Duration) *MemoryBroker {
	if buffer <= 0 {
		buffer = 32
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &MemoryBroker{
		subs:   make(map[string]map[*memorySubscription]struct{}),
		last:   make(map[string]snapshot),
		buffer: buffer,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Publish entrega o evento aos assinantes do upload sem bloquear o envio.
func (b *MemoryBroker) Publish(_ context.Context, event Event) error {
	if err := validate(event); err != nil {
		return err
	}

	b.mu.Lock()
	now := b.now()
	b.last[event.UploadID] = snapshot{event: event, expires: now.Add(b.ttl)}
	for id, snap := range b.last {
		if now.After(snap.expires) {
			delete(b.last, id)
		}
	}
	b.mu.Unlock()

	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub := range b.subs[event.UploadID] {
		sub.offer(event)
	}
	return nil
}

// Subscribe registra interesse nos eventos de um upload.
func (b *MemoryBroker) Subscribe(_ context.Context, uploadID string) (Subscription, error) {
	if uploadID == "" {
		return nil, ErrMissingUploadID
	}
	sub := &memorySubscription{
		broker:   b,
		uploadID: uploadID,
		ch:       make(chan Event, b.buffer),
	}
	b.mu.Lock()
	set, ok := b.subs[uploadID]
	if !ok {
		set = make(map[*memorySubscription]struct{})
		b.subs[uploadID] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()
	return sub, nil
}

// Snapshot devolve o último evento publicado para o upload, se ainda válido.
func (b *MemoryBroker) Snapshot(_ context.Context, uploadID string) (Event, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	snap, ok := b.last[uploadID]
	if !ok || b.now().After(snap.expires) {
		return Event{}, ErrNoSnapshot
	}
	return snap.event, nil
}

type memorySubscription struct {
	once     sync.Once
	broker   *MemoryBroker
	uploadID string
	ch       chan Event
}

// offer enfileira sem bloquear. Com a fila cheia descarta o evento mais antigo,
// de modo que o evento final nunca se perde para um leitor lento.
// Chamado com broker.mu em leitura, o que impede Close concorrente.
func (s *memorySubscription) offer(event Event) {
	for {
		select {
		case s.ch <- event:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

func (s *memorySubscription) Events() <-chan Event {
	return s.ch
}

func (s *memorySubscription) Close() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		if set, ok := s.broker.subs[s.uploadID]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(s.broker.subs, s.uploadID)
			}
		}
		s.broker.mu.Unlock()
		close(s.ch)
	})
}
