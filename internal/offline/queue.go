// Package offline holds writes that could not be sent while disconnected and
// replays them, in order, once the endpoint is reachable again.
package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/IsaacDSC/eeudesk/internal/queuestore"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const DefaultKey = "eeu_offline_queue"

var ErrItemNotFound = errors.New("queue item not found")

type Item struct {
	ID         string          `json:"id"`
	Endpoint   string          `json:"endpoint"`
	Method     string          `json:"method"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
	Attempts   int             `json:"attempts"`
	// TempID is the placeholder id handed out for an optimistic write.
	TempID string `json:"tempId,omitempty"`
}

// Queue is the single source of truth for pending writes. Every change is
// written through to the KV before it becomes visible in memory.
type Queue struct {
	mu    sync.Mutex
	items []Item
	kv    queuestore.KV
	key   string
	clock clockwork.Clock
}

type QueueOption func(*Queue)

func WithKey(key string) QueueOption {
	return func(q *Queue) {
		q.key = key
	}
}

func WithQueueClock(c clockwork.Clock) QueueOption {
	return func(q *Queue) {
		q.clock = c
	}
}

func NewQueue(kv queuestore.KV, opts ...QueueOption) *Queue {
	q := &Queue{
		kv:    kv,
		key:   DefaultKey,
		clock: clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Load replaces the in-memory queue with the persisted one.
func (q *Queue) Load(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	raw, err := q.kv.Get(ctx, q.key)
	if errors.Is(err, queuestore.ErrNotFound) {
		q.items = nil
		return nil
	}
	if err != nil {
		return fmt.Errorf("load offline queue: %w", err)
	}

	var items []Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return fmt.Errorf("decode offline queue: %w", err)
	}
	q.items = items
	return nil
}

func (q *Queue) Enqueue(ctx context.Context, endpoint, method string, payload json.RawMessage, tempID string) (Item, error) {
	item := Item{
		ID:         uuid.NewString(),
		Endpoint:   endpoint,
		Method:     method,
		Payload:    payload,
		EnqueuedAt: q.clock.Now(),
		TempID:     tempID,
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	next := append(slices.Clone(q.items), item)
	if err := q.commit(ctx, next); err != nil {
		return Item{}, err
	}
	return item, nil
}

// Items returns a snapshot in replay order.
func (q *Queue) Items() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.items)
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *Queue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.index(id)
	if i < 0 {
		return ErrItemNotFound
	}

	next := slices.Delete(slices.Clone(q.items), i, i+1)
	return q.commit(ctx, next)
}

// MarkAttempt records a failed replay and returns the new attempt count.
func (q *Queue) MarkAttempt(ctx context.Context, id string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	i := q.index(id)
	if i < 0 {
		return 0, ErrItemNotFound
	}

	next := slices.Clone(q.items)
	next[i].Attempts++
	if err := q.commit(ctx, next); err != nil {
		return 0, err
	}
	return next[i].Attempts, nil
}

func (q *Queue) Clear(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.commit(ctx, nil)
}

func (q *Queue) index(id string) int {
	return slices.IndexFunc(q.items, func(it Item) bool { return it.ID == id })
}

// commit must be called with mu held.
func (q *Queue) commit(ctx context.Context, next []Item) error {
	if next == nil {
		next = []Item{}
	}

	raw, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode offline queue: %w", err)
	}

	if err := q.kv.Put(ctx, q.key, raw); err != nil {
		return fmt.Errorf("persist offline queue: %w", err)
	}

	q.items = next
	return nil
}
