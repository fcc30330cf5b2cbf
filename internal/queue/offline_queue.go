package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mavuno/agrolink/internal/connectivity"
)

// Processor performs one queued operation. true consumes the item; false,
// an error or a panic keeps it at the head for a later drain.
type Processor[T any] func(ctx context.Context, payload T) (bool, error)

// Hooks are optional metric callbacks. Keeping them as funcs keeps this
// package free of the prometheus import.
type Hooks struct {
	OnProcessed func()
	OnFailed    func()
	OnDepth     func(depth int)
}

// OfflineQueue holds operations made while offline and replays them in
// FIFO order, one at a time, once connectivity is available.
//
// The persisted sequence is read once in New and then only written.
// At most one drain runs at a time; a drain stops at the first failed item
// and is resumed by the next trigger (enqueue, reconnect or ProcessQueue).
type OfflineQueue[T any] struct {
	key     string
	store   Store
	process Processor[T]
	net     connectivity.Checker
	logger  *zap.Logger
	hooks   Hooks
	now     func() time.Time

	mu    sync.Mutex
	items []QueueItem[T]

	processing atomic.Bool
	trigger    chan struct{}
}

func New[T any](
	key string,
	store Store,
	process Processor[T],
	net connectivity.Checker,
	logger *zap.Logger,
	hooks Hooks,
) *OfflineQueue[T] {
	q := &OfflineQueue[T]{
		key:     key,
		store:   store,
		process: process,
		net:     net,
		logger:  logger.With(zap.String("queue", key)),
		hooks:   hooks,
		now:     func() time.Time { return time.Now().UTC() },
		trigger: make(chan struct{}, 1),
	}
	q.items = q.load(context.Background())
	q.observeDepth(len(q.items))
	return q
}

// AddItem appends payload to the tail, persists the queue and signals a
// drain. Persistence failures are logged; the item stays queued in memory.
func (q *OfflineQueue[T]) AddItem(ctx context.Context, payload T) QueueItem[T] {
	item := QueueItem[T]{
		ID:         uuid.NewString(),
		Payload:    payload,
		EnqueuedAt: q.now(),
	}

	q.mu.Lock()
	next := make([]QueueItem[T], len(q.items), len(q.items)+1)
	copy(next, q.items)
	q.items = append(next, item)
	q.persistLocked(ctx)
	depth := len(q.items)
	q.mu.Unlock()

	q.observeDepth(depth)
	q.logger.Debug("item queued", zap.String("item_id", item.ID), zap.Int("depth", depth))

	select {
	case q.trigger <- struct{}{}:
	default:
	}
	return item
}

// ProcessQueue drains the queue head-first. It returns immediately when a
// drain is already running, the queue is empty, or the device is offline.
func (q *OfflineQueue[T]) ProcessQueue(ctx context.Context) {
	for {
		if !q.processing.CompareAndSwap(false, true) {
			return
		}
		stopped := q.drain(ctx)
		q.processing.Store(false)

		// Items added after the last head check while the guard was held
		// had their trigger swallowed; pick them up here.
		if stopped || ctx.Err() != nil || q.Len() == 0 || !q.net.Online() {
			return
		}
	}
}

// drain reports whether it stopped on a failed item.
func (q *OfflineQueue[T]) drain(ctx context.Context) bool {
	for {
		if ctx.Err() != nil || !q.net.Online() {
			return false
		}
		head, ok := q.head()
		if !ok {
			return false
		}

		done, err := q.invoke(ctx, head.Payload)
		if err != nil || !done {
			q.logger.Warn("queued item failed, will retry on next trigger",
				zap.String("item_id", head.ID), zap.Bool("consumed", done), zap.Error(err))
			if q.hooks.OnFailed != nil {
				q.hooks.OnFailed()
			}
			return true
		}

		depth := q.removeHead(ctx, head.ID)
		q.logger.Debug("queued item processed", zap.String("item_id", head.ID), zap.Int("depth", depth))
		if q.hooks.OnProcessed != nil {
			q.hooks.OnProcessed()
		}
		q.observeDepth(depth)
	}
}

func (q *OfflineQueue[T]) invoke(ctx context.Context, payload T) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("processor panic: %v", r)
		}
	}()
	return q.process(ctx, payload)
}

// Run is the single consumer of drain triggers: enqueues and connectivity
// restored. It drains once at start for items loaded from the store.
func (q *OfflineQueue[T]) Run(ctx context.Context) {
	q.logger.Info("offline queue started", zap.Int("depth", q.Len()))
	q.ProcessQueue(ctx)

	for {
		select {
		case <-ctx.Done():
			q.logger.Info("offline queue stopping", zap.Int("depth", q.Len()))
			return
		case <-q.trigger:
			q.ProcessQueue(ctx)
		case online := <-q.net.Changes():
			if online {
				q.logger.Info("connectivity restored, draining")
				q.ProcessQueue(ctx)
			}
		}
	}
}

func (q *OfflineQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *OfflineQueue[T]) IsProcessing() bool {
	return q.processing.Load()
}

// Items returns a snapshot in queue order.
func (q *OfflineQueue[T]) Items() []QueueItem[T] {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]QueueItem[T](nil), q.items...)
}

func (q *OfflineQueue[T]) Key() string { return q.key }

func (q *OfflineQueue[T]) head() (QueueItem[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return QueueItem[T]{}, false
	}
	return q.items[0], true
}

func (q *OfflineQueue[T]) removeHead(ctx context.Context, id string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) > 0 && q.items[0].ID == id {
		q.items = append([]QueueItem[T](nil), q.items[1:]...)
		q.persistLocked(ctx)
	}
	return len(q.items)
}

func (q *OfflineQueue[T]) persistLocked(ctx context.Context) {
	data, err := json.Marshal(q.items)
	if err != nil {
		q.logger.Error("encode queue", zap.Error(err))
		return
	}
	if err := q.store.Save(ctx, q.key, data); err != nil {
		q.logger.Error("persist queue", zap.Error(err))
	}
}

func (q *OfflineQueue[T]) load(ctx context.Context) []QueueItem[T] {
	data, err := q.store.Load(ctx, q.key)
	if err != nil {
		q.logger.Error("read persisted queue, starting empty", zap.Error(err))
		return nil
	}
	if len(data) == 0 {
		return nil
	}
	var items []QueueItem[T]
	if err := json.Unmarshal(data, &items); err != nil {
		q.logger.Error("parse persisted queue, starting empty", zap.Error(err))
		return nil
	}
	return items
}

func (q *OfflineQueue[T]) observeDepth(depth int) {
	if q.hooks.OnDepth != nil {
		q.hooks.OnDepth(depth)
	}
}

// Snapshot decodes a persisted queue without constructing a live queue.
func Snapshot[T any](ctx context.Context, store Store, key string) ([]QueueItem[T], error) {
	data, err := store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, nil
	}
	var items []QueueItem[T]
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode queue %q: %w", key, err)
	}
	return items, nil
}
