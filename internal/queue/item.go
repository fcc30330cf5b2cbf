package queue

import "time"

// QueueItem is one pending operation. Items are never mutated in place:
// the queue only appends new items and removes the head on success.
type QueueItem[T any] struct {
	ID         string    `json:"id"`
	Payload    T         `json:"payload"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}
