// Package player owns per-guild voice sessions: the song queue, the player
// loop, and the streaming pipeline into a Discord voice connection.
package player

import (
	"context"
	"errors"
	"math/rand"
	"sync"

	"groovebot/internal/logging"
	"groovebot/internal/resolver"
)

// ErrIndexOutOfRange is returned by Remove for an invalid queue position.
var ErrIndexOutOfRange = errors.New("queue index out of range")

// Queue is a FIFO of tracks with the extra operations the queue commands
// need: shuffle, positional remove, clear, and slicing for pagination.
// Pop blocks until a track arrives or the context ends, which is how the
// player loop implements its idle timeout.
type Queue struct {
	mu     sync.Mutex
	items  []*resolver.Track
	signal chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{signal: make(chan struct{}, 1)}
}

// Push appends a track and wakes a blocked Pop.
func (q *Queue) Push(t *resolver.Track) {
	q.mu.Lock()
	q.items = append(q.items, t)
	n := len(q.items)
	q.mu.Unlock()

	q.wake()
	logging.QueueDebug("pushed %q (len=%d)", t.Title, n)
}

// PushFront inserts a track at the head. Used by loop mode to replay the
// finished track.
func (q *Queue) PushFront(t *resolver.Track) {
	q.mu.Lock()
	q.items = append([]*resolver.Track{t}, q.items...)
	q.mu.Unlock()
	q.wake()
}

func (q *Queue) wake() {
	select {
	case q.signal <- struct{}{}:
	default:
	}
}

// Pop removes and returns the head track, blocking until one is available.
// Returns the context error when the context ends first.
func (q *Queue) Pop(ctx context.Context) (*resolver.Track, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			t := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			return t, nil
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-q.signal:
		}
	}
}

// Len returns the number of queued tracks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear empties the queue and returns how many tracks were dropped.
func (q *Queue) Clear() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	q.items = nil
	return n
}

// Shuffle randomizes the queue order.
func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	rand.Shuffle(len(q.items), func(i, j int) {
		q.items[i], q.items[j] = q.items[j], q.items[i]
	})
}

// Remove deletes the track at the given zero-based index.
func (q *Queue) Remove(index int) (*resolver.Track, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if index < 0 || index >= len(q.items) {
		return nil, ErrIndexOutOfRange
	}
	t := q.items[index]
	q.items = append(q.items[:index], q.items[index+1:]...)
	return t, nil
}

// Snapshot returns a copy of the queued tracks in order.
func (q *Queue) Snapshot() []*resolver.Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]*resolver.Track, len(q.items))
	copy(out, q.items)
	return out
}

// Page returns the tracks for a zero-based page of the given size, plus the
// total page count.
func (q *Queue) Page(page, perPage int) ([]*resolver.Track, int) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if perPage <= 0 {
		perPage = 10
	}
	pages := (len(q.items) + perPage - 1) / perPage
	if page < 0 || page >= pages {
		return nil, pages
	}
	start := page * perPage
	end := start + perPage
	if end > len(q.items) {
		end = len(q.items)
	}
	out := make([]*resolver.Track, end-start)
	copy(out, q.items[start:end])
	return out, pages
}
