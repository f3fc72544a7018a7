package audio

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// DefaultGap is the pause between two consecutive clips.
const DefaultGap = 100 * time.Millisecond

// Queue plays clips one at a time in enqueue order.
type Queue struct {
	player Player
	gap    time.Duration

	mu      sync.Mutex
	items   []*Clip
	playing *Clip
	cancel  context.CancelFunc
	running bool
	closed  bool
	idle    chan struct{}
	onError func(*Clip, error)
	played  int
	failed  int

	done chan struct{}
}

// NewQueue creates a Queue backed by player. A negative gap uses DefaultGap.
func NewQueue(player Player, gap time.Duration) *Queue {
	if gap < 0 {
		gap = DefaultGap
	}
	idle := make(chan struct{})
	close(idle)
	return &Queue{
		player: player,
		gap:    gap,
		idle:   idle,
		done:   make(chan struct{}),
	}
}

// OnError registers a callback for playback failures. The queue keeps
// draining after a failure.
func (q *Queue) OnError(fn func(*Clip, error)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onError = fn
}

// Enqueue appends a clip. Playback starts immediately if the queue is idle.
func (q *Queue) Enqueue(clip *Clip) {
	if clip == nil {
		return
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		clip.Release()
		return
	}
	q.items = append(q.items, clip)
	if !q.running {
		q.running = true
		q.idle = make(chan struct{})
		go q.drain()
	}
}

// Stop halts the current clip and discards everything pending.
func (q *Queue) Stop() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, c := range q.items {
		c.Release()
	}
	q.items = nil
	if q.cancel != nil {
		q.cancel()
	}
}

// Close stops playback and rejects further clips.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.done)
	q.mu.Unlock()

	q.Stop()
}

// Len returns the number of clips waiting behind the current one.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Playing reports whether a clip is currently being played.
func (q *Queue) Playing() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.playing != nil
}

// Stats returns the number of clips played successfully and the number that failed.
func (q *Queue) Stats() (played, failed int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.played, q.failed
}

// Wait blocks until the queue is empty and nothing is playing.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	idle := q.idle
	q.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) drain() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.running = false
			close(q.idle)
			q.mu.Unlock()
			return
		}
		clip := q.items[0]
		q.items[0] = nil
		q.items = q.items[1:]
		ctx, cancel := context.WithCancel(context.Background())
		q.playing = clip
		q.cancel = cancel
		q.mu.Unlock()

		err := q.player.Play(ctx, clip)
		stopped := ctx.Err() != nil
		cancel()
		clip.Release()

		q.mu.Lock()
		q.playing = nil
		q.cancel = nil
		onError := q.onError
		switch {
		case err == nil:
			q.played++
		case stopped && errors.Is(err, context.Canceled):
		default:
			q.failed++
		}
		q.mu.Unlock()

		if err != nil && !(stopped && errors.Is(err, context.Canceled)) {
			log.Printf("audio: clip %s failed: %v", clip.ID, err)
			if onError != nil {
				onError(clip, err)
			}
		}

		if q.gap > 0 {
			timer := time.NewTimer(q.gap)
			select {
			case <-timer.C:
			case <-q.done:
				timer.Stop()
			}
		}
	}
}
