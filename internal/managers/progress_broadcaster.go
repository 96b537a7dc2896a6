package managers

import (
	"context"
	"sync"

	"github.com/lorekeep/lorekeep/internal/domain"
)

const progressBufferSize = 16

// ProgressBroadcaster fans indexing progress out to per-file
// subscribers. Publishing never blocks: a subscriber that stops
// draining its channel loses events instead of stalling the pipeline.
type ProgressBroadcaster struct {
	mu          sync.Mutex
	nextID      int
	subscribers map[string]map[int]chan domain.FileProgressEvent
}

func NewProgressBroadcaster() *ProgressBroadcaster {
	return &ProgressBroadcaster{
		subscribers: make(map[string]map[int]chan domain.FileProgressEvent),
	}
}

func (b *ProgressBroadcaster) PublishProgress(ctx context.Context, event domain.FileProgressEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers[event.FileID] {
		select {
		case ch <- event:
		default:
		}
	}

	return nil
}

// SubscribeFile registers a listener for one file's progress events.
// The subscription ends when the returned cancel func runs or ctx is
// cancelled, whichever happens first; the channel is closed either
// way.
func (b *ProgressBroadcaster) SubscribeFile(ctx context.Context, fileID string) (<-chan domain.FileProgressEvent, func()) {
	ch := make(chan domain.FileProgressEvent, progressBufferSize)

	b.mu.Lock()
	b.nextID++
	id := b.nextID

	if b.subscribers[fileID] == nil {
		b.subscribers[fileID] = make(map[int]chan domain.FileProgressEvent)
	}
	b.subscribers[fileID][id] = ch
	b.mu.Unlock()

	done := make(chan struct{})

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subscribers[fileID], id)
			if len(b.subscribers[fileID]) == 0 {
				delete(b.subscribers, fileID)
			}
			b.mu.Unlock()

			close(done)
			close(ch)
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	return ch, cancel
}

// SubscriberCount reports how many listeners a file currently has.
func (b *ProgressBroadcaster) SubscriberCount(fileID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subscribers[fileID])
}
