package server

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/chulminlee01/mrt-tech-test/internal/pipeline"
)

// streamRetention is how long a finished job keeps its event history.
const streamRetention = 10 * time.Minute

// progressBroker fans pipeline progress out to SSE subscribers. Each job keeps
// its full event history so late subscribers replay what they missed.
type progressBroker struct {
	mu      sync.Mutex
	streams map[uuid.UUID]*jobStream
}

type jobStream struct {
	events []pipeline.ProgressEvent
	done   bool
	subs   map[chan struct{}]struct{}
}

func newProgressBroker() *progressBroker {
	return &progressBroker{streams: make(map[uuid.UUID]*jobStream)}
}

// open registers a job before its pipeline starts.
func (b *progressBroker) open(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.streams[id]; !ok {
		b.streams[id] = &jobStream{subs: make(map[chan struct{}]struct{})}
	}
}

func (b *progressBroker) publish(id uuid.UUID, event pipeline.ProgressEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.streams[id]
	if !ok || s.done {
		return
	}
	s.events = append(s.events, event)
	s.notify()
}

// finish marks the stream complete and schedules its removal.
func (b *progressBroker) finish(id uuid.UUID) {
	b.mu.Lock()
	s, ok := b.streams[id]
	if ok {
		s.done = true
		s.notify()
	}
	b.mu.Unlock()

	if ok {
		time.AfterFunc(streamRetention, func() { b.remove(id) })
	}
}

func (b *progressBroker) remove(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.streams, id)
}

// subscribe returns a wake-up channel for the job, or false when the broker
// has no stream for it.
func (b *progressBroker) subscribe(id uuid.UUID) (<-chan struct{}, func(), bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.streams[id]
	if !ok {
		return nil, nil, false
	}

	ch := make(chan struct{}, 1)
	s.subs[ch] = struct{}{}
	ch <- struct{}{} // replay history on the first read
	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(s.subs, ch)
	}
	return ch, cancel, true
}

// since returns the events after the first n and whether the job finished.
func (b *progressBroker) since(id uuid.UUID, n int) ([]pipeline.ProgressEvent, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.streams[id]
	if !ok {
		return nil, true
	}
	if n >= len(s.events) {
		return nil, s.done
	}
	out := make([]pipeline.ProgressEvent, len(s.events)-n)
	copy(out, s.events[n:])
	return out, s.done
}

// notify wakes every subscriber without blocking. Callers hold b.mu.
func (s *jobStream) notify() {
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
