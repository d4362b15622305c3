package ui

import (
	"sync"
	"time"
)

// redrawScheduler coalesces screen repaints and caps the draw rate. Callbacks
// registered under the same id replace each other until the next frame.
type redrawScheduler struct {
	queue        func(func())
	pending      map[string]func()
	order        []string
	mu           sync.Mutex
	quit         chan struct{}
	done         chan struct{}
	stopOnce     sync.Once
	frameTime    time.Duration
	drainTimeout time.Duration
}

// newRedrawScheduler builds a scheduler that hands each batch to queue. A nil
// queue runs batches inline.
func newRedrawScheduler(queue func(func()), frameTime, drainTimeout time.Duration) *redrawScheduler {
	if frameTime <= 0 {
		frameTime = time.Second / 30
	}
	if drainTimeout <= 0 {
		drainTimeout = 100 * time.Millisecond
	}
	if queue == nil {
		queue = func(fn func()) { fn() }
	}
	return &redrawScheduler{
		queue:        queue,
		pending:      make(map[string]func()),
		quit:         make(chan struct{}),
		done:         make(chan struct{}),
		frameTime:    frameTime,
		drainTimeout: drainTimeout,
	}
}

func (s *redrawScheduler) Start() {
	go s.run()
}

func (s *redrawScheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.quit)
		select {
		case <-s.done:
		case <-time.After(s.drainTimeout):
		}
	})
}

// Purpose: Queue a redraw callback for the next frame.
// Key aspects: Callbacks are coalesced per id; the latest one wins and keeps
// its first-scheduled slot.
// Upstream: Terminal grid listener and SetStatus.
// Downstream: run/flush on the frame ticker.
func (s *redrawScheduler) Schedule(id string, fn func()) {
	if s == nil {
		return
	}
	s.mu.Lock()
	if _, ok := s.pending[id]; !ok {
		s.order = append(s.order, id)
	}
	s.pending[id] = fn
	s.mu.Unlock()
}

func (s *redrawScheduler) run() {
	defer close(s.done)

	ticker := time.NewTicker(s.frameTime)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush()
		case <-s.quit:
			s.flush()
			return
		}
	}
}

func (s *redrawScheduler) flush() {
	s.mu.Lock()
	if len(s.order) == 0 {
		s.mu.Unlock()
		return
	}
	batch := make([]func(), 0, len(s.order))
	for _, id := range s.order {
		batch = append(batch, s.pending[id])
		delete(s.pending, id)
	}
	s.order = s.order[:0]
	s.mu.Unlock()

	s.queue(func() {
		for _, fn := range batch {
			fn()
		}
	})
}
