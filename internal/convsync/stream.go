package convsync

import "sync"

// Stream delivers the full current result of a subscribed query on every change.
// Updates is closed once the stream ends; Err then reports why, nil after Cancel.
type Stream[T any] interface {
	Updates() <-chan T
	Cancel()
	Err() error
}

// Latest is a Stream that keeps at most one undelivered value. A newer snapshot replaces an older one
// the consumer has not picked up yet, so a slow consumer always sees the most recent state.
type Latest[T any] struct {
	ch   chan T
	done chan struct{}

	mu       sync.Mutex
	err      error
	ended    bool
	onCancel func()
}

// NewLatest creates a Latest. onCancel runs once when the stream ends for any reason.
func NewLatest[T any](onCancel func()) *Latest[T] {
	return &Latest[T]{
		ch:       make(chan T, 1),
		done:     make(chan struct{}),
		onCancel: onCancel,
	}
}

// Updates implements Stream
func (s *Latest[T]) Updates() <-chan T {
	return s.ch
}

// Done is closed when the stream ends
func (s *Latest[T]) Done() <-chan struct{} {
	return s.done
}

// Push offers a new snapshot, replacing any undelivered one. Returns false once the stream ended.
func (s *Latest[T]) Push(v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return false
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
	return true
}

// Fail ends the stream with err
func (s *Latest[T]) Fail(err error) {
	s.end(err)
}

// Cancel implements Stream
func (s *Latest[T]) Cancel() {
	s.end(nil)
}

// Err implements Stream
func (s *Latest[T]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Latest[T]) end(err error) {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return
	}
	s.ended = true
	s.err = err
	close(s.ch)
	close(s.done)
	hook := s.onCancel
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
}
