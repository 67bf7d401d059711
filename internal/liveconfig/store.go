package liveconfig

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// ChangeFunc is called after a snapshot replaces the previous one.
type ChangeFunc func(prev, next *Settings)

// Store holds the single active Settings snapshot. Readers take one snapshot
// per request with Load and use it throughout; Replace swaps the pointer, so
// a reader never observes a partially applied reload.
type Store struct {
	active  atomic.Pointer[Settings]
	version atomic.Uint64
	logger  *slog.Logger

	mu        sync.Mutex
	listeners []ChangeFunc
}

// NewStore creates a store with initial as the active snapshot.
func NewStore(initial *Settings, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{logger: logger}
	s.set(initial)
	return s
}

// Load returns the active snapshot.
func (s *Store) Load() *Settings {
	return s.active.Load()
}

// Replace installs next as the active snapshot and notifies listeners.
// next is copied, so the caller may keep using it.
func (s *Store) Replace(next *Settings) {
	prev := s.active.Load()
	cur := s.set(next)

	s.mu.Lock()
	listeners := append([]ChangeFunc(nil), s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		s.notify(fn, prev, cur)
	}
}

// OnChange registers fn to run after every Replace.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

func (s *Store) set(next *Settings) *Settings {
	cp := next.clone()
	cp.Version = s.version.Add(1)
	if cp.LoadedAt.IsZero() {
		cp.LoadedAt = time.Now().UTC()
	}
	s.active.Store(cp)
	return cp
}

func (s *Store) notify(fn ChangeFunc, prev, next *Settings) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("liveconfig: change listener panicked, continuing",
				slog.String("error", fmt.Sprint(r)),
				slog.Uint64("version", next.Version))
		}
	}()
	fn(prev, next)
}
