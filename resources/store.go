package resources

import (
	"container/list"
	"sync"
	"time"
)

const (
	DefaultTTL        = time.Hour
	DefaultMaxEntries = 256

	sweepInterval = time.Minute
)

// Entry is one stored page.
type Entry struct {
	Key       Key
	Text      string
	CreatedAt time.Time
}

// Store is a size-limited, TTL-bounded map of rendered pages. Entries are
// kept in insertion order; when full, the oldest is evicted.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]*list.Element
	order      *list.List // of *Entry, oldest at front
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	done       chan struct{}
	closed     bool
}

// NewStore creates a store. Non-positive ttl or maxEntries select the
// defaults. A background goroutine sweeps expired entries until Close.
func NewStore(ttl time.Duration, maxEntries int) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	s := &Store{
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		done:       make(chan struct{}),
	}
	go s.sweep()
	return s
}

// Put stores text under key, replacing any previous value.
func (s *Store) Put(key Key, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := key.String()
	entry := &Entry{Key: key, Text: text, CreatedAt: s.now()}

	if elem, ok := s.entries[k]; ok {
		elem.Value = entry
		s.order.MoveToBack(elem)
		return
	}

	for len(s.entries) >= s.maxEntries {
		s.evictOldest()
	}
	s.entries[k] = s.order.PushBack(entry)
}

// Get returns the text stored under key if it exists and has not expired.
func (s *Store) Get(key Key) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	elem, ok := s.entries[key.String()]
	if !ok {
		return "", false
	}
	entry := elem.Value.(*Entry)
	if s.expired(entry) {
		return "", false
	}
	return entry.Text, true
}

// List returns the live entries, oldest first.
func (s *Store) List() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, 0, len(s.entries))
	for elem := s.order.Front(); elem != nil; elem = elem.Next() {
		entry := elem.Value.(*Entry)
		if !s.expired(entry) {
			out = append(out, *entry)
		}
	}
	return out
}

// Len returns the number of stored entries, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close stops the sweeper. It is safe to call multiple times.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.done)
		s.closed = true
	}
}

func (s *Store) expired(e *Entry) bool {
	return s.now().Sub(e.CreatedAt) >= s.ttl
}

// evictOldest must be called with mu held.
func (s *Store) evictOldest() {
	front := s.order.Front()
	if front == nil {
		return
	}
	s.order.Remove(front)
	delete(s.entries, front.Value.(*Entry).Key.String())
}

func (s *Store) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.removeExpired()
		case <-s.done:
			return
		}
	}
}

func (s *Store) removeExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Insertion order is also age order.
	for elem := s.order.Front(); elem != nil; {
		entry := elem.Value.(*Entry)
		if !s.expired(entry) {
			return
		}
		next := elem.Next()
		s.order.Remove(elem)
		delete(s.entries, entry.Key.String())
		elem = next
	}
}
