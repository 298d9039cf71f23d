// Package session keeps the last serial number each user submitted.
//
// The store is purely in-memory: entries expire after a TTL and everything
// is lost on restart. One entry per user, overwritten on every new message.
package session

import (
	"errors"
	"sync"
	"time"
)

// ErrNotFound is returned when no serial is stored for the user, or the
// stored one has expired.
var ErrNotFound = errors.New("session: serial not found")

type entry struct {
	serial    string
	expiresAt time.Time
}

// Store maps user IDs to their most recent serial.
type Store struct {
	mu      sync.RWMutex
	entries map[int64]entry
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

// NewStore creates a store whose entries expire after ttl and starts the
// cleanup loop.
func NewStore(ttl time.Duration) *Store {
	s := &Store{
		entries: make(map[int64]entry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// Put stores the serial for the user, replacing any previous one and
// refreshing its expiry.
func (s *Store) Put(userID int64, serial string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = entry{serial: serial, expiresAt: time.Now().Add(s.ttl)}
}

// Get returns the user's current serial, or ErrNotFound if absent or expired.
func (s *Store) Get(userID int64) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[userID]
	if !ok || time.Now().After(e.expiresAt) {
		return "", ErrNotFound
	}
	return e.serial, nil
}

// Close stops the cleanup loop.
func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
}

func (s *Store) cleanupLoop() {
	interval := s.ttl / 2
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.evictExpired()
		case <-s.stop:
			return
		}
	}
}

func (s *Store) evictExpired() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}
