package cache

import (
	"context"
	"sync"
	"time"

	"github.com/fincore/backend/internal/domain/shared"
)

// entry represents a stored fingerprint with expiration
type entry struct {
	expiresAt time.Time
}

// InMemoryFingerprintStore implements FingerprintStore using an in-memory map
// This is suitable for single-instance deployments and testing
type InMemoryFingerprintStore struct {
	mu        sync.RWMutex
	entries   map[string]entry
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryFingerprintStore creates a new in-memory fingerprint store
// It starts a background goroutine to clean up expired entries
func NewInMemoryFingerprintStore() *InMemoryFingerprintStore {
	store := &InMemoryFingerprintStore{
		entries:  make(map[string]entry),
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop()

	return store
}

// MarkSeen records a fingerprint with a TTL
// Returns true if the fingerprint was newly recorded, false if it was
// already present, meaning the record is a duplicate
func (s *InMemoryFingerprintStore) MarkSeen(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, exists := s.entries[fingerprint]; exists {
		if time.Now().Before(e.expiresAt) {
			return false, nil
		}
		// Entry exists but expired, will be overwritten
	}

	s.entries[fingerprint] = entry{
		expiresAt: time.Now().Add(ttl),
	}

	return true, nil
}

// IsSeen checks if a fingerprint has already been recorded
func (s *InMemoryFingerprintStore) IsSeen(ctx context.Context, fingerprint string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.entries[fingerprint]
	if !exists {
		return false, nil
	}

	if time.Now().After(e.expiresAt) {
		return false, nil // Expired, treat as unseen
	}

	return true, nil
}

// Close stops the cleanup goroutine and releases resources
// Safe to call multiple times
func (s *InMemoryFingerprintStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// cleanupLoop periodically removes expired entries
func (s *InMemoryFingerprintStore) cleanupLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// cleanup removes expired entries from the store
func (s *InMemoryFingerprintStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for fingerprint, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, fingerprint)
		}
	}
}

// Size returns the number of entries in the store (for testing/monitoring)
func (s *InMemoryFingerprintStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Ensure InMemoryFingerprintStore implements FingerprintStore
var _ shared.FingerprintStore = (*InMemoryFingerprintStore)(nil)
