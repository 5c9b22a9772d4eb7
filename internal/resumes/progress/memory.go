package progress

import (
	"context"
	"sync"
	"time"
)

const memorySweepInterval = time.Minute

type memoryEntry struct {
	progress  Progress
	expiresAt time.Time
}

// MemoryStore keeps snapshots in process memory. Entries expire after TTL
// like the Redis keys do; expired entries are swept on Update.
type MemoryStore struct {
	TTL time.Duration
	Now func() time.Time

	mu        sync.Mutex
	data      map[string]memoryEntry
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		TTL:  defaultTTL,
		Now:  func() time.Time { return time.Now().UTC() },
		data: make(map[string]memoryEntry),
	}
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Progress, error) {
	if err := ctx.Err(); err != nil {
		return Progress{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.data[id]
	if !ok {
		return Progress{}, ErrNotFound
	}
	if s.expired(entry, s.now()) {
		delete(s.data, id)
		return Progress{}, ErrNotFound
	}
	return entry.progress, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, fn UpdateFunc) (Progress, error) {
	if err := ctx.Err(); err != nil {
		return Progress{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	entry, ok := s.data[id]
	if ok && s.expired(entry, now) {
		delete(s.data, id)
		entry, ok = memoryEntry{}, false
	}
	next, write := fn(entry.progress, ok)
	if write {
		s.data[id] = memoryEntry{progress: next, expiresAt: s.expiry(now)}
	}
	return next, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.data, id)
	s.mu.Unlock()
	return nil
}

// Len reports how many entries are held, expired ones included until swept.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

func (s *MemoryStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < memorySweepInterval {
		return
	}
	s.lastSweep = now
	for id, entry := range s.data {
		if s.expired(entry, now) {
			delete(s.data, id)
		}
	}
}

func (s *MemoryStore) expiry(now time.Time) time.Time {
	if s.TTL <= 0 {
		return time.Time{}
	}
	return now.Add(s.TTL)
}

func (s *MemoryStore) expired(entry memoryEntry, now time.Time) bool {
	return !entry.expiresAt.IsZero() && !now.Before(entry.expiresAt)
}

func (s *MemoryStore) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}
