package simulated

import (
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sort"
	"sync"
	"time"

	"resume-analyzer/internal/shared/storage/object"
	"resume-analyzer/internal/shared/util"
)

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

type entry struct {
	userID string
	meta   object.StoredObject
	data   []byte
}

// Store is an in-memory stand-in for a Drive-like file service. Every call
// waits Delay before answering to mimic a remote backend.
type Store struct {
	Delay time.Duration
	Now   func() time.Time

	mu      sync.RWMutex
	objects map[string]entry
}

func New(delay time.Duration) *Store {
	return &Store{
		Delay:   delay,
		Now:     func() time.Time { return time.Now().UTC() },
		objects: make(map[string]entry),
	}
}

func (s *Store) Provider() string { return "simulated" }

func (s *Store) Save(ctx context.Context, userID string, fileName string, r io.Reader) (object.StoredObject, error) {
	name, err := util.SanitizeFileName(fileName)
	if err != nil {
		return object.StoredObject{}, fmt.Errorf("sanitize file name: %w", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return object.StoredObject{}, fmt.Errorf("read body: %w", err)
	}
	if err := s.wait(ctx); err != nil {
		return object.StoredObject{}, err
	}

	now := s.Now()
	meta := object.StoredObject{
		Key:       fmt.Sprintf("drive_%d_%s", now.UnixMilli(), randomBase36(9)),
		Name:      name,
		SizeBytes: int64(len(data)),
		MimeType:  http.DetectContentType(data),
		CreatedAt: now,
	}

	s.mu.Lock()
	s.objects[meta.Key] = entry{userID: userID, meta: meta, data: data}
	s.mu.Unlock()
	return meta, nil
}

func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	e, ok := s.objects[storageKey]
	s.mu.RUnlock()
	if !ok {
		return nil, object.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(e.data)), nil
}

func (s *Store) Delete(ctx context.Context, storageKey string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.objects, storageKey)
	s.mu.Unlock()
	return nil
}

func (s *Store) URL(ctx context.Context, storageKey string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	_, ok := s.objects[storageKey]
	s.mu.RUnlock()
	if !ok {
		return "", nil
	}
	return "https://drive.google.com/file/d/" + storageKey + "/view", nil
}

func (s *Store) List(ctx context.Context, userID string) ([]object.StoredObject, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := []object.StoredObject{}
	for _, e := range s.objects {
		if e.userID == userID {
			out = append(out, e.meta)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(s.Delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func randomBase36(n int) string {
	out := make([]byte, n)
	limit := big.NewInt(int64(len(base36)))
	for i := range out {
		v, err := rand.Int(rand.Reader, limit)
		if err != nil {
			out[i] = base36[time.Now().UnixNano()%int64(len(base36))]
			continue
		}
		out[i] = base36[v.Int64()]
	}
	return string(out)
}

var _ object.ObjectStore = (*Store)(nil)
