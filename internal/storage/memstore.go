package storage

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// MemStore is an in-memory ContentStore used by tests.
type MemStore struct {
	mu    sync.RWMutex
	blobs map[Key][]byte
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{blobs: make(map[Key][]byte)}
}

// Put implements ContentStore.
func (s *MemStore) Put(key Key, r io.Reader) (int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return 0, fmt.Errorf("read blob: %w", err)
	}
	s.mu.Lock()
	s.blobs[key] = data
	s.mu.Unlock()
	return int64(len(data)), nil
}

// Open implements ContentStore.
func (s *MemStore) Open(key Key) (io.ReadSeekCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return nopCloser{bytes.NewReader(data)}, nil
}

// Exists implements ContentStore.
func (s *MemStore) Exists(key Key) (bool, error) {
	s.mu.RLock()
	_, ok := s.blobs[key]
	s.mu.RUnlock()
	return ok, nil
}

// Remove implements ContentStore.
func (s *MemStore) Remove(key Key) error {
	s.mu.Lock()
	delete(s.blobs, key)
	s.mu.Unlock()
	return nil
}

type nopCloser struct {
	*bytes.Reader
}

func (nopCloser) Close() error { return nil }
