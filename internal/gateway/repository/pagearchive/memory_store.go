package pagearchive

import (
	"context"
	"fmt"
	"sync"

	"tutorui/internal/genui"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string][]byte),
	}
}

func (s *MemoryStore) Put(_ context.Context, userID string, page genui.Page) (string, error) {
	if s == nil {
		return "", fmt.Errorf("store is nil")
	}
	raw, err := encodePage(page)
	if err != nil {
		return "", err
	}
	key := newKey(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = raw
	return key, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (genui.Page, error) {
	if s == nil {
		return genui.Page{}, fmt.Errorf("store is nil")
	}
	key, err := normalizeKey(key)
	if err != nil {
		return genui.Page{}, err
	}
	s.mu.RLock()
	raw, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return genui.Page{}, ErrNotFound
	}
	return decodePage(raw)
}
