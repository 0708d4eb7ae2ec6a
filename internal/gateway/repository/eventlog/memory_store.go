package eventlog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryStore struct {
	mu     sync.RWMutex
	byUser map[string][]Record
	max    int
}

// NewMemoryStore keeps at most max records per user; max <= 0 keeps all.
func NewMemoryStore(max int) *MemoryStore {
	return &MemoryStore{
		byUser: make(map[string][]Record),
		max:    max,
	}
}

func (s *MemoryStore) Append(_ context.Context, rec Record) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	rec, err := normalizeRecord(rec)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append(s.byUser[rec.UserID], rec)
	if s.max > 0 && len(list) > s.max {
		list = append([]Record(nil), list[len(list)-s.max:]...)
	}
	s.byUser[rec.UserID] = list
	return nil
}

func (s *MemoryStore) Recent(_ context.Context, userID string, limit int) ([]Record, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrUserRequired
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.byUser[userID]
	n := len(list)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]Record, 0, n)
	for i := len(list) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, list[i])
	}
	return out, nil
}

func normalizeRecord(rec Record) (Record, error) {
	rec.UserID = strings.TrimSpace(rec.UserID)
	if rec.UserID == "" {
		return Record{}, ErrUserRequired
	}
	if strings.TrimSpace(rec.ID) == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return rec, nil
}
