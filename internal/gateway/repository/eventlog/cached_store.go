package eventlog

import (
	"context"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const DefaultCacheEntries = 1024

// CachedStore memoizes Recent per user and limit. Any Append for a user drops
// that user's entries. A Recent that overlaps an Append does not fill the
// cache, so a snapshot taken before the append is never served after it.
type CachedStore struct {
	origin Store
	recent *lru.Cache[cacheKey, []Record]

	mu  sync.Mutex
	gen uint64 // bumped by every Append
}

type cacheKey struct {
	userID string
	limit  int
}

func NewCachedStore(origin Store, entries int) (*CachedStore, error) {
	if entries <= 0 {
		entries = DefaultCacheEntries
	}
	cache, err := lru.New[cacheKey, []Record](entries)
	if err != nil {
		return nil, err
	}
	return &CachedStore{origin: origin, recent: cache}, nil
}

func (s *CachedStore) Append(ctx context.Context, rec Record) error {
	if err := s.origin.Append(ctx, rec); err != nil {
		return err
	}
	s.mu.Lock()
	s.gen++
	s.invalidate(strings.TrimSpace(rec.UserID))
	s.mu.Unlock()
	return nil
}

func (s *CachedStore) Recent(ctx context.Context, userID string, limit int) ([]Record, error) {
	key := cacheKey{userID: strings.TrimSpace(userID), limit: limit}
	if recs, ok := s.recent.Get(key); ok {
		return cloneRecords(recs), nil
	}
	s.mu.Lock()
	gen := s.gen
	s.mu.Unlock()

	recs, err := s.origin.Recent(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.gen == gen {
		s.recent.Add(key, cloneRecords(recs))
	}
	s.mu.Unlock()
	return recs, nil
}

func (s *CachedStore) invalidate(userID string) {
	for _, k := range s.recent.Keys() {
		if k.userID == userID {
			s.recent.Remove(k)
		}
	}
}

func cloneRecords(in []Record) []Record {
	if in == nil {
		return nil
	}
	return append([]Record(nil), in...)
}
