package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps records in process.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*Record)}
}

func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	if err := prepare(rec); err != nil {
		return err
	}
	cp := *rec
	cp.Document = append([]byte(nil), rec.Document...)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ID] = &cp
	return nil
}

func (s *MemoryStore) Get(_ context.Context, tenantID, id string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok || rec.TenantID != tenantID {
		return nil, ErrNotFound
	}
	cp := *rec
	cp.Document = append([]byte(nil), rec.Document...)
	return &cp, nil
}

func (s *MemoryStore) List(_ context.Context, tenantID string, limit int) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Record
	for _, rec := range s.records {
		if rec.TenantID != tenantID {
			continue
		}
		cp := *rec
		cp.Document = nil
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if n := listLimit(limit); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, tenantID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok || rec.TenantID != tenantID {
		return ErrNotFound
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
