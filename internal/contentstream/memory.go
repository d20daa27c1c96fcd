package contentstream

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

type memoryStream struct {
	info    Info
	records []Record
}

// MemoryStore is an in-process Store. Forks share the source's record prefix;
// the capacity of a shared slice is clipped so either side copies on append.
type MemoryStore struct {
	mu      sync.RWMutex
	streams map[ID]*memoryStream
	now     func() time.Time
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{streams: make(map[ID]*memoryStream), now: time.Now}
}

func (s *MemoryStore) Create(_ context.Context, id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.streams[id]; ok {
		return fmt.Errorf("%w: %s", ErrStreamExists, id)
	}
	s.streams[id] = &memoryStream{info: Info{ID: id, Status: StatusOpen, CreatedAt: s.now()}}
	return nil
}

func (s *MemoryStore) Fork(_ context.Context, source, target ID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src, ok := s.streams[source]
	if !ok {
		return 0, notFound(source)
	}
	if _, ok := s.streams[target]; ok {
		return 0, fmt.Errorf("%w: %s", ErrStreamExists, target)
	}
	n := len(src.records)
	s.streams[target] = &memoryStream{
		info: Info{
			ID:            target,
			Version:       src.info.Version,
			Status:        StatusOpen,
			CreatedAt:     s.now(),
			SourceID:      source,
			SourceVersion: src.info.Version,
		},
		records: src.records[:n:n],
	}
	// the source must not grow into the shared backing array either
	src.records = src.records[:n:n]
	return src.info.Version, nil
}

func (s *MemoryStore) Append(_ context.Context, id ID, expectedVersion int64, events []Event) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[id]
	if !ok {
		return 0, notFound(id)
	}
	if st.info.Status == StatusClosed {
		return 0, fmt.Errorf("%w: %s", ErrStreamClosed, id)
	}
	if expectedVersion != AnyVersion && expectedVersion != st.info.Version {
		return 0, &ConcurrencyConflictError{StreamID: id, Expected: expectedVersion, Actual: st.info.Version}
	}
	now := s.now()
	for _, e := range events {
		st.info.Version++
		st.records = append(st.records, Record{
			Event:          e,
			StreamID:       id,
			SequenceNumber: st.info.Version,
			RecordedAt:     now,
		})
	}
	return st.info.Version, nil
}

func (s *MemoryStore) Load(_ context.Context, id ID, after int64) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.streams[id]
	if !ok {
		return nil, notFound(id)
	}
	if after < 0 {
		after = 0
	}
	if after >= int64(len(st.records)) {
		return nil, nil
	}
	out := make([]Record, 0, int64(len(st.records))-after)
	for _, r := range st.records[after:] {
		r.StreamID = id
		out = append(out, r)
	}
	return out, nil
}

func (s *MemoryStore) Close(_ context.Context, id ID) error {
	return s.setStatus(id, StatusClosed)
}

func (s *MemoryStore) Reopen(_ context.Context, id ID) error {
	return s.setStatus(id, StatusOpen)
}

func (s *MemoryStore) setStatus(id ID, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.streams[id]
	if !ok {
		return notFound(id)
	}
	st.info.Status = status
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.streams[id]; !ok {
		return notFound(id)
	}
	delete(s.streams, id)
	return nil
}

func (s *MemoryStore) Info(_ context.Context, id ID) (Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.streams[id]
	if !ok {
		return Info{}, notFound(id)
	}
	return st.info, nil
}

func (s *MemoryStore) Streams(_ context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Info, 0, len(s.streams))
	for _, st := range s.streams {
		out = append(out, st.info)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
