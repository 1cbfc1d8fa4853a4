package data

import (
	"context"
	"iter"
	"slices"
	"sync"
	"time"

	"shorturl/internal/biz"
)

// Compile-time interface check
var _ biz.LinkStore = (*memoryLinkStore)(nil)

// memoryLinkStore keeps everything in process. Links are appended to the
// index in commit order, so walking it backwards is newest first.
type memoryLinkStore struct {
	mu     sync.RWMutex
	byURL  map[string]string
	byCode map[string]*biz.Link
	index  []*biz.Link
	now    func() time.Time
}

func newMemoryLinkStore() *memoryLinkStore {
	return &memoryLinkStore{
		byURL:  make(map[string]string),
		byCode: make(map[string]*biz.Link),
		now:    time.Now,
	}
}

func (s *memoryLinkStore) ShortcodeForURL(_ context.Context, url string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byURL[url], nil
}

func (s *memoryLinkStore) ShortcodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byCode[code]
	return ok, nil
}

func (s *memoryLinkStore) GetLink(_ context.Context, code string) (*biz.Link, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.byCode[code]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (s *memoryLinkStore) CreateLink(_ context.Context, url, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if bound, ok := s.byURL[url]; ok {
		if bound == code {
			return nil
		}
		return biz.ErrLinkConflict
	}
	if _, ok := s.byCode[code]; ok {
		return biz.ErrLinkConflict
	}

	// The index is in commit order; keep created_at monotonic along it even
	// if the wall clock steps back.
	created := s.now().UTC().Truncate(time.Millisecond)
	if n := len(s.index); n > 0 && created.Before(s.index[n-1].CreatedAt) {
		created = s.index[n-1].CreatedAt
	}
	l := &biz.Link{
		URL:       url,
		Shortcode: code,
		CreatedAt: created,
	}
	s.byURL[url] = code
	s.byCode[code] = l
	s.index = append(s.index, l)
	return nil
}

func (s *memoryLinkStore) IncrementHitCount(_ context.Context, code string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.byCode[code]
	if !ok {
		return 0, biz.ErrUnknownShortcode
	}
	l.HitCount++
	return l.HitCount, nil
}

// ListByCreationDesc snapshots the index on first pull.
func (s *memoryLinkStore) ListByCreationDesc(ctx context.Context) iter.Seq2[*biz.Link, error] {
	return func(yield func(*biz.Link, error) bool) {
		s.mu.RLock()
		snapshot := make([]biz.Link, len(s.index))
		for i, l := range s.index {
			snapshot[i] = *l
		}
		s.mu.RUnlock()

		for _, l := range slices.Backward(snapshot) {
			if err := ctx.Err(); err != nil {
				yield(nil, biz.StoreError(err))
				return
			}
			if !yield(&l, nil) {
				return
			}
		}
	}
}

func (s *memoryLinkStore) Ping(context.Context) error {
	return nil
}
