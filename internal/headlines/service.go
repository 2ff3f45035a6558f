package headlines

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"newsboard/internal/model"
	"newsboard/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// fetchTimeout bounds a shared upstream call once it no longer follows the
// context of the request that started it.
const fetchTimeout = 30 * time.Second

// Fetcher downloads headlines for a filter.
// This allows us to mock the upstream API in tests.
type Fetcher interface {
	Headlines(ctx context.Context, f model.Filter) (*model.Headlines, error)
}

// Cache is the part of the store the service needs.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Service returns cached headlines per filter and goes upstream on a miss.
type Service struct {
	fetcher Fetcher
	cache   Cache
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time

	group   singleflight.Group
	pending sync.WaitGroup
}

func NewService(fetcher Fetcher, cache Cache, ttl time.Duration, logger *zap.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Get returns the entry for f and whether it came from the cache. Cache
// failures are logged and treated as a miss.
func (s *Service) Get(ctx context.Context, f model.Filter) (*model.Entry, bool, error) {
	key := f.Key()
	logger := s.logger.With(zap.String("key", key), zap.Stringer("filter", f))

	if entry, ok := s.lookup(ctx, key, logger); ok {
		logger.Debug("Cache hit", zap.Time("fetched_at", entry.FetchedAt))
		return entry, true, nil
	}

	logger.Debug("Cache miss")
	entry, err := s.fetchOnce(ctx, f)
	if err != nil {
		return nil, false, err
	}
	return entry, false, nil
}

// Refresh fetches f from upstream regardless of what is cached.
func (s *Service) Refresh(ctx context.Context, f model.Filter) (*model.Entry, error) {
	return s.fetchOnce(ctx, f)
}

func (s *Service) lookup(ctx context.Context, key string, logger *zap.Logger) (*model.Entry, bool) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn("Cache read failed", zap.Error(err))
		}
		return nil, false
	}

	var entry model.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		logger.Warn("Discarding unreadable cache entry", zap.Error(err))
		if err := s.cache.Delete(ctx, key); err != nil {
			logger.Warn("Cache delete failed", zap.Error(err))
		}
		return nil, false
	}
	return &entry, true
}

// fetchOnce makes sure only one upstream call per key is in flight; callers
// arriving meanwhile share its result. The shared call is detached from any
// single caller, so one caller going away does not fail the others.
func (s *Service) fetchOnce(ctx context.Context, f model.Filter) (*model.Entry, error) {
	s.pending.Add(1)
	ch := s.group.DoChan(f.Key(), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return s.fetch(fetchCtx, f)
	})

	select {
	case res := <-ch:
		s.pending.Done()
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.Entry), nil
	case <-ctx.Done():
		go func() {
			<-ch
			s.pending.Done()
		}()
		return nil, ctx.Err()
	}
}

// Wait blocks until upstream calls that outlived their callers have finished.
// Call it after the server and worker have stopped, before closing the store.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) fetch(ctx context.Context, f model.Filter) (*model.Entry, error) {
	start := s.now()
	h, err := s.fetcher.Headlines(ctx, f)
	if err != nil {
		s.logger.Error("Fetching headlines failed", zap.Stringer("filter", f), zap.Error(err))
		return nil, err
	}

	entry := &model.Entry{
		Filter:    f,
		FetchedAt: s.now(),
		Headlines: *h,
	}
	s.logger.Info("Fetched headlines",
		zap.Stringer("filter", f),
		zap.Int("articles", len(h.Articles)),
		zap.Duration("took", entry.FetchedAt.Sub(start)))

	data, err := json.Marshal(entry)
	if err != nil {
		s.logger.Warn("Encoding cache entry failed", zap.Error(err))
		return entry, nil
	}
	if err := s.cache.Set(ctx, f.Key(), data, s.ttl); err != nil {
		s.logger.Warn("Cache write failed", zap.String("key", f.Key()), zap.Error(err))
	}
	return entry, nil
}
