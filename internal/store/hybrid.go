package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"newsboard/internal/model"

	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"
)

const (
	queueKey   = "queue:prefetch"
	recentKey  = "list:recent"
	recentSize = 20

	// popTimeout bounds each BRPOP so PopJob notices cancellation.
	popTimeout = time.Second
)

var _ Store = (*HybridStore)(nil)

// HybridStore keeps hot cache entries in Redis and a durable copy in Badger
// so a restarted Redis does not cost a round of upstream calls.
type HybridStore struct {
	rdb *redis.Client
	db  *badger.DB
}

// NewHybridStore initializes databases.
// Pass badgerPath="" to run in "Redis-Only" mode (for CLI tools).
func NewHybridStore(redisAddr string, badgerPath string) (*HybridStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	var db *badger.DB
	if badgerPath != "" {
		opts := badger.DefaultOptions(badgerPath)
		opts.Logger = nil // Silence default logger
		var err error
		db, err = badger.Open(opts)
		if err != nil {
			rdb.Close()
			return nil, fmt.Errorf("failed to open badger: %w", err)
		}
	}

	return &HybridStore{rdb: rdb, db: db}, nil
}

// Close cleans up connections
func (s *HybridStore) Close() {
	if s.rdb != nil {
		s.rdb.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// RunGC periodically reclaims Badger value-log space until ctx is done.
// Expired cache entries only free disk once their log file is rewritten.
func (s *HybridStore) RunGC(ctx context.Context, interval time.Duration) {
	if s.db == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Rewrite files until there is nothing left worth reclaiming
			for s.db.RunValueLogGC(0.7) == nil {
			}
		}
	}
}

func (s *HybridStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Set writes value to Redis and, when configured, to Badger. Both copies
// expire after ttl.
func (s *HybridStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return err
	}

	if s.db == nil {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry([]byte(key), value)
		if ttl > 0 {
			e = e.WithTTL(ttl)
		}
		return txn.SetEntry(e)
	})
}

// Get reads from Redis first. On a miss it falls back to Badger and puts the
// value back into Redis for whatever lifetime it has left.
func (s *HybridStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		return val, nil
	}
	if err != redis.Nil {
		return nil, err
	}

	if s.db == nil {
		return nil, ErrNotFound
	}

	var expiresAt uint64
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		expiresAt = item.ExpiresAt()
		val, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var ttl time.Duration
	if expiresAt > 0 {
		ttl = time.Until(time.Unix(int64(expiresAt), 0))
		if ttl <= 0 {
			return nil, ErrNotFound
		}
	}
	if err := s.rdb.Set(ctx, key, val, ttl).Err(); err != nil {
		return nil, err
	}
	return val, nil
}

func (s *HybridStore) Delete(ctx context.Context, key string) error {
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		return err
	}
	if s.db == nil {
		return nil
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

// PushJob queues a prefetch job for the worker.
func (s *HybridStore) PushJob(ctx context.Context, job model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.rdb.LPush(ctx, queueKey, data).Err()
}

// PopJob waits for a job in the Redis queue (Blocking). It returns once a
// job arrives or ctx is done.
func (s *HybridStore) PopJob(ctx context.Context) (model.Job, error) {
	var result []string
	for {
		if err := ctx.Err(); err != nil {
			return model.Job{}, err
		}
		var err error
		result, err = s.rdb.BRPop(ctx, popTimeout, queueKey).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return model.Job{}, err
		}
		break
	}

	var job model.Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		return model.Job{}, fmt.Errorf("decoding job: %w", err)
	}
	return job, nil
}

// RecordSearch pushes f onto the recent searches list, dropping an older
// copy of the same filter.
func (s *HybridStore) RecordSearch(ctx context.Context, f model.Filter) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.LRem(ctx, recentKey, 0, data)
	pipe.LPush(ctx, recentKey, data)
	pipe.LTrim(ctx, recentKey, 0, recentSize-1)
	_, err = pipe.Exec(ctx)
	return err
}

// RecentSearches returns the newest searches first.
func (s *HybridStore) RecentSearches(ctx context.Context, limit int) ([]model.Filter, error) {
	vals, err := s.rdb.LRange(ctx, recentKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, err
	}

	var filters []model.Filter
	for _, v := range vals {
		var f model.Filter
		if err := json.Unmarshal([]byte(v), &f); err == nil {
			filters = append(filters, f)
		}
	}
	return filters, nil
}
