package store

import (
	"context"
	"errors"
	"time"

	"newsboard/internal/model"
)

var (
	ErrNotFound = errors.New("cache entry not found")
)

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	PushJob(ctx context.Context, job model.Job) error
	PopJob(ctx context.Context) (model.Job, error)

	RecordSearch(ctx context.Context, f model.Filter) error
	RecentSearches(ctx context.Context, limit int) ([]model.Filter, error)

	Ping(ctx context.Context) error
	Close()
}
