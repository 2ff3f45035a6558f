package store

import (
	"context"
	"testing"
	"time"

	"newsboard/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/dgraph-io/badger/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestStore wires the store to miniredis and an in-memory Badger so
// nothing touches disk.
func newTestStore(t *testing.T) (*HybridStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	db, err := badger.Open(opts)
	require.NoError(t, err)

	st := &HybridStore{
		rdb: redis.NewClient(&redis.Options{Addr: mr.Addr()}),
		db:  db,
	}
	t.Cleanup(st.Close)
	return st, mr
}

func TestHybridStore_Set_And_Get(t *testing.T) {
	st, mr := newTestStore(t)
	ctx := context.Background()

	err := st.Set(ctx, "headlines:US::abc", []byte(`{"status":"ok"}`), time.Minute)
	require.NoError(t, err)

	val, err := st.Get(ctx, "headlines:US::abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok"}`, string(val))

	// Redis holds the hot copy with a TTL
	assert.True(t, mr.Exists("headlines:US::abc"))
	assert.Equal(t, time.Minute, mr.TTL("headlines:US::abc"))

	// Badger holds the durable copy
	err = st.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte("headlines:US::abc"))
		if err != nil {
			return err
		}
		assert.NotZero(t, item.ExpiresAt(), "Badger copy should expire too")
		return nil
	})
	assert.NoError(t, err)
}

func TestHybridStore_Get_Miss(t *testing.T) {
	st, _ := newTestStore(t)

	_, err := st.Get(context.Background(), "headlines:FR::abc")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHybridStore_Get_FallsBackToBadger(t *testing.T) {
	st, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", []byte("payload"), time.Hour))

	// Simulate a Redis restart
	mr.FlushAll()

	val, err := st.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(val))

	assert.True(t, mr.Exists("k"), "Redis should be re-warmed from Badger")
	assert.Greater(t, mr.TTL("k"), time.Duration(0))
}

func TestHybridStore_Delete(t *testing.T) {
	st, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, "k", []byte("payload"), time.Hour))
	require.NoError(t, st.Delete(ctx, "k"))

	assert.False(t, mr.Exists("k"))
	_, err := st.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHybridStore_RedisOnly(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	// Simulating 'newsboard warm'
	st, err := NewHybridStore(mr.Addr(), "")
	require.NoError(t, err)
	defer st.Close()

	ctx := context.Background()
	require.NoError(t, st.Set(ctx, "k", []byte("v"), time.Minute))

	mr.FastForward(2 * time.Minute)

	_, err = st.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound, "expired entry with no Badger copy is a miss")
}

func TestHybridStore_Queue(t *testing.T) {
	st, mr := newTestStore(t)
	ctx := context.Background()

	f, _ := model.NewFilter("", "sports", "uk")
	job := model.NewJob(f)
	require.NoError(t, st.PushJob(ctx, job))

	queue, _ := mr.List(queueKey)
	assert.Len(t, queue, 1, "Should have 1 item in queue")

	got, err := st.PopJob(ctx)
	require.NoError(t, err)
	assert.Equal(t, job.ID, got.ID)
	assert.Equal(t, f, got.Filter)
}

func TestHybridStore_PopJob_Cancelled(t *testing.T) {
	st, _ := newTestStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := st.PopJob(ctx)
	assert.Error(t, err)
}

func TestHybridStore_RecentSearches(t *testing.T) {
	st, _ := newTestStore(t)
	ctx := context.Background()

	us, _ := model.NewFilter("", "", "us")
	fr, _ := model.NewFilter("", "health", "fr")

	require.NoError(t, st.RecordSearch(ctx, us))
	require.NoError(t, st.RecordSearch(ctx, fr))
	require.NoError(t, st.RecordSearch(ctx, us))

	recent, err := st.RecentSearches(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, []model.Filter{us, fr}, recent, "newest first, no duplicates")

	for i := 0; i < recentSize+5; i++ {
		f := model.Filter{Search: string(rune('a' + i))}
		require.NoError(t, st.RecordSearch(ctx, f))
	}
	recent, err = st.RecentSearches(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, recent, recentSize)
}

func TestHybridStore_RunGC_StopsOnCancel(t *testing.T) {
	st, _ := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.RunGC(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunGC did not return after cancel")
	}
}
