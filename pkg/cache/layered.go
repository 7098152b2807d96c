package cache

import (
	"context"
	"errors"
	"time"
)

// LayeredStore keeps a memory copy (L1) in front of a durable store (L2).
// L1 entries keep the L2 write time so freshness answers do not change.
type LayeredStore struct {
	l1 *MemoryStore
	l2 Store
}

// NewLayeredStore wraps l2 with an in-memory front.
func NewLayeredStore(l2 Store, opts ...MemoryOption) *LayeredStore {
	return &LayeredStore{l1: NewMemoryStore(opts...), l2: l2}
}

func (lc *LayeredStore) Get(ctx context.Context, key string) ([]byte, error) {
	if b, err := lc.l1.Get(ctx, key); err == nil {
		return b, nil
	}
	b, err := lc.l2.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if mt, err := lc.l2.ModTime(ctx, key); err == nil {
		_ = lc.l1.putAt(key, b, mt)
	}
	return b, nil
}

func (lc *LayeredStore) Put(ctx context.Context, key string, payload []byte) error {
	if err := lc.l2.Put(ctx, key, payload); err != nil {
		return err
	}
	mt, err := lc.l2.ModTime(ctx, key)
	if err != nil {
		mt = lc.l1.now()
	}
	return lc.l1.putAt(key, payload, mt)
}

func (lc *LayeredStore) ModTime(ctx context.Context, key string) (time.Time, error) {
	if mt, err := lc.l1.ModTime(ctx, key); err == nil {
		return mt, nil
	}
	return lc.l2.ModTime(ctx, key)
}

func (lc *LayeredStore) Fresh(ctx context.Context, key string, window time.Duration) (bool, error) {
	ok, err := lc.l1.Fresh(ctx, key, window)
	if err == nil && ok {
		return true, nil
	}
	if err != nil && !errors.Is(err, ErrCacheMiss) {
		return false, err
	}
	return lc.l2.Fresh(ctx, key, window)
}
