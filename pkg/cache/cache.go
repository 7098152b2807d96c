package cache

import (
	"context"
	"errors"
	"time"
)

var (
	ErrCacheMiss = errors.New("cache: key not found")
	ErrCorrupt   = errors.New("cache: corrupt payload")
)

// Store persists opaque payloads by key and remembers when each was written.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, payload []byte) error
	ModTime(ctx context.Context, key string) (time.Time, error)
	Fresh(ctx context.Context, key string, window time.Duration) (bool, error)
}

// fresh reports whether an entry written at written is still inside window.
func fresh(now, written time.Time, window time.Duration) bool {
	return now.Sub(written) < window
}

// freshFrom implements Store.Fresh on top of ModTime.
func freshFrom(ctx context.Context, s Store, now func() time.Time, key string, window time.Duration) (bool, error) {
	mt, err := s.ModTime(ctx, key)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return false, nil
		}
		return false, err
	}
	return fresh(now(), mt, window), nil
}
