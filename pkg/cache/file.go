package cache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileStore keeps one file per key in a directory. Writes go to a temp file
// in the same directory and are renamed into place, so readers never see a
// partial payload.
type FileStore struct {
	dir string
	ext string
	now func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewFileStore creates the directory if needed.
func NewFileStore(opts ...FileOption) (*FileStore, error) {
	cfg := &FileConfig{
		Dir:       "data",
		Extension: ".csv",
		DirPerm:   0o755,
		Now:       time.Now,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.Dir == "" {
		return nil, fmt.Errorf("cache dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, fs.FileMode(cfg.DirPerm)); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{
		dir:   cfg.Dir,
		ext:   cfg.Extension,
		now:   cfg.Now,
		locks: make(map[string]*sync.Mutex),
	}, nil
}

// Path returns the file backing key.
func (s *FileStore) Path(key string) string {
	return filepath.Join(s.dir, FileName(key)+s.ext)
}

func (s *FileStore) Get(_ context.Context, key string) ([]byte, error) {
	b, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	return b, nil
}

func (s *FileStore) Put(_ context.Context, key string, payload []byte) error {
	lock := s.keyLock(key)
	lock.Lock()
	defer lock.Unlock()

	target := s.Path(key)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(target)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		cleanup()
		return fmt.Errorf("rename %s: %w", key, err)
	}
	return nil
}

func (s *FileStore) ModTime(_ context.Context, key string) (time.Time, error) {
	fi, err := os.Stat(s.Path(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, ErrCacheMiss
		}
		return time.Time{}, fmt.Errorf("stat %s: %w", key, err)
	}
	return fi.ModTime(), nil
}

func (s *FileStore) Fresh(ctx context.Context, key string, window time.Duration) (bool, error) {
	return freshFrom(ctx, s, s.now, key, window)
}

func (s *FileStore) keyLock(key string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	return l
}
