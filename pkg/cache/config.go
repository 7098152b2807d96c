package cache

import "time"

// FileOption configures FileStore.
type FileOption func(*FileConfig)

// FileConfig holds file store configuration.
type FileConfig struct {
	Dir       string
	Extension string
	DirPerm   uint32
	Now       func() time.Time
}

// WithDir sets the cache directory.
func WithDir(dir string) FileOption {
	return func(c *FileConfig) {
		c.Dir = dir
	}
}

// WithExtension sets the file extension (".csv", ".parquet").
func WithExtension(ext string) FileOption {
	return func(c *FileConfig) {
		c.Extension = ext
	}
}

// WithFileClock overrides the wall clock used for freshness checks.
func WithFileClock(now func() time.Time) FileOption {
	return func(c *FileConfig) {
		c.Now = now
	}
}

// RedisOption configures Redis store.
type RedisOption func(*RedisConfig)

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host         string
	Port         int
	Password     string
	DB           int
	PoolSize     int
	PoolTimeout  time.Duration
	MinIdleConns int
	Prefix       string
	Now          func() time.Time
}

// WithRedisHost sets Redis host.
func WithRedisHost(host string) RedisOption {
	return func(c *RedisConfig) {
		c.Host = host
	}
}

// WithRedisPort sets Redis port.
func WithRedisPort(port int) RedisOption {
	return func(c *RedisConfig) {
		c.Port = port
	}
}

// WithRedisPassword sets Redis password.
func WithRedisPassword(password string) RedisOption {
	return func(c *RedisConfig) {
		c.Password = password
	}
}

// WithRedisDB sets Redis database number.
func WithRedisDB(db int) RedisOption {
	return func(c *RedisConfig) {
		c.DB = db
	}
}

// WithRedisPool sets connection pool settings.
func WithRedisPool(poolSize, minIdleConns int, timeout time.Duration) RedisOption {
	return func(c *RedisConfig) {
		c.PoolSize = poolSize
		c.MinIdleConns = minIdleConns
		c.PoolTimeout = timeout
	}
}

// WithRedisPrefix sets key prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(c *RedisConfig) {
		c.Prefix = prefix
	}
}

// MemoryOption configures MemoryStore.
type MemoryOption func(*MemoryConfig)

// MemoryConfig holds memory store configuration.
type MemoryConfig struct {
	Now func() time.Time
}

// WithMemoryClock overrides the wall clock used for write stamps and freshness.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *MemoryConfig) {
		c.Now = now
	}
}
