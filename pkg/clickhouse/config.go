package clickhouse

import (
	"fmt"
	"regexp"
	"time"
)

// Tables names the archive tables inside the client's database.
type Tables struct {
	Rows   string
	Series string
}

// DefaultTables are the table names used when none are configured.
var DefaultTables = Tables{Rows: "aligned_rows", Series: "macro_series"}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate rejects names that cannot be interpolated into DDL unquoted.
func (t Tables) Validate() error {
	for _, name := range []string{t.Rows, t.Series} {
		if !identRe.MatchString(name) {
			return fmt.Errorf("invalid table name %q", name)
		}
	}
	if t.Rows == t.Series {
		return fmt.Errorf("rows and series tables must differ, both are %q", t.Rows)
	}
	return nil
}

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// ClientConfig is one archive connection: where it points, how the pool and
// inserts behave, and which tables the archive owns.
type ClientConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	UseHTTP  bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxExecTime  time.Duration

	AsyncInsert  bool
	WaitForAsync bool

	Tables    Tables
	BatchSize int
}

func defaultClientConfig() ClientConfig {
	return ClientConfig{
		Port:            9000,
		Database:        "default",
		User:            "default",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		Tables:          DefaultTables,
		BatchSize:       2000,
	}
}

func (c ClientConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	return c.Tables.Validate()
}

// WithEndpoint points the client at host:port/database.
func WithEndpoint(host string, port int, database string) ClientOption {
	return func(c *ClientConfig) {
		c.Host = host
		c.Port = port
		if database != "" {
			c.Database = database
		}
	}
}

func WithCredentials(user, password string) ClientOption {
	return func(c *ClientConfig) {
		c.User = user
		c.Password = password
	}
}

// WithPool sizes the connection pool. Zero values keep the defaults.
func WithPool(maxOpen, maxIdle int, lifetime time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if maxOpen > 0 {
			c.MaxOpenConns = maxOpen
		}
		if maxIdle > 0 {
			c.MaxIdleConns = maxIdle
		}
		if lifetime > 0 {
			c.ConnMaxLifetime = lifetime
		}
	}
}

// WithTimeouts sets the dial, read and write timeouts and the server-side
// max_execution_time.
func WithTimeouts(dial, read, write, maxExec time.Duration) ClientOption {
	return func(c *ClientConfig) {
		c.DialTimeout = dial
		c.ReadTimeout = read
		c.WriteTimeout = write
		c.MaxExecTime = maxExec
	}
}

// WithHTTP switches to the HTTP interface.
func WithHTTP(useHTTP bool) ClientOption {
	return func(c *ClientConfig) { c.UseHTTP = useHTTP }
}

// WithAsyncInsert enables server-side insert buffering. wait makes the
// insert return only after the buffer is flushed.
func WithAsyncInsert(enabled, wait bool) ClientOption {
	return func(c *ClientConfig) {
		c.AsyncInsert = enabled
		c.WaitForAsync = wait
	}
}

// WithTables overrides the archive table names. Empty names keep the default.
func WithTables(rows, series string) ClientOption {
	return func(c *ClientConfig) {
		if rows != "" {
			c.Tables.Rows = rows
		}
		if series != "" {
			c.Tables.Series = series
		}
	}
}

// WithBatchSize caps the rows sent per INSERT statement.
func WithBatchSize(n int) ClientOption {
	return func(c *ClientConfig) { c.BatchSize = n }
}
