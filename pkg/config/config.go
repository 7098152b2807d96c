package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"MacroPull/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`

	Log struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`

	Server struct {
		Enabled         bool          `yaml:"enabled" default:"true"`
		Port            int           `yaml:"port" default:"9090" validate:"min=1,max=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`

	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`

	Cache struct {
		Backend     string        `yaml:"backend" default:"file" validate:"oneof=file redis memory"`
		Dir         string        `yaml:"dir" default:"data" validate:"required_if=Backend file"`
		Format      string        `yaml:"format" default:"csv" validate:"oneof=csv parquet"`
		MemoryFront bool          `yaml:"memory_front" default:"false"`
		MacroWindow time.Duration `yaml:"macro_window" default:"168h" validate:"gt=0"`
		AggWindow   time.Duration `yaml:"aggregate_window" default:"168h" validate:"gt=0"`
		Redis       struct {
			Host     string        `yaml:"host" default:"localhost"`
			Port     int           `yaml:"port" default:"6379"`
			Password string        `yaml:"password"`
			DB       int           `yaml:"db"`
			Prefix   string        `yaml:"prefix" default:"macropull"`
			PoolSize int           `yaml:"pool_size" default:"10" validate:"min=1"`
			MinIdle  int           `yaml:"min_idle" default:"2"`
			Timeout  time.Duration `yaml:"pool_timeout" default:"30s"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	HTTP struct {
		Timeout   time.Duration `yaml:"timeout" default:"30s"`
		Attempts  int           `yaml:"attempts" default:"2" validate:"min=1"`
		Backoff   time.Duration `yaml:"backoff" default:"500ms"`
		UserAgent string        `yaml:"user_agent" default:"Mozilla/5.0"`
	} `yaml:"http"`

	Sources struct {
		Order   []string `yaml:"order" default:"[\"tv\",\"exchange\",\"generic\"]" validate:"min=1,dive,oneof=tv exchange generic"`
		Breaker struct {
			MaxFailures  int           `yaml:"max_failures" default:"3" validate:"min=1"`
			ResetTimeout time.Duration `yaml:"reset_timeout" default:"2m"`
		} `yaml:"breaker"`
		TradingView struct {
			Enabled         bool          `yaml:"enabled" default:"true"`
			URL             string        `yaml:"url" default:"wss://data.tradingview.com/socket.io/websocket"`
			Origin          string        `yaml:"origin" default:"https://www.tradingview.com"`
			DefaultExchange string        `yaml:"default_exchange" default:"BINANCE"`
			Timeout         time.Duration `yaml:"timeout" default:"20s"`
			MaxBars         int           `yaml:"max_bars" default:"5000" validate:"min=1"`
		} `yaml:"tradingview"`
		Binance struct {
			Enabled  bool   `yaml:"enabled" default:"true"`
			BaseURL  string `yaml:"base_url" default:"https://api.binance.com"`
			PageSize int    `yaml:"page_size" default:"1000" validate:"min=1,max=1000"`
			MaxBars  int    `yaml:"max_bars" default:"20000" validate:"min=1"`
		} `yaml:"binance"`
		Yahoo struct {
			Enabled bool   `yaml:"enabled" default:"true"`
			BaseURL string `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
		} `yaml:"yahoo"`
	} `yaml:"sources"`

	Macro struct {
		FredAPIKey  string   `yaml:"fred_api_key"`
		FredBaseURL string   `yaml:"fred_base_url" default:"https://api.stlouisfed.org"`
		FredCSVURL  string   `yaml:"fred_csv_url" default:"https://fred.stlouisfed.org/graph/fredgraph.csv"`
		Series      []string `yaml:"series"`
	} `yaml:"macro"`

	Aggregate struct {
		Sentinel    string          `yaml:"sentinel" default:"Global M2"`
		CacheKey    string          `yaml:"cache_key" default:"global_m2_agg"`
		Delay       time.Duration   `yaml:"delay" default:"1s"`
		FXTolerance time.Duration   `yaml:"fx_tolerance" default:"168h" validate:"gt=0"`
		Sources     []string        `yaml:"sources" default:"[\"tradingview\",\"fred\"]" validate:"min=1,dive,oneof=tradingview fred"`
		Components  []ComponentSpec `yaml:"components" validate:"dive"`
		TV          struct {
			Components []ComponentSpec `yaml:"components" validate:"dive"`
			MacroBars  int             `yaml:"macro_bars" default:"500" validate:"min=1"`
			FXBars     int             `yaml:"fx_bars" default:"2000" validate:"min=1"`
		} `yaml:"tradingview"`
	} `yaml:"aggregate"`

	Scheduler struct {
		Enabled     bool    `yaml:"enabled" default:"true"`
		RunOnStart  bool    `yaml:"run_on_start" default:"true"`
		MacroCron   string  `yaml:"macro_cron" default:"0 0 6 * * *"`
		PublishCron string  `yaml:"publish_cron" default:"0 */15 * * * *"`
		Watches     []Watch `yaml:"watches" validate:"dive"`
	} `yaml:"scheduler"`

	Publisher struct {
		Type string `yaml:"type" default:"none" validate:"oneof=kafka none"`
	} `yaml:"publisher"`

	Archive struct {
		Type       string `yaml:"type" default:"none" validate:"oneof=clickhouse sqlite none"`
		SQLitePath string `yaml:"sqlite_path" default:"data/macropull.db"`
	} `yaml:"archive"`

	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"macropull.tables"`
		RequiredAcks int      `yaml:"required_acks" default:"-1"`
		Compression  string   `yaml:"compression" default:"gzip"`
		AutoCreate   bool     `yaml:"auto_create_topic"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"100ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"producer"`
	} `yaml:"kafka"`

	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"macropull"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
		MaxOpenConns     int           `yaml:"max_open_conns" default:"10" validate:"gt=0"`
		MaxIdleConns     int           `yaml:"max_idle_conns" default:"5" validate:"gte=0"`
		RowsTable        string        `yaml:"rows_table" default:"aligned_rows" validate:"required"`
		SeriesTable      string        `yaml:"series_table" default:"macro_series" validate:"required,nefield=RowsTable"`
		BatchSize        int           `yaml:"batch_size" default:"2000" validate:"gt=0"`
	} `yaml:"clickhouse"`
}

// ComponentSpec is one national series of the composite as written in YAML.
// The FX operation and the unit scale have no defaults and must be declared.
type ComponentSpec struct {
	Country   string  `yaml:"country" validate:"required"`
	SeriesID  string  `yaml:"series" validate:"required"`
	FXSeries  string  `yaml:"fx" validate:"required_unless=Operation none,excluded_if=Operation none"`
	Operation string  `yaml:"op" validate:"required,oneof=none multiply divide"`
	UnitScale float64 `yaml:"unit_scale" validate:"required,gt=0"`
}

// Watch is one instrument the scheduler keeps publishing.
type Watch struct {
	Instrument string `yaml:"instrument" validate:"required"`
	Timeframe  string `yaml:"timeframe" default:"1d" validate:"oneof=5m 15m 1h 4h 1d 1w"`
	Limit      int    `yaml:"limit" default:"500" validate:"min=1"`
	Source     string `yaml:"source" default:"auto" validate:"oneof=auto tv exchange generic"`
	Overlay    string `yaml:"overlay"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	return &c, nil
}

// Parse fills defaults, decodes YAML bytes over them and validates.
// Defaults go first so an explicit false or zero in YAML is kept.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("set defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	for i := range c.Scheduler.Watches {
		if err := defaults.Set(&c.Scheduler.Watches[i]); err != nil {
			return nil, fmt.Errorf("set watch defaults: %w", err)
		}
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("FRED_API_KEY"); v != "" {
		c.Macro.FredAPIKey = v
	}
	if v := getenv("DATA_DIR"); v != "" {
		c.Cache.Dir = v
	}
	if v := getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = strings.ToLower(v)
	}
	if v := getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = util.SplitList(v)
	}
	if v := getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := getenv("PUBLISHER"); v != "" {
		c.Publisher.Type = v
	}
	if v := getenv("ARCHIVE"); v != "" {
		c.Archive.Type = v
	}
	if v := getenv("OPS_PORT"); v != "" {
		c.Server.Port = util.ParseIntDefault(v, c.Server.Port)
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Publisher.Type == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when publisher.type is kafka")
	}
	return nil
}
