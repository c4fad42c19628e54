package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App        AppConfig        `yaml:"app"`
	Logging    LoggingConfig    `yaml:"logging"`
	Protocol   ProtocolConfig   `yaml:"protocol"`
	Security   SecurityConfig   `yaml:"security"`
	RateLimit  RateLimitConfig  `yaml:"rate_limit"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Dedupe     DedupeConfig     `yaml:"dedupe"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Stores     StoresConfig     `yaml:"stores"`
	PubSub     PubSubConfig     `yaml:"pubsub"`
	API        APIConfig        `yaml:"api"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

type AppConfig struct {
	InstanceID      string        `yaml:"instance_id"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

// Protocol singleton id and bonding curve constants
type ProtocolConfig struct {
	ID           string `yaml:"id"`
	CurveScale   string `yaml:"curve_scale"`   // integer string, 1 ether in wei by default
	CurveDivisor string `yaml:"curve_divisor"` // integer string, 16000 by default
}

type JWTConfig struct {
	Enabled       bool          `yaml:"enabled"`
	PublicKeyPath string        `yaml:"public_key_path"`
	Audience      string        `yaml:"audience"`
	Issuer        string        `yaml:"issuer"`
	Leeway        time.Duration `yaml:"leeway"`
}

type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

type RateBucketConfig struct {
	RefillPerSec int           `yaml:"refill_per_sec"`
	Burst        int           `yaml:"burst"`
	TTL          time.Duration `yaml:"ttl"`
}

type RateLimitConfig struct {
	Enabled bool             `yaml:"enabled"`
	ByJWT   RateBucketConfig `yaml:"by_jwt"`
	ByIP    RateBucketConfig `yaml:"by_ip"`
}

type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CAFile   string `yaml:"ca_file"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

type IngestConfig struct {
	Brokers        []string      `yaml:"brokers"`
	Topic          string        `yaml:"topic"`
	GroupID        string        `yaml:"group_id"`
	Start          string        `yaml:"start"` // earliest|latest
	MinBytes       int           `yaml:"min_bytes"`
	MaxBytes       int           `yaml:"max_bytes"`
	MaxWait        time.Duration `yaml:"max_wait"`
	SessionTimeout time.Duration `yaml:"session_timeout"`
	TLS            TLSConfig     `yaml:"tls"`
}

type BloomConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Key      string  `yaml:"key"`
	Capacity int64   `yaml:"capacity"`
	ErrRate  float64 `yaml:"err_rate"`
}

type DedupeConfig struct {
	Enabled bool          `yaml:"enabled"`
	Backend string        `yaml:"backend"` // redis|memory
	Prefix  string        `yaml:"prefix"`
	TTL     time.Duration `yaml:"ttl"`
	Janitor time.Duration `yaml:"janitor"` // memory backend only
	Bloom   BloomConfig   `yaml:"bloom"`
}

type CheckpointConfig struct {
	Key string `yaml:"key"`
}

type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Username     string        `yaml:"username"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	Prefix       string        `yaml:"prefix"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type PostgresConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

type ClickHouseWriterConfig struct {
	BatchMaxRows     int           `yaml:"batch_max_rows"`
	BatchMaxInterval time.Duration `yaml:"batch_max_interval"`
	MaxRetries       int           `yaml:"max_retries"`
	RetryBackoff     time.Duration `yaml:"retry_backoff"`
	InsertTimeout    time.Duration `yaml:"insert_timeout"` // per batch, retries included
}

type ClickHouseConfig struct {
	Enabled bool                   `yaml:"enabled"`
	DSN     string                 `yaml:"dsn"`
	Writer  ClickHouseWriterConfig `yaml:"writer"`
}

const (
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type StoresConfig struct {
	Backend    string           `yaml:"backend"` // entity store: redis|postgres|memory
	Redis      RedisConfig      `yaml:"redis"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

type NATSConfig struct {
	Enabled         bool   `yaml:"enabled"`
	URL             string `yaml:"url"`
	BroadcastPrefix string `yaml:"broadcast_prefix"`
}

type PubSubConfig struct {
	NATS NATSConfig `yaml:"nats"`
}

type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
	Methods []string `yaml:"methods"`
	Headers []string `yaml:"headers"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	GzipLevel    int           `yaml:"gzip_level"`
	CORS         CORSConfig    `yaml:"cors"`
}

type APIConfig struct {
	HTTP HTTPConfig `yaml:"http"`
}

type PyroscopeConfig struct {
	Enabled    bool              `yaml:"enabled"`
	AppName    string            `yaml:"app_name"`
	ServerAddr string            `yaml:"server_addr"`
	AuthToken  string            `yaml:"auth_token"`
	Tags       map[string]string `yaml:"tags"`
}

type MetricsConfig struct {
	Pyroscope PyroscopeConfig `yaml:"pyroscope"`
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err = yaml.Unmarshal(b, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.App.ShutdownTimeout <= 0 {
		c.App.ShutdownTimeout = 10 * time.Second
	}
	if c.Protocol.CurveScale == "" {
		c.Protocol.CurveScale = "1000000000000000000"
	}
	if c.Protocol.CurveDivisor == "" {
		c.Protocol.CurveDivisor = "16000"
	}
	if c.Stores.Backend == "" {
		c.Stores.Backend = BackendRedis
	}
	if c.Stores.Redis.Prefix == "" {
		c.Stores.Redis.Prefix = "passindexer:"
	}
	if c.Dedupe.Backend == "" {
		c.Dedupe.Backend = BackendRedis
	}
	if c.Checkpoint.Key == "" {
		c.Checkpoint.Key = "passindexer:checkpoint"
	}
	if c.Ingest.Start == "" {
		c.Ingest.Start = "earliest"
	}
	if c.API.HTTP.Addr == "" {
		c.API.HTTP.Addr = ":8080"
	}
}

func (c *Config) Validate() error {
	if c.Protocol.ID == "" {
		return errors.New("protocol.id is required")
	}

	switch c.Stores.Backend {
	case BackendRedis:
		if c.Stores.Redis.Addr == "" {
			return errors.New("stores.redis.addr is required for the redis backend")
		}
	case BackendPostgres:
		if c.Stores.Postgres.DSN == "" {
			return errors.New("stores.postgres.dsn is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown stores.backend %q", c.Stores.Backend)
	}

	if len(c.Ingest.Brokers) == 0 || c.Ingest.Topic == "" {
		return errors.New("ingest.brokers and ingest.topic are required")
	}
	if c.Security.JWT.Enabled && c.Security.JWT.PublicKeyPath == "" {
		return errors.New("security.jwt.public_key_path is required when jwt is enabled")
	}

	return nil
}
