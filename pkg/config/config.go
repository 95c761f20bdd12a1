package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"TradePull/pkg/util"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Bybit struct {
		RESTURL      string        `yaml:"rest_url"`
		WebSocketURL string        `yaml:"websocket_url"`
		Symbol       string        `yaml:"symbol"`
		Interval     string        `yaml:"interval"`
		RecvWindow   int           `yaml:"recv_window"`
		Timeout      time.Duration `yaml:"timeout"`
		Stream       struct {
			PingInterval         time.Duration `yaml:"ping_interval"`
			ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
			MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
		} `yaml:"stream"`
	} `yaml:"bybit"`
	Backfill struct {
		TargetDepth int           `yaml:"target_depth"`
		BatchLimit  int           `yaml:"batch_limit"`
		MaxRetries  int           `yaml:"max_retries"`
		RetryDelay  time.Duration `yaml:"retry_delay"`
		BatchRate   float64       `yaml:"batch_rate"` // batches per second
	} `yaml:"backfill"`
	Store struct {
		Backend   string `yaml:"backend"` // redis or memory
		MaxSeries int    `yaml:"max_series_length"`
		Redis     struct {
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port"`
			Password     string        `yaml:"password"`
			DB           int           `yaml:"db"`
			PoolSize     int           `yaml:"pool_size"`
			MinIdleConns int           `yaml:"min_idle_conns"`
			PoolTimeout  time.Duration `yaml:"pool_timeout"`
		} `yaml:"redis"`
	} `yaml:"store"`
	Scheduler struct {
		Interval     time.Duration `yaml:"interval"`
		CandleWindow int           `yaml:"candle_window"`
		RunOnStart   bool          `yaml:"run_on_start"`
	} `yaml:"scheduler"`
	Decision struct {
		ServiceURL string        `yaml:"service_url"`
		Timeout    time.Duration `yaml:"timeout"`
	} `yaml:"decision"`
	Users struct {
		DirectoryURL string        `yaml:"directory_url"`
		Timeout      time.Duration `yaml:"timeout"`
	} `yaml:"users"`
	Ledger struct {
		Backend    string `yaml:"backend"` // clickhouse or kafka
		ClickHouse struct {
			Host         string        `yaml:"host"`
			Port         int           `yaml:"port"`
			Database     string        `yaml:"database"`
			Table        string        `yaml:"table"`
			User         string        `yaml:"user"`
			Password     string        `yaml:"password"`
			DialTimeout  time.Duration `yaml:"dial_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			AsyncInsert  bool          `yaml:"async_insert"`
		} `yaml:"clickhouse"`
		Kafka struct {
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic"`
			RequiredAcks int           `yaml:"required_acks"`
			Compression  string        `yaml:"compression"`
			MaxAttempts  int           `yaml:"max_attempts"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			Consumer     struct {
				Enabled    bool          `yaml:"enabled"`
				GroupID    string        `yaml:"group_id"`
				Workers    int           `yaml:"workers"`
				RetryMax   int           `yaml:"retry_max"`
				BackoffMin time.Duration `yaml:"backoff_min"`
				BackoffMax time.Duration `yaml:"backoff_max"`
				DLQTopic   string        `yaml:"dlq_topic"`
			} `yaml:"consumer"`
		} `yaml:"kafka"`
	} `yaml:"ledger"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"log"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("BYBIT_API_URL"); v != "" {
		c.Bybit.RESTURL = v
	}
	if v := os.Getenv("BYBIT_WS_URL"); v != "" {
		c.Bybit.WebSocketURL = v
	}
	if v := os.Getenv("SYMBOL"); v != "" {
		c.Bybit.Symbol = v
	}
	if v := os.Getenv("INTERVAL"); v != "" {
		c.Bybit.Interval = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Store.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			c.Store.Redis.Port = p
		}
	}
	if v := os.Getenv("DECISION_SERVICE_URL"); v != "" {
		c.Decision.ServiceURL = v
	}
	if v := os.Getenv("USER_DIRECTORY_URL"); v != "" {
		c.Users.DirectoryURL = v
	}
	if v := os.Getenv("LEDGER_BACKEND"); v != "" {
		c.Ledger.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Ledger.Kafka.Brokers = strings.Split(v, ",")
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Bybit.Symbol == "" {
		c.Bybit.Symbol = "BTCUSDT"
	}
	if c.Bybit.Interval == "" {
		c.Bybit.Interval = "1"
	}
	if c.Bybit.RecvWindow == 0 {
		c.Bybit.RecvWindow = 5000
	}
	if c.Bybit.Timeout == 0 {
		c.Bybit.Timeout = 30 * time.Second
	}
	if c.Bybit.Stream.PingInterval == 0 {
		c.Bybit.Stream.PingInterval = 20 * time.Second
	}
	if c.Bybit.Stream.ReconnectBaseDelay == 0 {
		c.Bybit.Stream.ReconnectBaseDelay = 5 * time.Second
	}
	if c.Bybit.Stream.MaxReconnectAttempts == 0 {
		c.Bybit.Stream.MaxReconnectAttempts = 10
	}
	if c.Backfill.TargetDepth == 0 {
		c.Backfill.TargetDepth = 5000
	}
	if c.Backfill.BatchLimit == 0 {
		c.Backfill.BatchLimit = 1000
	}
	if c.Backfill.MaxRetries == 0 {
		c.Backfill.MaxRetries = 3
	}
	if c.Backfill.RetryDelay == 0 {
		c.Backfill.RetryDelay = time.Second
	}
	if c.Backfill.BatchRate == 0 {
		c.Backfill.BatchRate = 10
	}
	if c.Store.MaxSeries == 0 {
		c.Store.MaxSeries = 5000
	}
	if c.Scheduler.Interval == 0 {
		c.Scheduler.Interval = 5 * time.Minute
	}
	if c.Scheduler.CandleWindow == 0 {
		c.Scheduler.CandleWindow = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stdout"
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Bybit.RESTURL == "" {
		return fmt.Errorf("bybit.rest_url is required")
	}
	if c.Bybit.WebSocketURL == "" {
		return fmt.Errorf("bybit.websocket_url is required")
	}
	if _, err := util.IntervalDuration(c.Bybit.Interval); err != nil {
		return fmt.Errorf("bybit.interval: %w", err)
	}
	if c.Store.Backend != "redis" && c.Store.Backend != "memory" {
		return fmt.Errorf("store.backend must be 'redis' or 'memory', got '%s'", c.Store.Backend)
	}
	if c.Ledger.Backend != "clickhouse" && c.Ledger.Backend != "kafka" {
		return fmt.Errorf("ledger.backend must be 'clickhouse' or 'kafka', got '%s'", c.Ledger.Backend)
	}
	if c.Backfill.BatchLimit > 1000 {
		return fmt.Errorf("backfill.batch_limit cannot exceed 1000")
	}
	return nil
}

// Production reports whether the app runs against the live exchange.
func (c *Config) Production() bool {
	return c.Environment == "production"
}
