package config

import (
	"fmt"
	"os"
	"strings"
	"time"

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
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Feed struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		APIKey         string        `yaml:"api_key"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"feed"`
	History struct {
		BaseURL  string        `yaml:"base_url"`
		Timeout  time.Duration `yaml:"timeout"`
		Period   string        `yaml:"period"`
		Interval string        `yaml:"interval"`
		CacheTTL time.Duration `yaml:"cache_ttl"`
	} `yaml:"history"`
	Forecast struct {
		ServiceURL      string        `yaml:"service_url"`
		Timeout         time.Duration `yaml:"timeout"`
		HorizonDays     int           `yaml:"horizon_days"`
		RefreshSchedule string        `yaml:"refresh_schedule"` // cron spec, empty disables refresh
		PredictRPS      float64       `yaml:"predict_rps"`      // per-symbol throttle for one-shot predicts
	} `yaml:"forecast"`
	Session struct {
		BufferSize  int `yaml:"buffer_size"`
		MailboxSize int `yaml:"mailbox_size"`
	} `yaml:"session"`
	Directory struct {
		Instruments []struct {
			Symbol string `yaml:"symbol"`
			Name   string `yaml:"name"`
		} `yaml:"instruments"`
	} `yaml:"directory"`
	Recorder struct {
		Backend      string        `yaml:"backend"` // kafka, clickhouse, or none
		MaxRPS       int           `yaml:"max_rps"`
		BufferSize   int           `yaml:"buffer_size"`
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"recorder"`
	Kafka struct {
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		LogTopic     string   `yaml:"log_topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
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

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c.Defaulted(), nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FEED_URL"); v != "" {
		c.Feed.WebSocketURL = v
	}
	if v := os.Getenv("FEED_API_KEY"); v != "" {
		c.Feed.APIKey = v
	}
	if v := os.Getenv("HISTORY_URL"); v != "" {
		c.History.BaseURL = v
	}
	if v := os.Getenv("FORECAST_URL"); v != "" {
		c.Forecast.ServiceURL = v
	}
	if v := os.Getenv("RECORDER_BACKEND"); v != "" {
		c.Recorder.Backend = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Feed.WebSocketURL == "" {
		return fmt.Errorf("feed.websocket_url is required")
	}
	if c.History.BaseURL == "" {
		return fmt.Errorf("history.base_url is required")
	}
	if c.Forecast.ServiceURL == "" {
		return fmt.Errorf("forecast.service_url is required")
	}
	switch c.Recorder.Backend {
	case "", "none", "kafka", "clickhouse":
	default:
		return fmt.Errorf("recorder.backend must be 'kafka', 'clickhouse' or 'none', got '%s'", c.Recorder.Backend)
	}
	if c.Recorder.Backend == "kafka" && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required for kafka recorder backend")
	}
	if c.Recorder.Backend == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host required for clickhouse recorder backend")
	}
	if len(c.Directory.Instruments) == 0 {
		return fmt.Errorf("directory.instruments cannot be empty")
	}
	return nil
}

// Defaulted fills zero values with operational defaults.
func (c *Config) Defaulted() *Config {
	if c.Feed.ReconnectDelay <= 0 {
		c.Feed.ReconnectDelay = 3 * time.Second
	}
	if c.Feed.PingInterval <= 0 {
		c.Feed.PingInterval = 20 * time.Second
	}
	if c.History.Timeout <= 0 {
		c.History.Timeout = 10 * time.Second
	}
	if c.History.Period == "" {
		c.History.Period = "1y"
	}
	if c.History.Interval == "" {
		c.History.Interval = "1d"
	}
	if c.Forecast.Timeout <= 0 {
		c.Forecast.Timeout = 15 * time.Second
	}
	if c.Forecast.HorizonDays <= 0 {
		c.Forecast.HorizonDays = 7
	}
	if c.Session.BufferSize <= 0 {
		c.Session.BufferSize = 100
	}
	if c.Session.MailboxSize <= 0 {
		c.Session.MailboxSize = 256
	}
	return c
}
