package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v4"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	CDEK     CDEKConfig     `yaml:"cdek"`
	Monitor  MonitorConfig  `yaml:"monitor"`
}

type AppConfig struct {
	Environment string `yaml:"environment"` // "development" | "production"
	LogLevel    string `yaml:"log_level"`
}

type DatabaseConfig struct {
	// URL wins over the discrete fields when set (DATABASE_URL).
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                    string `yaml:"host"`
	Port                    int    `yaml:"port"`
	ShipmentSyncedTopicName string `yaml:"shipment_synced_topic_name"`
	ConsumerGroup           string `yaml:"consumer_group"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type CDEKConfig struct {
	BaseURL               string `yaml:"base_url"`
	ClientID              string `yaml:"client_id"`
	ClientSecret          string `yaml:"client_secret"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	// UseFake switches to the deterministic in-process carrier (demo/dev without credentials).
	UseFake bool `yaml:"use_fake"`
}

type MonitorConfig struct {
	HTTPAddr       string `yaml:"http_addr"`
	WorkerHTTPAddr string `yaml:"worker_http_addr"`

	ReadCacheTTLSeconds int `yaml:"read_cache_ttl_seconds"`

	SyncIntervalSeconds int `yaml:"sync_interval_seconds"`
	SyncConcurrency     int `yaml:"sync_concurrency"`
	RateLimitPerMinute  int `yaml:"rate_limit_per_minute"`
}

// LoadConfig reads the YAML file (optional when filename is empty) and then applies
// environment / .env overrides for credentials and connection strings.
func LoadConfig(filename string) (*Config, error) {
	var config Config

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
		}
	}

	if err := applyEnv(&config, "."); err != nil {
		return nil, err
	}

	return config.WithDefaults(), nil
}

var envKeys = []string{
	"APP_ENV",
	"LOG_LEVEL",
	"DATABASE_URL",
	"CDEK_API_URL",
	"CDEK_CLIENT_ID",
	"CDEK_CLIENT_SECRET",
}

func applyEnv(config *Config, dir string) error {
	v := viper.New()
	v.AutomaticEnv()
	v.AddConfigPath(dir)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading .env file: %w", err)
		}
	}
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	override := func(dst *string, key string) {
		if s := v.GetString(key); s != "" {
			*dst = s
		}
	}
	override(&config.App.Environment, "APP_ENV")
	override(&config.App.LogLevel, "LOG_LEVEL")
	override(&config.Database.URL, "DATABASE_URL")
	override(&config.CDEK.BaseURL, "CDEK_API_URL")
	override(&config.CDEK.ClientID, "CDEK_CLIENT_ID")
	override(&config.CDEK.ClientSecret, "CDEK_CLIENT_SECRET")
	return nil
}

// WithDefaults fills zero values in place and returns the same config.
func (c *Config) WithDefaults() *Config {
	if c.App.Environment == "" {
		c.App.Environment = "development"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Kafka.ShipmentSyncedTopicName == "" {
		c.Kafka.ShipmentSyncedTopicName = "shipment.synced"
	}
	if c.Kafka.ConsumerGroup == "" {
		c.Kafka.ConsumerGroup = "monitor-api"
	}
	if c.CDEK.BaseURL == "" {
		c.CDEK.BaseURL = "https://api.edu.cdek.ru/v2"
	}
	if c.CDEK.RequestTimeoutSeconds <= 0 {
		c.CDEK.RequestTimeoutSeconds = 30
	}
	if c.Monitor.HTTPAddr == "" {
		c.Monitor.HTTPAddr = ":8000"
	}
	if c.Monitor.WorkerHTTPAddr == "" {
		c.Monitor.WorkerHTTPAddr = ":8082"
	}
	if c.Monitor.ReadCacheTTLSeconds <= 0 {
		c.Monitor.ReadCacheTTLSeconds = 60
	}
	if c.Monitor.SyncIntervalSeconds <= 0 {
		c.Monitor.SyncIntervalSeconds = 15 * 60
	}
	if c.Monitor.SyncConcurrency <= 0 {
		c.Monitor.SyncConcurrency = 1
	}
	return c
}

// ConnString builds the postgres DSN, preferring DATABASE_URL.
func (d DatabaseConfig) ConnString() string {
	if d.URL != "" {
		return d.URL
	}
	sslMode := d.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.Username, d.Password, d.Host, d.Port, d.DBName, sslMode)
}

func (k KafkaConfig) Brokers() []string {
	return []string{fmt.Sprintf("%s:%d", k.Host, k.Port)}
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}
