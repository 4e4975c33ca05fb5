package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultEnvFile    = "main.env"
	defaultStartWait  = 2 * time.Second
	defaultIconPrefix = "/icons/gopher-"
)

var ErrInvalidValue = errors.New("invalid config value")

type StackConfig struct {
	StartCommand string
	StopCommand  string
	AutoStart    bool
	StartWait    time.Duration
}

type RedisConfig struct {
	URI      string
	Password string
	DB       int
}

func (c RedisConfig) Enabled() bool {
	return c.URI != ""
}

type KafkaConfig struct {
	Addr          string
	Username      string
	Password      string
	ConsumerGroup string
	TopicRequests string
	TopicEvents   string
}

func (c KafkaConfig) Enabled() bool {
	return c.Addr != ""
}

type Config struct {
	Stack StackConfig
	Redis RedisConfig
	Kafka KafkaConfig

	DNSServer        string
	MimeTablePath    string
	GopherIconPrefix string
	FetchBufferSize  int
	OTLPEndpoint     string
	LogLevel         string
}

// LoadEnv reads main.env unless APP_ENV is prod. A missing file is not an error.
func LoadEnv() error {
	if os.Getenv("APP_ENV") == "prod" {
		return nil
	}

	err := godotenv.Load(defaultEnvFile)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", defaultEnvFile, err)
	}
	return nil
}

// Load builds the configuration from the environment.
func Load() (*Config, error) {
	if err := LoadEnv(); err != nil {
		return nil, err
	}

	cfg := &Config{
		Stack: StackConfig{
			StartCommand: os.Getenv("STACK_START_CMD"),
			StopCommand:  os.Getenv("STACK_STOP_CMD"),
		},
		Redis: RedisConfig{
			URI:      os.Getenv("REDIS_URI"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Kafka: KafkaConfig{
			Addr:          os.Getenv("KAFKA_ADDR"),
			Username:      os.Getenv("KAFKA_USERNAME"),
			Password:      os.Getenv("KAFKA_PASSWORD"),
			ConsumerGroup: getenv("KAFKA_CONSUMER_GROUP", "content-fetch"),
			TopicRequests: getenv("KAFKA_TOPIC_REQUESTS", "fetch-requests"),
			TopicEvents:   getenv("KAFKA_TOPIC_EVENTS", "fetch-events"),
		},
		DNSServer:        os.Getenv("DNS_SERVER"),
		MimeTablePath:    os.Getenv("MIME_TABLE_PATH"),
		GopherIconPrefix: getenv("GOPHER_ICON_PREFIX", defaultIconPrefix),
		OTLPEndpoint:     os.Getenv("OTLP_ENDPOINT"),
		LogLevel:         getenv("LOG_LEVEL", "info"),
	}

	var errs []error

	cfg.Stack.AutoStart, errs = parseBool("STACK_AUTOSTART", cfg.Stack.StartCommand != "", errs)
	cfg.Stack.StartWait, errs = parseDuration("STACK_START_WAIT", defaultStartWait, errs)
	cfg.FetchBufferSize, errs = parseInt("FETCH_BUFFER_SIZE", DefaultBufferSize, errs)
	cfg.Redis.DB, errs = parseInt("REDIS_DB", 0, errs)

	if cfg.FetchBufferSize < 512 {
		errs = append(errs, fmt.Errorf("%w: FETCH_BUFFER_SIZE must be at least 512, got %d", ErrInvalidValue, cfg.FetchBufferSize))
	}

	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("%w: LOG_LEVEL %q", ErrInvalidValue, cfg.LogLevel))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBool(key string, def bool, errs []error) (bool, []error) {
	v := os.Getenv(key)
	if v == "" {
		return def, errs
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v))
	}
	return b, errs
}

func parseInt(key string, def int, errs []error) (int, []error) {
	v := os.Getenv(key)
	if v == "" {
		return def, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v))
	}
	return n, errs
}

func parseDuration(key string, def time.Duration, errs []error) (time.Duration, []error) {
	v := os.Getenv(key)
	if v == "" {
		return def, errs
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def, append(errs, fmt.Errorf("%w: %s=%q", ErrInvalidValue, key, v))
	}
	return d, errs
}
