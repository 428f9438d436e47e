package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DriverMongoDB = "mongodb"
	DriverMemory  = "memory"

	// ConfigFileEnv names the variable holding the optional YAML file path.
	ConfigFileEnv = "DOCSTORE_CONFIG"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host         string        `yaml:"host" env:"SERVER_HOST"`
	Port         int           `yaml:"port" env:"SERVER_PORT"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT"`
	BodyLimit    int           `yaml:"body_limit" env:"SERVER_BODY_LIMIT"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StoreConfig holds the remote document store settings. URI, Key and
// DatabaseName are fixed for the lifetime of the process.
type StoreConfig struct {
	Driver         string        `yaml:"driver" env:"DOCSTORE_DRIVER"`
	URI            string        `yaml:"uri" env:"DOCSTORE_URI"`
	Key            string        `yaml:"key" env:"DOCSTORE_KEY"`
	Username       string        `yaml:"username" env:"DOCSTORE_USERNAME"`
	AuthSource     string        `yaml:"auth_source" env:"DOCSTORE_AUTH_SOURCE"`
	DatabaseName   string        `yaml:"database" env:"DOCSTORE_DATABASE"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" env:"DOCSTORE_CONNECT_TIMEOUT"`
}

// LogConfig selects the logging backend and its output.
type LogConfig struct {
	Level   string `yaml:"level" env:"LOG_LEVEL"`
	Format  string `yaml:"format" env:"LOG_FORMAT"`
	Backend string `yaml:"backend" env:"LOG_BACKEND"`
}

// RedisConfig configures the Redis Streams change feed sink.
type RedisConfig struct {
	Enabled         bool   `yaml:"enabled" env:"ENABLED"`
	Host            string `yaml:"host" env:"HOST"`
	Port            string `yaml:"port" env:"PORT"`
	Password        string `yaml:"password" env:"PASSWORD"`
	Database        int    `yaml:"database" env:"DB"`
	MaxRetries      int    `yaml:"max_retries" env:"MAX_RETRIES"`
	PoolSize        int    `yaml:"pool_size" env:"POOL_SIZE"`
	MinIdleConns    int    `yaml:"min_idle_conns" env:"MIN_IDLE_CONNS"`
	EnableTLS       bool   `yaml:"tls" env:"TLS"`
	ConnMaxIdleTime string `yaml:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME"`
	ConnMaxLifetime string `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
	StreamMaxLength int64  `yaml:"stream_max_length" env:"STREAM_MAX_LENGTH"`
}

// GetAddr returns host:port.
func (r RedisConfig) GetAddr() string {
	return net.JoinHostPort(r.Host, r.Port)
}

// NATSConfig configures the NATS JetStream change feed sink.
type NATSConfig struct {
	Enabled       bool          `yaml:"enabled" env:"ENABLED"`
	URL           string        `yaml:"url" env:"URL"`
	StreamName    string        `yaml:"stream" env:"STREAM"`
	SubjectPrefix string        `yaml:"subject_prefix" env:"SUBJECT_PREFIX"`
	ClientName    string        `yaml:"client_name" env:"CLIENT_NAME"`
	MaxReconnects int           `yaml:"max_reconnects" env:"MAX_RECONNECTS"`
	ReconnectWait time.Duration `yaml:"reconnect_wait" env:"RECONNECT_WAIT"`
}

// ChangeFeedConfig groups the optional change feed sinks.
type ChangeFeedConfig struct {
	Redis RedisConfig `yaml:"redis" envPrefix:"REDIS_"`
	NATS  NATSConfig  `yaml:"nats" envPrefix:"NATS_"`
}

// Config holds all configuration for the gateway.
type Config struct {
	Environment string           `yaml:"environment" env:"ENVIRONMENT"`
	Server      ServerConfig     `yaml:"server"`
	Store       StoreConfig      `yaml:"store"`
	Log         LogConfig        `yaml:"log"`
	ChangeFeed  ChangeFeedConfig `yaml:"change_feed"`
}

// DefaultConfig returns a Config with default values for local development.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			BodyLimit:    4 * 1024 * 1024,
		},
		Store: StoreConfig{
			Driver:         DriverMongoDB,
			URI:            "mongodb://localhost:27017",
			DatabaseName:   "docstore",
			AuthSource:     "admin",
			ConnectTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "text",
			Backend: "logrus",
		},
		ChangeFeed: ChangeFeedConfig{
			Redis: RedisConfig{
				Host:            "localhost",
				Port:            "6379",
				MaxRetries:      3,
				PoolSize:        10,
				MinIdleConns:    2,
				ConnMaxIdleTime: "30m",
				ConnMaxLifetime: "1h",
				StreamMaxLength: 10000,
			},
			NATS: NATSConfig{
				URL:           "nats://localhost:4222",
				StreamName:    "DOCSTORE_CHANGES",
				SubjectPrefix: "docstore",
				ClientName:    "docstore-gateway",
				MaxReconnects: 10,
				ReconnectWait: 2 * time.Second,
			},
		},
	}
}

// LoadOptions tells Load where to look for optional files.
type LoadOptions struct {
	// ConfigFile is a YAML file; when empty DOCSTORE_CONFIG is consulted.
	ConfigFile string
	// EnvFile is a dotenv file. When empty a .env in the working directory is
	// loaded if present.
	EnvFile string
}

// Load builds the configuration from defaults, the YAML file, the dotenv file
// and the environment, in that order. Existing environment variables win over
// dotenv entries. The result is not validated; call Validate after applying flags.
func Load(opts LoadOptions) (*Config, error) {
	cfg := DefaultConfig()

	if err := loadEnvFile(opts.EnvFile); err != nil {
		return nil, err
	}

	path := opts.ConfigFile
	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		if err := cfg.mergeYAMLFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, errors.New("failed to load configuration from environment: " + err.Error())
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func (c *Config) mergeYAMLFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the configuration for missing or inconsistent values.
func (c *Config) Validate() error {
	var problems []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server port %d out of range", c.Server.Port))
	}

	switch strings.ToLower(c.Store.Driver) {
	case DriverMongoDB:
		if c.Store.URI == "" {
			problems = append(problems, "DOCSTORE_URI is required for the mongodb driver")
		}
	case DriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown store driver %q", c.Store.Driver))
	}
	if c.Store.DatabaseName == "" {
		problems = append(problems, "DOCSTORE_DATABASE is required")
	}

	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		problems = append(problems, fmt.Sprintf("unknown log format %q", c.Log.Format))
	}

	if r := c.ChangeFeed.Redis; r.Enabled && (r.Host == "" || r.Port == "") {
		problems = append(problems, "redis change feed needs REDIS_HOST and REDIS_PORT")
	}
	if n := c.ChangeFeed.NATS; n.Enabled && n.URL == "" {
		problems = append(problems, "nats change feed needs NATS_URL")
	}

	if len(problems) > 0 {
		return errors.New("invalid configuration: " + strings.Join(problems, "; "))
	}
	return nil
}

// IsProduction reports whether the gateway runs in a production environment.
func (c *Config) IsProduction() bool {
	switch strings.ToLower(c.Environment) {
	case "production", "prod":
		return true
	}
	return false
}
