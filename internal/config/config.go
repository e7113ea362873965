package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Reset policies applied by the timer after a reset.
const (
	ResetPolicyStop     = "stop"
	ResetPolicyContinue = "continue"
)

// Storage backend types.
const (
	StorageFile   = "file"
	StorageRedis  = "redis"
	StorageBolt   = "bolt"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Config holds the complete application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Timer   TimerConfig   `mapstructure:"timer"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig defines server ports and addresses
type ServerConfig struct {
	BindAddress    string   `mapstructure:"bind_address"`
	HTTPPort       int      `mapstructure:"http_port"`
	MetricsPort    int      `mapstructure:"metrics_port"`
	MetricsEnabled bool     `mapstructure:"metrics_enabled"`
	RateLimit      int      `mapstructure:"rate_limit"` // start/reset requests per minute per client, 0 disables
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// StorageConfig defines storage backend settings
type StorageConfig struct {
	Type         string      `mapstructure:"type"`
	Path         string      `mapstructure:"path"`
	Key          string      `mapstructure:"key"`
	OpenTimeout  string      `mapstructure:"open_timeout"`
	WriteTimeout string      `mapstructure:"write_timeout"`
	Redis        RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines the redis connection used by the redis backend
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// TimerConfig defines the streak timer behavior
type TimerConfig struct {
	TickInterval string `mapstructure:"tick_interval"`
	ResetPolicy  string `mapstructure:"reset_policy"` // "stop" or "continue"
	Autostart    bool   `mapstructure:"autostart"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	SetDefaults(v)

	v.SetConfigFile(configPath)
	v.SetEnvPrefix("STREAK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// SetConfigFile makes viper report a missing file as a plain fs error
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Default returns the configuration built from defaults only.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// SetDefaults sets default configuration values
func SetDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.bind_address", "127.0.0.1")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.metrics_enabled", true)
	v.SetDefault("server.rate_limit", 120)
	v.SetDefault("server.allowed_origins", []string{})

	// Storage defaults
	v.SetDefault("storage.type", StorageBolt)
	v.SetDefault("storage.path", defaultStoragePath())
	v.SetDefault("storage.key", "streak:time")
	v.SetDefault("storage.open_timeout", "5s")
	v.SetDefault("storage.write_timeout", "2s")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 2)
	v.SetDefault("storage.redis.min_idle_conns", 1)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Timer defaults
	v.SetDefault("timer.tick_interval", "1s")
	v.SetDefault("timer.reset_policy", ResetPolicyStop)
	v.SetDefault("timer.autostart", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// ValidKeys returns the set of all recognised configuration keys
func ValidKeys() map[string]bool {
	return map[string]bool{
		"server.bind_address":          true,
		"server.http_port":             true,
		"server.metrics_port":          true,
		"server.metrics_enabled":       true,
		"server.rate_limit":            true,
		"server.allowed_origins":       true,
		"storage.type":                 true,
		"storage.path":                 true,
		"storage.key":                  true,
		"storage.open_timeout":         true,
		"storage.write_timeout":        true,
		"storage.redis.host":           true,
		"storage.redis.port":           true,
		"storage.redis.password":       true,
		"storage.redis.db":             true,
		"storage.redis.pool_size":      true,
		"storage.redis.min_idle_conns": true,
		"storage.redis.dial_timeout":   true,
		"storage.redis.read_timeout":   true,
		"storage.redis.write_timeout":  true,
		"timer.tick_interval":          true,
		"timer.reset_policy":           true,
		"timer.autostart":              true,
		"logging.level":                true,
		"logging.format":               true,
	}
}

func defaultStoragePath() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "streak", "streak.bolt")
	}
	return "streak.bolt"
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", cfg.Server.HTTPPort)
	}
	if cfg.Server.RateLimit < 0 {
		return fmt.Errorf("invalid rate limit: %d", cfg.Server.RateLimit)
	}
	if cfg.Server.MetricsEnabled && (cfg.Server.MetricsPort <= 0 || cfg.Server.MetricsPort > 65535) {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}

	interval, err := time.ParseDuration(cfg.Timer.TickInterval)
	if err != nil {
		return fmt.Errorf("invalid tick interval %q: %w", cfg.Timer.TickInterval, err)
	}
	if interval <= 0 {
		return fmt.Errorf("tick interval must be positive: %s", interval)
	}

	switch cfg.Timer.ResetPolicy {
	case ResetPolicyStop, ResetPolicyContinue:
	default:
		return fmt.Errorf("invalid reset policy: %s (must be stop or continue)", cfg.Timer.ResetPolicy)
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = StorageBolt
	}

	switch cfg.Storage.Type {
	case StorageFile, StorageBolt, StorageSQLite:
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required for %s storage", cfg.Storage.Type)
		}
	case StorageRedis:
		if cfg.Storage.Key == "" {
			return fmt.Errorf("storage key is required for redis storage")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	return nil
}

// Interval returns the parsed tick interval
func (c TimerConfig) Interval() time.Duration {
	return ParseDuration(c.TickInterval, time.Second)
}

// ParseDuration parses a duration string with a fallback
func ParseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
