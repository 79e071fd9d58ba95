// Package config loads goobj settings from an optional YAML file and
// GOOBJ_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends
const (
	BackendMemory = "memory"
	BackendFS     = "fs"
	BackendS3     = "s3"
	BackendRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	Log       LogConfig
	HTTP      HTTPConfig
	Storage   StorageConfig
	Optimizer OptimizerConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	Addr         string
	MaxBodySize  int64
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// StorageConfig selects and configures the blob store
type StorageConfig struct {
	Backend string
	Dir     string // fs backend root
	S3      S3Config
	Redis   RedisConfig
}

// S3Config holds S3-compatible object storage settings
type S3Config struct {
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	Prefix       string
	UseSSL       bool
	UsePathStyle bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host      string
	Port      int
	Password  string
	DB        int
	KeyPrefix string
}

// OptimizerConfig holds reduction defaults for the upload form
type OptimizerConfig struct {
	DefaultReduction int
	MinReduction     int
	MaxReduction     int
	Step             int
	ClampPercent     bool // clamp requested percentages to [0, 99]
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.max_body_size", 64<<20)
	v.SetDefault("http.read_timeout", "30s")
	v.SetDefault("http.write_timeout", "60s")

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.dir", "./data")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.bucket", "goobj")
	v.SetDefault("storage.s3.use_path_style", true)
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.key_prefix", "goobj:")

	v.SetDefault("optimizer.default_reduction", 50)
	v.SetDefault("optimizer.min_reduction", 10)
	v.SetDefault("optimizer.max_reduction", 90)
	v.SetDefault("optimizer.step", 10)
	v.SetDefault("optimizer.clamp_percent", false)
}

// Load reads configuration. Priority (highest to lowest):
// 1. Environment variables with GOOBJ_ prefix (e.g., GOOBJ_STORAGE_BACKEND)
// 2. The file at path, or goobj.yaml in ., $HOME/.config/goobj, /etc/goobj
// 3. Built-in defaults
//
// A missing file is only an error when path is given explicitly.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("goobj")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/goobj")
		v.AddConfigPath("/etc/goobj")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("GOOBJ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			Addr:         v.GetString("http.addr"),
			MaxBodySize:  v.GetInt64("http.max_body_size"),
			ReadTimeout:  v.GetDuration("http.read_timeout"),
			WriteTimeout: v.GetDuration("http.write_timeout"),
		},
		Storage: StorageConfig{
			Backend: v.GetString("storage.backend"),
			Dir:     v.GetString("storage.dir"),
			S3: S3Config{
				Endpoint:     v.GetString("storage.s3.endpoint"),
				Region:       v.GetString("storage.s3.region"),
				Bucket:       v.GetString("storage.s3.bucket"),
				AccessKey:    v.GetString("storage.s3.access_key"),
				SecretKey:    v.GetString("storage.s3.secret_key"),
				Prefix:       v.GetString("storage.s3.prefix"),
				UseSSL:       v.GetBool("storage.s3.use_ssl"),
				UsePathStyle: v.GetBool("storage.s3.use_path_style"),
			},
			Redis: RedisConfig{
				Host:      v.GetString("storage.redis.host"),
				Port:      v.GetInt("storage.redis.port"),
				Password:  v.GetString("storage.redis.password"),
				DB:        v.GetInt("storage.redis.db"),
				KeyPrefix: v.GetString("storage.redis.key_prefix"),
			},
		},
		Optimizer: OptimizerConfig{
			DefaultReduction: v.GetInt("optimizer.default_reduction"),
			MinReduction:     v.GetInt("optimizer.min_reduction"),
			MaxReduction:     v.GetInt("optimizer.max_reduction"),
			Step:             v.GetInt("optimizer.step"),
			ClampPercent:     v.GetBool("optimizer.clamp_percent"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks for inconsistent settings
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendMemory, BackendFS, BackendS3, BackendRedis:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Storage.Backend == BackendFS && c.Storage.Dir == "" {
		return errors.New("storage.dir is required for the fs backend")
	}

	o := c.Optimizer
	if o.MinReduction < 0 || o.MaxReduction > 99 || o.MinReduction > o.MaxReduction {
		return fmt.Errorf("invalid reduction range [%d, %d]", o.MinReduction, o.MaxReduction)
	}
	if o.DefaultReduction < o.MinReduction || o.DefaultReduction > o.MaxReduction {
		return fmt.Errorf("default reduction %d outside [%d, %d]", o.DefaultReduction, o.MinReduction, o.MaxReduction)
	}
	if o.Step <= 0 {
		return fmt.Errorf("reduction step must be positive, got %d", o.Step)
	}

	if c.HTTP.MaxBodySize <= 0 {
		return fmt.Errorf("http.max_body_size must be positive, got %d", c.HTTP.MaxBodySize)
	}
	return nil
}
