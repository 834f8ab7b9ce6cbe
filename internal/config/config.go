package config

import (
	"errors"
	"fmt"
	"time"

	"bergbridge/internal/logger"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr    string        `mapstructure:"listen_addr"`
	SpoolDir      string        `mapstructure:"spool_dir"` // Empty: no print sink
	PrintWidth    int           `mapstructure:"print_width"`
	HandleTimeout time.Duration `mapstructure:"handle_timeout"`
	QueueSize     int           `mapstructure:"queue_size"`
	MaxFrameSize  int           `mapstructure:"max_frame_size"`

	LogFile  string `mapstructure:"log_file"`
	LogLevel string `mapstructure:"log_level"`
}

const (
	DefaultListenAddr    = ":7878"
	DefaultPrintWidth    = 384
	DefaultHandleTimeout = 30 * time.Second
	DefaultQueueSize     = 64
	DefaultMaxFrameSize  = 4 << 20
	DefaultLogLevel      = "info"

	EnvPrefix = "BERGBRIDGE"
)

// New returns a viper instance with defaults and environment overrides set.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault("listen_addr", DefaultListenAddr)
	v.SetDefault("spool_dir", "")
	v.SetDefault("print_width", DefaultPrintWidth)
	v.SetDefault("handle_timeout", DefaultHandleTimeout)
	v.SetDefault("queue_size", DefaultQueueSize)
	v.SetDefault("max_frame_size", DefaultMaxFrameSize)
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", DefaultLogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

// Load reads the optional yaml file at path into v and returns the validated config.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen_addr is required")
	}
	if c.PrintWidth <= 0 || c.PrintWidth > 0xffff {
		return fmt.Errorf("print_width must be between 1 and 65535, got %d", c.PrintWidth)
	}
	if c.HandleTimeout <= 0 {
		return fmt.Errorf("handle_timeout must be positive, got %s", c.HandleTimeout)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue_size must be positive, got %d", c.QueueSize)
	}
	if c.MaxFrameSize <= 0 {
		return fmt.Errorf("max_frame_size must be positive, got %d", c.MaxFrameSize)
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
